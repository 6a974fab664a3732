package governor

import (
	"context"

	"github.com/numadecomp/numadecomp/internal/health"
)

// HealthChecker reports a Governor's current utilization as a
// health.Checker, so process supervisors can watch for a governor pinned
// at capacity the same way they'd watch a connection pool.
type HealthChecker struct {
	gov *Governor
}

// NewHealthChecker wraps gov for health.Checker reporting.
func NewHealthChecker(gov *Governor) *HealthChecker {
	return &HealthChecker{gov: gov}
}

// CheckHealth reports DOWN when the governor is disabled (single-CPU
// fallback), DEGRADED when every global slot is reserved, and UP
// otherwise.
func (h *HealthChecker) CheckHealth(_ context.Context) (health.Result, error) {
	h.gov.mu.Lock()
	inFlight := h.gov.inFlightTotal
	capTotal := h.gov.capTotal
	disabled := h.gov.disabled
	h.gov.mu.Unlock()

	details := map[string]interface{}{
		"cap_total":  capTotal,
		"in_flight":  inFlight,
		"node_count": h.gov.NodeCount(),
	}

	if disabled {
		details["reason"] = "single-CPU host, decomposition runs serially"
		return health.Result{Status: health.StatusDown, Details: details}, nil
	}
	if inFlight >= capTotal {
		return health.Result{Status: health.StatusDegraded, Details: details}, nil
	}
	return health.Result{Status: health.StatusUp, Details: details}, nil
}
