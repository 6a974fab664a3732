package executor

import (
	"context"

	"github.com/numadecomp/numadecomp/internal/health"
	"github.com/numadecomp/numadecomp/internal/resilience"
)

// HealthChecker reports an Executor's any-pool circuit breaker state as
// a health.Checker, so a process supervisor notices a degraded any-pool
// the same way it would notice a governor pinned at capacity.
type HealthChecker struct {
	exec *Executor
}

// NewHealthChecker wraps exec for health.Checker reporting.
func NewHealthChecker(exec *Executor) *HealthChecker {
	return &HealthChecker{exec: exec}
}

// CheckHealth reports DEGRADED while the any-pool breaker is open or
// probing recovery (AnyNode dispatch is being rerouted through the node
// pool) and UP otherwise.
func (h *HealthChecker) CheckHealth(_ context.Context) (health.Result, error) {
	state := h.exec.anyBreaker.State()

	details := map[string]interface{}{
		"any_pool_breaker_state": state.String(),
	}

	switch state {
	case resilience.StateOpen:
		details["reason"] = "any-pool dispatch failing, rerouted through node pool"
		return health.Result{Status: health.StatusDegraded, Details: details}, nil
	case resilience.StateHalfOpen:
		details["reason"] = "any-pool breaker probing recovery"
		return health.Result{Status: health.StatusDegraded, Details: details}, nil
	default:
		return health.Result{Status: health.StatusUp, Details: details}, nil
	}
}
