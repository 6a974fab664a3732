package api

import (
	"context"

	"github.com/numadecomp/numadecomp/internal/executor"
	"github.com/numadecomp/numadecomp/internal/governor"
	"github.com/numadecomp/numadecomp/internal/health"
)

// HealthStatus mirrors internal/health.Status for callers that would
// rather not import an internal package directly.
type HealthStatus = health.Status

const (
	HealthUp       = health.StatusUp
	HealthDown     = health.StatusDown
	HealthDegraded = health.StatusDegraded
)

// HealthReport bundles the governor's and executor's own health.Checker
// results, the two subsystems initRuntime wires together for one
// process.
type HealthReport struct {
	Governor health.Result
	Executor health.Result
}

// Health reports the process-wide governor's worker-cap utilization and
// the executor's any-pool circuit breaker state. It initializes the
// runtime (as Run/RunNuma would) if nothing has called either yet.
func Health(ctx context.Context) (HealthReport, error) {
	runtimeOnce.Do(initRuntime)

	govResult, err := governor.NewHealthChecker(gov).CheckHealth(ctx)
	if err != nil {
		return HealthReport{}, err
	}
	execResult, err := executor.NewHealthChecker(exec).CheckHealth(ctx)
	if err != nil {
		return HealthReport{}, err
	}
	return HealthReport{Governor: govResult, Executor: execResult}, nil
}
