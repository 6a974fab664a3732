// Package executor is the Thread Pool Adapter: it runs a caller-supplied
// closure on a goroutine, exactly once, with a best-effort NUMA-affinity
// hint. Go gives no portable way to pin a goroutine to a node, so the
// "affinity" here mirrors what original_source/kernel/ktask.c's workqueue
// selection does — routing to one of two logically distinct dispatch
// pools — rather than true thread placement.
package executor

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/numadecomp/numadecomp/internal/errors"
	"github.com/numadecomp/numadecomp/internal/governor"
	"github.com/numadecomp/numadecomp/internal/resilience"
)

// Executor dispatches work onto one of two capacity-bounded pools:
// nodePool for node-targeted work, anyPool for AnyNode work. Both pools
// are sized to the same global cap the Governor enforces logically, so a
// reservation-accounting bug cannot runaway-spawn goroutines — mirroring
// WQ_UNBOUND's bounded max_active in the kernel original.
type Executor struct {
	nodeSem *semaphore.Weighted
	anySem  *semaphore.Weighted

	// anyBreaker trips when anyPool dispatch repeatedly fails, rerouting
	// subsequent AnyNode work through nodePool until it resets.
	anyBreaker *resilience.CircuitBreaker
}

// New builds an Executor whose pools are each bounded to capacity.
func New(capacity int) *Executor {
	if capacity < 1 {
		capacity = 1
	}
	return &Executor{
		nodeSem:    semaphore.NewWeighted(int64(capacity)),
		anySem:     semaphore.NewWeighted(int64(capacity)),
		anyBreaker: resilience.NewCircuitBreaker("executor.any-pool", 3, 0),
	}
}

// Dispatch runs fn on a goroutine exactly once. ctx bounds only the wait
// for a free pool slot, not fn's own execution — once fn starts it always
// runs to completion, matching the no-mid-chunk-cancellation contract.
func (e *Executor) Dispatch(ctx context.Context, node governor.NodeID, fn func()) error {
	if node != governor.AnyNode {
		return e.dispatchOn(ctx, e.nodeSem, fn)
	}

	if e.anyBreaker.Allow() {
		err := e.dispatchOn(ctx, e.anySem, fn)
		if err != nil {
			e.anyBreaker.RecordFailure()
			return e.dispatchOn(ctx, e.nodeSem, fn)
		}
		e.anyBreaker.RecordSuccess()
		return nil
	}

	// Breaker open: anyPool is considered unhealthy, route through nodePool.
	return e.dispatchOn(ctx, e.nodeSem, fn)
}

func (e *Executor) dispatchOn(ctx context.Context, sem *semaphore.Weighted, fn func()) error {
	if err := sem.Acquire(ctx, 1); err != nil {
		wrapped := errors.WrapWithType(errors.ComponentExecutor, "acquire pool slot", errors.ErrorTypeTransient, err)
		return fmt.Errorf("executor: %w", wrapped)
	}
	go func() {
		defer sem.Release(1)
		fn()
	}()
	return nil
}
