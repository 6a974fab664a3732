package decomposer

import (
	"context"
	"time"

	"github.com/numadecomp/numadecomp/internal/executor"
	"github.com/numadecomp/numadecomp/internal/governor"
)

// migrationDispatchTimeout bounds how long a migrating worker waits for a
// free slot in the destination pool. This goroutine still holds its own
// pool's semaphore slot while attempting the hand-off (it's only released
// when this call returns), so an unbounded Acquire here can deadlock
// against peers migrating the other way under simultaneous saturation.
// Timing out and falling back to the source node is always safe: claim
// still works and the worker simply stays put.
const migrationDispatchTimeout = 50 * time.Millisecond

// tryMigrate re-dispatches a dispatched (non-caller) worker to a
// different node once its own node runs dry, rather than letting it sit
// idle or keep losing random draws against nodes it can't touch. It only
// fires when the host is NUMA-capable, this isn't the caller's own
// goroutine (guaranteed by runWorkerLoop calling it only with a non-nil
// wr, which the caller's goroutine never holds),
// there's more than one node, and a destination different from the
// source exists with remaining work and reservable capacity.
func tryMigrate(j *job, wr *governor.WorkerRecord, boundNode NodeID, gov *governor.Governor, exec *executor.Executor, numaCapable bool) bool {
	if !numaCapable || gov.NodeCount() <= 1 {
		return false
	}

	j.mu.Lock()
	srcIdx := -1
	for i := range j.nodes {
		if j.nodes[i].ID == boundNode {
			srcIdx = i
			break
		}
	}
	if srcIdx >= 0 && j.nodes[srcIdx].Remaining > 0 {
		// Source still has work; no reason to migrate.
		j.mu.Unlock()
		return false
	}
	destIdx := j.pickNodeLocked(AnyNode)
	j.mu.Unlock()

	if destIdx < 0 {
		return false
	}
	dest := j.nodes[destIdx].ID
	if dest == boundNode {
		return false
	}

	// The destination's cap governs the check, not the source's.
	if !gov.Repin(wr, dest) {
		return false
	}

	dispatchCtx, cancel := context.WithTimeout(context.Background(), migrationDispatchTimeout)
	defer cancel()

	if err := exec.Dispatch(dispatchCtx, dest, func() {
		runWorkerLoop(j, dest, wr, gov, exec, numaCapable)
	}); err != nil {
		gov.Repin(wr, boundNode)
		return false
	}

	j.obs.Migrated(context.Background())
	return true
}
