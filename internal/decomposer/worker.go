package decomposer

import (
	"fmt"

	"github.com/numadecomp/numadecomp/internal/errors"
	"github.com/numadecomp/numadecomp/internal/executor"
	"github.com/numadecomp/numadecomp/internal/governor"
)

// runWorkerLoop checks whether its own node has run dry and migrates
// before claiming anything new. When migration does not happen (host not
// NUMA-capable, destination saturated, dispatch timed out), the worker
// stays where it is and claims a chunk from another node with work left.
// wr is nil for the caller's own goroutine, which never migrates and
// never holds a governor reservation.
func runWorkerLoop(j *job, boundNode NodeID, wr *governor.WorkerRecord, gov *governor.Governor, exec *executor.Executor, numaCapable bool) {
	for {
		if wr != nil && tryMigrate(j, wr, boundNode, gov, exec, numaCapable) {
			// Identity transferred to a fresh dispatch on another node;
			// this goroutine's participation ends without counting as
			// a finished worker.
			return
		}

		start, end, arg, ok := claim(j, boundNode)
		if !ok {
			break
		}

		if err := j.processFunc(start, end, arg); err != nil {
			wrapped := errors.Wrap(errors.ComponentWorker, "process", err)
			if engineErr, ok := wrapped.(*errors.EngineError); ok {
				engineErr.WithContextMap(map[string]interface{}{
					"node_id": int(boundNode),
					"range":   fmt.Sprintf("[%v, %v)", start, end),
				})
			}
			j.mu.Lock()
			if j.firstError == nil {
				j.firstError = wrapped
			}
			j.mu.Unlock()
		}
	}

	finish(j, wr, gov)
}

// claim takes the next chunk under the job lock. Claiming stops once a
// latched error forbids new work or no node has anything left.
func claim(j *job, boundNode NodeID) (start, end Cursor, arg any, ok bool) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.firstError != nil {
		return nil, nil, nil, false
	}

	idx := j.pickNodeLocked(boundNode)
	if idx < 0 {
		return nil, nil, nil, false
	}

	n := &j.nodes[idx]
	size := j.chunkSize
	if size > n.Remaining {
		size = n.Remaining
	}

	start = n.Start
	end = j.iterFunc(start, size)
	n.Start = end
	n.Remaining -= size
	j.totalRemaining -= size
	if n.Remaining == 0 {
		j.nodesWithWorkLeft--
	}

	assert(j.sumRemainingLocked() == j.totalRemaining, "sum(node.Remaining) = %d, want totalRemaining = %d", j.sumRemainingLocked(), j.totalRemaining)

	j.obs.ChunkClaimed()
	return start, end, j.funcArg, true
}

func (j *job) sumRemainingLocked() uint64 {
	var sum uint64
	for i := range j.nodes {
		sum += j.nodes[i].Remaining
	}
	return sum
}

// finish accounts for one worker's completion and closes done exactly
// once, when every spawned worker has finished.
func finish(j *job, wr *governor.WorkerRecord, gov *governor.Governor) {
	if wr != nil {
		gov.Release(wr)
	}

	j.mu.Lock()
	j.workersFinished++
	assert(j.workersFinished <= j.workersSpawned, "workersFinished = %d exceeds workersSpawned = %d", j.workersFinished, j.workersSpawned)
	done := j.workersFinished == j.workersSpawned
	j.mu.Unlock()

	if done {
		close(j.done)
	}
}
