package decomposer

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/numadecomp/numadecomp/internal/errors"
	"github.com/numadecomp/numadecomp/internal/executor"
	"github.com/numadecomp/numadecomp/internal/governor"
	"github.com/numadecomp/numadecomp/internal/observability"
)

// IterFunc advances cursor by size units and returns the new cursor. It
// is invoked while the job's lock is held — it must be O(1) and must not
// call back into the decomposer.
type IterFunc func(cursor Cursor, size uint64) Cursor

// ProcessFunc does the actual work on [start, end). It is invoked without
// the job's lock held, so concurrent calls on different chunks never
// serialize against each other.
type ProcessFunc func(start, end Cursor, arg any) error

// job holds one decomposition's shared mutable state. It is never
// exposed to callers: Run/RunNuma hold it on the Go call stack for the
// duration of the call and nothing else retains a reference once they
// return.
type job struct {
	nodes             []Node
	totalRemaining    uint64
	chunkSize         uint64
	nodesWithWorkLeft int
	workersSpawned    int
	workersFinished   int
	firstError        error
	done              chan struct{}
	mu                sync.Mutex

	iterFunc    IterFunc
	processFunc ProcessFunc
	funcArg     any

	obs *observability.Observability
}

// Params bundles the inputs to Run that come from the caller's Control.
type Params struct {
	MinChunkSize uint64
	MaxThreads   int
	IterFunc     IterFunc
	ProcessFunc  ProcessFunc
	FuncArg      any
}

// Run decomposes work across nodes, using gov to bound worker counts and
// exec to dispatch extra workers. The caller's own goroutine always
// executes as one worker, saving a dispatch. onlineCPUs and numaCapable
// come from topology.Info and bound/gate the worker-count decision and
// migration eligibility respectively.
func Run(ctx context.Context, nodes []Node, p Params, gov *governor.Governor, exec *executor.Executor, onlineCPUs int, numaCapable bool, obs *observability.Observability) error {
	total := uint64(0)
	nodesWithWorkLeft := 0
	for _, n := range nodes {
		total += n.Remaining
		if n.Remaining > 0 {
			nodesWithWorkLeft++
		}
	}
	if total == 0 {
		return nil
	}

	// Setup-phase cancellation only: after this check a cancelled ctx can
	// only make a later extra-worker Dispatch fail (fewer workers); it
	// never stops a chunk or fails the call, preserving the no-mid-chunk-
	// cancellation contract. Classified transient: the same call with a
	// live context would proceed normally.
	if err := ctx.Err(); err != nil {
		wrapped := errors.WrapWithType(errors.ComponentJob, "setup", errors.ErrorTypeTransient, err)
		if engineErr, ok := wrapped.(*errors.EngineError); ok {
			engineErr.WithContext("node_count", len(nodes)).WithContext("total_remaining", total)
		}
		return wrapped
	}

	minGrain := p.MinChunkSize
	if minGrain == 0 {
		minGrain = 1
	}
	maxThreads := p.MaxThreads
	if maxThreads <= 0 {
		maxThreads = 4
	}

	wanted := int(ceilDiv(total, minGrain))
	if wanted > onlineCPUs {
		wanted = onlineCPUs
	}
	if wanted > maxThreads {
		wanted = maxThreads
	}
	if wanted < 1 {
		wanted = 1
	}

	j := &job{
		nodes:             append([]Node(nil), nodes...),
		totalRemaining:    total,
		chunkSize:         ChunkSize(total, minGrain, wanted),
		nodesWithWorkLeft: nodesWithWorkLeft,
		workersSpawned:    1, // the caller's own goroutine
		done:              make(chan struct{}),
		iterFunc:          p.IterFunc,
		processFunc:       p.ProcessFunc,
		funcArg:           p.FuncArg,
		obs:               obs,
	}

	ctx, finishSpan := obs.StartJob(ctx, total, len(nodes))

	spawnExtraWorkers(ctx, j, wanted-1, gov, exec, numaCapable)

	// The caller's own goroutine is worker #1; it never holds a
	// WorkerRecord and is never a migration candidate.
	runWorkerLoop(j, AnyNode, nil, gov, exec, numaCapable)

	<-j.done
	finishSpan(j.firstError)
	return j.firstError
}

// spawnExtraWorkers reserves and dispatches up to want additional
// workers. On a NUMA-capable host it round-robins their binding over the
// governor's node IDs 0..NodeCount()-1, whether or not the job has work
// on that node, not over the job's own node slice; otherwise every
// worker is bound to AnyNode. It falls back to AnyNode when the governor
// can't bind to a specific node. It stops
// silently on the first reservation or dispatch failure: capacity
// pressure yields fewer extra workers, never a call failure.
func spawnExtraWorkers(ctx context.Context, j *job, want int, gov *governor.Governor, exec *executor.Executor, numaCapable bool) {
	if want <= 0 || gov == nil || gov.Disabled() {
		return
	}

	nodeCount := gov.NodeCount()
	next := 0
	for i := 0; i < want; i++ {
		node := AnyNode
		if numaCapable && nodeCount > 0 {
			node = governor.NodeID(next % nodeCount)
			next++
		}

		wr := gov.TryReserve(node)
		if wr == nil && node != AnyNode {
			// This node is saturated; try any node before giving up.
			wr = gov.TryReserve(AnyNode)
		}
		if wr == nil {
			return
		}

		// workersSpawned must reach its final count before any worker can
		// possibly run and observe it, or a fast worker can race ahead of
		// this increment and close j.done while a sibling is still being
		// dispatched, then have the sibling's own finish() try to close it
		// again. Count the worker as spawned before Dispatch queues it, and
		// back the count out if dispatch never actually happens.
		j.mu.Lock()
		j.workersSpawned++
		j.mu.Unlock()

		boundNode := wr.BoundNode
		if err := exec.Dispatch(ctx, boundNode, func() {
			runWorkerLoop(j, boundNode, wr, gov, exec, numaCapable)
		}); err != nil {
			gov.Release(wr)
			j.mu.Lock()
			j.workersSpawned--
			j.mu.Unlock()
			return
		}

		j.obs.WorkerSpawned()
	}
}

// pickNodeLocked chooses which node's work to claim next. If preferred
// refers to a node that still has remaining work, it wins (keeps a
// node-bound worker on its own node). Otherwise a uniform random node
// among those with remaining work is chosen. Must be called with j.mu
// held.
func (j *job) pickNodeLocked(preferred NodeID) int {
	if preferred != AnyNode {
		for i := range j.nodes {
			if j.nodes[i].ID == preferred && j.nodes[i].Remaining > 0 {
				return i
			}
		}
	}

	if j.nodesWithWorkLeft == 0 {
		return -1
	}
	r := rand.IntN(j.nodesWithWorkLeft)
	count := 0
	for i := range j.nodes {
		if j.nodes[i].Remaining > 0 {
			if count == r {
				return i
			}
			count++
		}
	}
	return -1
}
