// Package api is the public entry point for numadecomp: decomposing one
// large unit of work into chunks dispatched across a bounded, optionally
// NUMA-aware pool of worker goroutines.
//
// Run and RunNuma both block until every chunk has been processed (or
// the first ProcessFunc error has been latched); there is no
// cancellation of in-flight chunks, only of the setup phase before any
// worker is reserved.
package api

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/numadecomp/numadecomp/internal/config"
	"github.com/numadecomp/numadecomp/internal/decomposer"
	"github.com/numadecomp/numadecomp/internal/executor"
	"github.com/numadecomp/numadecomp/internal/governor"
	"github.com/numadecomp/numadecomp/internal/logging"
	"github.com/numadecomp/numadecomp/internal/observability"
	"github.com/numadecomp/numadecomp/internal/topology"
)

var log = logging.New().WithComponent("api")

// Cursor is an opaque position in the caller's workload. The decomposer
// never inspects it, only threads it through IterFunc and ProcessFunc.
type Cursor = decomposer.Cursor

// Node describes one affinity domain's share of the work for RunNuma.
type Node = decomposer.Node

// NodeID identifies an affinity domain. AnyNode means "no preference".
type NodeID = governor.NodeID

// AnyNode is the sentinel meaning a worker is not bound to any node.
const AnyNode = governor.AnyNode

// Control bundles the caller-supplied behavior for one decomposition.
type Control struct {
	// IterFunc advances cursor by size units. Invoked while the job's
	// internal lock is held, so it must be O(1) and must not call back
	// into this package.
	IterFunc func(cursor Cursor, size uint64) Cursor

	// ProcessFunc does the actual work on [start, end). Invoked without
	// any lock held, so concurrent calls never serialize against each
	// other.
	ProcessFunc func(start, end Cursor, arg any) error

	// FuncArg is passed through to every ProcessFunc call unchanged.
	FuncArg any

	// MinChunkSize is the smallest unit handed to one ProcessFunc call,
	// except for the last chunk claimed from a node, which covers only
	// what is left and may be smaller. Zero means 1.
	MinChunkSize uint64

	// MaxThreads caps the number of worker goroutines, including the
	// caller's own. Zero means the process default from internal/config
	// (initially 4).
	MaxThreads int
}

// DefaultIterFunc treats cursor as a uintptr-shaped byte offset, the
// default stride for linear buffers.
func DefaultIterFunc(cursor Cursor, size uint64) Cursor {
	return cursor.(uintptr) + uintptr(size)
}

var (
	runtimeOnce sync.Once
	gov         *governor.Governor
	exec        *executor.Executor
	obs         *observability.Observability

	jobSeq atomic.Uint64
)

// nextJobID assigns an identifier unique to this process to one
// RunNuma call, so its log lines can be correlated without threading a
// job pointer through the logger. Worker goroutines do not log and a
// migrated worker is dispatched with a fresh background context.
func nextJobID() string {
	return "job-" + strconv.FormatUint(jobSeq.Add(1), 10)
}

func initRuntime() {
	cfg := config.Load()
	info := topology.Discover()
	gov = governor.New(info, cfg.CPUFracNumer, cfg.CPUFracDenom)
	exec = executor.New(gov.CapTotal())
	obs = observability.New()
	log.Info("runtime initialized",
		"online_cpus", info.OnlineCPUs,
		"node_count", info.NodeCount(),
		"numa_capable", info.NUMACapable(),
		"cap_total", gov.CapTotal(),
	)
}

// Run decomposes [start, start+totalSize) across a single implicit node
// and processes it with up to ctl.MaxThreads worker goroutines.
//
// The implicit node is tagged with the calling goroutine's current NUMA
// node rather than AnyNode, matching ktask.c's node.kn_nid =
// numa_node_id() for an unsplit task. Tagging it AnyNode would mean no
// dispatched worker's boundNode ever equals the descriptor's ID, so
// decomposer.tryMigrate's "source still has work" guard could never
// match and every chunk completion would look like a migration
// candidate on a NUMA-capable host.
//
// ctx is honored only during setup: Run checks ctx.Err() once before
// reserving any worker. After that ctx only bounds the wait for executor
// slots while extra workers are dispatched, so a ctx cancelled then
// yields fewer extra workers, never an error; an in-flight chunk is never
// cancelled mid-way.
func Run(ctx context.Context, start Cursor, totalSize uint64, ctl Control) error {
	node := NodeID(topology.CurrentNode())
	return RunNuma(ctx, []Node{{Start: start, Remaining: totalSize, ID: node}}, ctl)
}

// RunNuma decomposes work already split across affinity domains,
// round-robining extra workers over the host's node IDs (not only the
// nodes in this call) and migrating a dispatched worker to another node
// once its own node runs dry.
func RunNuma(ctx context.Context, nodes []Node, ctl Control) error {
	runtimeOnce.Do(initRuntime)

	ctx = logging.WithJobID(ctx, nextJobID())

	info := topology.Discover()
	maxThreads := ctl.MaxThreads
	if maxThreads <= 0 {
		maxThreads = config.Load().MaxThreads
	}

	params := decomposer.Params{
		MinChunkSize: ctl.MinChunkSize,
		MaxThreads:   maxThreads,
		IterFunc:     ctl.IterFunc,
		ProcessFunc:  ctl.ProcessFunc,
		FuncArg:      ctl.FuncArg,
	}

	log.InfoContext(ctx, "job dispatched", "node_count", len(nodes), "max_threads", maxThreads)

	err := decomposer.Run(ctx, nodes, params, gov, exec, info.OnlineCPUs, info.NUMACapable(), obs)
	if err != nil {
		log.ErrorContext(ctx, "job failed", "error", err, "node_count", len(nodes))
	}
	return err
}
