// Package governor enforces the global and per-node worker caps shared by
// every concurrently running decomposition, and hands out the reusable
// worker records backing those reservations. Both concerns share one
// mutex, mirroring original_source/kernel/ktask.c's single
// ktask_rlim_lock spinlock guarding both the rlim counters and the
// ktask_works free list.
package governor

import (
	"sync"

	"github.com/numadecomp/numadecomp/internal/topology"
)

// NodeID identifies a NUMA affinity domain. AnyNode means "no preference".
type NodeID int

// AnyNode is the sentinel NodeID meaning the caller does not care which
// node a worker is scheduled on.
const AnyNode NodeID = -1

// WorkerRecord is the unit handed out by the work pool and held for the
// duration of one worker's participation in a job. It is rewritten in
// place on migration rather than reallocated.
type WorkerRecord struct {
	BoundNode NodeID
	// Continuation is never set or read by any package in this module;
	// the governor only clears it to nil in TryReserve and Release.
	Continuation func()
}

// Governor tracks in-flight worker counts against global and per-node
// caps, and owns the free list of WorkerRecords sized to capTotal so
// exhaustion of the list is impossible by construction.
type Governor struct {
	mu sync.Mutex

	capTotal int
	capNode  []int

	inFlightTotal int
	inFlightNode  []int

	disabled bool

	free []*WorkerRecord
}

// New builds a Governor from a topology snapshot and the configured CPU
// fraction. When info.OnlineCPUs == 1 the governor is constructed
// disabled: every reservation attempt fails and callers fall back to
// running serially on their own goroutine.
func New(info topology.Info, cpuFracNumer, cpuFracDenom int) *Governor {
	capTotal := mulFrac(info.OnlineCPUs, cpuFracNumer, cpuFracDenom)

	capNode := make([]int, len(info.CPUsPerNode))
	for i, cpus := range info.CPUsPerNode {
		capNode[i] = mulFrac(cpus, cpuFracNumer, cpuFracDenom)
	}

	g := &Governor{
		capTotal:      capTotal,
		capNode:       capNode,
		inFlightNode:  make([]int, len(capNode)),
		disabled:      info.OnlineCPUs <= 1,
		free:          make([]*WorkerRecord, 0, capTotal),
	}
	for i := 0; i < capTotal; i++ {
		g.free = append(g.free, &WorkerRecord{BoundNode: AnyNode})
	}
	return g
}

func mulFrac(n, numer, denom int) int {
	if denom <= 0 {
		return n
	}
	return (n * numer) / denom
}

// Disabled reports whether this governor refuses all reservations
// (single-CPU host: decomposition must run on the caller's goroutine).
func (g *Governor) Disabled() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.disabled
}

// NodeCount returns the number of affinity domains this governor tracks.
func (g *Governor) NodeCount() int {
	return len(g.capNode)
}

// CapTotal returns the global worker cap.
func (g *Governor) CapTotal() int {
	return g.capTotal
}

// CapNode returns the worker cap for a specific node, or 0 if node is out
// of range or AnyNode.
func (g *Governor) CapNode(node NodeID) int {
	if node < 0 || int(node) >= len(g.capNode) {
		return 0
	}
	return g.capNode[node]
}

// TryReserve attempts to reserve one worker slot against the global cap
// and, when node != AnyNode, the node's cap as well. It returns a
// WorkerRecord drawn from the free list on success, or nil if disabled or
// if either cap is already saturated (cur >= cap, checked defensively
// rather than cur == cap).
func (g *Governor) TryReserve(node NodeID) *WorkerRecord {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.disabled {
		return nil
	}
	if g.inFlightTotal >= g.capTotal {
		return nil
	}
	if node != AnyNode {
		if int(node) >= len(g.capNode) || g.inFlightNode[node] >= g.capNode[node] {
			return nil
		}
	}

	n := len(g.free)
	if n == 0 {
		return nil
	}
	wr := g.free[n-1]
	g.free = g.free[:n-1]
	wr.BoundNode = node
	wr.Continuation = nil

	g.inFlightTotal++
	if node != AnyNode {
		g.inFlightNode[node]++
	}
	return wr
}

// Release returns a reservation and its WorkerRecord to the free list.
func (g *Governor) Release(wr *WorkerRecord) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if wr.BoundNode != AnyNode && int(wr.BoundNode) < len(g.inFlightNode) {
		g.inFlightNode[wr.BoundNode]--
	}
	g.inFlightTotal--
	wr.BoundNode = AnyNode
	wr.Continuation = nil
	g.free = append(g.free, wr)
}

// Repin attempts to move an existing reservation from its current node to
// dest. The destination's cap governs the check, not the source's. On
// success wr.BoundNode is updated and the source's per-node count is
// released; on failure wr is left untouched and Repin returns false.
func (g *Governor) Repin(wr *WorkerRecord, dest NodeID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if dest != AnyNode {
		if int(dest) >= len(g.capNode) || g.inFlightNode[dest] >= g.capNode[dest] {
			return false
		}
	}

	if wr.BoundNode != AnyNode && int(wr.BoundNode) < len(g.inFlightNode) {
		g.inFlightNode[wr.BoundNode]--
	}
	if dest != AnyNode {
		g.inFlightNode[dest]++
	}
	wr.BoundNode = dest
	return true
}
