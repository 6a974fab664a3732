// Package topology reports the host's online CPU count and NUMA node
// layout so the decomposer can size its worker count and per-node
// capacity without the caller describing the machine by hand.
package topology

import "sync"

// Info describes the subset of host topology the decomposer cares about.
type Info struct {
	// OnlineCPUs is the number of CPUs available to this process.
	OnlineCPUs int
	// CPUsPerNode is indexed by position in the host's online node list,
	// which matches the NodeID when node IDs run contiguously from 0;
	// len(CPUsPerNode) is the node count.
	// A single-entry slice means the host (or this build) is not
	// NUMA-capable and everything is modeled as one node.
	CPUsPerNode []int
}

// NodeCount returns the number of affinity domains reported.
func (i Info) NodeCount() int {
	return len(i.CPUsPerNode)
}

// NUMACapable reports whether the host exposes more than one node.
func (i Info) NUMACapable() bool {
	return i.NodeCount() > 1
}

var (
	once   sync.Once
	cached Info
)

// Discover returns the process-wide topology snapshot, probing the host
// exactly once. The result is cached for the life of the process —
// hot-plugging CPUs mid-run is not a case this module handles.
func Discover() Info {
	once.Do(func() {
		cached = discover()
	})
	return cached
}
