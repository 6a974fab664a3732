// Package decomposer implements the Job and Worker Loop: it chunks one
// CPU-bound computation across goroutines on a NUMA-modeled host,
// enforcing caps from internal/governor and dispatching through
// internal/executor, while preserving the claim-under-lock /
// process-without-lock discipline that keeps ProcessFunc unserialized.
package decomposer

import (
	"github.com/numadecomp/numadecomp/internal/governor"
)

// NodeID identifies a NUMA affinity domain; AnyNode means no preference.
type NodeID = governor.NodeID

// AnyNode is the sentinel meaning "no node preference".
const AnyNode = governor.AnyNode

// Cursor is an opaque position within the caller's data. The decomposer
// never inspects it, only threads it through IterFunc.
type Cursor interface{}

// Node describes one affinity domain's share of the total work.
type Node struct {
	Start     Cursor
	Remaining uint64
	ID        NodeID
}
