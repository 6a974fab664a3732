package governor

import (
	"testing"

	"github.com/numadecomp/numadecomp/internal/topology"
)

func newTestGovernor(onlineCPUs int, cpusPerNode []int) *Governor {
	return New(topology.Info{OnlineCPUs: onlineCPUs, CPUsPerNode: cpusPerNode}, 4, 5)
}

func TestNewAppliesCPUFraction(t *testing.T) {
	g := newTestGovernor(10, []int{5, 5})

	if g.CapTotal() != 8 {
		t.Errorf("CapTotal() = %d, want 8", g.CapTotal())
	}
	if g.CapNode(0) != 4 || g.CapNode(1) != 4 {
		t.Errorf("CapNode = %d/%d, want 4/4", g.CapNode(0), g.CapNode(1))
	}
}

func TestSingleCPUDisablesGovernor(t *testing.T) {
	g := newTestGovernor(1, []int{1})
	if !g.Disabled() {
		t.Fatal("single-CPU governor should be disabled")
	}
	if wr := g.TryReserve(AnyNode); wr != nil {
		t.Error("disabled governor should refuse all reservations")
	}
}

func TestTryReserveRespectsGlobalCap(t *testing.T) {
	g := newTestGovernor(5, []int{5})
	if g.CapTotal() != 4 {
		t.Fatalf("expected cap 4, got %d", g.CapTotal())
	}

	var reserved []*WorkerRecord
	for i := 0; i < 4; i++ {
		wr := g.TryReserve(AnyNode)
		if wr == nil {
			t.Fatalf("reservation %d should succeed under cap", i)
		}
		reserved = append(reserved, wr)
	}

	if wr := g.TryReserve(AnyNode); wr != nil {
		t.Error("reservation beyond global cap should fail")
	}

	g.Release(reserved[0])
	if wr := g.TryReserve(AnyNode); wr == nil {
		t.Error("reservation should succeed again after a release")
	}
}

func TestTryReserveRespectsNodeCap(t *testing.T) {
	g := newTestGovernor(20, []int{5, 15})
	// node 0 cap = 4
	for i := 0; i < 4; i++ {
		if wr := g.TryReserve(NodeID(0)); wr == nil {
			t.Fatalf("node reservation %d should succeed under node cap", i)
		}
	}
	if wr := g.TryReserve(NodeID(0)); wr != nil {
		t.Error("reservation beyond node cap should fail even though global cap has room")
	}
	// node 1 still has room
	if wr := g.TryReserve(NodeID(1)); wr == nil {
		t.Error("node 1 reservation should succeed, its cap is independent")
	}
}

func TestReleaseReturnsRecordToFreeList(t *testing.T) {
	g := newTestGovernor(5, []int{5})
	before := len(g.free)

	wr := g.TryReserve(AnyNode)
	if wr == nil {
		t.Fatal("reservation should succeed")
	}
	if len(g.free) != before-1 {
		t.Fatalf("free list should shrink by one, got %d want %d", len(g.free), before-1)
	}

	g.Release(wr)
	if len(g.free) != before {
		t.Errorf("free list should return to %d entries, got %d", before, len(g.free))
	}
}

func TestRepinMovesReservationToDestinationCap(t *testing.T) {
	g := newTestGovernor(20, []int{5, 5})
	wr := g.TryReserve(NodeID(0))
	if wr == nil {
		t.Fatal("initial reservation should succeed")
	}

	if !g.Repin(wr, NodeID(1)) {
		t.Fatal("repin to a node with room should succeed")
	}
	if wr.BoundNode != NodeID(1) {
		t.Errorf("BoundNode = %d, want 1", wr.BoundNode)
	}
	if g.inFlightNode[0] != 0 {
		t.Errorf("source node count should be released, got %d", g.inFlightNode[0])
	}
	if g.inFlightNode[1] != 1 {
		t.Errorf("destination node count should be incremented, got %d", g.inFlightNode[1])
	}
}

func TestRepinFailsWhenDestinationSaturated(t *testing.T) {
	g := newTestGovernor(20, []int{15, 5})
	wr := g.TryReserve(NodeID(0))
	if wr == nil {
		t.Fatal("initial reservation should succeed")
	}

	// Saturate node 1 (cap 4).
	var fillers []*WorkerRecord
	for i := 0; i < 4; i++ {
		f := g.TryReserve(NodeID(1))
		if f == nil {
			t.Fatalf("filler reservation %d should succeed", i)
		}
		fillers = append(fillers, f)
	}

	if g.Repin(wr, NodeID(1)) {
		t.Error("repin into a saturated destination should fail")
	}
	if wr.BoundNode != NodeID(0) {
		t.Error("failed repin must leave the reservation bound to its original node")
	}

	for _, f := range fillers {
		g.Release(f)
	}
}
