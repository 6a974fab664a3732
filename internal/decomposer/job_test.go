package decomposer

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/numadecomp/numadecomp/internal/executor"
	"github.com/numadecomp/numadecomp/internal/governor"
	"github.com/numadecomp/numadecomp/internal/observability"
	"github.com/numadecomp/numadecomp/internal/topology"
)

func intIterFunc(cursor Cursor, size uint64) Cursor {
	return cursor.(int) + int(size)
}

type span struct{ start, end int }

func newTestRig(onlineCPUs int, cpusPerNode []int) (*governor.Governor, *executor.Executor) {
	info := topology.Info{OnlineCPUs: onlineCPUs, CPUsPerNode: cpusPerNode}
	gov := governor.New(info, 4, 5)
	exec := executor.New(gov.CapTotal())
	return gov, exec
}

func TestRunCoversEveryUnitExactlyOnce(t *testing.T) {
	gov, exec := newTestRig(8, []int{8})

	var mu sync.Mutex
	var spans []span

	process := func(start, end Cursor, arg any) error {
		mu.Lock()
		spans = append(spans, span{start.(int), end.(int)})
		mu.Unlock()
		return nil
	}

	nodes := []Node{{Start: 0, Remaining: 1000, ID: AnyNode}}
	err := Run(context.Background(), nodes, Params{
		MinChunkSize: 32,
		MaxThreads:   4,
		IterFunc:     intIterFunc,
		ProcessFunc:  process,
	}, gov, exec, 8, false, observability.New())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	covered := 0
	for i, s := range spans {
		if s.start != covered {
			t.Fatalf("gap or overlap before span %d: want start %d, got %d", i, covered, s.start)
		}
		if s.end <= s.start {
			t.Fatalf("span %d is empty or inverted: %+v", i, s)
		}
		covered = s.end
	}
	if covered != 1000 {
		t.Errorf("total covered = %d, want 1000", covered)
	}
}

func TestRunLatchesFirstErrorOnly(t *testing.T) {
	gov, exec := newTestRig(8, []int{8})

	sentinel := errors.New("boom")
	var mu sync.Mutex
	processed := 0

	process := func(start, end Cursor, arg any) error {
		mu.Lock()
		defer mu.Unlock()
		processed++
		if processed == 1 {
			return sentinel
		}
		return nil
	}

	nodes := []Node{{Start: 0, Remaining: 1000, ID: AnyNode}}
	err := Run(context.Background(), nodes, Params{
		MinChunkSize: 32,
		MaxThreads:   4,
		IterFunc:     intIterFunc,
		ProcessFunc:  process,
	}, gov, exec, 8, false, observability.New())

	if !errors.Is(err, sentinel) {
		t.Fatalf("Run() error = %v, want %v", err, sentinel)
	}
}

func TestRunZeroTotalReturnsImmediately(t *testing.T) {
	gov, exec := newTestRig(8, []int{8})
	called := false

	nodes := []Node{{Start: 0, Remaining: 0, ID: AnyNode}}
	err := Run(context.Background(), nodes, Params{
		MinChunkSize: 32,
		MaxThreads:   4,
		IterFunc:     intIterFunc,
		ProcessFunc: func(start, end Cursor, arg any) error {
			called = true
			return nil
		},
	}, gov, exec, 8, false, observability.New())

	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if called {
		t.Error("ProcessFunc should never be invoked for zero total work")
	}
}

func TestRunSetupPhaseCancellation(t *testing.T) {
	gov, exec := newTestRig(8, []int{8})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	nodes := []Node{{Start: 0, Remaining: 1000, ID: AnyNode}}
	err := Run(ctx, nodes, Params{
		MinChunkSize: 32,
		MaxThreads:   4,
		IterFunc:     intIterFunc,
		ProcessFunc: func(start, end Cursor, arg any) error {
			return nil
		},
	}, gov, exec, 8, false, observability.New())

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunMultiNodeCoversBothNodes(t *testing.T) {
	gov, exec := newTestRig(16, []int{8, 8})

	var mu sync.Mutex
	byNode := map[int]int{0: 0, 1: 0}

	process := func(start, end Cursor, arg any) error {
		mu.Lock()
		defer mu.Unlock()
		s, e := start.(int), end.(int)
		if s >= 0 && e <= 1000 {
			byNode[0] += e - s
		} else {
			byNode[1] += e - s
		}
		return nil
	}

	nodes := []Node{
		{Start: 0, Remaining: 1000, ID: governor.NodeID(0)},
		{Start: 2000, Remaining: 1000, ID: governor.NodeID(1)},
	}
	err := Run(context.Background(), nodes, Params{
		MinChunkSize: 32,
		MaxThreads:   8,
		IterFunc:     intIterFunc,
		ProcessFunc:  process,
	}, gov, exec, 16, true, observability.New())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if byNode[0]+byNode[1] != 2000 {
		t.Errorf("total processed = %d, want 2000 (byNode=%v)", byNode[0]+byNode[1], byNode)
	}
}

func TestRunBoundedByMaxThreads(t *testing.T) {
	gov, exec := newTestRig(64, []int{64})

	var mu sync.Mutex
	concurrent := 0
	maxConcurrent := 0
	gate := make(chan struct{})
	var once sync.Once

	process := func(start, end Cursor, arg any) error {
		mu.Lock()
		concurrent++
		if concurrent > maxConcurrent {
			maxConcurrent = concurrent
		}
		mu.Unlock()

		once.Do(func() { close(gate) })
		<-gate

		mu.Lock()
		concurrent--
		mu.Unlock()
		return nil
	}

	nodes := []Node{{Start: 0, Remaining: 256, ID: AnyNode}}
	err := Run(context.Background(), nodes, Params{
		MinChunkSize: 1,
		MaxThreads:   3,
		IterFunc:     intIterFunc,
		ProcessFunc:  process,
	}, gov, exec, 64, false, observability.New())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if maxConcurrent > 3 {
		t.Errorf("observed %d concurrent workers, want <= 3 (MaxThreads)", maxConcurrent)
	}
}
