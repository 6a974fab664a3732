package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	numaerrors "github.com/numadecomp/numadecomp/internal/errors"
	"github.com/numadecomp/numadecomp/internal/topology"
	"github.com/numadecomp/numadecomp/pkg/api"
)

func main() {
	fmt.Println("=== numadecomp Examples ===")

	example1_BasicDecomposition()
	example2_ConfiguredChunkSize()
	example3_NumaAwareDecomposition()
	example4_FirstErrorLatching()
	example5_ConcurrentJobsShareGovernor()
	example6_PerformanceComparison()
	example7_HealthCheck()

	fmt.Println("\n=== All Examples Complete ===")
}

// example1_BasicDecomposition runs api.Run over a plain byte range with
// the process default thread cap.
func example1_BasicDecomposition() {
	fmt.Println("--- Example 1: Basic Decomposition ---")

	var processed int64
	err := api.Run(context.Background(), uintptr(0x0), 1_000_000, api.Control{
		MinChunkSize: 4096,
		IterFunc:     api.DefaultIterFunc,
		ProcessFunc: func(start, end api.Cursor, arg any) error {
			atomic.AddInt64(&processed, int64(end.(uintptr)-start.(uintptr)))
			return nil
		},
	})
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	fmt.Printf("processed %d bytes across [0x0, 0xf4240)\n\n", atomic.LoadInt64(&processed))
}

// example2_ConfiguredChunkSize shows min_grain and max_threads shaping
// the number of ProcessFunc calls.
func example2_ConfiguredChunkSize() {
	fmt.Println("--- Example 2: Configured Chunk Size ---")

	var mu sync.Mutex
	var ranges []string

	err := api.Run(context.Background(), uintptr(0x0), 1024, api.Control{
		MinChunkSize: 256,
		MaxThreads:   4,
		IterFunc:     api.DefaultIterFunc,
		ProcessFunc: func(start, end api.Cursor, arg any) error {
			mu.Lock()
			ranges = append(ranges, fmt.Sprintf("(%#x, %#x)", start, end))
			mu.Unlock()
			return nil
		},
	})
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}

	fmt.Printf("%d chunk(s): %v\n\n", len(ranges), ranges)
}

// example3_NumaAwareDecomposition runs RunNuma across the host's
// discovered affinity domains, falling back to one implicit domain on a
// non-NUMA host.
func example3_NumaAwareDecomposition() {
	fmt.Println("--- Example 3: NUMA-Aware Decomposition ---")

	info := topology.Discover()
	fmt.Printf("online CPUs: %d, nodes: %d, NUMA-capable: %v\n", info.OnlineCPUs, info.NodeCount(), info.NUMACapable())

	nodes := make([]api.Node, info.NodeCount())
	for i := range nodes {
		nodes[i] = api.Node{Start: uintptr(i * 0x100000), Remaining: 65536, ID: api.NodeID(i)}
	}

	var total int64
	err := api.RunNuma(context.Background(), nodes, api.Control{
		MinChunkSize: 4096,
		MaxThreads:   8,
		IterFunc:     api.DefaultIterFunc,
		ProcessFunc: func(start, end api.Cursor, arg any) error {
			atomic.AddInt64(&total, int64(end.(uintptr)-start.(uintptr)))
			return nil
		},
	})
	if err != nil {
		log.Fatalf("RunNuma failed: %v", err)
	}

	fmt.Printf("processed %d bytes across %d node(s)\n\n", atomic.LoadInt64(&total), len(nodes))
}

// example4_FirstErrorLatching shows a failing ProcessFunc call surfacing
// as Run's return value, without stopping already-dispatched chunks from
// finishing their own processing.
func example4_FirstErrorLatching() {
	fmt.Println("--- Example 4: First-Error Latching ---")

	boom := fmt.Errorf("record at offset out of range")
	var calls int64

	err := api.Run(context.Background(), uintptr(0x0), 4096, api.Control{
		MinChunkSize: 256,
		MaxThreads:   4,
		IterFunc:     api.DefaultIterFunc,
		ProcessFunc: func(start, end api.Cursor, arg any) error {
			n := atomic.AddInt64(&calls, 1)
			if n == 3 {
				return boom
			}
			return nil
		},
	})

	fmt.Printf("Run returned: %v (after %d call(s))\n", err, atomic.LoadInt64(&calls))
	if numaerrors.IsEngineError(err) {
		engineErr := err.(*numaerrors.EngineError)
		fmt.Printf("component=%s type=%s retryable=%v transient=%v root_cause=%v chain_depth=%d context=%v\n\n",
			engineErr.Component, numaerrors.GetErrorType(err), numaerrors.IsRetryable(err),
			engineErr.IsTransient(), numaerrors.GetRootCause(err), len(numaerrors.GetErrorChain(err)), engineErr.Context)
	}
}

// example5_ConcurrentJobsShareGovernor launches several Run calls
// concurrently through errgroup, demonstrating that the process-wide
// governor bounds their combined worker count rather than each job
// getting its own independent pool.
func example5_ConcurrentJobsShareGovernor() {
	fmt.Println("--- Example 5: Concurrent Jobs Share One Governor ---")

	const jobCount = 6
	var g errgroup.Group

	start := time.Now()
	for i := 0; i < jobCount; i++ {
		g.Go(func() error {
			return api.Run(context.Background(), uintptr(0x0), 200_000, api.Control{
				MinChunkSize: 4096,
				MaxThreads:   4,
				IterFunc:     api.DefaultIterFunc,
				ProcessFunc: func(start, end api.Cursor, arg any) error {
					return nil
				},
			})
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("one of %d concurrent jobs failed: %v", jobCount, err)
	}

	fmt.Printf("%d concurrent jobs completed in %v, sharing one global cap\n\n", jobCount, time.Since(start))
}

// example6_PerformanceComparison compares a single-threaded run against
// a multi-threaded one over the same workload.
func example6_PerformanceComparison() {
	fmt.Println("--- Example 6: Sequential vs Parallel Performance ---")

	const totalSize = 5_000_000
	work := func(_, _ api.Cursor, _ any) error {
		sum := 0
		for i := 0; i < 200; i++ {
			sum += i
		}
		return nil
	}

	start := time.Now()
	if err := api.Run(context.Background(), uintptr(0x0), totalSize, api.Control{
		MinChunkSize: 4096,
		MaxThreads:   1,
		IterFunc:     api.DefaultIterFunc,
		ProcessFunc:  work,
	}); err != nil {
		log.Fatalf("sequential run failed: %v", err)
	}
	seqDuration := time.Since(start)

	start = time.Now()
	if err := api.Run(context.Background(), uintptr(0x0), totalSize, api.Control{
		MinChunkSize: 4096,
		MaxThreads:   8,
		IterFunc:     api.DefaultIterFunc,
		ProcessFunc:  work,
	}); err != nil {
		log.Fatalf("parallel run failed: %v", err)
	}
	parDuration := time.Since(start)

	fmt.Printf("sequential: %v\nparallel:   %v\nspeedup:    %.2fx\n\n", seqDuration, parDuration, float64(seqDuration)/float64(parDuration))
}

// example7_HealthCheck reports the governor's worker-cap utilization and
// the executor's any-pool circuit breaker state, the two checks a
// process supervisor would poll alongside this library.
func example7_HealthCheck() {
	fmt.Println("--- Example 7: Health Check ---")

	report, err := api.Health(context.Background())
	if err != nil {
		log.Fatalf("Health() failed: %v", err)
	}

	fmt.Printf("governor: %s %v\n", report.Governor.Status, report.Governor.Details)
	fmt.Printf("executor: %s %v\n\n", report.Executor.Status, report.Executor.Details)
}
