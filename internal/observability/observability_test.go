package observability

import (
	"context"
	"errors"
	"testing"
)

func TestNewRegistersCounters(t *testing.T) {
	obs := New()
	defer obs.Close()

	if obs.Metrics().Counter(JobsStartedTotal).Value() != 0 {
		t.Errorf("JobsStartedTotal initial value = %v, want 0", obs.Metrics().Counter(JobsStartedTotal).Value())
	}
}

func TestStartJobRecordsStartAndSuccess(t *testing.T) {
	obs := New()
	defer obs.Close()

	_, finish := obs.StartJob(context.Background(), 1000, 2)
	if got := obs.Metrics().Counter(JobsStartedTotal).Value(); got != 1 {
		t.Errorf("JobsStartedTotal = %d, want 1", got)
	}

	finish(nil)
	if got := obs.Metrics().Counter(JobsCompletedTotal).Value(); got != 1 {
		t.Errorf("JobsCompletedTotal = %d, want 1", got)
	}
	if got := obs.Metrics().Counter(JobsFailedTotal).Value(); got != 0 {
		t.Errorf("JobsFailedTotal = %d, want 0", got)
	}
}

func TestStartJobRecordsFailure(t *testing.T) {
	obs := New()
	defer obs.Close()

	_, finish := obs.StartJob(context.Background(), 1000, 1)
	finish(errors.New("boom"))

	if got := obs.Metrics().Counter(JobsFailedTotal).Value(); got != 1 {
		t.Errorf("JobsFailedTotal = %d, want 1", got)
	}
	if got := obs.Metrics().Counter(JobsCompletedTotal).Value(); got != 0 {
		t.Errorf("JobsCompletedTotal = %d, want 0", got)
	}
}

func TestWorkerSpawnedAndChunkClaimedIncrement(t *testing.T) {
	obs := New()
	defer obs.Close()

	obs.WorkerSpawned()
	obs.WorkerSpawned()
	obs.ChunkClaimed()

	if got := obs.Metrics().Counter(WorkersSpawnedTotal).Value(); got != 2 {
		t.Errorf("WorkersSpawnedTotal = %d, want 2", got)
	}
	if got := obs.Metrics().Counter(ChunksClaimedTotal).Value(); got != 1 {
		t.Errorf("ChunksClaimedTotal = %d, want 1", got)
	}
}

func TestMigratedIncrementsAndJobCompletedHookFires(t *testing.T) {
	obs := New()
	defer obs.Close()

	received := make(chan JobEvent, 1)
	if err := obs.OnJobCompleted(func(_ context.Context, e JobEvent) error {
		received <- e
		return nil
	}); err != nil {
		t.Fatalf("OnJobCompleted() error = %v", err)
	}

	obs.Migrated(context.Background())
	if got := obs.Metrics().Counter(MigrationsTotal).Value(); got != 1 {
		t.Errorf("MigrationsTotal = %d, want 1", got)
	}

	_, finish := obs.StartJob(context.Background(), 10, 1)
	finish(nil)

	select {
	case e := <-received:
		if e.Err != nil {
			t.Errorf("completed event Err = %v, want nil", e.Err)
		}
	default:
		t.Error("OnJobCompleted handler was never invoked")
	}
}

func TestNilObservabilityIsNoOp(t *testing.T) {
	var obs *Observability

	_, finish := obs.StartJob(context.Background(), 10, 1)
	finish(errors.New("boom"))
	obs.WorkerSpawned()
	obs.ChunkClaimed()
	obs.Migrated(context.Background())
	if err := obs.OnJobCompleted(func(context.Context, JobEvent) error { return nil }); err != nil {
		t.Errorf("OnJobCompleted() on nil Observability error = %v, want nil", err)
	}
	if err := obs.Close(); err != nil {
		t.Errorf("Close() on nil Observability error = %v, want nil", err)
	}
}
