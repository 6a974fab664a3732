// Package observability wires metrics, tracing, and lifecycle hooks for
// the decomposer, following the same metricz/tracez/hookz/clockz
// combination the zoobzio-pipz connectors use for their own
// instrumentation.
package observability

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

const (
	JobsStartedTotal    = metricz.Key("decomposer.jobs.started.total")
	JobsCompletedTotal  = metricz.Key("decomposer.jobs.completed.total")
	JobsFailedTotal     = metricz.Key("decomposer.jobs.failed.total")
	WorkersSpawnedTotal = metricz.Key("decomposer.workers.spawned.total")
	MigrationsTotal     = metricz.Key("decomposer.migrations.total")
	ChunksClaimedTotal  = metricz.Key("decomposer.chunks.claimed.total")
	ActiveJobs          = metricz.Key("decomposer.jobs.active")

	JobSpan = tracez.Key("decomposer.job")

	TagNodeCount   = tracez.Tag("decomposer.node_count")
	TagWorkerCount = tracez.Tag("decomposer.worker_count")
	TagTotalSize   = tracez.Tag("decomposer.total_size")
	TagSuccess     = tracez.Tag("decomposer.success")
	TagError       = tracez.Tag("decomposer.error")

	JobStartedEvent   = hookz.Key("decomposer.job.started")
	JobCompletedEvent = hookz.Key("decomposer.job.completed")
	MigrationEvent    = hookz.Key("decomposer.migration")
)

// JobEvent is emitted on job lifecycle transitions.
type JobEvent struct {
	TotalSize uint64
	NodeCount int
	Err       error
	Timestamp time.Time
}

// Observability bundles a job's metrics, tracer, and hooks. A nil
// *Observability is valid everywhere it's accepted — every method is a
// no-op on a nil receiver, so instrumentation stays optional without
// littering callers with nil checks.
type Observability struct {
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[JobEvent]
	clock   clockz.Clock
}

// New builds an Observability instance with all counters registered.
func New() *Observability {
	metrics := metricz.New()
	metrics.Counter(JobsStartedTotal)
	metrics.Counter(JobsCompletedTotal)
	metrics.Counter(JobsFailedTotal)
	metrics.Counter(WorkersSpawnedTotal)
	metrics.Counter(MigrationsTotal)
	metrics.Counter(ChunksClaimedTotal)
	metrics.Gauge(ActiveJobs)

	return &Observability{
		metrics: metrics,
		tracer:  tracez.New(),
		hooks:   hookz.New[JobEvent](),
		clock:   clockz.RealClock,
	}
}

// Metrics returns the underlying registry for external scraping.
func (o *Observability) Metrics() *metricz.Registry {
	if o == nil {
		return nil
	}
	return o.metrics
}

// Tracer returns the underlying tracer.
func (o *Observability) Tracer() *tracez.Tracer {
	if o == nil {
		return nil
	}
	return o.tracer
}

// Close releases the tracer and hooks.
func (o *Observability) Close() error {
	if o == nil {
		return nil
	}
	if o.tracer != nil {
		o.tracer.Close()
	}
	if o.hooks != nil {
		o.hooks.Close()
	}
	return nil
}

// StartJob begins a job span and returns the derived context plus a
// finish func to call with the job's outcome.
func (o *Observability) StartJob(ctx context.Context, totalSize uint64, nodeCount int) (context.Context, func(error)) {
	if o == nil {
		return ctx, func(error) {}
	}

	o.metrics.Counter(JobsStartedTotal).Inc()
	o.metrics.Gauge(ActiveJobs).Set(o.metrics.Gauge(ActiveJobs).Value() + 1)

	spanCtx, span := o.tracer.StartSpan(ctx, JobSpan)
	span.SetTag(TagTotalSize, uintToString(totalSize))
	span.SetTag(TagNodeCount, intToString(nodeCount))

	_ = o.hooks.Emit(ctx, JobStartedEvent, JobEvent{
		TotalSize: totalSize,
		NodeCount: nodeCount,
		Timestamp: o.clock.Now(),
	})

	return spanCtx, func(err error) {
		if err != nil {
			span.SetTag(TagSuccess, "false")
			span.SetTag(TagError, err.Error())
			o.metrics.Counter(JobsFailedTotal).Inc()
		} else {
			span.SetTag(TagSuccess, "true")
			o.metrics.Counter(JobsCompletedTotal).Inc()
		}
		span.Finish()
		o.metrics.Gauge(ActiveJobs).Set(o.metrics.Gauge(ActiveJobs).Value() - 1)

		_ = o.hooks.Emit(ctx, JobCompletedEvent, JobEvent{
			TotalSize: totalSize,
			NodeCount: nodeCount,
			Err:       err,
			Timestamp: o.clock.Now(),
		})
	}
}

// WorkerSpawned records one additional worker dispatched beyond the
// caller's own goroutine.
func (o *Observability) WorkerSpawned() {
	if o == nil {
		return
	}
	o.metrics.Counter(WorkersSpawnedTotal).Inc()
}

// ChunkClaimed records one chunk claim, regardless of outcome.
func (o *Observability) ChunkClaimed() {
	if o == nil {
		return
	}
	o.metrics.Counter(ChunksClaimedTotal).Inc()
}

// Migrated records one worker re-dispatch to a different node.
func (o *Observability) Migrated(ctx context.Context) {
	if o == nil {
		return
	}
	o.metrics.Counter(MigrationsTotal).Inc()
	_ = o.hooks.Emit(ctx, MigrationEvent, JobEvent{Timestamp: o.clock.Now()})
}

// OnJobCompleted registers a handler invoked asynchronously whenever a
// job finishes, successfully or not.
func (o *Observability) OnJobCompleted(handler func(context.Context, JobEvent) error) error {
	if o == nil {
		return nil
	}
	_, err := o.hooks.Hook(JobCompletedEvent, handler)
	return err
}

func uintToString(v uint64) string {
	return intToString(int(v))
}

func intToString(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
