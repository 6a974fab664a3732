package logging

import "context"

// Context key types for type-safe context values
type contextKey int

const (
	jobIDKey contextKey = iota
	correlationIDKey
)

// WithJobID tags a context with the decomposition job it belongs to, so
// every log line emitted through a *Context logging call with that
// context (or one derived from it) carries the same identifier.
//
// Example:
//
//	ctx := logging.WithJobID(context.Background(), jobID)
//	logger.InfoContext(ctx, "job started")  // Will include job_id field
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, jobIDKey, jobID)
}

// GetJobID retrieves the job ID from the context.
// Returns empty string if no job ID is set.
func GetJobID(ctx context.Context) string {
	if jobID, ok := ctx.Value(jobIDKey).(string); ok {
		return jobID
	}
	return ""
}

// WithCorrelationID tags a context with an identifier spanning several
// related Run/RunNuma calls — set by the caller before the first call so
// all of them, and every job_id generated underneath, can be traced back
// to one originating request.
//
// Example:
//
//	ctx := logging.WithCorrelationID(context.Background(), "corr-xyz-789")
//	logger.InfoContext(ctx, "processing started")  // Will include correlation_id field
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}

// GetCorrelationID retrieves the correlation ID from the context.
// Returns empty string if no correlation ID is set.
func GetCorrelationID(ctx context.Context) string {
	if correlationID, ok := ctx.Value(correlationIDKey).(string); ok {
		return correlationID
	}
	return ""
}
