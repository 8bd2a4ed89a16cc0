package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// RunContext holds observability context for one dag run.
type RunContext struct {
	Dag       string
	Strategy  string
	RunID     string
	StartTime time.Time
	Metrics   *Metrics
}

// NewRunContext creates a new run context.
// If metrics is nil, metric recording is silently skipped.
func NewRunContext(dag, strategy, runID string, metrics *Metrics) *RunContext {
	return &RunContext{
		Dag:       dag,
		Strategy:  strategy,
		RunID:     runID,
		StartTime: time.Now(),
		Metrics:   metrics,
	}
}

type runContextKey struct{}

// WithRunContext stores a RunContext in the context.
func WithRunContext(ctx context.Context, rc *RunContext) context.Context {
	return context.WithValue(ctx, runContextKey{}, rc)
}

// RunContextFromContext retrieves the RunContext from context, or nil.
func RunContextFromContext(ctx context.Context) *RunContext {
	if rc, ok := ctx.Value(runContextKey{}).(*RunContext); ok {
		return rc
	}
	return nil
}

// StartSpanForRun starts the span that covers the whole run.
func (rc *RunContext) StartSpanForRun(ctx context.Context, spanName string) (context.Context, trace.Span) {
	ctx, span := StartSpan(ctx, spanName)
	span.SetAttributes(
		attribute.String(AttrDag, rc.Dag),
		attribute.String(AttrStrategy, rc.Strategy),
		attribute.String(AttrRunID, rc.RunID),
	)
	return WithRunContext(ctx, rc), span
}

// EndRun ends the span and records run metrics.
func (rc *RunContext) EndRun(ctx context.Context, span trace.Span, status string, err error) {
	duration := time.Since(rc.StartTime)

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String(AttrErrorMessage, err.Error()))
	}

	span.SetAttributes(
		attribute.String(AttrStatus, status),
		attribute.Int64(AttrDurationMs, duration.Milliseconds()),
	)
	span.End()

	if rc.Metrics != nil {
		rc.Metrics.RecordRun(ctx, rc.Dag, rc.Strategy, status, duration)
	}
}

// Duration returns the elapsed time since the run started.
func (rc *RunContext) Duration() time.Duration {
	return time.Since(rc.StartTime)
}
