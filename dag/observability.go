package dag

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/cmdflow/errors"
	"github.com/kbukum/cmdflow/logger"
	"github.com/kbukum/cmdflow/observability"
)

// The wrappers below describe themselves as the startable they wrap, so
// they can be registered under isolated strategies. A worker process runs
// the inner startable without the wrapper.

// WithTracing wraps a Startable with OpenTelemetry span creation.
// Each start creates a span named "{prefix}.{name}".
func WithTracing(s Startable, prefix string) Startable {
	return &tracingStartable{wrapped: wrapped{s}, prefix: prefix}
}

type wrapped struct {
	inner Startable
}

func (w wrapped) Name() string { return w.inner.Name() }

func (w wrapped) Describe() (Descriptor, error) { return Describe(w.inner) }

type tracingStartable struct {
	wrapped
	prefix string
}

func (s *tracingStartable) Start(ctx context.Context) (Result, error) {
	ctx, span := observability.StartSpan(ctx, s.prefix+"."+s.inner.Name(),
		attribute.String(observability.AttrStartable, s.inner.Name()))
	defer span.End()

	result, err := s.inner.Start(ctx)
	observability.SetSpanError(ctx, err)
	return result, err
}

// WithStartableMetrics wraps a Startable with metric recording under the dag name.
func WithStartableMetrics(s Startable, dag string, metrics *observability.Metrics) Startable {
	return &metricsStartable{wrapped: wrapped{s}, dag: dag, metrics: metrics}
}

type metricsStartable struct {
	wrapped
	dag     string
	metrics *observability.Metrics
}

func (s *metricsStartable) Start(ctx context.Context) (Result, error) {
	s.metrics.RecordStartableStart(ctx, s.dag)
	start := time.Now()
	result, err := s.inner.Start(ctx)
	duration := time.Since(start)

	status := StatusCompleted
	if err != nil {
		status = StatusFailed
		s.metrics.RecordError(ctx, string(errors.CodeOf(err)), s.inner.Name())
	}
	s.metrics.RecordStartableEnd(ctx, s.dag, s.inner.Name(), string(status), duration)
	return result, err
}

// WithLogging wraps a Startable with start logging.
// Logs: name, duration, and success/error status.
func WithLogging(s Startable, log *logger.Logger) Startable {
	return &loggingStartable{wrapped: wrapped{s}, log: log}
}

type loggingStartable struct {
	wrapped
	log *logger.Logger
}

func (s *loggingStartable) Start(ctx context.Context) (Result, error) {
	start := time.Now()
	result, err := s.inner.Start(ctx)
	fields := logger.DurationFields(s.inner.Name(), time.Since(start))

	log := s.log.WithContext(ctx)
	if err != nil {
		log.Error("startable failed", logger.MergeWithError(fields, err))
	} else {
		log.Debug("startable completed", fields)
	}
	return result, err
}
