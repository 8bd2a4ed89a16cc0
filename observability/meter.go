package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/cmdflow/logger"
)

// MeterConfig configures metric export.
type MeterConfig struct {
	Exporter
	// Interval is how often metrics are pushed. Zero uses the SDK default.
	Interval time.Duration
}

// InitMeter installs a global meter provider pushing over OTLP/HTTP.
// Shut it down before exit so the final run is exported.
func InitMeter(ctx context.Context, c *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(c.Endpoint)}
	if c.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	res, err := c.resource()
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if c.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(c.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("metrics enabled", logger.Fields(
		"endpoint", c.Endpoint,
		"interval", c.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metrics holds the instruments recorded while dags run.
type Metrics struct {
	runTotal          metric.Int64Counter
	runDuration       metric.Float64Histogram
	startableTotal    metric.Int64Counter
	startableDuration metric.Float64Histogram
	startableActive   metric.Int64UpDownCounter
	errorTotal        metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	runTotal, err := meter.Int64Counter("dag.run.total",
		metric.WithDescription("Total number of dag runs"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dag.run.total counter: %w", err)
	}

	runDuration, err := meter.Float64Histogram("dag.run.duration",
		metric.WithDescription("Duration of dag runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dag.run.duration histogram: %w", err)
	}

	startableTotal, err := meter.Int64Counter("dag.startable.total",
		metric.WithDescription("Total number of finished startables by status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dag.startable.total counter: %w", err)
	}

	startableDuration, err := meter.Float64Histogram("dag.startable.duration",
		metric.WithDescription("Duration of startables in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dag.startable.duration histogram: %w", err)
	}

	startableActive, err := meter.Int64UpDownCounter("dag.startable.active",
		metric.WithDescription("Number of currently running startables"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dag.startable.active gauge: %w", err)
	}

	errorTotal, err := meter.Int64Counter("error.total",
		metric.WithDescription("Total errors by code and component"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating error.total counter: %w", err)
	}

	return &Metrics{
		runTotal:          runTotal,
		runDuration:       runDuration,
		startableTotal:    startableTotal,
		startableDuration: startableDuration,
		startableActive:   startableActive,
		errorTotal:        errorTotal,
	}, nil
}

// RecordStartableStart increments the running startable count.
func (m *Metrics) RecordStartableStart(ctx context.Context, dag string) {
	m.startableActive.Add(ctx, 1, metric.WithAttributes(attribute.String("dag", dag)))
}

// RecordStartableEnd decrements running startables and records the finished one.
func (m *Metrics) RecordStartableEnd(ctx context.Context, dag, startable, status string, duration time.Duration) {
	m.startableActive.Add(ctx, -1, metric.WithAttributes(attribute.String("dag", dag)))
	m.startableTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dag", dag),
		attribute.String("startable", startable),
		attribute.String("status", status),
	))
	m.startableDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("dag", dag),
		attribute.String("startable", startable),
	))
}

// RecordRun records a finished dag run.
func (m *Metrics) RecordRun(ctx context.Context, dag, strategy, status string, duration time.Duration) {
	m.runTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("dag", dag),
		attribute.String("strategy", strategy),
		attribute.String("status", status),
	))
	m.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("dag", dag),
		attribute.String("strategy", strategy),
	))
}

// RecordError records an error by code and component.
func (m *Metrics) RecordError(ctx context.Context, code, component string) {
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("code", code),
		attribute.String("component", component),
	))
}
