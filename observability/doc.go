// Package observability provides OpenTelemetry tracing and metrics for dag
// runs.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, &cfg)
//	defer tp.Shutdown(ctx)
//
//	ctx, span := observability.StartSpan(ctx, "dag.release.start")
//	defer span.End()
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &meterCfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter("cmdflow"))
//	metrics.RecordStartableEnd(ctx, "release", "build", "completed", duration)
//
// Runs:
//
//	rc := observability.NewRunContext("release", "threadpool", runID, metrics)
//	ctx, span := rc.StartSpanForRun(ctx, "dag.release.start")
//	defer rc.EndRun(ctx, span, "completed", nil)
package observability
