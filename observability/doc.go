// Package observability provides OpenTelemetry tracing and metrics for the
// transaction manager.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("httpsctl"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, &meterCfg)
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewTransactionMetrics(observability.Meter("httpsmgr"))
//
// Each transaction gets one span (https.transaction) opened at dispatch and
// ended when its outcome is known:
//
//	tt := observability.StartTransaction(ctx, metrics, id, url, host, created, true)
//	tt.Complete(200, "HTTP/1.1 200 OK", finished, nil)
package observability
