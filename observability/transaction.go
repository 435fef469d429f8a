package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TransactionTrace pairs a transaction's span with the metrics it reports
// to. A nil *TransactionTrace is valid and records nothing.
type TransactionTrace struct {
	ctx     context.Context
	span    trace.Span
	metrics *TransactionMetrics
	start   time.Time
	active  bool
	ended   bool
}

// StartTransaction opens a span for a transaction and counts the dispatch.
// live reports whether the transaction entered the active list.
func StartTransaction(ctx context.Context, metrics *TransactionMetrics, id, url, host string, start time.Time, live bool) *TransactionTrace {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := StartSpan(ctx, SpanTransaction,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithTimestamp(start),
		trace.WithAttributes(
			attribute.String(AttrTransactionID, id),
			attribute.String(AttrURL, url),
			attribute.String(AttrHost, host),
		),
	)
	metrics.RecordDispatch(ctx, live)
	return &TransactionTrace{ctx: ctx, span: span, metrics: metrics, start: start, active: live}
}

// Context returns the context carrying the transaction span.
func (tt *TransactionTrace) Context() context.Context {
	if tt == nil {
		return context.Background()
	}
	return tt.ctx
}

// Complete records the outcome and ends the span.
func (tt *TransactionTrace) Complete(outcome int, statusLine string, at time.Time, err error) {
	if tt == nil || tt.ended {
		return
	}
	tt.ended = true
	elapsed := at.Sub(tt.start)
	tt.span.SetAttributes(
		attribute.Int(AttrOutcome, outcome),
		attribute.Int64(AttrDurationMs, elapsed.Milliseconds()),
	)
	if statusLine != "" {
		tt.span.SetAttributes(attribute.String(AttrStatusLine, statusLine))
	}
	if err != nil {
		tt.span.RecordError(err)
	}
	if outcome >= 500 {
		tt.span.SetStatus(codes.Error, OutcomeClass(outcome))
	}
	tt.span.End(trace.WithTimestamp(at))

	tt.metrics.RecordCompletion(tt.ctx, outcome, elapsed, tt.active)
	tt.active = false
}

// Abandon ends the span of a transaction closed without an outcome. It is
// a no-op once Complete has run.
func (tt *TransactionTrace) Abandon(at time.Time) {
	if tt == nil || tt.ended {
		return
	}
	tt.ended = true
	if tt.active {
		tt.metrics.RecordAbandoned(tt.ctx)
		tt.active = false
	}
	tt.span.SetAttributes(attribute.Bool("abandoned", true))
	tt.span.End(trace.WithTimestamp(at))
}
