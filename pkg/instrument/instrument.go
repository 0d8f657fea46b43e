// Package instrument bundles the span, counters and duration histogram that
// every repository, service and handler operation records.
package instrument

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Instruments struct {
	tracer     trace.Tracer
	duration   metric.Float64Histogram
	count      metric.Int64Counter
	errorCount metric.Int64Counter
	inFlight   metric.Int64UpDownCounter
	expected   func(error) bool
}

// New registers <prefix>.operation.duration, <prefix>.operation.count,
// <prefix>.error.count and <prefix>.operation.active. Errors matched by
// expected end the span successfully and are not counted.
func New(meter metric.Meter, tracer trace.Tracer, prefix string, expected func(error) bool) *Instruments {
	duration, _ := meter.Float64Histogram(
		prefix+".operation.duration",
		metric.WithDescription("Duration of "+prefix+" operations"),
		metric.WithUnit("ms"),
	)

	count, _ := meter.Int64Counter(
		prefix+".operation.count",
		metric.WithDescription("Number of "+prefix+" operations"),
		metric.WithUnit("{operation}"),
	)

	errorCount, _ := meter.Int64Counter(
		prefix+".error.count",
		metric.WithDescription("Number of "+prefix+" errors"),
		metric.WithUnit("{error}"),
	)

	inFlight, _ := meter.Int64UpDownCounter(
		prefix+".operation.active",
		metric.WithDescription("Number of in-flight "+prefix+" operations"),
		metric.WithUnit("{operation}"),
	)

	if expected == nil {
		expected = func(error) bool { return false }
	}

	return &Instruments{
		tracer:     tracer,
		duration:   duration,
		count:      count,
		errorCount: errorCount,
		inFlight:   inFlight,
		expected:   expected,
	}
}

// Op is one traced operation.
type Op struct {
	ins   *Instruments
	ctx   context.Context
	span  trace.Span
	attrs metric.MeasurementOption
	start time.Time
}

func (i *Instruments) Begin(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, *Op) {
	ctx, span := i.tracer.Start(ctx, spanName)
	span.SetAttributes(attrs...)

	if len(attrs) == 0 {
		attrs = []attribute.KeyValue{attribute.String("operation", spanName)}
	}
	set := metric.WithAttributes(attrs...)
	i.count.Add(ctx, 1, set)
	i.inFlight.Add(ctx, 1, set)

	return ctx, &Op{ins: i, ctx: ctx, span: span, attrs: set, start: time.Now()}
}

// BeginQuery is Begin with the db.table and db.operation attributes set.
func (i *Instruments) BeginQuery(ctx context.Context, spanName, table, operation string) (context.Context, *Op) {
	return i.Begin(ctx, spanName,
		attribute.String("db.table", table),
		attribute.String("db.operation", operation),
	)
}

func (o *Op) Span() trace.Span { return o.span }

// Fields appends the trace and span ids so log lines join up with traces.
func (o *Op) Fields(fields ...zap.Field) []zap.Field {
	sc := o.span.SpanContext()
	return append(fields,
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

func (o *Op) End(err error) {
	status := "success"
	switch {
	case err == nil:
		o.span.SetStatus(codes.Ok, "")
	case o.ins.expected(err):
		status = "expected_error"
		o.span.SetStatus(codes.Ok, err.Error())
	default:
		status = "error"
		o.span.SetStatus(codes.Error, err.Error())
		o.span.RecordError(err)
		o.ins.errorCount.Add(o.ctx, 1, o.attrs)
	}

	o.ins.duration.Record(o.ctx, float64(time.Since(o.start).Milliseconds()),
		o.attrs, metric.WithAttributes(attribute.String("status", status)))
	o.ins.inFlight.Add(o.ctx, -1, o.attrs)
	o.span.End()
}
