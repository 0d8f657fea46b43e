package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"go.uber.org/zap"
)

// OtelMiddleware records server-side HTTP metrics and a span per request.
type OtelMiddleware struct {
	tracer                    trace.Tracer
	log                       *zap.Logger
	httpRequestCounter        metric.Int64Counter
	httpRequestDuration       metric.Float64Histogram
	httpResponseStatusCounter metric.Int64Counter
	httpRequestSize           metric.Int64Histogram
	httpResponseSize          metric.Int64Histogram
	httpActiveRequests        metric.Int64UpDownCounter
	propagator                propagation.TextMapPropagator
}

func NewOtelMiddleware(meter metric.Meter, tracer trace.Tracer, log *zap.Logger) *OtelMiddleware {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter("fiber-middleware")
	}
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer("fiber-middleware")
	}
	if log == nil {
		log = zap.L()
	}

	httpRequestCounter, _ := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Total number of HTTP request"),
		metric.WithUnit("{request}"),
	)

	httpRequestDuration, _ := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("Duration of HTTP requests"),
		metric.WithUnit("ms"),
	)

	httpResponseStatusCounter, _ := meter.Int64Counter(
		"http.server.response.status",
		metric.WithDescription("HTTP response status codes"),
		metric.WithUnit("{status}"),
	)

	httpRequestSize, _ := meter.Int64Histogram(
		"http.server.request.size",
		metric.WithDescription("Size of HTTP requests"),
		metric.WithUnit("bytes"),
	)

	httpResponseSize, _ := meter.Int64Histogram(
		"http.server.response.size",
		metric.WithDescription("Size of HTTP responses"),
		metric.WithUnit("bytes"),
	)

	httpActiveRequests, _ := meter.Int64UpDownCounter(
		"http.server.active.requests",
		metric.WithDescription("Number of active HTTP requests"),
		metric.WithUnit("{request}"),
	)

	return &OtelMiddleware{
		tracer:                    tracer,
		log:                       log,
		httpRequestCounter:        httpRequestCounter,
		httpRequestDuration:       httpRequestDuration,
		httpResponseStatusCounter: httpResponseStatusCounter,
		httpRequestSize:           httpRequestSize,
		httpResponseSize:          httpResponseSize,
		httpActiveRequests:        httpActiveRequests,
		propagator: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	}
}

func (m *OtelMiddleware) Handle() fiber.Handler {
	return func(c *fiber.Ctx) error {
		headers := propagation.MapCarrier{}
		for key, values := range c.GetReqHeaders() {
			if len(values) > 0 {
				headers[key] = values[0]
			}
		}
		ctx := m.propagator.Extract(c.UserContext(), headers)

		path := c.Path()
		method := c.Method()

		ctx, span := m.tracer.Start(ctx, fmt.Sprintf("%s %s", method, path),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", method),
				attribute.String("http.target", path),
				attribute.String("http.host", c.Hostname()),
				attribute.String("http.user_agent", string(c.Request().Header.UserAgent())),
				attribute.String("http.client_ip", c.IP()),
			),
		)
		defer span.End()

		c.SetUserContext(ctx)

		reqAttrs := metric.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
		)

		reqContentLength := int64(len(c.Body()))
		m.httpRequestSize.Record(ctx, reqContentLength, reqAttrs)
		m.httpActiveRequests.Add(ctx, 1, reqAttrs)
		m.httpRequestCounter.Add(ctx, 1, reqAttrs)

		startTime := time.Now()
		err := c.Next()
		duration := float64(time.Since(startTime).Milliseconds())

		// Errors returned by handlers are rendered by the app's ErrorHandler
		// after this middleware returns, so take the status from the error.
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		// Route templates keep the metric cardinality bounded.
		route := path
		if r := c.Route(); r != nil && r.Path != "" {
			route = r.Path
		}
		resAttrs := metric.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		)

		resContentLength := int64(len(c.Response().Body()))
		m.httpRequestDuration.Record(ctx, duration, resAttrs)
		m.httpResponseStatusCounter.Add(ctx, 1, resAttrs)
		m.httpResponseSize.Record(ctx, resContentLength, resAttrs)
		m.httpActiveRequests.Add(ctx, -1, reqAttrs)

		if status >= 500 {
			span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", status))
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.SetAttributes(attribute.Int("http.status_code", status))

		m.log.Info("HTTP request completed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Float64("duration_ms", duration),
			zap.Int64("request_size", reqContentLength),
			zap.Int64("response_size", resContentLength),
			zap.String("trace_id", span.SpanContext().TraceID().String()),
			zap.String("span_id", span.SpanContext().SpanID().String()),
		)

		return err
	}
}
