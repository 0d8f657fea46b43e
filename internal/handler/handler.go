package handler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/middleware"
	"github.com/greenfina/greenfina/pkg/common"
	"github.com/greenfina/greenfina/pkg/loanterms"
	"github.com/greenfina/greenfina/pkg/policy"
	"github.com/greenfina/greenfina/pkg/rotation"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Recorder holds the API instruments every handler reports to.
type Recorder struct {
	Validate *validator.Validate

	tracer          trace.Tracer
	log             *zap.Logger
	requestCount    metric.Int64Counter
	requestDuration metric.Float64Histogram
	errorCount      metric.Int64Counter
	responseSize    metric.Int64Histogram
}

func NewRecorder(meter metric.Meter, tracer trace.Tracer, log *zap.Logger) *Recorder {
	requestCount, err := meter.Int64Counter(
		"api.request.count",
		metric.WithDescription("Number of API requests received"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		zap.L().Fatal("Failed to create request count metric", zap.Error(err))
	}

	requestDuration, err := meter.Float64Histogram(
		"api.request.duration",
		metric.WithDescription("Duration of API requests"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		zap.L().Fatal("Failed to create request duration metric", zap.Error(err))
	}

	errorCount, err := meter.Int64Counter(
		"api.error.count",
		metric.WithDescription("Number of API errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		zap.L().Fatal("Failed to create error count metric", zap.Error(err))
	}

	responseSize, err := meter.Int64Histogram(
		"api.response.size",
		metric.WithDescription("Size of API responses in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		zap.L().Fatal("Failed to create response size metric", zap.Error(err))
	}

	return &Recorder{
		Validate:        validator.New(validator.WithRequiredStructEnabled()),
		tracer:          tracer,
		log:             log,
		requestCount:    requestCount,
		requestDuration: requestDuration,
		errorCount:      errorCount,
		responseSize:    responseSize,
	}
}

// Request is the observability state of one handler invocation.
type Request struct {
	ctx   context.Context
	r     *Recorder
	c     *fiber.Ctx
	span  trace.Span
	start time.Time
}

// Begin opens the handler span and counts the request. Callers must defer
// End on the returned request.
func (r *Recorder) Begin(c *fiber.Ctx, name string) (context.Context, *Request) {
	ctx, span := r.tracer.Start(c.UserContext(), "handler."+name)

	span.SetAttributes(
		attribute.String("http.method", c.Method()),
		attribute.String("http.route", c.Path()),
		attribute.String("http.user_agent", string(c.Request().Header.UserAgent())),
		attribute.String("http.client_ip", c.IP()),
	)

	r.log.Debug("Received request",
		zap.String("handler", name),
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.String("client_ip", c.IP()),
		zap.String("trace_id", span.SpanContext().TraceID().String()),
	)

	r.requestCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", c.Path()),
		attribute.String("method", c.Method()),
	))

	return ctx, &Request{ctx: ctx, r: r, c: c, span: span, start: time.Now()}
}

func (q *Request) End() { q.span.End() }

func (q *Request) Span() trace.Span { return q.span }

func (q *Request) duration(ctx context.Context, statusCode int) float64 {
	duration := float64(time.Since(q.start).Nanoseconds()) / 1e6
	q.r.requestDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("endpoint", q.c.Path()),
		attribute.String("method", q.c.Method()),
		attribute.Int("status_code", statusCode),
	))
	return duration
}

// Error records a failed request and writes {"error": message}.
func (q *Request) Error(err error, statusCode int, errorType, message string, fields ...zap.Field) error {
	return q.errorWith(err, statusCode, errorType, message, nil, fields...)
}

func (q *Request) errorWith(err error, statusCode int, errorType, message string, extra fiber.Map, fields ...zap.Field) error {
	ctx := q.ctx

	q.r.errorCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("endpoint", q.c.Path()),
		attribute.String("method", q.c.Method()),
		attribute.String("error_type", errorType),
		attribute.Int("status_code", statusCode),
	))
	duration := q.duration(ctx, statusCode)

	q.span.SetAttributes(
		attribute.String("error.type", errorType),
		attribute.String("error.message", err.Error()),
		attribute.Int("http.status_code", statusCode),
	)
	q.span.RecordError(err)

	logFields := append([]zap.Field{
		zap.String("trace_id", q.span.SpanContext().TraceID().String()),
		zap.String("span_id", q.span.SpanContext().SpanID().String()),
		zap.Int("status_code", statusCode),
		zap.String("error_type", errorType),
		zap.Float64("duration_ms", duration),
		zap.Error(err),
	}, fields...)

	if statusCode >= fiber.StatusInternalServerError || errorType == "ambiguous_payee" {
		q.r.log.Error(message, logFields...)
	} else {
		q.r.log.Warn(message, logFields...)
	}

	body := fiber.Map{"error": message}
	for k, v := range extra {
		body[k] = v
	}
	return q.c.Status(statusCode).JSON(body)
}

// Fail maps a service error onto its HTTP response.
func (q *Request) Fail(err error, fields ...zap.Field) error {
	statusCode, errorType, message, extra := Classify(err)
	return q.errorWith(err, statusCode, errorType, message, extra, fields...)
}

// Success records a completed request and writes data as JSON.
func (q *Request) Success(statusCode int, data any, fields ...zap.Field) error {
	ctx := q.ctx
	duration := q.duration(ctx, statusCode)

	q.span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Float64("request.duration_ms", duration),
	)

	logFields := append([]zap.Field{
		zap.String("trace_id", q.span.SpanContext().TraceID().String()),
		zap.String("span_id", q.span.SpanContext().SpanID().String()),
		zap.Int("status_code", statusCode),
		zap.Float64("duration_ms", duration),
	}, fields...)

	q.r.log.Info("Request completed successfully", logFields...)

	if err := q.c.Status(statusCode).JSON(data); err != nil {
		return err
	}
	q.r.responseSize.Record(ctx, int64(len(q.c.Response().Body())), metric.WithAttributes(
		attribute.String("endpoint", q.c.Path()),
		attribute.String("method", q.c.Method()),
	))
	return nil
}

// Bind parses the body into dst and validates it. Render failures with
// Invalid.
func (q *Request) Bind(dst any) error {
	if err := q.c.BodyParser(dst); err != nil {
		return fmt.Errorf("cannot parse request body: %w", err)
	}
	return q.r.Validate.Struct(dst)
}

// Invalid writes a 400 for a parse or validation failure, naming the
// offending fields when the validator reported them.
func (q *Request) Invalid(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, len(verrs))
		for i, fe := range verrs {
			fields[i] = fe.Field()
		}
		return q.errorWith(err, fiber.StatusBadRequest, "validation_error", "Validation failed", fiber.Map{"fields": fields})
	}
	return q.errorWith(err, fiber.StatusBadRequest, "parse_error", err.Error(), nil)
}

// Claims returns the caller's token claims. Render failures with
// Unauthorized.
func (q *Request) Claims() (*domain.JwtCustomClaims, error) {
	claims, err := middleware.GetClaimsFromLocals(q.c)
	if err != nil {
		return nil, err
	}
	q.span.SetAttributes(attribute.Int64("user.id", int64(claims.UserID)))
	return claims, nil
}

func (q *Request) Unauthorized(err error) error {
	return q.Error(err, fiber.StatusUnauthorized, "unauthorized", "Unauthorized")
}

// ParamID parses a positive numeric route parameter.
func (q *Request) ParamID(name string) (uint64, error) {
	raw := q.c.Params(name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	q.span.SetAttributes(attribute.Int64("param."+name, int64(id)))
	return id, nil
}

// Params reads ?status, ?page and ?limit with defaults and an upper bound.
func (q *Request) Params() domain.Params {
	page := q.c.QueryInt("page", defaultPage)
	if page < 1 {
		page = defaultPage
	}
	limit := q.c.QueryInt("limit", defaultLimit)
	if limit < 1 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return domain.Params{
		Status: q.c.Query("status"),
		Page:   page,
		Limit:  limit,
	}
}

// Classify returns the status code, error type, client message and extra
// response fields for a service error.
func Classify(err error) (int, string, string, fiber.Map) {
	var termsErr *loanterms.InvalidLoanTermsError
	if errors.As(err, &termsErr) {
		return fiber.StatusUnprocessableEntity, "invalid_loan_terms", "Invalid loan terms", fiber.Map{"field": termsErr.Field}
	}

	switch {
	case errors.Is(err, rotation.ErrAmbiguousPayee):
		return fiber.StatusConflict, "ambiguous_payee", "Payout rotation is inconsistent and needs administrator attention", fiber.Map{"admin_alert": true}
	case errors.Is(err, rotation.ErrNotCurrentPayee):
		return fiber.StatusForbidden, "not_current_payee", "Only the current payee can request a payout", nil
	case errors.Is(err, rotation.ErrNoPayee):
		return fiber.StatusConflict, "no_payee", "The group has no current payee", nil
	case errors.Is(err, common.ErrMemberNotVerified):
		return fiber.StatusForbidden, "member_not_verified", err.Error(), nil
	case errors.Is(err, common.ErrInvalidCredentials):
		return fiber.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil

	case errors.Is(err, common.ErrUserNotFound),
		errors.Is(err, common.ErrLoanNotFound),
		errors.Is(err, common.ErrDraftNotFound),
		errors.Is(err, common.ErrGroupNotFound),
		errors.Is(err, common.ErrMemberNotFound),
		errors.Is(err, common.ErrPaymentNotFound),
		errors.Is(err, common.ErrIndexNotFound):
		return fiber.StatusNotFound, "not_found", unwrapMessage(err), nil

	case errors.Is(err, common.ErrEmailExists),
		errors.Is(err, common.ErrAlreadyMember),
		errors.Is(err, common.ErrGroupFull),
		errors.Is(err, common.ErrLoanNotPending),
		errors.Is(err, common.ErrPaymentNotPending),
		errors.Is(err, common.ErrPaymentInFlight):
		return fiber.StatusConflict, "conflict", unwrapMessage(err), nil

	case errors.Is(err, common.ErrDraftStepOrder):
		return fiber.StatusConflict, "step_order", common.ErrDraftStepOrder.Error(), nil

	case errors.Is(err, common.ErrUnknownStep),
		errors.Is(err, policy.ErrUnknownCategory),
		errors.Is(err, policy.ErrUnknownFlow),
		errors.Is(err, common.ErrInvalidAmount),
		errors.Is(err, common.ErrInvalidDecision):
		return fiber.StatusBadRequest, "invalid_request", err.Error(), nil

	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "timeout", "Request timed out", nil
	}

	return fiber.StatusInternalServerError, "service_error", "Internal server error", nil
}

// unwrapMessage returns the innermost sentinel message, leaving out the
// ids that wrapping adds for the logs.
func unwrapMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
