package investmenthandler

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/dto"
	"github.com/greenfina/greenfina/internal/handler"
	"github.com/greenfina/greenfina/internal/realtime"
	"github.com/greenfina/greenfina/internal/service"
	"github.com/greenfina/greenfina/pkg/common"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultHeartbeat = 15 * time.Second

type InvestmentHandler struct {
	investmentService service.InvestmentServices
	subscriber        realtime.Subscriber
	heartbeat         time.Duration
	log               *zap.Logger
	rec               *handler.Recorder
}

func NewInvestmentHandler(
	investmentService service.InvestmentServices,
	subscriber realtime.Subscriber,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) *InvestmentHandler {
	return &InvestmentHandler{
		investmentService: investmentService,
		subscriber:        subscriber,
		heartbeat:         defaultHeartbeat,
		log:               log,
		rec:               handler.NewRecorder(meter, tracer, log),
	}
}

// WithHeartbeat sets how often an idle stream sends a keep-alive comment.
func (h *InvestmentHandler) WithHeartbeat(d time.Duration) *InvestmentHandler {
	if d > 0 {
		h.heartbeat = d
	}
	return h
}

func (h *InvestmentHandler) CurrentIndex(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "CurrentIndex")
	defer q.End()

	index, err := h.investmentService.CurrentIndex(ctx)
	if err != nil {
		return q.Fail(err)
	}

	return q.Success(fiber.StatusOK, dto.IndexFromEntity(index))
}

// StreamIndex relays index updates as server-sent events. The current value
// is sent first when one exists.
func (h *InvestmentHandler) StreamIndex(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "StreamIndex")
	defer q.End()

	current, err := h.investmentService.CurrentIndex(ctx)
	if err != nil && !errors.Is(err, common.ErrIndexNotFound) {
		return q.Fail(err)
	}

	// The stream outlives the handler, so it cannot use the request context.
	streamCtx, cancel := context.WithCancel(context.Background())
	updates, err := h.subscriber.Subscribe(streamCtx)
	if err != nil {
		cancel()
		return q.Error(err, fiber.StatusServiceUnavailable, "subscribe_error", "Live index feed is unavailable")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")
	c.Status(fiber.StatusOK)

	log := h.log.With(zap.String("client_ip", c.IP()))
	heartbeat := h.heartbeat

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer cancel()
		log.Debug("Index stream opened")

		if current != nil {
			if err := writeEvent(w, dto.IndexFromEntity(current)); err != nil {
				return
			}
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case index, ok := <-updates:
				if !ok {
					log.Debug("Index feed closed")
					return
				}
				if err := writeEvent(w, dto.IndexFromEntity(&index)); err != nil {
					log.Debug("Index stream client went away", zap.Error(err))
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					log.Debug("Index stream client went away", zap.Error(err))
					return
				}
			}
		}
	})

	q.Span().AddEvent("stream_opened", trace.WithAttributes(attribute.Bool("index.known", current != nil)))
	return nil
}

func writeEvent(w *bufio.Writer, index dto.IndexResponse) error {
	payload, err := json.Marshal(index)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: index\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}

func (h *InvestmentHandler) Invest(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "Invest")
	defer q.End()

	claims, err := q.Claims()
	if err != nil {
		return q.Unauthorized(err)
	}

	var req dto.InvestRequest
	if err := q.Bind(&req); err != nil {
		return q.Invalid(err)
	}

	investment, err := h.investmentService.Invest(ctx, claims.UserID, req.Amount)
	if err != nil {
		return q.Fail(err, zap.Float64("amount", req.Amount))
	}

	return q.Success(fiber.StatusCreated, holdingOf(investment),
		zap.Uint64("investment_id", investment.ID),
		zap.Float64("units", investment.Units),
	)
}

// holdingOf renders a fresh purchase, which is worth what was paid.
func holdingOf(i *domain.Investment) dto.HoldingResponse {
	portfolio := dto.PortfolioFromEntity(&domain.Portfolio{
		Holdings: []domain.Holding{{Investment: *i, CurrentValue: i.Amount}},
	})
	return portfolio.Holdings[0]
}

func (h *InvestmentHandler) Portfolio(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "Portfolio")
	defer q.End()

	claims, err := q.Claims()
	if err != nil {
		return q.Unauthorized(err)
	}

	portfolio, err := h.investmentService.Portfolio(ctx, claims.UserID)
	if err != nil {
		return q.Fail(err)
	}

	return q.Success(fiber.StatusOK, dto.PortfolioFromEntity(portfolio),
		zap.Int("holdings", len(portfolio.Holdings)),
	)
}
