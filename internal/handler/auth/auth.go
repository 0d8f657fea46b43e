package authhandler

import (
	"context"
	"time"

	"github.com/greenfina/greenfina/internal/dto"
	"github.com/greenfina/greenfina/internal/handler"
	"github.com/greenfina/greenfina/internal/service"
	authsrv "github.com/greenfina/greenfina/internal/service/auth"
	"github.com/greenfina/greenfina/middleware"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService  service.AuthServices
	secureCookie bool
	rec          *handler.Recorder
}

func NewAuthHandler(
	authService service.AuthServices,
	secureCookie bool,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		secureCookie: secureCookie,
		rec:          handler.NewRecorder(meter, tracer, log),
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "Register")
	defer q.End()

	var req dto.RegisterRequest
	if err := q.Bind(&req); err != nil {
		return q.Invalid(err)
	}

	serviceCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	user, err := h.authService.Register(serviceCtx, dto.RegisterToEntity(req), req.Password)
	if err != nil {
		return q.Fail(err)
	}

	q.Span().SetAttributes(attribute.Int64("user.id", int64(user.ID)))
	return q.Success(fiber.StatusCreated, dto.UserFromEntity(user), zap.Uint64("user_id", user.ID))
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "Login")
	defer q.End()

	var req dto.LoginRequest
	if err := q.Bind(&req); err != nil {
		return q.Invalid(err)
	}

	serviceCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := h.authService.Login(serviceCtx, req)
	if err != nil {
		return q.Fail(err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.AuthCookie,
		Value:    res.Token,
		Expires:  time.Now().Add(authsrv.TokenTTL),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return q.Success(fiber.StatusOK, res)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	_, q := h.rec.Begin(c, "Logout")
	defer q.End()

	c.Cookie(&fiber.Cookie{
		Name:     middleware.AuthCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   h.secureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return q.Success(fiber.StatusOK, fiber.Map{"message": "Logged out"})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "Me")
	defer q.End()

	claims, err := q.Claims()
	if err != nil {
		return q.Unauthorized(err)
	}

	user, err := h.authService.Me(ctx, claims.UserID)
	if err != nil {
		return q.Fail(err)
	}

	return q.Success(fiber.StatusOK, dto.UserFromEntity(user))
}
