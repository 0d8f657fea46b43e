package router

import (
	"context"
	"errors"
	"time"

	"github.com/greenfina/greenfina/config"
	mysqldb "github.com/greenfina/greenfina/infra/mysql"
	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/middleware"
	ratelimiter "github.com/greenfina/greenfina/pkg/rate-limiter"
	"github.com/greenfina/greenfina/pkg/telemetry"
	"github.com/greenfina/greenfina/presenter"

	"github.com/gofiber/contrib/otelfiber/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewRouter(
	presenter presenter.Presenter,
	db *gorm.DB,
	client *redis.Client,
	tel *telemetry.OpenTelemetry,
	cfg *config.Config,
	limiter *ratelimiter.RateLimiter,
	store *session.Store,
) *fiber.App {

	jwtAuth := middleware.NewJWTAuthMiddleware(cfg.JWT_SECRET_KEY)
	customCSRF := middleware.NewCustomCSRFMiddleware(store)
	requireAdmin := middleware.RequireRole(domain.AdminRole)
	requireMember := middleware.RequireRole(domain.UserRole, domain.AdminRole)
	rateLimit := limiter.RateLimitMiddleware()

	app := fiber.New(fiber.Config{
		BodyLimit:   10 * 1024 * 1024,
		ReadTimeout: 15 * time.Second,
		// No write timeout: the index stream stays open.
		IdleTimeout:  60 * time.Second,
		ErrorHandler: ErrorCustomHandler(tel.Log),
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DEVELOPMENT_MODE}))
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.ALLOWED_ORIGINS,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, " + middleware.CSRFHeader,
		AllowMethods:     "GET, POST, PUT, DELETE, PATCH, OPTIONS",
		AllowCredentials: true,
	}))

	if cfg.DEVELOPMENT_MODE {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${ip} ${status} - ${latency} ${method} ${path}\n",
			TimeFormat: "2006-01-02 15:04:05",
		}))
	}

	app.Use(otelfiber.Middleware(
		otelfiber.WithTracerProvider(tel.TracerProvider),
		otelfiber.WithMeterProvider(tel.MeterProvider),
		otelfiber.WithPropagators(propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		)),
	))

	if cfg.REQUESTS_METRIC {
		zap.L().Info("Enabling HTTP request metrics middleware")
		app.Use(middleware.NewOtelMiddleware(
			tel.MeterProvider.Meter("fiber-middleware"),
			tel.TracerProvider.Tracer("fiber-middleware"),
			tel.Log,
		).Handle())
	} else {
		zap.L().Info("HTTP request metrics middleware is disabled")
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		if err := mysqldb.Ping(ctx, db); err != nil {
			zap.L().Error("Health check failed: database ping error", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
		}
		if err := client.Ping(ctx).Err(); err != nil {
			zap.L().Error("Health check failed: redis ping error", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  "redis connection failed",
			})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":      "healthy",
			"service":     cfg.SERVICE_NAME,
			"version":     cfg.SERVICE_VERSION,
			"environment": cfg.ENVIRONMENT,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	api := app.Group("/api/v1")

	authAPI := api.Group("/auth", rateLimit)
	{
		authAPI.Get("/csrf-token", middleware.CSRFTokenHandler(store))
		authAPI.Post("/register", customCSRF, presenter.AuthPresenter.Register)
		authAPI.Post("/login", presenter.AuthPresenter.Login)
		authAPI.Post("/logout", jwtAuth, customCSRF, presenter.AuthPresenter.Logout)
	}

	// Calculators change no state and need no session.
	loansAPI := api.Group("/loans", rateLimit)
	{
		loansAPI.Post("/quote", presenter.LoanPresenter.Quote)
		loansAPI.Post("/quote/flat", presenter.LoanPresenter.FlatQuote)
		loansAPI.Post("/affordability", presenter.LoanPresenter.Affordability)
	}

	investmentsAPI := api.Group("/investments")
	{
		investmentsAPI.Get("/index", rateLimit, presenter.InvestmentPresenter.CurrentIndex)
		investmentsAPI.Get("/index/stream", presenter.InvestmentPresenter.StreamIndex)
	}

	// Authenticated groups rate limit after the token is parsed so the
	// limiter keys on the user.
	meAPI := api.Group("/me", jwtAuth, requireMember, rateLimit, customCSRF)
	{
		meAPI.Get("/", presenter.AuthPresenter.Me)

		meAPI.Get("/loan-draft", presenter.LoanPresenter.GetDraft)
		meAPI.Put("/loan-draft/:step", presenter.LoanPresenter.SaveDraftStep)
		meAPI.Delete("/loan-draft", presenter.LoanPresenter.DiscardDraft)

		meAPI.Post("/loans", presenter.LoanPresenter.Apply)
		meAPI.Get("/loans", presenter.LoanPresenter.MyLoans)
		meAPI.Get("/loans/:loanId", presenter.LoanPresenter.MyLoan)

		meAPI.Post("/investments", presenter.InvestmentPresenter.Invest)
		meAPI.Get("/investments", presenter.InvestmentPresenter.Portfolio)
	}

	stokvelaAPI := api.Group("/stokvela", jwtAuth, requireMember, rateLimit, customCSRF)
	{
		stokvelaAPI.Get("/groups", presenter.StokvelaPresenter.ListGroups)
		stokvelaAPI.Post("/groups", presenter.StokvelaPresenter.CreateGroup)
		stokvelaAPI.Post("/groups/:groupId/join", presenter.StokvelaPresenter.Join)
		stokvelaAPI.Get("/groups/:groupId/members", presenter.StokvelaPresenter.Members)
		stokvelaAPI.Get("/groups/:groupId/payee", presenter.StokvelaPresenter.Payee)
		stokvelaAPI.Get("/groups/:groupId/progress", presenter.StokvelaPresenter.Progress)
		stokvelaAPI.Post("/groups/:groupId/contributions", presenter.StokvelaPresenter.Contribute)
		stokvelaAPI.Get("/groups/:groupId/payments", presenter.StokvelaPresenter.Payments)
		stokvelaAPI.Post("/groups/:groupId/payments", presenter.StokvelaPresenter.InitiatePayment)
	}

	adminAPI := api.Group("/admin", jwtAuth, requireAdmin, rateLimit, customCSRF)
	{
		adminAPI.Get("/loans", presenter.AdminPresenter.ListLoans)
		adminAPI.Post("/loans/:loanId/review", presenter.AdminPresenter.ReviewLoan)
		adminAPI.Get("/payments", presenter.AdminPresenter.ListPayments)
		adminAPI.Post("/payments/:paymentId/review", presenter.AdminPresenter.ReviewPayment)
		adminAPI.Post("/stokvela/members/:memberId/verify", presenter.AdminPresenter.VerifyMember)
		adminAPI.Put("/investments/index", presenter.AdminPresenter.UpdateIndex)
	}

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   true,
			"message": "Resource not found",
			"path":    c.Path(),
		})
	})

	return app
}

func ErrorCustomHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Internal Server Error"

		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
			message = e.Message
		}

		log.Error("Request error occurred",
			zap.Error(err),
			zap.String("path", c.Path()),
			zap.String("method", c.Method()),
			zap.Int("status_code", code),
		)

		return c.Status(code).JSON(fiber.Map{
			"error":   true,
			"message": message,
			"code":    code,
		})
	}
}
