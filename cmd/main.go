package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/greenfina/greenfina/config"
	mysqldb "github.com/greenfina/greenfina/infra/mysql"
	redisdb "github.com/greenfina/greenfina/infra/redis"
	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/model"
	"github.com/greenfina/greenfina/middleware"
	"github.com/greenfina/greenfina/pkg/cloudinary"
	"github.com/greenfina/greenfina/pkg/password"
	"github.com/greenfina/greenfina/pkg/policy"
	ratelimiter "github.com/greenfina/greenfina/pkg/rate-limiter"
	"github.com/greenfina/greenfina/pkg/telemetry"
	"github.com/greenfina/greenfina/presenter"
	"github.com/greenfina/greenfina/router"

	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// initialIndexValue is the value the default investment index starts at.
const initialIndexValue = 100.0

func main() {
	slog.Info("Starting application setup...")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, using system environment variables", "error", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(fmt.Sprintf("Failed to load configuration: %v", err))
	}
	if cfg.JWT_SECRET_KEY == "" {
		slog.Error("JWT_SECRET_KEY must be set")
		os.Exit(1)
	}

	tel, err := telemetry.New(ctx, cfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize monitoring: %v", err))
	}

	loanPolicy, err := policy.Load(cfg.POLICY_FILE)
	if err != nil {
		zap.L().Fatal("Failed to load loan policy", zap.String("path", cfg.POLICY_FILE), zap.Error(err))
	}

	db, err := mysqldb.InitializeDatabase(cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}

	connectCtx, cancelConnect := context.WithTimeout(ctx, time.Minute)
	redisClient, err := redisdb.ConnectWithRetry(connectCtx, cfg, 5*time.Second)
	cancelConnect()
	if err != nil {
		zap.L().Fatal("Failed to connect to Redis", zap.Error(err))
	}
	go redisdb.WatchConnection(ctx, redisClient, 30*time.Second)

	defer func() {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.SHUTDOWN_TIMEOUT)
		defer cancelShutdown()

		zap.L().Info("Closing MySQL Connection...")
		if err := mysqldb.Close(shutdownCtx, db); err != nil {
			zap.L().Error("Error disconnecting from MySQL", zap.Error(err))
		} else {
			zap.L().Info("Disconnected from MySQL.")
		}

		zap.L().Info("Closing Redis connection...")
		if err := redisClient.Close(); err != nil {
			zap.L().Error("Error disconnecting from Redis", zap.Error(err))
		} else {
			zap.L().Info("Disconnected from Redis.")
		}

		zap.L().Info("Shutting down monitoring...")
		if err := tel.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("Error during monitoring shutdown", zap.Error(err))
		} else {
			zap.L().Info("Monitoring shutdown complete.")
		}
	}()

	if err := model.AutoMigrate(db); err != nil {
		zap.L().Fatal("Failed to migrate database", zap.Error(err))
	}
	zap.L().Info("Database migration completed!")

	if err := SeedAdmin(db, cfg.ADMIN_EMAIL, cfg.ADMIN_PASSWORD); err != nil {
		zap.L().Fatal("Failed to seed admin user", zap.Error(err))
	}
	if err := SeedIndex(db); err != nil {
		zap.L().Fatal("Failed to seed investment index", zap.Error(err))
	}

	if err := mysqldb.Ping(ctx, db); err != nil {
		zap.L().Fatal("Database ping failed", zap.Error(err))
	}
	zap.L().Info("Database connection successful!", zap.Any("stats", mysqldb.GetStats(db)))

	cld, err := cloudinary.InitCloudinary(cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize Cloudinary service", zap.Error(err))
	}

	limiter := ratelimiter.NewRateLimiter(
		redisClient,
		cfg.RATE_LIMIT_REQUESTS,
		cfg.RATE_LIMIT_WINDOW,
		middleware.RateLimitKey,
	)

	store := session.New(session.Config{
		Expiration:     24 * time.Hour,
		KeyLookup:      "cookie:greenfina_session",
		CookieHTTPOnly: true,
		CookieSecure:   !cfg.DEVELOPMENT_MODE,
		CookieSameSite: "Lax",
	})

	presenter := presenter.NewPresenter(db, redisClient, cld, tel, cfg, loanPolicy)
	router := router.NewRouter(presenter, db, redisClient, tel, cfg, limiter, store)

	addr := ":" + cfg.SERVER_PORT

	listenErr := make(chan error, 1)

	go func() {
		zap.L().Info("Server starting", zap.String("address", addr))
		if err := router.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		} else {
			listenErr <- nil
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		zap.L().Info("Received shutdown signal", zap.String("signal", sig.String()))
	case err := <-listenErr:
		if err != nil {
			zap.L().Error("Server listen error", zap.Error(err))
			return
		}
	}

	zap.L().Info("Starting graceful shutdown...")
	// Cancelling ctx stops the Redis watcher.
	stop()

	if err := router.ShutdownWithTimeout(cfg.SHUTDOWN_TIMEOUT); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			zap.L().Warn("Server shutdown timed out", zap.Duration("timeout", cfg.SHUTDOWN_TIMEOUT))
		} else {
			zap.L().Error("Server shutdown error", zap.Error(err))
		}
	} else {
		zap.L().Info("Server gracefully stopped.")
	}

	zap.L().Info("Application shutdown complete.")
}

// SeedAdmin creates the administrator account on first start. Without a
// configured password no account is created.
func SeedAdmin(db *gorm.DB, email, plainPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	zap.L().Info("Checking for admin user...", zap.String("email", email))

	var admin model.User
	err := db.Where("email = ?", email).First(&admin).Error

	switch {
	case err == nil:
		zap.L().Info("Admin user already exists.")
		return nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("check for admin user: %w", err)
	case plainPassword == "":
		zap.L().Warn("ADMIN_PASSWORD is empty, skipping admin seed")
		return nil
	}

	hashed, err := password.HashPassword(plainPassword)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	admin = model.User{
		FullName: "Administrator",
		Email:    email,
		Password: hashed,
		Role:     string(domain.AdminRole),
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}

	zap.L().Info("Admin user created successfully.", zap.Uint64("id", admin.ID))
	return nil
}

// SeedIndex creates the default investment index if it is missing.
func SeedIndex(db *gorm.DB) error {
	index := model.InvestmentIndex{
		Name:  domain.DefaultIndexName,
		Value: initialIndexValue,
	}

	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&index).Error; err != nil {
		return fmt.Errorf("seed index %s: %w", domain.DefaultIndexName, err)
	}

	zap.L().Info("Investment index ready.", zap.String("index", domain.DefaultIndexName))
	return nil
}
