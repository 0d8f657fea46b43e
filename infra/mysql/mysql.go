package mysqldb

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/greenfina/greenfina/config"
)

type DatabaseConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	DatabaseName string
	Charset      string
	ParseTime    bool
	Loc          string
}

// ConfigFrom maps the service config onto a connection config.
func ConfigFrom(cfg *config.Config) *DatabaseConfig {
	port, err := strconv.Atoi(cfg.MYSQL_PORT)
	if err != nil {
		port = 3306
	}

	return &DatabaseConfig{
		Host:         cfg.MYSQL_HOST,
		Port:         port,
		Username:     cfg.MYSQL_USER,
		Password:     cfg.MYSQL_PASSWORD,
		DatabaseName: cfg.MYSQL_DBNAME,
		Charset:      "utf8mb4",
		ParseTime:    true,
		Loc:          "UTC",
	}
}

func (c *DatabaseConfig) BuildDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		c.Username, c.Password, c.Host, c.Port,
		c.DatabaseName, c.Charset, c.ParseTime, c.Loc,
	)
}

func Connect(c *DatabaseConfig, debug bool) (*gorm.DB, error) {
	logLevel := logger.Silent
	if debug {
		logLevel = logger.Info
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(mysql.Open(c.BuildDSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

func ConnectWithRetry(c *DatabaseConfig, debug bool, maxRetries int, retryDelay time.Duration) (*gorm.DB, error) {
	var lastErr error
	for i := range maxRetries {
		db, err := Connect(c, debug)
		if err == nil {
			zap.L().Info("Connected to MySQL", zap.Int("attempt", i+1), zap.String("host", c.Host))
			return db, nil
		}
		lastErr = err

		zap.L().Warn("Failed to connect to MySQL",
			zap.Int("attempt", i+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
		)

		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", maxRetries, lastErr)
}

func InitializeDatabase(cfg *config.Config) (*gorm.DB, error) {
	return ConnectWithRetry(ConfigFrom(cfg), cfg.DEVELOPMENT_MODE, 5, 2*time.Second)
}

func Close(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.WithContext(ctx).DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	return sqlDB.Close()
}

func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.WithContext(ctx).DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	return sqlDB.PingContext(ctx)
}

// GetStats backs the readiness endpoint.
func GetStats(db *gorm.DB) map[string]any {
	sqlDB, err := db.DB()
	if err != nil {
		return map[string]any{
			"error": err.Error(),
		}
	}

	stats := sqlDB.Stats()
	return map[string]any{
		"max_open_connections": stats.MaxOpenConnections,
		"open_connections":     stats.OpenConnections,
		"in_use":               stats.InUse,
		"idle":                 stats.Idle,
	}
}
