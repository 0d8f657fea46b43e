package authsrv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/dto"
	"github.com/greenfina/greenfina/internal/repository"
	"github.com/greenfina/greenfina/internal/service"
	"github.com/greenfina/greenfina/pkg/common"
	"github.com/greenfina/greenfina/pkg/instrument"
	"github.com/greenfina/greenfina/pkg/password"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	TokenTTL = 72 * time.Hour
	Issuer   = "greenfina"
)

type authService struct {
	userRepository repository.UserRepository
	jwtSecret      string

	ins           *instrument.Instruments
	log           *zap.Logger
	registrations metric.Int64Counter
	logins        metric.Int64Counter
}

// Register implements service.AuthServices.
func (a *authService) Register(ctx context.Context, user *domain.User, plainPassword string) (_ *domain.User, err error) {
	ctx, op := a.ins.Begin(ctx, "service.auth.Register",
		attribute.String("operation", "register"),
		attribute.String("service", "auth"),
	)
	defer func() { op.End(err) }()

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	existing, err := a.userRepository.FindByEmail(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if existing != nil {
		a.log.Warn("Email already registered", op.Fields(zap.String("email", user.Email))...)
		return nil, common.ErrEmailExists
	}

	hashed, err := password.HashPassword(plainPassword)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.Password = hashed
	if user.Role == "" {
		user.Role = domain.UserRole
	}

	created, err := a.userRepository.Create(ctx, user)
	if err != nil {
		// A concurrent registration can win the race past the lookup above.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, common.ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	a.registrations.Add(ctx, 1)
	a.log.Info("User registered", op.Fields(zap.Uint64("user_id", created.ID))...)
	return created, nil
}

// Login implements service.AuthServices.
func (a *authService) Login(ctx context.Context, req dto.LoginRequest) (_ *dto.LoginResponse, err error) {
	ctx, op := a.ins.Begin(ctx, "service.auth.Login",
		attribute.String("operation", "login"),
		attribute.String("service", "auth"),
	)
	defer func() { op.End(err) }()

	user, err := a.userRepository.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil || !password.CheckPasswordHash(req.Password, user.Password) {
		return nil, common.ErrInvalidCredentials
	}

	token, err := a.sign(user)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	a.logins.Add(ctx, 1, metric.WithAttributes(attribute.String("role", string(user.Role))))
	a.log.Info("User logged in", op.Fields(zap.Uint64("user_id", user.ID))...)
	return &dto.LoginResponse{Token: token}, nil
}

// Me implements service.AuthServices.
func (a *authService) Me(ctx context.Context, userID uint64) (_ *domain.User, err error) {
	ctx, op := a.ins.Begin(ctx, "service.auth.Me",
		attribute.String("operation", "me"),
		attribute.String("service", "auth"),
	)
	defer func() { op.End(err) }()

	user, err := a.userRepository.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, common.ErrUserNotFound
	}
	return user, nil
}

func (a *authService) sign(user *domain.User) (string, error) {
	now := time.Now()
	claims := &domain.JwtCustomClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			Issuer:    Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.jwtSecret))
}

func NewAuthService(
	jwtSecret string,
	userRepository repository.UserRepository,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) service.AuthServices {
	registrations, _ := meter.Int64Counter(
		"service.users.registered",
		metric.WithDescription("Number of users registered"),
		metric.WithUnit("{user}"),
	)

	logins, _ := meter.Int64Counter(
		"service.users.logins",
		metric.WithDescription("Number of successful logins"),
		metric.WithUnit("{login}"),
	)

	return &authService{
		userRepository: userRepository,
		jwtSecret:      jwtSecret,
		ins:            service.NewInstruments(meter, tracer),
		log:            log,
		registrations:  registrations,
		logins:         logins,
	}
}
