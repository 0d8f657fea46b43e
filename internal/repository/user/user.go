package userrepo

import (
	"context"
	"errors"
	"strings"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/model"
	"github.com/greenfina/greenfina/internal/repository"
	"github.com/greenfina/greenfina/pkg/instrument"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type userRepository struct {
	db  *gorm.DB
	ins *instrument.Instruments
	log *zap.Logger
}

// Create implements repository.UserRepository.
func (u *userRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	ctx, q := u.ins.BeginQuery(ctx, "repository.user.Create", "users", "insert")

	row := model.UserFromEntity(user)
	row.Email = strings.ToLower(strings.TrimSpace(row.Email))

	err := u.db.WithContext(ctx).Create(&row).Error
	q.End(err)
	if err != nil {
		u.log.Error("Failed to create user", q.Fields(zap.Error(err))...)
		return nil, err
	}

	q.Span().SetAttributes(attribute.Int64("user.id", int64(row.ID)))
	u.log.Info("User created", q.Fields(zap.Uint64("user_id", row.ID))...)

	return model.UserToEntity(row), nil
}

// FindByEmail implements repository.UserRepository.
func (u *userRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, q := u.ins.BeginQuery(ctx, "repository.user.FindByEmail", "users", "select")

	var row model.User
	err := u.db.WithContext(ctx).Where("email = ?", strings.ToLower(strings.TrimSpace(email))).First(&row).Error
	q.End(err)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			u.log.Debug("User not found by email", q.Fields()...)
			return nil, nil
		}
		u.log.Error("Error finding user by email", q.Fields(zap.Error(err))...)
		return nil, err
	}

	return model.UserToEntity(row), nil
}

// FindByID implements repository.UserRepository.
func (u *userRepository) FindByID(ctx context.Context, id uint64) (*domain.User, error) {
	ctx, q := u.ins.BeginQuery(ctx, "repository.user.FindByID", "users", "select")

	var row model.User
	err := u.db.WithContext(ctx).First(&row, id).Error
	q.End(err)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			u.log.Debug("User not found by ID", q.Fields(zap.Uint64("user_id", id))...)
			return nil, nil
		}
		u.log.Error("Error finding user by ID", q.Fields(zap.Uint64("user_id", id), zap.Error(err))...)
		return nil, err
	}

	return model.UserToEntity(row), nil
}

func NewUserRepository(
	db *gorm.DB,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) repository.UserRepository {
	return &userRepository{
		db:  db,
		ins: repository.NewInstruments(meter, tracer),
		log: log,
	}
}
