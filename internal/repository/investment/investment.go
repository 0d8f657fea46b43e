package investmentrepo

import (
	"context"
	"errors"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/model"
	"github.com/greenfina/greenfina/internal/repository"
	"github.com/greenfina/greenfina/pkg/instrument"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type investmentRepository struct {
	db  *gorm.DB
	ins *instrument.Instruments
	log *zap.Logger
}

// Create implements repository.InvestmentRepository.
func (i *investmentRepository) Create(ctx context.Context, investment *domain.Investment) (*domain.Investment, error) {
	ctx, q := i.ins.BeginQuery(ctx, "repository.investment.Create", "investments", "insert")

	row := model.InvestmentFromEntity(investment)
	err := i.db.WithContext(ctx).Create(&row).Error
	q.End(err)
	if err != nil {
		i.log.Error("Failed to create investment", q.Fields(zap.Uint64("user_id", investment.UserID), zap.Error(err))...)
		return nil, err
	}

	i.log.Info("Investment created", q.Fields(
		zap.Uint64("investment_id", row.ID),
		zap.Uint64("user_id", row.UserID),
		zap.Float64("units", row.Units),
	)...)

	out := model.InvestmentsToEntity([]model.Investment{row})
	return &out[0], nil
}

// FindByUser implements repository.InvestmentRepository.
func (i *investmentRepository) FindByUser(ctx context.Context, userID uint64) ([]domain.Investment, error) {
	ctx, q := i.ins.BeginQuery(ctx, "repository.investment.FindByUser", "investments", "select")

	var rows []model.Investment
	err := i.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at ASC").Order("id ASC").Find(&rows).Error
	q.End(err)
	if err != nil {
		i.log.Error("Error listing investments", q.Fields(zap.Uint64("user_id", userID), zap.Error(err))...)
		return nil, err
	}

	return model.InvestmentsToEntity(rows), nil
}

// CurrentIndex implements repository.InvestmentRepository.
func (i *investmentRepository) CurrentIndex(ctx context.Context, name string) (*domain.InvestmentIndex, error) {
	ctx, q := i.ins.BeginQuery(ctx, "repository.investment.CurrentIndex", "investment_indices", "select")

	var row model.InvestmentIndex
	err := i.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	q.End(err)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		i.log.Error("Error reading investment index", q.Fields(zap.String("index", name), zap.Error(err))...)
		return nil, err
	}

	return model.InvestmentIndexToEntity(row), nil
}

// UpsertIndex implements repository.InvestmentRepository.
func (i *investmentRepository) UpsertIndex(ctx context.Context, index *domain.InvestmentIndex) (*domain.InvestmentIndex, error) {
	ctx, q := i.ins.BeginQuery(ctx, "repository.investment.UpsertIndex", "investment_indices", "upsert")

	row := model.InvestmentIndex{Name: index.Name, Value: index.Value}
	err := i.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	q.End(err)
	if err != nil {
		i.log.Error("Failed to upsert investment index", q.Fields(zap.String("index", index.Name), zap.Error(err))...)
		return nil, err
	}

	i.log.Info("Investment index updated", q.Fields(zap.String("index", row.Name), zap.Float64("value", row.Value))...)
	return model.InvestmentIndexToEntity(row), nil
}

func NewInvestmentRepository(
	db *gorm.DB,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) repository.InvestmentRepository {
	return &investmentRepository{
		db:  db,
		ins: repository.NewInstruments(meter, tracer),
		log: log,
	}
}
