package loanrepo

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

type loanRepository struct {
	db           *gorm.DB
	ins          *instrument.Instruments
	log          *zap.Logger
	loansCreated metric.Int64Counter
}

// Create implements repository.LoanRepository.
func (l *loanRepository) Create(ctx context.Context, loan *domain.LoanApplication) (*domain.LoanApplication, error) {
	ctx, q := l.ins.BeginQuery(ctx, "repository.loan.Create", "loan_applications", "insert")

	row := model.LoanApplicationFromEntity(loan)
	err := l.db.WithContext(ctx).Create(&row).Error
	q.End(err)
	if err != nil {
		l.log.Error("Failed to create loan application", q.Fields(zap.Uint64("user_id", loan.UserID), zap.Error(err))...)
		return nil, err
	}

	l.loansCreated.Add(ctx, 1)
	l.log.Info("Loan application created", q.Fields(
		zap.Uint64("loan_id", row.ID),
		zap.Uint64("user_id", row.UserID),
		zap.String("category", row.Category),
	)...)

	return model.LoanApplicationToEntity(row), nil
}

// FindByID implements repository.LoanRepository.
func (l *loanRepository) FindByID(ctx context.Context, id uint64) (*domain.LoanApplication, error) {
	return l.find(ctx, "repository.loan.FindByID", "select", l.db, id)
}

// FindByIDForUpdate implements repository.LoanRepository.
func (l *loanRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*domain.LoanApplication, error) {
	return l.find(ctx, "repository.loan.FindByIDForUpdate", "select_for_update",
		l.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (l *loanRepository) find(ctx context.Context, span, op string, db *gorm.DB, id uint64) (*domain.LoanApplication, error) {
	ctx, q := l.ins.BeginQuery(ctx, span, "loan_applications", op)

	var row model.LoanApplication
	err := db.WithContext(ctx).First(&row, id).Error
	q.End(err)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		l.log.Error("Error finding loan application", q.Fields(zap.Uint64("loan_id", id), zap.Error(err))...)
		return nil, err
	}

	return model.LoanApplicationToEntity(row), nil
}

// FindPaginatedByUser implements repository.LoanRepository.
func (l *loanRepository) FindPaginatedByUser(ctx context.Context, userID uint64, params domain.Params) ([]domain.LoanApplication, int64, error) {
	return l.paginate(ctx, "repository.loan.FindPaginatedByUser",
		l.db.Where("user_id = ?", userID), params)
}

// FindPaginated implements repository.LoanRepository.
func (l *loanRepository) FindPaginated(ctx context.Context, params domain.Params) ([]domain.LoanApplication, int64, error) {
	return l.paginate(ctx, "repository.loan.FindPaginated", l.db, params)
}

func (l *loanRepository) paginate(ctx context.Context, span string, db *gorm.DB, params domain.Params) ([]domain.LoanApplication, int64, error) {
	ctx, q := l.ins.BeginQuery(ctx, span, "loan_applications", "select")

	query := db.WithContext(ctx).Model(&model.LoanApplication{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}

	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		q.End(err)
		l.log.Error("Error counting loan applications", q.Fields(zap.Error(err))...)
		return nil, 0, err
	}

	_, limit, offset := repository.Paginate(params.Page, params.Limit)

	var rows []model.LoanApplication
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error
	q.End(err)
	if err != nil {
		l.log.Error("Error listing loan applications", q.Fields(zap.Error(err))...)
		return nil, 0, err
	}

	return model.LoanApplicationsToEntity(rows), total, nil
}

// UpdateReview implements repository.LoanRepository.
func (l *loanRepository) UpdateReview(ctx context.Context, loan *domain.LoanApplication) error {
	ctx, q := l.ins.BeginQuery(ctx, "repository.loan.UpdateReview", "loan_applications", "update")

	err := l.db.WithContext(ctx).Model(&model.LoanApplication{}).
		Where("id = ?", loan.ID).
		Updates(map[string]any{
			"status":      string(loan.Status),
			"review_note": loan.ReviewNote,
			"reviewed_by": loan.ReviewedBy,
			"reviewed_at": loan.ReviewedAt,
		}).Error
	q.End(err)
	if err != nil {
		l.log.Error("Failed to update loan review", q.Fields(zap.Uint64("loan_id", loan.ID), zap.Error(err))...)
		return err
	}

	l.log.Info("Loan application reviewed", q.Fields(
		zap.Uint64("loan_id", loan.ID),
		zap.String("status", string(loan.Status)),
	)...)
	return nil
}

func NewLoanRepository(
	db *gorm.DB,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) repository.LoanRepository {
	loansCreated, _ := meter.Int64Counter(
		"db.loan_applications.created",
		metric.WithDescription("Number of loan applications stored"),
		metric.WithUnit("{application}"),
	)

	return &loanRepository{
		db:           db,
		ins:          repository.NewInstruments(meter, tracer),
		log:          log,
		loansCreated: loansCreated,
	}
}
