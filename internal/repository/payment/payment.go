package paymentrepo

import (
	"context"
	"errors"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/model"
	"github.com/greenfina/greenfina/internal/repository"
	"github.com/greenfina/greenfina/pkg/instrument"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type paymentRepository struct {
	db  *gorm.DB
	ins *instrument.Instruments
	log *zap.Logger
}

// Create implements repository.PaymentRepository.
func (p *paymentRepository) Create(ctx context.Context, payment *domain.StokvelaPayment) (*domain.StokvelaPayment, error) {
	ctx, q := p.ins.BeginQuery(ctx, "repository.payment.Create", "stokvela_payments", "insert")

	row := model.StokvelaPaymentFromEntity(payment)
	err := p.db.WithContext(ctx).Create(&row).Error
	q.End(err)
	if err != nil {
		p.log.Error("Failed to create stokvela payment", q.Fields(
			zap.Uint64("group_id", payment.GroupID),
			zap.Uint64("member_id", payment.MemberID),
			zap.Error(err),
		)...)
		return nil, err
	}

	q.Span().SetAttributes(attribute.String("payment.reference", row.Reference))
	p.log.Info("Stokvela payment created", q.Fields(
		zap.Uint64("payment_id", row.ID),
		zap.String("reference", row.Reference),
	)...)

	return model.StokvelaPaymentToEntity(row), nil
}

// FindByID implements repository.PaymentRepository.
func (p *paymentRepository) FindByID(ctx context.Context, id uint64) (*domain.StokvelaPayment, error) {
	return p.first(ctx, "repository.payment.FindByID", "select", p.db.Where("id = ?", id))
}

// FindByIDForUpdate implements repository.PaymentRepository.
func (p *paymentRepository) FindByIDForUpdate(ctx context.Context, id uint64) (*domain.StokvelaPayment, error) {
	return p.first(ctx, "repository.payment.FindByIDForUpdate", "select_for_update",
		p.db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

// FindPendingByMember implements repository.PaymentRepository.
func (p *paymentRepository) FindPendingByMember(ctx context.Context, memberID uint64) (*domain.StokvelaPayment, error) {
	return p.first(ctx, "repository.payment.FindPendingByMember", "select",
		p.db.Where("member_id = ? AND status = ?", memberID, string(domain.PaymentPending)))
}

func (p *paymentRepository) first(ctx context.Context, span, op string, db *gorm.DB) (*domain.StokvelaPayment, error) {
	ctx, q := p.ins.BeginQuery(ctx, span, "stokvela_payments", op)

	var row model.StokvelaPayment
	err := db.WithContext(ctx).First(&row).Error
	q.End(err)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		p.log.Error("Error finding stokvela payment", q.Fields(zap.Error(err))...)
		return nil, err
	}

	return model.StokvelaPaymentToEntity(row), nil
}

// FindPaginatedByGroup implements repository.PaymentRepository.
func (p *paymentRepository) FindPaginatedByGroup(ctx context.Context, groupID uint64, params domain.Params) ([]domain.StokvelaPayment, int64, error) {
	return p.paginate(ctx, "repository.payment.FindPaginatedByGroup", p.db.Where("group_id = ?", groupID), params)
}

// FindPaginated implements repository.PaymentRepository.
func (p *paymentRepository) FindPaginated(ctx context.Context, params domain.Params) ([]domain.StokvelaPayment, int64, error) {
	return p.paginate(ctx, "repository.payment.FindPaginated", p.db, params)
}

func (p *paymentRepository) paginate(ctx context.Context, span string, db *gorm.DB, params domain.Params) ([]domain.StokvelaPayment, int64, error) {
	ctx, q := p.ins.BeginQuery(ctx, span, "stokvela_payments", "select")

	query := db.WithContext(ctx).Model(&model.StokvelaPayment{})
	if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		q.End(err)
		p.log.Error("Error counting stokvela payments", q.Fields(zap.Error(err))...)
		return nil, 0, err
	}

	_, limit, offset := repository.Paginate(params.Page, params.Limit)

	var rows []model.StokvelaPayment
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error
	q.End(err)
	if err != nil {
		p.log.Error("Error listing stokvela payments", q.Fields(zap.Error(err))...)
		return nil, 0, err
	}

	return model.StokvelaPaymentsToEntity(rows), total, nil
}

// UpdateStatus implements repository.PaymentRepository.
func (p *paymentRepository) UpdateStatus(ctx context.Context, payment *domain.StokvelaPayment) error {
	ctx, q := p.ins.BeginQuery(ctx, "repository.payment.UpdateStatus", "stokvela_payments", "update")

	err := p.db.WithContext(ctx).Model(&model.StokvelaPayment{}).
		Where("id = ?", payment.ID).
		Updates(map[string]any{
			"status":      string(payment.Status),
			"amount":      payment.Amount,
			"note":        payment.Note,
			"reviewed_by": payment.ReviewedBy,
			"reviewed_at": payment.ReviewedAt,
		}).Error
	q.End(err)
	if err != nil {
		p.log.Error("Failed to update stokvela payment", q.Fields(zap.Uint64("payment_id", payment.ID), zap.Error(err))...)
		return err
	}

	p.log.Info("Stokvela payment reviewed", q.Fields(
		zap.Uint64("payment_id", payment.ID),
		zap.String("status", string(payment.Status)),
	)...)
	return nil
}

func NewPaymentRepository(
	db *gorm.DB,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) repository.PaymentRepository {
	return &paymentRepository{
		db:  db,
		ins: repository.NewInstruments(meter, tracer),
		log: log,
	}
}
