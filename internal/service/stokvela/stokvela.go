package stokvelasrv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/repository"
	paymentrepo "github.com/greenfina/greenfina/internal/repository/payment"
	stokvelarepo "github.com/greenfina/greenfina/internal/repository/stokvela"
	"github.com/greenfina/greenfina/internal/service"
	"github.com/greenfina/greenfina/pkg/common"
	"github.com/greenfina/greenfina/pkg/instrument"
	"github.com/greenfina/greenfina/pkg/money"
	"github.com/greenfina/greenfina/pkg/rotation"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stokvelaService struct {
	db                 *gorm.DB
	stokvelaRepository repository.StokvelaRepository
	paymentRepository  repository.PaymentRepository
	now                func() time.Time

	meter             metric.Meter
	tracer            trace.Tracer
	log               *zap.Logger
	ins               *instrument.Instruments
	paymentsInitiated metric.Int64Counter
	contributions     metric.Float64Counter
}

func (s *stokvelaService) begin(ctx context.Context, name, operation string, groupID uint64) (context.Context, *instrument.Op) {
	ctx, op := s.ins.Begin(ctx, "service.stokvela."+name,
		attribute.String("operation", operation),
		attribute.String("service", "stokvela"),
	)
	if groupID != 0 {
		op.Span().SetAttributes(attribute.Int64("stokvela.group_id", int64(groupID)))
	}
	return ctx, op
}

func (s *stokvelaService) group(ctx context.Context, groupID uint64) (*domain.StokvelaGroup, error) {
	group, err := s.stokvelaRepository.FindGroupByID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("find group: %w", err)
	}
	if group == nil {
		return nil, common.ErrGroupNotFound
	}
	return group, nil
}

// CreateGroup implements service.StokvelaServices. The creator is not
// enrolled automatically.
func (s *stokvelaService) CreateGroup(ctx context.Context, group *domain.StokvelaGroup) (_ *domain.StokvelaGroup, err error) {
	ctx, op := s.begin(ctx, "CreateGroup", "create_group", 0)
	defer func() { op.End(err) }()

	if group.ContributionAmount <= 0 {
		return nil, common.ErrInvalidAmount
	}

	created, err := s.stokvelaRepository.CreateGroup(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return created, nil
}

// ListGroups implements service.StokvelaServices.
func (s *stokvelaService) ListGroups(ctx context.Context, params domain.Params) (_ *domain.Paginated, err error) {
	ctx, op := s.begin(ctx, "ListGroups", "list_groups", 0)
	defer func() { op.End(err) }()

	groups, total, err := s.stokvelaRepository.ListGroups(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return service.Page(groups, total, params), nil
}

// Join implements service.StokvelaServices. The group row stays locked
// until the new member has its queue position.
func (s *stokvelaService) Join(ctx context.Context, groupID, userID uint64) (_ *domain.StokvelaMember, err error) {
	ctx, op := s.begin(ctx, "Join", "join", groupID)
	defer func() { op.End(err) }()

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer tx.Rollback()

	repo := stokvelarepo.NewStokvelaRepository(tx, s.meter, s.tracer, s.log)

	group, err := repo.FindGroupByIDForUpdate(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("lock group: %w", err)
	}
	if group == nil {
		return nil, common.ErrGroupNotFound
	}

	existing, err := repo.FindMemberByGroupAndUser(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("check membership: %w", err)
	}
	if existing != nil {
		return nil, common.ErrAlreadyMember
	}
	if group.MemberCount >= group.MaxMembers {
		return nil, common.ErrGroupFull
	}

	member, err := repo.AddMember(ctx, &domain.StokvelaMember{
		GroupID:            groupID,
		UserID:             userID,
		ContributionAmount: group.ContributionAmount,
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, common.ErrAlreadyMember
		}
		return nil, fmt.Errorf("add member: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit join: %w", err)
	}

	s.log.Info("User joined stokvela", op.Fields(
		zap.Uint64("group_id", groupID),
		zap.Uint64("user_id", userID),
		zap.Int("position", member.Position),
	)...)
	return member, nil
}

// Members implements service.StokvelaServices.
func (s *stokvelaService) Members(ctx context.Context, groupID uint64) (_ []domain.StokvelaMember, err error) {
	ctx, op := s.begin(ctx, "Members", "members", groupID)
	defer func() { op.End(err) }()

	if _, err := s.group(ctx, groupID); err != nil {
		return nil, err
	}

	members, err := s.stokvelaRepository.FindMembersByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return members, nil
}

// Progress implements service.StokvelaServices. Periods are whole months
// since the group's start date.
func (s *stokvelaService) Progress(ctx context.Context, groupID uint64) (_ *domain.GroupProgress, err error) {
	ctx, op := s.begin(ctx, "Progress", "progress", groupID)
	defer func() { op.End(err) }()

	group, err := s.group(ctx, groupID)
	if err != nil {
		return nil, err
	}

	members, err := s.stokvelaRepository.FindMembersByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	queue := domain.RotationMembers(members)
	payee, err := rotation.CurrentPayee(queue)
	if err != nil {
		return nil, err
	}

	periods := money.MonthsElapsed(group.StartDate, s.now())
	progress := &domain.GroupProgress{
		GroupID:          groupID,
		PeriodsElapsed:   periods,
		TotalContributed: rotation.TotalContributed(queue),
		TotalExpected:    rotation.TotalExpected(queue, periods),
	}
	if payee != nil {
		progress.Payee = memberByID(members, payee.ID)
	}
	return progress, nil
}

// Contribute implements service.StokvelaServices.
func (s *stokvelaService) Contribute(ctx context.Context, groupID, userID uint64, amount float64) (_ *domain.StokvelaMember, err error) {
	ctx, op := s.begin(ctx, "Contribute", "contribute", groupID)
	defer func() { op.End(err) }()

	if amount <= 0 {
		return nil, common.ErrInvalidAmount
	}

	member, err := s.stokvelaRepository.FindMemberByGroupAndUser(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}
	if member == nil {
		return nil, common.ErrMemberNotFound
	}

	if err := s.stokvelaRepository.AddContribution(ctx, member.ID, amount); err != nil {
		return nil, fmt.Errorf("record contribution: %w", err)
	}

	updated, err := s.stokvelaRepository.FindMemberByID(ctx, member.ID)
	if err != nil {
		return nil, fmt.Errorf("reload member: %w", err)
	}
	if updated == nil {
		return nil, common.ErrMemberNotFound
	}

	s.contributions.Add(ctx, amount, metric.WithAttributes(attribute.Int64("group_id", int64(groupID))))
	return updated, nil
}

// CurrentPayee implements service.StokvelaServices. A nil member means the
// group has nobody at the payee position.
func (s *stokvelaService) CurrentPayee(ctx context.Context, groupID uint64) (_ *domain.StokvelaMember, err error) {
	ctx, op := s.begin(ctx, "CurrentPayee", "current_payee", groupID)
	defer func() { op.End(err) }()

	members, err := s.Members(ctx, groupID)
	if err != nil {
		return nil, err
	}

	payee, err := rotation.CurrentPayee(domain.RotationMembers(members))
	if err != nil {
		s.log.Error("Stokvela rotation is inconsistent", op.Fields(zap.Uint64("group_id", groupID), zap.Error(err))...)
		return nil, err
	}
	if payee == nil {
		return nil, nil
	}
	return memberByID(members, payee.ID), nil
}

// AuthorizePayout implements service.StokvelaServices.
func (s *stokvelaService) AuthorizePayout(ctx context.Context, groupID, userID uint64) (_ *domain.StokvelaMember, err error) {
	ctx, op := s.begin(ctx, "AuthorizePayout", "authorize_payout", groupID)
	defer func() { op.End(err) }()

	member, err := s.stokvelaRepository.FindMemberByGroupAndUser(ctx, groupID, userID)
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}
	if member == nil {
		return nil, common.ErrMemberNotFound
	}

	members, err := s.stokvelaRepository.FindMembersByGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	if err := authorize(ctx, members, member.ID, s.paymentRepository); err != nil {
		return nil, err
	}
	return member, nil
}

// InitiatePayment implements service.StokvelaServices. The authorization is
// repeated under the member locks so the queue cannot move between the check
// and the insert.
func (s *stokvelaService) InitiatePayment(ctx context.Context, groupID, userID uint64, request service.PayoutRequest) (_ *domain.StokvelaPayment, err error) {
	ctx, op := s.begin(ctx, "InitiatePayment", "initiate_payment", groupID)
	defer func() { op.End(err) }()

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer tx.Rollback()

	stokvelas := stokvelarepo.NewStokvelaRepository(tx, s.meter, s.tracer, s.log)
	payments := paymentrepo.NewPaymentRepository(tx, s.meter, s.tracer, s.log)

	members, err := stokvelas.FindMembersByGroupForUpdate(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("lock members: %w", err)
	}

	var member *domain.StokvelaMember
	for i := range members {
		if members[i].UserID == userID {
			member = &members[i]
			break
		}
	}
	if member == nil {
		return nil, common.ErrMemberNotFound
	}

	if err := authorize(ctx, members, member.ID, payments); err != nil {
		return nil, err
	}

	payment, err := payments.Create(ctx, &domain.StokvelaPayment{
		Reference: uuid.NewString(),
		GroupID:   groupID,
		MemberID:  member.ID,
		Amount:    domain.Pot(members),
		ProofUrl:  request.ProofURL,
		Note:      request.Note,
		Status:    domain.PaymentPending,

		AccountHolderName: request.AccountHolderName,
		Signature:         request.Signature,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit payment: %w", err)
	}

	s.paymentsInitiated.Add(ctx, 1)
	s.log.Info("Stokvela payout requested", op.Fields(
		zap.Uint64("group_id", groupID),
		zap.Uint64("member_id", member.ID),
		zap.String("reference", payment.Reference),
		zap.Float64("amount", payment.Amount),
	)...)
	return payment, nil
}

// Payments implements service.StokvelaServices.
func (s *stokvelaService) Payments(ctx context.Context, groupID uint64, params domain.Params) (_ *domain.Paginated, err error) {
	ctx, op := s.begin(ctx, "Payments", "payments", groupID)
	defer func() { op.End(err) }()

	if _, err := s.group(ctx, groupID); err != nil {
		return nil, err
	}

	payments, total, err := s.paymentRepository.FindPaginatedByGroup(ctx, groupID, params)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return service.Page(payments, total, params), nil
}

// authorize applies every rule a payout request must pass: the member holds
// the payee position, is verified, and has no request awaiting review.
func authorize(ctx context.Context, members []domain.StokvelaMember, memberID uint64, payments repository.PaymentRepository) error {
	payee, err := rotation.AuthorizePayment(domain.RotationMembers(members), memberID)
	if err != nil {
		return err
	}
	if !payee.Verified {
		return common.ErrMemberNotVerified
	}

	pending, err := payments.FindPendingByMember(ctx, memberID)
	if err != nil {
		return fmt.Errorf("check pending payments: %w", err)
	}
	if pending != nil {
		return common.ErrPaymentInFlight
	}
	return nil
}

func memberByID(members []domain.StokvelaMember, id uint64) *domain.StokvelaMember {
	for i := range members {
		if members[i].ID == id {
			m := members[i]
			return &m
		}
	}
	return nil
}

func NewStokvelaService(
	db *gorm.DB,
	stokvelaRepository repository.StokvelaRepository,
	paymentRepository repository.PaymentRepository,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) service.StokvelaServices {
	paymentsInitiated, _ := meter.Int64Counter(
		"service.stokvela.payments.initiated",
		metric.WithDescription("Number of payout requests raised"),
		metric.WithUnit("{payment}"),
	)

	contributions, _ := meter.Float64Counter(
		"service.stokvela.contributions",
		metric.WithDescription("Total amount contributed to stokvela groups"),
		metric.WithUnit("{ZAR}"),
	)

	return &stokvelaService{
		db:                 db,
		stokvelaRepository: stokvelaRepository,
		paymentRepository:  paymentRepository,
		now:                time.Now,
		meter:              meter,
		tracer:             tracer,
		log:                log,
		ins:                service.NewInstruments(meter, tracer),
		paymentsInitiated:  paymentsInitiated,
		contributions:      contributions,
	}
}
