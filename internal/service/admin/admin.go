package adminsrv

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/realtime"
	"github.com/greenfina/greenfina/internal/repository"
	loanrepo "github.com/greenfina/greenfina/internal/repository/loan"
	paymentrepo "github.com/greenfina/greenfina/internal/repository/payment"
	stokvelarepo "github.com/greenfina/greenfina/internal/repository/stokvela"
	"github.com/greenfina/greenfina/internal/service"
	"github.com/greenfina/greenfina/pkg/common"
	"github.com/greenfina/greenfina/pkg/instrument"
	"github.com/greenfina/greenfina/pkg/rotation"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type adminService struct {
	db                   *gorm.DB
	loanRepository       repository.LoanRepository
	paymentRepository    repository.PaymentRepository
	stokvelaRepository   repository.StokvelaRepository
	investmentRepository repository.InvestmentRepository
	publisher            realtime.Publisher
	now                  func() time.Time

	meter     metric.Meter
	tracer    trace.Tracer
	log       *zap.Logger
	ins       *instrument.Instruments
	decisions metric.Int64Counter
	payouts   metric.Float64Counter
}

func (a *adminService) begin(ctx context.Context, name, operation string) (context.Context, *instrument.Op) {
	return a.ins.Begin(ctx, "service.admin."+name,
		attribute.String("operation", operation),
		attribute.String("service", "admin"),
	)
}

func validDecision(decision domain.ReviewDecision) bool {
	return decision == domain.DecisionApprove || decision == domain.DecisionReject
}

// ListLoans implements service.AdminServices.
func (a *adminService) ListLoans(ctx context.Context, params domain.Params) (_ *domain.Paginated, err error) {
	ctx, op := a.begin(ctx, "ListLoans", "list_loans")
	defer func() { op.End(err) }()

	params.Status = strings.ToUpper(params.Status)
	loans, total, err := a.loanRepository.FindPaginated(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return service.Page(loans, total, params), nil
}

// ReviewLoan implements service.AdminServices. Only pending applications
// can be decided, and a decision is final.
func (a *adminService) ReviewLoan(ctx context.Context, loanID uint64, decision domain.ReviewDecision, note string, reviewerID uint64) (_ *domain.LoanApplication, err error) {
	ctx, op := a.begin(ctx, "ReviewLoan", "review_loan")
	defer func() { op.End(err) }()
	op.Span().SetAttributes(attribute.Int64("loan.id", int64(loanID)), attribute.String("loan.decision", string(decision)))

	if !validDecision(decision) {
		return nil, common.ErrInvalidDecision
	}

	tx := a.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer tx.Rollback()

	loans := loanrepo.NewLoanRepository(tx, a.meter, a.tracer, a.log)

	loan, err := loans.FindByIDForUpdate(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("lock loan: %w", err)
	}
	if loan == nil {
		return nil, common.ErrLoanNotFound
	}
	if loan.Status != domain.LoanPending {
		return nil, common.ErrLoanNotPending
	}

	reviewedAt := a.now().UTC()
	loan.Status = domain.LoanApproved
	if decision == domain.DecisionReject {
		loan.Status = domain.LoanRejected
	}
	loan.ReviewNote = note
	loan.ReviewedBy = &reviewerID
	loan.ReviewedAt = &reviewedAt

	if err := loans.UpdateReview(ctx, loan); err != nil {
		return nil, fmt.Errorf("update loan: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit review: %w", err)
	}

	a.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("subject", "loan"),
		attribute.String("decision", string(decision)),
	))
	a.log.Info("Loan application decided", op.Fields(
		zap.Uint64("loan_id", loanID),
		zap.String("status", string(loan.Status)),
		zap.Uint64("reviewer_id", reviewerID),
	)...)
	return loan, nil
}

// ListPayments implements service.AdminServices.
func (a *adminService) ListPayments(ctx context.Context, params domain.Params) (_ *domain.Paginated, err error) {
	ctx, op := a.begin(ctx, "ListPayments", "list_payments")
	defer func() { op.End(err) }()

	params.Status = strings.ToUpper(params.Status)
	payments, total, err := a.paymentRepository.FindPaginated(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return service.Page(payments, total, params), nil
}

// ReviewPayment implements service.AdminServices. Approval pays the member
// and moves them to the back of the queue in the same transaction; the
// payee check is repeated under the member locks.
func (a *adminService) ReviewPayment(ctx context.Context, paymentID uint64, decision domain.ReviewDecision, reviewerID uint64) (_ *domain.StokvelaPayment, err error) {
	ctx, op := a.begin(ctx, "ReviewPayment", "review_payment")
	defer func() { op.End(err) }()
	op.Span().SetAttributes(attribute.Int64("payment.id", int64(paymentID)), attribute.String("payment.decision", string(decision)))

	if !validDecision(decision) {
		return nil, common.ErrInvalidDecision
	}

	tx := a.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer tx.Rollback()

	payments := paymentrepo.NewPaymentRepository(tx, a.meter, a.tracer, a.log)
	stokvelas := stokvelarepo.NewStokvelaRepository(tx, a.meter, a.tracer, a.log)

	payment, err := payments.FindByIDForUpdate(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("lock payment: %w", err)
	}
	if payment == nil {
		return nil, common.ErrPaymentNotFound
	}
	if payment.Status != domain.PaymentPending {
		return nil, common.ErrPaymentNotPending
	}

	if decision == domain.DecisionApprove {
		if err := a.payOut(ctx, stokvelas, payment); err != nil {
			return nil, err
		}
		payment.Status = domain.PaymentApproved
	} else {
		payment.Status = domain.PaymentRejected
	}

	reviewedAt := a.now().UTC()
	payment.ReviewedBy = &reviewerID
	payment.ReviewedAt = &reviewedAt

	if err := payments.UpdateStatus(ctx, payment); err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("commit review: %w", err)
	}

	a.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("subject", "payment"),
		attribute.String("decision", string(decision)),
	))
	if payment.Status == domain.PaymentApproved {
		a.payouts.Add(ctx, payment.Amount)
	}
	a.log.Info("Stokvela payment decided", op.Fields(
		zap.Uint64("payment_id", paymentID),
		zap.String("status", string(payment.Status)),
		zap.Uint64("reviewer_id", reviewerID),
	)...)
	return payment, nil
}

func (a *adminService) payOut(ctx context.Context, stokvelas repository.StokvelaRepository, payment *domain.StokvelaPayment) error {
	members, err := stokvelas.FindMembersByGroupForUpdate(ctx, payment.GroupID)
	if err != nil {
		return fmt.Errorf("lock members: %w", err)
	}

	queue := domain.RotationMembers(members)
	if _, err := rotation.AuthorizePayment(queue, payment.MemberID); err != nil {
		return err
	}

	var payee *domain.StokvelaMember
	for i := range members {
		if members[i].ID == payment.MemberID {
			payee = &members[i]
			break
		}
	}
	if payee == nil {
		return common.ErrMemberNotFound
	}

	payment.Amount = domain.Pot(members)
	payee.AmountReceived += payment.Amount
	if err := stokvelas.UpdateMember(ctx, payee); err != nil {
		return fmt.Errorf("credit payee: %w", err)
	}

	advanced, err := rotation.Advance(queue)
	if err != nil {
		return err
	}

	reordered := make([]domain.StokvelaMember, len(advanced))
	for i, m := range advanced {
		reordered[i] = domain.StokvelaMember{ID: m.ID, GroupID: m.GroupID, UserID: m.UserID, Position: m.Position}
	}
	if err := stokvelas.UpdatePositions(ctx, reordered); err != nil {
		return fmt.Errorf("advance rotation: %w", err)
	}
	return nil
}

// VerifyMember implements service.AdminServices.
func (a *adminService) VerifyMember(ctx context.Context, memberID uint64, verified bool) (_ *domain.StokvelaMember, err error) {
	ctx, op := a.begin(ctx, "VerifyMember", "verify_member")
	defer func() { op.End(err) }()

	member, err := a.stokvelaRepository.FindMemberByID(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("find member: %w", err)
	}
	if member == nil {
		return nil, common.ErrMemberNotFound
	}

	member.Verified = verified
	if err := a.stokvelaRepository.UpdateMember(ctx, member); err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}

	a.log.Info("Stokvela member verification changed", op.Fields(
		zap.Uint64("member_id", memberID),
		zap.Bool("verified", verified),
	)...)
	return member, nil
}

// UpdateIndex implements service.AdminServices. The new value is stored
// first; a failed broadcast is logged and does not fail the update.
func (a *adminService) UpdateIndex(ctx context.Context, name string, value float64) (_ *domain.InvestmentIndex, err error) {
	ctx, op := a.begin(ctx, "UpdateIndex", "update_index")
	defer func() { op.End(err) }()

	if value <= 0 {
		return nil, common.ErrInvalidAmount
	}
	if name == "" {
		name = domain.DefaultIndexName
	}

	index, err := a.investmentRepository.UpsertIndex(ctx, &domain.InvestmentIndex{Name: name, Value: value})
	if err != nil {
		return nil, fmt.Errorf("store index: %w", err)
	}

	if a.publisher != nil {
		if err := a.publisher.Publish(ctx, *index); err != nil {
			a.log.Warn("Failed to broadcast index update", op.Fields(zap.String("index", name), zap.Error(err))...)
		}
	}
	return index, nil
}

func NewAdminService(
	db *gorm.DB,
	loanRepository repository.LoanRepository,
	paymentRepository repository.PaymentRepository,
	stokvelaRepository repository.StokvelaRepository,
	investmentRepository repository.InvestmentRepository,
	publisher realtime.Publisher,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) service.AdminServices {
	decisions, _ := meter.Int64Counter(
		"service.admin.decisions",
		metric.WithDescription("Number of review decisions taken"),
		metric.WithUnit("{decision}"),
	)

	payouts, _ := meter.Float64Counter(
		"service.admin.payouts",
		metric.WithDescription("Total amount paid out to stokvela members"),
		metric.WithUnit("{ZAR}"),
	)

	return &adminService{
		db:                   db,
		loanRepository:       loanRepository,
		paymentRepository:    paymentRepository,
		stokvelaRepository:   stokvelaRepository,
		investmentRepository: investmentRepository,
		publisher:            publisher,
		now:                  time.Now,
		meter:                meter,
		tracer:               tracer,
		log:                  log,
		ins:                  service.NewInstruments(meter, tracer),
		decisions:            decisions,
		payouts:              payouts,
	}
}
