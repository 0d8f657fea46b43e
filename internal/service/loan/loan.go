package loansrv

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"sync"
	"time"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/dto"
	"github.com/greenfina/greenfina/internal/repository"
	"github.com/greenfina/greenfina/internal/service"
	"github.com/greenfina/greenfina/pkg/common"
	"github.com/greenfina/greenfina/pkg/instrument"
	"github.com/greenfina/greenfina/pkg/loanterms"
	"github.com/greenfina/greenfina/pkg/money"
	"github.com/greenfina/greenfina/pkg/policy"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type loanService struct {
	loanRepository  repository.LoanRepository
	draftRepository repository.DraftRepository
	media           service.MediaServices
	policy          *policy.Policy
	folder          string
	now             func() time.Time

	ins               *instrument.Instruments
	log               *zap.Logger
	quotesIssued      metric.Int64Counter
	applicationsTaken metric.Int64Counter
}

func (l *loanService) begin(ctx context.Context, name, operation string) (context.Context, *instrument.Op) {
	return l.ins.Begin(ctx, "service.loan."+name,
		attribute.String("operation", operation),
		attribute.String("service", "loan"),
	)
}

// terms validates the inputs against the category and prices them.
func (l *loanService) terms(categoryName string, principal float64, termMonths int) (policy.Category, loanterms.Quote, error) {
	category, err := l.policy.Category(categoryName)
	if err != nil {
		return policy.Category{}, loanterms.Quote{}, err
	}
	if err := category.ValidateTerms(principal, termMonths); err != nil {
		return policy.Category{}, loanterms.Quote{}, err
	}

	quote, err := loanterms.AmortizedMonthlyPayment(principal, category.AnnualRatePercent, termMonths)
	if err != nil {
		return policy.Category{}, loanterms.Quote{}, err
	}
	return category, quote, nil
}

// Quote implements service.LoanServices.
func (l *loanService) Quote(ctx context.Context, category string, principal float64, termMonths int) (_ *loanterms.Quote, err error) {
	ctx, op := l.begin(ctx, "Quote", "quote")
	defer func() { op.End(err) }()

	_, quote, err := l.terms(category, principal, termMonths)
	if err != nil {
		return nil, err
	}

	l.quotesIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("product", "amortized")))
	return &quote, nil
}

// FlatQuote implements service.LoanServices.
func (l *loanService) FlatQuote(ctx context.Context, principal float64) (_ *loanterms.FlatQuote, err error) {
	ctx, op := l.begin(ctx, "FlatQuote", "flat_quote")
	defer func() { op.End(err) }()

	quote, err := loanterms.FlatInterestReturnAmount(principal, l.policy.FlatRatePercent)
	if err != nil {
		return nil, err
	}

	l.quotesIssued.Add(ctx, 1, metric.WithAttributes(attribute.String("product", "flat")))
	return &quote, nil
}

// Affordability implements service.LoanServices. An empty flow means the
// quote calculator.
func (l *loanService) Affordability(ctx context.Context, flow string, loanAmount, monthlyIncome float64) (_ *dto.AffordabilityResponse, err error) {
	_, op := l.begin(ctx, "Affordability", "affordability")
	defer func() { op.End(err) }()

	if flow == "" {
		flow = policy.FlowQuote
	}
	fraction, err := l.policy.Fraction(flow)
	if err != nil {
		return nil, err
	}

	return affordability(flow, loanAmount, monthlyIncome, fraction), nil
}

func affordability(flow string, loanAmount, monthlyIncome, fraction float64) *dto.AffordabilityResponse {
	limit := loanterms.AffordabilityLimit(monthlyIncome, fraction)
	return &dto.AffordabilityResponse{
		Flow:              flow,
		Affordable:        loanterms.CheckAffordability(loanAmount, monthlyIncome, fraction),
		MaxIncomeFraction: fraction,
		MaxLoanAmount:     money.Round2(limit),
		MaxLoanFormatted:  money.FormatCurrency(limit),
	}
}

// Apply implements service.LoanServices. Unaffordable applications are
// accepted and flagged for the reviewer.
func (l *loanService) Apply(ctx context.Context, userID uint64, loan *domain.LoanApplication, docs service.LoanDocuments) (_ *domain.LoanApplication, err error) {
	ctx, op := l.begin(ctx, "Apply", "apply")
	defer func() { op.End(err) }()
	op.Span().SetAttributes(
		attribute.String("loan.category", loan.Category),
		attribute.Float64("loan.principal", loan.Principal),
		attribute.Int("loan.term_months", loan.TermMonths),
	)

	category, quote, err := l.terms(loan.Category, loan.Principal, loan.TermMonths)
	if err != nil {
		return nil, err
	}

	fraction, err := l.policy.Fraction(policy.FlowApplication)
	if err != nil {
		return nil, err
	}

	bankStatementURL, idDocumentURL, err := l.uploadDocuments(ctx, userID, docs)
	if err != nil {
		return nil, err
	}

	loan.UserID = userID
	loan.Category = category.Name
	loan.AnnualRatePercent = quote.AnnualRatePercent
	loan.MonthlyPayment = quote.MonthlyPayment
	loan.TotalRepayment = quote.TotalRepayment
	loan.TotalInterest = quote.TotalInterest
	loan.Affordable = loanterms.CheckAffordability(loan.Principal, loan.MonthlyIncome, fraction)
	loan.BankStatementUrl = bankStatementURL
	loan.IdDocumentUrl = idDocumentURL
	loan.Status = domain.LoanPending

	created, err := l.loanRepository.Create(ctx, loan)
	if err != nil {
		return nil, fmt.Errorf("create loan application: %w", err)
	}

	if err := l.draftRepository.Delete(ctx, userID); err != nil {
		l.log.Warn("Failed to discard loan draft after submission", op.Fields(zap.Uint64("user_id", userID), zap.Error(err))...)
	}

	l.applicationsTaken.Add(ctx, 1, metric.WithAttributes(
		attribute.String("category", category.Name),
		attribute.Bool("affordable", created.Affordable),
	))
	l.log.Info("Loan application submitted", op.Fields(
		zap.Uint64("loan_id", created.ID),
		zap.Uint64("user_id", userID),
		zap.Bool("affordable", created.Affordable),
	)...)
	return created, nil
}

type uploadResult struct {
	field string
	url   string
	err   error
}

// uploadDocuments pushes both documents in parallel and fails if either does.
func (l *loanService) uploadDocuments(ctx context.Context, userID uint64, docs service.LoanDocuments) (string, string, error) {
	folder := fmt.Sprintf("%s/loans/%d", l.folder, userID)

	var wg sync.WaitGroup
	results := make(chan uploadResult, 2)

	upload := func(field string, header *multipart.FileHeader) {
		defer wg.Done()
		url, err := l.media.Upload(ctx, header, folder)
		results <- uploadResult{field: field, url: url, err: err}
	}

	wg.Add(2)
	go upload("bank_statement", docs.BankStatement)
	go upload("id_document", docs.IdDocument)

	go func() {
		wg.Wait()
		close(results)
	}()

	var bankStatementURL, idDocumentURL string
	var errs []error
	for res := range results {
		if res.err != nil {
			errs = append(errs, fmt.Errorf("upload %s: %w", res.field, res.err))
			continue
		}
		if res.field == "bank_statement" {
			bankStatementURL = res.url
		} else {
			idDocumentURL = res.url
		}
	}
	if len(errs) > 0 {
		return "", "", errors.Join(errs...)
	}
	return bankStatementURL, idDocumentURL, nil
}

// MyLoans implements service.LoanServices.
func (l *loanService) MyLoans(ctx context.Context, userID uint64, params domain.Params) (_ *domain.Paginated, err error) {
	ctx, op := l.begin(ctx, "MyLoans", "my_loans")
	defer func() { op.End(err) }()

	loans, total, err := l.loanRepository.FindPaginatedByUser(ctx, userID, params)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return service.Page(loans, total, params), nil
}

// MyLoan implements service.LoanServices. Another user's application reads
// as not found.
func (l *loanService) MyLoan(ctx context.Context, userID, loanID uint64) (_ *domain.LoanApplication, err error) {
	ctx, op := l.begin(ctx, "MyLoan", "my_loan")
	defer func() { op.End(err) }()

	loan, err := l.loanRepository.FindByID(ctx, loanID)
	if err != nil {
		return nil, fmt.Errorf("find loan: %w", err)
	}
	if loan == nil || loan.UserID != userID {
		return nil, common.ErrLoanNotFound
	}
	return loan, nil
}

// GetDraft implements service.LoanServices.
func (l *loanService) GetDraft(ctx context.Context, userID uint64) (_ *domain.LoanDraft, err error) {
	ctx, op := l.begin(ctx, "GetDraft", "get_draft")
	defer func() { op.End(err) }()

	draft, err := l.draftRepository.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if draft == nil {
		return nil, common.ErrDraftNotFound
	}
	snapshot := draft.Snapshot()
	return &snapshot, nil
}

// SaveDraftStep implements service.LoanServices. Saving a step that was
// already completed drops everything entered after it.
func (l *loanService) SaveDraftStep(ctx context.Context, userID uint64, step domain.ApplicationStep, patch domain.LoanDraft) (_ *domain.LoanDraft, err error) {
	ctx, op := l.begin(ctx, "SaveDraftStep", "save_draft_step")
	defer func() { op.End(err) }()
	op.Span().SetAttributes(attribute.String("draft.step", string(step)))

	if step.Index() < 0 {
		return nil, common.ErrUnknownStep
	}

	draft, err := l.draftRepository.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	if draft == nil {
		draft = &domain.LoanDraft{UserID: userID}
	}
	if !draft.CanSave(step) {
		return nil, fmt.Errorf("%w: complete %s first", common.ErrDraftStepOrder, draft.NextStep())
	}

	switch step {
	case domain.StepDetails:
		if patch.Details == nil {
			return nil, fmt.Errorf("%w: missing %s section", common.ErrUnknownStep, step)
		}
		if _, _, err := l.terms(patch.Details.Category, patch.Details.Principal, patch.Details.TermMonths); err != nil {
			return nil, err
		}
		d := *patch.Details
		draft.Details = &d
	case domain.StepFinancials:
		if patch.Financials == nil {
			return nil, fmt.Errorf("%w: missing %s section", common.ErrUnknownStep, step)
		}
		f := *patch.Financials
		draft.Financials = &f
	case domain.StepDocuments:
		if patch.Documents == nil {
			return nil, fmt.Errorf("%w: missing %s section", common.ErrUnknownStep, step)
		}
		d := *patch.Documents
		draft.Documents = &d
	case domain.StepReview:
		if patch.Review == nil {
			return nil, fmt.Errorf("%w: missing %s section", common.ErrUnknownStep, step)
		}
		r := *patch.Review
		draft.Review = &r
	}

	if step.Index() <= draft.Completed.Index() {
		draft.Truncate(step)
	} else {
		draft.Completed = step
	}
	draft.UserID = userID
	draft.UpdatedAt = l.now().UTC()

	if err := l.draftRepository.Save(ctx, draft); err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}

	l.log.Debug("Loan draft step saved", op.Fields(zap.Uint64("user_id", userID), zap.String("step", string(step)))...)
	snapshot := draft.Snapshot()
	return &snapshot, nil
}

// DiscardDraft implements service.LoanServices.
func (l *loanService) DiscardDraft(ctx context.Context, userID uint64) (err error) {
	ctx, op := l.begin(ctx, "DiscardDraft", "discard_draft")
	defer func() { op.End(err) }()

	if err := l.draftRepository.Delete(ctx, userID); err != nil {
		return fmt.Errorf("discard draft: %w", err)
	}
	return nil
}

func NewLoanService(
	loanRepository repository.LoanRepository,
	draftRepository repository.DraftRepository,
	media service.MediaServices,
	loanPolicy *policy.Policy,
	folder string,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) service.LoanServices {
	quotesIssued, _ := meter.Int64Counter(
		"service.loans.quoted",
		metric.WithDescription("Number of loan quotes issued"),
		metric.WithUnit("{quote}"),
	)

	applicationsTaken, _ := meter.Int64Counter(
		"service.loans.applied",
		metric.WithDescription("Number of loan applications submitted"),
		metric.WithUnit("{application}"),
	)

	if loanPolicy == nil {
		loanPolicy = policy.Default()
	}

	return &loanService{
		loanRepository:    loanRepository,
		draftRepository:   draftRepository,
		media:             media,
		policy:            loanPolicy,
		folder:            folder,
		now:               time.Now,
		ins:               service.NewInstruments(meter, tracer),
		log:               log,
		quotesIssued:      quotesIssued,
		applicationsTaken: applicationsTaken,
	}
}
