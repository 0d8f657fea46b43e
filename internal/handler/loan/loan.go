package loanhandler

import (
	"context"
	"fmt"
	"time"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/dto"
	"github.com/greenfina/greenfina/internal/handler"
	"github.com/greenfina/greenfina/internal/service"
	"github.com/greenfina/greenfina/pkg/common"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// applyTimeout covers both document uploads.
const applyTimeout = 60 * time.Second

type LoanHandler struct {
	loanService service.LoanServices
	rec         *handler.Recorder
}

func NewLoanHandler(
	loanService service.LoanServices,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
		rec:         handler.NewRecorder(meter, tracer, log),
	}
}

func (h *LoanHandler) Quote(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "Quote")
	defer q.End()

	var req dto.QuoteRequest
	if err := q.Bind(&req); err != nil {
		return q.Invalid(err)
	}

	q.Span().SetAttributes(
		attribute.String("loan.category", req.Category),
		attribute.Float64("loan.principal", req.Principal),
		attribute.Int("loan.term_months", req.TermMonths),
	)

	quote, err := h.loanService.Quote(ctx, req.Category, req.Principal, req.TermMonths)
	if err != nil {
		return q.Fail(err, zap.String("category", req.Category))
	}

	return q.Success(fiber.StatusOK, dto.QuoteFromTerms(req.Category, *quote))
}

func (h *LoanHandler) FlatQuote(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "FlatQuote")
	defer q.End()

	var req dto.FlatQuoteRequest
	if err := q.Bind(&req); err != nil {
		return q.Invalid(err)
	}

	quote, err := h.loanService.FlatQuote(ctx, req.Principal)
	if err != nil {
		return q.Fail(err)
	}

	return q.Success(fiber.StatusOK, dto.FlatQuoteFromTerms(*quote))
}

func (h *LoanHandler) Affordability(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "Affordability")
	defer q.End()

	var req dto.AffordabilityRequest
	if err := q.Bind(&req); err != nil {
		return q.Invalid(err)
	}

	res, err := h.loanService.Affordability(ctx, req.Flow, req.LoanAmount, req.MonthlyIncome)
	if err != nil {
		return q.Fail(err, zap.String("flow", req.Flow))
	}

	return q.Success(fiber.StatusOK, res)
}

func (h *LoanHandler) Apply(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "Apply")
	defer q.End()

	claims, err := q.Claims()
	if err != nil {
		return q.Unauthorized(err)
	}

	var req dto.LoanApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return q.Invalid(fmt.Errorf("cannot parse form: %w", err))
	}
	req.BankStatement, _ = c.FormFile("bank_statement")
	req.IdDocument, _ = c.FormFile("id_document")

	if err := h.rec.Validate.Struct(req); err != nil {
		return q.Invalid(err)
	}

	loan := &domain.LoanApplication{
		Category:      req.Category,
		Principal:     req.Principal,
		TermMonths:    req.TermMonths,
		Purpose:       req.Purpose,
		MonthlyIncome: req.MonthlyIncome,
	}

	serviceCtx, cancel := context.WithTimeout(ctx, applyTimeout)
	defer cancel()

	created, err := h.loanService.Apply(serviceCtx, claims.UserID, loan, service.LoanDocuments{
		BankStatement: req.BankStatement,
		IdDocument:    req.IdDocument,
	})
	if err != nil {
		return q.Fail(err, zap.Uint64("user_id", claims.UserID))
	}

	q.Span().SetAttributes(
		attribute.Int64("loan.id", int64(created.ID)),
		attribute.Bool("loan.affordable", created.Affordable),
	)
	return q.Success(fiber.StatusCreated, dto.LoanFromEntity(created),
		zap.Uint64("loan_id", created.ID),
		zap.Bool("affordable", created.Affordable),
	)
}

func (h *LoanHandler) MyLoans(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "MyLoans")
	defer q.End()

	claims, err := q.Claims()
	if err != nil {
		return q.Unauthorized(err)
	}

	page, err := h.loanService.MyLoans(ctx, claims.UserID, q.Params())
	if err != nil {
		return q.Fail(err)
	}

	loans, _ := page.Data.([]domain.LoanApplication)
	return q.Success(fiber.StatusOK, dto.PageFromEntity(page, dto.LoansFromEntity(loans)))
}

func (h *LoanHandler) MyLoan(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "MyLoan")
	defer q.End()

	claims, err := q.Claims()
	if err != nil {
		return q.Unauthorized(err)
	}

	loanID, err := q.ParamID("loanId")
	if err != nil {
		return q.Invalid(err)
	}

	loan, err := h.loanService.MyLoan(ctx, claims.UserID, loanID)
	if err != nil {
		return q.Fail(err, zap.Uint64("loan_id", loanID))
	}

	return q.Success(fiber.StatusOK, dto.LoanFromEntity(loan))
}

func (h *LoanHandler) GetDraft(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "GetDraft")
	defer q.End()

	claims, err := q.Claims()
	if err != nil {
		return q.Unauthorized(err)
	}

	draft, err := h.loanService.GetDraft(ctx, claims.UserID)
	if err != nil {
		return q.Fail(err)
	}

	return q.Success(fiber.StatusOK, dto.DraftFromEntity(draft))
}

func (h *LoanHandler) SaveDraftStep(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "SaveDraftStep")
	defer q.End()

	claims, err := q.Claims()
	if err != nil {
		return q.Unauthorized(err)
	}

	step, err := domain.ParseStep(c.Params("step"))
	if err != nil {
		return q.Fail(fmt.Errorf("%w: %v", common.ErrUnknownStep, err))
	}
	q.Span().SetAttributes(attribute.String("draft.step", string(step)))

	patch, err := h.bindStep(q, step)
	if err != nil {
		return q.Invalid(err)
	}

	draft, err := h.loanService.SaveDraftStep(ctx, claims.UserID, step, patch)
	if err != nil {
		return q.Fail(err, zap.String("step", string(step)))
	}

	return q.Success(fiber.StatusOK, dto.DraftFromEntity(draft), zap.String("step", string(step)))
}

// bindStep decodes the body for step into the matching draft section.
func (h *LoanHandler) bindStep(q *handler.Request, step domain.ApplicationStep) (domain.LoanDraft, error) {
	var patch domain.LoanDraft

	switch step {
	case domain.StepDetails:
		var req dto.DraftDetailsRequest
		if err := q.Bind(&req); err != nil {
			return patch, err
		}
		patch.Details = &domain.DraftDetails{
			Category:   req.Category,
			Principal:  req.Principal,
			TermMonths: req.TermMonths,
			Purpose:    req.Purpose,
		}
	case domain.StepFinancials:
		var req dto.DraftFinancialsRequest
		if err := q.Bind(&req); err != nil {
			return patch, err
		}
		patch.Financials = &domain.DraftFinancials{
			MonthlyIncome:    req.MonthlyIncome,
			EmploymentStatus: req.EmploymentStatus,
			Employer:         req.Employer,
		}
	case domain.StepDocuments:
		var req dto.DraftDocumentsRequest
		if err := q.Bind(&req); err != nil {
			return patch, err
		}
		patch.Documents = &domain.DraftDocuments{
			BankStatementName: req.BankStatementName,
			IdDocumentName:    req.IdDocumentName,
		}
	case domain.StepReview:
		var req dto.DraftReviewRequest
		if err := q.Bind(&req); err != nil {
			return patch, err
		}
		patch.Review = &domain.DraftReview{Confirmed: req.Confirmed}
	}

	return patch, nil
}

func (h *LoanHandler) DiscardDraft(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "DiscardDraft")
	defer q.End()

	claims, err := q.Claims()
	if err != nil {
		return q.Unauthorized(err)
	}

	if err := h.loanService.DiscardDraft(ctx, claims.UserID); err != nil {
		return q.Fail(err)
	}

	return q.Success(fiber.StatusOK, fiber.Map{"message": "Draft discarded"})
}
