package adminhandler

import (
	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/dto"
	"github.com/greenfina/greenfina/internal/handler"
	"github.com/greenfina/greenfina/internal/service"
	"github.com/greenfina/greenfina/pkg/rotation"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type AdminHandler struct {
	adminService service.AdminServices
	rec          *handler.Recorder
}

func NewAdminHandler(
	adminService service.AdminServices,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		rec:          handler.NewRecorder(meter, tracer, log),
	}
}

func (h *AdminHandler) ListLoans(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "ListLoans")
	defer q.End()

	params := q.Params()
	page, err := h.adminService.ListLoans(ctx, params)
	if err != nil {
		return q.Fail(err, zap.String("status", params.Status))
	}

	loans, _ := page.Data.([]domain.LoanApplication)
	return q.Success(fiber.StatusOK, dto.PageFromEntity(page, dto.LoansFromEntity(loans)),
		zap.Int64("total", page.Total),
	)
}

func (h *AdminHandler) ReviewLoan(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "ReviewLoan")
	defer q.End()

	claims, err := q.Claims()
	if err != nil {
		return q.Unauthorized(err)
	}

	loanID, err := q.ParamID("loanId")
	if err != nil {
		return q.Invalid(err)
	}

	var req dto.ReviewRequest
	if err := q.Bind(&req); err != nil {
		return q.Invalid(err)
	}

	loan, err := h.adminService.ReviewLoan(ctx, loanID, req.Decision, req.Note, claims.UserID)
	if err != nil {
		return q.Fail(err, zap.Uint64("loan_id", loanID))
	}

	q.Span().SetAttributes(attribute.String("loan.status", string(loan.Status)))
	return q.Success(fiber.StatusOK, dto.LoanFromEntity(loan),
		zap.Uint64("loan_id", loanID),
		zap.String("decision", string(req.Decision)),
		zap.Uint64("reviewer_id", claims.UserID),
	)
}

func (h *AdminHandler) ListPayments(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "ListPayments")
	defer q.End()

	params := q.Params()
	page, err := h.adminService.ListPayments(ctx, params)
	if err != nil {
		return q.Fail(err, zap.String("status", params.Status))
	}

	payments, _ := page.Data.([]domain.StokvelaPayment)
	return q.Success(fiber.StatusOK, dto.PageFromEntity(page, dto.PaymentsFromEntity(payments)),
		zap.Int64("total", page.Total),
	)
}

func (h *AdminHandler) ReviewPayment(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "ReviewPayment")
	defer q.End()

	claims, err := q.Claims()
	if err != nil {
		return q.Unauthorized(err)
	}

	paymentID, err := q.ParamID("paymentId")
	if err != nil {
		return q.Invalid(err)
	}

	var req dto.ReviewRequest
	if err := q.Bind(&req); err != nil {
		return q.Invalid(err)
	}

	payment, err := h.adminService.ReviewPayment(ctx, paymentID, req.Decision, claims.UserID)
	if err != nil {
		return q.Fail(err, zap.Uint64("payment_id", paymentID))
	}

	return q.Success(fiber.StatusOK, dto.PaymentFromEntity(payment),
		zap.Uint64("payment_id", paymentID),
		zap.String("decision", string(req.Decision)),
	)
}

func (h *AdminHandler) VerifyMember(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "VerifyMember")
	defer q.End()

	memberID, err := q.ParamID("memberId")
	if err != nil {
		return q.Invalid(err)
	}

	var req dto.VerifyMemberRequest
	if err := q.Bind(&req); err != nil {
		return q.Invalid(err)
	}

	member, err := h.adminService.VerifyMember(ctx, memberID, *req.Verified)
	if err != nil {
		return q.Fail(err, zap.Uint64("member_id", memberID))
	}

	return q.Success(fiber.StatusOK, dto.MemberFromEntity(member, string(rotation.StateOf(member.Rotation()))), zap.Bool("verified", member.Verified))
}

func (h *AdminHandler) UpdateIndex(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "UpdateIndex")
	defer q.End()

	var req dto.UpdateIndexRequest
	if err := q.Bind(&req); err != nil {
		return q.Invalid(err)
	}

	index, err := h.adminService.UpdateIndex(ctx, req.Name, req.Value)
	if err != nil {
		return q.Fail(err)
	}

	return q.Success(fiber.StatusOK, dto.IndexFromEntity(index),
		zap.String("index", index.Name),
		zap.Float64("value", index.Value),
	)
}
