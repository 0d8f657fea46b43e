package stokvelahandler

import (
	"context"
	"errors"
	"fmt"
	"time"

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

type StokvelaHandler struct {
	stokvelaService service.StokvelaServices
	mediaService    service.MediaServices
	folder          string
	rec             *handler.Recorder
}

func NewStokvelaHandler(
	stokvelaService service.StokvelaServices,
	mediaService service.MediaServices,
	folder string,
	meter metric.Meter,
	tracer trace.Tracer,
	log *zap.Logger,
) *StokvelaHandler {
	return &StokvelaHandler{
		stokvelaService: stokvelaService,
		mediaService:    mediaService,
		folder:          folder,
		rec:             handler.NewRecorder(meter, tracer, log),
	}
}

func memberResponse(m *domain.StokvelaMember) dto.MemberResponse {
	return dto.MemberFromEntity(m, string(rotation.StateOf(m.Rotation())))
}

func (h *StokvelaHandler) CreateGroup(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "CreateGroup")
	defer q.End()

	claims, err := q.Claims()
	if err != nil {
		return q.Unauthorized(err)
	}

	var req dto.CreateGroupRequest
	if err := q.Bind(&req); err != nil {
		return q.Invalid(err)
	}

	group, err := h.stokvelaService.CreateGroup(ctx, dto.CreateGroupToEntity(req, claims.UserID))
	if err != nil {
		return q.Fail(err)
	}

	q.Span().SetAttributes(attribute.Int64("group.id", int64(group.ID)))
	return q.Success(fiber.StatusCreated, dto.GroupFromEntity(group), zap.Uint64("group_id", group.ID))
}

func (h *StokvelaHandler) ListGroups(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "ListGroups")
	defer q.End()

	page, err := h.stokvelaService.ListGroups(ctx, q.Params())
	if err != nil {
		return q.Fail(err)
	}

	groups, _ := page.Data.([]domain.StokvelaGroup)
	return q.Success(fiber.StatusOK, dto.PageFromEntity(page, dto.GroupsFromEntity(groups)))
}

func (h *StokvelaHandler) Join(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "Join")
	defer q.End()

	claims, err := q.Claims()
	if err != nil {
		return q.Unauthorized(err)
	}

	groupID, err := q.ParamID("groupId")
	if err != nil {
		return q.Invalid(err)
	}

	member, err := h.stokvelaService.Join(ctx, groupID, claims.UserID)
	if err != nil {
		return q.Fail(err, zap.Uint64("group_id", groupID))
	}

	return q.Success(fiber.StatusCreated, memberResponse(member),
		zap.Uint64("group_id", groupID),
		zap.Int("position", member.Position),
	)
}

func (h *StokvelaHandler) Members(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "Members")
	defer q.End()

	groupID, err := q.ParamID("groupId")
	if err != nil {
		return q.Invalid(err)
	}

	members, err := h.stokvelaService.Members(ctx, groupID)
	if err != nil {
		return q.Fail(err, zap.Uint64("group_id", groupID))
	}

	res := make([]dto.MemberResponse, len(members))
	for i := range members {
		res[i] = memberResponse(&members[i])
	}
	return q.Success(fiber.StatusOK, res)
}

func (h *StokvelaHandler) Payee(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "Payee")
	defer q.End()

	groupID, err := q.ParamID("groupId")
	if err != nil {
		return q.Invalid(err)
	}

	payee, err := h.stokvelaService.CurrentPayee(ctx, groupID)
	if err != nil {
		return q.Fail(err, zap.Uint64("group_id", groupID))
	}

	var res *dto.MemberResponse
	if payee != nil {
		m := memberResponse(payee)
		res = &m
	}
	return q.Success(fiber.StatusOK, fiber.Map{"payee": res})
}

func (h *StokvelaHandler) Progress(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "Progress")
	defer q.End()

	groupID, err := q.ParamID("groupId")
	if err != nil {
		return q.Invalid(err)
	}

	progress, err := h.stokvelaService.Progress(ctx, groupID)
	if err != nil {
		return q.Fail(err, zap.Uint64("group_id", groupID))
	}

	var payeeState string
	if progress.Payee != nil {
		payeeState = string(rotation.StateOf(progress.Payee.Rotation()))
	}
	return q.Success(fiber.StatusOK, dto.ProgressFromEntity(progress, payeeState))
}

func (h *StokvelaHandler) Contribute(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "Contribute")
	defer q.End()

	claims, err := q.Claims()
	if err != nil {
		return q.Unauthorized(err)
	}

	groupID, err := q.ParamID("groupId")
	if err != nil {
		return q.Invalid(err)
	}

	var req dto.ContributionRequest
	if err := q.Bind(&req); err != nil {
		return q.Invalid(err)
	}

	member, err := h.stokvelaService.Contribute(ctx, groupID, claims.UserID, req.Amount)
	if err != nil {
		return q.Fail(err, zap.Uint64("group_id", groupID))
	}

	return q.Success(fiber.StatusOK, memberResponse(member), zap.Float64("amount", req.Amount))
}

// InitiatePayment checks that the caller may request the payout before the
// proof is uploaded, so a rejected request leaves nothing in storage.
func (h *StokvelaHandler) InitiatePayment(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "InitiatePayment")
	defer q.End()

	claims, err := q.Claims()
	if err != nil {
		return q.Unauthorized(err)
	}

	groupID, err := q.ParamID("groupId")
	if err != nil {
		return q.Invalid(err)
	}

	var req dto.PaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return q.Invalid(fmt.Errorf("cannot parse form: %w", err))
	}
	req.Proof, _ = c.FormFile("proof")
	if err := h.rec.Validate.Struct(req); err != nil {
		return q.Invalid(err)
	}

	if _, err := h.stokvelaService.AuthorizePayout(ctx, groupID, claims.UserID); err != nil {
		if errors.Is(err, rotation.ErrNotCurrentPayee) {
			q.Span().AddEvent("payout_denied")
		}
		return q.Fail(err, zap.Uint64("group_id", groupID), zap.Uint64("user_id", claims.UserID))
	}

	uploadCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	proofURL, err := h.mediaService.Upload(uploadCtx, req.Proof, fmt.Sprintf("%s/stokvela/%d", h.folder, groupID))
	if err != nil {
		return q.Error(err, fiber.StatusBadGateway, "upload_error", "Failed to upload proof of payment")
	}

	payment, err := h.stokvelaService.InitiatePayment(ctx, groupID, claims.UserID, service.PayoutRequest{
		AccountHolderName: req.AccountHolderName,
		Signature:         req.Signature,
		Note:              req.Note,
		ProofURL:          proofURL,
	})
	if err != nil {
		return q.Fail(err, zap.Uint64("group_id", groupID), zap.String("proof_url", proofURL))
	}

	q.Span().SetAttributes(attribute.String("payment.reference", payment.Reference))
	return q.Success(fiber.StatusCreated, dto.PaymentFromEntity(payment),
		zap.String("reference", payment.Reference),
		zap.Float64("amount", payment.Amount),
	)
}

func (h *StokvelaHandler) Payments(c *fiber.Ctx) error {
	ctx, q := h.rec.Begin(c, "Payments")
	defer q.End()

	groupID, err := q.ParamID("groupId")
	if err != nil {
		return q.Invalid(err)
	}

	page, err := h.stokvelaService.Payments(ctx, groupID, q.Params())
	if err != nil {
		return q.Fail(err, zap.Uint64("group_id", groupID))
	}

	payments, _ := page.Data.([]domain.StokvelaPayment)
	return q.Success(fiber.StatusOK, dto.PageFromEntity(page, dto.PaymentsFromEntity(payments)))
}
