package dto

import (
	"mime/multipart"
	"strings"
	"time"

	"github.com/greenfina/greenfina/internal/domain"
)

type RegisterRequest struct {
	FullName      string  `json:"full_name" validate:"required,min=2,max=255"`
	Email         string  `json:"email" validate:"required,email"`
	Phone         string  `json:"phone" validate:"omitempty,e164"`
	Password      string  `json:"password" validate:"required,min=8,max=72"`
	MonthlyIncome float64 `json:"monthly_income" validate:"gte=0"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// QuoteRequest leaves range checks to the loan policy so that a bad value
// comes back as a field-level terms error.
type QuoteRequest struct {
	Category   string  `json:"category" validate:"required"`
	Principal  float64 `json:"principal"`
	TermMonths int     `json:"term_months"`
}

type FlatQuoteRequest struct {
	Principal float64 `json:"principal"`
}

type AffordabilityRequest struct {
	Flow          string  `json:"flow" validate:"omitempty,oneof=quote application"`
	LoanAmount    float64 `json:"loan_amount" validate:"gte=0"`
	MonthlyIncome float64 `json:"monthly_income" validate:"gte=0"`
}

type LoanApplicationRequest struct {
	Category      string                `form:"category" validate:"required"`
	Principal     float64               `form:"principal"`
	TermMonths    int                   `form:"term_months"`
	Purpose       string                `form:"purpose" validate:"max=255"`
	MonthlyIncome float64               `form:"monthly_income" validate:"required,gt=0"`
	BankStatement *multipart.FileHeader `form:"bank_statement" validate:"required"`
	IdDocument    *multipart.FileHeader `form:"id_document" validate:"required"`
}

type DraftDetailsRequest struct {
	Category   string  `json:"category" validate:"required"`
	Principal  float64 `json:"principal"`
	TermMonths int     `json:"term_months"`
	Purpose    string  `json:"purpose" validate:"max=255"`
}

type DraftFinancialsRequest struct {
	MonthlyIncome    float64 `json:"monthly_income" validate:"required,gt=0"`
	EmploymentStatus string  `json:"employment_status" validate:"required,oneof=employed self_employed student unemployed"`
	Employer         string  `json:"employer" validate:"max=255"`
}

type DraftDocumentsRequest struct {
	BankStatementName string `json:"bank_statement_name" validate:"required,max=255"`
	IdDocumentName    string `json:"id_document_name" validate:"required,max=255"`
}

type DraftReviewRequest struct {
	Confirmed bool `json:"confirmed" validate:"required"`
}

type ReviewRequest struct {
	Decision domain.ReviewDecision `json:"decision" validate:"required,oneof=APPROVE REJECT"`
	Note     string                `json:"note" validate:"max=500"`
}

type VerifyMemberRequest struct {
	Verified *bool `json:"verified" validate:"required"`
}

type CreateGroupRequest struct {
	Name               string  `json:"name" validate:"required,min=3,max=100"`
	Description        string  `json:"description" validate:"max=500"`
	ContributionAmount float64 `json:"contribution_amount" validate:"required,gt=0"`
	MaxMembers         int     `json:"max_members" validate:"required,min=2,max=100"`
	StartDate          string  `json:"start_date" validate:"required,datetime=2006-01-02"`
}

type ContributionRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type PaymentRequest struct {
	AccountHolderName string                `form:"account_holder_name" validate:"required,max=255"`
	Signature         string                `form:"signature" validate:"required,max=255"`
	Note              string                `form:"note" validate:"max=500"`
	Proof             *multipart.FileHeader `form:"proof" validate:"required"`
}

type InvestRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

type UpdateIndexRequest struct {
	Name  string  `json:"name" validate:"omitempty,max=50"`
	Value float64 `json:"value" validate:"required,gt=0"`
}

// --- Mapping --- //

func RegisterToEntity(req RegisterRequest) *domain.User {
	return &domain.User{
		FullName:      strings.TrimSpace(req.FullName),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:         req.Phone,
		MonthlyIncome: req.MonthlyIncome,
		Role:          domain.UserRole,
	}
}

func CreateGroupToEntity(req CreateGroupRequest, createdBy uint64) *domain.StokvelaGroup {
	startDate, _ := time.Parse("2006-01-02", req.StartDate)
	return &domain.StokvelaGroup{
		Name:               strings.TrimSpace(req.Name),
		Description:        req.Description,
		ContributionAmount: req.ContributionAmount,
		MaxMembers:         req.MaxMembers,
		StartDate:          startDate,
		CreatedBy:          createdBy,
	}
}
