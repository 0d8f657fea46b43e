package service

import (
	"context"
	"mime/multipart"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/dto"
	"github.com/greenfina/greenfina/pkg/loanterms"
)

type MediaServices interface {
	Upload(ctx context.Context, file *multipart.FileHeader, folder string) (string, error)
}

type AuthServices interface {
	Register(ctx context.Context, user *domain.User, plainPassword string) (*domain.User, error)
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
	Me(ctx context.Context, userID uint64) (*domain.User, error)
}

// LoanDocuments are the uploads attached to an application.
type LoanDocuments struct {
	BankStatement *multipart.FileHeader
	IdDocument    *multipart.FileHeader
}

// PayoutRequest carries what the payee submits with a payout request. The
// signature is a typed attestation, not a cryptographic one.
type PayoutRequest struct {
	AccountHolderName string
	Signature         string
	Note              string
	ProofURL          string
}

type LoanServices interface {
	Quote(ctx context.Context, category string, principal float64, termMonths int) (*loanterms.Quote, error)
	FlatQuote(ctx context.Context, principal float64) (*loanterms.FlatQuote, error)
	Affordability(ctx context.Context, flow string, loanAmount, monthlyIncome float64) (*dto.AffordabilityResponse, error)
	Apply(ctx context.Context, userID uint64, loan *domain.LoanApplication, docs LoanDocuments) (*domain.LoanApplication, error)
	MyLoans(ctx context.Context, userID uint64, params domain.Params) (*domain.Paginated, error)
	MyLoan(ctx context.Context, userID, loanID uint64) (*domain.LoanApplication, error)

	GetDraft(ctx context.Context, userID uint64) (*domain.LoanDraft, error)
	// SaveDraftStep copies the section of patch that belongs to step into the
	// stored draft and returns a snapshot of the result.
	SaveDraftStep(ctx context.Context, userID uint64, step domain.ApplicationStep, patch domain.LoanDraft) (*domain.LoanDraft, error)
	DiscardDraft(ctx context.Context, userID uint64) error
}

type AdminServices interface {
	ListLoans(ctx context.Context, params domain.Params) (*domain.Paginated, error)
	ReviewLoan(ctx context.Context, loanID uint64, decision domain.ReviewDecision, note string, reviewerID uint64) (*domain.LoanApplication, error)
	ListPayments(ctx context.Context, params domain.Params) (*domain.Paginated, error)
	ReviewPayment(ctx context.Context, paymentID uint64, decision domain.ReviewDecision, reviewerID uint64) (*domain.StokvelaPayment, error)
	VerifyMember(ctx context.Context, memberID uint64, verified bool) (*domain.StokvelaMember, error)
	UpdateIndex(ctx context.Context, name string, value float64) (*domain.InvestmentIndex, error)
}

type StokvelaServices interface {
	CreateGroup(ctx context.Context, group *domain.StokvelaGroup) (*domain.StokvelaGroup, error)
	ListGroups(ctx context.Context, params domain.Params) (*domain.Paginated, error)
	Join(ctx context.Context, groupID, userID uint64) (*domain.StokvelaMember, error)
	Members(ctx context.Context, groupID uint64) ([]domain.StokvelaMember, error)
	Progress(ctx context.Context, groupID uint64) (*domain.GroupProgress, error)
	Contribute(ctx context.Context, groupID, userID uint64, amount float64) (*domain.StokvelaMember, error)
	CurrentPayee(ctx context.Context, groupID uint64) (*domain.StokvelaMember, error)
	// AuthorizePayout is the read-only check run before the proof is uploaded.
	AuthorizePayout(ctx context.Context, groupID, userID uint64) (*domain.StokvelaMember, error)
	InitiatePayment(ctx context.Context, groupID, userID uint64, request PayoutRequest) (*domain.StokvelaPayment, error)
	Payments(ctx context.Context, groupID uint64, params domain.Params) (*domain.Paginated, error)
}

type InvestmentServices interface {
	Invest(ctx context.Context, userID uint64, amount float64) (*domain.Investment, error)
	Portfolio(ctx context.Context, userID uint64) (*domain.Portfolio, error)
	CurrentIndex(ctx context.Context) (*domain.InvestmentIndex, error)
}
