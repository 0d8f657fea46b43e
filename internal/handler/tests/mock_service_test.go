package handler_test

import (
	"context"
	"mime/multipart"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/dto"
	"github.com/greenfina/greenfina/internal/service"
	"github.com/greenfina/greenfina/pkg/loanterms"
)

// --- Auth --- //

type MockAuthService struct {
	MockUser        *domain.User
	MockLoginResult *dto.LoginResponse
	MockError       error

	RegisteredPassword string
}

var _ service.AuthServices = (*MockAuthService)(nil)

func (m *MockAuthService) Register(ctx context.Context, user *domain.User, plainPassword string) (*domain.User, error) {
	m.RegisteredPassword = plainPassword
	if m.MockError != nil {
		return nil, m.MockError
	}
	created := *user
	created.ID = 7
	return &created, nil
}

func (m *MockAuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	return m.MockLoginResult, m.MockError
}

func (m *MockAuthService) Me(ctx context.Context, userID uint64) (*domain.User, error) {
	return m.MockUser, m.MockError
}

// --- Loans --- //

type MockLoanService struct {
	MockQuoteResult         *loanterms.Quote
	MockFlatQuoteResult     *loanterms.FlatQuote
	MockAffordabilityResult *dto.AffordabilityResponse
	MockLoanResult          *domain.LoanApplication
	MockPageResult          *domain.Paginated
	MockDraftResult         *domain.LoanDraft
	MockError               error

	AppliedUserID uint64
	AppliedLoan   *domain.LoanApplication
	AppliedDocs   service.LoanDocuments
	SavedStep     domain.ApplicationStep
	SavedPatch    domain.LoanDraft
	ListedParams  domain.Params
	Discarded     bool
}

var _ service.LoanServices = (*MockLoanService)(nil)

func (m *MockLoanService) Quote(ctx context.Context, category string, principal float64, termMonths int) (*loanterms.Quote, error) {
	return m.MockQuoteResult, m.MockError
}

func (m *MockLoanService) FlatQuote(ctx context.Context, principal float64) (*loanterms.FlatQuote, error) {
	return m.MockFlatQuoteResult, m.MockError
}

func (m *MockLoanService) Affordability(ctx context.Context, flow string, loanAmount, monthlyIncome float64) (*dto.AffordabilityResponse, error) {
	return m.MockAffordabilityResult, m.MockError
}

func (m *MockLoanService) Apply(ctx context.Context, userID uint64, loan *domain.LoanApplication, docs service.LoanDocuments) (*domain.LoanApplication, error) {
	m.AppliedUserID = userID
	m.AppliedLoan = loan
	m.AppliedDocs = docs
	return m.MockLoanResult, m.MockError
}

func (m *MockLoanService) MyLoans(ctx context.Context, userID uint64, params domain.Params) (*domain.Paginated, error) {
	m.ListedParams = params
	return m.MockPageResult, m.MockError
}

func (m *MockLoanService) MyLoan(ctx context.Context, userID, loanID uint64) (*domain.LoanApplication, error) {
	return m.MockLoanResult, m.MockError
}

func (m *MockLoanService) GetDraft(ctx context.Context, userID uint64) (*domain.LoanDraft, error) {
	return m.MockDraftResult, m.MockError
}

func (m *MockLoanService) SaveDraftStep(ctx context.Context, userID uint64, step domain.ApplicationStep, patch domain.LoanDraft) (*domain.LoanDraft, error) {
	m.SavedStep = step
	m.SavedPatch = patch
	return m.MockDraftResult, m.MockError
}

func (m *MockLoanService) DiscardDraft(ctx context.Context, userID uint64) error {
	m.Discarded = true
	return m.MockError
}

// --- Stokvela --- //

type MockStokvelaService struct {
	MockGroupResult    *domain.StokvelaGroup
	MockPageResult     *domain.Paginated
	MockMemberResult   *domain.StokvelaMember
	MockMembersResult  []domain.StokvelaMember
	MockProgressResult *domain.GroupProgress
	MockPaymentResult  *domain.StokvelaPayment
	MockError          error
	// MockAuthorizeError fails only the payout check.
	MockAuthorizeError error

	InitiatedRequest service.PayoutRequest
}

var _ service.StokvelaServices = (*MockStokvelaService)(nil)

func (m *MockStokvelaService) CreateGroup(ctx context.Context, group *domain.StokvelaGroup) (*domain.StokvelaGroup, error) {
	if m.MockError != nil {
		return nil, m.MockError
	}
	created := *group
	created.ID = 11
	return &created, nil
}

func (m *MockStokvelaService) ListGroups(ctx context.Context, params domain.Params) (*domain.Paginated, error) {
	return m.MockPageResult, m.MockError
}

func (m *MockStokvelaService) Join(ctx context.Context, groupID, userID uint64) (*domain.StokvelaMember, error) {
	return m.MockMemberResult, m.MockError
}

func (m *MockStokvelaService) Members(ctx context.Context, groupID uint64) ([]domain.StokvelaMember, error) {
	return m.MockMembersResult, m.MockError
}

func (m *MockStokvelaService) Progress(ctx context.Context, groupID uint64) (*domain.GroupProgress, error) {
	return m.MockProgressResult, m.MockError
}

func (m *MockStokvelaService) Contribute(ctx context.Context, groupID, userID uint64, amount float64) (*domain.StokvelaMember, error) {
	return m.MockMemberResult, m.MockError
}

func (m *MockStokvelaService) CurrentPayee(ctx context.Context, groupID uint64) (*domain.StokvelaMember, error) {
	return m.MockMemberResult, m.MockError
}

func (m *MockStokvelaService) AuthorizePayout(ctx context.Context, groupID, userID uint64) (*domain.StokvelaMember, error) {
	if m.MockAuthorizeError != nil {
		return nil, m.MockAuthorizeError
	}
	return m.MockMemberResult, nil
}

func (m *MockStokvelaService) InitiatePayment(ctx context.Context, groupID, userID uint64, request service.PayoutRequest) (*domain.StokvelaPayment, error) {
	m.InitiatedRequest = request
	return m.MockPaymentResult, m.MockError
}

func (m *MockStokvelaService) Payments(ctx context.Context, groupID uint64, params domain.Params) (*domain.Paginated, error) {
	return m.MockPageResult, m.MockError
}

// --- Admin --- //

type MockAdminService struct {
	MockPageResult    *domain.Paginated
	MockLoanResult    *domain.LoanApplication
	MockPaymentResult *domain.StokvelaPayment
	MockMemberResult  *domain.StokvelaMember
	MockIndexResult   *domain.InvestmentIndex
	MockError         error

	ListedParams    domain.Params
	ReviewedBy      uint64
	ReviewDecision  domain.ReviewDecision
	VerifiedValue   bool
	UpdatedIndexVal float64
}

var _ service.AdminServices = (*MockAdminService)(nil)

func (m *MockAdminService) ListLoans(ctx context.Context, params domain.Params) (*domain.Paginated, error) {
	m.ListedParams = params
	return m.MockPageResult, m.MockError
}

func (m *MockAdminService) ReviewLoan(ctx context.Context, loanID uint64, decision domain.ReviewDecision, note string, reviewerID uint64) (*domain.LoanApplication, error) {
	m.ReviewedBy = reviewerID
	m.ReviewDecision = decision
	return m.MockLoanResult, m.MockError
}

func (m *MockAdminService) ListPayments(ctx context.Context, params domain.Params) (*domain.Paginated, error) {
	m.ListedParams = params
	return m.MockPageResult, m.MockError
}

func (m *MockAdminService) ReviewPayment(ctx context.Context, paymentID uint64, decision domain.ReviewDecision, reviewerID uint64) (*domain.StokvelaPayment, error) {
	m.ReviewedBy = reviewerID
	m.ReviewDecision = decision
	return m.MockPaymentResult, m.MockError
}

func (m *MockAdminService) VerifyMember(ctx context.Context, memberID uint64, verified bool) (*domain.StokvelaMember, error) {
	m.VerifiedValue = verified
	return m.MockMemberResult, m.MockError
}

func (m *MockAdminService) UpdateIndex(ctx context.Context, name string, value float64) (*domain.InvestmentIndex, error) {
	m.UpdatedIndexVal = value
	return m.MockIndexResult, m.MockError
}

// --- Investments --- //

type MockInvestmentService struct {
	MockInvestmentResult *domain.Investment
	MockPortfolioResult  *domain.Portfolio
	MockIndexResult      *domain.InvestmentIndex
	MockError            error
	// MockIndexError fails only CurrentIndex.
	MockIndexError error
}

var _ service.InvestmentServices = (*MockInvestmentService)(nil)

func (m *MockInvestmentService) Invest(ctx context.Context, userID uint64, amount float64) (*domain.Investment, error) {
	return m.MockInvestmentResult, m.MockError
}

func (m *MockInvestmentService) Portfolio(ctx context.Context, userID uint64) (*domain.Portfolio, error) {
	return m.MockPortfolioResult, m.MockError
}

func (m *MockInvestmentService) CurrentIndex(ctx context.Context) (*domain.InvestmentIndex, error) {
	if m.MockIndexError != nil {
		return nil, m.MockIndexError
	}
	return m.MockIndexResult, nil
}

// MockSubscriber replays Updates and then closes the stream.
type MockSubscriber struct {
	Updates   []domain.InvestmentIndex
	MockError error
}

func (m *MockSubscriber) Subscribe(ctx context.Context) (<-chan domain.InvestmentIndex, error) {
	if m.MockError != nil {
		return nil, m.MockError
	}
	out := make(chan domain.InvestmentIndex, len(m.Updates))
	for _, u := range m.Updates {
		out <- u
	}
	close(out)
	return out, nil
}

// --- Media --- //

type MockMediaService struct {
	MockURL   string
	MockError error

	Folders []string
	Calls   int
}

var _ service.MediaServices = (*MockMediaService)(nil)

func (m *MockMediaService) Upload(ctx context.Context, file *multipart.FileHeader, folder string) (string, error) {
	m.Calls++
	m.Folders = append(m.Folders, folder)
	return m.MockURL, m.MockError
}
