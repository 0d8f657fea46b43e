package dto

import (
	"time"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/pkg/loanterms"
	"github.com/greenfina/greenfina/pkg/money"
)

type LoginResponse struct {
	Token string `json:"token"`
}

type UserResponse struct {
	ID            uint64  `json:"id"`
	FullName      string  `json:"full_name"`
	Email         string  `json:"email"`
	Phone         string  `json:"phone,omitempty"`
	Role          string  `json:"role"`
	MonthlyIncome float64 `json:"monthly_income"`
	MemberSince   string  `json:"member_since"`
}

func UserFromEntity(u *domain.User) UserResponse {
	return UserResponse{
		ID:            u.ID,
		FullName:      u.FullName,
		Email:         u.Email,
		Phone:         u.Phone,
		Role:          string(u.Role),
		MonthlyIncome: u.MonthlyIncome,
		MemberSince:   money.DateInWords(u.CreatedAt),
	}
}

type QuoteResponse struct {
	Category                string  `json:"category,omitempty"`
	Principal               float64 `json:"principal"`
	AnnualRatePercent       float64 `json:"annual_rate_percent"`
	TermMonths              int     `json:"term_months"`
	MonthlyPayment          float64 `json:"monthly_payment"`
	TotalRepayment          float64 `json:"total_repayment"`
	TotalInterest           float64 `json:"total_interest"`
	MonthlyPaymentFormatted string  `json:"monthly_payment_formatted"`
	TotalRepaymentFormatted string  `json:"total_repayment_formatted"`
	TotalInterestFormatted  string  `json:"total_interest_formatted"`
}

func QuoteFromTerms(category string, q loanterms.Quote) QuoteResponse {
	r := q.Rounded()
	return QuoteResponse{
		Category:                category,
		Principal:               q.Principal,
		AnnualRatePercent:       q.AnnualRatePercent,
		TermMonths:              q.TermMonths,
		MonthlyPayment:          r.MonthlyPayment,
		TotalRepayment:          r.TotalRepayment,
		TotalInterest:           r.TotalInterest,
		MonthlyPaymentFormatted: money.FormatCurrency(q.MonthlyPayment),
		TotalRepaymentFormatted: money.FormatCurrency(q.TotalRepayment),
		TotalInterestFormatted:  money.FormatCurrency(q.TotalInterest),
	}
}

type FlatQuoteResponse struct {
	Principal                float64 `json:"principal"`
	FlatRatePercent          float64 `json:"flat_rate_percent"`
	ReturnAmount             float64 `json:"return_amount"`
	InterestPortion          float64 `json:"interest_portion"`
	ReturnAmountFormatted    string  `json:"return_amount_formatted"`
	InterestPortionFormatted string  `json:"interest_portion_formatted"`
}

func FlatQuoteFromTerms(q loanterms.FlatQuote) FlatQuoteResponse {
	r := q.Rounded()
	return FlatQuoteResponse{
		Principal:                q.Principal,
		FlatRatePercent:          q.FlatRatePercent,
		ReturnAmount:             r.ReturnAmount,
		InterestPortion:          r.InterestPortion,
		ReturnAmountFormatted:    money.FormatCurrency(q.ReturnAmount),
		InterestPortionFormatted: money.FormatCurrency(q.InterestPortion),
	}
}

type AffordabilityResponse struct {
	Flow              string  `json:"flow"`
	Affordable        bool    `json:"affordable"`
	MaxIncomeFraction float64 `json:"max_income_fraction"`
	MaxLoanAmount     float64 `json:"max_loan_amount"`
	MaxLoanFormatted  string  `json:"max_loan_amount_formatted"`
}

type LoanResponse struct {
	ID                      uint64   `json:"id"`
	Category                string   `json:"category"`
	Purpose                 string   `json:"purpose,omitempty"`
	Principal               float64  `json:"principal"`
	TermMonths              int      `json:"term_months"`
	AnnualRatePercent       float64  `json:"annual_rate_percent"`
	MonthlyPayment          float64  `json:"monthly_payment"`
	MonthlyPaymentFormatted string   `json:"monthly_payment_formatted"`
	TotalRepayment          float64  `json:"total_repayment"`
	TotalInterest           float64  `json:"total_interest"`
	MonthlyIncome           float64  `json:"monthly_income"`
	Affordable              bool     `json:"affordable"`
	Status                  string   `json:"status"`
	ReviewNote              string   `json:"review_note,omitempty"`
	BankStatementUrl        string   `json:"bank_statement_url"`
	IdDocumentUrl           string   `json:"id_document_url"`
	SubmittedOn             string   `json:"submitted_on"`
	Warnings                []string `json:"warnings,omitempty"`
}

func LoanFromEntity(l *domain.LoanApplication) LoanResponse {
	res := LoanResponse{
		ID:                      l.ID,
		Category:                l.Category,
		Purpose:                 l.Purpose,
		Principal:               l.Principal,
		TermMonths:              l.TermMonths,
		AnnualRatePercent:       l.AnnualRatePercent,
		MonthlyPayment:          money.Round2(l.MonthlyPayment),
		MonthlyPaymentFormatted: money.FormatCurrency(l.MonthlyPayment),
		TotalRepayment:          money.Round2(l.TotalRepayment),
		TotalInterest:           money.Round2(l.TotalInterest),
		MonthlyIncome:           l.MonthlyIncome,
		Affordable:              l.Affordable,
		Status:                  string(l.Status),
		ReviewNote:              l.ReviewNote,
		BankStatementUrl:        l.BankStatementUrl,
		IdDocumentUrl:           l.IdDocumentUrl,
		SubmittedOn:             money.DateInWords(l.CreatedAt),
	}
	if !l.Affordable {
		res.Warnings = append(res.Warnings, "loan amount exceeds the affordability threshold for the stated income")
	}
	return res
}

func LoansFromEntity(loans []domain.LoanApplication) []LoanResponse {
	out := make([]LoanResponse, len(loans))
	for i := range loans {
		out[i] = LoanFromEntity(&loans[i])
	}
	return out
}

type DraftResponse struct {
	Completed string                  `json:"completed"`
	NextStep  string                  `json:"next_step"`
	Details   *domain.DraftDetails    `json:"details,omitempty"`
	Financial *domain.DraftFinancials `json:"financials,omitempty"`
	Documents *domain.DraftDocuments  `json:"documents,omitempty"`
	Review    *domain.DraftReview     `json:"review,omitempty"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func DraftFromEntity(d *domain.LoanDraft) DraftResponse {
	return DraftResponse{
		Completed: string(d.Completed),
		NextStep:  string(d.NextStep()),
		Details:   d.Details,
		Financial: d.Financials,
		Documents: d.Documents,
		Review:    d.Review,
		UpdatedAt: d.UpdatedAt,
	}
}

type GroupResponse struct {
	ID                          uint64  `json:"id"`
	Name                        string  `json:"name"`
	Description                 string  `json:"description,omitempty"`
	ContributionAmount          float64 `json:"contribution_amount"`
	ContributionAmountFormatted string  `json:"contribution_amount_formatted"`
	MaxMembers                  int     `json:"max_members"`
	MemberCount                 int     `json:"member_count"`
	StartDate                   string  `json:"start_date"`
}

func GroupFromEntity(g *domain.StokvelaGroup) GroupResponse {
	return GroupResponse{
		ID:                          g.ID,
		Name:                        g.Name,
		Description:                 g.Description,
		ContributionAmount:          g.ContributionAmount,
		ContributionAmountFormatted: money.FormatCurrency(g.ContributionAmount),
		MaxMembers:                  g.MaxMembers,
		MemberCount:                 g.MemberCount,
		StartDate:                   money.DateInWords(g.StartDate),
	}
}

func GroupsFromEntity(groups []domain.StokvelaGroup) []GroupResponse {
	out := make([]GroupResponse, len(groups))
	for i := range groups {
		out[i] = GroupFromEntity(&groups[i])
	}
	return out
}

type MemberResponse struct {
	ID                 uint64  `json:"id"`
	UserID             uint64  `json:"user_id"`
	Position           int     `json:"position"`
	State              string  `json:"state"`
	ContributionAmount float64 `json:"contribution_amount"`
	AmountContributed  float64 `json:"amount_contributed"`
	AmountReceived     float64 `json:"amount_received"`
	Verified           bool    `json:"verified"`
}

func MemberFromEntity(m *domain.StokvelaMember, state string) MemberResponse {
	return MemberResponse{
		ID:                 m.ID,
		UserID:             m.UserID,
		Position:           m.Position,
		State:              state,
		ContributionAmount: m.ContributionAmount,
		AmountContributed:  m.AmountContributed,
		AmountReceived:     m.AmountReceived,
		Verified:           m.Verified,
	}
}

type ProgressResponse struct {
	GroupID                   uint64          `json:"group_id"`
	PeriodsElapsed            int             `json:"periods_elapsed"`
	TotalContributed          float64         `json:"total_contributed"`
	TotalExpected             float64         `json:"total_expected"`
	TotalContributedFormatted string          `json:"total_contributed_formatted"`
	TotalExpectedFormatted    string          `json:"total_expected_formatted"`
	Payee                     *MemberResponse `json:"payee"`
}

type PaymentResponse struct {
	ID              uint64  `json:"id"`
	Reference       string  `json:"reference"`
	GroupID         uint64  `json:"group_id"`
	MemberID        uint64  `json:"member_id"`
	Amount          float64 `json:"amount"`
	AmountFormatted string  `json:"amount_formatted"`
	ProofUrl        string  `json:"proof_url"`
	Note            string  `json:"note,omitempty"`
	Status          string  `json:"status"`
	RequestedOn     string  `json:"requested_on"`

	AccountHolderName string `json:"account_holder_name"`
	Signature         string `json:"signature"`
}

func PaymentFromEntity(p *domain.StokvelaPayment) PaymentResponse {
	return PaymentResponse{
		ID:              p.ID,
		Reference:       p.Reference,
		GroupID:         p.GroupID,
		MemberID:        p.MemberID,
		Amount:          p.Amount,
		AmountFormatted: money.FormatCurrency(p.Amount),
		ProofUrl:        p.ProofUrl,
		Note:            p.Note,
		Status:          string(p.Status),
		RequestedOn:     money.DateInWords(p.CreatedAt),

		AccountHolderName: p.AccountHolderName,
		Signature:         p.Signature,
	}
}

func PaymentsFromEntity(payments []domain.StokvelaPayment) []PaymentResponse {
	out := make([]PaymentResponse, len(payments))
	for i := range payments {
		out[i] = PaymentFromEntity(&payments[i])
	}
	return out
}

type IndexResponse struct {
	Name           string    `json:"name"`
	Value          float64   `json:"value"`
	ValueFormatted string    `json:"value_formatted"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func IndexFromEntity(i *domain.InvestmentIndex) IndexResponse {
	return IndexResponse{
		Name:           i.Name,
		Value:          i.Value,
		ValueFormatted: money.FormatCurrency(i.Value),
		UpdatedAt:      i.UpdatedAt,
	}
}

type HoldingResponse struct {
	ID                    uint64  `json:"id"`
	IndexName             string  `json:"index_name"`
	Amount                float64 `json:"amount"`
	Units                 float64 `json:"units"`
	PurchaseValue         float64 `json:"purchase_index_value"`
	CurrentValue          float64 `json:"current_value"`
	CurrentValueFormatted string  `json:"current_value_formatted"`
	Gain                  float64 `json:"gain"`
	InvestedOn            string  `json:"invested_on"`
}

type PortfolioResponse struct {
	Holdings               []HoldingResponse `json:"holdings"`
	TotalInvested          float64           `json:"total_invested"`
	CurrentValue           float64           `json:"current_value"`
	TotalGain              float64           `json:"total_gain"`
	TotalInvestedFormatted string            `json:"total_invested_formatted"`
	CurrentValueFormatted  string            `json:"current_value_formatted"`
	TotalGainFormatted     string            `json:"total_gain_formatted"`
}

func PortfolioFromEntity(p *domain.Portfolio) PortfolioResponse {
	holdings := make([]HoldingResponse, len(p.Holdings))
	for i, h := range p.Holdings {
		holdings[i] = HoldingResponse{
			ID:                    h.Investment.ID,
			IndexName:             h.Investment.IndexName,
			Amount:                h.Investment.Amount,
			Units:                 h.Investment.Units,
			PurchaseValue:         h.Investment.IndexValueAtPurchase,
			CurrentValue:          money.Round2(h.CurrentValue),
			CurrentValueFormatted: money.FormatCurrency(h.CurrentValue),
			Gain:                  money.Round2(h.Gain),
			InvestedOn:            money.DateInWords(h.Investment.CreatedAt),
		}
	}

	return PortfolioResponse{
		Holdings:               holdings,
		TotalInvested:          money.Round2(p.TotalInvested),
		CurrentValue:           money.Round2(p.CurrentValue),
		TotalGain:              money.Round2(p.TotalGain),
		TotalInvestedFormatted: money.FormatCurrency(p.TotalInvested),
		CurrentValueFormatted:  money.FormatCurrency(p.CurrentValue),
		TotalGainFormatted:     money.FormatCurrency(p.TotalGain),
	}
}

type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

func PageFromEntity(p *domain.Paginated, data any) PaginatedResponse {
	return PaginatedResponse{
		Data:       data,
		Total:      p.Total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: p.TotalPages,
	}
}

// ProgressFromEntity renders the payee with its rotation state, which the
// caller resolves.
func ProgressFromEntity(p *domain.GroupProgress, payeeState string) ProgressResponse {
	res := ProgressResponse{
		GroupID:                   p.GroupID,
		PeriodsElapsed:            p.PeriodsElapsed,
		TotalContributed:          money.Round2(p.TotalContributed),
		TotalExpected:             money.Round2(p.TotalExpected),
		TotalContributedFormatted: money.FormatCurrency(p.TotalContributed),
		TotalExpectedFormatted:    money.FormatCurrency(p.TotalExpected),
	}
	if p.Payee != nil {
		payee := MemberFromEntity(p.Payee, payeeState)
		res.Payee = &payee
	}
	return res
}
