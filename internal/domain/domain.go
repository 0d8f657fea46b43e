package domain

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/greenfina/greenfina/pkg/rotation"
)

type Role string

const (
	AdminRole Role = "admin"
	UserRole  Role = "user"
)

type User struct {
	ID            uint64
	FullName      string
	Email         string
	Phone         string
	Password      string
	Role          Role
	MonthlyIncome float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type LoanStatus string

const (
	LoanPending  LoanStatus = "PENDING"
	LoanApproved LoanStatus = "APPROVED"
	LoanRejected LoanStatus = "REJECTED"
)

type LoanApplication struct {
	ID                uint64
	UserID            uint64
	Category          string
	Purpose           string
	Principal         float64
	TermMonths        int
	AnnualRatePercent float64
	MonthlyPayment    float64
	TotalRepayment    float64
	TotalInterest     float64
	MonthlyIncome     float64
	Affordable        bool
	BankStatementUrl  string
	IdDocumentUrl     string
	Status            LoanStatus
	ReviewNote        string
	ReviewedBy        *uint64
	ReviewedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "APPROVE"
	DecisionReject  ReviewDecision = "REJECT"
)

type StokvelaGroup struct {
	ID                 uint64
	Name               string
	Description        string
	ContributionAmount float64
	MaxMembers         int
	StartDate          time.Time
	CreatedBy          uint64
	MemberCount        int
	CreatedAt          time.Time
}

type StokvelaMember struct {
	ID                 uint64
	GroupID            uint64
	UserID             uint64
	Position           int
	ContributionAmount float64
	AmountContributed  float64
	AmountReceived     float64
	Verified           bool
	JoinedAt           time.Time
}

func (m StokvelaMember) Rotation() rotation.Member {
	return rotation.Member{
		ID:                 m.ID,
		GroupID:            m.GroupID,
		UserID:             m.UserID,
		Position:           m.Position,
		ContributionAmount: m.ContributionAmount,
		AmountContributed:  m.AmountContributed,
		AmountReceived:     m.AmountReceived,
		Verified:           m.Verified,
	}
}

func RotationMembers(members []StokvelaMember) []rotation.Member {
	out := make([]rotation.Member, len(members))
	for i, m := range members {
		out[i] = m.Rotation()
	}
	return out
}

// Pot is what the payee receives for one period: every member's agreed
// contribution.
func Pot(members []StokvelaMember) float64 {
	var pot float64
	for _, m := range members {
		pot += m.ContributionAmount
	}
	return pot
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentApproved PaymentStatus = "APPROVED"
	PaymentRejected PaymentStatus = "REJECTED"
)

// StokvelaPayment is a payout request raised by the current payee.
type StokvelaPayment struct {
	ID         uint64
	Reference  string
	GroupID    uint64
	MemberID   uint64
	Amount     float64
	ProofUrl   string
	Note       string
	Status     PaymentStatus

	AccountHolderName string
	Signature         string
	ReviewedBy *uint64
	ReviewedAt *time.Time
	CreatedAt  time.Time
}

type GroupProgress struct {
	GroupID          uint64
	PeriodsElapsed   int
	TotalContributed float64
	TotalExpected    float64
	Payee            *StokvelaMember
}

type Investment struct {
	ID                   uint64
	UserID               uint64
	IndexName            string
	Amount               float64
	Units                float64
	IndexValueAtPurchase float64
	CreatedAt            time.Time
}

// DefaultIndexName is the index every investment tracks unless told otherwise.
const DefaultIndexName = "green-growth"

type InvestmentIndex struct {
	Name      string
	Value     float64
	UpdatedAt time.Time
}

type Holding struct {
	Investment   Investment
	CurrentValue float64
	Gain         float64
}

type Portfolio struct {
	Holdings      []Holding
	TotalInvested float64
	CurrentValue  float64
	TotalGain     float64
}

type JwtCustomClaims struct {
	UserID uint64 `json:"user_id"`
	Role   Role   `json:"role"`
	jwt.RegisteredClaims
}

type Params struct {
	Status string
	Page   int
	Limit  int
}

type Paginated struct {
	Data       any
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}
