package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents the users table
type User struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	FullName      string    `gorm:"type:varchar(255);not null" json:"full_name"`
	Email         string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	Phone         string    `gorm:"type:varchar(20)" json:"phone"`
	Password      string    `gorm:"type:varchar(255);not null" json:"-"`
	Role          string    `gorm:"type:varchar(20);default:'user';not null" json:"role"`
	MonthlyIncome float64   `gorm:"type:decimal(15,2);not null;default:0" json:"monthly_income"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updated_at"`

	LoanApplications []LoanApplication `gorm:"foreignKey:UserID" json:"loan_applications,omitempty"`
}

// LoanApplication represents the loan_applications table. Derived figures
// keep more precision than amounts entered by users.
type LoanApplication struct {
	ID                uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID            uint64     `gorm:"not null;index" json:"user_id"`
	Category          string     `gorm:"type:varchar(30);not null" json:"category"`
	Purpose           string     `gorm:"type:varchar(255)" json:"purpose"`
	Principal         float64    `gorm:"type:decimal(15,2);not null" json:"principal"`
	TermMonths        int        `gorm:"not null" json:"term_months"`
	AnnualRatePercent float64    `gorm:"type:decimal(7,4);not null" json:"annual_rate_percent"`
	MonthlyPayment    float64    `gorm:"type:decimal(20,6);not null" json:"monthly_payment"`
	TotalRepayment    float64    `gorm:"type:decimal(20,6);not null" json:"total_repayment"`
	TotalInterest     float64    `gorm:"type:decimal(20,6);not null" json:"total_interest"`
	MonthlyIncome     float64    `gorm:"type:decimal(15,2);not null" json:"monthly_income"`
	Affordable        bool       `gorm:"not null;default:false" json:"affordable"`
	BankStatementUrl  string     `gorm:"type:varchar(255);not null" json:"bank_statement_url"`
	IdDocumentUrl     string     `gorm:"type:varchar(255);not null" json:"id_document_url"`
	Status            string     `gorm:"type:varchar(20);default:'PENDING';not null;index" json:"status"`
	ReviewNote        string     `gorm:"type:varchar(500)" json:"review_note"`
	ReviewedBy        *uint64    `json:"reviewed_by"`
	ReviewedAt        *time.Time `json:"reviewed_at"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:RESTRICT" json:"user"`
}

// StokvelaGroup represents the stokvela_groups table
type StokvelaGroup struct {
	ID                 uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name               string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"name"`
	Description        string    `gorm:"type:varchar(500)" json:"description"`
	ContributionAmount float64   `gorm:"type:decimal(15,2);not null" json:"contribution_amount"`
	MaxMembers         int       `gorm:"not null" json:"max_members"`
	StartDate          time.Time `gorm:"not null" json:"start_date"`
	CreatedBy          uint64    `gorm:"not null" json:"created_by"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`

	Members []StokvelaMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
}

// StokvelaMember represents the stokvela_members table
type StokvelaMember struct {
	ID                 uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	GroupID            uint64    `gorm:"not null;uniqueIndex:idx_group_user" json:"group_id"`
	UserID             uint64    `gorm:"not null;uniqueIndex:idx_group_user" json:"user_id"`
	Position           int       `gorm:"not null" json:"position"`
	ContributionAmount float64   `gorm:"type:decimal(15,2);not null" json:"contribution_amount"`
	AmountContributed  float64   `gorm:"type:decimal(15,2);not null;default:0" json:"amount_contributed"`
	AmountReceived     float64   `gorm:"type:decimal(15,2);not null;default:0" json:"amount_received"`
	Verified           bool      `gorm:"not null;default:false" json:"verified"`
	JoinedAt           time.Time `gorm:"autoCreateTime" json:"joined_at"`

	Group StokvelaGroup `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"-"`
}

// StokvelaPayment represents the stokvela_payments table
type StokvelaPayment struct {
	ID         uint64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference  string     `gorm:"type:varchar(36);not null;uniqueIndex" json:"reference"`
	GroupID    uint64     `gorm:"not null;index" json:"group_id"`
	MemberID   uint64     `gorm:"not null;index" json:"member_id"`
	Amount     float64    `gorm:"type:decimal(15,2);not null" json:"amount"`
	ProofUrl   string     `gorm:"type:varchar(255);not null" json:"proof_url"`
	Note       string     `gorm:"type:varchar(500)" json:"note"`
	Status     string     `gorm:"type:varchar(20);default:'PENDING';not null;index" json:"status"`

	AccountHolderName string `gorm:"type:varchar(255);not null" json:"account_holder_name"`
	Signature         string `gorm:"type:varchar(255);not null" json:"signature"`
	ReviewedBy *uint64    `json:"reviewed_by"`
	ReviewedAt *time.Time `json:"reviewed_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`

	Member StokvelaMember `gorm:"foreignKey:MemberID;constraint:OnDelete:RESTRICT" json:"-"`
}

// Investment represents the investments table
type Investment struct {
	ID                   uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID               uint64    `gorm:"not null;index" json:"user_id"`
	IndexName            string    `gorm:"type:varchar(50);not null" json:"index_name"`
	Amount               float64   `gorm:"type:decimal(15,2);not null" json:"amount"`
	Units                float64   `gorm:"type:decimal(24,8);not null" json:"units"`
	IndexValueAtPurchase float64   `gorm:"type:decimal(20,6);not null" json:"index_value_at_purchase"`
	CreatedAt            time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// InvestmentIndex represents the investment_indices table
type InvestmentIndex struct {
	Name      string    `gorm:"type:varchar(50);primaryKey" json:"name"`
	Value     float64   `gorm:"type:decimal(20,6);not null" json:"value"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (LoanApplication) TableName() string {
	return "loan_applications"
}

func (StokvelaGroup) TableName() string {
	return "stokvela_groups"
}

func (StokvelaMember) TableName() string {
	return "stokvela_members"
}

func (StokvelaPayment) TableName() string {
	return "stokvela_payments"
}

func (Investment) TableName() string {
	return "investments"
}

func (InvestmentIndex) TableName() string {
	return "investment_indices"
}

// Database migration function
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&LoanApplication{},
		&StokvelaGroup{},
		&StokvelaMember{},
		&StokvelaPayment{},
		&Investment{},
		&InvestmentIndex{},
	)
}
