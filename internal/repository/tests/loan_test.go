package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/repository"
	loanrepo "github.com/greenfina/greenfina/internal/repository/loan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	noop_metric "go.opentelemetry.io/otel/metric/noop"
	noop_trace "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LoanRepositoryTestSuite struct {
	suite.Suite
	db             *gorm.DB
	ctx            context.Context
	loanRepository repository.LoanRepository
	userID         uint64
}

func (suite *LoanRepositoryTestSuite) SetupSuite() {
	suite.db = setupTestDB(suite.T())
	suite.ctx = context.Background()
	suite.loanRepository = loanrepo.NewLoanRepository(
		suite.db,
		noop_metric.NewMeterProvider().Meter("test-loan-repository-meter"),
		noop_trace.NewTracerProvider().Tracer("test-loan-repository-tracer"),
		zap.NewNop(),
	)
}

func (suite *LoanRepositoryTestSuite) SetupTest() {
	resetTables(suite.db)
	suite.userID = seedUser(suite.T(), suite.db, "borrower@example.co.za").ID
}

func (suite *LoanRepositoryTestSuite) newLoan(principal float64) *domain.LoanApplication {
	return &domain.LoanApplication{
		UserID:            suite.userID,
		Category:          "personal",
		Principal:         principal,
		TermMonths:        24,
		AnnualRatePercent: 12.5,
		MonthlyPayment:    2365.365398,
		TotalRepayment:    56768.769552,
		TotalInterest:     6768.769552,
		MonthlyIncome:     30000,
		Affordable:        true,
		BankStatementUrl:  "https://res.cloudinary.com/demo/bank.pdf",
		IdDocumentUrl:     "https://res.cloudinary.com/demo/id.jpg",
		Status:            domain.LoanPending,
	}
}

func (suite *LoanRepositoryTestSuite) TestCreateAndFind() {
	created, err := suite.loanRepository.Create(suite.ctx, suite.newLoan(50000))
	require.NoError(suite.T(), err)
	require.NotZero(suite.T(), created.ID)

	found, err := suite.loanRepository.FindByID(suite.ctx, created.ID)
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), found)
	assert.Equal(suite.T(), domain.LoanPending, found.Status)
	assert.InDelta(suite.T(), 2365.365398, found.MonthlyPayment, 1e-6)
	assert.True(suite.T(), found.Affordable)

	locked, err := suite.loanRepository.FindByIDForUpdate(suite.ctx, created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), created.ID, locked.ID)

	missing, err := suite.loanRepository.FindByID(suite.ctx, created.ID+100)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), missing)
}

func (suite *LoanRepositoryTestSuite) TestPagination_FiltersByStatusAndUser() {
	for i := range 5 {
		_, err := suite.loanRepository.Create(suite.ctx, suite.newLoan(float64(1000*(i+1))))
		require.NoError(suite.T(), err)
	}
	other := seedUser(suite.T(), suite.db, "other@example.co.za")
	otherLoan := suite.newLoan(9999)
	otherLoan.UserID = other.ID
	otherLoan.Status = domain.LoanApproved
	_, err := suite.loanRepository.Create(suite.ctx, otherLoan)
	require.NoError(suite.T(), err)

	mine, total, err := suite.loanRepository.FindPaginatedByUser(suite.ctx, suite.userID, domain.Params{Page: 2, Limit: 2})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(5), total)
	assert.Len(suite.T(), mine, 2)

	approved, total, err := suite.loanRepository.FindPaginated(suite.ctx, domain.Params{Status: string(domain.LoanApproved), Page: 1, Limit: 10})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), total)
	require.Len(suite.T(), approved, 1)
	assert.Equal(suite.T(), other.ID, approved[0].UserID)
}

func (suite *LoanRepositoryTestSuite) TestUpdateReview() {
	created, err := suite.loanRepository.Create(suite.ctx, suite.newLoan(50000))
	require.NoError(suite.T(), err)

	reviewer := uint64(1)
	now := time.Now().UTC().Truncate(time.Second)
	created.Status = domain.LoanRejected
	created.ReviewNote = "income could not be verified"
	created.ReviewedBy = &reviewer
	created.ReviewedAt = &now

	require.NoError(suite.T(), suite.loanRepository.UpdateReview(suite.ctx, created))

	found, err := suite.loanRepository.FindByID(suite.ctx, created.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), domain.LoanRejected, found.Status)
	assert.Equal(suite.T(), "income could not be verified", found.ReviewNote)
	require.NotNil(suite.T(), found.ReviewedBy)
	assert.Equal(suite.T(), reviewer, *found.ReviewedBy)
}

func TestLoanRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(LoanRepositoryTestSuite))
}
