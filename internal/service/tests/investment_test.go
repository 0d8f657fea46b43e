package service_test

import (
	"context"
	"testing"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/repository"
	investmentrepo "github.com/greenfina/greenfina/internal/repository/investment"
	"github.com/greenfina/greenfina/internal/service"
	investmentsrv "github.com/greenfina/greenfina/internal/service/investment"
	"github.com/greenfina/greenfina/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type InvestmentServiceTestSuite struct {
	suite.Suite
	db                   *gorm.DB
	ctx                  context.Context
	investmentRepository repository.InvestmentRepository
	investmentService    service.InvestmentServices
}

func (suite *InvestmentServiceTestSuite) SetupSuite() {
	suite.db = setupTestDB(suite.T())
	suite.ctx = context.Background()

	meter, tracer := telemetry("investment")
	suite.investmentRepository = investmentrepo.NewInvestmentRepository(suite.db, meter, tracer, zap.NewNop())
	suite.investmentService = investmentsrv.NewInvestmentService(suite.investmentRepository, "", meter, tracer, zap.NewNop())
}

func (suite *InvestmentServiceTestSuite) SetupTest() {
	resetTables(suite.db)
}

func (suite *InvestmentServiceTestSuite) setIndex(value float64) {
	_, err := suite.investmentRepository.UpsertIndex(suite.ctx, &domain.InvestmentIndex{Name: domain.DefaultIndexName, Value: value})
	require.NoError(suite.T(), err)
}

func (suite *InvestmentServiceTestSuite) TestInvest_WithoutIndex() {
	_, err := suite.investmentService.Invest(suite.ctx, 1, 1000)
	assert.ErrorIs(suite.T(), err, common.ErrIndexNotFound)

	_, err = suite.investmentService.CurrentIndex(suite.ctx)
	assert.ErrorIs(suite.T(), err, common.ErrIndexNotFound)
}

func (suite *InvestmentServiceTestSuite) TestInvest_BuysUnitsAtCurrentValue() {
	user := seedUser(suite.T(), suite.db, "investor@example.co.za")
	suite.setIndex(125)

	investment, err := suite.investmentService.Invest(suite.ctx, user.ID, 1000)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 8.0, investment.Units)
	assert.Equal(suite.T(), 125.0, investment.IndexValueAtPurchase)

	_, err = suite.investmentService.Invest(suite.ctx, user.ID, -10)
	assert.ErrorIs(suite.T(), err, common.ErrInvalidAmount)
}

func (suite *InvestmentServiceTestSuite) TestPortfolio_ValuesAtCurrentIndex() {
	user := seedUser(suite.T(), suite.db, "investor@example.co.za")

	empty, err := suite.investmentService.Portfolio(suite.ctx, user.ID)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), empty.Holdings)

	suite.setIndex(100)
	_, err = suite.investmentService.Invest(suite.ctx, user.ID, 1000)
	require.NoError(suite.T(), err)

	suite.setIndex(125)
	_, err = suite.investmentService.Invest(suite.ctx, user.ID, 500)
	require.NoError(suite.T(), err)

	suite.setIndex(150)
	portfolio, err := suite.investmentService.Portfolio(suite.ctx, user.ID)
	require.NoError(suite.T(), err)

	require.Len(suite.T(), portfolio.Holdings, 2)
	assert.InDelta(suite.T(), 1500, portfolio.TotalInvested, 1e-9)
	assert.InDelta(suite.T(), 2100, portfolio.CurrentValue, 1e-6)
	assert.InDelta(suite.T(), 600, portfolio.TotalGain, 1e-6)
}

func TestValue(t *testing.T) {
	portfolio := investmentsrv.Value([]domain.Investment{
		{Amount: 1000, Units: 10},
		{Amount: 300, Units: 2.5},
	}, 90)

	assert.InDelta(t, 1125, portfolio.CurrentValue, 1e-9)
	assert.InDelta(t, -175, portfolio.TotalGain, 1e-9)
	assert.InDelta(t, -100, portfolio.Holdings[0].Gain, 1e-9)
}

func TestInvestmentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(InvestmentServiceTestSuite))
}
