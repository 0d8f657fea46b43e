package repository_test

import (
	"context"
	"testing"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/repository"
	investmentrepo "github.com/greenfina/greenfina/internal/repository/investment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	noop_metric "go.opentelemetry.io/otel/metric/noop"
	noop_trace "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type InvestmentRepositoryTestSuite struct {
	suite.Suite
	db                   *gorm.DB
	ctx                  context.Context
	investmentRepository repository.InvestmentRepository
}

func (suite *InvestmentRepositoryTestSuite) SetupSuite() {
	suite.db = setupTestDB(suite.T())
	suite.ctx = context.Background()
	suite.investmentRepository = investmentrepo.NewInvestmentRepository(
		suite.db,
		noop_metric.NewMeterProvider().Meter("test-investment-repository-meter"),
		noop_trace.NewTracerProvider().Tracer("test-investment-repository-tracer"),
		zap.NewNop(),
	)
}

func (suite *InvestmentRepositoryTestSuite) SetupTest() {
	resetTables(suite.db)
}

func (suite *InvestmentRepositoryTestSuite) TestUpsertIndex_InsertsThenUpdates() {
	missing, err := suite.investmentRepository.CurrentIndex(suite.ctx, "green-growth")
	require.NoError(suite.T(), err)
	assert.Nil(suite.T(), missing)

	_, err = suite.investmentRepository.UpsertIndex(suite.ctx, &domain.InvestmentIndex{Name: "green-growth", Value: 100})
	require.NoError(suite.T(), err)
	_, err = suite.investmentRepository.UpsertIndex(suite.ctx, &domain.InvestmentIndex{Name: "green-growth", Value: 112.5})
	require.NoError(suite.T(), err)

	current, err := suite.investmentRepository.CurrentIndex(suite.ctx, "green-growth")
	require.NoError(suite.T(), err)
	require.NotNil(suite.T(), current)
	assert.Equal(suite.T(), 112.5, current.Value)
}

func (suite *InvestmentRepositoryTestSuite) TestCreateAndFindByUser() {
	user := seedUser(suite.T(), suite.db, "investor@example.co.za")

	for _, amount := range []float64{1000, 2500} {
		_, err := suite.investmentRepository.Create(suite.ctx, &domain.Investment{
			UserID:               user.ID,
			IndexName:            "green-growth",
			Amount:               amount,
			Units:                amount / 100,
			IndexValueAtPurchase: 100,
		})
		require.NoError(suite.T(), err)
	}

	investments, err := suite.investmentRepository.FindByUser(suite.ctx, user.ID)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), investments, 2)
	assert.Equal(suite.T(), 1000.0, investments[0].Amount)
	assert.InDelta(suite.T(), 25.0, investments[1].Units, 1e-9)

	none, err := suite.investmentRepository.FindByUser(suite.ctx, user.ID+1)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), none)
}

func TestInvestmentRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(InvestmentRepositoryTestSuite))
}
