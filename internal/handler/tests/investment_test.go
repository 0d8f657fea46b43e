package handler_test

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/dto"
	investmenthandler "github.com/greenfina/greenfina/internal/handler/investment"
	"github.com/greenfina/greenfina/middleware"
	"github.com/greenfina/greenfina/pkg/common"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"go.uber.org/zap"
)

type InvestmentHandlerTestSuite struct {
	suite.Suite
	app                   *fiber.App
	mockInvestmentService *MockInvestmentService
	mockSubscriber        *MockSubscriber
	store                 *session.Store

	csrfToken string
	cookies   []*http.Cookie
}

func (suite *InvestmentHandlerTestSuite) SetupTest() {
	suite.mockInvestmentService = &MockInvestmentService{}
	suite.mockSubscriber = &MockSubscriber{}
	suite.store = session.New(session.Config{KeyLookup: "cookie:test-keylookup-investment"})

	meter, tracer := noopTelemetry("investment")
	h := investmenthandler.NewInvestmentHandler(
		suite.mockInvestmentService,
		suite.mockSubscriber,
		meter, tracer, zap.NewNop(),
	).WithHeartbeat(time.Hour)

	app := newTestApp(suite.store)
	app.Get("/investments/index", h.CurrentIndex)
	app.Get("/investments/index/stream", h.StreamIndex)

	me := app.Group("/me",
		middleware.NewJWTAuthMiddleware(testSecret),
		middleware.NewCustomCSRFMiddleware(suite.store),
	)
	me.Post("/investments", h.Invest)
	me.Get("/investments", h.Portfolio)

	suite.app = app
	suite.csrfToken, suite.cookies = authenticate(suite.T(), app, 9, domain.UserRole)
}

func (suite *InvestmentHandlerTestSuite) TestCurrentIndex() {
	suite.Run("Success", func() {
		suite.mockInvestmentService.MockIndexError = nil
		suite.mockInvestmentService.MockIndexResult = &domain.InvestmentIndex{Name: domain.DefaultIndexName, Value: 1234.5}

		req := httptest.NewRequest(http.MethodGet, "/investments/index", nil)
		resp, err := suite.app.Test(req)
		suite.Require().NoError(err)
		assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

		var index dto.IndexResponse
		decodeBody(suite.T(), resp, &index)
		assert.Equal(suite.T(), domain.DefaultIndexName, index.Name)
		assert.Equal(suite.T(), "R 1,234.50", index.ValueFormatted)
	})

	suite.Run("Failure - Not Seeded", func() {
		suite.mockInvestmentService.MockIndexError = common.ErrIndexNotFound

		req := httptest.NewRequest(http.MethodGet, "/investments/index", nil)
		resp, _ := suite.app.Test(req)
		defer resp.Body.Close()
		assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
	})
}

func (suite *InvestmentHandlerTestSuite) TestStreamIndex() {
	suite.Run("Sends Current Value Then Updates", func() {
		suite.mockInvestmentService.MockIndexError = nil
		suite.mockInvestmentService.MockIndexResult = &domain.InvestmentIndex{Name: domain.DefaultIndexName, Value: 100}
		suite.mockSubscriber.MockError = nil
		suite.mockSubscriber.Updates = []domain.InvestmentIndex{
			{Name: domain.DefaultIndexName, Value: 101.5},
			{Name: domain.DefaultIndexName, Value: 99.75},
		}

		req := httptest.NewRequest(http.MethodGet, "/investments/index/stream", nil)
		resp, err := suite.app.Test(req, -1)
		suite.Require().NoError(err)
		defer resp.Body.Close()

		assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
		assert.Equal(suite.T(), "text/event-stream", resp.Header.Get(fiber.HeaderContentType))

		raw, err := io.ReadAll(resp.Body)
		suite.Require().NoError(err)
		body := string(raw)

		assert.Equal(suite.T(), 3, strings.Count(body, "event: index\n"))
		first := strings.Index(body, `"value":100,`)
		second := strings.Index(body, `"value":101.5`)
		third := strings.Index(body, `"value":99.75`)
		assert.True(suite.T(), first >= 0 && first < second && second < third, "events arrive in order: %s", body)
	})

	suite.Run("Streams Without A Seeded Index", func() {
		suite.mockInvestmentService.MockIndexError = common.ErrIndexNotFound
		suite.mockSubscriber.Updates = []domain.InvestmentIndex{{Name: domain.DefaultIndexName, Value: 100}}

		req := httptest.NewRequest(http.MethodGet, "/investments/index/stream", nil)
		resp, err := suite.app.Test(req, -1)
		suite.Require().NoError(err)
		defer resp.Body.Close()

		raw, _ := io.ReadAll(resp.Body)
		assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)
		assert.Equal(suite.T(), 1, strings.Count(string(raw), "event: index\n"))
	})

	suite.Run("Failure - Feed Unavailable", func() {
		suite.mockInvestmentService.MockIndexError = nil
		suite.mockSubscriber.MockError = errors.New("redis: connection refused")

		req := httptest.NewRequest(http.MethodGet, "/investments/index/stream", nil)
		resp, err := suite.app.Test(req, -1)
		suite.Require().NoError(err)
		defer resp.Body.Close()
		assert.Equal(suite.T(), http.StatusServiceUnavailable, resp.StatusCode)
	})
}

func (suite *InvestmentHandlerTestSuite) TestInvest() {
	suite.Run("Success", func() {
		suite.mockInvestmentService.MockError = nil
		suite.mockInvestmentService.MockInvestmentResult = &domain.Investment{
			ID:                   31,
			UserID:               9,
			IndexName:            domain.DefaultIndexName,
			Amount:               1000,
			Units:                8,
			IndexValueAtPurchase: 125,
			CreatedAt:            time.Date(2026, time.October, 17, 10, 0, 0, 0, time.UTC),
		}

		req := createJSONRequestWithAuth(suite.T(), suite.csrfToken, suite.cookies, http.MethodPost, "/me/investments", map[string]any{"amount": 1000})
		resp, err := suite.app.Test(req)
		suite.Require().NoError(err)
		assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)

		var holding dto.HoldingResponse
		decodeBody(suite.T(), resp, &holding)
		assert.Equal(suite.T(), uint64(31), holding.ID)
		assert.Equal(suite.T(), 8.0, holding.Units)
		assert.Equal(suite.T(), 1000.0, holding.CurrentValue)
		assert.Equal(suite.T(), 0.0, holding.Gain)
		assert.Equal(suite.T(), "17 October 2026", holding.InvestedOn)
	})

	suite.Run("Failure - Zero Amount", func() {
		req := createJSONRequestWithAuth(suite.T(), suite.csrfToken, suite.cookies, http.MethodPost, "/me/investments", map[string]any{"amount": 0})
		resp, _ := suite.app.Test(req)
		defer resp.Body.Close()
		assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	})

	suite.Run("Failure - Unauthenticated", func() {
		req := createJSONRequestWithAuth(suite.T(), suite.csrfToken, nil, http.MethodPost, "/me/investments", map[string]any{"amount": 1000})
		resp, _ := suite.app.Test(req)
		defer resp.Body.Close()
		assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)
	})
}

func (suite *InvestmentHandlerTestSuite) TestPortfolio() {
	suite.mockInvestmentService.MockError = nil
	suite.mockInvestmentService.MockPortfolioResult = &domain.Portfolio{
		Holdings: []domain.Holding{{
			Investment:   domain.Investment{ID: 31, Amount: 1000, Units: 8, IndexValueAtPurchase: 125},
			CurrentValue: 1100,
			Gain:         100,
		}},
		TotalInvested: 1000,
		CurrentValue:  1100,
		TotalGain:     100,
	}

	req := createJSONRequestWithAuth(suite.T(), "", suite.cookies, http.MethodGet, "/me/investments", nil)
	resp, err := suite.app.Test(req)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	var portfolio dto.PortfolioResponse
	decodeBody(suite.T(), resp, &portfolio)
	suite.Require().Len(portfolio.Holdings, 1)
	assert.Equal(suite.T(), 100.0, portfolio.TotalGain)
	assert.Equal(suite.T(), "R 1,100.00", portfolio.CurrentValueFormatted)
}

func TestInvestmentHandlerSuite(t *testing.T) {
	suite.Run(t, new(InvestmentHandlerTestSuite))
}
