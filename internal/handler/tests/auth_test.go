package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/dto"
	authhandler "github.com/greenfina/greenfina/internal/handler/auth"
	"github.com/greenfina/greenfina/middleware"
	"github.com/greenfina/greenfina/pkg/common"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"go.uber.org/zap"
)

type AuthHandlerTestSuite struct {
	suite.Suite
	app             *fiber.App
	mockAuthService *MockAuthService
	store           *session.Store
}

func (suite *AuthHandlerTestSuite) SetupTest() {
	suite.mockAuthService = &MockAuthService{}
	suite.store = session.New(session.Config{KeyLookup: "cookie:test-keylookup-auth"})

	meter, tracer := noopTelemetry("auth")
	h := authhandler.NewAuthHandler(suite.mockAuthService, false, meter, tracer, zap.NewNop())

	app := newTestApp(suite.store)
	jwtAuth := middleware.NewJWTAuthMiddleware(testSecret)
	customCSRF := middleware.NewCustomCSRFMiddleware(suite.store)

	app.Post("/auth/register", customCSRF, h.Register)
	app.Post("/auth/login", h.Login)
	app.Post("/auth/logout", jwtAuth, customCSRF, h.Logout)
	app.Get("/me", jwtAuth, h.Me)

	suite.app = app
}

func (suite *AuthHandlerTestSuite) TestRegister() {
	csrfToken, cookies := authenticate(suite.T(), suite.app, 1, domain.UserRole)
	body := map[string]any{
		"full_name":      "Thandi Mokoena",
		"email":          "Thandi@Example.com",
		"password":       "s3cret-stokvel",
		"monthly_income": 18000,
	}

	suite.Run("Success", func() {
		suite.mockAuthService.MockError = nil
		req := createJSONRequestWithAuth(suite.T(), csrfToken, cookies, http.MethodPost, "/auth/register", body)
		resp, err := suite.app.Test(req)
		suite.Require().NoError(err)
		assert.Equal(suite.T(), http.StatusCreated, resp.StatusCode)

		var user dto.UserResponse
		decodeBody(suite.T(), resp, &user)
		assert.Equal(suite.T(), uint64(7), user.ID)
		assert.Equal(suite.T(), "thandi@example.com", user.Email)
		assert.Equal(suite.T(), "user", user.Role)
		assert.Equal(suite.T(), "s3cret-stokvel", suite.mockAuthService.RegisteredPassword)
	})

	suite.Run("Failure - Email Exists", func() {
		suite.mockAuthService.MockError = common.ErrEmailExists
		req := createJSONRequestWithAuth(suite.T(), csrfToken, cookies, http.MethodPost, "/auth/register", body)
		resp, _ := suite.app.Test(req)
		defer resp.Body.Close()
		assert.Equal(suite.T(), http.StatusConflict, resp.StatusCode)
	})

	suite.Run("Failure - Validation", func() {
		suite.mockAuthService.MockError = nil
		req := createJSONRequestWithAuth(suite.T(), csrfToken, cookies, http.MethodPost, "/auth/register", map[string]any{
			"full_name": "T",
			"email":     "not-an-email",
			"password":  "short",
		})
		resp, _ := suite.app.Test(req)
		assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)

		var errBody map[string]any
		decodeBody(suite.T(), resp, &errBody)
		assert.Equal(suite.T(), "Validation failed", errBody["error"])
		assert.ElementsMatch(suite.T(), []any{"FullName", "Email", "Password"}, errBody["fields"])
	})

	suite.Run("Failure - Missing CSRF Header", func() {
		req := createJSONRequestWithAuth(suite.T(), "", cookies, http.MethodPost, "/auth/register", body)
		resp, _ := suite.app.Test(req)
		defer resp.Body.Close()
		assert.Equal(suite.T(), http.StatusForbidden, resp.StatusCode)
	})
}

func (suite *AuthHandlerTestSuite) TestLogin() {
	body := map[string]any{"email": "thandi@example.com", "password": "s3cret-stokvel"}

	suite.Run("Success - Sets Auth Cookie", func() {
		suite.mockAuthService.MockLoginResult = &dto.LoginResponse{Token: "signed.jwt.token"}
		suite.mockAuthService.MockError = nil

		req := createJSONRequestWithAuth(suite.T(), "", nil, http.MethodPost, "/auth/login", body)
		resp, err := suite.app.Test(req)
		suite.Require().NoError(err)
		defer resp.Body.Close()
		assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

		var authCookie *http.Cookie
		for _, c := range resp.Cookies() {
			if c.Name == middleware.AuthCookie {
				authCookie = c
			}
		}
		suite.Require().NotNil(authCookie)
		assert.Equal(suite.T(), "signed.jwt.token", authCookie.Value)
		assert.True(suite.T(), authCookie.HttpOnly)
		assert.True(suite.T(), authCookie.Expires.After(time.Now().Add(71*time.Hour)))
	})

	suite.Run("Failure - Invalid Credentials", func() {
		suite.mockAuthService.MockLoginResult = nil
		suite.mockAuthService.MockError = common.ErrInvalidCredentials

		req := createJSONRequestWithAuth(suite.T(), "", nil, http.MethodPost, "/auth/login", body)
		resp, _ := suite.app.Test(req)
		assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)

		var errBody map[string]any
		decodeBody(suite.T(), resp, &errBody)
		assert.Equal(suite.T(), "Invalid email or password", errBody["error"])
	})
}

func (suite *AuthHandlerTestSuite) TestLogout_ClearsCookie() {
	csrfToken, cookies := authenticate(suite.T(), suite.app, 3, domain.UserRole)

	req := createJSONRequestWithAuth(suite.T(), csrfToken, cookies, http.MethodPost, "/auth/logout", nil)
	resp, err := suite.app.Test(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()
	assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

	for _, c := range resp.Cookies() {
		if c.Name == middleware.AuthCookie {
			assert.Empty(suite.T(), c.Value)
			assert.True(suite.T(), c.Expires.Before(time.Now()))
			return
		}
	}
	suite.Fail("logout did not reset the auth cookie")
}

func (suite *AuthHandlerTestSuite) TestMe() {
	suite.Run("Success - Bearer Token", func() {
		suite.mockAuthService.MockUser = &domain.User{
			ID:        3,
			FullName:  "Thandi Mokoena",
			Email:     "thandi@example.com",
			Role:      domain.UserRole,
			CreatedAt: time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC),
		}
		suite.mockAuthService.MockError = nil

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(suite.T(), 3, domain.UserRole))
		resp, err := suite.app.Test(req)
		suite.Require().NoError(err)
		assert.Equal(suite.T(), http.StatusOK, resp.StatusCode)

		var user dto.UserResponse
		decodeBody(suite.T(), resp, &user)
		assert.Equal(suite.T(), uint64(3), user.ID)
		assert.Equal(suite.T(), "5 March 2024", user.MemberSince)
	})

	suite.Run("Failure - No Token", func() {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		resp, _ := suite.app.Test(req)
		defer resp.Body.Close()
		assert.Equal(suite.T(), http.StatusUnauthorized, resp.StatusCode)
	})

	suite.Run("Failure - User Gone", func() {
		suite.mockAuthService.MockUser = nil
		suite.mockAuthService.MockError = common.ErrUserNotFound

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(suite.T(), 3, domain.UserRole))
		resp, _ := suite.app.Test(req)
		defer resp.Body.Close()
		assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
	})
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerTestSuite))
}
