package service_test

import (
	"context"
	"testing"

	"github.com/greenfina/greenfina/internal/domain"
	"github.com/greenfina/greenfina/internal/dto"
	userrepo "github.com/greenfina/greenfina/internal/repository/user"
	"github.com/greenfina/greenfina/internal/service"
	authsrv "github.com/greenfina/greenfina/internal/service/auth"
	"github.com/greenfina/greenfina/pkg/common"
	"github.com/greenfina/greenfina/pkg/password"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const testSecret = "test-secret"

type AuthServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	ctx         context.Context
	authService service.AuthServices
}

func (suite *AuthServiceTestSuite) SetupSuite() {
	password.Cost = bcrypt.MinCost
	suite.db = setupTestDB(suite.T())
	suite.ctx = context.Background()

	meter, tracer := telemetry("auth")
	users := userrepo.NewUserRepository(suite.db, meter, tracer, zap.NewNop())
	suite.authService = authsrv.NewAuthService(testSecret, users, meter, tracer, zap.NewNop())
}

func (suite *AuthServiceTestSuite) TearDownSuite() {
	password.Cost = 14
}

func (suite *AuthServiceTestSuite) SetupTest() {
	resetTables(suite.db)
}

func (suite *AuthServiceTestSuite) register(email string) *domain.User {
	user, err := suite.authService.Register(suite.ctx, &domain.User{
		FullName: "Thandi Nkosi",
		Email:    email,
	}, "correct-horse")
	require.NoError(suite.T(), err)
	return user
}

func (suite *AuthServiceTestSuite) TestRegister() {
	user := suite.register("  Thandi@Example.co.za ")

	assert.NotZero(suite.T(), user.ID)
	assert.Equal(suite.T(), "thandi@example.co.za", user.Email)
	assert.Equal(suite.T(), domain.UserRole, user.Role)
	assert.NotEqual(suite.T(), "correct-horse", user.Password)
}

func (suite *AuthServiceTestSuite) TestRegister_DuplicateEmail() {
	suite.register("thandi@example.co.za")

	_, err := suite.authService.Register(suite.ctx, &domain.User{FullName: "Other", Email: "THANDI@example.co.za"}, "another-pass")
	assert.ErrorIs(suite.T(), err, common.ErrEmailExists)
}

func (suite *AuthServiceTestSuite) TestLogin_IssuesSignedClaims() {
	user := suite.register("thandi@example.co.za")

	res, err := suite.authService.Login(suite.ctx, dto.LoginRequest{Email: "thandi@example.co.za", Password: "correct-horse"})
	require.NoError(suite.T(), err)

	claims := &domain.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(res.Token, claims, func(*jwt.Token) (any, error) {
		return []byte(testSecret), nil
	}, jwt.WithIssuer(authsrv.Issuer), jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(suite.T(), err)
	assert.True(suite.T(), token.Valid)
	assert.Equal(suite.T(), user.ID, claims.UserID)
	assert.Equal(suite.T(), domain.UserRole, claims.Role)
}

func (suite *AuthServiceTestSuite) TestLogin_InvalidCredentials() {
	suite.register("thandi@example.co.za")

	_, err := suite.authService.Login(suite.ctx, dto.LoginRequest{Email: "thandi@example.co.za", Password: "wrong"})
	assert.ErrorIs(suite.T(), err, common.ErrInvalidCredentials)

	_, err = suite.authService.Login(suite.ctx, dto.LoginRequest{Email: "nobody@example.co.za", Password: "correct-horse"})
	assert.ErrorIs(suite.T(), err, common.ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestMe() {
	user := suite.register("thandi@example.co.za")

	me, err := suite.authService.Me(suite.ctx, user.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Thandi Nkosi", me.FullName)

	_, err = suite.authService.Me(suite.ctx, user.ID+100)
	assert.ErrorIs(suite.T(), err, common.ErrUserNotFound)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
