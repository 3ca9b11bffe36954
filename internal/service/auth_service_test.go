package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/tycoon-game/internal/repository"
	"github.com/wfunc/tycoon-game/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthServiceTestSuite 认证服务测试套件
type AuthServiceTestSuite struct {
	suite.Suite
	db       *gorm.DB
	auth     AuthService
	users    UserService
	userRepo repository.UserRepository
	authRepo repository.UserAuthRepository
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	suite.userRepo = repository.NewUserRepository(suite.db)
	suite.authRepo = repository.NewUserAuthRepository(suite.db)

	jwtManager := utils.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	suite.auth = NewAuthService(suite.db, suite.userRepo, suite.authRepo, jwtManager,
		utils.DefaultArgon2Params(), zap.NewNop())
	suite.users = NewUserService(suite.userRepo, zap.NewNop())
}

func (suite *AuthServiceTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

func (suite *AuthServiceTestSuite) register(username, password string) *AuthResponse {
	resp, err := suite.auth.Register(context.Background(), &RegisterRequest{
		Username:        username,
		Password:        password,
		ConfirmPassword: password,
	})
	suite.Require().NoError(err)
	return resp
}

// TestRegisterAndLogin 注册后可登录并获得有效令牌
func (suite *AuthServiceTestSuite) TestRegisterAndLogin() {
	ctx := context.Background()
	resp := suite.register("alice", "secret123")

	assert.NotEmpty(suite.T(), resp.AccessToken)
	assert.NotEmpty(suite.T(), resp.RefreshToken)
	assert.Equal(suite.T(), "Bearer", resp.TokenType)

	login, err := suite.auth.Login(ctx, &LoginRequest{Username: "alice", Password: "secret123"})
	suite.Require().NoError(err)

	claims, err := suite.auth.ValidateToken(ctx, login.AccessToken)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), resp.User.ID, claims.UserID)
	assert.Equal(suite.T(), "alice", claims.Username)
}

// TestRegisterValidation 非法注册请求被拒绝
func (suite *AuthServiceTestSuite) TestRegisterValidation() {
	ctx := context.Background()

	_, err := suite.auth.Register(ctx, &RegisterRequest{
		Username: "x", Password: "secret123", ConfirmPassword: "secret123"})
	assert.Error(suite.T(), err)

	_, err = suite.auth.Register(ctx, &RegisterRequest{
		Username: "alice", Password: "secret123", ConfirmPassword: "other"})
	assert.Error(suite.T(), err)

	suite.register("alice", "secret123")
	_, err = suite.auth.Register(ctx, &RegisterRequest{
		Username: "alice", Password: "secret123", ConfirmPassword: "secret123"})
	assert.Error(suite.T(), err)
}

// TestLoginLockout 连续失败后账号锁定
func (suite *AuthServiceTestSuite) TestLoginLockout() {
	ctx := context.Background()
	suite.register("bob", "secret123")

	for i := 0; i < 5; i++ {
		_, err := suite.auth.Login(ctx, &LoginRequest{Username: "bob", Password: "wrong"})
		assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)
	}

	// 锁定期内正确密码也被拒绝
	_, err := suite.auth.Login(ctx, &LoginRequest{Username: "bob", Password: "secret123"})
	assert.ErrorIs(suite.T(), err, ErrAccountLocked)
}

// TestRefreshToken 刷新令牌换取新的访问令牌
func (suite *AuthServiceTestSuite) TestRefreshToken() {
	ctx := context.Background()
	resp := suite.register("carol", "secret123")

	refreshed, err := suite.auth.RefreshToken(ctx, resp.RefreshToken)
	suite.Require().NoError(err)
	assert.NotEmpty(suite.T(), refreshed.AccessToken)

	// 访问令牌不能当刷新令牌用
	_, err = suite.auth.RefreshToken(ctx, resp.AccessToken)
	assert.Error(suite.T(), err)
}

// TestChangePassword 修改密码需校验旧密码
func (suite *AuthServiceTestSuite) TestChangePassword() {
	ctx := context.Background()
	resp := suite.register("dave", "secret123")

	err := suite.auth.ChangePassword(ctx, resp.User.ID, "wrong", "newsecret1")
	assert.ErrorIs(suite.T(), err, ErrInvalidCredentials)

	suite.Require().NoError(suite.auth.ChangePassword(ctx, resp.User.ID, "secret123", "newsecret1"))

	_, err = suite.auth.Login(ctx, &LoginRequest{Username: "dave", Password: "secret123"})
	assert.Error(suite.T(), err)
	_, err = suite.auth.Login(ctx, &LoginRequest{Username: "dave", Password: "newsecret1"})
	assert.NoError(suite.T(), err)
}

// TestRegisterAgent AI代理账号注册
func (suite *AuthServiceTestSuite) TestRegisterAgent() {
	ctx := context.Background()

	agent, err := suite.users.RegisterAgent(ctx, "bot_one", "openai")
	suite.Require().NoError(err)
	assert.True(suite.T(), agent.IsAgent())
	assert.Equal(suite.T(), "openai", agent.Provider)

	_, err = suite.users.RegisterAgent(ctx, "bot_one", "openai")
	assert.Error(suite.T(), err)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
