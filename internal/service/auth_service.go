package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/models"
	"github.com/wfunc/tycoon-game/internal/repository"
	"github.com/wfunc/tycoon-game/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserBanned         = errors.New("用户已被封禁")
	ErrAccountLocked      = errors.New("账号已锁定，请稍后再试")
	ErrInvalidToken       = errors.New("无效的令牌")
)

// 连续失败锁定阈值
const (
	maxLoginAttempts = 5
	lockDuration     = 15 * time.Minute
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// authService 认证服务实现
type authService struct {
	db         *gorm.DB
	userRepo   repository.UserRepository
	authRepo   repository.UserAuthRepository
	jwtManager *utils.JWTManager
	hashParams utils.Argon2Params
	log        *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	authRepo repository.UserAuthRepository,
	jwtManager *utils.JWTManager,
	hashParams utils.Argon2Params,
	log *zap.Logger,
) AuthService {
	return &authService{
		db:         db,
		userRepo:   userRepo,
		authRepo:   authRepo,
		jwtManager: jwtManager,
		hashParams: hashParams.Normalize(),
		log:        log,
	}
}

// Register 用户注册
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	if err := s.validateRegisterRequest(req); err != nil {
		return nil, err
	}

	if existing, _ := s.userRepo.FindByUsername(ctx, req.Username); existing != nil {
		return nil, errors.New("用户名已存在")
	}

	hashedPassword, err := utils.HashPasswordWithParams(req.Password, s.hashParams)
	if err != nil {
		return nil, fmt.Errorf("密码加密失败: %w", err)
	}

	user := &models.User{
		Username: req.Username,
		Nickname: req.Nickname,
		Kind:     models.UserKindHuman,
		Status:   "active",
	}
	if user.Nickname == "" {
		user.Nickname = req.Username
	}

	// 用户与凭证在同一事务内创建
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).(repository.UserRepository).Create(ctx, user); err != nil {
			return fmt.Errorf("创建用户失败: %w", err)
		}
		auth := &models.UserAuth{
			UserID:   user.ID,
			Password: hashedPassword,
		}
		if err := s.authRepo.WithTx(tx).(repository.UserAuthRepository).Create(ctx, auth); err != nil {
			return fmt.Errorf("创建凭证失败: %w", err)
		}
		return nil
	})
	if err != nil {
		s.log.Error("注册失败", zap.String("username", req.Username), zap.Error(err))
		return nil, err
	}

	s.log.Info("用户注册成功", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return s.issueTokens(user)
}

// Login 用户登录
// 连续失败达到阈值后锁定一段时间，成功登录重置计数。
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil || user == nil {
		s.log.Warn("登录失败：用户不存在", zap.String("username", req.Username))
		return nil, ErrInvalidCredentials
	}
	if user.Status == "banned" {
		return nil, ErrUserBanned
	}

	auth, err := s.authRepo.FindByUserID(ctx, user.ID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if auth.LockedUntil != nil && auth.LockedUntil.After(time.Now()) {
		return nil, ErrAccountLocked
	}

	valid, err := utils.VerifyPassword(req.Password, auth.Password)
	if err != nil || !valid {
		s.log.Warn("登录失败：密码错误", zap.Uint("user_id", user.ID))
		_ = s.authRepo.IncrementLoginAttempts(ctx, user.ID)
		if auth.LoginAttempts+1 >= maxLoginAttempts {
			_ = s.authRepo.LockUntil(ctx, user.ID, time.Now().Add(lockDuration))
		}
		return nil, ErrInvalidCredentials
	}

	_ = s.authRepo.ResetLoginAttempts(ctx, user.ID)
	_ = s.userRepo.UpdateLastLogin(ctx, user.ID)

	s.log.Info("用户登录成功", zap.Uint("user_id", user.ID), zap.String("username", user.Username))
	return s.issueTokens(user)
}

// RefreshToken 用刷新令牌换取新的访问令牌
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtManager.ValidateToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != "refresh" {
		return nil, errors.New("不是刷新令牌")
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrNotFound, "用户不存在")
	}
	if user.Status == "banned" {
		return nil, ErrUserBanned
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(
		user.ID, user.Username, "", user.Kind, claims.SessionID)
	if err != nil {
		return nil, fmt.Errorf("生成访问令牌失败: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// ValidateToken 验证访问令牌
func (s *authService) ValidateToken(ctx context.Context, token string) (*TokenClaims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != "access" {
		return nil, ErrInvalidToken
	}

	return &TokenClaims{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Role:      claims.Role,
		SessionID: claims.SessionID,
		IssuedAt:  claims.IssuedAt.Unix(),
		ExpiresAt: claims.ExpiresAt.Unix(),
	}, nil
}

// ChangePassword 修改密码（校验旧密码）
func (s *authService) ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error {
	if len(newPassword) < 6 {
		return errors.New("密码长度至少6个字符")
	}

	auth, err := s.authRepo.FindByUserID(ctx, userID)
	if err != nil {
		return err
	}
	valid, err := utils.VerifyPassword(oldPassword, auth.Password)
	if err != nil || !valid {
		return ErrInvalidCredentials
	}

	hashed, err := utils.HashPasswordWithParams(newPassword, s.hashParams)
	if err != nil {
		return fmt.Errorf("密码加密失败: %w", err)
	}
	return s.authRepo.UpdatePassword(ctx, userID, hashed)
}

// issueTokens 签发访问/刷新令牌
func (s *authService) issueTokens(user *models.User) (*AuthResponse, error) {
	sessionID, err := utils.GenerateSessionID()
	if err != nil {
		return nil, fmt.Errorf("生成会话ID失败: %w", err)
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(
		user.ID, user.Username, "", user.Kind, sessionID)
	if err != nil {
		return nil, fmt.Errorf("生成访问令牌失败: %w", err)
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID, sessionID)
	if err != nil {
		return nil, fmt.Errorf("生成刷新令牌失败: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
		TokenType:    "Bearer",
	}, nil
}

// validateRegisterRequest 校验注册请求
func (s *authService) validateRegisterRequest(req *RegisterRequest) error {
	if !usernamePattern.MatchString(req.Username) {
		return errors.New("用户名须为3-20位字母、数字或下划线")
	}
	if len(req.Password) < 6 {
		return errors.New("密码长度至少6个字符")
	}
	if req.Password != req.ConfirmPassword {
		return errors.New("两次输入的密码不一致")
	}
	return nil
}
