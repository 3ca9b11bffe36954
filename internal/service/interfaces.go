package service

import (
	"context"

	"github.com/wfunc/tycoon-game/internal/models"
)

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username        string `json:"username" binding:"required"`
	Nickname        string `json:"nickname"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AuthResponse 认证响应
type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	TokenType    string       `json:"token_type"`
}

// TokenClaims 解析后的令牌信息
type TokenClaims struct {
	UserID    uint   `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	SessionID string `json:"session_id"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// AuthService 认证服务接口
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*AuthResponse, error)
	ValidateToken(ctx context.Context, token string) (*TokenClaims, error)
	ChangePassword(ctx context.Context, userID uint, oldPassword, newPassword string) error
}

// UserService 用户服务接口
type UserService interface {
	GetByID(ctx context.Context, userID uint) (*models.User, error)
	UpdateNickname(ctx context.Context, userID uint, nickname string) error
	RegisterAgent(ctx context.Context, username, provider string) (*models.User, error)
}
