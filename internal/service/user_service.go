package service

import (
	"context"
	"errors"

	"github.com/wfunc/tycoon-game/internal/models"
	"github.com/wfunc/tycoon-game/internal/repository"
	"go.uber.org/zap"
)

// userService 用户服务实现
type userService struct {
	userRepo repository.UserRepository
	log      *zap.Logger
}

// NewUserService 创建用户服务
func NewUserService(userRepo repository.UserRepository, log *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		log:      log,
	}
}

// GetByID 查询用户资料
func (s *userService) GetByID(ctx context.Context, userID uint) (*models.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}

// UpdateNickname 修改昵称
func (s *userService) UpdateNickname(ctx context.Context, userID uint, nickname string) error {
	if nickname == "" || len(nickname) > 100 {
		return errors.New("昵称长度须在1-100个字符之间")
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	user.Nickname = nickname
	return s.userRepo.Update(ctx, user)
}

// RegisterAgent 注册AI代理账号
// 代理账号不设密码，只能由服务端持有的令牌代为行动。
func (s *userService) RegisterAgent(ctx context.Context, username, provider string) (*models.User, error) {
	if !usernamePattern.MatchString(username) {
		return nil, errors.New("用户名须为3-20位字母、数字或下划线")
	}
	if existing, _ := s.userRepo.FindByUsername(ctx, username); existing != nil {
		return nil, errors.New("用户名已存在")
	}

	agent := &models.User{
		Username: username,
		Nickname: username,
		Kind:     models.UserKindAgent,
		Provider: provider,
		Status:   "active",
	}
	if err := s.userRepo.Create(ctx, agent); err != nil {
		return nil, err
	}

	s.log.Info("AI代理已注册",
		zap.Uint("user_id", agent.ID),
		zap.String("provider", provider),
	)
	return agent, nil
}
