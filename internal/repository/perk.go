package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/models"
	"gorm.io/gorm"
)

// PerkRepository 道具仓储接口
// 道具生命周期: held -> active -> consumed，流转均为条件更新。
type PerkRepository interface {
	BaseRepository
	// Grant 发放道具（held状态）
	Grant(ctx context.Context, perk *models.GamePlayerPerk) error
	FindByID(ctx context.Context, id uint) (*models.GamePlayerPerk, error)
	ListByPlayer(ctx context.Context, gamePlayerID uint) ([]*models.GamePlayerPerk, error)
	// ListActiveByPlayer 列出玩家激活中的道具
	ListActiveByPlayer(ctx context.Context, gamePlayerID uint) ([]*models.GamePlayerPerk, error)
	// HasActiveOfKind 玩家是否已有同类激活道具（互斥校验）
	HasActiveOfKind(ctx context.Context, gamePlayerID uint, kind string) (bool, error)
	// Activate 条件激活，仅当道具仍为held时生效
	Activate(ctx context.Context, id uint, params models.JSONMap) error
	// Consume 条件消耗，仅当道具仍为active时生效
	// 一次性道具恰好消耗一次由此保证。
	Consume(ctx context.Context, id uint) error
}

// perkRepo 道具仓储实现
type perkRepo struct {
	*BaseRepo
}

// NewPerkRepository 创建道具仓储
func NewPerkRepository(db *gorm.DB) PerkRepository {
	return &perkRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Grant 发放道具
func (r *perkRepo) Grant(ctx context.Context, perk *models.GamePlayerPerk) error {
	if perk.Status == "" {
		perk.Status = models.PerkStatusHeld
	}
	return r.db.WithContext(ctx).Create(perk).Error
}

// FindByID 根据ID查找道具
func (r *perkRepo) FindByID(ctx context.Context, id uint) (*models.GamePlayerPerk, error) {
	var perk models.GamePlayerPerk
	err := r.db.WithContext(ctx).First(&perk, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "道具不存在")
		}
		return nil, err
	}
	return &perk, nil
}

// ListByPlayer 列出玩家全部道具
func (r *perkRepo) ListByPlayer(ctx context.Context, gamePlayerID uint) ([]*models.GamePlayerPerk, error) {
	var perks []*models.GamePlayerPerk
	err := r.db.WithContext(ctx).
		Where("game_player_id = ?", gamePlayerID).
		Order("created_at ASC").
		Find(&perks).Error
	return perks, err
}

// ListActiveByPlayer 列出玩家激活中的道具
func (r *perkRepo) ListActiveByPlayer(ctx context.Context, gamePlayerID uint) ([]*models.GamePlayerPerk, error) {
	var perks []*models.GamePlayerPerk
	err := r.db.WithContext(ctx).
		Where("game_player_id = ? AND status = ?", gamePlayerID, models.PerkStatusActive).
		Find(&perks).Error
	return perks, err
}

// HasActiveOfKind 玩家是否已有同类激活道具
func (r *perkRepo) HasActiveOfKind(ctx context.Context, gamePlayerID uint, kind string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GamePlayerPerk{}).
		Where("game_player_id = ? AND kind = ? AND status = ?",
			gamePlayerID, kind, models.PerkStatusActive).
		Count(&count).Error
	return count > 0, err
}

// Activate 条件激活
func (r *perkRepo) Activate(ctx context.Context, id uint, params models.JSONMap) error {
	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.PerkStatusActive,
		"activated_at": now,
	}
	if params != nil {
		updates["params"] = params
	}
	result := r.db.WithContext(ctx).
		Model(&models.GamePlayerPerk{}).
		Where("id = ? AND status = ?", id, models.PerkStatusHeld).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrPerkNotHeld)
	}
	return nil
}

// Consume 条件消耗
func (r *perkRepo) Consume(ctx context.Context, id uint) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.GamePlayerPerk{}).
		Where("id = ? AND status = ?", id, models.PerkStatusActive).
		Updates(map[string]interface{}{
			"status":      models.PerkStatusConsumed,
			"consumed_at": now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrInvalidState, "道具不在激活状态")
	}
	return nil
}

// WithTx 使用事务
func (r *perkRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &perkRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
