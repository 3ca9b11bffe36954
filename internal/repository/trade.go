package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/models"
	"gorm.io/gorm"
)

// GameTradeRepository 对局交易仓储接口
type GameTradeRepository interface {
	BaseRepository
	// Create 创建交易提案（含条目）
	Create(ctx context.Context, trade *models.GameTrade) error
	FindByID(ctx context.Context, id uint) (*models.GameTrade, error)
	ListByGame(ctx context.Context, gameID uint) ([]*models.GameTrade, error)
	// ListPendingByPlayer 列出等待指定玩家响应的交易
	ListPendingByPlayer(ctx context.Context, gameID, playerID uint) ([]*models.GameTrade, error)
	// UpdateStatusIfPending 条件更新状态，仅当交易仍为PENDING时生效
	// 终态交易不可再被响应，两个并发响应只会有一个成功。
	UpdateStatusIfPending(ctx context.Context, id uint, to string) error
	// Delete 删除未成交的交易提案（软删除）
	Delete(ctx context.Context, id uint) error
}

// gameTradeRepo 对局交易仓储实现
type gameTradeRepo struct {
	*BaseRepo
}

// NewGameTradeRepository 创建对局交易仓储
func NewGameTradeRepository(db *gorm.DB) GameTradeRepository {
	return &gameTradeRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建交易提案
func (r *gameTradeRepo) Create(ctx context.Context, trade *models.GameTrade) error {
	return r.db.WithContext(ctx).Create(trade).Error
}

// FindByID 根据ID查找交易（含条目）
func (r *gameTradeRepo) FindByID(ctx context.Context, id uint) (*models.GameTrade, error) {
	var trade models.GameTrade
	err := r.db.WithContext(ctx).Preload("Items").First(&trade, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "交易不存在")
		}
		return nil, err
	}
	return &trade, nil
}

// ListByGame 列出对局全部交易
func (r *gameTradeRepo) ListByGame(ctx context.Context, gameID uint) ([]*models.GameTrade, error) {
	var trades []*models.GameTrade
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("game_id = ?", gameID).
		Order("created_at DESC").
		Find(&trades).Error
	return trades, err
}

// ListPendingByPlayer 列出等待响应的交易
func (r *gameTradeRepo) ListPendingByPlayer(ctx context.Context, gameID, playerID uint) ([]*models.GameTrade, error) {
	var trades []*models.GameTrade
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("game_id = ? AND to_player_id = ? AND status = ?",
			gameID, playerID, models.TradeStatusPending).
		Order("created_at ASC").
		Find(&trades).Error
	return trades, err
}

// UpdateStatusIfPending 条件更新状态
func (r *gameTradeRepo) UpdateStatusIfPending(ctx context.Context, id uint, to string) error {
	result := r.db.WithContext(ctx).
		Model(&models.GameTrade{}).
		Where("id = ? AND status = ?", id, models.TradeStatusPending).
		Update("status", to)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrTradeResolved)
	}
	return nil
}

// Delete 删除未成交的交易提案
// 已成交（ACCEPTED）的交易是审计的一部分，不允许删除。
func (r *gameTradeRepo) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND status <> ?", id, models.TradeStatusAccepted).
		Delete(&models.GameTrade{})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrInvalidState, "已成交的交易不可删除")
	}
	return nil
}

// WithTx 使用事务
func (r *gameTradeRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gameTradeRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
