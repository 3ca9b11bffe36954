package repository

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GameRepository 对局仓储接口
type GameRepository interface {
	BaseRepository
	Create(ctx context.Context, game *models.Game) error
	FindByID(ctx context.Context, id uint) (*models.Game, error)
	FindByJoinCode(ctx context.Context, code string) (*models.Game, error)
	ListByStatus(ctx context.Context, status string, p *Pagination) ([]*models.Game, error)
	LockForUpdate(ctx context.Context, id uint) (*models.Game, error)
	// UpdateStatus 条件更新状态，仅当当前状态为from时生效（状态单向流转）
	UpdateStatus(ctx context.Context, id uint, from, to string) error
	SetCurrentTurn(ctx context.Context, id uint, playerID uint) error
	SetWinner(ctx context.Context, id uint, playerID uint) error
	// AdvanceDeckCursor 推进牌堆游标并返回新值（顺序发牌策略）
	AdvanceDeckCursor(ctx context.Context, id uint, deck string, deckSize int) (int, error)
}

// gameRepo 对局仓储实现
type gameRepo struct {
	*BaseRepo
}

// NewGameRepository 创建对局仓储
func NewGameRepository(db *gorm.DB) GameRepository {
	return &gameRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建对局
func (r *gameRepo) Create(ctx context.Context, game *models.Game) error {
	return r.db.WithContext(ctx).Create(game).Error
}

// FindByID 根据ID查找对局
func (r *gameRepo) FindByID(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).Preload("Players").First(&game, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "对局不存在")
		}
		return nil, err
	}
	return &game, nil
}

// FindByJoinCode 根据加入码查找对局
func (r *gameRepo) FindByJoinCode(ctx context.Context, code string) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).Preload("Players").Where("join_code = ?", code).First(&game).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "对局不存在")
		}
		return nil, err
	}
	return &game, nil
}

// ListByStatus 按状态分页列出对局
func (r *gameRepo) ListByStatus(ctx context.Context, status string, p *Pagination) ([]*models.Game, error) {
	var games []*models.Game
	query := r.db.WithContext(ctx).Model(&models.Game{}).Where("status = ?", status)

	var total int64
	query.Count(&total)
	p.Total = total

	err := query.
		Limit(p.PageSize).
		Offset(p.Offset()).
		Order("created_at DESC").
		Find(&games).Error

	return games, err
}

// LockForUpdate 锁定对局行用于更新（悲观锁）
func (r *gameRepo) LockForUpdate(ctx context.Context, id uint) (*models.Game, error) {
	var game models.Game
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&game, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "对局不存在")
		}
		return nil, err
	}
	return &game, nil
}

// UpdateStatus 条件更新状态
// 状态单向流转：FINISHED/CANCELLED是终态，任何离开终态的转移都被拒绝。
func (r *gameRepo) UpdateStatus(ctx context.Context, id uint, from, to string) error {
	if from == models.GameStatusFinished || from == models.GameStatusCancelled {
		return apperrors.New(apperrors.ErrGameTerminal)
	}

	updates := map[string]interface{}{"status": to}
	switch to {
	case models.GameStatusRunning:
		updates["started_at"] = time.Now()
	case models.GameStatusFinished, models.GameStatusCancelled:
		updates["ended_at"] = time.Now()
	}

	result := r.db.WithContext(ctx).
		Model(&models.Game{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.Newf(apperrors.ErrInvalidState, "对局状态不是%s", from)
	}
	return nil
}

// SetCurrentTurn 设置当前回合玩家
func (r *gameRepo) SetCurrentTurn(ctx context.Context, id uint, playerID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Game{}).
		Where("id = ?", id).
		Update("current_turn_id", playerID).Error
}

// SetWinner 设置胜者
func (r *gameRepo) SetWinner(ctx context.Context, id uint, playerID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.Game{}).
		Where("id = ?", id).
		Update("winner_id", playerID).Error
}

// AdvanceDeckCursor 推进牌堆游标并返回推进前的值
func (r *gameRepo) AdvanceDeckCursor(ctx context.Context, id uint, deck string, deckSize int) (int, error) {
	column := "chance_cursor"
	if deck == models.DeckChest {
		column = "chest_cursor"
	}

	var game models.Game
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&game, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, apperrors.New(apperrors.ErrNotFound, "对局不存在")
		}
		return 0, err
	}

	cursor := game.ChanceCursor
	if deck == models.DeckChest {
		cursor = game.ChestCursor
	}

	next := (cursor + 1) % deckSize
	if err := r.db.WithContext(ctx).
		Model(&models.Game{}).
		Where("id = ?", id).
		Update(column, next).Error; err != nil {
		return 0, err
	}

	return cursor, nil
}

// WithTx 使用事务
func (r *gameRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gameRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
