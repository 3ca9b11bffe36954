package repository

import (
	"context"
	"errors"

	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GamePlayerRepository 对局玩家仓储接口
type GamePlayerRepository interface {
	BaseRepository
	Create(ctx context.Context, player *models.GamePlayer) error
	FindByID(ctx context.Context, id uint) (*models.GamePlayer, error)
	FindByGameAndUser(ctx context.Context, gameID, userID uint) (*models.GamePlayer, error)
	ListByGame(ctx context.Context, gameID uint) ([]*models.GamePlayer, error)
	// ListActive 列出未破产玩家，按回合顺序
	ListActive(ctx context.Context, gameID uint) ([]*models.GamePlayer, error)
	CountByGame(ctx context.Context, gameID uint) (int64, error)
	LockForUpdate(ctx context.Context, id uint) (*models.GamePlayer, error)
	// AddBalance 增加余额
	AddBalance(ctx context.Context, id uint, amount int64) error
	// DeductBalance 条件扣款，余额不足时失败且不产生变更
	DeductBalance(ctx context.Context, id uint, amount int64) error
	UpdatePosition(ctx context.Context, id uint, position int) error
	// SetJail 设置入狱/出狱状态，入狱时重置掷双计数
	SetJail(ctx context.Context, id uint, inJail bool) error
	IncrementJailAttempts(ctx context.Context, id uint) error
	SetJailCard(ctx context.Context, id uint, deck string, has bool) error
	SetDebt(ctx context.Context, id uint, amount int64, creditorID *uint) error
	ClearDebt(ctx context.Context, id uint) error
	MarkBankrupt(ctx context.Context, id uint) error
}

// gamePlayerRepo 对局玩家仓储实现
type gamePlayerRepo struct {
	*BaseRepo
}

// NewGamePlayerRepository 创建对局玩家仓储
func NewGamePlayerRepository(db *gorm.DB) GamePlayerRepository {
	return &gamePlayerRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建对局玩家
func (r *gamePlayerRepo) Create(ctx context.Context, player *models.GamePlayer) error {
	return r.db.WithContext(ctx).Create(player).Error
}

// FindByID 根据ID查找对局玩家
func (r *gamePlayerRepo) FindByID(ctx context.Context, id uint) (*models.GamePlayer, error) {
	var player models.GamePlayer
	err := r.db.WithContext(ctx).First(&player, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "玩家不存在")
		}
		return nil, err
	}
	return &player, nil
}

// FindByGameAndUser 根据对局与用户查找玩家
func (r *gamePlayerRepo) FindByGameAndUser(ctx context.Context, gameID, userID uint) (*models.GamePlayer, error) {
	var player models.GamePlayer
	err := r.db.WithContext(ctx).
		Where("game_id = ? AND user_id = ?", gameID, userID).
		First(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "玩家不存在")
		}
		return nil, err
	}
	return &player, nil
}

// ListByGame 列出对局全部玩家
func (r *gamePlayerRepo) ListByGame(ctx context.Context, gameID uint) ([]*models.GamePlayer, error) {
	var players []*models.GamePlayer
	err := r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Order("turn_order ASC").
		Find(&players).Error
	return players, err
}

// ListActive 列出未破产玩家
func (r *gamePlayerRepo) ListActive(ctx context.Context, gameID uint) ([]*models.GamePlayer, error) {
	var players []*models.GamePlayer
	err := r.db.WithContext(ctx).
		Where("game_id = ? AND is_bankrupt = ?", gameID, false).
		Order("turn_order ASC").
		Find(&players).Error
	return players, err
}

// CountByGame 统计对局玩家数
func (r *gamePlayerRepo) CountByGame(ctx context.Context, gameID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GamePlayer{}).
		Where("game_id = ?", gameID).
		Count(&count).Error
	return count, err
}

// LockForUpdate 锁定玩家行用于更新（悲观锁）
func (r *gamePlayerRepo) LockForUpdate(ctx context.Context, id uint) (*models.GamePlayer, error) {
	var player models.GamePlayer
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&player, id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "玩家不存在")
		}
		return nil, err
	}
	return &player, nil
}

// AddBalance 增加余额
func (r *gamePlayerRepo) AddBalance(ctx context.Context, id uint, amount int64) error {
	return r.db.WithContext(ctx).
		Model(&models.GamePlayer{}).
		Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", amount)).Error
}

// DeductBalance 条件扣款
// WHERE子句保证余额不会被扣为负数，两个并发扣款只会有一个成功。
func (r *gamePlayerRepo) DeductBalance(ctx context.Context, id uint, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.GamePlayer{}).
		Where("id = ? AND balance >= ?", id, amount).
		Update("balance", gorm.Expr("balance - ?", amount))

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrInsufficientFunds)
	}
	return nil
}

// UpdatePosition 更新位置
func (r *gamePlayerRepo) UpdatePosition(ctx context.Context, id uint, position int) error {
	if position < 0 || position >= models.BoardSize {
		return apperrors.Newf(apperrors.ErrInvariantViolation, "位置越界: %d", position)
	}
	return r.db.WithContext(ctx).
		Model(&models.GamePlayer{}).
		Where("id = ?", id).
		Update("position", position).Error
}

// SetJail 设置监狱状态
func (r *gamePlayerRepo) SetJail(ctx context.Context, id uint, inJail bool) error {
	updates := map[string]interface{}{"in_jail": inJail}
	if inJail {
		updates["jail_attempts"] = 0
	}
	return r.db.WithContext(ctx).
		Model(&models.GamePlayer{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// IncrementJailAttempts 递增掷双失败计数
func (r *gamePlayerRepo) IncrementJailAttempts(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.GamePlayer{}).
		Where("id = ?", id).
		Update("jail_attempts", gorm.Expr("jail_attempts + ?", 1)).Error
}

// SetJailCard 设置出狱卡持有标记（按牌堆区分）
func (r *gamePlayerRepo) SetJailCard(ctx context.Context, id uint, deck string, has bool) error {
	column := "has_chance_jail"
	if deck == models.DeckChest {
		column = "has_chest_jail"
	}
	return r.db.WithContext(ctx).
		Model(&models.GamePlayer{}).
		Where("id = ?", id).
		Update(column, has).Error
}

// SetDebt 记录未结清的强制支付
func (r *gamePlayerRepo) SetDebt(ctx context.Context, id uint, amount int64, creditorID *uint) error {
	return r.db.WithContext(ctx).
		Model(&models.GamePlayer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"outstanding_debt": amount,
			"creditor_id":      creditorID,
		}).Error
}

// ClearDebt 清除欠款标记
func (r *gamePlayerRepo) ClearDebt(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.GamePlayer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"outstanding_debt": 0,
			"creditor_id":      nil,
		}).Error
}

// MarkBankrupt 标记破产并移出轮转
func (r *gamePlayerRepo) MarkBankrupt(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.GamePlayer{}).
		Where("id = ? AND is_bankrupt = ?", id, false).
		Updates(map[string]interface{}{
			"is_bankrupt":      true,
			"outstanding_debt": 0,
			"creditor_id":      nil,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrInvalidState, "玩家已破产")
	}
	return nil
}

// WithTx 使用事务
func (r *gamePlayerRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gamePlayerRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
