package repository

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GamePropertyRepository 对局地块归属仓储接口
// (game_id, property_id) 唯一索引保证同一对局同一地块至多一个持有者。
type GamePropertyRepository interface {
	BaseRepository
	// Create 创建归属记录（购地）。并发购买同一地块时唯一索引保证只有一方成功。
	Create(ctx context.Context, gp *models.GameProperty) error
	// FindByGameAndProperty 查找归属记录，未被持有时返回(nil, nil)
	FindByGameAndProperty(ctx context.Context, gameID, propertyID uint) (*models.GameProperty, error)
	ListByGame(ctx context.Context, gameID uint) ([]*models.GameProperty, error)
	ListByOwner(ctx context.Context, gameID, ownerID uint) ([]*models.GameProperty, error)
	// CountByOwnerAndGroup 统计持有者在指定颜色组的地块数（车站/公用事业计租用）
	CountByOwnerAndGroup(ctx context.Context, gameID, ownerID uint, colorGroup string) (int64, error)
	// Transfer 条件转移归属，仅当当前持有者为fromOwner时生效
	Transfer(ctx context.Context, gameID, propertyID, fromOwnerID, toOwnerID uint) error
	// SetMortgaged 条件切换抵押标记，要求当前标记为相反值且归属于ownerID
	SetMortgaged(ctx context.Context, gameID, propertyID, ownerID uint, mortgaged bool) error
	// ReleaseAllByOwner 释放持有者的全部地块（破产清算），返回释放数量
	ReleaseAllByOwner(ctx context.Context, gameID, ownerID uint) (int64, error)
}

// gamePropertyRepo 对局地块归属仓储实现
type gamePropertyRepo struct {
	*BaseRepo
}

// NewGamePropertyRepository 创建对局地块归属仓储
func NewGamePropertyRepository(db *gorm.DB) GamePropertyRepository {
	return &gamePropertyRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建归属记录
func (r *gamePropertyRepo) Create(ctx context.Context, gp *models.GameProperty) error {
	err := r.db.WithContext(ctx).Create(gp).Error
	if err != nil {
		// 唯一索引冲突说明另一方已抢先持有
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(strings.ToLower(err.Error()), "unique") {
			return apperrors.New(apperrors.ErrInvalidState, "地块已被持有")
		}
		return err
	}
	return nil
}

// FindByGameAndProperty 查找归属记录
func (r *gamePropertyRepo) FindByGameAndProperty(ctx context.Context, gameID, propertyID uint) (*models.GameProperty, error) {
	var gp models.GameProperty
	err := r.db.WithContext(ctx).
		Preload("Property").
		Where("game_id = ? AND property_id = ?", gameID, propertyID).
		First(&gp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 未被持有
		}
		return nil, err
	}
	return &gp, nil
}

// ListByGame 列出对局全部归属记录
func (r *gamePropertyRepo) ListByGame(ctx context.Context, gameID uint) ([]*models.GameProperty, error) {
	var list []*models.GameProperty
	err := r.db.WithContext(ctx).
		Preload("Property").
		Where("game_id = ?", gameID).
		Find(&list).Error
	return list, err
}

// ListByOwner 列出持有者的归属记录
func (r *gamePropertyRepo) ListByOwner(ctx context.Context, gameID, ownerID uint) ([]*models.GameProperty, error) {
	var list []*models.GameProperty
	err := r.db.WithContext(ctx).
		Preload("Property").
		Where("game_id = ? AND owner_id = ?", gameID, ownerID).
		Find(&list).Error
	return list, err
}

// CountByOwnerAndGroup 统计持有者在指定颜色组的地块数
func (r *gamePropertyRepo) CountByOwnerAndGroup(ctx context.Context, gameID, ownerID uint, colorGroup string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GameProperty{}).
		Joins("JOIN properties ON properties.id = game_properties.property_id").
		Where("game_properties.game_id = ? AND game_properties.owner_id = ? AND properties.color_group = ?",
			gameID, ownerID, colorGroup).
		Count(&count).Error
	return count, err
}

// Transfer 条件转移归属
// 单条条件UPDATE保证校验与写入原子完成：持有者已变化时RowsAffected为0。
func (r *gamePropertyRepo) Transfer(ctx context.Context, gameID, propertyID, fromOwnerID, toOwnerID uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.GameProperty{}).
		Where("game_id = ? AND property_id = ? AND owner_id = ?", gameID, propertyID, fromOwnerID).
		Update("owner_id", toOwnerID)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrOwnershipViolation, "地块不属于转出方")
	}
	return nil
}

// SetMortgaged 条件切换抵押标记
func (r *gamePropertyRepo) SetMortgaged(ctx context.Context, gameID, propertyID, ownerID uint, mortgaged bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.GameProperty{}).
		Where("game_id = ? AND property_id = ? AND owner_id = ? AND mortgaged = ?",
			gameID, propertyID, ownerID, !mortgaged).
		Update("mortgaged", mortgaged)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrInvalidState, "抵押状态校验失败")
	}
	return nil
}

// ReleaseAllByOwner 释放持有者的全部地块
// 物理删除：软删除的墓碑仍占用(game_id, property_id)唯一索引，会挡住之后的购买。
func (r *gamePropertyRepo) ReleaseAllByOwner(ctx context.Context, gameID, ownerID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Unscoped().
		Where("game_id = ? AND owner_id = ?", gameID, ownerID).
		Delete(&models.GameProperty{})
	return result.RowsAffected, result.Error
}

// LockForUpdate 锁定归属记录（悲观锁），未被持有时返回(nil, nil)
func (r *gamePropertyRepo) LockForUpdate(ctx context.Context, gameID, propertyID uint) (*models.GameProperty, error) {
	var gp models.GameProperty
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("game_id = ? AND property_id = ?", gameID, propertyID).
		First(&gp).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &gp, nil
}

// WithTx 使用事务
func (r *gamePropertyRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gamePropertyRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
