package repository

import (
	"context"

	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/models"
	"gorm.io/gorm"
)

// HistoryRepository 对局流水仓储接口
// 流水只追加不修改，纠错通过is_active软失效，原记录永久保留。
type HistoryRepository interface {
	BaseRepository
	// Append 追加一条流水
	Append(ctx context.Context, entry *models.GamePlayHistory) error
	// AppendBatch 批量追加流水（同一效果的多条记录）
	AppendBatch(ctx context.Context, entries []*models.GamePlayHistory) error
	ListByGame(ctx context.Context, gameID uint, p *Pagination) ([]*models.GamePlayHistory, error)
	ListByPlayer(ctx context.Context, gamePlayerID uint, p *Pagination) ([]*models.GamePlayHistory, error)
	ListByTrace(ctx context.Context, traceID string) ([]*models.GamePlayHistory, error)
	// MarkInactive 软失效一条流水，不做物理删除
	MarkInactive(ctx context.Context, id uint) error
}

// historyRepo 对局流水仓储实现
type historyRepo struct {
	*BaseRepo
}

// NewHistoryRepository 创建对局流水仓储
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Append 追加一条流水
func (r *historyRepo) Append(ctx context.Context, entry *models.GamePlayHistory) error {
	entry.IsActive = true
	return r.db.WithContext(ctx).Create(entry).Error
}

// AppendBatch 批量追加流水
func (r *historyRepo) AppendBatch(ctx context.Context, entries []*models.GamePlayHistory) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		e.IsActive = true
	}
	return r.db.WithContext(ctx).Create(&entries).Error
}

// ListByGame 按对局分页列出流水
func (r *historyRepo) ListByGame(ctx context.Context, gameID uint, p *Pagination) ([]*models.GamePlayHistory, error) {
	var entries []*models.GamePlayHistory
	query := r.db.WithContext(ctx).
		Model(&models.GamePlayHistory{}).
		Where("game_id = ?", gameID)

	var total int64
	query.Count(&total)
	p.Total = total

	err := query.
		Limit(p.PageSize).
		Offset(p.Offset()).
		Order("id DESC").
		Find(&entries).Error

	return entries, err
}

// ListByPlayer 按玩家分页列出流水
func (r *historyRepo) ListByPlayer(ctx context.Context, gamePlayerID uint, p *Pagination) ([]*models.GamePlayHistory, error) {
	var entries []*models.GamePlayHistory
	query := r.db.WithContext(ctx).
		Model(&models.GamePlayHistory{}).
		Where("game_player_id = ?", gamePlayerID)

	var total int64
	query.Count(&total)
	p.Total = total

	err := query.
		Limit(p.PageSize).
		Offset(p.Offset()).
		Order("id DESC").
		Find(&entries).Error

	return entries, err
}

// ListByTrace 按追踪ID列出同一效果产生的全部流水
func (r *historyRepo) ListByTrace(ctx context.Context, traceID string) ([]*models.GamePlayHistory, error) {
	var entries []*models.GamePlayHistory
	err := r.db.WithContext(ctx).
		Where("trace_id = ?", traceID).
		Order("id ASC").
		Find(&entries).Error
	return entries, err
}

// MarkInactive 软失效一条流水
func (r *historyRepo) MarkInactive(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.GamePlayHistory{}).
		Where("id = ? AND is_active = ?", id, true).
		Update("is_active", false)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.ErrNotFound, "流水不存在或已失效")
	}
	return nil
}

// WithTx 使用事务
func (r *historyRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &historyRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
