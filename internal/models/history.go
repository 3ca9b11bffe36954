package models

import (
	"time"
)

// 历史动作类别
const (
	HistoryActionMove       = "move"
	HistoryActionPassGo     = "pass_go"
	HistoryActionPurchase   = "purchase"
	HistoryActionRent       = "rent"
	HistoryActionTax        = "tax"
	HistoryActionCard       = "card"
	HistoryActionJailIn     = "jail_in"
	HistoryActionJailOut    = "jail_out"
	HistoryActionMortgage   = "mortgage"
	HistoryActionUnmortgage = "unmortgage"
	HistoryActionTrade      = "trade"
	HistoryActionPerk       = "perk"
	HistoryActionBankrupt   = "bankrupt"
	HistoryActionTurnEnd    = "turn_end"
	HistoryActionGameOver   = "game_over"
)

// GamePlayHistory 对局流水表（追加式审计日志）
// 写入后不再更新，仅允许通过is_active做软失效标记，永不物理删除。
type GamePlayHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	GameID       uint      `gorm:"not null;index" json:"game_id"`
	GamePlayerID uint      `gorm:"not null;index" json:"game_player_id"`
	Action       string    `gorm:"size:30;not null;index" json:"action"`
	OldPosition  int       `gorm:"default:0" json:"old_position"`
	NewPosition  int       `gorm:"default:0" json:"new_position"`
	Amount       int64     `gorm:"default:0" json:"amount"` // 有符号金额，正为入账
	TraceID      string    `gorm:"size:36;index" json:"trace_id"` // 同一回合内各效果共享
	Extra        JSONMap   `gorm:"type:json" json:"extra"`
	IsActive     bool      `gorm:"default:true;index" json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName 指定表名
func (GamePlayHistory) TableName() string {
	return "game_play_histories"
}
