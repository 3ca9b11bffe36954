package models

import (
	"time"
)

// 游戏模式
const (
	GameModePublic  = "PUBLIC"
	GameModePrivate = "PRIVATE"
)

// 游戏状态（单向流转：PENDING → RUNNING → FINISHED/CANCELLED）
const (
	GameStatusPending   = "PENDING"
	GameStatusRunning   = "RUNNING"
	GameStatusFinished  = "FINISHED"
	GameStatusCancelled = "CANCELLED"
)

// Game 对局表
type Game struct {
	BaseModel
	JoinCode      string     `gorm:"uniqueIndex;size:16;not null" json:"join_code"`
	Mode          string     `gorm:"size:20;default:'PUBLIC'" json:"mode"`    // PUBLIC, PRIVATE
	Status        string     `gorm:"size:20;default:'PENDING'" json:"status"` // PENDING, RUNNING, FINISHED, CANCELLED
	MaxPlayers    int        `gorm:"default:4" json:"max_players"`
	WinnerID      *uint      `json:"winner_id,omitempty"`      // 获胜玩家（game_players.id）
	CurrentTurnID *uint      `json:"current_turn_id,omitempty"` // 当前回合玩家（game_players.id）
	ChanceCursor  int        `gorm:"default:0" json:"chance_cursor"` // 机会牌堆顺序游标
	ChestCursor   int        `gorm:"default:0" json:"chest_cursor"`  // 公益金牌堆顺序游标
	StartedAt     *time.Time `json:"started_at,omitempty"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`

	// 关联
	Players []GamePlayer `gorm:"foreignKey:GameID" json:"players,omitempty"`
}

// IsTerminal 游戏是否已处于终态
func (g *Game) IsTerminal() bool {
	return g.Status == GameStatusFinished || g.Status == GameStatusCancelled
}

// 玩家棋子符号（固定枚举）
var PlayerTokens = []string{"hat", "car", "dog", "ship", "boot", "thimble", "wheelbarrow", "iron"}

// GamePlayer 对局玩家表
type GamePlayer struct {
	BaseModel
	GameID          uint   `gorm:"not null;uniqueIndex:idx_game_user,priority:1;index" json:"game_id"`
	UserID          uint   `gorm:"not null;uniqueIndex:idx_game_user,priority:2" json:"user_id"`
	Balance         int64  `gorm:"default:0" json:"balance"`
	Position        int    `gorm:"default:0" json:"position"` // 0-39
	TurnOrder       int    `gorm:"default:0" json:"turn_order"`
	Token           string `gorm:"size:20" json:"token"`
	InJail          bool   `gorm:"default:false" json:"in_jail"`
	JailAttempts    int    `gorm:"default:0" json:"jail_attempts"` // 连续掷双失败次数
	HasChanceJail   bool   `gorm:"default:false" json:"has_chance_jail_card"` // 机会出狱卡
	HasChestJail    bool   `gorm:"default:false" json:"has_chest_jail_card"`  // 公益金出狱卡
	IsBankrupt      bool   `gorm:"default:false;index" json:"is_bankrupt"`
	OutstandingDebt int64  `gorm:"default:0" json:"outstanding_debt"` // 未结清的强制支付（租金/税）
	CreditorID      *uint  `json:"creditor_id,omitempty"`             // 债权玩家，nil表示欠银行

	// 关联
	User  User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Perks []GamePlayerPerk `gorm:"foreignKey:GamePlayerID" json:"perks,omitempty"`
}

// 特权卡种类
const (
	PerkExtraTurn        = "extra_turn"
	PerkJailFree         = "jail_free"
	PerkDoubleRent       = "double_rent"
	PerkRollBoost        = "roll_boost"
	PerkInstantCash      = "instant_cash"
	PerkTeleport         = "teleport"
	PerkShield           = "shield"
	PerkPropertyDiscount = "property_discount"
	PerkTaxRefund        = "tax_refund"
	PerkExactRoll        = "exact_roll"
)

// NonStackablePerks 不可叠加的特权种类（同类同时只允许一个激活）
var NonStackablePerks = map[string]bool{
	PerkDoubleRent:       true,
	PerkShield:           true,
	PerkPropertyDiscount: true,
}

// 特权状态
const (
	PerkStatusHeld     = "held"     // 已持有未激活
	PerkStatusActive   = "active"   // 已激活待生效
	PerkStatusConsumed = "consumed" // 已消耗
)

// GamePlayerPerk 玩家特权表
type GamePlayerPerk struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	GameID       uint       `gorm:"not null;index" json:"game_id"`
	GamePlayerID uint       `gorm:"not null;index" json:"game_player_id"`
	Kind         string     `gorm:"size:30;not null;index" json:"kind"`
	Status       string     `gorm:"size:20;default:'held';index" json:"status"` // held, active, consumed
	Params       JSONMap    `gorm:"type:json" json:"params,omitempty"`          // 激活参数（指定骰点、传送目标等）
	ActivatedAt  *time.Time `json:"activated_at,omitempty"`
	ConsumedAt   *time.Time `json:"consumed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// TableName 指定表名
func (GamePlayerPerk) TableName() string {
	return "game_player_perks"
}
