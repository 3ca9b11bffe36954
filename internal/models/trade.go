package models

// 交易类型
const (
	TradeTypeCash     = "CASH"
	TradeTypeProperty = "PROPERTY"
	TradeTypeMixed    = "MIXED"
)

// 交易状态（PENDING是唯一可流转状态；ACCEPTED/REJECTED为终态；
// COUNTERED标记原交易终结并派生新的PENDING交易）
const (
	TradeStatusPending   = "PENDING"
	TradeStatusAccepted  = "ACCEPTED"
	TradeStatusRejected  = "REJECTED"
	TradeStatusCountered = "COUNTERED"
)

// 交易条目归属方
const (
	TradeSideOffer   = "offer"   // 发起方让渡
	TradeSideRequest = "request" // 接受方让渡
)

// GameTrade 交易提案表
type GameTrade struct {
	BaseModel
	GameID       uint   `gorm:"not null;index" json:"game_id"`
	FromPlayerID uint   `gorm:"not null;index" json:"from_player_id"` // game_players.id
	ToPlayerID   uint   `gorm:"not null;index" json:"to_player_id"`
	Type         string `gorm:"size:20;not null" json:"type"`              // CASH, PROPERTY, MIXED
	Status       string `gorm:"size:20;default:'PENDING';index" json:"status"` // PENDING, ACCEPTED, REJECTED, COUNTERED
	OfferCash    int64  `gorm:"default:0" json:"offer_cash"`   // 发起方支付
	RequestCash  int64  `gorm:"default:0" json:"request_cash"` // 接受方支付
	CounterOfID  *uint  `json:"counter_of_id,omitempty"`       // 被本交易取代的原交易

	// 关联
	Items []GameTradeItem `gorm:"foreignKey:TradeID" json:"items,omitempty"`
}

// IsTerminal 交易是否已终结
func (t *GameTrade) IsTerminal() bool {
	return t.Status != TradeStatusPending
}

// GameTradeItem 交易地块条目表
type GameTradeItem struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	TradeID    uint   `gorm:"not null;index" json:"trade_id"`
	PropertyID uint   `gorm:"not null" json:"property_id"`
	Side       string `gorm:"size:10;not null" json:"side"` // offer, request

	// 关联
	Property Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}
