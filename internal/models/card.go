package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// 卡牌效果类型
const (
	CardEffectCredit        = "credit"
	CardEffectDebit         = "debit"
	CardEffectMove          = "move"
	CardEffectCreditAndMove = "credit_and_move"
	CardEffectDebitAndMove  = "debit_and_move"
	CardEffectSpecial       = "special"
)

// 参数化特殊规则种类（special类卡牌的extra.kind）
const (
	CardRulePerHouse        = "per_house"         // 按房屋/酒店数缴修缮费
	CardRulePerPlayer       = "per_player"        // 向/从每位其他玩家收付
	CardRuleNearestRailroad = "nearest_railroad"  // 前进至最近车站
	CardRuleNearestUtility  = "nearest_utility"   // 前进至最近公用事业
	CardRuleJailFree        = "jail_free"         // 发放出狱卡
	CardRuleGoToJail        = "go_to_jail"        // 入狱
)

// CardExtra 卡牌参数化载荷（按效果类型取用相应字段）
type CardExtra struct {
	Kind           string `json:"kind,omitempty"`            // 特殊规则种类
	PerHouse       int64  `json:"per_house,omitempty"`       // 每栋房屋费用
	PerHotel       int64  `json:"per_hotel,omitempty"`       // 每间酒店费用
	PerPlayer      int64  `json:"per_player,omitempty"`      // 每位玩家金额
	RentMultiplier int    `json:"rent_multiplier,omitempty"` // 最近车站/公用事业的租金倍数
}

// Value 实现driver.Valuer接口
func (e CardExtra) Value() (driver.Value, error) {
	return json.Marshal(e)
}

// Scan 实现sql.Scanner接口
func (e *CardExtra) Scan(value interface{}) error {
	if value == nil {
		*e = CardExtra{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("不支持的CardExtra字段类型")
	}
	return json.Unmarshal(data, e)
}

// Card 卡牌公共字段
type Card struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Sort       int       `gorm:"uniqueIndex;not null" json:"sort"` // 牌堆内顺序
	Text       string    `gorm:"size:255;not null" json:"text"`
	EffectType string    `gorm:"size:30;not null" json:"effect_type"`
	Amount     int64     `gorm:"default:0" json:"amount"`
	MoveTo     *int      `json:"move_to,omitempty"` // 绝对目标位置
	MoveBy     *int      `json:"move_by,omitempty"` // 相对位移（可为负，环绕0-39）
	Extra      CardExtra `gorm:"type:json" json:"extra"`
}

// ChanceCard 机会卡牌表
type ChanceCard struct {
	Card
}

// TableName 指定表名
func (ChanceCard) TableName() string {
	return "chance_cards"
}

// CommunityChestCard 公益金卡牌表
type CommunityChestCard struct {
	Card
}

// TableName 指定表名
func (CommunityChestCard) TableName() string {
	return "community_chest_cards"
}

// 牌堆标识
const (
	DeckChance = "chance"
	DeckChest  = "chest"
)
