package models

// 地块类型
const (
	PropertyTypeStreet   = "street"
	PropertyTypeRailroad = "railroad"
	PropertyTypeUtility  = "utility"
	PropertyTypeTax      = "tax"
	PropertyTypeChance   = "chance"
	PropertyTypeChest    = "chest"
	PropertyTypeCorner   = "corner" // GO、监狱探访、免费停车、入狱
)

// 角落地块的固定位置
const (
	PositionGo           = 0
	PositionJail         = 10
	PositionFreeParking  = 20
	PositionGoToJail     = 30
	PositionIncomeTax    = 4
	PositionLuxuryTax    = 38
	BoardSize            = 40
)

// Property 地块静态目录表（不随对局变化）
type Property struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"size:100;not null" json:"name"`
	Type       string `gorm:"size:20;not null" json:"type"`
	ColorGroup string `gorm:"size:20;index" json:"color_group"`
	Position   int    `gorm:"uniqueIndex;not null" json:"position"` // 0-39
	Price      int64  `gorm:"default:0" json:"price"`
	RentBase   int64  `gorm:"default:0" json:"rent_base"` // 无建筑租金
	Rent1      int64  `gorm:"default:0" json:"rent_1"`    // 1栋房
	Rent2      int64  `gorm:"default:0" json:"rent_2"`
	Rent3      int64  `gorm:"default:0" json:"rent_3"`
	Rent4      int64  `gorm:"default:0" json:"rent_4"`
	RentHotel  int64  `gorm:"default:0" json:"rent_hotel"`
	HouseCost  int64  `gorm:"default:0" json:"house_cost"`
	TaxAmount  int64  `gorm:"default:0" json:"tax_amount"` // 税地块的固定税额
}

// IsOwnable 是否可被购买持有
func (p *Property) IsOwnable() bool {
	switch p.Type {
	case PropertyTypeStreet, PropertyTypeRailroad, PropertyTypeUtility:
		return true
	}
	return false
}

// RentAt 按建筑等级取租金（0无建筑，1-4房屋，5酒店）
func (p *Property) RentAt(houses int) int64 {
	switch houses {
	case 0:
		return p.RentBase
	case 1:
		return p.Rent1
	case 2:
		return p.Rent2
	case 3:
		return p.Rent3
	case 4:
		return p.Rent4
	default:
		return p.RentHotel
	}
}

// GameProperty 对局内地块归属表
// (game_id, property_id) 唯一，保证同一地块同一对局至多一个持有者
type GameProperty struct {
	BaseModel
	GameID     uint `gorm:"not null;uniqueIndex:idx_game_property,priority:1;index" json:"game_id"`
	PropertyID uint `gorm:"not null;uniqueIndex:idx_game_property,priority:2" json:"property_id"`
	OwnerID    uint `gorm:"not null;index" json:"owner_id"` // game_players.id
	Mortgaged  bool `gorm:"default:false" json:"mortgaged"`
	Houses     int  `gorm:"default:0" json:"houses"` // 0-4房屋，5表示酒店

	// 关联
	Property Property `gorm:"foreignKey:PropertyID" json:"property,omitempty"`
}
