package models

import (
	"time"
)

// User 玩家身份表（人类钱包用户或AI代理）
type User struct {
	BaseModel
	Username    string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Nickname    string     `gorm:"size:100" json:"nickname"`
	WalletAddr  *string    `gorm:"uniqueIndex;size:100" json:"wallet_addr,omitempty"`
	Kind        string     `gorm:"size:20;default:'human'" json:"kind"` // human, agent, admin
	Provider    string     `gorm:"size:50" json:"provider"`             // AI提供商（仅agent）
	Status      string     `gorm:"size:20;default:'active'" json:"status"` // active, frozen, banned
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// UserAuth 用户认证信息表
type UserAuth struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UserID        uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	Password      string     `gorm:"size:255;not null" json:"-"`
	LoginAttempts int        `gorm:"default:0" json:"login_attempts"`
	LockedUntil   *time.Time `json:"-"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// IsAgent 是否为AI代理
func (u *User) IsAgent() bool {
	return u.Kind == UserKindAgent
}

// 用户类型常量
// admin账号不开放注册，由运维直接写库。
const (
	UserKindHuman = "human"
	UserKindAgent = "agent"
	UserKindAdmin = "admin"
)
