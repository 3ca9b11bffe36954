package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// TransactionManager 事务管理器接口
// 回合、交易结算、破产清算等多表写入都在同一事务中完成。
type TransactionManager interface {
	// Begin 开始事务
	Begin(ctx context.Context) (*Transaction, error)
	// WithTransaction 在事务中执行函数
	WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error
}

// Transaction 事务包装器
// 事务中的仓储实例按需惰性创建，共享同一个*gorm.DB。
type Transaction struct {
	tx         *gorm.DB
	ctx        context.Context
	committed  bool
	rolledback bool

	// 用户相关
	user     UserRepository
	userAuth UserAuthRepository

	// 对局相关
	game   GameRepository
	player GamePlayerRepository
	perk   PerkRepository

	// 地块相关
	property GamePropertyRepository

	// 交易相关
	trade GameTradeRepository

	// 审计流水
	history HistoryRepository
}

// txManager 事务管理器实现
type txManager struct {
	db *gorm.DB
}

// NewTransactionManager 创建事务管理器
func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &txManager{db: db}
}

// Begin 开始事务
func (m *txManager) Begin(ctx context.Context) (*Transaction, error) {
	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}

	return &Transaction{
		tx:  tx,
		ctx: ctx,
	}, nil
}

// WithTransaction 在事务中执行函数
func (m *txManager) WithTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	// 确保事务被处理
	defer func() {
		if !tx.committed && !tx.rolledback {
			tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// Commit 提交事务
func (t *Transaction) Commit() error {
	if t.committed {
		return fmt.Errorf("事务已提交")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	if err := t.tx.Commit().Error; err != nil {
		return err
	}

	t.committed = true
	return nil
}

// Rollback 回滚事务
func (t *Transaction) Rollback() error {
	if t.committed {
		return fmt.Errorf("事务已提交，无法回滚")
	}
	if t.rolledback {
		return fmt.Errorf("事务已回滚")
	}

	if err := t.tx.Rollback().Error; err != nil {
		return err
	}

	t.rolledback = true
	return nil
}

// GetDB 获取事务中的数据库实例
func (t *Transaction) GetDB() *gorm.DB {
	return t.tx
}

// User 获取事务中的用户仓储
func (t *Transaction) User() UserRepository {
	if t.user == nil {
		t.user = &userRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.user
}

// UserAuth 获取事务中的用户凭证仓储
func (t *Transaction) UserAuth() UserAuthRepository {
	if t.userAuth == nil {
		t.userAuth = &userAuthRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.userAuth
}

// Game 获取事务中的对局仓储
func (t *Transaction) Game() GameRepository {
	if t.game == nil {
		t.game = &gameRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.game
}

// Player 获取事务中的对局玩家仓储
func (t *Transaction) Player() GamePlayerRepository {
	if t.player == nil {
		t.player = &gamePlayerRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.player
}

// Perk 获取事务中的道具仓储
func (t *Transaction) Perk() PerkRepository {
	if t.perk == nil {
		t.perk = &perkRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.perk
}

// Property 获取事务中的地块归属仓储
func (t *Transaction) Property() GamePropertyRepository {
	if t.property == nil {
		t.property = &gamePropertyRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.property
}

// Trade 获取事务中的交易仓储
func (t *Transaction) Trade() GameTradeRepository {
	if t.trade == nil {
		t.trade = &gameTradeRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.trade
}

// History 获取事务中的流水仓储
func (t *Transaction) History() HistoryRepository {
	if t.history == nil {
		t.history = &historyRepo{
			BaseRepo: &BaseRepo{db: t.tx},
		}
	}
	return t.history
}
