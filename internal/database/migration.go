package database

import (
	"fmt"

	"github.com/wfunc/tycoon-game/internal/board"
	"github.com/wfunc/tycoon-game/internal/logger"
	"github.com/wfunc/tycoon-game/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm/clause"
)

// AutoMigrate 自动迁移数据库表结构并写入目录种子数据
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 定义需要迁移的模型
	migrationModels := []interface{}{
		// 用户相关
		&models.User{},
		&models.UserAuth{},

		// 对局相关
		&models.Game{},
		&models.GamePlayer{},
		&models.GamePlayerPerk{},

		// 地块相关
		&models.Property{},
		&models.GameProperty{},

		// 交易相关
		&models.GameTrade{},
		&models.GameTradeItem{},

		// 卡牌相关
		&models.ChanceCard{},
		&models.CommunityChestCard{},

		// 审计流水
		&models.GamePlayHistory{},
	}

	logger.Info("开始数据库迁移...")

	// SQLite迁移期间关闭外键约束，避免重建表时的锁定问题
	if DB.Dialector.Name() == "sqlite" {
		DB.Exec("PRAGMA foreign_keys = OFF")
		defer DB.Exec("PRAGMA foreign_keys = ON")
	}

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	// 写入棋盘与牌堆目录
	if err := SeedCatalogs(); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// SeedCatalogs 写入静态目录数据（40格地块、两副牌堆）
// 采用按主键冲突跳过的方式，重复执行是幂等的。
func SeedCatalogs() error {
	squares := board.Squares()
	if err := DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&squares).Error; err != nil {
		return fmt.Errorf("写入地块目录失败: %w", err)
	}

	chance := board.ChanceDeck()
	if err := DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&chance).Error; err != nil {
		return fmt.Errorf("写入机会牌堆失败: %w", err)
	}

	chest := board.ChestDeck()
	if err := DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&chest).Error; err != nil {
		return fmt.Errorf("写入公益金牌堆失败: %w", err)
	}

	logger.Info("目录种子数据就绪",
		zap.Int("squares", len(squares)),
		zap.Int("chance_cards", len(chance)),
		zap.Int("chest_cards", len(chest)),
	)
	return nil
}
