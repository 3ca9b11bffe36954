package repository

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wfunc/tycoon-game/internal/board"
	"github.com/wfunc/tycoon-game/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		// 用户系统
		&models.User{},
		&models.UserAuth{},

		// 对局
		&models.Game{},
		&models.GamePlayer{},
		&models.GamePlayerPerk{},

		// 地块
		&models.Property{},
		&models.GameProperty{},

		// 交易
		&models.GameTrade{},
		&models.GameTradeItem{},

		// 卡牌
		&models.ChanceCard{},
		&models.CommunityChestCard{},

		// 审计流水
		&models.GamePlayHistory{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SeedTestCatalogs 写入棋盘与牌堆目录数据
func SeedTestCatalogs(t *testing.T, db *gorm.DB) {
	squares := board.Squares()
	require.NoError(t, db.Clauses(clause.OnConflict{DoNothing: true}).Create(&squares).Error)

	chance := board.ChanceDeck()
	require.NoError(t, db.Clauses(clause.OnConflict{DoNothing: true}).Create(&chance).Error)

	chest := board.ChestDeck()
	require.NoError(t, db.Clauses(clause.OnConflict{DoNothing: true}).Create(&chest).Error)
}

// SeedTestGame 创建一个RUNNING状态的测试对局及若干玩家
func SeedTestGame(t *testing.T, db *gorm.DB, playerCount int) (*models.Game, []*models.GamePlayer) {
	game := &models.Game{
		JoinCode:   "TEST01",
		Mode:       models.GameModePrivate,
		Status:     models.GameStatusRunning,
		MaxPlayers: 4,
	}
	require.NoError(t, db.Create(game).Error)

	players := make([]*models.GamePlayer, 0, playerCount)
	for i := 0; i < playerCount; i++ {
		user := &models.User{
			Username: "player" + string(rune('a'+i)),
			Nickname: "玩家" + string(rune('A'+i)),
			Kind:     models.UserKindHuman,
			Status:   "active",
		}
		require.NoError(t, db.Create(user).Error)

		player := &models.GamePlayer{
			GameID:    game.ID,
			UserID:    user.ID,
			Balance:   1500,
			Position:  0,
			TurnOrder: i,
			Token:     models.PlayerTokens[i%len(models.PlayerTokens)],
		}
		require.NoError(t, db.Create(player).Error)
		players = append(players, player)
	}

	require.NoError(t, db.Model(game).Update("current_turn_id", players[0].ID).Error)
	game.CurrentTurnID = &players[0].ID

	return game, players
}
