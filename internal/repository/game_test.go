package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/models"
	"gorm.io/gorm"
)

// GameRepositoryTestSuite 对局仓储测试套件
type GameRepositoryTestSuite struct {
	suite.Suite
	db       *gorm.DB
	gameRepo GameRepository
}

func (suite *GameRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.gameRepo = NewGameRepository(suite.db)
}

func (suite *GameRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestCreate_And_FindByJoinCode 测试创建对局并按加入码查找
func (suite *GameRepositoryTestSuite) TestCreate_And_FindByJoinCode() {
	ctx := context.Background()

	game := &models.Game{
		JoinCode:   "ABC123",
		Mode:       models.GameModePublic,
		Status:     models.GameStatusPending,
		MaxPlayers: 4,
	}
	err := suite.gameRepo.Create(ctx, game)
	assert.NoError(suite.T(), err)
	assert.NotZero(suite.T(), game.ID)

	found, err := suite.gameRepo.FindByJoinCode(ctx, "ABC123")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), game.ID, found.ID)

	_, err = suite.gameRepo.FindByJoinCode(ctx, "NOPE00")
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrNotFound, apperrors.GetCode(err))
}

// TestUpdateStatus_Conditional 测试状态单向流转
func (suite *GameRepositoryTestSuite) TestUpdateStatus_Conditional() {
	ctx := context.Background()

	game := &models.Game{
		JoinCode:   "STAT01",
		Mode:       models.GameModePrivate,
		Status:     models.GameStatusPending,
		MaxPlayers: 4,
	}
	err := suite.gameRepo.Create(ctx, game)
	assert.NoError(suite.T(), err)

	err = suite.gameRepo.UpdateStatus(ctx, game.ID, models.GameStatusPending, models.GameStatusRunning)
	assert.NoError(suite.T(), err)

	found, _ := suite.gameRepo.FindByID(ctx, game.ID)
	assert.Equal(suite.T(), models.GameStatusRunning, found.Status)
	assert.NotNil(suite.T(), found.StartedAt)

	// 前置状态不匹配时失败
	err = suite.gameRepo.UpdateStatus(ctx, game.ID, models.GameStatusPending, models.GameStatusRunning)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrInvalidState, apperrors.GetCode(err))

	err = suite.gameRepo.UpdateStatus(ctx, game.ID, models.GameStatusRunning, models.GameStatusFinished)
	assert.NoError(suite.T(), err)

	found, _ = suite.gameRepo.FindByID(ctx, game.ID)
	assert.True(suite.T(), found.IsTerminal())
	assert.NotNil(suite.T(), found.EndedAt)

	// 终态不可再变
	err = suite.gameRepo.UpdateStatus(ctx, game.ID, models.GameStatusFinished, models.GameStatusRunning)
	assert.Error(suite.T(), err)
}

// TestAdvanceDeckCursor 测试牌堆游标循环推进
func (suite *GameRepositoryTestSuite) TestAdvanceDeckCursor() {
	ctx := context.Background()

	game := &models.Game{
		JoinCode:   "DECK01",
		Mode:       models.GameModePrivate,
		Status:     models.GameStatusRunning,
		MaxPlayers: 4,
	}
	err := suite.gameRepo.Create(ctx, game)
	assert.NoError(suite.T(), err)

	// 顺序发牌：依次返回0,1,2...，到牌堆末尾回绕
	for i := 0; i < 16; i++ {
		cursor, err := suite.gameRepo.AdvanceDeckCursor(ctx, game.ID, models.DeckChance, 16)
		assert.NoError(suite.T(), err)
		assert.Equal(suite.T(), i, cursor)
	}
	cursor, err := suite.gameRepo.AdvanceDeckCursor(ctx, game.ID, models.DeckChance, 16)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, cursor)

	// 两副牌的游标互不影响
	cursor, err = suite.gameRepo.AdvanceDeckCursor(ctx, game.ID, models.DeckChest, 16)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 0, cursor)
}

// TestListByStatus 测试按状态分页列表
func (suite *GameRepositoryTestSuite) TestListByStatus() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		game := &models.Game{
			JoinCode:   "LIST0" + string(rune('0'+i)),
			Mode:       models.GameModePublic,
			Status:     models.GameStatusPending,
			MaxPlayers: 4,
		}
		assert.NoError(suite.T(), suite.gameRepo.Create(ctx, game))
	}

	p := NewPagination(1, 2)
	games, err := suite.gameRepo.ListByStatus(ctx, models.GameStatusPending, p)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), games, 2)
	assert.Equal(suite.T(), int64(3), p.Total)
}

func TestGameRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(GameRepositoryTestSuite))
}
