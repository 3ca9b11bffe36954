package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/tycoon-game/internal/config"
	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/models"
	"github.com/wfunc/tycoon-game/internal/repository"
	"gorm.io/gorm"
)

// LobbyTestSuite 对局生命周期测试套件
type LobbyTestSuite struct {
	suite.Suite
	db     *gorm.DB
	engine *Engine
	users  []*models.User
}

func (suite *LobbyTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	repository.SeedTestCatalogs(suite.T(), suite.db)
	suite.engine = NewEngine(suite.db, config.DefaultGame())

	suite.users = nil
	for _, name := range []string{"alice", "bob", "carol", "dave"} {
		u := &models.User{Username: name, Nickname: name, Kind: models.UserKindHuman, Status: "active"}
		suite.Require().NoError(suite.db.Create(u).Error)
		suite.users = append(suite.users, u)
	}
}

func (suite *LobbyTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// TestCreateGame 创建对局：PENDING状态，创建者为首位玩家
func (suite *LobbyTestSuite) TestCreateGame() {
	game, err := suite.engine.CreateGame(context.Background(), suite.users[0].ID,
		CreateGameInput{Mode: models.GameModePrivate, MaxPlayers: 3})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), models.GameStatusPending, game.Status)
	assert.Len(suite.T(), game.JoinCode, 6)
	assert.Nil(suite.T(), game.CurrentTurnID)

	players, err := suite.engine.players.ListByGame(context.Background(), game.ID)
	suite.Require().NoError(err)
	suite.Require().Len(players, 1)
	assert.Equal(suite.T(), suite.users[0].ID, players[0].UserID)
	assert.Equal(suite.T(), int64(1500), players[0].Balance)
	assert.Equal(suite.T(), 0, players[0].TurnOrder)
}

// TestCreateGameValidation 非法模式与人数上限被拒绝
func (suite *LobbyTestSuite) TestCreateGameValidation() {
	_, err := suite.engine.CreateGame(context.Background(), suite.users[0].ID,
		CreateGameInput{Mode: "solo"})
	assert.Error(suite.T(), err)

	_, err = suite.engine.CreateGame(context.Background(), suite.users[0].ID,
		CreateGameInput{MaxPlayers: 1})
	assert.Error(suite.T(), err)

	_, err = suite.engine.CreateGame(context.Background(), suite.users[0].ID,
		CreateGameInput{MaxPlayers: 7})
	assert.Error(suite.T(), err)
}

// TestJoinAndAutoStart 满员自动开局
func (suite *LobbyTestSuite) TestJoinAndAutoStart() {
	ctx := context.Background()
	game, err := suite.engine.CreateGame(ctx, suite.users[0].ID,
		CreateGameInput{MaxPlayers: 2})
	suite.Require().NoError(err)

	// 重复加入被拒绝
	_, err = suite.engine.JoinGame(ctx, game.JoinCode, suite.users[0].ID)
	assert.Error(suite.T(), err)

	player, err := suite.engine.JoinGame(ctx, game.JoinCode, suite.users[1].ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), 1, player.TurnOrder)

	// 第二人加入后满员，自动转RUNNING并指定首位回合
	var found models.Game
	suite.Require().NoError(suite.db.First(&found, game.ID).Error)
	assert.Equal(suite.T(), models.GameStatusRunning, found.Status)
	suite.Require().NotNil(found.CurrentTurnID)

	// 开局后不能再加入
	_, err = suite.engine.JoinGame(ctx, game.JoinCode, suite.users[2].ID)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrInvalidState, apperrors.GetCode(err))
}

// TestStartGameEarly 达到最低人数后可提前开局
func (suite *LobbyTestSuite) TestStartGameEarly() {
	ctx := context.Background()
	game, err := suite.engine.CreateGame(ctx, suite.users[0].ID,
		CreateGameInput{MaxPlayers: 4})
	suite.Require().NoError(err)

	// 单人不足以开局
	err = suite.engine.StartGame(ctx, game.ID)
	assert.Error(suite.T(), err)

	_, err = suite.engine.JoinGame(ctx, game.JoinCode, suite.users[1].ID)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.engine.StartGame(ctx, game.ID))

	var found models.Game
	suite.Require().NoError(suite.db.First(&found, game.ID).Error)
	assert.Equal(suite.T(), models.GameStatusRunning, found.Status)

	// 已开局的对局不能重复开局
	err = suite.engine.StartGame(ctx, game.ID)
	assert.Error(suite.T(), err)
}

// TestCancelGame 取消后对局进入终态
func (suite *LobbyTestSuite) TestCancelGame() {
	ctx := context.Background()
	game, err := suite.engine.CreateGame(ctx, suite.users[0].ID, CreateGameInput{})
	suite.Require().NoError(err)

	suite.Require().NoError(suite.engine.CancelGame(ctx, game.ID))

	var found models.Game
	suite.Require().NoError(suite.db.First(&found, game.ID).Error)
	assert.Equal(suite.T(), models.GameStatusCancelled, found.Status)

	// 终态对局不能再取消
	err = suite.engine.CancelGame(ctx, game.ID)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrGameTerminal, apperrors.GetCode(err))
}

// TestSnapshot 快照汇总玩家、归属、未决交易与近期流水
func (suite *LobbyTestSuite) TestSnapshot() {
	ctx := context.Background()
	game, players := repository.SeedTestGame(suite.T(), suite.db, 2)

	suite.Require().NoError(suite.db.Create(&models.GameProperty{
		GameID: game.ID, PropertyID: 4, OwnerID: players[0].ID,
	}).Error)
	_, err := suite.engine.ProposeTrade(ctx, game.ID, players[0].ID, players[1].ID,
		TradeLeg{PropertyIDs: []uint{4}}, TradeLeg{Cash: 80})
	suite.Require().NoError(err)

	snap, err := suite.engine.GetSnapshot(ctx, game.ID)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), game.ID, snap.Game.ID)
	assert.Len(suite.T(), snap.Players, 2)
	assert.Len(suite.T(), snap.Ownerships, 1)
	assert.Len(suite.T(), snap.Trades, 1)
}

func TestLobbyTestSuite(t *testing.T) {
	suite.Run(t, new(LobbyTestSuite))
}
