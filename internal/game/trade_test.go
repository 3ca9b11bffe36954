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

// TradeTestSuite 交易结算测试套件
type TradeTestSuite struct {
	suite.Suite
	db      *gorm.DB
	engine  *Engine
	game    *models.Game
	players []*models.GamePlayer
}

func (suite *TradeTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	repository.SeedTestCatalogs(suite.T(), suite.db)
	suite.game, suite.players = repository.SeedTestGame(suite.T(), suite.db, 3)
	suite.engine = NewEngine(suite.db, config.DefaultGame())
}

func (suite *TradeTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

func (suite *TradeTestSuite) ownProperty(playerID, propertyID uint) {
	gp := &models.GameProperty{
		GameID:     suite.game.ID,
		PropertyID: propertyID,
		OwnerID:    playerID,
	}
	suite.Require().NoError(suite.db.Create(gp).Error)
}

func (suite *TradeTestSuite) loadPlayer(playerID uint) *models.GamePlayer {
	var p models.GamePlayer
	suite.Require().NoError(suite.db.First(&p, playerID).Error)
	return &p
}

func (suite *TradeTestSuite) ownerOf(propertyID uint) *models.GameProperty {
	gp, err := suite.engine.properties.FindByGameAndProperty(context.Background(), suite.game.ID, propertyID)
	suite.Require().NoError(err)
	return gp
}

// TestProposeRejectsSelfTrade 不能与自己交易
func (suite *TradeTestSuite) TestProposeRejectsSelfTrade() {
	_, err := suite.engine.ProposeTrade(context.Background(), suite.game.ID,
		suite.players[0].ID, suite.players[0].ID,
		TradeLeg{Cash: 100}, TradeLeg{})
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrSelfTrade, apperrors.GetCode(err))
}

// TestProposeRejectsEmptyTrade 两侧都为空的交易被拒绝
func (suite *TradeTestSuite) TestProposeRejectsEmptyTrade() {
	_, err := suite.engine.ProposeTrade(context.Background(), suite.game.ID,
		suite.players[0].ID, suite.players[1].ID,
		TradeLeg{}, TradeLeg{})
	assert.Error(suite.T(), err)
}

// TestProposeValidatesOwnership 出让未持有的地块被拒绝
func (suite *TradeTestSuite) TestProposeValidatesOwnership() {
	_, err := suite.engine.ProposeTrade(context.Background(), suite.game.ID,
		suite.players[0].ID, suite.players[1].ID,
		TradeLeg{PropertyIDs: []uint{12}}, TradeLeg{Cash: 100})
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrOwnershipViolation, apperrors.GetCode(err))
}

// TestAcceptSettlesAtomically 接受后地块与现金一并转移
func (suite *TradeTestSuite) TestAcceptSettlesAtomically() {
	ctx := context.Background()
	from := suite.players[0]
	to := suite.players[1]
	suite.ownProperty(from.ID, 12) // St. Charles Place

	trade, err := suite.engine.ProposeTrade(ctx, suite.game.ID, from.ID, to.ID,
		TradeLeg{PropertyIDs: []uint{12}}, TradeLeg{Cash: 100})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.TradeTypeMixed, trade.Type)
	assert.Equal(suite.T(), models.TradeStatusPending, trade.Status)

	result, err := suite.engine.RespondTrade(ctx, trade.ID, to.ID, TradeDecisionAccept, nil)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.TradeStatusAccepted, result.Status)

	assert.Equal(suite.T(), to.ID, suite.ownerOf(12).OwnerID)
	assert.Equal(suite.T(), int64(1600), suite.loadPlayer(from.ID).Balance)
	assert.Equal(suite.T(), int64(1400), suite.loadPlayer(to.ID).Balance)

	// 已成交的交易不能再次响应
	_, err = suite.engine.RespondTrade(ctx, trade.ID, to.ID, TradeDecisionReject, nil)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrTradeResolved, apperrors.GetCode(err))
}

// TestAcceptFailsAfterMortgage 提案与接受之间地块被抵押：整体失败，什么都不转移
func (suite *TradeTestSuite) TestAcceptFailsAfterMortgage() {
	ctx := context.Background()
	from := suite.players[0]
	to := suite.players[1]
	suite.ownProperty(from.ID, 12)

	trade, err := suite.engine.ProposeTrade(ctx, suite.game.ID, from.ID, to.ID,
		TradeLeg{PropertyIDs: []uint{12}}, TradeLeg{Cash: 100})
	suite.Require().NoError(err)

	// 出让方在对方响应前抵押了地块（140 × 0.5 = 70 抵押款）
	_, err = suite.engine.Mortgage(ctx, suite.game.ID, from.ID, 12)
	suite.Require().NoError(err)

	_, err = suite.engine.RespondTrade(ctx, trade.ID, to.ID, TradeDecisionAccept, nil)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrOwnershipViolation, apperrors.GetCode(err))

	// 交易保持PENDING，归属与现金均未变化
	found, err := suite.engine.trades.FindByID(ctx, trade.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.TradeStatusPending, found.Status)
	assert.Equal(suite.T(), from.ID, suite.ownerOf(12).OwnerID)
	assert.Equal(suite.T(), int64(1570), suite.loadPlayer(from.ID).Balance) // 仅抵押款
	assert.Equal(suite.T(), int64(1500), suite.loadPlayer(to.ID).Balance)
}

// TestAcceptFailsOnInsufficientCash 现金腿付不起时整体回滚
func (suite *TradeTestSuite) TestAcceptFailsOnInsufficientCash() {
	ctx := context.Background()
	from := suite.players[0]
	to := suite.players[1]
	suite.ownProperty(from.ID, 12)

	trade, err := suite.engine.ProposeTrade(ctx, suite.game.ID, from.ID, to.ID,
		TradeLeg{PropertyIDs: []uint{12}}, TradeLeg{Cash: 2000})
	suite.Require().NoError(err)

	_, err = suite.engine.RespondTrade(ctx, trade.ID, to.ID, TradeDecisionAccept, nil)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrInsufficientFunds, apperrors.GetCode(err))

	found, err := suite.engine.trades.FindByID(ctx, trade.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.TradeStatusPending, found.Status)
	assert.Equal(suite.T(), from.ID, suite.ownerOf(12).OwnerID)
	assert.Equal(suite.T(), int64(1500), suite.loadPlayer(to.ID).Balance)
}

// TestOnlyInviteeCanRespond 非受邀方不能响应
func (suite *TradeTestSuite) TestOnlyInviteeCanRespond() {
	ctx := context.Background()
	trade, err := suite.engine.ProposeTrade(ctx, suite.game.ID,
		suite.players[0].ID, suite.players[1].ID,
		TradeLeg{Cash: 100}, TradeLeg{Cash: 50})
	suite.Require().NoError(err)

	_, err = suite.engine.RespondTrade(ctx, trade.ID, suite.players[2].ID, TradeDecisionAccept, nil)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrPermissionDenied, apperrors.GetCode(err))
}

// TestCounterDerivesNewTrade 还价终结原交易并派生方向对调的新交易
func (suite *TradeTestSuite) TestCounterDerivesNewTrade() {
	ctx := context.Background()
	from := suite.players[0]
	to := suite.players[1]
	suite.ownProperty(from.ID, 12)

	trade, err := suite.engine.ProposeTrade(ctx, suite.game.ID, from.ID, to.ID,
		TradeLeg{PropertyIDs: []uint{12}}, TradeLeg{Cash: 100})
	suite.Require().NoError(err)

	counter, err := suite.engine.RespondTrade(ctx, trade.ID, to.ID, TradeDecisionCounter,
		&CounterOffer{
			Offer:   TradeLeg{Cash: 60},
			Request: TradeLeg{PropertyIDs: []uint{12}},
		})
	suite.Require().NoError(err)

	// 新交易方向对调并指回原交易
	assert.Equal(suite.T(), to.ID, counter.FromPlayerID)
	assert.Equal(suite.T(), from.ID, counter.ToPlayerID)
	assert.Equal(suite.T(), models.TradeStatusPending, counter.Status)
	suite.Require().NotNil(counter.CounterOfID)
	assert.Equal(suite.T(), trade.ID, *counter.CounterOfID)

	original, err := suite.engine.trades.FindByID(ctx, trade.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.TradeStatusCountered, original.Status)

	// 原发起方接受还价：地块到对方，现金到自己
	_, err = suite.engine.RespondTrade(ctx, counter.ID, from.ID, TradeDecisionAccept, nil)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), to.ID, suite.ownerOf(12).OwnerID)
	assert.Equal(suite.T(), int64(1560), suite.loadPlayer(from.ID).Balance)
	assert.Equal(suite.T(), int64(1440), suite.loadPlayer(to.ID).Balance)
}

// TestDeleteTradeOnlyByProposer 仅发起方可撤回提案
func (suite *TradeTestSuite) TestDeleteTradeOnlyByProposer() {
	ctx := context.Background()
	trade, err := suite.engine.ProposeTrade(ctx, suite.game.ID,
		suite.players[0].ID, suite.players[1].ID,
		TradeLeg{Cash: 100}, TradeLeg{Cash: 50})
	suite.Require().NoError(err)

	err = suite.engine.DeleteTrade(ctx, trade.ID, suite.players[1].ID)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrPermissionDenied, apperrors.GetCode(err))

	suite.Require().NoError(suite.engine.DeleteTrade(ctx, trade.ID, suite.players[0].ID))

	_, err = suite.engine.trades.FindByID(ctx, trade.ID)
	assert.Error(suite.T(), err)
}

func TestTradeTestSuite(t *testing.T) {
	suite.Run(t, new(TradeTestSuite))
}
