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

// BankruptcyTestSuite 破产清算测试套件
type BankruptcyTestSuite struct {
	suite.Suite
	db      *gorm.DB
	engine  *Engine
	game    *models.Game
	players []*models.GamePlayer
}

func (suite *BankruptcyTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	repository.SeedTestCatalogs(suite.T(), suite.db)
	suite.game, suite.players = repository.SeedTestGame(suite.T(), suite.db, 3)
	suite.engine = NewEngine(suite.db, config.DefaultGame())
}

func (suite *BankruptcyTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// TestBankruptcyLiquidation 破产释放全部地块、废弃交易并移交行动权
func (suite *BankruptcyTestSuite) TestBankruptcyLiquidation() {
	ctx := context.Background()
	quitter := suite.players[0]

	suite.Require().NoError(suite.db.Create(&models.GameProperty{
		GameID: suite.game.ID, PropertyID: 4, OwnerID: quitter.ID,
	}).Error)
	suite.Require().NoError(suite.db.Create(&models.GameProperty{
		GameID: suite.game.ID, PropertyID: 6, OwnerID: quitter.ID,
	}).Error)

	trade, err := suite.engine.ProposeTrade(ctx, suite.game.ID,
		quitter.ID, suite.players[1].ID,
		TradeLeg{PropertyIDs: []uint{4}}, TradeLeg{Cash: 50})
	suite.Require().NoError(err)

	result, err := suite.engine.DeclareBankruptcy(ctx, suite.game.ID, quitter.ID)
	suite.Require().NoError(err)
	assert.False(suite.T(), result.GameOver)

	// 地块归为无主
	gp, err := suite.engine.properties.FindByGameAndProperty(ctx, suite.game.ID, 4)
	suite.Require().NoError(err)
	assert.Nil(suite.T(), gp)

	// 未成交交易被废弃
	found, err := suite.engine.trades.FindByID(ctx, trade.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), models.TradeStatusRejected, found.Status)

	// 行动权已移交给下一位
	var game models.Game
	suite.Require().NoError(suite.db.First(&game, suite.game.ID).Error)
	suite.Require().NotNil(game.CurrentTurnID)
	assert.Equal(suite.T(), suite.players[1].ID, *game.CurrentTurnID)

	// 破产玩家不能再行动
	_, err = suite.engine.TakeTurn(ctx, suite.game.ID, quitter.ID, &DiceRoll{D1: 1, D2: 2})
	assert.Error(suite.T(), err)

	// 二次破产被拒绝
	_, err = suite.engine.DeclareBankruptcy(ctx, suite.game.ID, quitter.ID)
	assert.Error(suite.T(), err)
}

// TestLastSurvivorWins 只剩一人时终局并判定胜者
func (suite *BankruptcyTestSuite) TestLastSurvivorWins() {
	ctx := context.Background()

	result, err := suite.engine.DeclareBankruptcy(ctx, suite.game.ID, suite.players[0].ID)
	suite.Require().NoError(err)
	assert.False(suite.T(), result.GameOver)

	result, err = suite.engine.DeclareBankruptcy(ctx, suite.game.ID, suite.players[1].ID)
	suite.Require().NoError(err)
	assert.True(suite.T(), result.GameOver)
	suite.Require().NotNil(result.WinnerID)
	assert.Equal(suite.T(), suite.players[2].ID, *result.WinnerID)

	var game models.Game
	suite.Require().NoError(suite.db.First(&game, suite.game.ID).Error)
	assert.Equal(suite.T(), models.GameStatusFinished, game.Status)
	suite.Require().NotNil(game.WinnerID)
	assert.Equal(suite.T(), suite.players[2].ID, *game.WinnerID)

	// 终局后一切操作被拒绝
	_, err = suite.engine.TakeTurn(ctx, suite.game.ID, suite.players[2].ID, &DiceRoll{D1: 1, D2: 2})
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrGameTerminal, apperrors.GetCode(err))
}

// TestReleasedPropertyCanBeRebought 破产释放的地块可被其他玩家购入
func (suite *BankruptcyTestSuite) TestReleasedPropertyCanBeRebought() {
	ctx := context.Background()
	quitter := suite.players[0]
	buyer := suite.players[1]

	suite.Require().NoError(suite.db.Create(&models.GameProperty{
		GameID: suite.game.ID, PropertyID: 4, OwnerID: quitter.ID,
	}).Error)

	_, err := suite.engine.DeclareBankruptcy(ctx, suite.game.ID, quitter.ID)
	suite.Require().NoError(err)

	// 破产移交后轮到buyer，落在3号位可重新购入
	suite.Require().NoError(suite.db.Model(&models.GamePlayer{}).
		Where("id = ?", buyer.ID).Update("position", 1).Error)
	result, err := suite.engine.TakeTurn(ctx, suite.game.ID, buyer.ID, &DiceRoll{D1: 1, D2: 1})
	suite.Require().NoError(err)
	suite.Require().NotNil(result.PurchaseOffer)

	_, err = suite.engine.BuyProperty(ctx, suite.game.ID, buyer.ID, result.PurchaseOffer.PropertyID)
	suite.Require().NoError(err)

	gp, err := suite.engine.properties.FindByGameAndProperty(ctx, suite.game.ID, 4)
	suite.Require().NoError(err)
	suite.Require().NotNil(gp)
	assert.Equal(suite.T(), buyer.ID, gp.OwnerID)
}

// TestBankruptcyHandoffKeepsRotation 中间顺位破产时行动权交给其后一位，而不是回到首位
func (suite *BankruptcyTestSuite) TestBankruptcyHandoffKeepsRotation() {
	ctx := context.Background()
	middle := suite.players[1]

	// 轮到中间顺位的玩家，其在回合中破产
	suite.Require().NoError(suite.db.Model(&models.Game{}).
		Where("id = ?", suite.game.ID).Update("current_turn_id", middle.ID).Error)

	result, err := suite.engine.DeclareBankruptcy(ctx, suite.game.ID, middle.ID)
	suite.Require().NoError(err)
	assert.False(suite.T(), result.GameOver)

	var game models.Game
	suite.Require().NoError(suite.db.First(&game, suite.game.ID).Error)
	suite.Require().NotNil(game.CurrentTurnID)
	assert.Equal(suite.T(), suite.players[2].ID, *game.CurrentTurnID)
}

func TestBankruptcyTestSuite(t *testing.T) {
	suite.Run(t, new(BankruptcyTestSuite))
}
