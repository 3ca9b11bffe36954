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

// EngineTestSuite 游戏引擎测试套件
type EngineTestSuite struct {
	suite.Suite
	db      *gorm.DB
	engine  *Engine
	game    *models.Game
	players []*models.GamePlayer
}

func (suite *EngineTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	repository.SeedTestCatalogs(suite.T(), suite.db)
	suite.game, suite.players = repository.SeedTestGame(suite.T(), suite.db, 3)
	suite.engine = NewEngine(suite.db, config.DefaultGame())
}

func (suite *EngineTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// setPosition 直接摆放玩家位置（测试前置条件）
func (suite *EngineTestSuite) setPosition(playerID uint, position int) {
	err := suite.db.Model(&models.GamePlayer{}).
		Where("id = ?", playerID).
		Update("position", position).Error
	suite.Require().NoError(err)
}

// setCurrentTurn 指定当前回合玩家
func (suite *EngineTestSuite) setCurrentTurn(playerID uint) {
	err := suite.db.Model(&models.Game{}).
		Where("id = ?", suite.game.ID).
		Update("current_turn_id", playerID).Error
	suite.Require().NoError(err)
}

// loadPlayer 重新读取玩家行
func (suite *EngineTestSuite) loadPlayer(playerID uint) *models.GamePlayer {
	var p models.GamePlayer
	suite.Require().NoError(suite.db.First(&p, playerID).Error)
	return &p
}

// grantAndActivate 发放并激活一个特权
func (suite *EngineTestSuite) grantAndActivate(playerID uint, kind string, params models.JSONMap) {
	ctx := context.Background()
	_, err := suite.engine.GrantPerk(ctx, suite.game.ID, playerID, kind)
	suite.Require().NoError(err)
	_, err = suite.engine.ActivatePerk(ctx, suite.game.ID, playerID, kind, params)
	suite.Require().NoError(err)
}

// ownProperty 直接建立归属记录（测试前置条件）
func (suite *EngineTestSuite) ownProperty(playerID, propertyID uint) {
	gp := &models.GameProperty{
		GameID:     suite.game.ID,
		PropertyID: propertyID,
		OwnerID:    playerID,
	}
	suite.Require().NoError(suite.db.Create(gp).Error)
}

// TestPassGoCredit 越过位置39回到0时发放一次经过GO奖励
func (suite *EngineTestSuite) TestPassGoCredit() {
	ctx := context.Background()
	p := suite.players[0]
	suite.setPosition(p.ID, 38)

	result, err := suite.engine.TakeTurn(ctx, suite.game.ID, p.ID, &DiceRoll{D1: 1, D2: 1})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), 0, result.NewPosition)
	found := suite.loadPlayer(p.ID)
	assert.Equal(suite.T(), int64(1700), found.Balance) // 1500 + 200

	hasPassGo := false
	for _, eff := range result.Effects {
		if eff.Action == models.HistoryActionPassGo {
			hasPassGo = true
			assert.Equal(suite.T(), int64(200), eff.Amount)
		}
	}
	assert.True(suite.T(), hasPassGo)
}

// TestNotYourTurn 非当前回合玩家无法行动
func (suite *EngineTestSuite) TestNotYourTurn() {
	ctx := context.Background()

	_, err := suite.engine.TakeTurn(ctx, suite.game.ID, suite.players[1].ID, &DiceRoll{D1: 1, D2: 2})
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrNotYourTurn, apperrors.GetCode(err))
}

// TestScenario_ChanceGoBackThree 指定场景：
// 位置0掷(3,4)落在7号机会格，抽到第8张卡（后退三格），
// 最终位置4触发所得税扣款，全程不发放经过GO奖励。
func (suite *EngineTestSuite) TestScenario_ChanceGoBackThree() {
	ctx := context.Background()
	p := suite.players[0]

	// 顺序发牌：把游标拨到第8张卡前
	suite.Require().NoError(suite.db.Model(&models.Game{}).
		Where("id = ?", suite.game.ID).
		Update("chance_cursor", 7).Error)

	result, err := suite.engine.TakeTurn(ctx, suite.game.ID, p.ID, &DiceRoll{D1: 3, D2: 4})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), 4, result.NewPosition)
	found := suite.loadPlayer(p.ID)
	assert.Equal(suite.T(), int64(1300), found.Balance) // 1500 - 200所得税

	for _, eff := range result.Effects {
		assert.NotEqual(suite.T(), models.HistoryActionPassGo, eff.Action)
	}
}

// TestGoToJailSquare 落在入狱格：直接落位监狱，不发放经过GO奖励
func (suite *EngineTestSuite) TestGoToJailSquare() {
	ctx := context.Background()
	p := suite.players[0]
	suite.setPosition(p.ID, 26)

	result, err := suite.engine.TakeTurn(ctx, suite.game.ID, p.ID, &DiceRoll{D1: 1, D2: 3})
	suite.Require().NoError(err)

	assert.True(suite.T(), result.InJail)
	assert.Equal(suite.T(), models.PositionJail, result.NewPosition)

	found := suite.loadPlayer(p.ID)
	assert.True(suite.T(), found.InJail)
	assert.Equal(suite.T(), int64(1500), found.Balance)

	// 入狱流水记录实际跳转：从入狱格到监狱格
	var entry models.GamePlayHistory
	suite.Require().NoError(suite.db.
		Where("game_player_id = ? AND action = ?", p.ID, models.HistoryActionJailIn).
		First(&entry).Error)
	assert.Equal(suite.T(), models.PositionGoToJail, entry.OldPosition)
	assert.Equal(suite.T(), models.PositionJail, entry.NewPosition)
}

// TestJailThreeStrikes 连续三次掷双失败后强制缴罚金出狱
func (suite *EngineTestSuite) TestJailThreeStrikes() {
	ctx := context.Background()
	p := suite.players[0]
	suite.setPosition(p.ID, models.PositionJail)
	suite.Require().NoError(suite.db.Model(&models.GamePlayer{}).
		Where("id = ?", p.ID).Update("in_jail", true).Error)

	// 前两次失败留在监狱
	for i := 1; i <= 2; i++ {
		result, err := suite.engine.TakeTurn(ctx, suite.game.ID, p.ID, &DiceRoll{D1: 1, D2: 2})
		suite.Require().NoError(err)
		assert.True(suite.T(), result.InJail)
		assert.Equal(suite.T(), models.PositionJail, result.NewPosition)
		assert.Equal(suite.T(), i, suite.loadPlayer(p.ID).JailAttempts)
	}

	// 第三次强制缴罚金并按骰点移动
	result, err := suite.engine.TakeTurn(ctx, suite.game.ID, p.ID, &DiceRoll{D1: 1, D2: 2})
	suite.Require().NoError(err)
	assert.False(suite.T(), result.InJail)
	assert.Equal(suite.T(), 13, result.NewPosition)

	found := suite.loadPlayer(p.ID)
	assert.False(suite.T(), found.InJail)
	assert.Equal(suite.T(), int64(1450), found.Balance) // 罚金50
}

// TestJailDoublesRelease 掷双立即出狱并移动
func (suite *EngineTestSuite) TestJailDoublesRelease() {
	ctx := context.Background()
	p := suite.players[0]
	suite.setPosition(p.ID, models.PositionJail)
	suite.Require().NoError(suite.db.Model(&models.GamePlayer{}).
		Where("id = ?", p.ID).Update("in_jail", true).Error)

	result, err := suite.engine.TakeTurn(ctx, suite.game.ID, p.ID, &DiceRoll{D1: 3, D2: 3})
	suite.Require().NoError(err)
	assert.False(suite.T(), result.InJail)
	assert.Equal(suite.T(), 16, result.NewPosition)
	assert.Equal(suite.T(), int64(1500), suite.loadPlayer(p.ID).Balance)
}

// TestPurchaseFlow 无主地块给出购地要约，确认后扣款并建立归属
func (suite *EngineTestSuite) TestPurchaseFlow() {
	ctx := context.Background()
	p := suite.players[0]
	suite.setPosition(p.ID, 1)

	result, err := suite.engine.TakeTurn(ctx, suite.game.ID, p.ID, &DiceRoll{D1: 1, D2: 1})
	suite.Require().NoError(err)

	suite.Require().NotNil(result.PurchaseOffer)
	assert.Equal(suite.T(), uint(4), result.PurchaseOffer.PropertyID) // Baltic Avenue
	assert.Equal(suite.T(), int64(60), result.PurchaseOffer.Price)

	_, err = suite.engine.BuyProperty(ctx, suite.game.ID, p.ID, result.PurchaseOffer.PropertyID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1440), suite.loadPlayer(p.ID).Balance)

	// 再次购买失败（已被持有）
	_, err = suite.engine.BuyProperty(ctx, suite.game.ID, p.ID, result.PurchaseOffer.PropertyID)
	assert.Error(suite.T(), err)
}

// TestRentStreet 落在他人街道按建筑等级收租
func (suite *EngineTestSuite) TestRentStreet() {
	ctx := context.Background()
	payer := suite.players[0]
	owner := suite.players[1]
	suite.ownProperty(owner.ID, 4) // Baltic Avenue，基础租金4

	suite.setPosition(payer.ID, 1)
	result, err := suite.engine.TakeTurn(ctx, suite.game.ID, payer.ID, &DiceRoll{D1: 1, D2: 1})
	suite.Require().NoError(err)

	assert.Nil(suite.T(), result.PurchaseOffer)
	assert.Equal(suite.T(), int64(1496), suite.loadPlayer(payer.ID).Balance)
	assert.Equal(suite.T(), int64(1504), suite.loadPlayer(owner.ID).Balance)
}

// TestRentRailroad 车站租金按持有车站数取档
func (suite *EngineTestSuite) TestRentRailroad() {
	ctx := context.Background()
	payer := suite.players[0]
	owner := suite.players[1]
	suite.ownProperty(owner.ID, 6)  // Reading Railroad
	suite.ownProperty(owner.ID, 16) // Pennsylvania Railroad

	suite.setPosition(payer.ID, 3)
	_, err := suite.engine.TakeTurn(ctx, suite.game.ID, payer.ID, &DiceRoll{D1: 1, D2: 1})
	suite.Require().NoError(err)

	// 持有2座车站：第二档50
	assert.Equal(suite.T(), int64(1450), suite.loadPlayer(payer.ID).Balance)
	assert.Equal(suite.T(), int64(1550), suite.loadPlayer(owner.ID).Balance)
}

// TestRentUtility 公用事业租金按骰点乘档位倍率
func (suite *EngineTestSuite) TestRentUtility() {
	ctx := context.Background()
	payer := suite.players[0]
	owner := suite.players[1]
	suite.ownProperty(owner.ID, 13) // Electric Company

	suite.setPosition(payer.ID, 7)
	_, err := suite.engine.TakeTurn(ctx, suite.game.ID, payer.ID, &DiceRoll{D1: 2, D2: 3})
	suite.Require().NoError(err)

	// 持有1座：骰点5 × 4 = 20
	assert.Equal(suite.T(), int64(1480), suite.loadPlayer(payer.ID).Balance)
	assert.Equal(suite.T(), int64(1520), suite.loadPlayer(owner.ID).Balance)
}

// TestMortgagedCollectsNoRent 抵押地块不收租
func (suite *EngineTestSuite) TestMortgagedCollectsNoRent() {
	ctx := context.Background()
	payer := suite.players[0]
	owner := suite.players[1]
	suite.ownProperty(owner.ID, 4)
	suite.Require().NoError(suite.db.Model(&models.GameProperty{}).
		Where("game_id = ? AND property_id = ?", suite.game.ID, 4).
		Update("mortgaged", true).Error)

	suite.setPosition(payer.ID, 1)
	_, err := suite.engine.TakeTurn(ctx, suite.game.ID, payer.ID, &DiceRoll{D1: 1, D2: 1})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), int64(1500), suite.loadPlayer(payer.ID).Balance)
	assert.Equal(suite.T(), int64(1500), suite.loadPlayer(owner.ID).Balance)
}

// TestRentDeferredWhenBroke 付不起租金时挂账，结清前无法结束回合
func (suite *EngineTestSuite) TestRentDeferredWhenBroke() {
	ctx := context.Background()
	payer := suite.players[0]
	owner := suite.players[1]
	suite.ownProperty(owner.ID, 40) // Boardwalk，基础租金50
	suite.Require().NoError(suite.db.Model(&models.GamePlayer{}).
		Where("id = ?", payer.ID).Update("balance", 10).Error)

	suite.setPosition(payer.ID, 37)
	_, err := suite.engine.TakeTurn(ctx, suite.game.ID, payer.ID, &DiceRoll{D1: 1, D2: 1})
	suite.Require().NoError(err)

	found := suite.loadPlayer(payer.ID)
	assert.Equal(suite.T(), int64(10), found.Balance) // 未扣款
	assert.Equal(suite.T(), int64(50), found.OutstandingDebt)
	suite.Require().NotNil(found.CreditorID)
	assert.Equal(suite.T(), owner.ID, *found.CreditorID)

	// 欠款未结清，回合不能结束
	_, err = suite.engine.EndTurn(ctx, suite.game.ID, payer.ID)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrDebtOutstanding, apperrors.GetCode(err))

	// 筹到钱结清后可以结束回合
	suite.Require().NoError(suite.db.Model(&models.GamePlayer{}).
		Where("id = ?", payer.ID).Update("balance", 100).Error)
	_, err = suite.engine.SettleDebt(ctx, suite.game.ID, payer.ID)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), int64(50), suite.loadPlayer(payer.ID).Balance)
	assert.Equal(suite.T(), int64(1550), suite.loadPlayer(owner.ID).Balance)

	next, err := suite.engine.EndTurn(ctx, suite.game.ID, payer.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), suite.players[1].ID, next)
}

// TestEndTurnRotation 回合按固定顺序在未破产玩家间轮转
func (suite *EngineTestSuite) TestEndTurnRotation() {
	ctx := context.Background()

	next, err := suite.engine.EndTurn(ctx, suite.game.ID, suite.players[0].ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), suite.players[1].ID, next)

	next, err = suite.engine.EndTurn(ctx, suite.game.ID, suite.players[1].ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), suite.players[2].ID, next)

	// 回绕到第一位
	next, err = suite.engine.EndTurn(ctx, suite.game.ID, suite.players[2].ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), suite.players[0].ID, next)
}

// TestExtraTurnPerk 额外回合特权让行动权保留一轮
func (suite *EngineTestSuite) TestExtraTurnPerk() {
	ctx := context.Background()
	p := suite.players[0]
	suite.grantAndActivate(p.ID, models.PerkExtraTurn, nil)

	next, err := suite.engine.EndTurn(ctx, suite.game.ID, p.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), p.ID, next)

	// 特权已消耗，下次正常轮转
	next, err = suite.engine.EndTurn(ctx, suite.game.ID, p.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), suite.players[1].ID, next)
}

// TestCardPerPlayer 向每位其他玩家收取的卡牌
func (suite *EngineTestSuite) TestCardPerPlayer() {
	ctx := context.Background()
	p := suite.players[0]

	// 公益金第7张：向每位玩家收取50
	suite.Require().NoError(suite.db.Model(&models.Game{}).
		Where("id = ?", suite.game.ID).
		Update("chest_cursor", 6).Error)

	suite.setPosition(p.ID, 15)
	result, err := suite.engine.TakeTurn(ctx, suite.game.ID, p.ID, &DiceRoll{D1: 1, D2: 1})
	suite.Require().NoError(err)

	assert.Equal(suite.T(), 17, result.NewPosition)
	assert.Equal(suite.T(), int64(1600), suite.loadPlayer(p.ID).Balance)
	assert.Equal(suite.T(), int64(1450), suite.loadPlayer(suite.players[1].ID).Balance)
	assert.Equal(suite.T(), int64(1450), suite.loadPlayer(suite.players[2].ID).Balance)
}

func TestEngineTestSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
