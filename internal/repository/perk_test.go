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

// PerkRepositoryTestSuite 道具仓储测试套件
type PerkRepositoryTestSuite struct {
	suite.Suite
	db       *gorm.DB
	perkRepo PerkRepository
	game     *models.Game
	players  []*models.GamePlayer
}

func (suite *PerkRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.perkRepo = NewPerkRepository(suite.db)
	suite.game, suite.players = SeedTestGame(suite.T(), suite.db, 2)
}

func (suite *PerkRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

func (suite *PerkRepositoryTestSuite) grantPerk(kind string) *models.GamePlayerPerk {
	perk := &models.GamePlayerPerk{
		GameID:       suite.game.ID,
		GamePlayerID: suite.players[0].ID,
		Kind:         kind,
	}
	err := suite.perkRepo.Grant(context.Background(), perk)
	suite.Require().NoError(err)
	return perk
}

// TestLifecycle 测试held->active->consumed生命周期
func (suite *PerkRepositoryTestSuite) TestLifecycle() {
	ctx := context.Background()
	perk := suite.grantPerk(models.PerkDoubleRent)

	found, _ := suite.perkRepo.FindByID(ctx, perk.ID)
	assert.Equal(suite.T(), models.PerkStatusHeld, found.Status)

	err := suite.perkRepo.Activate(ctx, perk.ID, nil)
	assert.NoError(suite.T(), err)

	found, _ = suite.perkRepo.FindByID(ctx, perk.ID)
	assert.Equal(suite.T(), models.PerkStatusActive, found.Status)
	assert.NotNil(suite.T(), found.ActivatedAt)

	err = suite.perkRepo.Consume(ctx, perk.ID)
	assert.NoError(suite.T(), err)

	found, _ = suite.perkRepo.FindByID(ctx, perk.ID)
	assert.Equal(suite.T(), models.PerkStatusConsumed, found.Status)
	assert.NotNil(suite.T(), found.ConsumedAt)
}

// TestActivate_OnlyHeld 测试重复激活被拒绝
func (suite *PerkRepositoryTestSuite) TestActivate_OnlyHeld() {
	ctx := context.Background()
	perk := suite.grantPerk(models.PerkShield)

	err := suite.perkRepo.Activate(ctx, perk.ID, nil)
	assert.NoError(suite.T(), err)

	err = suite.perkRepo.Activate(ctx, perk.ID, nil)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrPerkNotHeld, apperrors.GetCode(err))
}

// TestConsume_ExactlyOnce 测试一次性道具恰好消耗一次
func (suite *PerkRepositoryTestSuite) TestConsume_ExactlyOnce() {
	ctx := context.Background()
	perk := suite.grantPerk(models.PerkExtraTurn)

	assert.NoError(suite.T(), suite.perkRepo.Activate(ctx, perk.ID, nil))
	assert.NoError(suite.T(), suite.perkRepo.Consume(ctx, perk.ID))

	// 重复消耗失败
	err := suite.perkRepo.Consume(ctx, perk.ID)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrInvalidState, apperrors.GetCode(err))
}

// TestHasActiveOfKind 测试同类激活互斥查询
func (suite *PerkRepositoryTestSuite) TestHasActiveOfKind() {
	ctx := context.Background()
	perk := suite.grantPerk(models.PerkDoubleRent)

	has, err := suite.perkRepo.HasActiveOfKind(ctx, suite.players[0].ID, models.PerkDoubleRent)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), has)

	assert.NoError(suite.T(), suite.perkRepo.Activate(ctx, perk.ID, nil))

	has, err = suite.perkRepo.HasActiveOfKind(ctx, suite.players[0].ID, models.PerkDoubleRent)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), has)

	// 其他玩家不受影响
	has, err = suite.perkRepo.HasActiveOfKind(ctx, suite.players[1].ID, models.PerkDoubleRent)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), has)
}

func TestPerkRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(PerkRepositoryTestSuite))
}
