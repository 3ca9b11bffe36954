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

// GamePropertyRepositoryTestSuite 地块归属仓储测试套件
type GamePropertyRepositoryTestSuite struct {
	suite.Suite
	db       *gorm.DB
	propRepo GamePropertyRepository
	game     *models.Game
	players  []*models.GamePlayer
}

func (suite *GamePropertyRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.propRepo = NewGamePropertyRepository(suite.db)
	SeedTestCatalogs(suite.T(), suite.db)
	suite.game, suite.players = SeedTestGame(suite.T(), suite.db, 2)
}

func (suite *GamePropertyRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestSingleOwner 测试同一地块在同一对局内至多一个持有者
func (suite *GamePropertyRepositoryTestSuite) TestSingleOwner() {
	ctx := context.Background()

	gp := &models.GameProperty{
		GameID:     suite.game.ID,
		PropertyID: 2, // Baltic Avenue
		OwnerID:    suite.players[0].ID,
	}
	err := suite.propRepo.Create(ctx, gp)
	assert.NoError(suite.T(), err)

	// 第二个持有记录被唯一索引拒绝
	dup := &models.GameProperty{
		GameID:     suite.game.ID,
		PropertyID: 2,
		OwnerID:    suite.players[1].ID,
	}
	err = suite.propRepo.Create(ctx, dup)
	assert.Error(suite.T(), err)
}

// TestTransfer_Conditional 测试条件转移仅在持有者匹配时生效
func (suite *GamePropertyRepositoryTestSuite) TestTransfer_Conditional() {
	ctx := context.Background()
	owner := suite.players[0]
	other := suite.players[1]

	gp := &models.GameProperty{
		GameID:     suite.game.ID,
		PropertyID: 4, // Oriental Avenue
		OwnerID:    owner.ID,
	}
	err := suite.propRepo.Create(ctx, gp)
	assert.NoError(suite.T(), err)

	// 非持有者发起的转移失败
	err = suite.propRepo.Transfer(ctx, suite.game.ID, 4, other.ID, owner.ID)
	assert.Error(suite.T(), err)
	assert.Equal(suite.T(), apperrors.ErrOwnershipViolation, apperrors.GetCode(err))

	// 持有者发起的转移成功
	err = suite.propRepo.Transfer(ctx, suite.game.ID, 4, owner.ID, other.ID)
	assert.NoError(suite.T(), err)

	found, err := suite.propRepo.FindByGameAndProperty(ctx, suite.game.ID, 4)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), other.ID, found.OwnerID)

	// 原持有者再次转移失败（持有者已变化）
	err = suite.propRepo.Transfer(ctx, suite.game.ID, 4, owner.ID, other.ID)
	assert.Error(suite.T(), err)
}

// TestFindByGameAndProperty_Unowned 测试未被持有时返回nil
func (suite *GamePropertyRepositoryTestSuite) TestFindByGameAndProperty_Unowned() {
	ctx := context.Background()

	found, err := suite.propRepo.FindByGameAndProperty(ctx, suite.game.ID, 20)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), found)
}

// TestSetMortgaged 测试抵押标记的条件切换
func (suite *GamePropertyRepositoryTestSuite) TestSetMortgaged() {
	ctx := context.Background()
	owner := suite.players[0]

	gp := &models.GameProperty{
		GameID:     suite.game.ID,
		PropertyID: 7, // St. Charles Place
		OwnerID:    owner.ID,
	}
	err := suite.propRepo.Create(ctx, gp)
	assert.NoError(suite.T(), err)

	err = suite.propRepo.SetMortgaged(ctx, suite.game.ID, 7, owner.ID, true)
	assert.NoError(suite.T(), err)

	// 重复抵押失败
	err = suite.propRepo.SetMortgaged(ctx, suite.game.ID, 7, owner.ID, true)
	assert.Error(suite.T(), err)

	// 赎回成功
	err = suite.propRepo.SetMortgaged(ctx, suite.game.ID, 7, owner.ID, false)
	assert.NoError(suite.T(), err)
}

// TestCountByOwnerAndGroup 测试按颜色组统计（车站计租场景）
func (suite *GamePropertyRepositoryTestSuite) TestCountByOwnerAndGroup() {
	ctx := context.Background()
	owner := suite.players[0]

	// 车站位于位置5/15/25/35，目录ID为位置+1
	for _, pos := range []int{5, 15, 25} {
		sq := models.Property{}
		err := suite.db.Where("position = ?", pos).First(&sq).Error
		assert.NoError(suite.T(), err)

		gp := &models.GameProperty{
			GameID:     suite.game.ID,
			PropertyID: sq.ID,
			OwnerID:    owner.ID,
		}
		assert.NoError(suite.T(), suite.propRepo.Create(ctx, gp))
	}

	count, err := suite.propRepo.CountByOwnerAndGroup(ctx, suite.game.ID, owner.ID, "railroad")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), count)
}

// TestReleaseAllByOwner 测试破产清算释放全部地块
func (suite *GamePropertyRepositoryTestSuite) TestReleaseAllByOwner() {
	ctx := context.Background()
	owner := suite.players[0]

	for _, propID := range []uint{2, 4, 7} {
		gp := &models.GameProperty{
			GameID:     suite.game.ID,
			PropertyID: propID,
			OwnerID:    owner.ID,
		}
		assert.NoError(suite.T(), suite.propRepo.Create(ctx, gp))
	}

	released, err := suite.propRepo.ReleaseAllByOwner(ctx, suite.game.ID, owner.ID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(3), released)

	list, err := suite.propRepo.ListByOwner(ctx, suite.game.ID, owner.ID)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), list)

	// 释放后地块可被重新购入
	gp := &models.GameProperty{
		GameID:     suite.game.ID,
		PropertyID: 2,
		OwnerID:    suite.players[1].ID,
	}
	assert.NoError(suite.T(), suite.propRepo.Create(ctx, gp))
}

func TestGamePropertyRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(GamePropertyRepositoryTestSuite))
}
