package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/tycoon-game/internal/config"
	"github.com/wfunc/tycoon-game/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// APITestSuite 接口集成测试套件
type APITestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *Router
}

func (suite *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	suite.db = repository.SetupTestDB()
	repository.SeedTestCatalogs(suite.T(), suite.db)

	cfg := &config.Config{
		Game: *config.DefaultGame(),
	}
	cfg.Security.JWT.Secret = "test-secret"
	cfg.Security.JWT.ExpireHours = 1

	suite.router = NewRouter(suite.db, cfg, zap.NewNop())
}

func (suite *APITestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// do 发送请求并解析响应信封
func (suite *APITestSuite) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.GetEngine().ServeHTTP(w, req)

	var envelope map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &envelope)
	return w, envelope
}

// registerAndLogin 注册并返回访问令牌
func (suite *APITestSuite) registerAndLogin(username string) string {
	w, envelope := suite.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"username":         username,
		"password":         "secret123",
		"confirm_password": "secret123",
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	data := envelope["data"].(map[string]interface{})
	return data["access_token"].(string)
}

// TestHealthCheck 健康检查
func (suite *APITestSuite) TestHealthCheck() {
	w, _ := suite.do(http.MethodGet, "/health", "", nil)
	assert.Equal(suite.T(), http.StatusOK, w.Code)
}

// TestAuthRequired 未认证请求被拒绝
func (suite *APITestSuite) TestAuthRequired() {
	w, _ := suite.do(http.MethodPost, "/api/v1/games", "", nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
}

// TestGameLifecycle 创建、加入、自动开局、掷骰、快照的完整链路
func (suite *APITestSuite) TestGameLifecycle() {
	tokenA := suite.registerAndLogin("alice")
	tokenB := suite.registerAndLogin("bob")

	// 创建2人局
	w, envelope := suite.do(http.MethodPost, "/api/v1/games", tokenA, gin.H{"max_players": 2})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	gameData := envelope["data"].(map[string]interface{})
	joinCode := gameData["join_code"].(string)
	gid := int(gameData["id"].(float64))

	// 第二人加入后满员自动开局
	w, _ = suite.do(http.MethodPost, "/api/v1/games/join", tokenB, gin.H{"join_code": joinCode})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())

	// 快照显示RUNNING与两名玩家
	w, envelope = suite.do(http.MethodGet, fmt.Sprintf("/api/v1/games/%d", gid), tokenA, nil)
	suite.Require().Equal(http.StatusOK, w.Code)
	snap := envelope["data"].(map[string]interface{})
	gameState := snap["game"].(map[string]interface{})
	assert.Equal(suite.T(), "RUNNING", gameState["status"])
	assert.Len(suite.T(), snap["players"].([]interface{}), 2)

	// 先手掷骰
	w, envelope = suite.do(http.MethodPost, fmt.Sprintf("/api/v1/games/%d/turn", gid), tokenA, nil)
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	turn := envelope["data"].(map[string]interface{})
	pos := int(turn["new_position"].(float64))
	assert.GreaterOrEqual(suite.T(), pos, 0)
	assert.Less(suite.T(), pos, 40)

	// 后手此刻不能掷骰
	w, _ = suite.do(http.MethodPost, fmt.Sprintf("/api/v1/games/%d/turn", gid), tokenB, nil)
	assert.Equal(suite.T(), http.StatusConflict, w.Code)

	// 非对局成员被拒绝
	tokenC := suite.registerAndLogin("carol")
	w, _ = suite.do(http.MethodPost, fmt.Sprintf("/api/v1/games/%d/turn", gid), tokenC, nil)
	assert.Equal(suite.T(), http.StatusNotFound, w.Code)
}

// TestTradeEndpoints 交易提案与响应链路
func (suite *APITestSuite) TestTradeEndpoints() {
	tokenA := suite.registerAndLogin("alice")
	tokenB := suite.registerAndLogin("bob")

	w, envelope := suite.do(http.MethodPost, "/api/v1/games", tokenA, gin.H{"max_players": 2})
	suite.Require().Equal(http.StatusOK, w.Code)
	gameData := envelope["data"].(map[string]interface{})
	gid := int(gameData["id"].(float64))

	w, envelope = suite.do(http.MethodPost, "/api/v1/games/join", tokenB,
		gin.H{"join_code": gameData["join_code"].(string)})
	suite.Require().Equal(http.StatusOK, w.Code)
	playerB := envelope["data"].(map[string]interface{})
	playerBID := int(playerB["id"].(float64))

	// A向B发起现金交易
	w, envelope = suite.do(http.MethodPost, fmt.Sprintf("/api/v1/games/%d/trades", gid), tokenA, gin.H{
		"to_player_id": playerBID,
		"offer":        gin.H{"cash": 100},
		"request":      gin.H{"cash": 50},
	})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	trade := envelope["data"].(map[string]interface{})
	tradeID := int(trade["id"].(float64))

	// B接受
	w, envelope = suite.do(http.MethodPost,
		fmt.Sprintf("/api/v1/games/%d/trades/%d/respond", gid, tradeID), tokenB,
		gin.H{"decision": "accept"})
	suite.Require().Equal(http.StatusOK, w.Code, w.Body.String())
	accepted := envelope["data"].(map[string]interface{})
	assert.Equal(suite.T(), "ACCEPTED", accepted["status"])

	// 再次响应被拒绝（已成交）
	w, _ = suite.do(http.MethodPost,
		fmt.Sprintf("/api/v1/games/%d/trades/%d/respond", gid, tradeID), tokenB,
		gin.H{"decision": "reject"})
	assert.Equal(suite.T(), http.StatusConflict, w.Code)
}

func TestAPITestSuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
