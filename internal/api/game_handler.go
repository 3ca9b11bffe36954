package api

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/tycoon-game/internal/errors"
	"github.com/wfunc/tycoon-game/internal/game"
	"github.com/wfunc/tycoon-game/internal/middleware"
	"github.com/wfunc/tycoon-game/internal/models"
	"github.com/wfunc/tycoon-game/internal/repository"
	"github.com/wfunc/tycoon-game/internal/ws"
)

// GameHandler 对局处理器
type GameHandler struct {
	engine *game.Engine
	hub    *ws.Hub
}

// NewGameHandler 创建对局处理器
func NewGameHandler(engine *game.Engine, hub *ws.Hub) *GameHandler {
	return &GameHandler{engine: engine, hub: hub}
}

// gameID 解析路径中的对局ID
func gameID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, err)
		return 0, false
	}
	return uint(id), true
}

// currentPlayer 解析当前用户在对局中的玩家身份
func (h *GameHandler) currentPlayer(c *gin.Context, gid uint) (*models.GamePlayer, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		fail(c, apperrors.New(apperrors.ErrAuthorization))
		return nil, false
	}
	player, err := h.engine.FindPlayer(c.Request.Context(), gid, userID)
	if err != nil {
		fail(c, apperrors.New(apperrors.ErrNotFound, "你不在该对局中"))
		return nil, false
	}
	return player, true
}

// publish 对局事件推送（观战通道）
func (h *GameHandler) publish(gid, playerID uint, eventType string, data interface{}) {
	if h.hub != nil {
		h.hub.PublishGameEvent(gid, playerID, eventType, data)
	}
}

// CreateGame 创建对局
func (h *GameHandler) CreateGame(c *gin.Context) {
	var input game.CreateGameInput
	if err := c.ShouldBindJSON(&input); err != nil && c.Request.ContentLength > 0 {
		badRequest(c, err)
		return
	}

	userID, _ := middleware.GetUserID(c)
	g, err := h.engine.CreateGame(c.Request.Context(), userID, input)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, g)
}

// ListGames 按状态列出对局
func (h *GameHandler) ListGames(c *gin.Context) {
	status := c.DefaultQuery("status", models.GameStatusPending)
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	p := repository.NewPagination(page, pageSize)
	games, err := h.engine.ListGames(c.Request.Context(), status, p)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"games": games, "total": p.Total})
}

// JoinGame 通过加入码加入对局
func (h *GameHandler) JoinGame(c *gin.Context) {
	var req struct {
		JoinCode string `json:"join_code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	userID, _ := middleware.GetUserID(c)
	player, err := h.engine.JoinGame(c.Request.Context(), req.JoinCode, userID)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(player.GameID, player.ID, ws.EventGameStarted, player)
	ok(c, player)
}

// StartGame 提前开局
func (h *GameHandler) StartGame(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}
	if err := h.engine.StartGame(c.Request.Context(), gid); err != nil {
		fail(c, err)
		return
	}
	h.publish(gid, 0, ws.EventGameStarted, nil)
	ok(c, nil)
}

// GetSnapshot 对局状态快照
func (h *GameHandler) GetSnapshot(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}
	snap, err := h.engine.GetSnapshot(c.Request.Context(), gid)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, snap)
}

// TakeTurn 掷骰并移动（骰点由服务端掷出）
func (h *GameHandler) TakeTurn(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}
	player, found := h.currentPlayer(c, gid)
	if !found {
		return
	}

	result, err := h.engine.TakeTurn(c.Request.Context(), gid, player.ID, nil)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(gid, player.ID, ws.EventTurnTaken, result)
	ok(c, result)
}

// EndTurn 结束回合
func (h *GameHandler) EndTurn(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}
	player, found := h.currentPlayer(c, gid)
	if !found {
		return
	}

	next, err := h.engine.EndTurn(c.Request.Context(), gid, player.ID)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(gid, player.ID, ws.EventTurnEnded, gin.H{"next_player_id": next})
	ok(c, gin.H{"next_player_id": next})
}

// BuyProperty 确认购地要约
func (h *GameHandler) BuyProperty(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}
	player, found := h.currentPlayer(c, gid)
	if !found {
		return
	}

	var req struct {
		PropertyID uint `json:"property_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	effects, err := h.engine.BuyProperty(c.Request.Context(), gid, player.ID, req.PropertyID)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(gid, player.ID, ws.EventPropertyDeal, effects)
	ok(c, gin.H{"effects": effects})
}

// Mortgage 抵押地块
func (h *GameHandler) Mortgage(c *gin.Context) {
	h.propertyAction(c, h.engine.Mortgage)
}

// Unmortgage 赎回地块
func (h *GameHandler) Unmortgage(c *gin.Context) {
	h.propertyAction(c, h.engine.Unmortgage)
}

// propertyAction 抵押/赎回的共用入口
func (h *GameHandler) propertyAction(c *gin.Context, action func(ctx context.Context, gameID, playerID, propertyID uint) ([]game.Effect, error)) {
	gid, valid := gameID(c)
	if !valid {
		return
	}
	player, found := h.currentPlayer(c, gid)
	if !found {
		return
	}

	var req struct {
		PropertyID uint `json:"property_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	effects, err := action(c.Request.Context(), gid, player.ID, req.PropertyID)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(gid, player.ID, ws.EventPropertyDeal, effects)
	ok(c, gin.H{"effects": effects})
}

// SettleDebt 结清挂账
func (h *GameHandler) SettleDebt(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}
	player, found := h.currentPlayer(c, gid)
	if !found {
		return
	}

	effects, err := h.engine.SettleDebt(c.Request.Context(), gid, player.ID)
	if err != nil {
		fail(c, err)
		return
	}
	h.publish(gid, player.ID, ws.EventDebtSettled, effects)
	ok(c, gin.H{"effects": effects})
}

// PayJailFine 缴罚金出狱
func (h *GameHandler) PayJailFine(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}
	player, found := h.currentPlayer(c, gid)
	if !found {
		return
	}

	if err := h.engine.PayJailFine(c.Request.Context(), gid, player.ID); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// UseJailCard 使用出狱卡
func (h *GameHandler) UseJailCard(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}
	player, found := h.currentPlayer(c, gid)
	if !found {
		return
	}

	if err := h.engine.UseJailCard(c.Request.Context(), gid, player.ID); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

// DeclareBankruptcy 宣告破产
func (h *GameHandler) DeclareBankruptcy(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}
	player, found := h.currentPlayer(c, gid)
	if !found {
		return
	}

	result, err := h.engine.DeclareBankruptcy(c.Request.Context(), gid, player.ID)
	if err != nil {
		fail(c, err)
		return
	}
	if result.GameOver {
		h.publish(gid, player.ID, ws.EventGameOver, result)
	} else {
		h.publish(gid, player.ID, ws.EventBankruptcy, result)
	}
	ok(c, result)
}
