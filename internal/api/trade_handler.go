package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/tycoon-game/internal/game"
	"github.com/wfunc/tycoon-game/internal/ws"
)

// TradeHandler 交易处理器
type TradeHandler struct {
	engine *game.Engine
	hub    *ws.Hub
}

// NewTradeHandler 创建交易处理器
func NewTradeHandler(engine *game.Engine, hub *ws.Hub) *TradeHandler {
	return &TradeHandler{engine: engine, hub: hub}
}

// tradeID 解析路径中的交易ID
func tradeID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("trade_id"), 10, 32)
	if err != nil || id == 0 {
		badRequest(c, err)
		return 0, false
	}
	return uint(id), true
}

// ProposeTrade 发起交易提案
func (h *TradeHandler) ProposeTrade(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}

	gameHandler := &GameHandler{engine: h.engine}
	player, found := gameHandler.currentPlayer(c, gid)
	if !found {
		return
	}

	var req struct {
		ToPlayerID uint          `json:"to_player_id" binding:"required"`
		Offer      game.TradeLeg `json:"offer"`
		Request    game.TradeLeg `json:"request"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	trade, err := h.engine.ProposeTrade(c.Request.Context(), gid, player.ID, req.ToPlayerID, req.Offer, req.Request)
	if err != nil {
		fail(c, err)
		return
	}
	if h.hub != nil {
		h.hub.PublishGameEvent(gid, player.ID, ws.EventTradeUpdated, trade)
	}
	ok(c, trade)
}

// RespondTrade 响应交易提案（accept/reject/counter）
func (h *TradeHandler) RespondTrade(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}
	tid, valid := tradeID(c)
	if !valid {
		return
	}

	gameHandler := &GameHandler{engine: h.engine}
	player, found := gameHandler.currentPlayer(c, gid)
	if !found {
		return
	}

	var req struct {
		Decision string             `json:"decision" binding:"required"`
		Counter  *game.CounterOffer `json:"counter,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	trade, err := h.engine.RespondTrade(c.Request.Context(), tid, player.ID, req.Decision, req.Counter)
	if err != nil {
		fail(c, err)
		return
	}
	if h.hub != nil {
		h.hub.PublishGameEvent(gid, player.ID, ws.EventTradeUpdated, trade)
	}
	ok(c, trade)
}

// DeleteTrade 撤回交易提案
func (h *TradeHandler) DeleteTrade(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}
	tid, valid := tradeID(c)
	if !valid {
		return
	}

	gameHandler := &GameHandler{engine: h.engine}
	player, found := gameHandler.currentPlayer(c, gid)
	if !found {
		return
	}

	if err := h.engine.DeleteTrade(c.Request.Context(), tid, player.ID); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}
