package api

import (
	"github.com/gin-gonic/gin"
	"github.com/wfunc/tycoon-game/internal/game"
	"github.com/wfunc/tycoon-game/internal/models"
	"github.com/wfunc/tycoon-game/internal/ws"
)

// PerkHandler 特权处理器
type PerkHandler struct {
	engine *game.Engine
	hub    *ws.Hub
}

// NewPerkHandler 创建特权处理器
func NewPerkHandler(engine *game.Engine, hub *ws.Hub) *PerkHandler {
	return &PerkHandler{engine: engine, hub: hub}
}

// ListPerks 当前玩家的特权列表
func (h *PerkHandler) ListPerks(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}

	gameHandler := &GameHandler{engine: h.engine}
	player, found := gameHandler.currentPlayer(c, gid)
	if !found {
		return
	}

	perks, err := h.engine.ListPerks(c.Request.Context(), player.ID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, perks)
}

// ActivatePerk 激活特权
func (h *PerkHandler) ActivatePerk(c *gin.Context) {
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
		Kind   string         `json:"kind" binding:"required"`
		Params models.JSONMap `json:"params,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	effects, err := h.engine.ActivatePerk(c.Request.Context(), gid, player.ID, req.Kind, req.Params)
	if err != nil {
		fail(c, err)
		return
	}
	if h.hub != nil {
		h.hub.PublishGameEvent(gid, player.ID, ws.EventPerkActivated, effects)
	}
	ok(c, gin.H{"effects": effects})
}

// GrantPerk 发放特权（管理员入口）
func (h *PerkHandler) GrantPerk(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}

	var req struct {
		PlayerID uint   `json:"player_id" binding:"required"`
		Kind     string `json:"kind" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	perk, err := h.engine.GrantPerk(c.Request.Context(), gid, req.PlayerID, req.Kind)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, perk)
}
