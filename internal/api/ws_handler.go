package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/wfunc/tycoon-game/internal/middleware"
	"github.com/wfunc/tycoon-game/internal/ws"
	"go.uber.org/zap"
)

// WSHandler WebSocket升级处理器
type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewWSHandler 创建WebSocket处理器
func NewWSHandler(hub *ws.Hub, log *zap.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		log: log,
	}
}

// Subscribe 订阅指定对局的事件推送
func (h *WSHandler) Subscribe(c *gin.Context) {
	gid, valid := gameID(c)
	if !valid {
		return
	}
	userID, _ := middleware.GetUserID(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("WebSocket升级失败", zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, userID, gid, h.log)
	client.Start()
}
