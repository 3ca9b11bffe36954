package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Client 单个WebSocket连接
type Client struct {
	ID     string
	UserID uint
	GameID uint
	Hub    *Hub
	Conn   *websocket.Conn
	Send   chan []byte
	logger *zap.Logger
}

// NewClient 创建客户端并绑定到对局
func NewClient(hub *Hub, conn *websocket.Conn, userID, gameID uint, logger *zap.Logger) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		GameID: gameID,
		Hub:    hub,
		Conn:   conn,
		Send:   make(chan []byte, 64),
		logger: logger,
	}
}

// Start 启动读写泵
func (c *Client) Start() {
	c.Hub.Register(c)
	go c.writePump()
	go c.readPump()
}

// readPump 读取循环
// 这是只读推送通道，客户端发来的内容仅用于保活，全部丢弃。
func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket读取异常",
					zap.String("client_id", c.ID),
					zap.Error(err))
			}
			return
		}
	}
}

// writePump 写入循环
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
