package ws

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrClientNotFound = errors.New("客户端不存在")
	ErrSendBufferFull = errors.New("发送缓冲区已满")
)

// 事件类型：引擎每次提交后的状态推送
const (
	EventConnected     = "connected"
	EventPing          = "ping"
	EventGameStarted   = "game_started"
	EventTurnTaken     = "turn_taken"
	EventTurnEnded     = "turn_ended"
	EventPropertyDeal  = "property_deal"
	EventTradeUpdated  = "trade_updated"
	EventPerkActivated = "perk_activated"
	EventDebtSettled   = "debt_settled"
	EventBankruptcy    = "bankruptcy"
	EventGameOver      = "game_over"
)

// Event 推送给订阅客户端的事件
// 只做观战/刷新通道，所有变更仍走HTTP合约。
type Event struct {
	Type      string      `json:"type"`
	GameID    uint        `json:"game_id,omitempty"`
	PlayerID  uint        `json:"player_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// Hub 按对局分组的WebSocket连接中心
type Hub struct {
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 对局ID到客户端集合的映射
	gameClients map[uint]map[string]*Client
	gameMu      sync.RWMutex

	broadcast  chan *Event
	register   chan *Client
	unregister chan *Client

	logger *zap.Logger
}

// NewHub 创建Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:     make(map[string]*Client),
		gameClients: make(map[uint]map[string]*Client),
		broadcast:   make(chan *Event, 256),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		logger:      logger,
	}
}

// Run 运行Hub主循环
func (h *Hub) Run() {
	go h.runHeartbeat()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case event := <-h.broadcast:
			h.dispatch(event)
		}
	}
}

// registerClient 注册客户端并加入对局分组
func (h *Hub) registerClient(client *Client) {
	h.clientsMu.Lock()
	h.clients[client.ID] = client
	h.clientsMu.Unlock()

	if client.GameID > 0 {
		h.gameMu.Lock()
		if h.gameClients[client.GameID] == nil {
			h.gameClients[client.GameID] = make(map[string]*Client)
		}
		h.gameClients[client.GameID][client.ID] = client
		h.gameMu.Unlock()
	}

	h.logger.Info("WebSocket客户端连接",
		zap.String("client_id", client.ID),
		zap.Uint("user_id", client.UserID),
		zap.Uint("game_id", client.GameID))

	h.sendTo(client, &Event{
		Type:      EventConnected,
		GameID:    client.GameID,
		Timestamp: time.Now().Unix(),
	})
}

// unregisterClient 注销客户端
func (h *Hub) unregisterClient(client *Client) {
	h.clientsMu.Lock()
	if _, ok := h.clients[client.ID]; ok {
		delete(h.clients, client.ID)
		close(client.Send)
	}
	h.clientsMu.Unlock()

	if client.GameID > 0 {
		h.gameMu.Lock()
		if set, ok := h.gameClients[client.GameID]; ok {
			delete(set, client.ID)
			if len(set) == 0 {
				delete(h.gameClients, client.GameID)
			}
		}
		h.gameMu.Unlock()
	}

	h.logger.Info("WebSocket客户端断开",
		zap.String("client_id", client.ID),
		zap.Uint("game_id", client.GameID))
}

// dispatch 把事件投递给对应对局的订阅者；GameID为0时全体广播
func (h *Hub) dispatch(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("序列化事件失败", zap.Error(err))
		return
	}

	if event.GameID == 0 {
		h.clientsMu.RLock()
		for _, client := range h.clients {
			h.trySend(client, data)
		}
		h.clientsMu.RUnlock()
		return
	}

	h.gameMu.RLock()
	for _, client := range h.gameClients[event.GameID] {
		h.trySend(client, data)
	}
	h.gameMu.RUnlock()
}

// trySend 非阻塞发送，缓冲区满时丢弃并告警
func (h *Hub) trySend(client *Client, data []byte) {
	select {
	case client.Send <- data:
	default:
		h.logger.Warn("客户端发送缓冲区满", zap.String("client_id", client.ID))
	}
}

// sendTo 发送事件给单个客户端
func (h *Hub) sendTo(client *Client, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.trySend(client, data)
}

// PublishGameEvent 对局事件入队（公开入口，非阻塞）
func (h *Hub) PublishGameEvent(gameID, playerID uint, eventType string, data interface{}) {
	event := &Event{
		Type:      eventType,
		GameID:    gameID,
		PlayerID:  playerID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	select {
	case h.broadcast <- event:
	default:
		h.logger.Warn("事件广播队列已满",
			zap.Uint("game_id", gameID),
			zap.String("type", eventType))
	}
}

// SubscriberCount 对局的当前订阅数
func (h *Hub) SubscriberCount(gameID uint) int {
	h.gameMu.RLock()
	defer h.gameMu.RUnlock()
	return len(h.gameClients[gameID])
}

// Register 注册客户端
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 注销客户端
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// runHeartbeat 定期向全体客户端发送心跳
func (h *Hub) runHeartbeat() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		<-ticker.C
		h.broadcast <- &Event{
			Type:      EventPing,
			Timestamp: time.Now().Unix(),
		}
	}
}
