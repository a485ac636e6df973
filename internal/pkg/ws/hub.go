package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/osms-business/osms_server/internal/pkg/pubsub"
)

// Hub 按账户管理 WebSocket 连接，一个账户可以有多个连接（多标签页、重连）
type Hub struct {
	clients map[int64]map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	UserID int64
	Conn   *websocket.Conn

	mu      sync.Mutex // 写锁，防止并发写入
	watchMu  sync.Mutex
	watches  map[int64]watch
	watchSeq uint64
}

// watch 一次支付轮询，token 区分同一支付先后启动的轮询
type watch struct {
	token  uint64
	cancel context.CancelFunc
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[int64]map[*Client]struct{}),
	}
}

func NewClient(userID int64, conn *websocket.Conn) *Client {
	return &Client{UserID: userID, Conn: conn}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UserID] == nil {
		h.clients[client.UserID] = make(map[*Client]struct{})
	}
	h.clients[client.UserID][client] = struct{}{}

	zap.L().Info("ws client connected",
		zap.Int64("user_id", client.UserID),
		zap.Int("user_conns", len(h.clients[client.UserID])))
}

// Unregister 移除连接并停止该连接上的所有支付轮询
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if conns, ok := h.clients[client.UserID]; ok {
		delete(conns, client)
		if len(conns) == 0 {
			delete(h.clients, client.UserID)
		}
	}
	h.mu.Unlock()

	client.StopWatches()
	zap.L().Info("ws client disconnected", zap.Int64("user_id", client.UserID))
}

// SendToUser 向指定账户的所有连接发送消息
func (h *Hub) SendToUser(userID int64, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns, ok := h.clients[userID]
	if !ok {
		h.mu.RUnlock()
		return nil
	}
	clients := make([]*Client, 0, len(conns))
	for c := range conns {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			zap.L().Warn("ws write failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return nil
}

// Forward 把 Redis 上的账户事件推给对应账户
func (h *Hub) Forward(event *pubsub.Event) {
	if err := h.SendToUser(event.UserID, &Message{Type: event.Type, Data: event}); err != nil {
		zap.L().Warn("ws forward failed", zap.Int64("user_id", event.UserID), zap.Error(err))
	}
}

func (h *Hub) IsOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns, ok := h.clients[userID]
	return ok && len(conns) > 0
}

func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}

// Send 只向当前连接发送
func (c *Client) Send(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.write(data)
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// Watch 记录一个支付轮询，同一连接对同一支付只保留一个轮询。
// 返回的 token 交给 Release；已存在时返回 false，调用方应取消新建的 ctx。
func (c *Client) Watch(paymentID int64, cancel context.CancelFunc) (uint64, bool) {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()

	if c.watches == nil {
		c.watches = make(map[int64]watch)
	}
	if _, ok := c.watches[paymentID]; ok {
		return 0, false
	}
	c.watchSeq++
	c.watches[paymentID] = watch{token: c.watchSeq, cancel: cancel}
	return c.watchSeq, true
}

// Unwatch 客户端主动取消对某支付的轮询
func (c *Client) Unwatch(paymentID int64) {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()

	if w, ok := c.watches[paymentID]; ok {
		w.cancel()
		delete(c.watches, paymentID)
	}
}

// Release 轮询结束时调用，只移除 token 对应的轮询，不影响之后重新发起的同一支付轮询
func (c *Client) Release(paymentID int64, token uint64) {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()

	if w, ok := c.watches[paymentID]; ok && w.token == token {
		w.cancel()
		delete(c.watches, paymentID)
	}
}

func (c *Client) StopWatches() {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()

	for id, w := range c.watches {
		w.cancel()
		delete(c.watches, id)
	}
}

func (c *Client) WatchCount() int {
	c.watchMu.Lock()
	defer c.watchMu.Unlock()
	return len(c.watches)
}
