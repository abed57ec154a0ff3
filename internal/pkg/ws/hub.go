package ws

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/qs3c/aipara_account_server/internal/pkg/logger"
	"github.com/qs3c/aipara_account_server/internal/pkg/pubsub"
)

// Hub 按 uid 管理账户页面的推送连接
type Hub struct {
	// 同一账户可能同时打开钱包页和订阅页
	clients map[string]map[*Client]struct{}
	mu      sync.RWMutex
	logger  *zap.Logger
}

type Client struct {
	UID  string
	Conn *websocket.Conn
	mu   sync.Mutex // 写锁，防止并发写入
}

type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		logger:  logger.OrNop(log),
	}
}

func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.UID] == nil {
		h.clients[client.UID] = make(map[*Client]struct{})
	}
	h.clients[client.UID][client] = struct{}{}

	h.logger.Debug("ws client connected",
		zap.String("uid", client.UID),
		zap.Int("user_conns", len(h.clients[client.UID])),
	)
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	removed := h.remove(client)
	h.mu.Unlock()

	if removed {
		h.logger.Debug("ws client disconnected", zap.String("uid", client.UID))
	}
}

// remove 调用方需持有写锁
func (h *Hub) remove(client *Client) bool {
	conns, ok := h.clients[client.UID]
	if !ok {
		return false
	}
	if _, ok := conns[client]; !ok {
		return false
	}
	delete(conns, client)
	if len(conns) == 0 {
		delete(h.clients, client.UID)
	}
	return true
}

// SendToUser 向指定用户的所有连接发送消息，写失败的连接会被摘除
func (h *Hub) SendToUser(uid string, msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	h.mu.RLock()
	conns, ok := h.clients[uid]
	if !ok {
		h.mu.RUnlock()
		return nil
	}
	targets := make([]*Client, 0, len(conns))
	for c := range conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var dead []*Client
	for _, c := range targets {
		if err := c.write(data); err != nil {
			h.logger.Warn("ws write failed", zap.String("uid", uid), zap.Error(err))
			dead = append(dead, c)
		}
	}
	if len(dead) > 0 {
		h.mu.Lock()
		for _, c := range dead {
			h.remove(c)
		}
		h.mu.Unlock()
	}
	return nil
}

func (c *Client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}

// Forward 把账户事件推给对应用户，作为订阅回调使用
func (h *Hub) Forward(event *pubsub.AccountEvent) {
	if event == nil || event.UID == "" || !h.IsOnline(event.UID) {
		return
	}
	if err := h.SendToUser(event.UID, &Message{Type: event.Type, Data: event}); err != nil {
		h.logger.Warn("ws forward failed", zap.String("uid", event.UID), zap.Error(err))
	}
}

// IsOnline 检查用户是否在线
func (h *Hub) IsOnline(uid string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns, ok := h.clients[uid]
	return ok && len(conns) > 0
}

// ConnectionCount 获取在线连接数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.clients {
		total += len(conns)
	}
	return total
}
