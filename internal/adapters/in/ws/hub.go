package ws

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/malakchat/chatapp/internal/ports/out"
)

// OutboundMessage 下行消息帧，Type 即投递通道名
type OutboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
	Ts   int64  `json:"ts"`
}

// Hub 在线连接表，每个用户至多一条连接，新连接顶掉旧连接
// 同时是抽象投递原语的具体实现
type Hub struct {
	mu      sync.RWMutex
	clients map[uint64]*Client
}

var _ out.Notifier = (*Hub)(nil)

func NewHub() *Hub {
	return &Hub{clients: make(map[uint64]*Client)}
}

// Register 挂载连接，返回被顶掉的旧连接（可能为 nil）
func (h *Hub) Register(client *Client) *Client {
	h.mu.Lock()
	defer h.mu.Unlock()

	old := h.clients[client.userID]
	h.clients[client.userID] = client
	return old
}

// Unregister 仅当该连接仍挂载时摘除，旧连接的迟到摘除是无操作
func (h *Hub) Unregister(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.userID] != client {
		return false
	}
	delete(h.clients, client.userID)
	return true
}

// Deliver 投递给用户，fire-and-forget
// 用户不在线或发送缓冲已满都算本次投递失败，由调用方决定是否关心
func (h *Hub) Deliver(targetUserID uint64, channel string, payload any) error {
	h.mu.RLock()
	client, ok := h.clients[targetUserID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user %d not connected", targetUserID)
	}

	frame := OutboundMessage{
		Type: channel,
		Data: payload,
		Ts:   time.Now().UnixMilli(),
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal outbound message: %w", err)
	}

	if err := client.Send(data); err != nil {
		zap.L().Debug("ws deliver failed",
			zap.Uint64("user_id", targetUserID),
			zap.String("channel", channel),
			zap.Error(err))
		return err
	}
	return nil
}

// Count 当前连接数
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
