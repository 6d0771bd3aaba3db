package ws

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// 写超时
	writeWait = 10 * time.Second
	// Pong等待时间
	pongWait = 60 * time.Second
	// Ping周期（必须小于pongWait）
	pingPeriod = 30 * time.Second
	// 最大消息大小
	maxMessageSize = 16 * 1024
	// 发送缓冲
	sendBufferSize = 256
)

// InboundMessage 上行消息帧
type InboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// 上行消息类型
const (
	MsgTypeTyping  = "typing"
	MsgTypeMessage = "message"
)

// TypingData 输入状态上报
type TypingData struct {
	RecipientID uint64 `json:"recipient_id"`
	Typing      bool   `json:"typing"`
}

// ChatData 消息发送
type ChatData struct {
	RecipientID uint64 `json:"recipient_id"`
	Content     string `json:"content"`
}

// Client 一条已认证的 WebSocket 连接
type Client struct {
	conn    *websocket.Conn
	userID  uint64
	session string // 会话令牌，断开登记时用于 compare-and-delete
	send    chan []byte
	done    chan struct{} // 关闭信号；send 本身永不 close，避免并发投递写已关闭通道
	closed  int32
}

func NewClient(conn *websocket.Conn, userID uint64, session string) *Client {
	return &Client{
		conn:    conn,
		userID:  userID,
		session: session,
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
	}
}

func (c *Client) UserID() uint64  { return c.userID }
func (c *Client) Session() string { return c.session }

// Send 把一帧放进发送缓冲，缓冲满或连接已关闭时返回错误
func (c *Client) Send(data []byte) error {
	select {
	case <-c.done:
		return fmt.Errorf("connection closed")
	default:
	}
	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return fmt.Errorf("connection closed")
	default:
		return fmt.Errorf("send buffer full")
	}
}

// Close 标记关闭并断开底层连接，幂等
func (c *Client) Close() {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return
	}
	close(c.done)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}

// writePump 把发送缓冲写到连接，并按周期发 ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				zap.L().Debug("ws write failed",
					zap.Uint64("user_id", c.userID),
					zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 读取上行帧并交给 handler，连接断开时返回
func (c *Client) readPump(handle func(*InboundMessage)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("ws read failed",
					zap.Uint64("user_id", c.userID),
					zap.Error(err))
			}
			return
		}

		var msg InboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			zap.L().Debug("ws bad frame", zap.Uint64("user_id", c.userID))
			continue
		}
		handle(&msg)
	}
}
