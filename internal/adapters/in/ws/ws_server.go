package ws

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/malakchat/chatapp/internal/ports/in"
)

// Server WebSocket接入层
// 握手认证 -> 挂载连接 -> 登记在线状态；连接关闭反向走一遍
type Server struct {
	hub        *Hub
	authUC     in.AuthUseCase
	presenceUC in.PresenceUseCase
	typingUC   in.TypingUseCase
	messageUC  in.MessageUseCase
	upgrader   websocket.Upgrader
}

func NewServer(
	hub *Hub,
	authUC in.AuthUseCase,
	presenceUC in.PresenceUseCase,
	typingUC in.TypingUseCase,
	messageUC in.MessageUseCase,
) *Server {
	return &Server{
		hub:        hub,
		authUC:     authUC,
		presenceUC: presenceUC,
		typingUC:   typingUC,
		messageUC:  messageUC,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection 处理 /ws?token=xxx
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := s.authUC.ResolveToken(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.L().Warn("ws upgrade failed", zap.Error(err))
		return
	}

	// 每条连接一个新的会话令牌
	session := uuid.NewString()
	client := NewClient(conn, userID, session)

	if old := s.hub.Register(client); old != nil {
		// 同一用户的旧连接被顶掉，旧连接的断开登记会因令牌不符而失效
		old.Close()
	}

	s.presenceUC.Connect(r.Context(), userID, session)

	go client.writePump()
	go s.serveRead(client)
}

func (s *Server) serveRead(client *Client) {
	defer func() {
		s.hub.Unregister(client)
		client.Close()
		// 用本连接的会话令牌登记下线，重连竞态下是无操作
		s.presenceUC.Disconnect(context.Background(), client.UserID(), client.Session())
	}()

	client.readPump(func(msg *InboundMessage) {
		s.dispatch(client, msg)
	})
}

func (s *Server) dispatch(client *Client, msg *InboundMessage) {
	ctx := context.Background()

	switch msg.Type {
	case MsgTypeTyping:
		var data TypingData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.RecipientID == 0 {
			return
		}
		if data.Typing {
			s.typingUC.StartTyping(ctx, client.UserID(), data.RecipientID)
		} else {
			s.typingUC.StopTyping(ctx, client.UserID(), data.RecipientID)
		}

	case MsgTypeMessage:
		var data ChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.RecipientID == 0 {
			return
		}
		if _, err := s.messageUC.Send(ctx, client.UserID(), data.RecipientID, data.Content); err != nil {
			zap.L().Debug("ws message rejected",
				zap.Uint64("user_id", client.UserID()),
				zap.Error(err))
		}

	default:
		zap.L().Debug("ws unknown frame type",
			zap.Uint64("user_id", client.UserID()),
			zap.String("type", msg.Type))
	}
}
