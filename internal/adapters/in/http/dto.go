package http

import (
	"time"

	"github.com/malakchat/chatapp/internal/domain/entity"
)

// UserView 用户对外视图，不含口令散列
type UserView struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
}

func toUserView(u *entity.User) UserView {
	return UserView{ID: u.ID, Username: u.Username}
}

func toUserViews(users []*entity.User) []UserView {
	views := make([]UserView, len(users))
	for i, u := range users {
		views[i] = toUserView(u)
	}
	return views
}

// MessageView 消息对外视图
type MessageView struct {
	ID          uint64    `json:"id"`
	SenderID    uint64    `json:"sender_id"`
	RecipientID uint64    `json:"recipient_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMessageView(m *entity.Message) MessageView {
	return MessageView{
		ID:          m.ID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
	}
}

func toMessageViews(messages []*entity.Message) []MessageView {
	views := make([]MessageView, len(messages))
	for i, m := range messages {
		views[i] = toMessageView(m)
	}
	return views
}
