package entity

import "time"

// Message 私聊消息，按插入顺序先进先出
type Message struct {
	ID          uint64
	SenderID    uint64
	RecipientID uint64
	Content     string
	CreatedAt   time.Time
}
