package entity

import "time"

// TypingKey 正在输入状态的键，(输入者, 接收者) 有序对
type TypingKey struct {
	UserID      uint64
	RecipientID uint64
}

// TypingEvent 输入状态变更事件，推送给接收者
type TypingEvent struct {
	UserID      uint64    `json:"user_id"`
	RecipientID uint64    `json:"recipient_id"`
	Typing      bool      `json:"typing"`
	Timestamp   time.Time `json:"timestamp"`
}
