package out

import "context"

// FriendEvent 好友域事件，发往消息队列供下游消费
type FriendEvent struct {
	Type       string `json:"type"` // request_created / request_accepted / request_rejected / friendship_removed
	RequestID  uint64 `json:"request_id,omitempty"`
	SenderID   uint64 `json:"sender_id"`
	ReceiverID uint64 `json:"receiver_id"`
	Timestamp  int64  `json:"timestamp"`
}

// EventPublisher 事件发布接口，可为 nil（不发布）
type EventPublisher interface {
	PublishFriendEvent(ctx context.Context, event *FriendEvent) error
	Close() error
}
