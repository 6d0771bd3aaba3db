package entity

import "time"

// PresenceStatus 在线状态，字符串取值对外稳定
type PresenceStatus string

const (
	PresenceStatusOnline  PresenceStatus = "ONLINE"
	PresenceStatusOffline PresenceStatus = "OFFLINE"
)

// UserPresence 用户在线状态读模型
type UserPresence struct {
	UserID   uint64         `json:"user_id"`
	Status   PresenceStatus `json:"status"`
	LastSeen *time.Time     `json:"last_seen,omitempty"` // 在线时为空
}

// PresenceEvent 在线状态变更事件，推送给好友
type PresenceEvent struct {
	UserID    uint64         `json:"user_id"`
	Status    PresenceStatus `json:"status"`
	LastSeen  *time.Time     `json:"last_seen,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
