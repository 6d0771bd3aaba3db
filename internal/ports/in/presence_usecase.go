package in

import (
	"context"
	"time"

	"github.com/malakchat/chatapp/internal/domain/entity"
)

// PresenceUseCase 在线状态登记与查询
// connect/disconnect 不落存储，注册表为进程内状态
type PresenceUseCase interface {
	// Connect 登记会话并向在线好友扇出 ONLINE 事件
	Connect(ctx context.Context, userID uint64, sessionToken string)

	// Disconnect 仅当 sessionToken 仍是当前会话时移除映射，
	// 并向在线好友扇出带 lastSeen 的 OFFLINE 事件
	Disconnect(ctx context.Context, userID uint64, sessionToken string)

	// IsOnline 是否在线
	IsOnline(userID uint64) bool

	// LastSeen 最近一次在线时间，从未出现过返回 nil
	LastSeen(userID uint64) *time.Time

	// ListOnline 当前在线的用户 id 集合
	ListOnline() []uint64

	// GetStatus 用户状态读模型，离线时带 lastSeen
	GetStatus(ctx context.Context, userID uint64) (*entity.UserPresence, error)
}
