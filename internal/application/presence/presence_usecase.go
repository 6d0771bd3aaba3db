package presence

import (
	"context"
	"time"

	"github.com/malakchat/chatapp/internal/application/notify"
	"github.com/malakchat/chatapp/internal/domain/entity"
	"github.com/malakchat/chatapp/internal/ports/in"
	"github.com/malakchat/chatapp/pkg/zlog"
)

// UseCaseImpl 在线状态用例：注册表登记 + 好友扇出
// 登记本身纯内存，不会阻塞在存储上；扇出读好友表但失败被吞掉
type UseCaseImpl struct {
	registry *Registry
	fanout   *notify.Fanout
}

var _ in.PresenceUseCase = (*UseCaseImpl)(nil)

func NewUseCase(registry *Registry, fanout *notify.Fanout) *UseCaseImpl {
	return &UseCaseImpl{registry: registry, fanout: fanout}
}

// Connect 登记会话并向在线好友扇出 ONLINE
func (uc *UseCaseImpl) Connect(ctx context.Context, userID uint64, sessionToken string) {
	uc.registry.Connect(userID, sessionToken)

	zlog.C(ctx).Info("user connected",
		zlog.Any("user_id", userID),
		zlog.String("session", sessionToken))

	uc.fanout.NotifyFriendsOfPresence(ctx, userID, entity.PresenceStatusOnline, nil)
}

// Disconnect 会话令牌仍有效时移除映射并扇出带 lastSeen 的 OFFLINE
// 迟到的旧会话断开是无操作，不发事件
func (uc *UseCaseImpl) Disconnect(ctx context.Context, userID uint64, sessionToken string) {
	if !uc.registry.Disconnect(userID, sessionToken) {
		return
	}

	lastSeen := uc.registry.LastSeen(userID)
	zlog.C(ctx).Info("user disconnected",
		zlog.Any("user_id", userID),
		zlog.String("session", sessionToken))

	uc.fanout.NotifyFriendsOfPresence(ctx, userID, entity.PresenceStatusOffline, lastSeen)
}

func (uc *UseCaseImpl) IsOnline(userID uint64) bool {
	return uc.registry.IsOnline(userID)
}

func (uc *UseCaseImpl) LastSeen(userID uint64) *time.Time {
	return uc.registry.LastSeen(userID)
}

func (uc *UseCaseImpl) ListOnline() []uint64 {
	return uc.registry.ListOnline()
}

// GetStatus 状态读模型，在线时不带 lastSeen
func (uc *UseCaseImpl) GetStatus(ctx context.Context, userID uint64) (*entity.UserPresence, error) {
	if uc.registry.IsOnline(userID) {
		return &entity.UserPresence{UserID: userID, Status: entity.PresenceStatusOnline}, nil
	}
	return &entity.UserPresence{
		UserID:   userID,
		Status:   entity.PresenceStatusOffline,
		LastSeen: uc.registry.LastSeen(userID),
	}, nil
}
