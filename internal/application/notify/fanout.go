package notify

import (
	"context"
	"time"

	"github.com/malakchat/chatapp/internal/domain/entity"
	"github.com/malakchat/chatapp/internal/ports/out"
	"github.com/malakchat/chatapp/pkg/zlog"
)

// OnlineChecker 在线判定，由在线注册表实现
type OnlineChecker interface {
	IsOnline(userID uint64) bool
}

// Fanout 事件扇出服务
// 投递失败只记日志不上抛：通知失败永远不能让触发它的业务操作失败，
// 单个接收者的失败也不中断对其他接收者的投递
type Fanout struct {
	friendshipRepo out.FriendshipRepository
	online         OnlineChecker
	notifier       out.Notifier
}

func NewFanout(friendshipRepo out.FriendshipRepository, online OnlineChecker, notifier out.Notifier) *Fanout {
	return &Fanout{
		friendshipRepo: friendshipRepo,
		online:         online,
		notifier:       notifier,
	}
}

// NotifyFriendsOfPresence 把在线状态变化推给当前在线的好友
func (f *Fanout) NotifyFriendsOfPresence(ctx context.Context, userID uint64, status entity.PresenceStatus, lastSeen *time.Time) {
	friendIDs, err := f.friendshipRepo.ListFriendIDs(ctx, userID)
	if err != nil {
		zlog.C(ctx).Warn("presence fanout: list friends failed",
			zlog.Any("user_id", userID),
			zlog.Any("error", err))
		return
	}

	event := &entity.PresenceEvent{
		UserID:    userID,
		Status:    status,
		LastSeen:  lastSeen,
		Timestamp: time.Now(),
	}

	notified := 0
	for _, friendID := range friendIDs {
		if !f.online.IsOnline(friendID) {
			continue
		}
		if err := f.notifier.Deliver(friendID, out.ChannelStatus, event); err != nil {
			zlog.C(ctx).Warn("presence fanout: deliver failed",
				zlog.Any("recipient_id", friendID),
				zlog.Any("error", err))
			continue
		}
		notified++
	}

	zlog.C(ctx).Debug("presence fanout done",
		zlog.Any("user_id", userID),
		zlog.String("status", string(status)),
		zlog.Int("notified", notified))
}

// NotifyTyping 把输入状态变化推给接收者
func (f *Fanout) NotifyTyping(ctx context.Context, typistID, recipientID uint64, active bool) {
	event := &entity.TypingEvent{
		UserID:      typistID,
		RecipientID: recipientID,
		Typing:      active,
		Timestamp:   time.Now(),
	}
	if err := f.notifier.Deliver(recipientID, out.ChannelTyping, event); err != nil {
		zlog.C(ctx).Warn("typing fanout: deliver failed",
			zlog.Any("recipient_id", recipientID),
			zlog.Any("error", err))
	}
}

// NotifyFriendEvent 把好友生命周期事件推给目标用户，通常是未操作的一方
func (f *Fanout) NotifyFriendEvent(ctx context.Context, targetUserID uint64, event *out.FriendEvent) {
	if err := f.notifier.Deliver(targetUserID, out.ChannelFriend, event); err != nil {
		zlog.C(ctx).Warn("friend fanout: deliver failed",
			zlog.Any("recipient_id", targetUserID),
			zlog.String("type", event.Type),
			zlog.Any("error", err))
	}
}

// NotifyMessage 把消息投递给接收者，并回显给发送者本人
// 回显是刻意设计：发送端由此拿到服务端分配的 id 和时间戳
func (f *Fanout) NotifyMessage(ctx context.Context, message *entity.Message) {
	for _, target := range []uint64{message.RecipientID, message.SenderID} {
		if err := f.notifier.Deliver(target, out.ChannelMessages, message); err != nil {
			zlog.C(ctx).Warn("message fanout: deliver failed",
				zlog.Any("recipient_id", target),
				zlog.Any("message_id", message.ID),
				zlog.Any("error", err))
		}
	}
}
