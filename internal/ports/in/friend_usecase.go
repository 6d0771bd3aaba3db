package in

import (
	"context"

	"github.com/malakchat/chatapp/internal/domain/entity"
)

// FriendUseCase 好友申请生命周期与好友关系操作
type FriendUseCase interface {
	// SendRequest 发送好友申请
	// 自己加自己 -> InvalidOperation；用户不存在 -> NotFound；
	// 已是好友或任一方向已有待处理申请 -> Conflict
	SendRequest(ctx context.Context, senderID, receiverID uint64) (*entity.FriendRequest, error)

	// AcceptRequest 接受申请，只有接收者可操作，只允许 PENDING
	// 接受成功后建立好友关系；关系已存在时接受仍然成功
	AcceptRequest(ctx context.Context, requestID, actingUserID uint64) error

	// RejectRequest 拒绝申请，只有接收者可操作，只允许 PENDING
	RejectRequest(ctx context.Context, requestID, actingUserID uint64) error

	// CancelRequest 取消申请，只有发送者可操作，只允许 PENDING，整条删除
	CancelRequest(ctx context.Context, requestID, actingUserID uint64) error

	// PendingReceived 收到的待处理申请
	PendingReceived(ctx context.Context, userID uint64) ([]*entity.FriendRequest, error)

	// PendingSent 发出的待处理申请
	PendingSent(ctx context.Context, userID uint64) ([]*entity.FriendRequest, error)

	// CountPendingReceived 收到的待处理申请数
	CountPendingReceived(ctx context.Context, userID uint64) (int64, error)

	// GetStatus 两个用户之间的关系状态
	GetStatus(ctx context.Context, currentUserID, otherUserID uint64) (entity.FriendshipStatus, error)

	// ListFriends 好友列表
	ListFriends(ctx context.Context, userID uint64) ([]*entity.User, error)

	// CountFriends 好友数量
	CountFriends(ctx context.Context, userID uint64) (int64, error)

	// AreFriends 是否已是好友
	AreFriends(ctx context.Context, userA, userB uint64) (bool, error)

	// MutualFriends 共同好友
	MutualFriends(ctx context.Context, userA, userB uint64) ([]*entity.User, error)

	// SearchFriends 按用户名搜索好友，空串等价于 ListFriends
	SearchFriends(ctx context.Context, userID uint64, term string) ([]*entity.User, error)

	// RemoveFriend 解除好友关系，不是好友 -> InvalidState
	RemoveFriend(ctx context.Context, userID, friendID uint64) error

	// CleanupOldRejected 删除早于 maxAgeDays 的 REJECTED 记录，返回删除条数
	CleanupOldRejected(ctx context.Context, maxAgeDays int) (int64, error)
}
