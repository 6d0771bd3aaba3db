package out

import (
	"context"
	"time"

	"github.com/malakchat/chatapp/internal/domain/entity"
)

// UserRepository 用户仓储接口，核心只读，注册是唯一写入口
type UserRepository interface {
	// Create 创建用户
	Create(ctx context.Context, user *entity.User) error

	// GetByID 根据ID获取用户，不存在时返回 nil
	GetByID(ctx context.Context, id uint64) (*entity.User, error)

	// GetByUsername 根据用户名获取用户，不存在时返回 nil
	GetByUsername(ctx context.Context, username string) (*entity.User, error)

	// Exists 检查用户是否存在
	Exists(ctx context.Context, id uint64) (bool, error)
}

// FriendshipRepository 好友关系仓储接口，行内始终 user1_id < user2_id
type FriendshipRepository interface {
	// Create 创建好友关系，唯一键冲突时返回 ErrDuplicate 类错误
	Create(ctx context.Context, friendship *entity.Friendship) error

	// GetByPair 获取无序对的好友关系，不存在时返回 nil
	GetByPair(ctx context.Context, userA, userB uint64) (*entity.Friendship, error)

	// AreFriends 检查无序对是否已是好友
	AreFriends(ctx context.Context, userA, userB uint64) (bool, error)

	// DeleteByPair 删除无序对的好友关系，不存在时静默无操作
	DeleteByPair(ctx context.Context, userA, userB uint64) error

	// ListFriendIDs 列出用户的全部好友 id
	ListFriendIDs(ctx context.Context, userID uint64) ([]uint64, error)

	// ListFriends 列出用户的全部好友
	ListFriends(ctx context.Context, userID uint64) ([]*entity.User, error)

	// CountFriends 统计用户的好友数量
	CountFriends(ctx context.Context, userID uint64) (int64, error)

	// MutualFriends 两个用户的共同好友，不含双方自身
	MutualFriends(ctx context.Context, userA, userB uint64) ([]*entity.User, error)

	// SearchFriends 按用户名子串大小写不敏感过滤好友
	SearchFriends(ctx context.Context, userID uint64, term string) ([]*entity.User, error)
}

// FriendRequestRepository 好友申请仓储接口
type FriendRequestRepository interface {
	// Create 创建申请，(sender, receiver) 待处理唯一键冲突时返回重复键错误
	Create(ctx context.Context, request *entity.FriendRequest) error

	// GetByID 根据ID获取申请，不存在时返回 nil
	GetByID(ctx context.Context, id uint64) (*entity.FriendRequest, error)

	// GetPendingBetween 获取无序对之间任一方向的待处理申请，不存在时返回 nil
	GetPendingBetween(ctx context.Context, userA, userB uint64) (*entity.FriendRequest, error)

	// ListByReceiver 列出某用户收到的指定状态申请
	ListByReceiver(ctx context.Context, userID uint64, status entity.RequestStatus) ([]*entity.FriendRequest, error)

	// ListBySender 列出某用户发出的指定状态申请
	ListBySender(ctx context.Context, userID uint64, status entity.RequestStatus) ([]*entity.FriendRequest, error)

	// CountByReceiver 统计某用户收到的指定状态申请数
	CountByReceiver(ctx context.Context, userID uint64, status entity.RequestStatus) (int64, error)

	// UpdateStatusIfPending 仅当仍为 PENDING 时更新状态，返回是否更新成功
	// 同一申请的并发 accept 恰好一个返回 true
	UpdateStatusIfPending(ctx context.Context, id uint64, status entity.RequestStatus) (bool, error)

	// DeleteIfPending 仅当仍为 PENDING 时删除，返回是否删除成功
	DeleteIfPending(ctx context.Context, id uint64) (bool, error)

	// DeleteRejectedBefore 批量删除早于 cutoff 的 REJECTED 记录，幂等
	DeleteRejectedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// MessageRepository 消息仓储接口，薄层，按插入顺序即先进先出
type MessageRepository interface {
	// Create 持久化消息并回填服务端 id 与时间戳
	Create(ctx context.Context, message *entity.Message) error

	// ListBetween 按时间升序列出两个用户之间的消息
	ListBetween(ctx context.Context, userA, userB uint64, limit int) ([]*entity.Message, error)
}
