package friend

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/malakchat/chatapp/internal/domain/entity"
	"github.com/malakchat/chatapp/internal/ports/in"
	"github.com/malakchat/chatapp/internal/ports/out"
	"github.com/malakchat/chatapp/pkg/apperr"
	"github.com/malakchat/chatapp/pkg/zlog"
)

// EventNotifier 把好友生命周期事件实时推给另一方
type EventNotifier interface {
	NotifyFriendEvent(ctx context.Context, targetUserID uint64, event *out.FriendEvent)
}

// UseCaseImpl 好友申请状态机与好友关系操作
type UseCaseImpl struct {
	requestRepo    out.FriendRequestRepository
	friendshipRepo out.FriendshipRepository
	userRepo       out.UserRepository
	eventPub       out.EventPublisher
	notifier       EventNotifier
}

var _ in.FriendUseCase = (*UseCaseImpl)(nil)

func NewUseCase(
	requestRepo out.FriendRequestRepository,
	friendshipRepo out.FriendshipRepository,
	userRepo out.UserRepository,
	eventPub out.EventPublisher,
	notifier EventNotifier,
) *UseCaseImpl {
	return &UseCaseImpl{
		requestRepo:    requestRepo,
		friendshipRepo: friendshipRepo,
		userRepo:       userRepo,
		eventPub:       eventPub,
		notifier:       notifier,
	}
}

// SendRequest 发送好友申请
// 存储层的待处理唯一键是最终权威，预检查漏掉的并发重复在这里被
// 重新归类为 Conflict，不向上抛内部存储错误
func (uc *UseCaseImpl) SendRequest(ctx context.Context, senderID, receiverID uint64) (*entity.FriendRequest, error) {
	if senderID == receiverID {
		return nil, apperr.InvalidOperation("cannot send friend request to yourself")
	}

	for _, id := range []uint64{senderID, receiverID} {
		ok, err := uc.userRepo.Exists(ctx, id)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindInternal, "check user", err)
		}
		if !ok {
			return nil, apperr.Newf(apperr.KindNotFound, "user not found: %d", id)
		}
	}

	areFriends, err := uc.friendshipRepo.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "check friendship", err)
	}
	if areFriends {
		return nil, apperr.Conflict("users are already friends")
	}

	existing, err := uc.requestRepo.GetPendingBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "check pending request", err)
	}
	if existing != nil {
		// 区分方向：对方已先发过来时提示去接受
		if existing.SenderID == receiverID {
			return nil, apperr.Conflict("this user has already sent you a friend request, accept it instead")
		}
		return nil, apperr.Conflict("friend request already sent and pending")
	}

	request := &entity.FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     entity.RequestStatusPending,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	if err := uc.requestRepo.Create(ctx, request); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("friend request already exists")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "create friend request", err)
	}

	zlog.C(ctx).Info("friend request sent",
		zlog.Any("request_id", request.ID),
		zlog.Any("sender_id", senderID),
		zlog.Any("receiver_id", receiverID))

	uc.publishEvent(ctx, "request_created", request.ID, senderID, receiverID, receiverID)
	return request, nil
}

// AcceptRequest 接受申请
// 状态改为 ACCEPTED 先落库，再建好友关系；关系因并发已存在时
// 接受本身仍然成功，只记日志，不回滚状态
func (uc *UseCaseImpl) AcceptRequest(ctx context.Context, requestID, actingUserID uint64) error {
	request, err := uc.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}

	if request.ReceiverID != actingUserID {
		return apperr.Forbidden("you are not authorized to accept this request")
	}
	if !request.IsPending() {
		return apperr.Newf(apperr.KindInvalidState, "request is not pending (current status: %s)", request.Status)
	}

	// 条件更新保证同一申请的并发 accept 恰好一个成功
	updated, err := uc.requestRepo.UpdateStatusIfPending(ctx, requestID, entity.RequestStatusAccepted)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "update request status", err)
	}
	if !updated {
		return apperr.InvalidState("request is not pending")
	}

	friendship := entity.NewFriendship(request.SenderID, request.ReceiverID)
	if err := uc.friendshipRepo.Create(ctx, friendship); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			zlog.C(ctx).Warn("friendship already exists",
				zlog.Any("user1_id", friendship.User1ID),
				zlog.Any("user2_id", friendship.User2ID))
		} else {
			return apperr.Wrap(apperr.KindInternal, "create friendship", err)
		}
	}

	zlog.C(ctx).Info("friend request accepted",
		zlog.Any("request_id", requestID),
		zlog.Any("sender_id", request.SenderID),
		zlog.Any("receiver_id", request.ReceiverID))

	uc.publishEvent(ctx, "request_accepted", requestID, request.SenderID, request.ReceiverID, request.SenderID)
	return nil
}

// RejectRequest 拒绝申请，只有接收者可操作
func (uc *UseCaseImpl) RejectRequest(ctx context.Context, requestID, actingUserID uint64) error {
	request, err := uc.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}

	if request.ReceiverID != actingUserID {
		return apperr.Forbidden("you are not authorized to reject this request")
	}
	if !request.IsPending() {
		return apperr.Newf(apperr.KindInvalidState, "request is not pending (current status: %s)", request.Status)
	}

	updated, err := uc.requestRepo.UpdateStatusIfPending(ctx, requestID, entity.RequestStatusRejected)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "update request status", err)
	}
	if !updated {
		return apperr.InvalidState("request is not pending")
	}

	zlog.C(ctx).Info("friend request rejected",
		zlog.Any("request_id", requestID),
		zlog.Any("acting_user_id", actingUserID))

	uc.publishEvent(ctx, "request_rejected", requestID, request.SenderID, request.ReceiverID, request.SenderID)
	return nil
}

// CancelRequest 取消申请，只有发送者可操作，整条删除，不留终态记录
func (uc *UseCaseImpl) CancelRequest(ctx context.Context, requestID, actingUserID uint64) error {
	request, err := uc.loadRequest(ctx, requestID)
	if err != nil {
		return err
	}

	if request.SenderID != actingUserID {
		return apperr.Forbidden("you are not authorized to cancel this request")
	}
	if !request.IsPending() {
		return apperr.InvalidState("cannot cancel a request that is not pending")
	}

	deleted, err := uc.requestRepo.DeleteIfPending(ctx, requestID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete request", err)
	}
	if !deleted {
		return apperr.InvalidState("cannot cancel a request that is not pending")
	}

	zlog.C(ctx).Info("friend request cancelled",
		zlog.Any("request_id", requestID),
		zlog.Any("sender_id", actingUserID))
	return nil
}

func (uc *UseCaseImpl) PendingReceived(ctx context.Context, userID uint64) ([]*entity.FriendRequest, error) {
	return uc.requestRepo.ListByReceiver(ctx, userID, entity.RequestStatusPending)
}

func (uc *UseCaseImpl) PendingSent(ctx context.Context, userID uint64) ([]*entity.FriendRequest, error) {
	return uc.requestRepo.ListBySender(ctx, userID, entity.RequestStatusPending)
}

func (uc *UseCaseImpl) CountPendingReceived(ctx context.Context, userID uint64) (int64, error) {
	return uc.requestRepo.CountByReceiver(ctx, userID, entity.RequestStatusPending)
}

// GetStatus 先查好友关系，再查待处理申请并按方向分类
func (uc *UseCaseImpl) GetStatus(ctx context.Context, currentUserID, otherUserID uint64) (entity.FriendshipStatus, error) {
	areFriends, err := uc.friendshipRepo.AreFriends(ctx, currentUserID, otherUserID)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "check friendship", err)
	}
	if areFriends {
		return entity.FriendshipStatusFriends, nil
	}

	request, err := uc.requestRepo.GetPendingBetween(ctx, currentUserID, otherUserID)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "check pending request", err)
	}
	if request != nil {
		if request.SenderID == currentUserID {
			return entity.FriendshipStatusRequestSent, nil
		}
		return entity.FriendshipStatusRequestReceived, nil
	}

	return entity.FriendshipStatusNotFriends, nil
}

func (uc *UseCaseImpl) ListFriends(ctx context.Context, userID uint64) ([]*entity.User, error) {
	if err := uc.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return uc.friendshipRepo.ListFriends(ctx, userID)
}

func (uc *UseCaseImpl) CountFriends(ctx context.Context, userID uint64) (int64, error) {
	return uc.friendshipRepo.CountFriends(ctx, userID)
}

func (uc *UseCaseImpl) AreFriends(ctx context.Context, userA, userB uint64) (bool, error) {
	return uc.friendshipRepo.AreFriends(ctx, userA, userB)
}

func (uc *UseCaseImpl) MutualFriends(ctx context.Context, userA, userB uint64) ([]*entity.User, error) {
	return uc.friendshipRepo.MutualFriends(ctx, userA, userB)
}

// SearchFriends 空串等价于列出全部好友
func (uc *UseCaseImpl) SearchFriends(ctx context.Context, userID uint64, term string) ([]*entity.User, error) {
	if term == "" {
		return uc.ListFriends(ctx, userID)
	}
	return uc.friendshipRepo.SearchFriends(ctx, userID, term)
}

// RemoveFriend 解除好友关系
func (uc *UseCaseImpl) RemoveFriend(ctx context.Context, userID, friendID uint64) error {
	if err := uc.requireUser(ctx, userID); err != nil {
		return err
	}
	if err := uc.requireUser(ctx, friendID); err != nil {
		return err
	}

	areFriends, err := uc.friendshipRepo.AreFriends(ctx, userID, friendID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "check friendship", err)
	}
	if !areFriends {
		return apperr.InvalidState("users are not friends")
	}

	if err := uc.friendshipRepo.DeleteByPair(ctx, userID, friendID); err != nil {
		return apperr.Wrap(apperr.KindInternal, "delete friendship", err)
	}

	zlog.C(ctx).Info("friendship removed",
		zlog.Any("user_id", userID),
		zlog.Any("friend_id", friendID))

	uc.publishEvent(ctx, "friendship_removed", 0, userID, friendID, friendID)
	return nil
}

// CleanupOldRejected 存储清理操作，幂等
func (uc *UseCaseImpl) CleanupOldRejected(ctx context.Context, maxAgeDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	n, err := uc.requestRepo.DeleteRejectedBefore(ctx, cutoff)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "cleanup rejected requests", err)
	}
	if n > 0 {
		zlog.C(ctx).Info("cleaned up rejected friend requests",
			zlog.Any("deleted", n),
			zlog.Int("max_age_days", maxAgeDays))
	}
	return n, nil
}

func (uc *UseCaseImpl) loadRequest(ctx context.Context, requestID uint64) (*entity.FriendRequest, error) {
	request, err := uc.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "get friend request", err)
	}
	if request == nil {
		return nil, apperr.Newf(apperr.KindNotFound, "friend request not found: %d", requestID)
	}
	return request, nil
}

func (uc *UseCaseImpl) requireUser(ctx context.Context, userID uint64) error {
	ok, err := uc.userRepo.Exists(ctx, userID)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "check user", err)
	}
	if !ok {
		return apperr.Newf(apperr.KindNotFound, "user not found: %d", userID)
	}
	return nil
}

// publishEvent 发布到事件总线，并把事件实时推给 notifyUserID（未操作的一方）
func (uc *UseCaseImpl) publishEvent(ctx context.Context, eventType string, requestID, senderID, receiverID, notifyUserID uint64) {
	event := &out.FriendEvent{
		Type:       eventType,
		RequestID:  requestID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Timestamp:  time.Now().Unix(),
	}
	if uc.eventPub != nil {
		if err := uc.eventPub.PublishFriendEvent(ctx, event); err != nil {
			zlog.C(ctx).Warn("publish friend event failed",
				zlog.String("type", eventType),
				zlog.Any("error", err))
		}
	}
	if uc.notifier != nil && notifyUserID != 0 {
		uc.notifier.NotifyFriendEvent(ctx, notifyUserID, event)
	}
}
