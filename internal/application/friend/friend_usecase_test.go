package friend

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malakchat/chatapp/internal/domain/entity"
	"github.com/malakchat/chatapp/pkg/apperr"
)

type fixture struct {
	uc       *UseCaseImpl
	users    *fakeUserRepo
	friends  *fakeFriendshipRepo
	requests *fakeRequestRepo
	events   *fakeEventPublisher
	notified *fakeEventNotifier
}

func newFixture(userIDs ...uint64) *fixture {
	users := newFakeUserRepo(userIDs...)
	friends := newFakeFriendshipRepo(users)
	requests := newFakeRequestRepo()
	events := &fakeEventPublisher{}
	notified := &fakeEventNotifier{}
	return &fixture{
		uc:       NewUseCase(requests, friends, users, events, notified),
		users:    users,
		friends:  friends,
		requests: requests,
		events:   events,
		notified: notified,
	}
}

func TestSendRequest(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2)

	req, err := fx.uc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	assert.NotZero(t, req.ID)
	assert.Equal(t, uint64(1), req.SenderID)
	assert.Equal(t, uint64(2), req.ReceiverID)
	assert.Equal(t, entity.RequestStatusPending, req.Status)
	assert.Equal(t, []string{"request_created"}, fx.events.types())
}

func TestSendRequestToSelf(t *testing.T) {
	fx := newFixture(1)

	_, err := fx.uc.SendRequest(context.Background(), 1, 1)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidOperation))
}

func TestSendRequestUnknownUser(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1)

	_, err := fx.uc.SendRequest(ctx, 1, 99)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	_, err = fx.uc.SendRequest(ctx, 99, 1)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestSendRequestAlreadyFriends(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2)
	require.NoError(t, fx.friends.Create(ctx, entity.NewFriendship(1, 2)))

	_, err := fx.uc.SendRequest(ctx, 1, 2)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Contains(t, err.Error(), "already friends")
}

func TestSendRequestDuplicatePending(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2)

	_, err := fx.uc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	// Same direction: plain duplicate
	_, err = fx.uc.SendRequest(ctx, 1, 2)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Contains(t, err.Error(), "already sent and pending")

	// Opposite direction: the caller should accept instead
	_, err = fx.uc.SendRequest(ctx, 2, 1)
	require.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Contains(t, err.Error(), "accept it instead")
}

func TestSendRequestConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.uc.SendRequest(ctx, 1, 2)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperr.IsKind(err, apperr.KindConflict))
		}
	}
	assert.Equal(t, 1, succeeded)
}

func TestAcceptRequest(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(5, 9)

	req, err := fx.uc.SendRequest(ctx, 9, 5)
	require.NoError(t, err)

	require.NoError(t, fx.uc.AcceptRequest(ctx, req.ID, 5))

	stored, err := fx.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusAccepted, stored.Status)

	// Friendship row is stored in canonical order regardless of direction
	f, err := fx.friends.GetByPair(ctx, 9, 5)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, uint64(5), f.User1ID)
	assert.Equal(t, uint64(9), f.User2ID)

	assert.Equal(t, []string{"request_created", "request_accepted"}, fx.events.types())
}

func TestAcceptRequestNotReceiver(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2, 3)

	req, err := fx.uc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	// The sender cannot accept their own request, nor can a third party
	assert.True(t, apperr.IsKind(fx.uc.AcceptRequest(ctx, req.ID, 1), apperr.KindForbidden))
	assert.True(t, apperr.IsKind(fx.uc.AcceptRequest(ctx, req.ID, 3), apperr.KindForbidden))
}

func TestAcceptRequestNotPending(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2)

	req, err := fx.uc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	require.NoError(t, fx.uc.AcceptRequest(ctx, req.ID, 2))

	err = fx.uc.AcceptRequest(ctx, req.ID, 2)
	require.True(t, apperr.IsKind(err, apperr.KindInvalidState))
	assert.Contains(t, err.Error(), "ACCEPTED")
}

func TestAcceptRequestNotFound(t *testing.T) {
	fx := newFixture(1)
	err := fx.uc.AcceptRequest(context.Background(), 404, 1)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestAcceptRequestConcurrentSingleWinner(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2)

	req, err := fx.uc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = fx.uc.AcceptRequest(ctx, req.ID, 2)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
		}
	}
	assert.Equal(t, 1, succeeded)

	ok, err := fx.friends.AreFriends(ctx, 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRejectRequest(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2)

	req, err := fx.uc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	require.NoError(t, fx.uc.RejectRequest(ctx, req.ID, 2))

	stored, err := fx.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RequestStatusRejected, stored.Status)

	// No friendship was created
	ok, err := fx.friends.AreFriends(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	// A terminal request no longer blocks a fresh one in either direction
	_, err = fx.uc.SendRequest(ctx, 2, 1)
	assert.NoError(t, err)
}

func TestRejectRequestNotReceiver(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2)

	req, err := fx.uc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	assert.True(t, apperr.IsKind(fx.uc.RejectRequest(ctx, req.ID, 1), apperr.KindForbidden))
}

func TestCancelRequest(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2)

	req, err := fx.uc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	require.NoError(t, fx.uc.CancelRequest(ctx, req.ID, 1))

	stored, err := fx.requests.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Nil(t, stored, "cancelled request is deleted, not kept in a terminal state")
}

func TestCancelRequestNotSender(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2)

	req, err := fx.uc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	assert.True(t, apperr.IsKind(fx.uc.CancelRequest(ctx, req.ID, 2), apperr.KindForbidden))
}

func TestCancelRequestAlreadyAccepted(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2)

	req, err := fx.uc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	require.NoError(t, fx.uc.AcceptRequest(ctx, req.ID, 2))

	err = fx.uc.CancelRequest(ctx, req.ID, 1)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestGetStatus(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2, 3)

	status, err := fx.uc.GetStatus(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, entity.FriendshipStatusNotFriends, status)

	req, err := fx.uc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)

	status, err = fx.uc.GetStatus(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, entity.FriendshipStatusRequestSent, status)

	// Same pending request seen from the other side
	status, err = fx.uc.GetStatus(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, entity.FriendshipStatusRequestReceived, status)

	require.NoError(t, fx.uc.AcceptRequest(ctx, req.ID, 2))

	status, err = fx.uc.GetStatus(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, entity.FriendshipStatusFriends, status)

	status, err = fx.uc.GetStatus(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, entity.FriendshipStatusNotFriends, status)
}

func TestPendingLists(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2, 3)

	_, err := fx.uc.SendRequest(ctx, 1, 3)
	require.NoError(t, err)
	_, err = fx.uc.SendRequest(ctx, 2, 3)
	require.NoError(t, err)

	received, err := fx.uc.PendingReceived(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, received, 2)

	sent, err := fx.uc.PendingSent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, sent, 1)
	assert.Equal(t, uint64(3), sent[0].ReceiverID)

	count, err := fx.uc.CountPendingReceived(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRemoveFriend(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2)
	require.NoError(t, fx.friends.Create(ctx, entity.NewFriendship(1, 2)))

	require.NoError(t, fx.uc.RemoveFriend(ctx, 2, 1))

	ok, err := fx.friends.AreFriends(ctx, 1, 2)
	require.NoError(t, err)
	assert.False(t, ok)

	// After unfriending a fresh request cycle works again
	_, err = fx.uc.SendRequest(ctx, 1, 2)
	assert.NoError(t, err)
}

func TestRemoveFriendNotFriends(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2)

	err := fx.uc.RemoveFriend(ctx, 1, 2)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidState))
}

func TestRemoveFriendUnknownUser(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1)

	err := fx.uc.RemoveFriend(ctx, 1, 99)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestListAndSearchFriends(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2, 3)
	require.NoError(t, fx.friends.Create(ctx, entity.NewFriendship(1, 2)))
	require.NoError(t, fx.friends.Create(ctx, entity.NewFriendship(1, 3)))

	friends, err := fx.uc.ListFriends(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, friends, 2)

	count, err := fx.uc.CountFriends(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	matched, err := fx.uc.SearchFriends(ctx, 1, "USER2")
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, uint64(2), matched[0].ID)

	// Empty term behaves like a plain listing
	all, err := fx.uc.SearchFriends(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = fx.uc.ListFriends(ctx, 99)
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}

func TestMutualFriends(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2, 3, 4)
	require.NoError(t, fx.friends.Create(ctx, entity.NewFriendship(1, 3)))
	require.NoError(t, fx.friends.Create(ctx, entity.NewFriendship(2, 3)))
	require.NoError(t, fx.friends.Create(ctx, entity.NewFriendship(1, 4)))

	mutual, err := fx.uc.MutualFriends(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, mutual, 1)
	assert.Equal(t, uint64(3), mutual[0].ID)
}

func TestCleanupOldRejected(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2, 3)

	old, err := fx.uc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	require.NoError(t, fx.uc.RejectRequest(ctx, old.ID, 2))

	// Age the rejected row past the cutoff
	fx.requests.mu.Lock()
	fx.requests.rows[old.ID].UpdatedAt = time.Now().AddDate(0, 0, -45)
	fx.requests.mu.Unlock()

	fresh, err := fx.uc.SendRequest(ctx, 1, 3)
	require.NoError(t, err)

	n, err := fx.uc.CleanupOldRejected(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	gone, err := fx.requests.GetByID(ctx, old.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	kept, err := fx.requests.GetByID(ctx, fresh.ID)
	require.NoError(t, err)
	require.NotNil(t, kept)
	assert.Equal(t, entity.RequestStatusPending, kept.Status)
}

func TestNilEventPublisher(t *testing.T) {
	ctx := context.Background()
	users := newFakeUserRepo(1, 2)
	uc := NewUseCase(newFakeRequestRepo(), newFakeFriendshipRepo(users), users, nil, nil)

	req, err := uc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	assert.NoError(t, uc.AcceptRequest(ctx, req.ID, 2))
}

// 生命周期事件实时推给未操作的一方
func TestFriendEventsPushedToOtherParty(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(1, 2)

	req, err := fx.uc.SendRequest(ctx, 1, 2)
	require.NoError(t, err)
	require.NoError(t, fx.uc.AcceptRequest(ctx, req.ID, 2))
	require.NoError(t, fx.uc.RemoveFriend(ctx, 2, 1))

	pushed := fx.notified.all()
	require.Len(t, pushed, 3)

	assert.Equal(t, "request_created", pushed[0].event.Type)
	assert.Equal(t, uint64(2), pushed[0].target, "incoming request goes to the receiver")

	assert.Equal(t, "request_accepted", pushed[1].event.Type)
	assert.Equal(t, uint64(1), pushed[1].target, "acceptance goes back to the sender")

	assert.Equal(t, "friendship_removed", pushed[2].event.Type)
	assert.Equal(t, uint64(1), pushed[2].target)

	// 拒绝同样推回发送者
	req2, err := fx.uc.SendRequest(ctx, 2, 1)
	require.NoError(t, err)
	require.NoError(t, fx.uc.RejectRequest(ctx, req2.ID, 1))

	pushed = fx.notified.all()
	require.Len(t, pushed, 5)
	assert.Equal(t, "request_rejected", pushed[4].event.Type)
	assert.Equal(t, uint64(2), pushed[4].target)
}
