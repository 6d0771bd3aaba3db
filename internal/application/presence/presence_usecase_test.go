package presence

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/malakchat/chatapp/internal/application/notify"
	"github.com/malakchat/chatapp/internal/domain/entity"
)

// stubFriendshipRepo 只需要 ListFriendIDs，其余方法不会被扇出触达
type stubFriendshipRepo struct {
	friends map[uint64][]uint64
}

func (s *stubFriendshipRepo) ListFriendIDs(_ context.Context, userID uint64) ([]uint64, error) {
	return s.friends[userID], nil
}

func (s *stubFriendshipRepo) Create(context.Context, *entity.Friendship) error { return nil }
func (s *stubFriendshipRepo) GetByPair(context.Context, uint64, uint64) (*entity.Friendship, error) {
	return nil, nil
}
func (s *stubFriendshipRepo) AreFriends(context.Context, uint64, uint64) (bool, error) {
	return false, nil
}
func (s *stubFriendshipRepo) DeleteByPair(context.Context, uint64, uint64) error { return nil }
func (s *stubFriendshipRepo) ListFriends(context.Context, uint64) ([]*entity.User, error) {
	return nil, nil
}
func (s *stubFriendshipRepo) CountFriends(context.Context, uint64) (int64, error) { return 0, nil }
func (s *stubFriendshipRepo) MutualFriends(context.Context, uint64, uint64) ([]*entity.User, error) {
	return nil, nil
}
func (s *stubFriendshipRepo) SearchFriends(context.Context, uint64, string) ([]*entity.User, error) {
	return nil, nil
}

type delivery struct {
	target  uint64
	channel string
	payload any
}

type captureNotifier struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (n *captureNotifier) Deliver(target uint64, channel string, payload any) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deliveries = append(n.deliveries, delivery{target, channel, payload})
	return nil
}

func (n *captureNotifier) all() []delivery {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]delivery(nil), n.deliveries...)
}

func newPresenceFixture(friends map[uint64][]uint64) (*UseCaseImpl, *Registry, *captureNotifier) {
	registry := NewRegistry()
	notifier := &captureNotifier{}
	fanout := notify.NewFanout(&stubFriendshipRepo{friends: friends}, registry, notifier)
	return NewUseCase(registry, fanout), registry, notifier
}

func TestConnectNotifiesOnlineFriends(t *testing.T) {
	ctx := context.Background()
	uc, registry, notifier := newPresenceFixture(map[uint64][]uint64{
		3: {4, 5},
	})

	// Friend 4 is online, friend 5 is not
	registry.Connect(4, "s4")

	uc.Connect(ctx, 3, "s3")

	got := notifier.all()
	require.Len(t, got, 1)
	assert.Equal(t, uint64(4), got[0].target)
	assert.Equal(t, "status", got[0].channel)

	event := got[0].payload.(*entity.PresenceEvent)
	assert.Equal(t, uint64(3), event.UserID)
	assert.Equal(t, entity.PresenceStatusOnline, event.Status)
	assert.Nil(t, event.LastSeen)
}

func TestDisconnectNotifiesWithLastSeen(t *testing.T) {
	ctx := context.Background()
	uc, registry, notifier := newPresenceFixture(map[uint64][]uint64{
		3: {4},
	})

	registry.Connect(4, "s4")
	uc.Connect(ctx, 3, "s3")
	uc.Disconnect(ctx, 3, "s3")

	got := notifier.all()
	require.Len(t, got, 2)

	offline := got[1].payload.(*entity.PresenceEvent)
	assert.Equal(t, uint64(3), offline.UserID)
	assert.Equal(t, entity.PresenceStatusOffline, offline.Status)
	require.NotNil(t, offline.LastSeen)
}

func TestStaleDisconnectEmitsNothing(t *testing.T) {
	ctx := context.Background()
	uc, registry, notifier := newPresenceFixture(map[uint64][]uint64{
		3: {4},
	})
	registry.Connect(4, "s4")

	uc.Connect(ctx, 3, "first")
	uc.Connect(ctx, 3, "second")
	before := len(notifier.all())

	// The first connection's teardown arrives after the reconnect
	uc.Disconnect(ctx, 3, "first")

	assert.True(t, uc.IsOnline(3))
	assert.Len(t, notifier.all(), before, "no OFFLINE event for a superseded session")
}

func TestGetStatus(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newPresenceFixture(nil)

	st, err := uc.GetStatus(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, entity.PresenceStatusOffline, st.Status)
	assert.Nil(t, st.LastSeen, "never-seen user has no lastSeen")

	uc.Connect(ctx, 7, "s7")
	st, err = uc.GetStatus(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, entity.PresenceStatusOnline, st.Status)
	assert.Nil(t, st.LastSeen, "online status carries no lastSeen")

	uc.Disconnect(ctx, 7, "s7")
	st, err = uc.GetStatus(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, entity.PresenceStatusOffline, st.Status)
	assert.NotNil(t, st.LastSeen)
}
