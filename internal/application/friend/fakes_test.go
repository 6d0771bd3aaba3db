package friend

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/malakchat/chatapp/internal/domain/entity"
	"github.com/malakchat/chatapp/internal/ports/out"
)

// 内存版仓储，语义对齐 MySQL 实现：规范序行、待处理唯一键、条件更新

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uint64]*entity.User
}

func newFakeUserRepo(ids ...uint64) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uint64]*entity.User)}
	for _, id := range ids {
		r.users[id] = &entity.User{ID: id, Username: "user" + strconv.FormatUint(id, 10)}
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	user.ID = uint64(len(r.users) + 1)
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uint64) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[id], nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Exists(_ context.Context, id uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.users[id]
	return ok, nil
}

type fakeFriendshipRepo struct {
	mu    sync.Mutex
	rows  map[[2]uint64]*entity.Friendship
	users *fakeUserRepo
}

func newFakeFriendshipRepo(users *fakeUserRepo) *fakeFriendshipRepo {
	return &fakeFriendshipRepo{rows: make(map[[2]uint64]*entity.Friendship), users: users}
}

func pairKey(a, b uint64) [2]uint64 {
	u1, u2 := entity.CanonicalPair(a, b)
	return [2]uint64{u1, u2}
}

func (r *fakeFriendshipRepo) Create(_ context.Context, f *entity.Friendship) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(f.User1ID, f.User2ID)
	if _, ok := r.rows[key]; ok {
		return gorm.ErrDuplicatedKey
	}
	cp := *f
	cp.ID = uint64(len(r.rows) + 1)
	r.rows[key] = &cp
	f.ID = cp.ID
	return nil
}

func (r *fakeFriendshipRepo) GetByPair(_ context.Context, a, b uint64) (*entity.Friendship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rows[pairKey(a, b)], nil
}

func (r *fakeFriendshipRepo) AreFriends(_ context.Context, a, b uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.rows[pairKey(a, b)]
	return ok, nil
}

func (r *fakeFriendshipRepo) DeleteByPair(_ context.Context, a, b uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, pairKey(a, b))
	return nil
}

func (r *fakeFriendshipRepo) ListFriendIDs(_ context.Context, userID uint64) ([]uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uint64
	for _, f := range r.rows {
		if f.Involves(userID) {
			ids = append(ids, f.OtherSide(userID))
		}
	}
	return ids, nil
}

func (r *fakeFriendshipRepo) ListFriends(ctx context.Context, userID uint64) ([]*entity.User, error) {
	ids, _ := r.ListFriendIDs(ctx, userID)
	friends := make([]*entity.User, 0, len(ids))
	for _, id := range ids {
		if u, _ := r.users.GetByID(ctx, id); u != nil {
			friends = append(friends, u)
		}
	}
	return friends, nil
}

func (r *fakeFriendshipRepo) CountFriends(ctx context.Context, userID uint64) (int64, error) {
	ids, _ := r.ListFriendIDs(ctx, userID)
	return int64(len(ids)), nil
}

func (r *fakeFriendshipRepo) MutualFriends(ctx context.Context, a, b uint64) ([]*entity.User, error) {
	idsA, _ := r.ListFriendIDs(ctx, a)
	idsB, _ := r.ListFriendIDs(ctx, b)
	inA := make(map[uint64]bool, len(idsA))
	for _, id := range idsA {
		inA[id] = true
	}
	var mutual []*entity.User
	for _, id := range idsB {
		if inA[id] && id != a && id != b {
			if u, _ := r.users.GetByID(ctx, id); u != nil {
				mutual = append(mutual, u)
			}
		}
	}
	return mutual, nil
}

func (r *fakeFriendshipRepo) SearchFriends(ctx context.Context, userID uint64, term string) ([]*entity.User, error) {
	all, _ := r.ListFriends(ctx, userID)
	var matched []*entity.User
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.Username), strings.ToLower(term)) {
			matched = append(matched, u)
		}
	}
	return matched, nil
}

type fakeRequestRepo struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*entity.FriendRequest
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{rows: make(map[uint64]*entity.FriendRequest)}
}

func (r *fakeRequestRepo) Create(_ context.Context, req *entity.FriendRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(req.SenderID, req.ReceiverID)
	for _, existing := range r.rows {
		if existing.IsPending() && pairKey(existing.SenderID, existing.ReceiverID) == key {
			return gorm.ErrDuplicatedKey
		}
	}
	r.nextID++
	req.ID = r.nextID
	cp := *req
	r.rows[req.ID] = &cp
	return nil
}

func (r *fakeRequestRepo) GetByID(_ context.Context, id uint64) (*entity.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *req
	return &cp, nil
}

func (r *fakeRequestRepo) GetPendingBetween(_ context.Context, a, b uint64) (*entity.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey(a, b)
	for _, req := range r.rows {
		if req.IsPending() && pairKey(req.SenderID, req.ReceiverID) == key {
			cp := *req
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRequestRepo) ListByReceiver(_ context.Context, userID uint64, status entity.RequestStatus) ([]*entity.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entity.FriendRequest
	for _, req := range r.rows {
		if req.ReceiverID == userID && req.Status == status {
			cp := *req
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *fakeRequestRepo) ListBySender(_ context.Context, userID uint64, status entity.RequestStatus) ([]*entity.FriendRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*entity.FriendRequest
	for _, req := range r.rows {
		if req.SenderID == userID && req.Status == status {
			cp := *req
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (r *fakeRequestRepo) CountByReceiver(ctx context.Context, userID uint64, status entity.RequestStatus) (int64, error) {
	list, _ := r.ListByReceiver(ctx, userID, status)
	return int64(len(list)), nil
}

func (r *fakeRequestRepo) UpdateStatusIfPending(_ context.Context, id uint64, status entity.RequestStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.rows[id]
	if !ok || !req.IsPending() {
		return false, nil
	}
	req.Status = status
	req.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeRequestRepo) DeleteIfPending(_ context.Context, id uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	req, ok := r.rows[id]
	if !ok || !req.IsPending() {
		return false, nil
	}
	delete(r.rows, id)
	return true, nil
}

func (r *fakeRequestRepo) DeleteRejectedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, req := range r.rows {
		if req.Status == entity.RequestStatusRejected && req.UpdatedAt.Before(cutoff) {
			delete(r.rows, id)
			n++
		}
	}
	return n, nil
}

type fakeEventPublisher struct {
	mu     sync.Mutex
	events []*out.FriendEvent
}

func (p *fakeEventPublisher) PublishFriendEvent(_ context.Context, event *out.FriendEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *fakeEventPublisher) Close() error { return nil }

func (p *fakeEventPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.Type
	}
	return types
}

type pushedEvent struct {
	target uint64
	event  *out.FriendEvent
}

type fakeEventNotifier struct {
	mu     sync.Mutex
	pushed []pushedEvent
}

func (n *fakeEventNotifier) NotifyFriendEvent(_ context.Context, targetUserID uint64, event *out.FriendEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pushed = append(n.pushed, pushedEvent{target: targetUserID, event: event})
}

func (n *fakeEventNotifier) all() []pushedEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]pushedEvent(nil), n.pushed...)
}
