package presence

import (
	"sync"
	"time"
)

// Registry 进程内在线用户注册表
// 显式构造、随进程关停，不做持久化：进程重启后所有人离线本身就是正确语义
//
// 并发约定：不同用户互不阻塞；同一用户的 connect/disconnect 通过
// 每用户条目自带的锁线性化，会话令牌最后写入者生效
type Registry struct {
	entries sync.Map // userID -> *userEntry
}

type userEntry struct {
	mu       sync.Mutex
	session  string // 空串表示离线
	lastSeen time.Time
	seen     bool
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) entry(userID uint64) *userEntry {
	if e, ok := r.entries.Load(userID); ok {
		return e.(*userEntry)
	}
	e, _ := r.entries.LoadOrStore(userID, &userEntry{})
	return e.(*userEntry)
}

// Connect 登记会话并刷新 lastSeen，返回登记前是否在线
func (r *Registry) Connect(userID uint64, sessionToken string) (wasOnline bool) {
	e := r.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	wasOnline = e.session != ""
	e.session = sessionToken
	e.lastSeen = time.Now()
	e.seen = true
	return wasOnline
}

// Disconnect 仅当 sessionToken 仍是当前会话时移除映射并刷新 lastSeen，
// 返回是否真的下线。旧连接的迟到断开遇到新会话时是无操作，
// 保证重连竞态不会把已重连的用户标成离线
func (r *Registry) Disconnect(userID uint64, sessionToken string) (wentOffline bool) {
	v, ok := r.entries.Load(userID)
	if !ok {
		return false
	}
	e := v.(*userEntry)
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == "" || e.session != sessionToken {
		return false
	}
	e.session = ""
	e.lastSeen = time.Now()
	return true
}

// IsOnline 是否在线
func (r *Registry) IsOnline(userID uint64) bool {
	v, ok := r.entries.Load(userID)
	if !ok {
		return false
	}
	e := v.(*userEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != ""
}

// LastSeen 最近一次在线时间，从未出现过返回 nil
func (r *Registry) LastSeen(userID uint64) *time.Time {
	v, ok := r.entries.Load(userID)
	if !ok {
		return nil
	}
	e := v.(*userEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.seen {
		return nil
	}
	t := e.lastSeen
	return &t
}

// ListOnline 当前在线的用户 id 集合
func (r *Registry) ListOnline() []uint64 {
	ids := make([]uint64, 0)
	r.entries.Range(func(k, v any) bool {
		e := v.(*userEntry)
		e.mu.Lock()
		online := e.session != ""
		e.mu.Unlock()
		if online {
			ids = append(ids, k.(uint64))
		}
		return true
	})
	return ids
}

// OnlineCount 在线人数
func (r *Registry) OnlineCount() int {
	return len(r.ListOnline())
}
