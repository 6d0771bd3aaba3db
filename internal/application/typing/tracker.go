package typing

import (
	"context"
	"sync"
	"time"

	"github.com/malakchat/chatapp/internal/application/notify"
	"github.com/malakchat/chatapp/internal/domain/entity"
	"github.com/malakchat/chatapp/internal/ports/in"
	"github.com/malakchat/chatapp/pkg/zlog"
)

const (
	// DefaultTTL 登记有效期，超时未续期视为停止输入
	DefaultTTL = 5 * time.Second
	// DefaultSweepPeriod 过期清扫周期
	DefaultSweepPeriod = 3 * time.Second
)

// Tracker 正在输入状态的时限注册表
// 进程内状态，显式构造、随进程关停；(输入者, 接收者) 级别的锁
// 保证清扫与续期竞争时不会误删刚刷新的登记
type Tracker struct {
	ttl         time.Duration
	sweepPeriod time.Duration
	fanout      *notify.Fanout

	entries sync.Map // entity.TypingKey -> *typingEntry

	stop chan struct{}
	done chan struct{}
}

type typingEntry struct {
	mu        sync.Mutex
	expiresAt time.Time
	removed   bool // 已从注册表摘除，持有者不得再续期
}

var _ in.TypingUseCase = (*Tracker)(nil)

func NewTracker(ttl, sweepPeriod time.Duration, fanout *notify.Fanout) *Tracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepPeriod <= 0 {
		sweepPeriod = DefaultSweepPeriod
	}
	return &Tracker{
		ttl:         ttl,
		sweepPeriod: sweepPeriod,
		fanout:      fanout,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start 启动周期清扫
func (t *Tracker) Start() {
	go t.sweepLoop()
}

// Stop 停止清扫并等待退出
func (t *Tracker) Stop() {
	close(t.stop)
	<-t.done
}

// StartTyping 登记/续期并向接收者扇出 typing=true
// 不去重：已在输入中也重新扇出，维持对端 UI 的倒计时
func (t *Tracker) StartTyping(ctx context.Context, userID, recipientID uint64) {
	key := entity.TypingKey{UserID: userID, RecipientID: recipientID}

	for {
		v, _ := t.entries.LoadOrStore(key, &typingEntry{})
		e := v.(*typingEntry)
		e.mu.Lock()
		if e.removed {
			// 拿到的是正被清扫摘除的旧条目，换新条目重试
			e.mu.Unlock()
			t.entries.Delete(key)
			continue
		}
		e.expiresAt = time.Now().Add(t.ttl)
		e.mu.Unlock()
		break
	}

	zlog.C(ctx).Debug("typing started",
		zlog.Any("user_id", userID),
		zlog.Any("recipient_id", recipientID))

	t.fanout.NotifyTyping(ctx, userID, recipientID, true)
}

// StopTyping 移除登记并扇出 typing=false；登记不存在时同样扇出，幂等
func (t *Tracker) StopTyping(ctx context.Context, userID, recipientID uint64) {
	key := entity.TypingKey{UserID: userID, RecipientID: recipientID}

	if v, ok := t.entries.Load(key); ok {
		e := v.(*typingEntry)
		e.mu.Lock()
		if !e.removed {
			e.removed = true
			t.entries.Delete(key)
		}
		e.mu.Unlock()
	}

	zlog.C(ctx).Debug("typing stopped",
		zlog.Any("user_id", userID),
		zlog.Any("recipient_id", recipientID))

	t.fanout.NotifyTyping(ctx, userID, recipientID, false)
}

// IsTyping 登记存在且未过期，惰性检查，不在这里清除
func (t *Tracker) IsTyping(userID, recipientID uint64) bool {
	key := entity.TypingKey{UserID: userID, RecipientID: recipientID}
	v, ok := t.entries.Load(key)
	if !ok {
		return false
	}
	e := v.(*typingEntry)
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.removed && e.expiresAt.After(time.Now())
}

func (t *Tracker) sweepLoop() {
	defer close(t.done)

	ticker := time.NewTicker(t.sweepPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.sweep()
		case <-t.stop:
			return
		}
	}
}

// sweep 摘除所有已过期的登记，并替输入者补发 typing=false
// 摘除前在条目锁内复核过期时间，避免删掉快照后刚续期的登记
func (t *Tracker) sweep() {
	ctx := context.Background()
	now := time.Now()

	t.entries.Range(func(k, v any) bool {
		key := k.(entity.TypingKey)
		e := v.(*typingEntry)

		e.mu.Lock()
		expired := !e.removed && !e.expiresAt.After(now)
		if expired {
			e.removed = true
			t.entries.Delete(key)
		}
		e.mu.Unlock()

		if expired {
			zlog.Debug("typing auto-expired",
				zlog.Any("user_id", key.UserID),
				zlog.Any("recipient_id", key.RecipientID))
			t.fanout.NotifyTyping(ctx, key.UserID, key.RecipientID, false)
		}
		return true
	})
}
