package friend

import (
	"context"
	"time"

	"github.com/malakchat/chatapp/internal/ports/in"
	"github.com/malakchat/chatapp/pkg/zlog"
)

const (
	// DefaultCleanupPeriod 默认每天清理一次
	DefaultCleanupPeriod = 24 * time.Hour

	// DefaultRejectedMaxAgeDays REJECTED 申请默认保留天数
	DefaultRejectedMaxAgeDays = 30
)

// CleanupJob 周期性删除过期 REJECTED 申请的后台任务
// 与输入状态清扫互相独立，周期相差数个量级，失败互不影响
type CleanupJob struct {
	uc         in.FriendUseCase
	period     time.Duration
	maxAgeDays int
	stop       chan struct{}
	done       chan struct{}
}

func NewCleanupJob(uc in.FriendUseCase, period time.Duration, maxAgeDays int) *CleanupJob {
	if period <= 0 {
		period = DefaultCleanupPeriod
	}
	if maxAgeDays <= 0 {
		maxAgeDays = DefaultRejectedMaxAgeDays
	}
	return &CleanupJob{
		uc:         uc,
		period:     period,
		maxAgeDays: maxAgeDays,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start 启动后台循环
func (j *CleanupJob) Start() {
	go j.run()
}

// Stop 停止并等待循环退出
func (j *CleanupJob) Stop() {
	close(j.stop)
	<-j.done
}

func (j *CleanupJob) run() {
	defer close(j.done)

	ticker := time.NewTicker(j.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			if _, err := j.uc.CleanupOldRejected(ctx, j.maxAgeDays); err != nil {
				zlog.Warn("rejected request cleanup failed", zlog.Any("error", err))
			}
			cancel()
		case <-j.stop:
			return
		}
	}
}
