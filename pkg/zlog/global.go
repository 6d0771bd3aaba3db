package zlog

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
)

var sighupOnce sync.Once

// MustInitGlobal 创建 logger 并替换 zap 全局实例，返回该实例
func MustInitGlobal(cfg Config) *zap.Logger {
	l, err := New(cfg, zap.AddCallerSkip(1))
	if err != nil {
		panic(err)
	}
	zap.ReplaceGlobals(l)
	watchSIGHUP()
	return l
}

// watchSIGHUP 收到 SIGHUP 切到 debug，再收到时恢复之前的级别
func watchSIGHUP() {
	sighupOnce.Do(func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGHUP)
		go func() {
			prev := ""
			for range c {
				if prev == "" {
					prev = GetLevel()
					SetLevel("debug")
				} else {
					SetLevel(prev)
					prev = ""
				}
				zap.L().Info("log level toggled", zap.String("now", GetLevel()))
			}
		}()
	})
}
