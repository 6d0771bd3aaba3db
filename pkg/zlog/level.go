package zlog

import (
	"net/http"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var dynamicLevel zap.AtomicLevel // 全局可变级别
var levelName atomic.Value       // 字符串形式

func initLevel(lvl string) {
	levelName.Store(lvl)
	dynamicLevel = zap.NewAtomicLevelAt(parseLevel(lvl))
}

func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(lvl) {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// SetLevel 热更新日志级别
func SetLevel(lvl string) {
	dynamicLevel.SetLevel(parseLevel(lvl))
	levelName.Store(lvl)
}

// GetLevel 返回当前级别字符串
func GetLevel() string {
	if v, ok := levelName.Load().(string); ok {
		return v
	}
	return "info"
}

// LevelHTTPHandler 注册到 /log/level（PUT ?v=debug|info|warn|error）
func LevelHTTPHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			lvl := r.URL.Query().Get("v")
			if lvl == "" {
				lvl = r.FormValue("v")
			}
			SetLevel(lvl)
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
			return
		}
		_, _ = w.Write([]byte(GetLevel()))
	}
}
