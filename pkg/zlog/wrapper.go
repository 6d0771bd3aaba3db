package zlog

import (
	"time"

	"go.uber.org/zap"
)

// Field 是 zap.Field 的别名，业务代码只 import zlog 即可
type Field = zap.Field

func String(key, val string) Field {
	return zap.String(key, val)
}

func Int(key string, val int) Field {
	return zap.Int(key, val)
}

func Uint64(key string, val uint64) Field {
	return zap.Uint64(key, val)
}

func Bool(key string, val bool) Field {
	return zap.Bool(key, val)
}

func Duration(key string, val time.Duration) Field {
	return zap.Duration(key, val)
}

func Err(err error) Field {
	return zap.Error(err)
}

func Any(key string, val interface{}) Field {
	return zap.Any(key, val)
}

func Debug(msg string, fields ...Field) {
	zap.L().Debug(msg, fields...)
}

func Info(msg string, fields ...Field) {
	zap.L().Info(msg, fields...)
}

func Warn(msg string, fields ...Field) {
	zap.L().Warn(msg, fields...)
}

func Error(msg string, fields ...Field) {
	zap.L().Error(msg, fields...)
}

func Sync() error {
	return zap.L().Sync()
}
