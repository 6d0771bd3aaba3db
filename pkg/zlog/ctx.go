package zlog

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// WithContext 把 logger 放进 ctx，覆盖已有的
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	if l == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, l)
}

// With 在 ctx 已携带的 logger 上追加字段，返回带新 logger 的 ctx
func With(ctx context.Context, fields ...Field) context.Context {
	return WithContext(ctx, FromContext(ctx).With(fields...))
}

// FromContext 取出 ctx 携带的 logger，取不到时退回 zap 全局实例
func FromContext(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return zap.L()
	}
	l, _ := ctx.Value(ctxKey{}).(*zap.Logger)
	if l == nil {
		return zap.L()
	}
	return l
}

// C 是 FromContext 的简写，业务层常用
func C(ctx context.Context) *zap.Logger { return FromContext(ctx) }
