package zlog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContextFallsBackToGlobal(t *testing.T) {
	assert.Same(t, zap.L(), FromContext(context.Background()))
	assert.Same(t, zap.L(), FromContext(nil))
}

func TestWithContextRoundTrip(t *testing.T) {
	l := zap.NewNop()
	ctx := WithContext(context.Background(), l)
	assert.Same(t, l, FromContext(ctx))
	assert.Same(t, l, C(ctx))
}

func TestWithAppendsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	ctx := WithContext(context.Background(), zap.New(core))

	ctx = With(ctx, String("request_id", "r-1"))
	C(ctx).Info("hello")

	entries := logs.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "r-1", entries[0].ContextMap()["request_id"])
}
