package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("x")))
	assert.Equal(t, KindForbidden, KindOf(Forbidden("x")))
	assert.Equal(t, KindInvalidState, KindOf(InvalidState("x")))
	assert.Equal(t, KindInvalidOperation, KindOf(InvalidOperation("x")))
	assert.Equal(t, KindConflict, KindOf(Conflict("x")))

	// Plain errors fall back to INTERNAL
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindInternal, KindOf(nil))
}

func TestIsKind(t *testing.T) {
	err := Conflict("users are already friends")
	assert.True(t, IsKind(err, KindConflict))
	assert.False(t, IsKind(err, KindNotFound))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("driver: bad connection")
	err := Wrap(KindInternal, "create friendship", cause)

	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "create friendship")
	assert.Contains(t, err.Error(), "bad connection")
}

func TestKindSurvivesWrapping(t *testing.T) {
	inner := NotFound("user not found: 7")
	outer := fmt.Errorf("handling request: %w", inner)

	var e *Error
	require.True(t, errors.As(outer, &e))
	assert.Equal(t, KindNotFound, e.Kind)
}

func TestNewf(t *testing.T) {
	err := Newf(KindNotFound, "user not found: %d", 42)
	assert.Equal(t, "user not found: 42", err.Error())
	assert.True(t, IsKind(err, KindNotFound))
}
