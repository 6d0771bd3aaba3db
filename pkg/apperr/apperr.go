package apperr

import (
	"errors"
	"fmt"
)

// Kind 业务错误类别，对外稳定，表示层据此映射状态码
type Kind string

const (
	KindNotFound         Kind = "NOT_FOUND"         // 引用的用户或申请不存在
	KindForbidden        Kind = "FORBIDDEN"         // 操作者无权处理目标记录
	KindInvalidState     Kind = "INVALID_STATE"     // 当前生命周期状态下不允许该操作
	KindInvalidOperation Kind = "INVALID_OPERATION" // 请求本身不成立，如添加自己为好友
	KindConflict         Kind = "CONFLICT"          // 违反唯一性约束
	KindInternal         Kind = "INTERNAL"          // 内部错误，不属于五类可恢复错误
)

// Error 携带类别的业务错误
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is 让 errors.Is 能按类别匹配哨兵值
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Message == "" || t.Message == e.Message)
}

func New(kind Kind, message string) error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, message string, cause error) error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func NotFound(message string) error         { return New(KindNotFound, message) }
func Forbidden(message string) error        { return New(KindForbidden, message) }
func InvalidState(message string) error     { return New(KindInvalidState, message) }
func InvalidOperation(message string) error { return New(KindInvalidOperation, message) }
func Conflict(message string) error         { return New(KindConflict, message) }

// KindOf 取出错误类别，普通错误归为 INTERNAL
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind 判断错误是否属于某一类别
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
