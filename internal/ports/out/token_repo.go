package out

import (
	"context"
	"time"
)

// AccessTokenRepository 访问令牌白名单，登录写入，注销删除
type AccessTokenRepository interface {
	// Save 保存令牌 jti 与用户的映射
	Save(ctx context.Context, jti string, userID uint64, ttl time.Duration) error

	// Exists 检查 jti 是否仍有效
	Exists(ctx context.Context, jti string) (bool, error)

	// Delete 撤销令牌
	Delete(ctx context.Context, jti string) error
}
