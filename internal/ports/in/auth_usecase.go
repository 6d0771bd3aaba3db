package in

import (
	"context"

	"github.com/malakchat/chatapp/internal/domain/entity"
)

// LoginResult 登录结果
type LoginResult struct {
	UserID      uint64 `json:"user_id"`
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
}

// AuthUseCase 注册登录薄层，身份目录的具体化
type AuthUseCase interface {
	// Register 注册用户，用户名冲突 -> Conflict
	Register(ctx context.Context, username, password string) (*entity.User, error)

	// Login 校验口令并签发访问令牌
	Login(ctx context.Context, username, password string) (*LoginResult, error)

	// ResolveToken 从令牌解析出用户 id，令牌无效或用户不存在 -> NotFound
	ResolveToken(ctx context.Context, token string) (uint64, error)
}
