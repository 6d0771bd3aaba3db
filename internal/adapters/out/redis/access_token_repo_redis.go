package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/malakchat/chatapp/internal/ports/out"
)

// AccessTokenRepoRedis 访问令牌白名单，jti 为键，TTL 与令牌同寿命
type AccessTokenRepoRedis struct {
	client *redis.Client
}

var _ out.AccessTokenRepository = (*AccessTokenRepoRedis)(nil)

func NewAccessTokenRepoRedis(client *redis.Client) *AccessTokenRepoRedis {
	return &AccessTokenRepoRedis{client: client}
}

func tokenKey(jti string) string {
	return fmt.Sprintf("access_token:%s", jti)
}

func (r *AccessTokenRepoRedis) Save(ctx context.Context, jti string, userID uint64, ttl time.Duration) error {
	return r.client.Set(ctx, tokenKey(jti), strconv.FormatUint(userID, 10), ttl).Err()
}

func (r *AccessTokenRepoRedis) Exists(ctx context.Context, jti string) (bool, error) {
	_, err := r.client.Get(ctx, tokenKey(jti)).Result()
	if err == redis.Nil {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("读取令牌失败: %w", err)
	}
	return true, nil
}

func (r *AccessTokenRepoRedis) Delete(ctx context.Context, jti string) error {
	return r.client.Del(ctx, tokenKey(jti)).Err()
}
