package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/malakchat/chatapp/internal/domain/entity"
	"github.com/malakchat/chatapp/internal/ports/in"
	"github.com/malakchat/chatapp/internal/ports/out"
	"github.com/malakchat/chatapp/pkg/apperr"
	"github.com/malakchat/chatapp/pkg/jwt"
	"github.com/malakchat/chatapp/pkg/zlog"
)

// UseCaseImpl 注册登录薄层，令牌白名单放 redis
type UseCaseImpl struct {
	userRepo  out.UserRepository
	tokenRepo out.AccessTokenRepository
	jwtMgr    jwt.Manager
	tokenTTL  time.Duration
}

var _ in.AuthUseCase = (*UseCaseImpl)(nil)

func NewUseCase(
	userRepo out.UserRepository,
	tokenRepo out.AccessTokenRepository,
	jwtMgr jwt.Manager,
	tokenTTL time.Duration,
) *UseCaseImpl {
	return &UseCaseImpl{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		jwtMgr:    jwtMgr,
		tokenTTL:  tokenTTL,
	}
}

// Register 注册用户
func (uc *UseCaseImpl) Register(ctx context.Context, username, password string) (*entity.User, error) {
	if username == "" || len(password) < 6 {
		return nil, apperr.InvalidOperation("username required and password must be at least 6 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "hash password", err)
	}

	user := &entity.User{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperr.Conflict("username already taken")
		}
		return nil, apperr.Wrap(apperr.KindInternal, "create user", err)
	}

	zlog.C(ctx).Info("user registered",
		zlog.Any("user_id", user.ID),
		zlog.String("username", username))
	return user, nil
}

// Login 校验口令，签发 JWT 并写入白名单
func (uc *UseCaseImpl) Login(ctx context.Context, username, password string) (*in.LoginResult, error) {
	user, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "get user", err)
	}
	if user == nil {
		return nil, apperr.NotFound("user not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Forbidden("invalid credentials")
	}

	jti := uuid.NewString()
	token, err := uc.jwtMgr.Issue(jti, user.ID, uc.tokenTTL)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "generate token", err)
	}
	if err := uc.tokenRepo.Save(ctx, jti, user.ID, uc.tokenTTL); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "save token", err)
	}

	zlog.C(ctx).Info("user logged in", zlog.Any("user_id", user.ID))

	return &in.LoginResult{
		UserID:      user.ID,
		Username:    user.Username,
		AccessToken: token,
	}, nil
}

// ResolveToken 从令牌解析当前用户，身份目录的 resolveCurrentUser
func (uc *UseCaseImpl) ResolveToken(ctx context.Context, token string) (uint64, error) {
	claims, err := uc.jwtMgr.Verify(token)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindNotFound, "invalid token", err)
	}

	valid, err := uc.tokenRepo.Exists(ctx, claims.JTI)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "check token", err)
	}
	if !valid {
		return 0, apperr.NotFound("token revoked or expired")
	}

	userID := claims.UserID
	ok, err := uc.userRepo.Exists(ctx, userID)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "check user", err)
	}
	if !ok {
		return 0, apperr.NotFound("user not found")
	}
	return userID, nil
}
