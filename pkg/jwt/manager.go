package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/dgrijalva/jwt-go"
)

// AccessClaims 访问令牌的解析结果
type AccessClaims struct {
	JTI    string
	UserID uint64
}

// Manager 负责访问令牌的签发与验签，载荷里直接携带数值用户 id
type Manager interface {
	Issue(jti string, userID uint64, ttl time.Duration) (string, error)
	Verify(tokenStr string) (*AccessClaims, error)
}

type tokenClaims struct {
	UserID uint64 `json:"uid"`
	jwtlib.StandardClaims
}

type manager struct {
	secret []byte
}

// NewManager 用给定的 secret 构造 Manager
func NewManager(secret string) Manager {
	return &manager{secret: []byte(secret)}
}

func (m *manager) Issue(jti string, userID uint64, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserID: userID,
		StandardClaims: jwtlib.StandardClaims{
			Id:        jti,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// Verify 验签并解析，拒绝非 HMAC 签名的令牌
func (m *manager) Verify(tokenStr string) (*AccessClaims, error) {
	tok, err := jwtlib.ParseWithClaims(tokenStr, &tokenClaims{}, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := tok.Claims.(*tokenClaims)
	if !ok || claims.UserID == 0 {
		return nil, fmt.Errorf("invalid token claims")
	}
	return &AccessClaims{JTI: claims.Id, UserID: claims.UserID}, nil
}
