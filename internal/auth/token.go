// Package auth はパスワード認証とセッショントークンの発行・検証を提供する。
package auth

import (
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/libgate/internal/model"
)

// トークン検証のセンチネルエラー。
// 期限切れとそれ以外の不正は呼び出し元で別のAPIエラーに対応付けるため区別する。
var (
	// ErrTokenExpired は署名が正しく期限だけが切れていることを示す。
	ErrTokenExpired = errors.New("auth: token expired")
	// ErrTokenInvalid は署名不一致・形式不正など期限切れ以外の検証失敗を示す。
	ErrTokenInvalid = errors.New("auth: token invalid")
)

// tokenClaims はセッショントークンに埋め込むクレーム。
// subにユーザーID、roleにロールを持つ。
type tokenClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec はHMAC署名付きセッショントークンの発行と検証を行う。
// トークンはステートレスであり、サーバー側に失効リストを持たない。
type TokenCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenCodec はTokenCodecを生成する。
func NewTokenCodec(secret string, ttl time.Duration) (*TokenCodec, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is empty")
	}
	return &TokenCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue はユーザーIDとロールを署名したトークンを発行する。
func (c *TokenCodec) Issue(userID string, role model.Role) (*model.TokenPair, error) {
	now := c.now()
	expiresAt := now.Add(c.ttl)

	claims := tokenClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &model.TokenPair{
		Token:     signed,
		Role:      role,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify はトークンの署名と有効期限を検証し、認証主体を返す。
// 署名が正しく期限だけが切れている場合はErrTokenExpired、
// それ以外の検証失敗はすべてErrTokenInvalidを返す。
func (c *TokenCodec) Verify(tokenStr string) (*model.Principal, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return c.secret, nil
	}, jwt.WithTimeFunc(c.now))
	if err != nil {
		// 署名が不正なトークンはjwt側で期限より先に弾かれるため、
		// ErrTokenExpiredが返るのは署名検証を通過した場合だけになる。
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	role, ok := model.ParseRole(claims.Role)
	if !ok || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return &model.Principal{
		UserID: claims.Subject,
		Role:   role,
	}, nil
}
