package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/hitoshi/libgate/internal/model"
)

// TokenVerifier はトークン検証に必要なインターフェース。
// auth.Serviceの部分集合として定義する。
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*model.Principal, error)
}

// NewTokenMiddleware はAuthorizationヘッダーのBearerトークンを検証し、
// 認証主体をリクエストコンテキストに注入するミドルウェアを返す。
// ヘッダー不在・形式不正はTOKEN_INVALID、期限切れはTOKEN_EXPIREDの
// 401レスポンスを返す。
func NewTokenMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr, ok := bearerToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenInvalidError())
				return
			}

			principal, err := verifier.Verify(r.Context(), tokenStr)
			if err != nil {
				apiErr, ok := err.(*model.APIError)
				if !ok {
					apiErr = model.NewTokenInvalidError()
				}
				WriteErrorResponse(w, http.StatusUnauthorized, apiErr)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken はAuthorizationヘッダーからBearerトークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}
