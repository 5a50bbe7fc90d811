package middleware

import (
	"log/slog"
	"net/http"

	"github.com/hitoshi/libgate/internal/model"
	"github.com/hitoshi/libgate/internal/policy"
)

// NewAuthorizeMiddleware はアクセスポリシーを全リクエストに一様に適用する
// ミドルウェアを返す。トークンミドルウェアの後に配置すること。
// ポリシー表に一致しないリクエストはすべて403で拒否する（フェイルクローズ）。
func NewAuthorizeMiddleware(p *policy.Policy) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := PrincipalFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenInvalidError())
				return
			}

			if !p.Authorize(principal.Role, r.Method, r.URL.Path) {
				slog.Warn("access denied by policy",
					slog.String("user_id", principal.UserID),
					slog.String("role", string(principal.Role)),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
				)
				WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError(principal.Role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
