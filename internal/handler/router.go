package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/libgate/internal/metrics"
	"github.com/hitoshi/libgate/internal/middleware"
	"github.com/hitoshi/libgate/internal/policy"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	TokenVerifier     middleware.TokenVerifier
	Policy            *policy.Policy
	RateLimiter       *middleware.RateLimiter
	CORSAllowedOrigin string
	Logger            *slog.Logger

	// メトリクス。nilの場合は記録しない。
	Metrics  metrics.MetricsCollector
	Gatherer prometheus.Gatherer

	// サービス
	AuthService       AuthServiceInterface
	UserService       UserServiceInterface
	PredictionService PredictionServiceInterface
	BookService       BookServiceInterface
	MemberService     MemberServiceInterface
	LoanService       LoanServiceInterface

	// ヘルスチェック
	DB DBPinger
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS
//	（認証グループ内）→ Token → RateLimit(General) → Authorize
//
// ログイン・登録は認証グループの外に置き、IP単位のレート制限のみ適用する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	var httpRecorder middleware.HTTPMetricsRecorder
	var loginRecorder LoginRecorder
	var predictionRecorder PredictionRecorder
	var loanRecorder LoanRecorder
	if deps.Metrics != nil {
		httpRecorder = deps.Metrics
		loginRecorder = deps.Metrics
		predictionRecorder = deps.Metrics
		loanRecorder = deps.Metrics
	}

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(deps.Logger, httpRecorder))
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, loginRecorder)
	userHandler := NewUserHandler(deps.UserService)
	predictionHandler := NewPredictionHandler(deps.PredictionService, predictionRecorder)
	bookHandler := NewBookHandler(deps.BookService)
	memberHandler := NewMemberHandler(deps.MemberService)
	loanHandler := NewLoanHandler(deps.LoanService, loanRecorder)
	healthHandler := NewHealthHandler(deps.DB)

	// --- 認証不要のルート ---

	r.Get("/api/health", healthHandler.Health)

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))
	}

	// ログイン・登録はIP単位のレート制限を適用
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.AuthMiddleware())
		r.Post("/api/auth/login", authHandler.Login)
		r.Post("/api/auth/register", authHandler.Register)
	})

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Token → RateLimit(General) → Authorize
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewTokenMiddleware(deps.TokenVerifier))
		r.Use(deps.RateLimiter.GeneralMiddleware())
		r.Use(middleware.NewAuthorizeMiddleware(deps.Policy))

		// トークン検証・パスワード変更
		r.Get("/api/auth/verify", authHandler.Verify)
		r.Post("/api/auth/password", authHandler.ChangePassword)

		// ユーザー管理（ポリシーにより管理者のみ）
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/", userHandler.ListUsers)
			r.Put("/{id}", userHandler.UpdateUser)
		})

		// 予測（ポリシーによりスタッフのみ）
		r.Get("/api/models", predictionHandler.ListModels)
		r.Route("/api/predictions/{model_name}", func(r chi.Router) {
			r.Post("/", predictionHandler.Predict)
			r.Post("/batch", predictionHandler.PredictBatch)
		})

		// 蔵書カタログ
		r.Route("/api/books", func(r chi.Router) {
			r.Get("/", bookHandler.SearchBooks)
			r.Post("/", bookHandler.CreateBook)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", bookHandler.GetBook)
				r.Put("/", bookHandler.UpdateBook)
			})
		})

		// 会員管理
		r.Route("/api/members", func(r chi.Router) {
			r.Get("/", memberHandler.ListMembers)
			r.Post("/", memberHandler.CreateMember)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", memberHandler.GetMember)
				r.Put("/", memberHandler.UpdateMember)
			})
		})

		// 貸出管理
		r.Route("/api/loans", func(r chi.Router) {
			r.Get("/", loanHandler.ListLoans)
			r.Post("/", loanHandler.CreateLoan)
			r.Post("/{id}/return", loanHandler.ReturnLoan)
		})
	})

	return r
}
