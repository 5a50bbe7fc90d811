package middleware

import (
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hitoshi/libgate/internal/model"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralRequests int           // API全般のウィンドウあたり許可リクエスト数
	GeneralWindow   time.Duration // API全般の固定ウィンドウ長
	AuthRequests    int           // ログイン・登録のウィンドウあたり許可リクエスト数
	AuthWindow      time.Duration // ログイン・登録の固定ウィンドウ長
	CleanupInterval time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// 要件: API全般 200 req/hour/user、認証エンドポイント 5 req/min/IP
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRequests: 200,
		GeneralWindow:   time.Hour,
		AuthRequests:    5,
		AuthWindow:      time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

// RateLimitRecorder はレート制限による拒否を記録するインターフェース。
// metrics.Collectorの部分集合として定義する。
type RateLimitRecorder interface {
	RecordRateLimited(limitType string)
}

// fixedWindow はキーごとの固定ウィンドウカウンタ。
// ウィンドウ開始からWindow経過でカウンタをリセットする。
type fixedWindow struct {
	windowStart time.Time
	count       int
	lastAccess  time.Time
}

// RateLimiter はクライアント識別子ごとの固定ウィンドウレート制限を管理する。
// API全般（認証済みユーザーID単位）と認証エンドポイント（リモートIP単位）の
// 2種類を提供する。
type RateLimiter struct {
	config   RateLimiterConfig
	recorder RateLimitRecorder
	now      func() time.Time

	generalMu      sync.Mutex
	generalWindows map[string]*fixedWindow

	authMu      sync.Mutex
	authWindows map[string]*fixedWindow

	stopCh chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// recorderはnilでもよい。バックグラウンドで期限切れエントリの
// クリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig, recorder RateLimitRecorder) *RateLimiter {
	rl := &RateLimiter{
		config:         config,
		recorder:       recorder,
		now:            time.Now,
		generalWindows: make(map[string]*fixedWindow),
		authWindows:    make(map[string]*fixedWindow),
		stopCh:         make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// リクエストコンテキストに認証主体が含まれている必要がある
// （トークンミドルウェアの後に配置）。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := PrincipalFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewTokenInvalidError())
				return
			}

			allowed, retryAfter := rl.allow(&rl.generalMu, rl.generalWindows,
				principal.UserID, rl.config.GeneralRequests, rl.config.GeneralWindow)
			if !allowed {
				rl.reject(w, retryAfter, "general")
				slog.Warn("rate limit exceeded",
					slog.String("user_id", principal.UserID),
					slog.String("limit_type", "general"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// AuthMiddleware はログイン・登録専用のレート制限ミドルウェアを返す。
// 未認証リクエストが対象のため、リモートIPをクライアント識別子に使う。
func (rl *RateLimiter) AuthMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := remoteIP(r)

			allowed, retryAfter := rl.allow(&rl.authMu, rl.authWindows,
				key, rl.config.AuthRequests, rl.config.AuthWindow)
			if !allowed {
				rl.reject(w, retryAfter, "auth")
				slog.Warn("rate limit exceeded",
					slog.String("remote_ip", key),
					slog.String("limit_type", "auth"),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralWindowCount は現在管理されているAPI全般ウィンドウのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) GeneralWindowCount() int {
	rl.generalMu.Lock()
	defer rl.generalMu.Unlock()
	return len(rl.generalWindows)
}

// AuthWindowCount は現在管理されている認証ウィンドウのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) AuthWindowCount() int {
	rl.authMu.Lock()
	defer rl.authMu.Unlock()
	return len(rl.authWindows)
}

// allow はキーの固定ウィンドウカウンタを進め、許可するかどうかを返す。
// 拒否時はウィンドウ終端までの残り時間も返す。
func (rl *RateLimiter) allow(mu *sync.Mutex, windows map[string]*fixedWindow, key string, requests int, window time.Duration) (bool, time.Duration) {
	now := rl.now()

	mu.Lock()
	defer mu.Unlock()

	fw, exists := windows[key]
	if !exists || now.Sub(fw.windowStart) >= window {
		// 新規キー、またはウィンドウ満了でリセット
		windows[key] = &fixedWindow{
			windowStart: now,
			count:       1,
			lastAccess:  now,
		}
		return true, 0
	}

	fw.lastAccess = now
	if fw.count >= requests {
		return false, fw.windowStart.Add(window).Sub(now)
	}
	fw.count++
	return true, 0
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

// cleanup はウィンドウが満了しアクセスも途絶えたエントリを削除する。
func (rl *RateLimiter) cleanup() {
	now := rl.now()

	rl.generalMu.Lock()
	for key, fw := range rl.generalWindows {
		if now.Sub(fw.windowStart) >= rl.config.GeneralWindow && now.Sub(fw.lastAccess) >= rl.config.CleanupInterval {
			delete(rl.generalWindows, key)
		}
	}
	rl.generalMu.Unlock()

	rl.authMu.Lock()
	for key, fw := range rl.authWindows {
		if now.Sub(fw.windowStart) >= rl.config.AuthWindow && now.Sub(fw.lastAccess) >= rl.config.CleanupInterval {
			delete(rl.authWindows, key)
		}
	}
	rl.authMu.Unlock()
}

// remoteIP はリクエスト元のIPアドレスを返す。
func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// reject は429レスポンスを書き込み、メトリクスに記録する。
func (rl *RateLimiter) reject(w http.ResponseWriter, retryAfter time.Duration, limitType string) {
	if rl.recorder != nil {
		rl.recorder.RecordRateLimited(limitType)
	}
	writeRateLimitResponse(w, retryAfter)
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーには現在のウィンドウが終わるまでの秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, retryAfter time.Duration) {
	retryAfterSec := int(math.Ceil(retryAfter.Seconds()))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	WriteErrorResponse(w, http.StatusTooManyRequests, model.NewRateLimitedError())
}
