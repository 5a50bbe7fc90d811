package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/hitoshi/libgate/internal/model"
)

func testConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRequests: 3,
		GeneralWindow:   time.Hour,
		AuthRequests:    2,
		AuthWindow:      time.Minute,
		CleanupInterval: time.Hour,
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func authedRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/books", nil)
	ctx := ContextWithPrincipal(req.Context(), &model.Principal{
		UserID: userID,
		Role:   model.RoleMember,
	})
	return req.WithContext(ctx)
}

// --- GeneralMiddleware テスト ---

func TestRateLimiter_General_AllowsUpToLimit(t *testing.T) {
	rl := NewRateLimiter(testConfig(), nil)
	defer rl.Stop()

	h := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, authedRequest("user-1"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}

	// 4リクエスト目は拒否される
	w := httptest.NewRecorder()
	h.ServeHTTP(w, authedRequest("user-1"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	// Retry-Afterはウィンドウ終端までの秒数
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	if err != nil {
		t.Fatalf("Retry-After header missing or invalid: %v", err)
	}
	if retryAfter < 1 || retryAfter > 3600 {
		t.Errorf("Retry-After = %d, want within (0, 3600]", retryAfter)
	}
}

func TestRateLimiter_General_KeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(testConfig(), nil)
	defer rl.Stop()

	h := rl.GeneralMiddleware()(okHandler())

	// user-1 の上限を使い切る
	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), authedRequest("user-1"))
	}

	// user-2 は影響を受けない
	w := httptest.NewRecorder()
	h.ServeHTTP(w, authedRequest("user-2"))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRateLimiter_General_WindowResets(t *testing.T) {
	rl := NewRateLimiter(testConfig(), nil)
	defer rl.Stop()

	current := time.Now()
	rl.now = func() time.Time { return current }

	h := rl.GeneralMiddleware()(okHandler())

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), authedRequest("user-1"))
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, authedRequest("user-1"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	// ウィンドウ満了後はカウンタがリセットされる
	current = current.Add(time.Hour)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, authedRequest("user-1"))
	if w.Code != http.StatusOK {
		t.Errorf("status after window reset = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRateLimiter_General_NoPrincipalReturnsUnauthorized(t *testing.T) {
	rl := NewRateLimiter(testConfig(), nil)
	defer rl.Stop()

	h := rl.GeneralMiddleware()(okHandler())

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/books", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

// --- AuthMiddleware テスト ---

func TestRateLimiter_Auth_LimitsByRemoteIP(t *testing.T) {
	rl := NewRateLimiter(testConfig(), nil)
	defer rl.Stop()

	h := rl.AuthMiddleware()(okHandler())

	newLoginRequest := func(addr string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = addr
		return req
	}

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, newLoginRequest("10.0.0.1:12345"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, w.Code, http.StatusOK)
		}
	}

	// 同一IPの3リクエスト目は拒否
	w := httptest.NewRecorder()
	h.ServeHTTP(w, newLoginRequest("10.0.0.1:54321"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}

	// 別IPは許可される
	w = httptest.NewRecorder()
	h.ServeHTTP(w, newLoginRequest("10.0.0.2:12345"))
	if w.Code != http.StatusOK {
		t.Errorf("different IP status = %d, want %d", w.Code, http.StatusOK)
	}
}

// --- メトリクス記録テスト ---

type fakeRateLimitRecorder struct {
	limitTypes []string
}

func (f *fakeRateLimitRecorder) RecordRateLimited(limitType string) {
	f.limitTypes = append(f.limitTypes, limitType)
}

func TestRateLimiter_RecordsRejections(t *testing.T) {
	recorder := &fakeRateLimitRecorder{}
	rl := NewRateLimiter(testConfig(), recorder)
	defer rl.Stop()

	h := rl.GeneralMiddleware()(okHandler())
	for i := 0; i < 4; i++ {
		h.ServeHTTP(httptest.NewRecorder(), authedRequest("user-1"))
	}

	if len(recorder.limitTypes) != 1 {
		t.Fatalf("recorded rejections = %d, want 1", len(recorder.limitTypes))
	}
	if recorder.limitTypes[0] != "general" {
		t.Errorf("limit type = %q, want %q", recorder.limitTypes[0], "general")
	}
}

// --- クリーンアップテスト ---

func TestRateLimiter_CleanupRemovesExpiredEntries(t *testing.T) {
	cfg := testConfig()
	cfg.CleanupInterval = time.Minute
	rl := NewRateLimiter(cfg, nil)
	defer rl.Stop()

	current := time.Now()
	rl.now = func() time.Time { return current }

	h := rl.GeneralMiddleware()(okHandler())
	h.ServeHTTP(httptest.NewRecorder(), authedRequest("user-1"))

	if got := rl.GeneralWindowCount(); got != 1 {
		t.Fatalf("window count = %d, want 1", got)
	}

	// ウィンドウとアクセスの両方が満了した後のクリーンアップで削除される
	current = current.Add(2 * time.Hour)
	rl.cleanup()

	if got := rl.GeneralWindowCount(); got != 0 {
		t.Errorf("window count after cleanup = %d, want 0", got)
	}
}
