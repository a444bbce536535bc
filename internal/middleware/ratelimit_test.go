package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func newTestLimiter(t *testing.T, burst int) *RateLimiter {
	t.Helper()
	rl := NewRateLimiter(RateLimiterConfig{
		Rate:            rate.Limit(0.5),
		Burst:           burst,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)
	return rl
}

func requestAs(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/dashboard", nil)
	if userID == "" {
		return req
	}
	return req.WithContext(ContextWithUserID(req.Context(), userID))
}

func TestRateLimiter_BlocksAfterBurst(t *testing.T) {
	rl := newTestLimiter(t, 2)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, requestAs("user-1"))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, w.Code)
		}
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("user-1"))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q, want 2", got)
	}
}

func TestRateLimiter_IndependentPerUser(t *testing.T) {
	rl := newTestLimiter(t, 1)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	handler.ServeHTTP(httptest.NewRecorder(), requestAs("user-1"))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs("user-2"))
	if w.Code != http.StatusOK {
		t.Errorf("別ユーザーが制限されました: status = %d", w.Code)
	}
	if rl.LimiterCount() != 2 {
		t.Errorf("LimiterCount() = %d, want 2", rl.LimiterCount())
	}
}

func TestRateLimiter_RequiresUserID(t *testing.T) {
	rl := newTestLimiter(t, 1)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("ユーザーIDなしで通過しました")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, requestAs(""))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRateLimiter_CleanupRemovesIdleEntries(t *testing.T) {
	rl := newTestLimiter(t, 1)
	rl.limiterFor("user-1")

	rl.cleanup(time.Now().Add(time.Hour))
	if rl.LimiterCount() != 1 {
		t.Errorf("TTL内のエントリが削除されました")
	}

	rl.cleanup(time.Now().Add(3 * time.Hour))
	if rl.LimiterCount() != 0 {
		t.Errorf("LimiterCount() = %d, want 0", rl.LimiterCount())
	}
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	cfg := DefaultRateLimiterConfig(120)
	if cfg.Rate != rate.Limit(2) || cfg.Burst != 120 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg := DefaultRateLimiterConfig(0); cfg.Burst != 120 {
		t.Errorf("0指定時のBurst = %d, want 120", cfg.Burst)
	}
}
