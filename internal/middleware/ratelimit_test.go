package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// testRateLimiterConfig はテスト用の小さいバーストの設定を返す。
func testRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralRate:     rate.Limit(1.0 / 60.0),
		GeneralBurst:    2,
		ExtractRate:     rate.Limit(1.0 / 60.0),
		ExtractBurst:    1,
		CleanupInterval: time.Minute,
	}
}

// doRequest は指定ユーザーのコンテキスト付きリクエストを実行するヘルパー。
func doRequest(handler http.Handler, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/extract", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), userID))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

// バースト内のリクエストが通過し、超過分が429になることを検証
func TestRateLimiter_ExtractMiddleware_EnforcesLimit(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.ExtractMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	if w := doRequest(handler, "user-1"); w.Code != http.StatusOK {
		t.Errorf("first request status = %d, want %d", w.Code, http.StatusOK)
	}

	w := doRequest(handler, "user-1")
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("second request status = %d, want %d", w.Code, http.StatusTooManyRequests)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429 response")
	}
}

// ユーザーごとに独立したリミッターが使われることを検証
func TestRateLimiter_ExtractMiddleware_PerUser(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.ExtractMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	doRequest(handler, "user-1")
	if w := doRequest(handler, "user-1"); w.Code != http.StatusTooManyRequests {
		t.Errorf("user-1 should be limited, got %d", w.Code)
	}

	// user-2は影響を受けない
	if w := doRequest(handler, "user-2"); w.Code != http.StatusOK {
		t.Errorf("user-2 status = %d, want %d", w.Code, http.StatusOK)
	}

	if got := rl.ExtractLimiterCount(); got != 2 {
		t.Errorf("extract limiter count = %d, want 2", got)
	}
}

// 抽出リミッターがAPI全般リミッターと独立していることを検証
func TestRateLimiter_ExtractAndGeneral_Independent(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	extractHandler := rl.ExtractMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	generalHandler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// 抽出のバーストを使い切る
	doRequest(extractHandler, "user-1")
	if w := doRequest(extractHandler, "user-1"); w.Code != http.StatusTooManyRequests {
		t.Errorf("extract should be limited, got %d", w.Code)
	}

	// API全般はまだ通過できる
	if w := doRequest(generalHandler, "user-1"); w.Code != http.StatusOK {
		t.Errorf("general request status = %d, want %d", w.Code, http.StatusOK)
	}
}

// ユーザーIDなしのリクエストが401になることを検証
func TestRateLimiter_NoUserID_Returns401(t *testing.T) {
	rl := NewRateLimiter(testRateLimiterConfig())
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not be called")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/receipts", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}
