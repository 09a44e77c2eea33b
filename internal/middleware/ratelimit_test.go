package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/google/uuid"
)

func fixedClock(rl *RateLimiter) *time.Time {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return &now
}

func TestRateLimiterAllow(t *testing.T) {
	rl := NewRateLimiter()
	fixedClock(rl)

	for i := 0; i < 5; i++ {
		if ok, _ := rl.Allow("key", 5, time.Minute); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}

	ok, wait := rl.Allow("key", 5, time.Minute)
	if ok {
		t.Error("6th request should be denied")
	}
	if wait != time.Minute {
		t.Errorf("wait = %v, want %v", wait, time.Minute)
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	rl := NewRateLimiter()
	now := fixedClock(rl)

	for i := 0; i < 4; i++ {
		rl.Allow("key", 3, time.Minute)
	}
	if ok, _ := rl.Allow("key", 3, time.Minute); ok {
		t.Fatal("request over the limit should be denied")
	}

	*now = now.Add(61 * time.Second)
	if ok, _ := rl.Allow("key", 3, time.Minute); !ok {
		t.Error("should be allowed after window expires")
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter()
	now := fixedClock(rl)

	rl.Allow("expired", 5, time.Second)
	*now = now.Add(2 * time.Second)
	rl.Allow("active", 5, time.Minute)

	rl.Cleanup()

	if _, ok := rl.entries["expired"]; ok {
		t.Error("expired entry survived cleanup")
	}
	if _, ok := rl.entries["active"]; !ok {
		t.Error("active entry was removed")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter()
	fixedClock(rl)
	handler := RateLimit(rl, ByUser, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	user := uuid.New()
	req := httptest.NewRequest("POST", "/api/household/join", nil)
	req = req.WithContext(auth.WithAuth(req.Context(), auth.AuthContext{UserID: user}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After = %q, want %q", got, "60")
	}
	if !strings.Contains(rec.Body.String(), `"rate_limited"`) {
		t.Errorf("body = %s, want rate_limited code", rec.Body.String())
	}

	// A different user has their own budget.
	other := httptest.NewRequest("POST", "/api/household/join", nil)
	other = other.WithContext(auth.WithAuth(other.Context(), auth.AuthContext{UserID: uuid.New()}))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Errorf("other user status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := RealIP(req); got != "10.0.0.1" {
		t.Errorf("RealIP() = %q, want remote addr", got)
	}

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := RealIP(req); got != "203.0.113.7" {
		t.Errorf("RealIP() = %q, want first forwarded hop", got)
	}

	req.Header.Set("CF-Connecting-IP", "198.51.100.2")
	if got := RealIP(req); got != "198.51.100.2" {
		t.Errorf("RealIP() = %q, want CF-Connecting-IP", got)
	}
}

func TestByUserFallsBackToIP(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	if got := ByUser(req); got != "ip:10.0.0.1" {
		t.Errorf("ByUser() = %q, want %q", got, "ip:10.0.0.1")
	}
}
