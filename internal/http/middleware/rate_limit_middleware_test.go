package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

type mockLimiter struct {
	allow bool
	retry time.Duration
	err   error
}

func (m mockLimiter) Allow(context.Context, string, int, time.Duration) (RateDecision, error) {
	return RateDecision{
		Allowed:    m.allow,
		RetryAfter: m.retry,
		Remaining:  0,
		ResetAt:    time.Now().Add(m.retry),
	}, m.err
}

type recordingLimiter struct {
	lastKey string
}

func (r *recordingLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (RateDecision, error) {
	r.lastKey = key
	return RateDecision{Allowed: true, Remaining: limit - 1, ResetAt: time.Now().Add(window)}, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func serveFrom(h http.Handler, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/product", nil)
	req.RemoteAddr = remoteAddr
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestDistributedRateLimiterFailOpenOnBackendError(t *testing.T) {
	rl := NewDistributedRateLimiter(mockLimiter{err: errors.New("redis down")}, 10, time.Minute, FailOpen, "api")
	rr := serveFrom(rl.Middleware()(okHandler()), "10.0.0.1:1111")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected fail-open to allow request, got %d", rr.Code)
	}
}

func TestDistributedRateLimiterFailClosedOnBackendError(t *testing.T) {
	rl := NewDistributedRateLimiter(mockLimiter{err: errors.New("redis down")}, 10, time.Minute, FailClosed, "api")
	rr := serveFrom(rl.Middleware()(okHandler()), "10.0.0.1:1111")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected fail-closed to reject request, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "60" {
		t.Fatalf("expected Retry-After of one window, got %q", got)
	}
}

func TestDistributedRateLimiterDeniedSetsRetryAfter(t *testing.T) {
	rl := NewDistributedRateLimiter(mockLimiter{allow: false, retry: 5 * time.Second}, 1, time.Minute, FailClosed, "api")
	rr := serveFrom(rl.Middleware()(okHandler()), "10.0.0.1:1111")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if got := rr.Header().Get("Retry-After"); got != "5" {
		t.Fatalf("expected Retry-After=5, got %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "1" {
		t.Fatalf("expected X-RateLimit-Limit=1, got %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Fatalf("expected X-RateLimit-Remaining=0, got %q", got)
	}
	if got := rr.Header().Get("X-RateLimit-Reset"); got == "" {
		t.Fatal("expected X-RateLimit-Reset header")
	} else if _, err := strconv.ParseInt(got, 10, 64); err != nil {
		t.Fatalf("expected numeric X-RateLimit-Reset, got %q", got)
	}
}

func TestDistributedRateLimiterAllowedSetsRateLimitHeaders(t *testing.T) {
	rl := NewDistributedRateLimiter(mockLimiter{allow: true, retry: time.Minute}, 3, time.Minute, FailClosed, "api")
	rr := serveFrom(rl.Middleware()(okHandler()), "10.0.0.1:1111")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Header().Get("X-RateLimit-Limit"); got != "3" {
		t.Fatalf("expected X-RateLimit-Limit=3, got %q", got)
	}
	if got := rr.Header().Get("Retry-After"); got != "" {
		t.Fatalf("did not expect Retry-After on allowed response, got %q", got)
	}
}

func TestRateLimiterKeysByClientIP(t *testing.T) {
	limiter := &recordingLimiter{}
	rl := NewDistributedRateLimiter(limiter, 10, time.Minute, FailClosed, "api")
	serveFrom(rl.Middleware()(okHandler()), "10.0.0.7:2222")
	if limiter.lastKey != "10.0.0.7" {
		t.Fatalf("expected IP key, got %q", limiter.lastKey)
	}
}

func TestLocalLimiterWindowResets(t *testing.T) {
	now := time.Now()
	l := NewLocalFixedWindowLimiter().(*localFixedWindowLimiter)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, _ := l.Allow(ctx, "k", 2, time.Minute)
		if !d.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	d, _ := l.Allow(ctx, "k", 2, time.Minute)
	if d.Allowed || d.RetryAfter != time.Minute {
		t.Fatalf("expected third request denied for a full window, got %+v", d)
	}
	if d, _ := l.Allow(ctx, "other", 2, time.Minute); !d.Allowed || d.Remaining != 1 {
		t.Fatalf("expected independent key to be allowed, got %+v", d)
	}

	now = now.Add(time.Minute)
	if d, _ := l.Allow(ctx, "k", 2, time.Minute); !d.Allowed {
		t.Fatalf("expected window reset, got %+v", d)
	}
}

func TestRateLimiterRejectsAfterLimit(t *testing.T) {
	h := NewRateLimiter(2, time.Minute).Middleware()(okHandler())
	for i := 0; i < 2; i++ {
		if rr := serveFrom(h, "192.0.2.1:1000"); rr.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rr.Code)
		}
	}
	if rr := serveFrom(h, "192.0.2.1:1000"); rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr := serveFrom(h, "192.0.2.2:1000"); rr.Code != http.StatusOK {
		t.Fatalf("expected other client to pass, got %d", rr.Code)
	}
}
