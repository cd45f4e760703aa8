package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func hit(handler http.HandlerFunc, remoteAddr string, headers map[string]string) int {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimitAllowsWithinBurst(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(time.Second), 5)
	handler := RateLimitHandlerFunc(rl, okHandler)

	for i := 0; i < 5; i++ {
		if code := hit(handler, "192.168.1.1:12345", nil); code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200", i, code)
		}
	}
}

func TestRateLimitBlocksExcessRequests(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(time.Second), 2)
	handler := RateLimitHandlerFunc(rl, okHandler)

	for i := 0; i < 2; i++ {
		if code := hit(handler, "10.0.0.1:12345", nil); code != http.StatusOK {
			t.Fatalf("request %d: got %d, want 200", i, code)
		}
	}
	if code := hit(handler, "10.0.0.1:12345", nil); code != http.StatusTooManyRequests {
		t.Fatalf("over-limit request: got %d, want 429", code)
	}
}

func TestRateLimitIsPerIP(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(time.Second), 1)
	handler := RateLimitHandlerFunc(rl, okHandler)

	if code := hit(handler, "10.0.0.1:12345", nil); code != http.StatusOK {
		t.Fatalf("first ip: got %d", code)
	}
	if code := hit(handler, "10.0.0.1:12345", nil); code != http.StatusTooManyRequests {
		t.Fatalf("first ip second hit: got %d, want 429", code)
	}
	// A different client is unaffected.
	if code := hit(handler, "10.0.0.2:9999", nil); code != http.StatusOK {
		t.Fatalf("second ip: got %d, want 200", code)
	}
}

func TestRateLimitHonorsForwardedFor(t *testing.T) {
	rl := NewIPRateLimiter(rate.Every(time.Second), 1)
	handler := RateLimitHandlerFunc(rl, okHandler)

	headers := map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}
	if code := hit(handler, "127.0.0.1:1", headers); code != http.StatusOK {
		t.Fatalf("first hit: got %d", code)
	}
	// Same forwarded client from a different proxy connection shares the bucket.
	if code := hit(handler, "127.0.0.1:2", headers); code != http.StatusTooManyRequests {
		t.Fatalf("second hit: got %d, want 429", code)
	}
}
