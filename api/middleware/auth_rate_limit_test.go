package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/diegocastellanos/booklend-backend/pkg/errors"
)

type fakeRateStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeRateStore() *fakeRateStore {
	return &fakeRateStore{counts: map[string]int64{}}
}

func (f *fakeRateStore) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func loginAttempt(t *testing.T, handler http.Handler, email, remoteAddr string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"email":"`+email+`","password":"secret"}`))
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthRateLimitPassesBodyThrough(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 2, 2)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Fatalf("read body: %v", err)
		}
		if !strings.Contains(string(body), `"email":"tester@example.com"`) {
			t.Fatalf("body was consumed by the middleware: %s", body)
		}
		w.WriteHeader(http.StatusOK)
	}))

	if rec := loginAttempt(t, handler, "tester@example.com", "1.2.3.4:5678"); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuthRateLimitBlocksEmail(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", time.Minute, 0, 2)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		if rec := loginAttempt(t, handler, "blocked@example.com", "1.2.3.4:5678"); rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	rec := loginAttempt(t, handler, "blocked@example.com", "1.2.3.4:5678")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
		t.Fatalf("error code %q", payload.Error.Code)
	}

	// A different email is still admitted.
	if rec := loginAttempt(t, handler, "other@example.com", "1.2.3.4:5678"); rec.Code != http.StatusOK {
		t.Fatalf("other email blocked: %d", rec.Code)
	}
}

func TestAuthRateLimitBlocksIP(t *testing.T) {
	policy := NewAuthRateLimitPolicy("register", time.Minute, 1, 0)
	handler := AuthRateLimit(policy, newFakeRateStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	if rec := loginAttempt(t, handler, "foo@example.com", "5.6.7.8:1234"); rec.Code != http.StatusOK {
		t.Fatalf("first attempt: expected 200, got %d", rec.Code)
	}
	if rec := loginAttempt(t, handler, "bar@example.com", "5.6.7.8:1234"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second attempt: expected 429, got %d", rec.Code)
	}
	if rec := loginAttempt(t, handler, "foo@example.com", "9.9.9.9:1234"); rec.Code != http.StatusOK {
		t.Fatalf("other ip blocked: %d", rec.Code)
	}
}

func TestAuthRateLimitDisabledPolicyIsNoop(t *testing.T) {
	policy := NewAuthRateLimitPolicy("login", 0, 0, 0)
	store := newFakeRateStore()
	handler := AuthRateLimit(policy, store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		if rec := loginAttempt(t, handler, "free@example.com", "1.1.1.1:1"); rec.Code != http.StatusOK {
			t.Fatalf("disabled policy blocked request: %d", rec.Code)
		}
	}
	if len(store.counts) != 0 {
		t.Fatalf("disabled policy touched the store: %v", store.counts)
	}
}

func TestClientIPPrefersForwardedFor(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:4000"
	if got := clientIP(req); got != "10.0.0.1" {
		t.Fatalf("remote addr fallback: %q", got)
	}

	req.Header.Set("X-Real-IP", "20.0.0.2")
	if got := clientIP(req); got != "20.0.0.2" {
		t.Fatalf("x-real-ip: %q", got)
	}

	req.Header.Set("X-Forwarded-For", " 30.0.0.3 , 40.0.0.4")
	if got := clientIP(req); got != "30.0.0.3" {
		t.Fatalf("x-forwarded-for: %q", got)
	}
}
