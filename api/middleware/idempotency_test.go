package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/diegocastellanos/booklend-backend/pkg/errors"
)

type recordStore struct {
	data map[string]string
}

func newRecordStore() *recordStore {
	return &recordStore{data: map[string]string{}}
}

func (s *recordStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := s.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (s *recordStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key], _ = value.(string)
	return true, nil
}

func (s *recordStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

func registerRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{"/api/v1/auth/register"}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestRouteTTLSelection(t *testing.T) {
	tests := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		ok      bool
	}{
		{"loan request", http.MethodPost, "/api/v1/loans", criticalIdempotencyTTL, true},
		{"loan return", http.MethodPost, "/api/v1/loans/123/return", criticalIdempotencyTTL, true},
		{"loan decision", http.MethodPost, "/api/admin/v1/loans/123/decision", criticalIdempotencyTTL, true},
		{"stock adjust", http.MethodPut, "/api/admin/v1/books/456/stock", defaultIdempotencyTTL, true},
		{"register", http.MethodPost, "/api/v1/auth/register", defaultIdempotencyTTL, true},
		{"decision wrong method", http.MethodPut, "/api/admin/v1/loans/123/decision", 0, false},
		{"unguarded route", http.MethodPost, "/api/v1/auth/login", 0, false},
		{"empty pattern", http.MethodPost, "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ttl, ok := routeTTL(tt.method, tt.pattern)
			if ok != tt.ok || (ok && ttl != tt.want) {
				t.Fatalf("routeTTL(%s, %s) = (%v, %v), want (%v, %v)", tt.method, tt.pattern, ttl, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	mw := Idempotency(newRecordStore(), nil)
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, registerRequest(`{"foo":"bar"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if called {
		t.Fatal("handler must not run without an idempotency key")
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	mw := Idempotency(newRecordStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	first := registerRequest(`{"foo":"bar"}`)
	first.Header.Set("Idempotency-Key", "abc")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, first)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("first call: expected 202, got %d", resp.Code)
	}

	second := registerRequest(`{"foo":"bar"}`)
	second.Header.Set("Idempotency-Key", "abc")
	replay := httptest.NewRecorder()
	mw(handler).ServeHTTP(replay, second)

	if replay.Code != http.StatusAccepted {
		t.Fatalf("replay: expected 202, got %d", replay.Code)
	}
	if replay.Header().Get("Content-Type") != "application/json" {
		t.Fatal("replay must preserve the content type")
	}
	if strings.TrimSpace(replay.Body.String()) != `{"ok":true}` {
		t.Fatalf("replay body %q", replay.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestIdempotencyRejectsBodyChange(t *testing.T) {
	mw := Idempotency(newRecordStore(), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	first := registerRequest(`{"foo":"bar"}`)
	first.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	changed := registerRequest(`{"foo":"different"}`)
	changed.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, changed)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("error code %q, want %q", payload.Error.Code, pkgerrors.CodeIdempotency)
	}
}

func TestIdempotencySkipsUnguardedRoutes(t *testing.T) {
	mw := Idempotency(newRecordStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{}`))
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	mw(handler).ServeHTTP(httptest.NewRecorder(), req)

	if calls != 2 {
		t.Fatalf("unguarded route should always reach the handler, got %d calls", calls)
	}
}
