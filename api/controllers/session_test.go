package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/diegocastellanos/booklend-backend/pkg/auth"
	"github.com/diegocastellanos/booklend-backend/pkg/auth/session"
	"github.com/diegocastellanos/booklend-backend/pkg/config"
	"github.com/diegocastellanos/booklend-backend/pkg/enums"
)

type stubSessionTokenManager struct {
	lastRevoked    string
	lastRotateOld  string
	lastRotateBody string
	rotateRespID   string
	rotateRespTok  string
	rotateErr      error
	revokeErr      error
}

func (s *stubSessionTokenManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	s.lastRotateOld = oldAccessID
	s.lastRotateBody = provided
	return s.rotateRespID, s.rotateRespTok, s.rotateErr
}

func (s *stubSessionTokenManager) Revoke(ctx context.Context, accessID string) error {
	s.lastRevoked = accessID
	return s.revokeErr
}

func sessionTestConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 10}
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, role enums.UserRole) (string, string) {
	t.Helper()
	jti := session.NewAccessID()
	token, err := auth.MintAccessToken(cfg, time.Now(), auth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "alice@example.com",
		Role:   role,
		JTI:    jti,
	})
	if err != nil {
		t.Fatalf("mint access token: %v", err)
	}
	return token, jti
}

// postSession issues a POST with an optional bearer token and JSON body.
func postSession(handler http.Handler, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuthLogoutRevokesSession(t *testing.T) {
	cfg := sessionTestConfig()
	manager := &stubSessionTokenManager{}
	token, jti := mintTestToken(t, cfg, enums.UserRoleStudent)

	rec := postSession(AuthLogout(manager, cfg, nil), "/logout", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if manager.lastRevoked != jti {
		t.Fatalf("revoked %q, want %q", manager.lastRevoked, jti)
	}
}

func TestAuthLogoutWithoutTokenIsRejected(t *testing.T) {
	cfg := sessionTestConfig()
	manager := &stubSessionTokenManager{}

	rec := postSession(AuthLogout(manager, cfg, nil), "/logout", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
	if manager.lastRevoked != "" {
		t.Fatalf("revoke ran without a token: %q", manager.lastRevoked)
	}
}

func TestAuthRefreshRotatesAndReturnsNewPair(t *testing.T) {
	cfg := sessionTestConfig()
	manager := &stubSessionTokenManager{rotateRespID: "new-jti", rotateRespTok: "new-refresh"}
	token, jti := mintTestToken(t, cfg, enums.UserRoleStudent)

	rec := postSession(AuthRefresh(manager, cfg, nil), "/refresh", token, `{"refresh_token":"old-refresh"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if manager.lastRotateOld != jti {
		t.Fatalf("rotated from %q, want %q", manager.lastRotateOld, jti)
	}
	if manager.lastRotateBody != "old-refresh" {
		t.Fatalf("presented refresh token %q", manager.lastRotateBody)
	}

	var envelope struct {
		Data refreshResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.RefreshToken != "new-refresh" {
		t.Fatalf("refresh token %q, want new-refresh", envelope.Data.RefreshToken)
	}
	if envelope.Data.AccessToken == "" {
		t.Fatal("access token missing from body")
	}
	if rec.Header().Get("X-BL-Token") != envelope.Data.AccessToken {
		t.Fatal("header token must match body token")
	}
}

func TestAuthRefreshRejectsInvalidRefreshToken(t *testing.T) {
	cfg := sessionTestConfig()
	manager := &stubSessionTokenManager{rotateErr: session.ErrInvalidRefreshToken}
	token, _ := mintTestToken(t, cfg, enums.UserRoleStudent)

	rec := postSession(AuthRefresh(manager, cfg, nil), "/refresh", token, `{"refresh_token":"stale"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
}
