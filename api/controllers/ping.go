package controllers

import (
	"net/http"

	"github.com/diegocastellanos/booklend-backend/api/middleware"
	"github.com/diegocastellanos/booklend-backend/api/responses"
)

// Ping handlers exist per auth tier so smoke tests can probe each slice
// of the middleware chain independently.

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, pingPayload("public", nil))
	}
}

func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		extra := map[string]string{}
		if uid := middleware.UserIDFromContext(r.Context()); uid != "" {
			extra["user_id"] = uid
		}
		responses.WriteSuccess(w, pingPayload("private", extra))
	}
}

func AdminPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		extra := map[string]string{}
		if role := middleware.RoleFromContext(r.Context()); role != "" {
			extra["role"] = role
		}
		responses.WriteSuccess(w, pingPayload("admin", extra))
	}
}

func pingPayload(scope string, extra map[string]string) map[string]string {
	payload := map[string]string{"scope": scope, "status": "ok"}
	for k, v := range extra {
		payload[k] = v
	}
	return payload
}
