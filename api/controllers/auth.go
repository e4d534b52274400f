package controllers

import (
	"net/http"

	"github.com/diegocastellanos/booklend-backend/api/responses"
	"github.com/diegocastellanos/booklend-backend/api/validators"
	"github.com/diegocastellanos/booklend-backend/internal/auth"
	pkgerrors "github.com/diegocastellanos/booklend-backend/pkg/errors"
	"github.com/diegocastellanos/booklend-backend/pkg/logger"
)

// AuthLogin handles credential login. The access token rides both the
// response body and the X-BL-Token header so browser clients can pick
// either up.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		result, err := svc.Login(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		w.Header().Set("X-BL-Token", result.AccessToken)
		responses.WriteSuccess(w, result)
	}
}
