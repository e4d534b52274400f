package controllers

import (
	"net/http"

	"github.com/diegocastellanos/booklend-backend/api/responses"
	"github.com/diegocastellanos/booklend-backend/api/validators"
	"github.com/diegocastellanos/booklend-backend/internal/auth"
	"github.com/diegocastellanos/booklend-backend/internal/users"
	pkgerrors "github.com/diegocastellanos/booklend-backend/pkg/errors"
	"github.com/diegocastellanos/booklend-backend/pkg/logger"
)

func writeCreatedUser(w http.ResponseWriter, dto *users.UserDTO) {
	responses.WriteSuccessStatus(w, http.StatusCreated, map[string]*users.UserDTO{
		"user": dto,
	})
}

// AuthRegister onboards a new member account and signs them in. The access
// token rides in the X-BL-Token header so clients can start an authenticated
// session without a second round trip.
func AuthRegister(reg auth.RegisterService, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reg == nil || svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if _, err := reg.Register(ctx, body); err != nil {
			if logg != nil {
				logg.Error(ctx, "register failed", err)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// Registration succeeded; a failed login here is a real fault, not
		// a bad credential, since we just stored the password.
		result, err := svc.Login(ctx, auth.LoginRequest{Email: body.Email, Password: body.Password})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		w.Header().Set("X-BL-Token", result.AccessToken)
		writeCreatedUser(w, result.User)
	}
}

// AdminAuthRegister bootstraps an administrator account. The router only
// mounts it outside production.
func AdminAuthRegister(reg auth.AdminRegisterService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reg == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body auth.AdminRegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := reg.Register(ctx, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		writeCreatedUser(w, dto)
	}
}
