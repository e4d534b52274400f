package controllers

import (
	"net/http"
	"strings"

	"github.com/diegocastellanos/booklend-backend/api/middleware"
	"github.com/diegocastellanos/booklend-backend/api/responses"
	"github.com/diegocastellanos/booklend-backend/api/validators"
	userssvc "github.com/diegocastellanos/booklend-backend/internal/users"
	"github.com/diegocastellanos/booklend-backend/pkg/enums"
	pkgerrors "github.com/diegocastellanos/booklend-backend/pkg/errors"
	"github.com/diegocastellanos/booklend-backend/pkg/logger"
	"github.com/diegocastellanos/booklend-backend/pkg/pagination"
)

// AdminListUsers returns the paginated member directory.
func AdminListUsers(svc userssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := userssvc.UserListFilters{
			Query: validators.SanitizeString(r.URL.Query().Get("q"), 120),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("role")); raw != "" {
			role, err := enums.ParseUserRole(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role filter"))
				return
			}
			filters.Role = &role
		}

		list, err := svc.List(r.Context(), userssvc.ListUsersInput{
			ActorRole: enums.UserRole(middleware.RoleFromContext(r.Context())),
			Filters:   filters,
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// AdminChangeUserRole assigns a member a new role.
func AdminChangeUserRole(svc userssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users service unavailable"))
			return
		}

		uid, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		targetID, err := refIDParam(r, "userId", "user id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body changeRoleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.ChangeRole(r.Context(), userssvc.ChangeRoleInput{
			UserID:      targetID,
			Role:        enums.UserRole(strings.TrimSpace(body.Role)),
			ActorUserID: uid,
			ActorRole:   enums.UserRole(middleware.RoleFromContext(r.Context())),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}
