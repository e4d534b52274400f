package controllers

import (
	"net/http"
	"strings"

	"github.com/diegocastellanos/booklend-backend/api/middleware"
	"github.com/diegocastellanos/booklend-backend/api/responses"
	"github.com/diegocastellanos/booklend-backend/api/validators"
	loansvc "github.com/diegocastellanos/booklend-backend/internal/loans"
	"github.com/diegocastellanos/booklend-backend/pkg/enums"
	pkgerrors "github.com/diegocastellanos/booklend-backend/pkg/errors"
	"github.com/diegocastellanos/booklend-backend/pkg/logger"
)

// AdminListLoans returns a paginated list of all loans for the back office.
func AdminListLoans(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}

		params, filters, err := parseLoanListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListAdmin(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type loanDecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
}

// AdminLoanDecision applies an administrator's approve or reject ruling.
func AdminLoanDecision(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}

		uid, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		loanID, err := loanIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body loanDecisionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.Decision(r.Context(), loansvc.DecisionInput{
			LoanID:      loanID,
			Decision:    enums.LoanDecision(strings.TrimSpace(body.Decision)),
			ActorUserID: uid,
			ActorRole:   enums.UserRole(middleware.RoleFromContext(r.Context())),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"decision": body.Decision})
	}
}

// AdminPurgeLoan deletes a rejected loan record.
func AdminPurgeLoan(svc loansvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "loan service unavailable"))
			return
		}

		uid, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		loanID, err := loanIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		err = svc.Purge(r.Context(), loansvc.PurgeInput{
			LoanID:      loanID,
			ActorUserID: uid,
			ActorRole:   enums.UserRole(middleware.RoleFromContext(r.Context())),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "purged"})
	}
}
