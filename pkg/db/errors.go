package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres error class 23505.
const uniqueViolationCode = "23505"

// IsUniqueViolation reports whether err is a Postgres unique violation.
// With a constraintName it matches that specific constraint only. Errors
// that did not surface as a pgconn.PgError fall back to message matching,
// which covers drivers that flatten the error chain.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != uniqueViolationCode {
			return false
		}
		return constraintName == "" || pgErr.ConstraintName == constraintName
	}
	msg := err.Error()
	if constraintName != "" {
		return strings.Contains(msg, constraintName)
	}
	return strings.Contains(msg, "duplicate key value")
}
