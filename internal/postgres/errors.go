package postgres

import (
	"database/sql"
	"errors"

	ierr "github.com/brfledger/utilitybilling/internal/errors"
	"github.com/lib/pq"
)

const (
	pqUniqueViolation       = "23505"
	pqSerializationFailure  = "40001"
	pqDeadlockDetected      = "40P01"
	pqForeignKeyViolation   = "23503"
	pqExclusionViolation    = "23P01"
	pqCheckConstraintFailed = "23514"
)

// IsUniqueViolation reports whether err is a unique constraint violation
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

// WrapError converts a driver error into a marked ierr error.
// sql.ErrNoRows becomes ErrNotFound; unique violations ErrAlreadyExists; serialization
// failures and deadlocks ErrConcurrencyConflict; constraint failures ErrDataIntegrity.
func WrapError(err error, hint string, details map[string]any) error {
	if err == nil {
		return nil
	}

	b := ierr.WithError(err).WithHint(hint)
	if details != nil {
		b = b.WithReportableDetails(details)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return b.Mark(ierr.ErrNotFound)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return b.Mark(ierr.ErrAlreadyExists)
		case pqSerializationFailure, pqDeadlockDetected:
			return b.Mark(ierr.ErrConcurrencyConflict)
		case pqForeignKeyViolation, pqExclusionViolation, pqCheckConstraintFailed:
			return b.Mark(ierr.ErrDataIntegrity)
		}
	}
	return b.Mark(ierr.ErrDatabase)
}
