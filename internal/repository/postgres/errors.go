package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vedran77/nexttask/internal/repository"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, uniqueViolation)
}

// IsForeignKeyViolation reports whether err references a missing row.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, foreignKeyViolation)
}

// translate maps constraint violations onto repository sentinels.
func translate(err error) error {
	switch {
	case IsUniqueViolation(err):
		return repository.ErrConflict
	case IsForeignKeyViolation(err):
		return repository.ErrMissingReference
	default:
		return err
	}
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}
