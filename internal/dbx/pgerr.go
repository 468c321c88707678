package dbx

import (
	"errors"
	"fmt"

	"github.com/dmitrijs2005/textli/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err carries a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// WrapError maps unique violations to common.ErrorConflict and wraps
// everything else as a db error.
func WrapError(err error) error {
	if IsUniqueViolation(err) {
		return common.ErrorConflict
	}
	return fmt.Errorf("db error: %w", err)
}
