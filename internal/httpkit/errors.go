package httpkit

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsUniqueViolation reports SQLSTATE 23505, which the repositories map
// to their domain-level "already exists" sentinels.
func IsUniqueViolation(err error) bool {
	return pgCode(err) == "23505"
}

// IsUndefinedTable reports SQLSTATE 42P01, used by the deep health
// check to tell "schema not migrated" apart from a broken connection.
func IsUndefinedTable(err error) bool {
	return pgCode(err) == "42P01"
}
