package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Storage-level error sentinels. The planner service translates these into
// its own error taxonomy before they reach a caller.
var (
	// ErrNotFound is returned when a mutation targets a record that does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrForbidden is returned when a mutation targets a record owned by another user.
	ErrForbidden = errors.New("record owned by another user")

	// ErrDuplicateToken is returned when a freshly generated share token
	// collides with one already issued.
	ErrDuplicateToken = errors.New("share token already issued")

	// ErrDuplicateEmail is returned when registering an email that is taken.
	ErrDuplicateEmail = errors.New("email already registered")
)

// pgUniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
