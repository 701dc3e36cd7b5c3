// ABOUTME: Sentinel errors returned by the sqlitehelper package
// ABOUTME: Callers classify them with errors.Is

package sqlitehelper

import "errors"

var (
	// ErrNotFound is returned when no row matches a lookup. A miss is an
	// expected outcome, not a failure; Has folds it into false.
	ErrNotFound = errors.New("row not found")

	// ErrSchemaRequired is returned by New when the table does not exist
	// and no column schema was supplied to create it.
	ErrSchemaRequired = errors.New("table does not exist and no columns were given")

	// ErrConfigConflict is returned by New for option combinations that
	// cannot work, such as FetchAll without Caching.
	ErrConfigConflict = errors.New("conflicting options")

	// ErrInvalidInput is returned for malformed write payloads.
	ErrInvalidInput = errors.New("invalid input")
)
