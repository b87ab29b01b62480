package store

import (
	"errors"
	"fmt"

	sqlite "modernc.org/sqlite"
)

// Error kinds surfaced by the store. Callers distinguish them with
// errors.Is; anything else is a storage-level failure from the driver.
var (
	// ErrConstraint is returned when a create collides with an existing id.
	ErrConstraint = errors.New("constraint violation")
	// ErrNotFound is returned when a referenced id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrValidation is returned when a required field is missing or malformed.
	ErrValidation = errors.New("validation failed")
)

// sqliteConstraint is the SQLITE_CONSTRAINT primary result code.
const sqliteConstraint = 19

// translateConstraint maps a SQLite constraint failure (duplicate primary
// key) onto ErrConstraint so callers don't depend on driver error types.
func translateConstraint(err error, id string) error {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code()&0xff == sqliteConstraint {
		return fmt.Errorf("id %q already exists: %w", id, ErrConstraint)
	}
	return err
}
