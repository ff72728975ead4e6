package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrNotFound is returned by service functions when the requested vehicle
// is not part of the loaded roster.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned when input fails validation (e.g. a roster
// without the key column, or a timestamp in the wrong format).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrNoRoster is returned by actions that need a roster before one was loaded.
var ErrNoRoster = errors.New("roster not loaded")

// ErrDuplicateIdentifier is wrapped by DuplicateIdentifierError. Keying the
// journal by a non-unique identifier would merge distinct vehicles, so a
// roster containing duplicates is rejected as a whole.
var ErrDuplicateIdentifier = errors.New("duplicate identifier")

// ErrMalformedTimestamp is returned by ParseTimestamp for strings that do not
// match TimestampLayout. Loaders recover from it by treating the field as unset.
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// DuplicateIdentifierError names a roster identifier that occurs more than
// once together with the 1-based source rows it was found on.
type DuplicateIdentifierError struct {
	ID   VehicleID
	Rows []int
}

func (e *DuplicateIdentifierError) Error() string {
	rows := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		rows[i] = strconv.Itoa(r)
	}
	return fmt.Sprintf("%s: %q on rows %s", ErrDuplicateIdentifier, e.ID, strings.Join(rows, ", "))
}

func (e *DuplicateIdentifierError) Unwrap() error { return ErrDuplicateIdentifier }
