package house

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStoreUnavailable indicates the document is missing, unreadable or malformed.
	ErrStoreUnavailable = errors.New("house: store unavailable")

	// ErrNotFound matches every *NotFoundError.
	ErrNotFound = errors.New("house: room not found")

	// ErrDuplicateRoom indicates two rooms share a name case-insensitively.
	ErrDuplicateRoom = errors.New("house: duplicate room name")

	// ErrInvalidTemperature indicates a NaN or infinite temperature.
	ErrInvalidTemperature = errors.New("house: temperature must be a finite number")
)

// NotFoundError carries the requested name and every valid room name.
type NotFoundError struct {
	Name      string
	Available []string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("room %q not found; the house has no rooms", e.Name)
	}
	return fmt.Sprintf("room %q not found; available rooms: %s", e.Name, strings.Join(e.Available, ", "))
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// unavailable wraps cause so that it matches ErrStoreUnavailable.
func unavailable(path string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, path, cause)
}
