package reservations

import (
	"errors"
	"fmt"
)

// ErrSlotTaken is returned when a (table, slot) pair already has a
// reservation, whether caught by the fast-path lookup or by the storage
// unique constraint.
var ErrSlotTaken = errors.New("reservations: table already reserved for this slot")

// ErrNotFound is returned when a reservation id has no row.
var ErrNotFound = errors.New("reservations: reservation not found")

// ValidationError reports the first reservation field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("reservations: invalid %s: %s", e.Field, e.Message)
}

// IsValidation reports whether err is a ValidationError, returning it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
