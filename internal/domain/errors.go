package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrInvalidPin = errors.New("invalid pin")
)

// PinLockedError rejects PIN checks until Until has passed.
type PinLockedError struct {
	Until time.Time
}

func (e *PinLockedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("pin verification locked until %s", e.Until.UTC().Format(time.RFC3339))
}

// IsPinLocked reports whether err carries a PIN lock and returns it.
func IsPinLocked(err error) (*PinLockedError, bool) {
	var locked *PinLockedError
	if errors.As(err, &locked) {
		return locked, true
	}
	return nil, false
}
