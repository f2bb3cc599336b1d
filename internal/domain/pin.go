package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	MaxPinAttempts  = 3
	PinLockDuration = 15 * time.Minute
	PinLength       = 6
)

var pinPattern = regexp.MustCompile(`^[0-9]{6}$`)

// PinRecord stores a user's hashed PIN and lockout state.
type PinRecord struct {
	UserID      string
	HashedPin   string
	Phone       string
	Attempts    int
	LastAttempt *time.Time
	LockedUntil *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ValidatePin checks the PIN format: exactly six digits.
func ValidatePin(pin string) error {
	if !pinPattern.MatchString(pin) {
		return fmt.Errorf("%w: PIN must be exactly %d digits", ErrValidation, PinLength)
	}
	return nil
}

func (r *PinRecord) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: userId is required", ErrValidation)
	}
	if strings.TrimSpace(r.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if r.HashedPin == "" {
		return fmt.Errorf("%w: hashed pin is required", ErrValidation)
	}
	return nil
}

// LockError returns a PinLockedError while the lock is active at now.
func (r *PinRecord) LockError(now time.Time) error {
	if r.LockedUntil != nil && r.LockedUntil.After(now) {
		return &PinLockedError{Until: *r.LockedUntil}
	}
	return nil
}

// RegisterFailure counts a wrong PIN at now and locks the record once MaxPinAttempts is reached.
// The returned error is a PinLockedError when the lock engaged, ErrInvalidPin otherwise.
func (r *PinRecord) RegisterFailure(now time.Time) error {
	if r.LockedUntil != nil && !r.LockedUntil.After(now) {
		// expired lock: start a fresh round of attempts
		r.Attempts = 0
		r.LockedUntil = nil
	}

	r.Attempts++
	r.LastAttempt = &now

	if r.Attempts >= MaxPinAttempts {
		until := now.Add(PinLockDuration)
		r.LockedUntil = &until
		return &PinLockedError{Until: until}
	}
	return fmt.Errorf("%w: %d of %d attempts used", ErrInvalidPin, r.Attempts, MaxPinAttempts)
}

// Reset clears attempts and any lock.
func (r *PinRecord) Reset() {
	r.Attempts = 0
	r.LastAttempt = nil
	r.LockedUntil = nil
}
