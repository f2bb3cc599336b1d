package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/message"
	"github.com/awopa/maternal-notify/internal/provider"
	"github.com/awopa/maternal-notify/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const pinHashCost = 10

// PinService manages per-user PINs with attempt counting and a temporary lock.
type PinService struct {
	pins    repository.PinRepository
	sender  Notifier
	queue   Enqueuer
	logger  *zap.Logger
	now     func() time.Time
	hash    func(pin string) (string, error)
	compare func(hashed, pin string) error
}

func NewPinService(pins repository.PinRepository, sender Notifier, queue Enqueuer, logger *zap.Logger) (*PinService, error) {
	if pins == nil {
		return nil, fmt.Errorf("pin repository is required")
	}
	if sender == nil || queue == nil {
		return nil, fmt.Errorf("sender and pending queue are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PinService{
		pins:    pins,
		sender:  sender,
		queue:   queue,
		logger:  logger,
		now:     time.Now,
		hash:    hashPin,
		compare: comparePin,
	}, nil
}

func hashPin(pin string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), pinHashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash pin: %w", err)
	}
	return string(hashed), nil
}

func comparePin(hashed, pin string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pin))
}

func (s *PinService) Create(ctx context.Context, userID, pin, phone string) error {
	userID = strings.TrimSpace(userID)
	if err := domain.ValidatePin(pin); err != nil {
		return err
	}

	exists, err := s.pins.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check existing pin: %w", err)
	}
	if exists {
		return fmt.Errorf("%w: a PIN already exists for this user", domain.ErrConflict)
	}

	hashed, err := s.hash(pin)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	record := &domain.PinRecord{
		UserID:    userID,
		HashedPin: hashed,
		Phone:     provider.NormalizePhone(phone),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := record.Validate(); err != nil {
		return err
	}
	if err := s.pins.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to store pin: %w", err)
	}

	s.logger.Info("pin created", zap.String("userId", userID))
	notify(ctx, s.logger, s.sender, s.queue, record.Phone, message.PinChanged("created"), domain.KindPinNotice, userID)
	return nil
}

// Verify checks pin for userID. While locked it returns *domain.PinLockedError without
// counting the attempt; a wrong PIN counts and may engage the lock. Checks for one user
// run one at a time under the record's row lock.
func (s *PinService) Verify(ctx context.Context, userID, pin string) error {
	return s.pins.Modify(ctx, userID, func(rec *domain.PinRecord) (bool, error) {
		now := s.now().UTC()
		if err := rec.LockError(now); err != nil {
			return false, err
		}
		if failed, err := s.check(rec, pin, now); failed || err != nil {
			return failed, err
		}

		if rec.Attempts == 0 && rec.LastAttempt == nil && rec.LockedUntil == nil {
			return false, nil
		}
		rec.Reset()
		return true, nil
	})
}

// Update replaces the PIN once oldPin verifies. A wrong oldPin counts as a failed attempt.
func (s *PinService) Update(ctx context.Context, userID, oldPin, newPin, phone string) error {
	if err := domain.ValidatePin(newPin); err != nil {
		return err
	}
	hashed, err := s.hash(newPin)
	if err != nil {
		return err
	}

	var notifyPhone string
	err = s.pins.Modify(ctx, userID, func(rec *domain.PinRecord) (bool, error) {
		now := s.now().UTC()
		if err := rec.LockError(now); err != nil {
			return false, err
		}
		if failed, err := s.check(rec, oldPin, now); failed || err != nil {
			return failed, err
		}

		rec.HashedPin = hashed
		if p := provider.NormalizePhone(phone); p != "" {
			rec.Phone = p
		}
		rec.Reset()
		notifyPhone = rec.Phone
		return true, nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("pin updated", zap.String("userId", userID))
	notify(ctx, s.logger, s.sender, s.queue, notifyPhone, message.PinChanged("updated"), domain.KindPinNotice, userID)
	return nil
}

func (s *PinService) Delete(ctx context.Context, userID string) error {
	record, err := s.pins.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.pins.Delete(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("pin deleted", zap.String("userId", userID))
	notify(ctx, s.logger, s.sender, s.queue, record.Phone, message.PinDeletedText, domain.KindPinNotice, userID)
	return nil
}

func (s *PinService) HasPin(ctx context.Context, userID string) (bool, error) {
	if strings.TrimSpace(userID) == "" {
		return false, fmt.Errorf("%w: userId is required", domain.ErrValidation)
	}
	return s.pins.Exists(ctx, userID)
}

// check compares pin with the stored hash. On a mismatch it registers the failure on rec
// and reports failed so the caller persists it.
func (s *PinService) check(rec *domain.PinRecord, pin string, now time.Time) (failed bool, err error) {
	err = s.compare(rec.HashedPin, pin)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, fmt.Errorf("failed to compare pin: %w", err)
	}

	failure := rec.RegisterFailure(now)
	if _, locked := domain.IsPinLocked(failure); locked {
		s.logger.Warn("pin locked after repeated failures",
			zap.String("userId", rec.UserID),
			zap.Int("attempts", rec.Attempts),
		)
	}
	return true, failure
}
