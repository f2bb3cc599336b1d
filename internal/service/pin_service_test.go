package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

func newTestPinService(t *testing.T, repo *memPinRepo, sender *fakeNotifier) *PinService {
	t.Helper()

	svc, err := NewPinService(repo, sender, &fakeEnqueuer{}, nil)
	if err != nil {
		t.Fatalf("NewPinService() unexpected error = %v", err)
	}
	svc.now = fixedClock
	// MinCost keeps the suite fast.
	svc.hash = func(pin string) (string, error) {
		hashed, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.MinCost)
		return string(hashed), err
	}
	return svc
}

func TestPinServiceCreateAndVerify(t *testing.T) {
	t.Parallel()

	repo := newMemPinRepo()
	sender := &fakeNotifier{}
	svc := newTestPinService(t, repo, sender)
	ctx := context.Background()

	if err := svc.Create(ctx, "user-1", "123456", "0241234567"); err != nil {
		t.Fatalf("Create() unexpected error = %v", err)
	}

	stored, err := repo.GetByUserID(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetByUserID() unexpected error = %v", err)
	}
	if stored.HashedPin == "123456" || !strings.HasPrefix(stored.HashedPin, "$2") {
		t.Fatalf("HashedPin = %q, want a bcrypt hash", stored.HashedPin)
	}
	if stored.Phone != "233241234567" {
		t.Fatalf("Phone = %q, want normalized", stored.Phone)
	}

	if err := svc.Verify(ctx, "user-1", "123456"); err != nil {
		t.Fatalf("Verify() unexpected error = %v", err)
	}

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("notices = %d, want 1", len(msgs))
	}
	if strings.Contains(msgs[0].Message, "123456") {
		t.Fatalf("notice %q must not contain the PIN", msgs[0].Message)
	}

	if err := svc.Create(ctx, "user-1", "654321", "0241234567"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second Create() error = %v, want ErrConflict", err)
	}
}

func TestPinServiceCreateRejectsBadFormat(t *testing.T) {
	t.Parallel()

	for _, pin := range []string{"12345", "1234567", "12a456", ""} {
		svc := newTestPinService(t, newMemPinRepo(), &fakeNotifier{})
		if err := svc.Create(context.Background(), "user-1", pin, "0241234567"); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("Create(%q) error = %v, want ErrValidation", pin, err)
		}
	}
}

func TestPinServiceLocksAfterThreeFailures(t *testing.T) {
	t.Parallel()

	repo := newMemPinRepo()
	svc := newTestPinService(t, repo, &fakeNotifier{})
	ctx := context.Background()

	if err := svc.Create(ctx, "user-1", "123456", "0241234567"); err != nil {
		t.Fatalf("Create() unexpected error = %v", err)
	}

	for i := 1; i < domain.MaxPinAttempts; i++ {
		err := svc.Verify(ctx, "user-1", "000000")
		if !errors.Is(err, domain.ErrInvalidPin) {
			t.Fatalf("Verify() #%d error = %v, want ErrInvalidPin", i, err)
		}
	}

	err := svc.Verify(ctx, "user-1", "000000")
	locked, ok := domain.IsPinLocked(err)
	if !ok {
		t.Fatalf("third Verify() error = %v, want PinLockedError", err)
	}
	if want := fixedNow.Add(domain.PinLockDuration); !locked.Until.Equal(want) {
		t.Fatalf("locked until %v, want %v", locked.Until, want)
	}

	savesBefore := repo.saves
	if _, ok := domain.IsPinLocked(svc.Verify(ctx, "user-1", "123456")); !ok {
		t.Fatal("correct PIN during lock should be rejected")
	}
	stored, _ := repo.GetByUserID(ctx, "user-1")
	if stored.Attempts != domain.MaxPinAttempts {
		t.Fatalf("Attempts = %d, want %d", stored.Attempts, domain.MaxPinAttempts)
	}
	if repo.saves != savesBefore {
		t.Fatal("attempt during lock should not be persisted")
	}

	svc.now = func() time.Time { return fixedNow.Add(domain.PinLockDuration + time.Second) }
	if err := svc.Verify(ctx, "user-1", "123456"); err != nil {
		t.Fatalf("Verify() after lock expiry error = %v", err)
	}
	stored, _ = repo.GetByUserID(ctx, "user-1")
	if stored.Attempts != 0 || stored.LockedUntil != nil {
		t.Fatalf("record after success = %+v, want reset", stored)
	}
}

func TestPinServiceConcurrentGuessesStopAtLock(t *testing.T) {
	t.Parallel()

	repo := newMemPinRepo()
	svc := newTestPinService(t, repo, &fakeNotifier{})
	ctx := context.Background()
	if err := svc.Create(ctx, "user-1", "123456", "0241234567"); err != nil {
		t.Fatalf("Create() unexpected error = %v", err)
	}

	var compared atomic.Int32
	svc.compare = func(hashed, pin string) error {
		compared.Add(1)
		return comparePin(hashed, pin)
	}

	const guesses = 30
	var (
		wg      sync.WaitGroup
		invalid atomic.Int32
		locked  atomic.Int32
	)
	for i := 0; i < guesses; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := svc.Verify(ctx, "user-1", "000000")
			switch {
			case errors.Is(err, domain.ErrInvalidPin):
				invalid.Add(1)
			case err != nil:
				if _, ok := domain.IsPinLocked(err); ok {
					locked.Add(1)
				}
			}
		}()
	}
	wg.Wait()

	if got := compared.Load(); got != domain.MaxPinAttempts {
		t.Fatalf("PIN compared %d times, want %d", got, domain.MaxPinAttempts)
	}
	if invalid.Load() != domain.MaxPinAttempts-1 || locked.Load() != guesses-(domain.MaxPinAttempts-1) {
		t.Fatalf("invalid=%d locked=%d, want %d and %d", invalid.Load(), locked.Load(), domain.MaxPinAttempts-1, guesses-(domain.MaxPinAttempts-1))
	}
	stored, _ := repo.GetByUserID(ctx, "user-1")
	if stored.Attempts != domain.MaxPinAttempts || stored.LockedUntil == nil {
		t.Fatalf("stored = %+v, want %d attempts and a lock", stored, domain.MaxPinAttempts)
	}
	if _, ok := domain.IsPinLocked(svc.Verify(ctx, "user-1", "123456")); !ok {
		t.Fatal("correct PIN after the burst should be rejected while locked")
	}
}

func TestPinServiceUpdate(t *testing.T) {
	t.Parallel()

	repo := newMemPinRepo()
	svc := newTestPinService(t, repo, &fakeNotifier{})
	ctx := context.Background()

	if err := svc.Create(ctx, "user-1", "123456", "0241234567"); err != nil {
		t.Fatalf("Create() unexpected error = %v", err)
	}

	if err := svc.Update(ctx, "user-1", "999999", "222222", ""); !errors.Is(err, domain.ErrInvalidPin) {
		t.Fatalf("Update() with wrong old PIN error = %v, want ErrInvalidPin", err)
	}
	stored, _ := repo.GetByUserID(ctx, "user-1")
	if stored.Attempts != 1 {
		t.Fatalf("Attempts after wrong old PIN = %d, want 1", stored.Attempts)
	}

	if err := svc.Update(ctx, "user-1", "123456", "22222", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Update() with bad new PIN error = %v, want ErrValidation", err)
	}

	if err := svc.Update(ctx, "user-1", "123456", "222222", "0551234567"); err != nil {
		t.Fatalf("Update() unexpected error = %v", err)
	}
	if err := svc.Verify(ctx, "user-1", "222222"); err != nil {
		t.Fatalf("Verify() with new PIN error = %v", err)
	}
	stored, _ = repo.GetByUserID(ctx, "user-1")
	if stored.Phone != "233551234567" {
		t.Fatalf("Phone = %q, want updated phone", stored.Phone)
	}
}

func TestPinServiceDeleteAndHasPin(t *testing.T) {
	t.Parallel()

	repo := newMemPinRepo()
	sender := &fakeNotifier{}
	svc := newTestPinService(t, repo, sender)
	ctx := context.Background()

	if err := svc.Delete(ctx, "user-1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Delete() unknown user error = %v, want ErrNotFound", err)
	}
	if err := svc.Create(ctx, "user-1", "123456", "0241234567"); err != nil {
		t.Fatalf("Create() unexpected error = %v", err)
	}

	has, err := svc.HasPin(ctx, "user-1")
	if err != nil || !has {
		t.Fatalf("HasPin() = %v, %v, want true", has, err)
	}
	if err := svc.Delete(ctx, "user-1"); err != nil {
		t.Fatalf("Delete() unexpected error = %v", err)
	}
	has, err = svc.HasPin(ctx, "user-1")
	if err != nil || has {
		t.Fatalf("HasPin() after delete = %v, %v, want false", has, err)
	}

	if err := svc.Verify(ctx, "user-1", "123456"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Verify() after delete error = %v, want ErrNotFound", err)
	}
	if _, err := svc.HasPin(ctx, " "); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("HasPin() blank error = %v, want ErrValidation", err)
	}
}
