package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/observability"
	"github.com/awopa/maternal-notify/internal/queue"
	"github.com/awopa/maternal-notify/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultSweepLimit = 500

// MarkerFunc records on the source entity that the reminder with referenceID was delivered.
type MarkerFunc func(ctx context.Context, referenceID string, now time.Time) error

// EventPublisher publishes reminder events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, queueName string, event queue.ReminderExhaustedEvent) error
}

// Enqueuer parks a failed reminder for a later sweep.
type Enqueuer interface {
	Enqueue(ctx context.Context, recipient, message string, kind domain.ReminderKind, referenceID string) (*domain.PendingReminder, error)
}

// ReminderQueue parks failed reminders and answers whether one is already parked.
type ReminderQueue interface {
	Enqueuer
	Outstanding(ctx context.Context, kind domain.ReminderKind, referenceID string) (bool, error)
}

// SweepResult counts the entries a sweep delivered and the ones that failed again.
type SweepResult struct {
	Sent    int  `json:"sent"`
	Failed  int  `json:"failed"`
	Skipped bool `json:"skipped,omitempty"`
}

// PendingQueue stores undelivered reminders and retries them on each sweep.
type PendingQueue struct {
	repo      repository.PendingReminderRepository
	sender    Notifier
	publisher EventPublisher
	metrics   *observability.Metrics
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string
	limit     int

	markersMu sync.RWMutex
	markers   map[domain.ReminderKind]MarkerFunc

	sweepMu sync.Mutex
}

func NewPendingQueue(repo repository.PendingReminderRepository, sender Notifier, logger *zap.Logger) (*PendingQueue, error) {
	if repo == nil {
		return nil, fmt.Errorf("pending reminder repository is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &PendingQueue{
		repo:    repo,
		sender:  sender,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
		limit:   defaultSweepLimit,
		markers: make(map[domain.ReminderKind]MarkerFunc),
	}, nil
}

func (q *PendingQueue) SetPublisher(publisher EventPublisher) {
	if q == nil {
		return
	}
	q.publisher = publisher
}

func (q *PendingQueue) SetMetrics(metrics *observability.Metrics) {
	if q == nil {
		return
	}
	q.metrics = metrics
}

// RegisterMarker binds the delivery marker of a kind. Kinds without a marker are only deleted on success.
func (q *PendingQueue) RegisterMarker(kind domain.ReminderKind, fn MarkerFunc) {
	if fn == nil {
		return
	}
	q.markersMu.Lock()
	defer q.markersMu.Unlock()
	q.markers[kind] = fn
}

// RegisterMarkers binds every marker a producer owns.
func (q *PendingQueue) RegisterMarkers(markers map[domain.ReminderKind]MarkerFunc) {
	for kind, fn := range markers {
		q.RegisterMarker(kind, fn)
	}
}

func (q *PendingQueue) marker(kind domain.ReminderKind) (MarkerFunc, bool) {
	q.markersMu.RLock()
	defer q.markersMu.RUnlock()
	fn, ok := q.markers[kind]
	return fn, ok
}

func (q *PendingQueue) Enqueue(
	ctx context.Context,
	recipient string,
	message string,
	kind domain.ReminderKind,
	referenceID string,
) (*domain.PendingReminder, error) {
	now := q.now().UTC()
	p := &domain.PendingReminder{
		ID:        q.newID(),
		Recipient: recipient,
		Message:   message,
		Kind:      kind,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ref := strings.TrimSpace(referenceID); ref != "" {
		p.ReferenceID = &ref
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := q.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to enqueue pending reminder: %w", err)
	}
	q.metrics.IncPendingEnqueued(kind.Domain())

	observability.WithContextLogger(q.logger, ctx).Info("reminder queued for retry",
		zap.String("pendingId", p.ID),
		zap.String("kind", kind.String()),
		zap.String("recipient", recipient),
	)
	return p, nil
}

// Outstanding reports whether an entry for kind and referenceID is still parked. The sweep
// owns its delivery from then on, exhausted entries included.
func (q *PendingQueue) Outstanding(ctx context.Context, kind domain.ReminderKind, referenceID string) (bool, error) {
	referenceID = strings.TrimSpace(referenceID)
	if referenceID == "" {
		return false, nil
	}
	exists, err := q.repo.ExistsOpen(ctx, kind, referenceID)
	if err != nil {
		return false, fmt.Errorf("failed to look up pending reminder: %w", err)
	}
	return exists, nil
}

// Sweep retries every entry below the retry ceiling, oldest first. A sweep that starts while
// another is running returns immediately with Skipped set.
func (q *PendingQueue) Sweep(ctx context.Context) (SweepResult, error) {
	if !q.sweepMu.TryLock() {
		q.logger.Info("pending sweep already running, skipping")
		return SweepResult{Skipped: true}, nil
	}
	defer q.sweepMu.Unlock()

	entries, err := q.repo.ListRetryable(ctx, q.limit)
	if err != nil {
		return SweepResult{}, fmt.Errorf("failed to load pending reminders: %w", err)
	}

	var result SweepResult
	for i := range entries {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		entry := entries[i]
		if entry.Exhausted() {
			continue
		}

		if err := q.sender.Send(ctx, entry.Recipient, entry.Message); err != nil {
			result.Failed++
			q.recordFailure(ctx, entry, err)
			continue
		}

		result.Sent++
		q.metrics.IncSweepOutcome("sent")
		q.markDelivered(ctx, entry)
	}

	q.logger.Info("pending sweep finished",
		zap.Int("loaded", len(entries)),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (q *PendingQueue) markDelivered(ctx context.Context, entry domain.PendingReminder) {
	logger := q.logger.With(zap.String("pendingId", entry.ID), zap.String("kind", entry.Kind.String()))

	if fn, ok := q.marker(entry.Kind); ok && entry.ReferenceID != nil {
		if err := fn(ctx, *entry.ReferenceID, q.now().UTC()); err != nil {
			logger.Warn("failed to mark reminder delivered on source record",
				zap.String("referenceId", *entry.ReferenceID),
				zap.Error(err),
			)
		}
	}

	if err := q.repo.Delete(ctx, entry.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Error("failed to delete delivered pending reminder", zap.Error(err))
	}
}

func (q *PendingQueue) recordFailure(ctx context.Context, entry domain.PendingReminder, sendErr error) {
	logger := q.logger.With(zap.String("pendingId", entry.ID), zap.String("kind", entry.Kind.String()))

	lastError := sendErr.Error()
	if err := q.repo.IncrementRetry(ctx, entry.ID, lastError); err != nil {
		logger.Error("failed to record pending reminder retry", zap.Error(err))
		q.metrics.IncSweepOutcome("failed")
		return
	}

	entry.RetryCount++
	entry.LastError = &lastError
	if !entry.Exhausted() {
		q.metrics.IncSweepOutcome("failed")
		return
	}

	q.metrics.IncSweepOutcome("exhausted")
	q.metrics.IncReminderExhausted(entry.Kind.Domain())
	logger.Warn("pending reminder exhausted its retries",
		zap.String("recipient", entry.Recipient),
		zap.Int("retryCount", entry.RetryCount),
		zap.String("lastError", lastError),
	)

	if q.publisher == nil {
		return
	}
	event := queue.NewReminderExhaustedEvent(entry, q.now())
	if id, ok := observability.CorrelationIDFromContext(ctx); ok {
		event.CorrelationID = id
	}
	if err := q.publisher.Publish(ctx, queue.ExhaustedQueue, event); err != nil {
		logger.Error("failed to publish reminder exhausted event", zap.Error(err))
	}
}

func (q *PendingQueue) List(ctx context.Context, params repository.PendingListParams) ([]domain.PendingReminder, int64, error) {
	items, total, err := q.repo.List(ctx, params)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list pending reminders: %w", err)
	}
	return items, total, nil
}
