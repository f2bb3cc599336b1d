package service

import (
	"context"
	"fmt"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/observability"
	"go.uber.org/zap"
)

// DueReminder is one message a producer decided to send now.
type DueReminder struct {
	Recipient   string
	Message     string
	Kind        domain.ReminderKind
	ReferenceID string
	// FollowUps are sent only after this reminder was delivered.
	FollowUps []DueReminder
}

// ReminderProducer finds reminders owed at a point in time and records their delivery.
type ReminderProducer interface {
	Name() string
	FindDue(ctx context.Context, now time.Time) ([]DueReminder, error)
	MarkSent(ctx context.Context, reminder DueReminder, now time.Time) error
}

// MarkerSource exposes the markers a producer owns so queued retries can set them too.
type MarkerSource interface {
	Markers() map[domain.ReminderKind]MarkerFunc
}

// RunResult counts the reminders one producer run delivered, the ones parked for retry and
// the ones left to an entry that is already parked.
type RunResult struct {
	Sent     int `json:"sent"`
	Queued   int `json:"queued"`
	Deferred int `json:"deferred"`
}

// ReminderDriver sends what a producer finds. Send failures are parked in the pending queue
// and never returned to the caller. A reminder whose copy is already parked is left to the sweep.
type ReminderDriver struct {
	sender  Notifier
	queue   ReminderQueue
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewReminderDriver(sender Notifier, queue ReminderQueue, logger *zap.Logger) (*ReminderDriver, error) {
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if queue == nil {
		return nil, fmt.Errorf("pending queue is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReminderDriver{
		sender: sender,
		queue:  queue,
		logger: logger,
		now:    time.Now,
	}, nil
}

func (d *ReminderDriver) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

func (d *ReminderDriver) Run(ctx context.Context, producer ReminderProducer) (RunResult, error) {
	now := d.now().UTC()
	logger := observability.WithContextLogger(d.logger, ctx).With(zap.String("producer", producer.Name()))

	due, err := producer.FindDue(ctx, now)
	if err != nil {
		return RunResult{}, fmt.Errorf("%s: failed to find due reminders: %w", producer.Name(), err)
	}

	var result RunResult
	for _, reminder := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		d.deliver(ctx, logger, producer, reminder, now, &result)
	}

	logger.Info("reminder run finished",
		zap.Int("due", len(due)),
		zap.Int("sent", result.Sent),
		zap.Int("queued", result.Queued),
		zap.Int("deferred", result.Deferred),
	)
	return result, nil
}

func (d *ReminderDriver) deliver(
	ctx context.Context,
	logger *zap.Logger,
	producer ReminderProducer,
	reminder DueReminder,
	now time.Time,
	result *RunResult,
) {
	if reminder.ReferenceID != "" {
		parked, err := d.queue.Outstanding(ctx, reminder.Kind, reminder.ReferenceID)
		if err != nil {
			logger.Error("failed to check pending reminders, skipping",
				zap.String("kind", reminder.Kind.String()),
				zap.String("referenceId", reminder.ReferenceID),
				zap.Error(err),
			)
			result.Deferred++
			return
		}
		if parked {
			result.Deferred++
			logger.Debug("reminder already queued for retry",
				zap.String("kind", reminder.Kind.String()),
				zap.String("referenceId", reminder.ReferenceID),
			)
			return
		}
	}

	if err := d.sender.Send(ctx, reminder.Recipient, reminder.Message); err != nil {
		result.Queued++
		if _, qErr := d.queue.Enqueue(ctx, reminder.Recipient, reminder.Message, reminder.Kind, reminder.ReferenceID); qErr != nil {
			logger.Error("failed to queue undelivered reminder",
				zap.String("kind", reminder.Kind.String()),
				zap.String("recipient", reminder.Recipient),
				zap.Error(qErr),
			)
		}
		return
	}

	result.Sent++
	if err := producer.MarkSent(ctx, reminder, now); err != nil {
		logger.Warn("failed to mark reminder sent",
			zap.String("kind", reminder.Kind.String()),
			zap.String("referenceId", reminder.ReferenceID),
			zap.Error(err),
		)
	}

	for _, followUp := range reminder.FollowUps {
		d.deliver(ctx, logger, producer, followUp, now, result)
	}
}

// markByKind runs the marker registered for the reminder kind; kinds without a marker are no-ops.
func markByKind(ctx context.Context, markers map[domain.ReminderKind]MarkerFunc, reminder DueReminder, now time.Time) error {
	fn, ok := markers[reminder.Kind]
	if !ok || reminder.ReferenceID == "" {
		return nil
	}
	return fn(ctx, reminder.ReferenceID, now)
}

// notify sends a one-off notice and parks it on failure. It never fails the caller.
func notify(ctx context.Context, logger *zap.Logger, sender Notifier, queue Enqueuer, recipient, text string, kind domain.ReminderKind, referenceID string) bool {
	if err := sender.Send(ctx, recipient, text); err == nil {
		return true
	}
	if _, err := queue.Enqueue(ctx, recipient, text, kind, referenceID); err != nil {
		observability.WithContextLogger(logger, ctx).Error("failed to queue undelivered notice",
			zap.String("kind", kind.String()),
			zap.String("recipient", recipient),
			zap.Error(err),
		)
	}
	return false
}
