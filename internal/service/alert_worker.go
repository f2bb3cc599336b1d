package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/message"
	"github.com/awopa/maternal-notify/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const minAlertConsumers = 1

// AlertWorker emails the operations address for every exhausted reminder event.
type AlertWorker struct {
	consumer    queue.Consumer
	mailer      EmailNotifier
	alertEmail  string
	concurrency int
	logger      *zap.Logger
}

func NewAlertWorker(
	consumer queue.Consumer,
	mailer EmailNotifier,
	alertEmail string,
	concurrency int,
	logger *zap.Logger,
) (*AlertWorker, error) {
	if consumer == nil {
		return nil, fmt.Errorf("consumer is required")
	}
	if mailer == nil {
		return nil, fmt.Errorf("mailer is required")
	}
	if strings.TrimSpace(alertEmail) == "" {
		return nil, fmt.Errorf("alert email is required")
	}
	if concurrency < minAlertConsumers {
		concurrency = minAlertConsumers
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AlertWorker{
		consumer:    consumer,
		mailer:      mailer,
		alertEmail:  alertEmail,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

// Start consumes the exhausted queue until ctx is done.
func (w *AlertWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1
		g.Go(func() error {
			w.logger.Info("alert worker started", zap.Int("workerId", workerID), zap.String("queue", queue.ExhaustedQueue))

			if err := w.consumer.Consume(groupCtx, queue.ExhaustedQueue, w.handle); err != nil {
				w.logger.Error("alert worker stopped with error", zap.Int("workerId", workerID), zap.Error(err))
				return err
			}

			w.logger.Info("alert worker stopped", zap.Int("workerId", workerID))
			return nil
		})
	}

	return g.Wait()
}

func (w *AlertWorker) handle(ctx context.Context, event queue.ReminderExhaustedEvent) error {
	pending := domain.PendingReminder{
		ID:         event.ReminderID,
		Recipient:  event.Recipient,
		Kind:       event.Kind,
		RetryCount: event.RetryCount,
		CreatedAt:  event.CreatedAt,
	}
	if event.ReferenceID != "" {
		ref := event.ReferenceID
		pending.ReferenceID = &ref
	}
	if event.LastError != "" {
		lastErr := event.LastError
		pending.LastError = &lastErr
	}

	subject, body := message.ExhaustedAlert(pending)
	if err := w.mailer.SendEmail(ctx, w.alertEmail, subject, body); err != nil {
		return fmt.Errorf("failed to email exhausted reminder alert: %w", err)
	}

	w.logger.Info("exhausted reminder alert sent",
		zap.String("reminderId", event.ReminderID),
		zap.String("kind", event.Kind.String()),
	)
	return nil
}
