package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/observability"
	"github.com/awopa/maternal-notify/internal/provider"
	"github.com/awopa/maternal-notify/internal/ratelimit"
	"github.com/awopa/maternal-notify/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier delivers one SMS. Implementations do not retry.
type Notifier interface {
	Send(ctx context.Context, recipient, message string) error
}

// EmailNotifier delivers one email.
type EmailNotifier interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Gateway sends SMS and email through the configured providers and records one
// NotificationAttempt per send.
type Gateway struct {
	attempts repository.AttemptRepository
	sms      provider.SMSSender
	mailer   provider.Mailer
	limiter  ratelimit.RateLimiter
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
	newID    func() string
}

func NewGateway(
	attempts repository.AttemptRepository,
	sms provider.SMSSender,
	limiter ratelimit.RateLimiter,
	logger *zap.Logger,
) (*Gateway, error) {
	if attempts == nil {
		return nil, fmt.Errorf("attempt repository is required")
	}
	if sms == nil {
		return nil, fmt.Errorf("sms sender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Gateway{
		attempts: attempts,
		sms:      sms,
		limiter:  limiter,
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
	}, nil
}

func (g *Gateway) SetMailer(mailer provider.Mailer) {
	if g == nil {
		return
	}
	g.mailer = mailer
}

func (g *Gateway) SetMetrics(metrics *observability.Metrics) {
	if g == nil {
		return
	}
	g.metrics = metrics
}

// Send delivers message to recipient by SMS.
func (g *Gateway) Send(ctx context.Context, recipient, message string) error {
	phone := provider.NormalizePhone(recipient)
	if phone == "" {
		return g.reject(ctx, domain.ChannelSMS, recipient, message, fmt.Errorf("%w: recipient is required", domain.ErrValidation))
	}
	if strings.TrimSpace(message) == "" {
		return g.reject(ctx, domain.ChannelSMS, phone, message, fmt.Errorf("%w: message is required", domain.ErrValidation))
	}

	return g.deliver(ctx, domain.ChannelSMS, phone, message, func(ctx context.Context) error {
		_, err := g.sms.SendSMS(ctx, phone, message)
		return err
	})
}

// SendEmail delivers an email through the configured mailer.
func (g *Gateway) SendEmail(ctx context.Context, to, subject, body string) error {
	if g.mailer == nil {
		return fmt.Errorf("email channel is not configured")
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return g.reject(ctx, domain.ChannelEmail, to, subject+"\n\n"+body, fmt.Errorf("%w: email recipient is required", domain.ErrValidation))
	}

	return g.deliver(ctx, domain.ChannelEmail, to, subject+"\n\n"+body, func(ctx context.Context) error {
		return g.mailer.SendEmail(ctx, to, subject, body)
	})
}

// reject records a send that could not be attempted as a failed attempt and returns cause.
func (g *Gateway) reject(ctx context.Context, channel domain.Channel, recipient, message string, cause error) error {
	reason := cause.Error()
	attempt := &domain.NotificationAttempt{
		ID:            g.newID(),
		Recipient:     strings.TrimSpace(recipient),
		Message:       message,
		Channel:       channel,
		Status:        domain.AttemptFailed,
		FailureReason: &reason,
		CreatedAt:     g.now().UTC(),
	}
	if err := g.attempts.Create(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record notification attempt: %w", err)
	}

	g.metrics.IncNotificationFailed(channel.String(), "invalid_request")
	observability.WithContextLogger(g.logger, ctx).Warn("notification rejected",
		zap.String("channel", channel.String()),
		zap.String("attemptId", attempt.ID),
		zap.Error(cause),
	)
	return cause
}

func (g *Gateway) deliver(
	ctx context.Context,
	channel domain.Channel,
	recipient string,
	message string,
	send func(ctx context.Context) error,
) error {
	logger := observability.WithContextLogger(g.logger, ctx).With(
		zap.String("channel", channel.String()),
		zap.String("recipient", recipient),
	)

	attempt := &domain.NotificationAttempt{
		ID:        g.newID(),
		Recipient: recipient,
		Message:   message,
		Channel:   channel,
		Status:    domain.AttemptPending,
		CreatedAt: g.now().UTC(),
	}
	if err := g.attempts.Create(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record notification attempt: %w", err)
	}

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx, channel.String()); err != nil {
			g.fail(ctx, logger, attempt, channel, err)
			return fmt.Errorf("rate limiter wait failed: %w", err)
		}
	}

	start := g.now()
	sendErr := send(ctx)
	g.metrics.ObserveNotificationSendDuration(channel.String(), g.now().Sub(start))

	if sendErr != nil {
		g.fail(ctx, logger, attempt, channel, sendErr)
		return fmt.Errorf("failed to send %s: %w", channel, sendErr)
	}

	// The provider accepted the message; a bookkeeping failure must not trigger a resend.
	if err := g.attempts.MarkSent(ctx, attempt.ID, g.now().UTC()); err != nil {
		logger.Error("failed to mark attempt as sent",
			zap.String("attemptId", attempt.ID),
			zap.Error(err),
		)
	}
	g.metrics.IncNotificationSent(channel.String())
	logger.Info("notification sent", zap.String("attemptId", attempt.ID))

	return nil
}

func (g *Gateway) fail(
	ctx context.Context,
	logger *zap.Logger,
	attempt *domain.NotificationAttempt,
	channel domain.Channel,
	cause error,
) {
	reason := provider.FailureLabel(cause)
	g.metrics.IncNotificationFailed(channel.String(), reason)

	if err := g.attempts.MarkFailed(ctx, attempt.ID, cause.Error()); err != nil {
		logger.Error("failed to mark attempt as failed",
			zap.String("attemptId", attempt.ID),
			zap.Error(err),
		)
	}
	logger.Warn("notification send failed",
		zap.String("attemptId", attempt.ID),
		zap.String("reason", reason),
		zap.Error(cause),
	)
}
