package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// RabbitMQConsumer delivers ReminderExhaustedEvents to a handler. Malformed messages go straight
// to the dead-letter queue; a handler failure is requeued once and dead-lettered when the
// redelivery fails too.
type RabbitMQConsumer struct {
	client   *RabbitMQ
	prefetch int
	logger   *zap.Logger
}

func NewRabbitMQConsumer(client *RabbitMQ, prefetch int, logger *zap.Logger) *RabbitMQConsumer {
	if prefetch < 1 {
		prefetch = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &RabbitMQConsumer{
		client:   client,
		prefetch: prefetch,
		logger:   logger,
	}
}

// Consume blocks until ctx is done, resubscribing with backoff whenever the channel drops.
func (c *RabbitMQConsumer) Consume(ctx context.Context, queue string, handler MessageHandler) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("consumer is not initialized")
	}
	if queue == "" {
		return fmt.Errorf("queue name is required")
	}
	if handler == nil {
		return fmt.Errorf("message handler is required")
	}

	backoff := reconnectBackoff
	for {
		err := c.subscribe(ctx, queue, handler)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("alert subscription dropped, resubscribing",
			zap.String("queue", queue),
			zap.Error(err),
			zap.Duration("backoff", backoff),
		)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
		backoff = nextBackoff(backoff)
	}
}

func (c *RabbitMQConsumer) subscribe(ctx context.Context, queue string, handler MessageHandler) error {
	ch, err := c.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close() //nolint:errcheck

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	deliveries, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("failed to consume queue %q: %w", queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			if err := c.handleDelivery(ctx, d, handler); err != nil {
				return err
			}
		}
	}
}

func (c *RabbitMQConsumer) handleDelivery(ctx context.Context, d amqp.Delivery, handler MessageHandler) error {
	var event ReminderExhaustedEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		c.logger.Warn("dead-lettering alert: invalid JSON", zap.Error(err), zap.String("messageId", d.MessageId))
		return reject(d)
	}
	if err := event.Validate(); err != nil {
		c.logger.Warn("dead-lettering alert: invalid payload", zap.Error(err), zap.String("reminderId", event.ReminderID))
		return reject(d)
	}

	logger := c.logger.With(zap.String("reminderId", event.ReminderID), zap.String("kind", event.Kind.String()))
	if err := handler(ctx, event); err != nil {
		if d.Redelivered {
			logger.Error("alert failed on redelivery, dead-lettering", zap.Error(err))
			return reject(d)
		}
		logger.Warn("alert failed, requeueing once", zap.Error(err))
		if nackErr := d.Nack(false, true); nackErr != nil {
			return fmt.Errorf("failed to requeue alert: %w", nackErr)
		}
		return nil
	}

	if err := d.Ack(false); err != nil {
		return fmt.Errorf("failed to ack alert: %w", err)
	}
	return nil
}

func reject(d amqp.Delivery) error {
	if err := d.Reject(false); err != nil {
		return fmt.Errorf("failed to dead-letter alert: %w", err)
	}
	return nil
}

// Close is a no-op: subscriptions close their channels when Consume returns, and the
// connection belongs to RabbitMQ.
func (c *RabbitMQConsumer) Close() error {
	return nil
}
