package queue

import (
	"context"
	"fmt"
)

// Publisher publishes reminder events to a queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, event ReminderExhaustedEvent) error
	Close() error
}

// MessageHandler handles a consumed queue message.
type MessageHandler func(ctx context.Context, event ReminderExhaustedEvent) error

// Consumer consumes reminder events from a queue.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

// ExhaustedQueue receives one event per pending reminder that reached the retry ceiling.
const ExhaustedQueue = "reminders.exhausted"

var workQueues = []string{ExhaustedQueue}

// DLQName returns the dead-letter queue name for a work queue, e.g. dlq.reminders.exhausted.
func DLQName(queue string) string {
	return fmt.Sprintf("dlq.%s", queue)
}

func WorkQueueNames() []string {
	return append([]string(nil), workQueues...)
}

func DLQNames() []string {
	queues := make([]string, 0, len(workQueues))
	for _, q := range workQueues {
		queues = append(queues, DLQName(q))
	}
	return queues
}
