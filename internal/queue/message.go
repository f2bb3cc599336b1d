package queue

import (
	"fmt"
	"strings"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
)

// ReminderExhaustedEvent is the broker payload emitted when a pending reminder stops being retried.
type ReminderExhaustedEvent struct {
	ReminderID    string              `json:"reminderId"`
	Recipient     string              `json:"recipient"`
	Kind          domain.ReminderKind `json:"kind"`
	ReferenceID   string              `json:"referenceId,omitempty"`
	RetryCount    int                 `json:"retryCount"`
	LastError     string              `json:"lastError,omitempty"`
	CorrelationID string              `json:"correlationId,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	ExhaustedAt   time.Time           `json:"exhaustedAt"`
}

// NewReminderExhaustedEvent builds the event for an exhausted pending reminder.
func NewReminderExhaustedEvent(p domain.PendingReminder, at time.Time) ReminderExhaustedEvent {
	event := ReminderExhaustedEvent{
		ReminderID:  p.ID,
		Recipient:   p.Recipient,
		Kind:        p.Kind,
		RetryCount:  p.RetryCount,
		CreatedAt:   p.CreatedAt,
		ExhaustedAt: at.UTC(),
	}
	if p.ReferenceID != nil {
		event.ReferenceID = *p.ReferenceID
	}
	if p.LastError != nil {
		event.LastError = *p.LastError
	}
	return event
}

func (e ReminderExhaustedEvent) Validate() error {
	if strings.TrimSpace(e.ReminderID) == "" {
		return fmt.Errorf("reminderId is required")
	}
	if strings.TrimSpace(e.Recipient) == "" {
		return fmt.Errorf("recipient is required")
	}
	if !e.Kind.IsValid() {
		return fmt.Errorf("invalid kind %q", e.Kind)
	}
	if e.RetryCount < domain.MaxReminderRetries {
		return fmt.Errorf("retryCount %d is below the retry ceiling", e.RetryCount)
	}
	return nil
}
