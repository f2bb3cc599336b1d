package domain

import (
	"fmt"
	"strings"
	"time"
)

// Channel is the delivery medium of an attempt.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelSMS, ChannelEmail:
		return true
	}
	return false
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// AttemptStatus is the lifecycle state of a delivery attempt.
type AttemptStatus string

const (
	AttemptPending AttemptStatus = "pending"
	AttemptSent    AttemptStatus = "sent"
	AttemptFailed  AttemptStatus = "failed"
)

func (s AttemptStatus) String() string { return string(s) }

func (s AttemptStatus) IsValid() bool {
	switch s {
	case AttemptPending, AttemptSent, AttemptFailed:
		return true
	}
	return false
}

func (s AttemptStatus) IsTerminal() bool {
	return s == AttemptSent || s == AttemptFailed
}

func ParseAttemptStatusFromString(s string) (AttemptStatus, error) {
	st := AttemptStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid attempt status %q", ErrValidation, s)
	}
	return st, nil
}

// NotificationAttempt records one outbound delivery attempt. Rows are never deleted.
type NotificationAttempt struct {
	ID            string
	Recipient     string
	Message       string
	Channel       Channel
	Status        AttemptStatus
	FailureReason *string
	CreatedAt     time.Time
	SentAt        *time.Time
}

func (a *NotificationAttempt) Validate() error {
	if strings.TrimSpace(a.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if strings.TrimSpace(a.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	if !a.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, a.Channel)
	}
	if !a.Status.IsValid() {
		return fmt.Errorf("%w: invalid status %q", ErrValidation, a.Status)
	}
	return nil
}
