package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/message"
	"go.uber.org/zap"
)

// SendOutcome tells the caller whether a message went out now or was parked for retry.
type SendOutcome struct {
	Sent   bool `json:"sent"`
	Queued bool `json:"queued"`
}

// MessagingService sends ad-hoc and test messages.
type MessagingService struct {
	sender Notifier
	queue  Enqueuer
	logger *zap.Logger
}

func NewMessagingService(sender Notifier, queue Enqueuer, logger *zap.Logger) (*MessagingService, error) {
	if sender == nil || queue == nil {
		return nil, fmt.Errorf("sender and pending queue are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessagingService{sender: sender, queue: queue, logger: logger}, nil
}

// Send delivers an ad-hoc message, queueing it as a general reminder when delivery fails.
func (s *MessagingService) Send(ctx context.Context, phone, text string) (SendOutcome, error) {
	if strings.TrimSpace(phone) == "" {
		return SendOutcome{}, fmt.Errorf("%w: phone is required", domain.ErrValidation)
	}
	if strings.TrimSpace(text) == "" {
		return SendOutcome{}, fmt.Errorf("%w: message is required", domain.ErrValidation)
	}

	if notify(ctx, s.logger, s.sender, s.queue, phone, text, domain.KindGeneral, "") {
		return SendOutcome{Sent: true}, nil
	}
	return SendOutcome{Queued: true}, nil
}

// SendTest sends the fixed test text and reports delivery without queueing.
func (s *MessagingService) SendTest(ctx context.Context, phone string) error {
	if strings.TrimSpace(phone) == "" {
		return fmt.Errorf("%w: phone is required", domain.ErrValidation)
	}
	return s.sender.Send(ctx, phone, message.TestText)
}
