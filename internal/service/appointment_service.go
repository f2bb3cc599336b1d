package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/message"
	"github.com/awopa/maternal-notify/internal/provider"
	"github.com/awopa/maternal-notify/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AppointmentService struct {
	appointments repository.AppointmentRepository
	sender       Notifier
	queue        Enqueuer
	logger       *zap.Logger
	now          func() time.Time
	newID        func() string
}

func NewAppointmentService(
	appointments repository.AppointmentRepository,
	sender Notifier,
	queue Enqueuer,
	logger *zap.Logger,
) (*AppointmentService, error) {
	if appointments == nil {
		return nil, fmt.Errorf("appointment repository is required")
	}
	if sender == nil || queue == nil {
		return nil, fmt.Errorf("sender and pending queue are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AppointmentService{
		appointments: appointments,
		sender:       sender,
		queue:        queue,
		logger:       logger,
		now:          time.Now,
		newID:        uuid.NewString,
	}, nil
}

// Schedule stores a new appointment with every reminder flag unset and sends the scheduling notice.
func (s *AppointmentService) Schedule(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	if appt == nil {
		return nil, fmt.Errorf("%w: appointment is required", domain.ErrValidation)
	}

	now := s.now().UTC()
	appt.ID = s.newID()
	appt.Phone = provider.NormalizePhone(appt.Phone)
	appt.Date = appt.Date.UTC()
	appt.Status = domain.AppointmentPending
	appt.Confirmed = false
	appt.ConfirmedAt = nil
	appt.Reminders = domain.AppointmentReminders{}
	appt.CreatedAt = now
	appt.UpdatedAt = now

	if err := appt.Validate(); err != nil {
		return nil, err
	}
	if !appt.Date.After(now) {
		return nil, fmt.Errorf("%w: appointment date must be in the future", domain.ErrValidation)
	}

	if err := s.appointments.Create(ctx, appt); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	notify(ctx, s.logger, s.sender, s.queue, appt.Phone, message.AppointmentScheduled(*appt), domain.KindAppointmentNotice, appt.ID)
	return appt, nil
}

// Confirm applies a Y/N answer to the earliest upcoming unconfirmed appointment of phone.
func (s *AppointmentService) Confirm(ctx context.Context, phone string, answer string) (*domain.Appointment, error) {
	confirmation, err := domain.ParseConfirmation(answer)
	if err != nil {
		return nil, err
	}
	phone = provider.NormalizePhone(phone)
	if strings.TrimSpace(phone) == "" {
		return nil, fmt.Errorf("%w: phone is required", domain.ErrValidation)
	}

	now := s.now().UTC()
	appt, err := s.appointments.FindEarliestUnconfirmedByPhone(ctx, phone, now)
	if err != nil {
		return nil, err
	}

	status := domain.AppointmentCanceled
	confirmed := confirmation == domain.ConfirmationYes
	if confirmed {
		status = domain.AppointmentConfirmed
	}
	if err := s.appointments.UpdateConfirmation(ctx, appt.ID, status, confirmed, now); err != nil {
		return nil, fmt.Errorf("failed to update appointment confirmation: %w", err)
	}

	appt.Status = status
	appt.Confirmed = confirmed
	if confirmed {
		appt.ConfirmedAt = &now
	}

	notify(ctx, s.logger, s.sender, s.queue, phone, message.AppointmentConfirmation(confirmation), domain.KindAppointmentNotice, appt.ID)
	return appt, nil
}
