package service

import (
	"context"
	"fmt"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/message"
	"github.com/awopa/maternal-notify/internal/repository"
	"go.uber.org/zap"
)

// AppointmentReminders owes one reminder per lead-time window of each upcoming appointment.
type AppointmentReminders struct {
	repo    repository.AppointmentRepository
	logger  *zap.Logger
	markers map[domain.ReminderKind]MarkerFunc
}

func NewAppointmentReminders(repo repository.AppointmentRepository, logger *zap.Logger) (*AppointmentReminders, error) {
	if repo == nil {
		return nil, fmt.Errorf("appointment repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &AppointmentReminders{repo: repo, logger: logger}
	p.markers = make(map[domain.ReminderKind]MarkerFunc, len(domain.AppointmentWindows))
	for _, window := range domain.AppointmentWindows {
		kind := window.Kind
		p.markers[kind] = func(ctx context.Context, referenceID string, _ time.Time) error {
			return repo.SetReminderFlag(ctx, referenceID, kind)
		}
	}
	return p, nil
}

func (p *AppointmentReminders) Name() string { return "appointments" }

func (p *AppointmentReminders) Markers() map[domain.ReminderKind]MarkerFunc { return p.markers }

func (p *AppointmentReminders) FindDue(ctx context.Context, now time.Time) ([]DueReminder, error) {
	widest := domain.AppointmentWindows[0].Lead
	appointments, err := p.repo.ListUpcoming(ctx, now, now.Add(widest))
	if err != nil {
		return nil, err
	}

	var due []DueReminder
	for i := range appointments {
		appt := appointments[i]
		for _, window := range appt.DueWindows(now) {
			text, err := message.AppointmentReminder(appt, window.Kind)
			if err != nil {
				p.logger.Warn("skipping appointment reminder", zap.String("appointmentId", appt.ID), zap.Error(err))
				continue
			}
			due = append(due, DueReminder{
				Recipient:   appt.Phone,
				Message:     text,
				Kind:        window.Kind,
				ReferenceID: appt.ID,
			})
		}
	}
	return due, nil
}

func (p *AppointmentReminders) MarkSent(ctx context.Context, reminder DueReminder, now time.Time) error {
	return markByKind(ctx, p.markers, reminder, now)
}
