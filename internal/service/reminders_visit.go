package service

import (
	"context"
	"fmt"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/message"
	"github.com/awopa/maternal-notify/internal/repository"
)

// VisitReminders owes a daily reminder ahead of each antenatal visit and a final one on the day.
type VisitReminders struct {
	repo    repository.VisitRepository
	markers map[domain.ReminderKind]MarkerFunc
}

func NewVisitReminders(repo repository.VisitRepository) (*VisitReminders, error) {
	if repo == nil {
		return nil, fmt.Errorf("visit repository is required")
	}
	return &VisitReminders{
		repo: repo,
		markers: map[domain.ReminderKind]MarkerFunc{
			domain.KindVisitDaily: repo.IncrementDaily,
			domain.KindVisitFinal: repo.MarkFinalSent,
		},
	}, nil
}

func (p *VisitReminders) Name() string { return "visits" }

func (p *VisitReminders) Markers() map[domain.ReminderKind]MarkerFunc { return p.markers }

func (p *VisitReminders) FindDue(ctx context.Context, now time.Time) ([]DueReminder, error) {
	visits, err := p.repo.ListOpen(ctx, domain.StartOfDay(now))
	if err != nil {
		return nil, err
	}

	var due []DueReminder
	for i := range visits {
		visit := visits[i]
		kind, ok := visit.DueReminder(now)
		if !ok {
			continue
		}
		due = append(due, DueReminder{
			Recipient:   visit.Phone,
			Message:     message.VisitSchedule(visit.PatientName, []time.Time{visit.VisitDate}),
			Kind:        kind,
			ReferenceID: visit.ID,
		})
	}
	return due, nil
}

func (p *VisitReminders) MarkSent(ctx context.Context, reminder DueReminder, now time.Time) error {
	return markByKind(ctx, p.markers, reminder, now)
}
