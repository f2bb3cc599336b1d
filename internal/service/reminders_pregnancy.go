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

const pregnancyUpdateEvery = 7 * 24 * time.Hour

// PregnancyUpdates owes a weekly update per tracked pregnancy, followed by the appointment schedule.
type PregnancyUpdates struct {
	repo    repository.PregnancyRepository
	logger  *zap.Logger
	markers map[domain.ReminderKind]MarkerFunc
}

func NewPregnancyUpdates(repo repository.PregnancyRepository, logger *zap.Logger) (*PregnancyUpdates, error) {
	if repo == nil {
		return nil, fmt.Errorf("pregnancy repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PregnancyUpdates{
		repo:   repo,
		logger: logger,
		markers: map[domain.ReminderKind]MarkerFunc{
			domain.KindPregnancyUpdate: repo.MarkUpdateSent,
		},
	}, nil
}

func (p *PregnancyUpdates) Name() string { return "pregnancy" }

func (p *PregnancyUpdates) Markers() map[domain.ReminderKind]MarkerFunc { return p.markers }

// FindDue refreshes each record's week and schedule from its start date before deciding.
func (p *PregnancyUpdates) FindDue(ctx context.Context, now time.Time) ([]DueReminder, error) {
	pregnancies, err := p.repo.ListUpdateDue(ctx, now.Add(-pregnancyUpdateEvery))
	if err != nil {
		return nil, err
	}

	var due []DueReminder
	for i := range pregnancies {
		pregnancy := pregnancies[i]

		if week := pregnancy.WeekAt(now); week != pregnancy.CurrentWeek || pregnancy.NextAppointmentSchedule == nil {
			pregnancy.CurrentWeek = week
			pregnancy.ComputeNextAppointment()
			if err := p.repo.UpdateWeek(ctx, &pregnancy); err != nil {
				p.logger.Warn("failed to refresh pregnancy week",
					zap.String("pregnancyId", pregnancy.ID),
					zap.Error(err),
				)
			}
		}

		if !pregnancy.UpdateDue(now) {
			continue
		}

		reminder := DueReminder{
			Recipient:   pregnancy.Phone,
			Message:     message.PregnancyWeekly(pregnancy.CurrentWeek),
			Kind:        domain.KindPregnancyUpdate,
			ReferenceID: pregnancy.ID,
		}
		if pregnancy.NextAppointmentSchedule != nil {
			reminder.FollowUps = []DueReminder{{
				Recipient:   pregnancy.Phone,
				Message:     message.PregnancySchedule(pregnancy.CurrentWeek),
				Kind:        domain.KindPregnancySchedule,
				ReferenceID: pregnancy.ID,
			}}
		}
		due = append(due, reminder)
	}
	return due, nil
}

func (p *PregnancyUpdates) MarkSent(ctx context.Context, reminder DueReminder, now time.Time) error {
	return markByKind(ctx, p.markers, reminder, now)
}
