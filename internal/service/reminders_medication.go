package service

import (
	"context"
	"fmt"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/message"
	"github.com/awopa/maternal-notify/internal/repository"
)

const (
	refillWindowStart = 3 * 24 * time.Hour
	refillWindowEnd   = 5 * 24 * time.Hour
)

// MedicationReminders owes dose reminders by frequency and refill reminders ahead of the refill date.
type MedicationReminders struct {
	repo    repository.MedicationRepository
	markers map[domain.ReminderKind]MarkerFunc
}

func NewMedicationReminders(repo repository.MedicationRepository) (*MedicationReminders, error) {
	if repo == nil {
		return nil, fmt.Errorf("medication repository is required")
	}

	return &MedicationReminders{
		repo: repo,
		markers: map[domain.ReminderKind]MarkerFunc{
			domain.KindMedicationDaily:  repo.MarkDoseReminded,
			domain.KindMedicationWeekly: repo.MarkDoseReminded,
			domain.KindMedicationRefill: repo.MarkRefillReminded,
		},
	}, nil
}

func (p *MedicationReminders) Name() string { return "medications" }

func (p *MedicationReminders) Markers() map[domain.ReminderKind]MarkerFunc { return p.markers }

func (p *MedicationReminders) FindDue(ctx context.Context, now time.Time) ([]DueReminder, error) {
	doses, err := p.repo.ListDoseCandidates(ctx, domain.StartOfDay(now))
	if err != nil {
		return nil, err
	}

	var due []DueReminder
	for i := range doses {
		med := doses[i]
		if !med.DoseDue(now) {
			continue
		}
		kind := domain.KindMedicationDaily
		if med.Frequency == domain.FrequencyWeekly {
			kind = domain.KindMedicationWeekly
		}
		due = append(due, DueReminder{
			Recipient:   med.Phone,
			Message:     message.MedicationDose(med),
			Kind:        kind,
			ReferenceID: med.ID,
		})
	}

	refills, err := p.repo.ListRefillCandidates(ctx, now.Add(refillWindowStart), now.Add(refillWindowEnd))
	if err != nil {
		return nil, err
	}
	for i := range refills {
		med := refills[i]
		if !med.RefillDue(now) {
			continue
		}
		due = append(due, DueReminder{
			Recipient:   med.Phone,
			Message:     message.MedicationRefill(med),
			Kind:        domain.KindMedicationRefill,
			ReferenceID: med.ID,
		})
	}

	return due, nil
}

func (p *MedicationReminders) MarkSent(ctx context.Context, reminder DueReminder, now time.Time) error {
	return markByKind(ctx, p.markers, reminder, now)
}
