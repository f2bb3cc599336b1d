package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/message"
	"github.com/awopa/maternal-notify/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type VisitService struct {
	visits      repository.VisitRepository
	pregnancies repository.PregnancyRepository
	sender      Notifier
	queue       Enqueuer
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

func NewVisitService(
	visits repository.VisitRepository,
	pregnancies repository.PregnancyRepository,
	sender Notifier,
	queue Enqueuer,
	logger *zap.Logger,
) (*VisitService, error) {
	if visits == nil || pregnancies == nil {
		return nil, fmt.Errorf("visit and pregnancy repositories are required")
	}
	if sender == nil || queue == nil {
		return nil, fmt.Errorf("sender and pending queue are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &VisitService{
		visits:      visits,
		pregnancies: pregnancies,
		sender:      sender,
		queue:       queue,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}, nil
}

// Schedule books this month's antenatal visits for a patient. The number of dates must match
// the visit plan for the patient's gestational week, and a month can only be booked once.
func (s *VisitService) Schedule(ctx context.Context, patientID string, dates []time.Time) ([]domain.Visit, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, fmt.Errorf("%w: patientId is required", domain.ErrValidation)
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("%w: at least one visit date is required", domain.ErrValidation)
	}

	pregnancy, err := s.pregnancies.GetByPatientID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	week := pregnancy.WeekAt(now)
	required, err := domain.RequiredVisits(week)
	if err != nil {
		return nil, err
	}
	if len(dates) != required {
		return nil, fmt.Errorf("%w: week %d requires %d visit(s) this month, got %d", domain.ErrValidation, week, required, len(dates))
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	existing, err := s.visits.CountInRange(ctx, patientID, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return nil, fmt.Errorf("failed to count visits: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%w: visits already scheduled for this month", domain.ErrConflict)
	}

	sorted := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		d = d.UTC()
		if d.Before(domain.StartOfDay(now)) {
			return nil, fmt.Errorf("%w: visit date %s is in the past", domain.ErrValidation, message.FormatDate(d))
		}
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	visits := make([]*domain.Visit, 0, len(sorted))
	for _, d := range sorted {
		v := &domain.Visit{
			ID:          s.newID(),
			PatientID:   pregnancy.PatientID,
			PatientName: pregnancy.PatientName,
			Phone:       pregnancy.Phone,
			VisitDate:   d,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := v.Validate(); err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}

	if err := s.visits.CreateBatch(ctx, visits); err != nil {
		return nil, fmt.Errorf("failed to create visits: %w", err)
	}

	notify(ctx, s.logger, s.sender, s.queue, pregnancy.Phone,
		message.VisitSchedule(pregnancy.PatientName, sorted), domain.KindVisitNotice, pregnancy.PatientID)

	out := make([]domain.Visit, 0, len(visits))
	for _, v := range visits {
		out = append(out, *v)
	}
	return out, nil
}

func (s *VisitService) ListByPatient(ctx context.Context, patientID string) ([]domain.Visit, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, fmt.Errorf("%w: patientId is required", domain.ErrValidation)
	}
	return s.visits.ListByPatient(ctx, patientID)
}
