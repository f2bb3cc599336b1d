package service

import (
	"context"
	"errors"
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

// CareService registers nutrition, medication and pregnancy profiles and sends their notices.
type CareService struct {
	nutrition   repository.NutritionRepository
	medications repository.MedicationRepository
	pregnancies repository.PregnancyRepository
	sender      Notifier
	queue       Enqueuer
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

func NewCareService(
	nutrition repository.NutritionRepository,
	medications repository.MedicationRepository,
	pregnancies repository.PregnancyRepository,
	sender Notifier,
	queue Enqueuer,
	logger *zap.Logger,
) (*CareService, error) {
	if nutrition == nil || medications == nil || pregnancies == nil {
		return nil, fmt.Errorf("nutrition, medication and pregnancy repositories are required")
	}
	if sender == nil || queue == nil {
		return nil, fmt.Errorf("sender and pending queue are required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CareService{
		nutrition:   nutrition,
		medications: medications,
		pregnancies: pregnancies,
		sender:      sender,
		queue:       queue,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}, nil
}

func (s *CareService) CreateNutritionProfile(ctx context.Context, profile *domain.NutritionProfile) (*domain.NutritionProfile, error) {
	if profile == nil {
		return nil, fmt.Errorf("%w: nutrition profile is required", domain.ErrValidation)
	}

	now := s.now().UTC()
	profile.ID = s.newID()
	profile.Phone = provider.NormalizePhone(profile.Phone)
	if profile.WaterIntakeGoal <= 0 {
		profile.WaterIntakeGoal = domain.DefaultWaterIntakeGoal
	}
	profile.Deficiencies = normalizeDeficiencies(profile.Deficiencies)
	profile.LastWaterReminderSent = nil
	profile.LastNutritionTipSent = nil
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if err := s.nutrition.Create(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to create nutrition profile: %w", err)
	}

	notify(ctx, s.logger, s.sender, s.queue, profile.Phone, message.NutritionProfileCreated(*profile), domain.KindNutritionNotice, profile.ID)
	return profile, nil
}

func (s *CareService) CreateMedication(ctx context.Context, med *domain.Medication) (*domain.Medication, error) {
	if med == nil {
		return nil, fmt.Errorf("%w: medication is required", domain.ErrValidation)
	}

	now := s.now().UTC()
	med.ID = s.newID()
	med.Phone = provider.NormalizePhone(med.Phone)
	if med.RefillDate != nil {
		refill := med.RefillDate.UTC()
		med.RefillDate = &refill
	}
	med.LastReminderSent = nil
	med.LastRefillReminderSent = nil
	med.CreatedAt = now
	med.UpdatedAt = now

	if err := med.Validate(); err != nil {
		return nil, err
	}
	if err := s.medications.Create(ctx, med); err != nil {
		return nil, fmt.Errorf("failed to create medication: %w", err)
	}

	notify(ctx, s.logger, s.sender, s.queue, med.Phone, message.MedicationCreated(*med), domain.KindMedicationNotice, med.ID)
	return med, nil
}

// CreatePregnancy stores a pregnancy profile with its week and next appointment derived from the start date.
func (s *CareService) CreatePregnancy(ctx context.Context, pregnancy *domain.Pregnancy) (*domain.Pregnancy, error) {
	if pregnancy == nil {
		return nil, fmt.Errorf("%w: pregnancy is required", domain.ErrValidation)
	}

	now := s.now().UTC()
	pregnancy.ID = s.newID()
	pregnancy.Phone = provider.NormalizePhone(pregnancy.Phone)
	pregnancy.StartDate = pregnancy.StartDate.UTC()
	pregnancy.LastUpdateSent = nil
	pregnancy.CreatedAt = now
	pregnancy.UpdatedAt = now

	if err := pregnancy.Validate(); err != nil {
		return nil, err
	}
	if pregnancy.StartDate.After(now) {
		return nil, fmt.Errorf("%w: startDate must not be in the future", domain.ErrValidation)
	}
	pregnancy.CurrentWeek = pregnancy.WeekAt(now)
	pregnancy.ComputeNextAppointment()

	if _, err := s.pregnancies.GetByPatientID(ctx, pregnancy.PatientID); err == nil {
		return nil, fmt.Errorf("%w: pregnancy already tracked for patient %s", domain.ErrConflict, pregnancy.PatientID)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up pregnancy: %w", err)
	}

	if err := s.pregnancies.Create(ctx, pregnancy); err != nil {
		return nil, fmt.Errorf("failed to create pregnancy: %w", err)
	}

	notify(ctx, s.logger, s.sender, s.queue, pregnancy.Phone, message.PregnancyCreated(*pregnancy), domain.KindPregnancyNotice, pregnancy.ID)
	return pregnancy, nil
}

// UpdatePregnancyWeek recomputes the current week and next appointment from the start date.
func (s *CareService) UpdatePregnancyWeek(ctx context.Context, patientID string) (*domain.Pregnancy, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, fmt.Errorf("%w: patientId is required", domain.ErrValidation)
	}

	pregnancy, err := s.pregnancies.GetByPatientID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	pregnancy.CurrentWeek = pregnancy.WeekAt(s.now().UTC())
	pregnancy.ComputeNextAppointment()
	if err := s.pregnancies.UpdateWeek(ctx, pregnancy); err != nil {
		return nil, fmt.Errorf("failed to update pregnancy week: %w", err)
	}
	return pregnancy, nil
}

func normalizeDeficiencies(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, d := range in {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}
