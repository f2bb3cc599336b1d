package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/message"
	"github.com/awopa/maternal-notify/internal/repository"
	"go.uber.org/zap"
)

const (
	waterReminderEvery = 24 * time.Hour
	nutritionTipEvery  = 72 * time.Hour
)

// WaterReminders owes one hydration reminder per profile per day.
type WaterReminders struct {
	repo    repository.NutritionRepository
	markers map[domain.ReminderKind]MarkerFunc
}

func NewWaterReminders(repo repository.NutritionRepository) (*WaterReminders, error) {
	if repo == nil {
		return nil, fmt.Errorf("nutrition repository is required")
	}
	return &WaterReminders{
		repo: repo,
		markers: map[domain.ReminderKind]MarkerFunc{
			domain.KindNutritionWater: repo.MarkWaterReminded,
		},
	}, nil
}

func (p *WaterReminders) Name() string { return "water" }

func (p *WaterReminders) Markers() map[domain.ReminderKind]MarkerFunc { return p.markers }

func (p *WaterReminders) FindDue(ctx context.Context, now time.Time) ([]DueReminder, error) {
	profiles, err := p.repo.ListWaterDue(ctx, now.Add(-waterReminderEvery))
	if err != nil {
		return nil, err
	}

	due := make([]DueReminder, 0, len(profiles))
	for i := range profiles {
		profile := profiles[i]
		if !profile.WaterDue(now) {
			continue
		}
		goal := profile.WaterIntakeGoal
		if goal <= 0 {
			goal = domain.DefaultWaterIntakeGoal
		}
		due = append(due, DueReminder{
			Recipient:   profile.Phone,
			Message:     message.WaterIntake(profile.PatientName, goal),
			Kind:        domain.KindNutritionWater,
			ReferenceID: profile.ID,
		})
	}
	return due, nil
}

func (p *WaterReminders) MarkSent(ctx context.Context, reminder DueReminder, now time.Time) error {
	return markByKind(ctx, p.markers, reminder, now)
}

// NutritionTips owes a trimester tip every three days, plus one message per known deficiency on every run.
type NutritionTips struct {
	repo     repository.NutritionRepository
	logger   *zap.Logger
	randIntn func(n int) int
	markers  map[domain.ReminderKind]MarkerFunc
}

func NewNutritionTips(repo repository.NutritionRepository, logger *zap.Logger) (*NutritionTips, error) {
	if repo == nil {
		return nil, fmt.Errorf("nutrition repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NutritionTips{
		repo:     repo,
		logger:   logger,
		randIntn: rand.Intn,
		markers: map[domain.ReminderKind]MarkerFunc{
			domain.KindNutritionTip: repo.MarkTipSent,
		},
	}, nil
}

func (p *NutritionTips) Name() string { return "nutrition_tips" }

func (p *NutritionTips) Markers() map[domain.ReminderKind]MarkerFunc { return p.markers }

func (p *NutritionTips) FindDue(ctx context.Context, now time.Time) ([]DueReminder, error) {
	profiles, err := p.repo.ListTipDue(ctx, now.Add(-nutritionTipEvery))
	if err != nil {
		return nil, err
	}

	var due []DueReminder
	for i := range profiles {
		profile := profiles[i]
		if !profile.TipDue(now) {
			continue
		}
		tip, ok := message.PickNutritionTip(profile.Trimester, p.randIntn)
		if !ok {
			p.logger.Warn("no nutrition tips for trimester",
				zap.String("profileId", profile.ID),
				zap.Int("trimester", profile.Trimester),
			)
			continue
		}
		due = append(due, DueReminder{
			Recipient:   profile.Phone,
			Message:     message.NutritionTip(profile.PatientName, profile.Trimester, tip),
			Kind:        domain.KindNutritionTip,
			ReferenceID: profile.ID,
		})
	}

	deficient, err := p.repo.ListWithDeficiencies(ctx)
	if err != nil {
		return nil, err
	}
	for i := range deficient {
		profile := deficient[i]
		for _, deficiency := range profile.Deficiencies {
			tip, ok := message.DeficiencyTips[strings.ToLower(strings.TrimSpace(deficiency))]
			if !ok {
				continue
			}
			due = append(due, DueReminder{
				Recipient:   profile.Phone,
				Message:     message.DeficiencyReminder(profile.PatientName, tip),
				Kind:        domain.KindNutritionDeficiency,
				ReferenceID: profile.ID,
			})
		}
	}

	return due, nil
}

func (p *NutritionTips) MarkSent(ctx context.Context, reminder DueReminder, now time.Time) error {
	return markByKind(ctx, p.markers, reminder, now)
}
