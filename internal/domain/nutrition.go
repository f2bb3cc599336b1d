package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultWaterIntakeGoal = 8
	waterReminderInterval  = 24 * time.Hour
	nutritionTipInterval   = 72 * time.Hour
)

type NutritionProfile struct {
	ID                    string
	PatientName           string
	Phone                 string
	Trimester             int
	WaterIntakeGoal       int
	Deficiencies          []string
	LastWaterReminderSent *time.Time
	LastNutritionTipSent  *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (p *NutritionProfile) Validate() error {
	if strings.TrimSpace(p.PatientName) == "" {
		return fmt.Errorf("%w: patientName is required", ErrValidation)
	}
	if strings.TrimSpace(p.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if p.Trimester < 1 || p.Trimester > 3 {
		return fmt.Errorf("%w: trimester must be 1, 2 or 3", ErrValidation)
	}
	if p.WaterIntakeGoal < 0 {
		return fmt.Errorf("%w: waterIntakeGoal must not be negative", ErrValidation)
	}
	return nil
}

func (p *NutritionProfile) WaterDue(now time.Time) bool {
	return p.LastWaterReminderSent == nil || p.LastWaterReminderSent.Before(now.Add(-waterReminderInterval))
}

func (p *NutritionProfile) TipDue(now time.Time) bool {
	return p.LastNutritionTipSent == nil || p.LastNutritionTipSent.Before(now.Add(-nutritionTipInterval))
}
