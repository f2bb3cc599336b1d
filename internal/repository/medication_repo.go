package repository

import (
	"context"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"gorm.io/gorm"
)

type MedicationRepository interface {
	Create(ctx context.Context, m *domain.Medication) error
	// ListDoseCandidates returns medications whose last dose reminder is missing or older than before.
	ListDoseCandidates(ctx context.Context, before time.Time) ([]domain.Medication, error)
	// ListRefillCandidates returns medications with a refill date in [from, to].
	ListRefillCandidates(ctx context.Context, from, to time.Time) ([]domain.Medication, error)
	MarkDoseReminded(ctx context.Context, id string, at time.Time) error
	MarkRefillReminded(ctx context.Context, id string, at time.Time) error
}

type GormMedicationRepo struct {
	db *gorm.DB
}

func NewGormMedicationRepo(db *gorm.DB) *GormMedicationRepo {
	return &GormMedicationRepo{db: db}
}

func (r *GormMedicationRepo) Create(ctx context.Context, m *domain.Medication) error {
	model := medicationModelFromDomain(m)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if m != nil {
		*m = *medicationModelToDomain(model)
	}
	return nil
}

func (r *GormMedicationRepo) ListDoseCandidates(ctx context.Context, before time.Time) ([]domain.Medication, error) {
	var models []MedicationModel
	err := r.db.WithContext(ctx).
		Where("last_reminder_sent IS NULL OR last_reminder_sent < ?", before).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return medicationModelsToDomain(models), nil
}

func (r *GormMedicationRepo) ListRefillCandidates(ctx context.Context, from, to time.Time) ([]domain.Medication, error) {
	var models []MedicationModel
	err := r.db.WithContext(ctx).
		Where("refill_date IS NOT NULL AND refill_date >= ? AND refill_date <= ?", from, to).
		Order("refill_date ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return medicationModelsToDomain(models), nil
}

func (r *GormMedicationRepo) MarkDoseReminded(ctx context.Context, id string, at time.Time) error {
	return r.touch(ctx, id, "last_reminder_sent", at)
}

func (r *GormMedicationRepo) MarkRefillReminded(ctx context.Context, id string, at time.Time) error {
	return r.touch(ctx, id, "last_refill_reminder_sent", at)
}

func (r *GormMedicationRepo) touch(ctx context.Context, id, column string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&MedicationModel{}).
		Where("id = ?", id).
		Update(column, at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func medicationModelsToDomain(models []MedicationModel) []domain.Medication {
	out := make([]domain.Medication, 0, len(models))
	for i := range models {
		out = append(out, *medicationModelToDomain(&models[i]))
	}
	return out
}
