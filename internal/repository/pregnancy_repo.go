package repository

import (
	"context"
	"errors"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"gorm.io/gorm"
)

type PregnancyRepository interface {
	Create(ctx context.Context, p *domain.Pregnancy) error
	GetByPatientID(ctx context.Context, patientID string) (*domain.Pregnancy, error)
	// ListUpdateDue returns tracked pregnancies whose last weekly update is missing or older than before.
	ListUpdateDue(ctx context.Context, before time.Time) ([]domain.Pregnancy, error)
	UpdateWeek(ctx context.Context, p *domain.Pregnancy) error
	MarkUpdateSent(ctx context.Context, id string, at time.Time) error
}

type GormPregnancyRepo struct {
	db *gorm.DB
}

func NewGormPregnancyRepo(db *gorm.DB) *GormPregnancyRepo {
	return &GormPregnancyRepo{db: db}
}

func (r *GormPregnancyRepo) Create(ctx context.Context, p *domain.Pregnancy) error {
	model := pregnancyModelFromDomain(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if p != nil {
		*p = *pregnancyModelToDomain(model)
	}
	return nil
}

func (r *GormPregnancyRepo) GetByPatientID(ctx context.Context, patientID string) (*domain.Pregnancy, error) {
	var model PregnancyModel
	if err := r.db.WithContext(ctx).Where("patient_id = ?", patientID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return pregnancyModelToDomain(&model), nil
}

func (r *GormPregnancyRepo) ListUpdateDue(ctx context.Context, before time.Time) ([]domain.Pregnancy, error) {
	var models []PregnancyModel
	err := r.db.WithContext(ctx).
		Where("current_week <= ?", domain.MaxPregnancyWeek).
		Where("last_update_sent IS NULL OR last_update_sent < ?", before).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.Pregnancy, 0, len(models))
	for i := range models {
		out = append(out, *pregnancyModelToDomain(&models[i]))
	}
	return out, nil
}

func (r *GormPregnancyRepo) UpdateWeek(ctx context.Context, p *domain.Pregnancy) error {
	result := r.db.WithContext(ctx).
		Model(&PregnancyModel{}).
		Where("id = ?", p.ID).
		Updates(map[string]any{
			"current_week":              p.CurrentWeek,
			"next_appointment_schedule": p.NextAppointmentSchedule,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormPregnancyRepo) MarkUpdateSent(ctx context.Context, id string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&PregnancyModel{}).
		Where("id = ?", id).
		Update("last_update_sent", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
