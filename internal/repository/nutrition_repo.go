package repository

import (
	"context"
	"errors"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"gorm.io/gorm"
)

type NutritionRepository interface {
	Create(ctx context.Context, p *domain.NutritionProfile) error
	GetByID(ctx context.Context, id string) (*domain.NutritionProfile, error)
	ListWaterDue(ctx context.Context, before time.Time) ([]domain.NutritionProfile, error)
	ListTipDue(ctx context.Context, before time.Time) ([]domain.NutritionProfile, error)
	ListWithDeficiencies(ctx context.Context) ([]domain.NutritionProfile, error)
	MarkWaterReminded(ctx context.Context, id string, at time.Time) error
	MarkTipSent(ctx context.Context, id string, at time.Time) error
}

type GormNutritionRepo struct {
	db *gorm.DB
}

func NewGormNutritionRepo(db *gorm.DB) *GormNutritionRepo {
	return &GormNutritionRepo{db: db}
}

func (r *GormNutritionRepo) Create(ctx context.Context, p *domain.NutritionProfile) error {
	model := nutritionModelFromDomain(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if p != nil {
		*p = *nutritionModelToDomain(model)
	}
	return nil
}

func (r *GormNutritionRepo) GetByID(ctx context.Context, id string) (*domain.NutritionProfile, error) {
	var model NutritionProfileModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return nutritionModelToDomain(&model), nil
}

func (r *GormNutritionRepo) ListWaterDue(ctx context.Context, before time.Time) ([]domain.NutritionProfile, error) {
	return r.find(ctx, "last_water_reminder_sent IS NULL OR last_water_reminder_sent < ?", before)
}

func (r *GormNutritionRepo) ListTipDue(ctx context.Context, before time.Time) ([]domain.NutritionProfile, error) {
	return r.find(ctx, "last_nutrition_tip_sent IS NULL OR last_nutrition_tip_sent < ?", before)
}

func (r *GormNutritionRepo) ListWithDeficiencies(ctx context.Context) ([]domain.NutritionProfile, error) {
	return r.find(ctx, "deficiencies IS NOT NULL AND jsonb_array_length(deficiencies) > 0")
}

func (r *GormNutritionRepo) MarkWaterReminded(ctx context.Context, id string, at time.Time) error {
	return r.touch(ctx, id, "last_water_reminder_sent", at)
}

func (r *GormNutritionRepo) MarkTipSent(ctx context.Context, id string, at time.Time) error {
	return r.touch(ctx, id, "last_nutrition_tip_sent", at)
}

func (r *GormNutritionRepo) find(ctx context.Context, where string, args ...any) ([]domain.NutritionProfile, error) {
	var models []NutritionProfileModel
	err := r.db.WithContext(ctx).
		Where(where, args...).
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.NutritionProfile, 0, len(models))
	for i := range models {
		out = append(out, *nutritionModelToDomain(&models[i]))
	}
	return out, nil
}

func (r *GormNutritionRepo) touch(ctx context.Context, id, column string, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&NutritionProfileModel{}).
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
