package repository

import (
	"context"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"gorm.io/gorm"
)

type VisitRepository interface {
	CreateBatch(ctx context.Context, visits []*domain.Visit) error
	CountInRange(ctx context.Context, patientID string, from, to time.Time) (int64, error)
	ListByPatient(ctx context.Context, patientID string) ([]domain.Visit, error)
	// ListOpen returns visits on or after from that have not had their final reminder.
	ListOpen(ctx context.Context, from time.Time) ([]domain.Visit, error)
	MarkFinalSent(ctx context.Context, id string, at time.Time) error
	IncrementDaily(ctx context.Context, id string, at time.Time) error
}

type GormVisitRepo struct {
	db *gorm.DB
}

func NewGormVisitRepo(db *gorm.DB) *GormVisitRepo {
	return &GormVisitRepo{db: db}
}

func (r *GormVisitRepo) CreateBatch(ctx context.Context, visits []*domain.Visit) error {
	if len(visits) == 0 {
		return nil
	}

	models := make([]*VisitModel, 0, len(visits))
	for _, v := range visits {
		models = append(models, visitModelFromDomain(v))
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models).Error; err != nil {
			return err
		}
		for i := range models {
			*visits[i] = *visitModelToDomain(models[i])
		}
		return nil
	})
}

func (r *GormVisitRepo) CountInRange(ctx context.Context, patientID string, from, to time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&VisitModel{}).
		Where("patient_id = ? AND visit_date >= ? AND visit_date < ?", patientID, from, to).
		Count(&count).Error
	return count, err
}

func (r *GormVisitRepo) ListByPatient(ctx context.Context, patientID string) ([]domain.Visit, error) {
	return r.find(ctx, "patient_id = ?", patientID)
}

func (r *GormVisitRepo) ListOpen(ctx context.Context, from time.Time) ([]domain.Visit, error) {
	return r.find(ctx, "visit_date >= ? AND reminder_sent = ?", from, false)
}

func (r *GormVisitRepo) MarkFinalSent(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"reminder_sent":      true,
		"last_reminder_sent": at,
	})
}

func (r *GormVisitRepo) IncrementDaily(ctx context.Context, id string, at time.Time) error {
	return r.update(ctx, id, map[string]any{
		"daily_reminder_count": gorm.Expr("daily_reminder_count + 1"),
		"last_reminder_sent":   at,
	})
}

func (r *GormVisitRepo) find(ctx context.Context, where string, args ...any) ([]domain.Visit, error) {
	var models []VisitModel
	err := r.db.WithContext(ctx).
		Where(where, args...).
		Order("visit_date ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.Visit, 0, len(models))
	for i := range models {
		out = append(out, *visitModelToDomain(&models[i]))
	}
	return out, nil
}

func (r *GormVisitRepo) update(ctx context.Context, id string, updates map[string]any) error {
	result := r.db.WithContext(ctx).
		Model(&VisitModel{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
