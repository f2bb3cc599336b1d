package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"gorm.io/gorm"
)

// AttemptRepository records one row per delivery attempt. An attempt leaves
// pending exactly once.
type AttemptRepository interface {
	Create(ctx context.Context, a *domain.NotificationAttempt) error
	MarkSent(ctx context.Context, id string, sentAt time.Time) error
	MarkFailed(ctx context.Context, id string, reason string) error
}

type GormAttemptRepo struct {
	db *gorm.DB
}

func NewGormAttemptRepo(db *gorm.DB) *GormAttemptRepo {
	return &GormAttemptRepo{db: db}
}

func (r *GormAttemptRepo) Create(ctx context.Context, a *domain.NotificationAttempt) error {
	if a == nil {
		return fmt.Errorf("%w: attempt is required", domain.ErrValidation)
	}
	if a.Status == "" {
		a.Status = domain.AttemptPending
	}

	model := attemptModelFromDomain(a)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	*a = *attemptModelToDomain(model)
	return nil
}

func (r *GormAttemptRepo) MarkSent(ctx context.Context, id string, sentAt time.Time) error {
	return r.finish(ctx, id, map[string]any{
		"status":  domain.AttemptSent,
		"sent_at": sentAt.UTC(),
	})
}

func (r *GormAttemptRepo) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.finish(ctx, id, map[string]any{
		"status":         domain.AttemptFailed,
		"failure_reason": reason,
	})
}

// finish moves a pending attempt to its terminal status. ErrNotFound when the id is
// unknown, ErrConflict when the attempt already left pending.
func (r *GormAttemptRepo) finish(ctx context.Context, id string, changes map[string]any) error {
	tx := r.db.WithContext(ctx)
	result := tx.Model(&NotificationAttemptModel{}).
		Where("id = ? AND status = ?", id, domain.AttemptPending).
		Updates(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	if err := tx.Model(&NotificationAttemptModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: attempt %s is no longer pending", domain.ErrConflict, id)
}
