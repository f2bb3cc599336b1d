package repository

import (
	"context"

	"github.com/awopa/maternal-notify/internal/domain"
	"gorm.io/gorm"
)

// PendingListParams filters the pending reminder listing.
type PendingListParams struct {
	Kind      *domain.ReminderKind
	Exhausted *bool
	Page      int
	PageSize  int
}

type PendingReminderRepository interface {
	Create(ctx context.Context, p *domain.PendingReminder) error
	// ListRetryable returns entries below the retry ceiling, oldest first.
	ListRetryable(ctx context.Context, limit int) ([]domain.PendingReminder, error)
	IncrementRetry(ctx context.Context, id string, lastError string) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, params PendingListParams) ([]domain.PendingReminder, int64, error)
	// ExistsOpen reports whether any entry, exhausted or not, is parked for kind and referenceID.
	ExistsOpen(ctx context.Context, kind domain.ReminderKind, referenceID string) (bool, error)
}

type GormPendingReminderRepo struct {
	db *gorm.DB
}

func NewGormPendingReminderRepo(db *gorm.DB) *GormPendingReminderRepo {
	return &GormPendingReminderRepo{db: db}
}

func (r *GormPendingReminderRepo) Create(ctx context.Context, p *domain.PendingReminder) error {
	model := pendingModelFromDomain(p)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if p != nil {
		*p = *pendingModelToDomain(model)
	}
	return nil
}

func (r *GormPendingReminderRepo) ListRetryable(ctx context.Context, limit int) ([]domain.PendingReminder, error) {
	query := r.db.WithContext(ctx).
		Where("retry_count < ?", domain.MaxReminderRetries).
		Order("created_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []PendingReminderModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	return pendingModelsToDomain(models), nil
}

func (r *GormPendingReminderRepo) IncrementRetry(ctx context.Context, id string, lastError string) error {
	result := r.db.WithContext(ctx).
		Model(&PendingReminderModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"retry_count": gorm.Expr("retry_count + 1"),
			"last_error":  lastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormPendingReminderRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&PendingReminderModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormPendingReminderRepo) ExistsOpen(ctx context.Context, kind domain.ReminderKind, referenceID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&PendingReminderModel{}).
		Where("kind = ? AND reference_id = ?", kind, referenceID).
		Count(&count).Error
	return count > 0, err
}

func (r *GormPendingReminderRepo) List(ctx context.Context, params PendingListParams) ([]domain.PendingReminder, int64, error) {
	page, pageSize := normalizePage(params.Page, params.PageSize)

	query := r.db.WithContext(ctx).Model(&PendingReminderModel{})
	if params.Kind != nil {
		query = query.Where("kind = ?", *params.Kind)
	}
	if params.Exhausted != nil {
		if *params.Exhausted {
			query = query.Where("retry_count >= ?", domain.MaxReminderRetries)
		} else {
			query = query.Where("retry_count < ?", domain.MaxReminderRetries)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []PendingReminderModel
	err := query.
		Order("created_at ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	return pendingModelsToDomain(models), total, nil
}

func pendingModelsToDomain(models []PendingReminderModel) []domain.PendingReminder {
	out := make([]domain.PendingReminder, 0, len(models))
	for i := range models {
		out = append(out, *pendingModelToDomain(&models[i]))
	}
	return out
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
