package repository

import (
	"context"
	"errors"

	"github.com/awopa/maternal-notify/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PinMutation inspects a locked record and may change it. When changed is true the record
// is written back before the lock is released. err is returned to the caller of Modify
// either way, so a failed attempt can be persisted and still reported.
type PinMutation func(rec *domain.PinRecord) (changed bool, err error)

type PinRepository interface {
	Create(ctx context.Context, r *domain.PinRecord) error
	GetByUserID(ctx context.Context, userID string) (*domain.PinRecord, error)
	// Modify runs fn on the record while holding its row lock, serializing every check and
	// lockout transition for one user.
	Modify(ctx context.Context, userID string, fn PinMutation) error
	Delete(ctx context.Context, userID string) error
	Exists(ctx context.Context, userID string) (bool, error)
}

type GormPinRepo struct {
	db *gorm.DB
}

func NewGormPinRepo(db *gorm.DB) *GormPinRepo {
	return &GormPinRepo{db: db}
}

func (r *GormPinRepo) Create(ctx context.Context, rec *domain.PinRecord) error {
	model := pinModelFromDomain(rec)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrConflict
		}
		return err
	}
	if rec != nil {
		*rec = *pinModelToDomain(model)
	}
	return nil
}

func (r *GormPinRepo) GetByUserID(ctx context.Context, userID string) (*domain.PinRecord, error) {
	var model PinModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return pinModelToDomain(&model), nil
}

func (r *GormPinRepo) Modify(ctx context.Context, userID string, fn PinMutation) error {
	var outcome error
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var model PinModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).
			First(&model).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}

		rec := pinModelToDomain(&model)
		changed, fnErr := fn(rec)
		outcome = fnErr
		if !changed {
			return nil
		}

		return tx.Model(&PinModel{}).
			Where("user_id = ?", userID).
			Updates(map[string]any{
				"hashed_pin":   rec.HashedPin,
				"phone":        rec.Phone,
				"attempts":     rec.Attempts,
				"last_attempt": rec.LastAttempt,
				"locked_until": rec.LockedUntil,
			}).Error
	})
	if err != nil {
		return err
	}
	return outcome
}

func (r *GormPinRepo) Delete(ctx context.Context, userID string) error {
	result := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&PinModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormPinRepo) Exists(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&PinModel{}).Where("user_id = ?", userID).Count(&count).Error
	return count > 0, err
}
