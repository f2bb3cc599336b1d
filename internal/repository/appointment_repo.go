package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"gorm.io/gorm"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *domain.Appointment) error
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)
	// ListUpcoming returns non-canceled appointments in [from, to] with at least one reminder flag unset.
	ListUpcoming(ctx context.Context, from, to time.Time) ([]domain.Appointment, error)
	SetReminderFlag(ctx context.Context, id string, kind domain.ReminderKind) error
	FindEarliestUnconfirmedByPhone(ctx context.Context, phone string, from time.Time) (*domain.Appointment, error)
	UpdateConfirmation(ctx context.Context, id string, status domain.AppointmentStatus, confirmed bool, at time.Time) error
}

type GormAppointmentRepo struct {
	db *gorm.DB
}

func NewGormAppointmentRepo(db *gorm.DB) *GormAppointmentRepo {
	return &GormAppointmentRepo{db: db}
}

func (r *GormAppointmentRepo) Create(ctx context.Context, a *domain.Appointment) error {
	model := appointmentModelFromDomain(a)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if a != nil {
		*a = *appointmentModelToDomain(model)
	}
	return nil
}

func (r *GormAppointmentRepo) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	var model AppointmentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return appointmentModelToDomain(&model), nil
}

func (r *GormAppointmentRepo) ListUpcoming(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	var models []AppointmentModel
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", from, to).
		Where("status <> ?", domain.AppointmentCanceled).
		Where("reminder_week_before = ? OR reminder_two_days_before = ? OR reminder_day_before = ?", false, false, false).
		Order("date ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.Appointment, 0, len(models))
	for i := range models {
		out = append(out, *appointmentModelToDomain(&models[i]))
	}
	return out, nil
}

func (r *GormAppointmentRepo) SetReminderFlag(ctx context.Context, id string, kind domain.ReminderKind) error {
	column, ok := domain.AppointmentReminderColumn(kind)
	if !ok {
		return fmt.Errorf("%w: %q is not an appointment window", domain.ErrValidation, kind)
	}

	result := r.db.WithContext(ctx).
		Model(&AppointmentModel{}).
		Where("id = ?", id).
		Update(column, true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormAppointmentRepo) FindEarliestUnconfirmedByPhone(ctx context.Context, phone string, from time.Time) (*domain.Appointment, error) {
	var model AppointmentModel
	err := r.db.WithContext(ctx).
		Where("phone = ? AND status = ? AND date >= ?", phone, domain.AppointmentPending, from).
		Order("date ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return appointmentModelToDomain(&model), nil
}

func (r *GormAppointmentRepo) UpdateConfirmation(ctx context.Context, id string, status domain.AppointmentStatus, confirmed bool, at time.Time) error {
	updates := map[string]any{
		"status":    status,
		"confirmed": confirmed,
	}
	if confirmed {
		updates["confirmed_at"] = at
	}

	result := r.db.WithContext(ctx).
		Model(&AppointmentModel{}).
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
