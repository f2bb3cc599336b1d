package repository

import (
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
)

// NotificationAttemptModel is the persistence model for notification_attempts.
type NotificationAttemptModel struct {
	ID            string               `gorm:"type:uuid;primaryKey"`
	Recipient     string               `gorm:"type:varchar(255);not null"`
	Message       string               `gorm:"type:text;not null"`
	Channel       domain.Channel       `gorm:"type:varchar(10);not null"`
	Status        domain.AttemptStatus `gorm:"type:varchar(10);not null"`
	FailureReason *string              `gorm:"type:text"`
	CreatedAt     time.Time
	SentAt        *time.Time `gorm:"type:timestamptz"`
}

func (NotificationAttemptModel) TableName() string {
	return "notification_attempts"
}

// PendingReminderModel is the persistence model for pending_reminders.
type PendingReminderModel struct {
	ID          string              `gorm:"type:uuid;primaryKey"`
	Recipient   string              `gorm:"type:varchar(255);not null"`
	Message     string              `gorm:"type:text;not null"`
	Kind        domain.ReminderKind `gorm:"type:varchar(40);not null"`
	ReferenceID *string             `gorm:"type:varchar(64)"`
	RetryCount  int                 `gorm:"not null;default:0"`
	LastError   *string             `gorm:"type:text"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (PendingReminderModel) TableName() string {
	return "pending_reminders"
}

// AppointmentModel is the persistence model for appointments.
type AppointmentModel struct {
	ID                    string                   `gorm:"type:uuid;primaryKey"`
	PatientName           string                   `gorm:"type:varchar(255);not null"`
	Phone                 string                   `gorm:"type:varchar(32);not null"`
	Doctor                string                   `gorm:"type:varchar(255);not null"`
	Date                  time.Time                `gorm:"type:timestamptz;not null"`
	Purpose               string                   `gorm:"type:varchar(255)"`
	Location              string                   `gorm:"type:varchar(255)"`
	SpecialInstructions   string                   `gorm:"type:text"`
	Status                domain.AppointmentStatus `gorm:"type:varchar(20);not null"`
	Confirmed             bool                     `gorm:"not null;default:false"`
	ConfirmedAt           *time.Time               `gorm:"type:timestamptz"`
	ReminderWeekBefore    bool                     `gorm:"not null;default:false"`
	ReminderTwoDaysBefore bool                     `gorm:"not null;default:false"`
	ReminderDayBefore     bool                     `gorm:"not null;default:false"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (AppointmentModel) TableName() string {
	return "appointments"
}

// MedicationModel is the persistence model for medications.
type MedicationModel struct {
	ID                     string           `gorm:"type:uuid;primaryKey"`
	PatientName            string           `gorm:"type:varchar(255);not null"`
	Phone                  string           `gorm:"type:varchar(32);not null"`
	MedicationName         string           `gorm:"type:varchar(255);not null"`
	Dosage                 string           `gorm:"type:varchar(100);not null"`
	Frequency              domain.Frequency `gorm:"type:varchar(10);not null"`
	Time                   string           `gorm:"type:varchar(10)"`
	RefillDate             *time.Time       `gorm:"type:timestamptz"`
	PharmacyName           string           `gorm:"type:varchar(255)"`
	PharmacyPhone          string           `gorm:"type:varchar(32)"`
	LastReminderSent       *time.Time       `gorm:"type:timestamptz"`
	LastRefillReminderSent *time.Time       `gorm:"type:timestamptz"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (MedicationModel) TableName() string {
	return "medications"
}

// NutritionProfileModel is the persistence model for nutrition_profiles.
type NutritionProfileModel struct {
	ID                    string     `gorm:"type:uuid;primaryKey"`
	PatientName           string     `gorm:"type:varchar(255);not null"`
	Phone                 string     `gorm:"type:varchar(32);not null"`
	Trimester             int        `gorm:"not null"`
	WaterIntakeGoal       int        `gorm:"not null;default:8"`
	Deficiencies          []string   `gorm:"type:jsonb;serializer:json"`
	LastWaterReminderSent *time.Time `gorm:"type:timestamptz"`
	LastNutritionTipSent  *time.Time `gorm:"type:timestamptz"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (NutritionProfileModel) TableName() string {
	return "nutrition_profiles"
}

// PregnancyModel is the persistence model for pregnancies.
type PregnancyModel struct {
	ID                      string     `gorm:"type:uuid;primaryKey"`
	PatientID               string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	PatientName             string     `gorm:"type:varchar(255);not null"`
	Phone                   string     `gorm:"type:varchar(32);not null"`
	StartDate               time.Time  `gorm:"type:timestamptz;not null"`
	CurrentWeek             int        `gorm:"not null;default:0"`
	NextAppointmentSchedule *time.Time `gorm:"type:timestamptz"`
	LastUpdateSent          *time.Time `gorm:"type:timestamptz"`
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (PregnancyModel) TableName() string {
	return "pregnancies"
}

// VisitModel is the persistence model for visits.
type VisitModel struct {
	ID                 string     `gorm:"type:uuid;primaryKey"`
	PatientID          string     `gorm:"type:varchar(64);not null"`
	PatientName        string     `gorm:"type:varchar(255);not null"`
	Phone              string     `gorm:"type:varchar(32);not null"`
	VisitDate          time.Time  `gorm:"type:timestamptz;not null"`
	ReminderSent       bool       `gorm:"not null;default:false"`
	DailyReminderCount int        `gorm:"not null;default:0"`
	LastReminderSent   *time.Time `gorm:"type:timestamptz"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (VisitModel) TableName() string {
	return "visits"
}

// PinModel is the persistence model for pins.
type PinModel struct {
	UserID      string     `gorm:"type:varchar(64);primaryKey"`
	HashedPin   string     `gorm:"type:varchar(100);not null"`
	Phone       string     `gorm:"type:varchar(32);not null"`
	Attempts    int        `gorm:"not null;default:0"`
	LastAttempt *time.Time `gorm:"type:timestamptz"`
	LockedUntil *time.Time `gorm:"type:timestamptz"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (PinModel) TableName() string {
	return "pins"
}

func attemptModelFromDomain(a *domain.NotificationAttempt) *NotificationAttemptModel {
	if a == nil {
		return nil
	}

	return &NotificationAttemptModel{
		ID:            a.ID,
		Recipient:     a.Recipient,
		Message:       a.Message,
		Channel:       a.Channel,
		Status:        a.Status,
		FailureReason: a.FailureReason,
		CreatedAt:     a.CreatedAt,
		SentAt:        a.SentAt,
	}
}

func attemptModelToDomain(m *NotificationAttemptModel) *domain.NotificationAttempt {
	if m == nil {
		return nil
	}

	return &domain.NotificationAttempt{
		ID:            m.ID,
		Recipient:     m.Recipient,
		Message:       m.Message,
		Channel:       m.Channel,
		Status:        m.Status,
		FailureReason: m.FailureReason,
		CreatedAt:     m.CreatedAt,
		SentAt:        m.SentAt,
	}
}

func pendingModelFromDomain(p *domain.PendingReminder) *PendingReminderModel {
	if p == nil {
		return nil
	}

	return &PendingReminderModel{
		ID:          p.ID,
		Recipient:   p.Recipient,
		Message:     p.Message,
		Kind:        p.Kind,
		ReferenceID: p.ReferenceID,
		RetryCount:  p.RetryCount,
		LastError:   p.LastError,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func pendingModelToDomain(m *PendingReminderModel) *domain.PendingReminder {
	if m == nil {
		return nil
	}

	return &domain.PendingReminder{
		ID:          m.ID,
		Recipient:   m.Recipient,
		Message:     m.Message,
		Kind:        m.Kind,
		ReferenceID: m.ReferenceID,
		RetryCount:  m.RetryCount,
		LastError:   m.LastError,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}

func appointmentModelFromDomain(a *domain.Appointment) *AppointmentModel {
	if a == nil {
		return nil
	}

	return &AppointmentModel{
		ID:                    a.ID,
		PatientName:           a.PatientName,
		Phone:                 a.Phone,
		Doctor:                a.Doctor,
		Date:                  a.Date,
		Purpose:               a.Purpose,
		Location:              a.Location,
		SpecialInstructions:   a.SpecialInstructions,
		Status:                a.Status,
		Confirmed:             a.Confirmed,
		ConfirmedAt:           a.ConfirmedAt,
		ReminderWeekBefore:    a.Reminders.WeekBefore,
		ReminderTwoDaysBefore: a.Reminders.TwoDaysBefore,
		ReminderDayBefore:     a.Reminders.DayBefore,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}

func appointmentModelToDomain(m *AppointmentModel) *domain.Appointment {
	if m == nil {
		return nil
	}

	return &domain.Appointment{
		ID:                  m.ID,
		PatientName:         m.PatientName,
		Phone:               m.Phone,
		Doctor:              m.Doctor,
		Date:                m.Date,
		Purpose:             m.Purpose,
		Location:            m.Location,
		SpecialInstructions: m.SpecialInstructions,
		Status:              m.Status,
		Confirmed:           m.Confirmed,
		ConfirmedAt:         m.ConfirmedAt,
		Reminders: domain.AppointmentReminders{
			WeekBefore:    m.ReminderWeekBefore,
			TwoDaysBefore: m.ReminderTwoDaysBefore,
			DayBefore:     m.ReminderDayBefore,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func medicationModelFromDomain(m *domain.Medication) *MedicationModel {
	if m == nil {
		return nil
	}

	return &MedicationModel{
		ID:                     m.ID,
		PatientName:            m.PatientName,
		Phone:                  m.Phone,
		MedicationName:         m.MedicationName,
		Dosage:                 m.Dosage,
		Frequency:              m.Frequency,
		Time:                   m.Time,
		RefillDate:             m.RefillDate,
		PharmacyName:           m.PharmacyName,
		PharmacyPhone:          m.PharmacyPhone,
		LastReminderSent:       m.LastReminderSent,
		LastRefillReminderSent: m.LastRefillReminderSent,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

func medicationModelToDomain(m *MedicationModel) *domain.Medication {
	if m == nil {
		return nil
	}

	return &domain.Medication{
		ID:                     m.ID,
		PatientName:            m.PatientName,
		Phone:                  m.Phone,
		MedicationName:         m.MedicationName,
		Dosage:                 m.Dosage,
		Frequency:              m.Frequency,
		Time:                   m.Time,
		RefillDate:             m.RefillDate,
		PharmacyName:           m.PharmacyName,
		PharmacyPhone:          m.PharmacyPhone,
		LastReminderSent:       m.LastReminderSent,
		LastRefillReminderSent: m.LastRefillReminderSent,
		CreatedAt:              m.CreatedAt,
		UpdatedAt:              m.UpdatedAt,
	}
}

func nutritionModelFromDomain(p *domain.NutritionProfile) *NutritionProfileModel {
	if p == nil {
		return nil
	}

	return &NutritionProfileModel{
		ID:                    p.ID,
		PatientName:           p.PatientName,
		Phone:                 p.Phone,
		Trimester:             p.Trimester,
		WaterIntakeGoal:       p.WaterIntakeGoal,
		Deficiencies:          p.Deficiencies,
		LastWaterReminderSent: p.LastWaterReminderSent,
		LastNutritionTipSent:  p.LastNutritionTipSent,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func nutritionModelToDomain(m *NutritionProfileModel) *domain.NutritionProfile {
	if m == nil {
		return nil
	}

	return &domain.NutritionProfile{
		ID:                    m.ID,
		PatientName:           m.PatientName,
		Phone:                 m.Phone,
		Trimester:             m.Trimester,
		WaterIntakeGoal:       m.WaterIntakeGoal,
		Deficiencies:          m.Deficiencies,
		LastWaterReminderSent: m.LastWaterReminderSent,
		LastNutritionTipSent:  m.LastNutritionTipSent,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
	}
}

func pregnancyModelFromDomain(p *domain.Pregnancy) *PregnancyModel {
	if p == nil {
		return nil
	}

	return &PregnancyModel{
		ID:                      p.ID,
		PatientID:               p.PatientID,
		PatientName:             p.PatientName,
		Phone:                   p.Phone,
		StartDate:               p.StartDate,
		CurrentWeek:             p.CurrentWeek,
		NextAppointmentSchedule: p.NextAppointmentSchedule,
		LastUpdateSent:          p.LastUpdateSent,
		CreatedAt:               p.CreatedAt,
		UpdatedAt:               p.UpdatedAt,
	}
}

func pregnancyModelToDomain(m *PregnancyModel) *domain.Pregnancy {
	if m == nil {
		return nil
	}

	return &domain.Pregnancy{
		ID:                      m.ID,
		PatientID:               m.PatientID,
		PatientName:             m.PatientName,
		Phone:                   m.Phone,
		StartDate:               m.StartDate,
		CurrentWeek:             m.CurrentWeek,
		NextAppointmentSchedule: m.NextAppointmentSchedule,
		LastUpdateSent:          m.LastUpdateSent,
		CreatedAt:               m.CreatedAt,
		UpdatedAt:               m.UpdatedAt,
	}
}

func visitModelFromDomain(v *domain.Visit) *VisitModel {
	if v == nil {
		return nil
	}

	return &VisitModel{
		ID:                 v.ID,
		PatientID:          v.PatientID,
		PatientName:        v.PatientName,
		Phone:              v.Phone,
		VisitDate:          v.VisitDate,
		ReminderSent:       v.ReminderSent,
		DailyReminderCount: v.DailyReminderCount,
		LastReminderSent:   v.LastReminderSent,
		CreatedAt:          v.CreatedAt,
		UpdatedAt:          v.UpdatedAt,
	}
}

func visitModelToDomain(m *VisitModel) *domain.Visit {
	if m == nil {
		return nil
	}

	return &domain.Visit{
		ID:                 m.ID,
		PatientID:          m.PatientID,
		PatientName:        m.PatientName,
		Phone:              m.Phone,
		VisitDate:          m.VisitDate,
		ReminderSent:       m.ReminderSent,
		DailyReminderCount: m.DailyReminderCount,
		LastReminderSent:   m.LastReminderSent,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func pinModelFromDomain(r *domain.PinRecord) *PinModel {
	if r == nil {
		return nil
	}

	return &PinModel{
		UserID:      r.UserID,
		HashedPin:   r.HashedPin,
		Phone:       r.Phone,
		Attempts:    r.Attempts,
		LastAttempt: r.LastAttempt,
		LockedUntil: r.LockedUntil,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func pinModelToDomain(m *PinModel) *domain.PinRecord {
	if m == nil {
		return nil
	}

	return &domain.PinRecord{
		UserID:      m.UserID,
		HashedPin:   m.HashedPin,
		Phone:       m.Phone,
		Attempts:    m.Attempts,
		LastAttempt: m.LastAttempt,
		LockedUntil: m.LockedUntil,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
