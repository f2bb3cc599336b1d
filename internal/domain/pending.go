package domain

import (
	"fmt"
	"strings"
	"time"
)

// MaxReminderRetries is the retry ceiling of a pending reminder.
const MaxReminderRetries = 5

// ReminderKind names the producer that owns a reminder and the marker to set once it is delivered.
type ReminderKind string

const (
	KindAppointmentWeekBefore    ReminderKind = "appointment.week_before"
	KindAppointmentTwoDaysBefore ReminderKind = "appointment.two_days_before"
	KindAppointmentDayBefore     ReminderKind = "appointment.day_before"
	KindAppointmentNotice        ReminderKind = "appointment.notice"
	KindMedicationDaily          ReminderKind = "medication.daily"
	KindMedicationWeekly         ReminderKind = "medication.weekly"
	KindMedicationRefill         ReminderKind = "medication.refill"
	KindMedicationNotice         ReminderKind = "medication.notice"
	KindNutritionWater           ReminderKind = "nutrition.water"
	KindNutritionTip             ReminderKind = "nutrition.tip"
	KindNutritionDeficiency      ReminderKind = "nutrition.deficiency"
	KindNutritionNotice          ReminderKind = "nutrition.notice"
	KindPregnancyUpdate          ReminderKind = "pregnancy.update"
	KindPregnancySchedule        ReminderKind = "pregnancy.schedule"
	KindPregnancyNotice          ReminderKind = "pregnancy.notice"
	KindVisitDaily               ReminderKind = "visit.daily"
	KindVisitFinal               ReminderKind = "visit.final"
	KindVisitNotice              ReminderKind = "visit.notice"
	KindPinNotice                ReminderKind = "pin.notice"
	KindGeneral                  ReminderKind = "general"
)

var reminderKinds = []ReminderKind{
	KindAppointmentWeekBefore,
	KindAppointmentTwoDaysBefore,
	KindAppointmentDayBefore,
	KindAppointmentNotice,
	KindMedicationDaily,
	KindMedicationWeekly,
	KindMedicationRefill,
	KindMedicationNotice,
	KindNutritionWater,
	KindNutritionTip,
	KindNutritionDeficiency,
	KindNutritionNotice,
	KindPregnancyUpdate,
	KindPregnancySchedule,
	KindPregnancyNotice,
	KindVisitDaily,
	KindVisitFinal,
	KindVisitNotice,
	KindPinNotice,
	KindGeneral,
}

func (k ReminderKind) String() string { return string(k) }

func (k ReminderKind) IsValid() bool {
	for _, kind := range reminderKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Domain returns the owning domain prefix, e.g. "appointment".
func (k ReminderKind) Domain() string {
	domain, _, _ := strings.Cut(string(k), ".")
	return domain
}

func ParseReminderKindFromString(s string) (ReminderKind, error) {
	kind := ReminderKind(strings.ToLower(strings.TrimSpace(s)))
	if !kind.IsValid() {
		return "", fmt.Errorf("%w: invalid reminder kind %q", ErrValidation, s)
	}
	return kind, nil
}

// PendingReminder is a notification that failed immediate delivery and awaits a retry sweep.
type PendingReminder struct {
	ID          string
	Recipient   string
	Message     string
	Kind        ReminderKind
	ReferenceID *string
	RetryCount  int
	LastError   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Exhausted reports whether the reminder reached the retry ceiling.
func (p *PendingReminder) Exhausted() bool {
	return p.RetryCount >= MaxReminderRetries
}

func (p *PendingReminder) Validate() error {
	if strings.TrimSpace(p.Recipient) == "" {
		return fmt.Errorf("%w: recipient is required", ErrValidation)
	}
	if strings.TrimSpace(p.Message) == "" {
		return fmt.Errorf("%w: message is required", ErrValidation)
	}
	if !p.Kind.IsValid() {
		return fmt.Errorf("%w: invalid reminder kind %q", ErrValidation, p.Kind)
	}
	if p.RetryCount < 0 || p.RetryCount > MaxReminderRetries {
		return fmt.Errorf("%w: retry count must be between 0 and %d", ErrValidation, MaxReminderRetries)
	}
	return nil
}
