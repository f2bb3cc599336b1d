package domain

import (
	"fmt"
	"strings"
	"time"
)

type Visit struct {
	ID                 string
	PatientID          string
	PatientName        string
	Phone              string
	VisitDate          time.Time
	ReminderSent       bool
	DailyReminderCount int
	LastReminderSent   *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (v *Visit) Validate() error {
	if strings.TrimSpace(v.PatientID) == "" {
		return fmt.Errorf("%w: patientId is required", ErrValidation)
	}
	if strings.TrimSpace(v.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if v.VisitDate.IsZero() {
		return fmt.Errorf("%w: visitDate is required", ErrValidation)
	}
	return nil
}

// DaysUntil returns whole calendar days between today and the visit day, negative once passed.
func (v *Visit) DaysUntil(now time.Time) int {
	return int(StartOfDay(v.VisitDate).Sub(StartOfDay(now)) / (24 * time.Hour))
}

// DueReminder decides the reminder kind owed at now, if any. The visit day yields the final
// reminder; earlier days yield at most one daily reminder while DailyReminderCount < days until the visit.
func (v *Visit) DueReminder(now time.Time) (ReminderKind, bool) {
	if v.ReminderSent {
		return "", false
	}

	days := v.DaysUntil(now)
	switch {
	case days < 0:
		return "", false
	case days == 0:
		return KindVisitFinal, true
	}

	if v.LastReminderSent != nil && !v.LastReminderSent.Before(StartOfDay(now)) {
		return "", false
	}
	if v.DailyReminderCount >= days {
		return "", false
	}
	return KindVisitDaily, true
}

// RequiredVisits returns how many visits must be booked for a month at the given gestational week.
func RequiredVisits(weeks int) (int, error) {
	switch {
	case weeks >= 1 && weeks <= 28:
		return 1, nil
	case weeks > 28 && weeks <= 36:
		return 2, nil
	case weeks > 36 && weeks <= MaxPregnancyWeek:
		return 4, nil
	}
	return 0, fmt.Errorf("%w: no visit plan for week %d", ErrValidation, weeks)
}
