package domain

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is how often a medication reminder repeats.
type Frequency string

const (
	FrequencyDaily  Frequency = "daily"
	FrequencyWeekly Frequency = "weekly"
)

func (f Frequency) String() string { return string(f) }

func (f Frequency) IsValid() bool {
	return f == FrequencyDaily || f == FrequencyWeekly
}

func ParseFrequencyFromString(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("%w: invalid frequency %q", ErrValidation, s)
	}
	return f, nil
}

const (
	refillLeadMin = 3 * 24 * time.Hour
	refillLeadMax = 5 * 24 * time.Hour
	week          = 7 * 24 * time.Hour
)

type Medication struct {
	ID                     string
	PatientName            string
	Phone                  string
	MedicationName         string
	Dosage                 string
	Frequency              Frequency
	Time                   string
	RefillDate             *time.Time
	PharmacyName           string
	PharmacyPhone          string
	LastReminderSent       *time.Time
	LastRefillReminderSent *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (m *Medication) Validate() error {
	if strings.TrimSpace(m.PatientName) == "" {
		return fmt.Errorf("%w: patientName is required", ErrValidation)
	}
	if strings.TrimSpace(m.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if strings.TrimSpace(m.MedicationName) == "" {
		return fmt.Errorf("%w: medicationName is required", ErrValidation)
	}
	if strings.TrimSpace(m.Dosage) == "" {
		return fmt.Errorf("%w: dosage is required", ErrValidation)
	}
	if !m.Frequency.IsValid() {
		return fmt.Errorf("%w: invalid frequency %q", ErrValidation, m.Frequency)
	}
	return nil
}

// DoseDue reports whether the periodic dose reminder should fire at now.
// Daily reminders fire once per calendar day, weekly ones once per elapsed 7 days.
func (m *Medication) DoseDue(now time.Time) bool {
	if m.LastReminderSent == nil {
		return true
	}
	switch m.Frequency {
	case FrequencyDaily:
		return m.LastReminderSent.Before(StartOfDay(now))
	case FrequencyWeekly:
		return m.LastReminderSent.Before(now.Add(-week))
	}
	return false
}

// RefillDue reports whether the refill date falls 3 to 5 days out and no refill reminder went out today.
func (m *Medication) RefillDue(now time.Time) bool {
	if m.RefillDate == nil {
		return false
	}
	if m.RefillDate.Before(now.Add(refillLeadMin)) || m.RefillDate.After(now.Add(refillLeadMax)) {
		return false
	}
	if m.LastRefillReminderSent == nil {
		return true
	}
	return m.LastRefillReminderSent.Before(StartOfDay(now))
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
