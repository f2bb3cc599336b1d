package domain

import (
	"fmt"
	"strings"
	"time"
)

// AppointmentStatus tracks the patient's answer to a scheduled appointment.
type AppointmentStatus string

const (
	AppointmentPending   AppointmentStatus = "pending"
	AppointmentConfirmed AppointmentStatus = "confirmed"
	AppointmentCanceled  AppointmentStatus = "canceled"
)

func (s AppointmentStatus) String() string { return string(s) }

func (s AppointmentStatus) IsValid() bool {
	switch s {
	case AppointmentPending, AppointmentConfirmed, AppointmentCanceled:
		return true
	}
	return false
}

// AppointmentReminders holds one sent-flag per lead-time window.
type AppointmentReminders struct {
	WeekBefore    bool
	TwoDaysBefore bool
	DayBefore     bool
}

// AppointmentWindow is a lead-time window that gates exactly one reminder.
type AppointmentWindow struct {
	Kind ReminderKind
	Lead time.Duration
}

// AppointmentWindows lists the windows widest first.
var AppointmentWindows = []AppointmentWindow{
	{Kind: KindAppointmentWeekBefore, Lead: 7 * 24 * time.Hour},
	{Kind: KindAppointmentTwoDaysBefore, Lead: 2 * 24 * time.Hour},
	{Kind: KindAppointmentDayBefore, Lead: 24 * time.Hour},
}

type Appointment struct {
	ID                  string
	PatientName         string
	Phone               string
	Doctor              string
	Date                time.Time
	Purpose             string
	Location            string
	SpecialInstructions string
	Status              AppointmentStatus
	Confirmed           bool
	ConfirmedAt         *time.Time
	Reminders           AppointmentReminders
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

func (a *Appointment) Validate() error {
	if strings.TrimSpace(a.PatientName) == "" {
		return fmt.Errorf("%w: patientName is required", ErrValidation)
	}
	if strings.TrimSpace(a.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if strings.TrimSpace(a.Doctor) == "" {
		return fmt.Errorf("%w: doctor is required", ErrValidation)
	}
	if a.Date.IsZero() {
		return fmt.Errorf("%w: date is required", ErrValidation)
	}
	if a.Status != "" && !a.Status.IsValid() {
		return fmt.Errorf("%w: invalid appointment status %q", ErrValidation, a.Status)
	}
	return nil
}

// ReminderSent reports the flag of the window identified by kind.
func (a *Appointment) ReminderSent(kind ReminderKind) bool {
	switch kind {
	case KindAppointmentWeekBefore:
		return a.Reminders.WeekBefore
	case KindAppointmentTwoDaysBefore:
		return a.Reminders.TwoDaysBefore
	case KindAppointmentDayBefore:
		return a.Reminders.DayBefore
	}
	return false
}

// WindowEntered reports whether now lies inside the window: the appointment is upcoming and at most lead away.
func (a *Appointment) WindowEntered(window AppointmentWindow, now time.Time) bool {
	if a.Date.Before(now) {
		return false
	}
	return !a.Date.After(now.Add(window.Lead))
}

// DueWindows returns the windows entered at now whose flag is still false.
func (a *Appointment) DueWindows(now time.Time) []AppointmentWindow {
	due := make([]AppointmentWindow, 0, len(AppointmentWindows))
	for _, window := range AppointmentWindows {
		if a.ReminderSent(window.Kind) {
			continue
		}
		if a.WindowEntered(window, now) {
			due = append(due, window)
		}
	}
	return due
}

// AppointmentReminderColumn maps a window kind to its persisted flag column.
func AppointmentReminderColumn(kind ReminderKind) (string, bool) {
	switch kind {
	case KindAppointmentWeekBefore:
		return "reminder_week_before", true
	case KindAppointmentTwoDaysBefore:
		return "reminder_two_days_before", true
	case KindAppointmentDayBefore:
		return "reminder_day_before", true
	}
	return "", false
}

// Confirmation is the patient's Y/N answer to an appointment notice.
type Confirmation string

const (
	ConfirmationYes Confirmation = "Y"
	ConfirmationNo  Confirmation = "N"
)

func ParseConfirmation(s string) (Confirmation, error) {
	c := Confirmation(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case ConfirmationYes, ConfirmationNo:
		return c, nil
	}
	return "", fmt.Errorf("%w: confirmation must be Y or N", ErrValidation)
}
