// Package message renders the text of every outbound patient notification.
package message

import (
	"fmt"
	"strings"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
)

const (
	dateLayout = "1/2/2006"

	TestText            = "This is a test message from your healthcare provider's system."
	ConfirmedText       = "Thank you for confirming your appointment."
	RescheduleText      = "We will contact you to reschedule your appointment."
	PinDeletedText      = "Your PIN has been deleted successfully."
	defaultPurpose      = "a checkup"
	defaultLocation     = "our clinic"
	exhaustedSubjectFmt = "Reminder delivery exhausted: %s"
)

// FormatDate renders t as M/D/YYYY in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func AppointmentScheduled(a domain.Appointment) string {
	purpose := orDefault(a.Purpose, defaultPurpose)
	location := orDefault(a.Location, defaultLocation)
	return fmt.Sprintf(
		"Dear %s, Dr. %s has scheduled an appointment to see you for %s on %s at %s. Reply Y to confirm or N to reschedule.",
		a.PatientName, a.Doctor, purpose, FormatDate(a.Date), location,
	)
}

// AppointmentReminder renders the reminder of the given lead-time window.
func AppointmentReminder(a domain.Appointment, kind domain.ReminderKind) (string, error) {
	date := FormatDate(a.Date)
	switch kind {
	case domain.KindAppointmentWeekBefore:
		text := fmt.Sprintf(
			"Dear %s, your appointment for %s with Dr. %s is in one week (%s) at %s. %s",
			a.PatientName, a.Purpose, a.Doctor, date, a.Location, a.SpecialInstructions,
		)
		return strings.TrimSpace(text), nil
	case domain.KindAppointmentTwoDaysBefore:
		return fmt.Sprintf("Friendly reminder: Your appointment with Dr. %s is in 2 days (%s) at %s.", a.Doctor, date, a.Location), nil
	case domain.KindAppointmentDayBefore:
		return fmt.Sprintf("Final reminder: Your appointment with Dr. %s is tomorrow (%s) at %s.", a.Doctor, date, a.Location), nil
	}
	return "", fmt.Errorf("%w: %s is not an appointment window", domain.ErrValidation, kind)
}

func AppointmentConfirmation(c domain.Confirmation) string {
	if c == domain.ConfirmationYes {
		return ConfirmedText
	}
	return RescheduleText
}

func WaterIntake(patientName string, glasses int) string {
	return fmt.Sprintf("Dear %s, remember to drink %d glasses of water today for optimal hydration.", patientName, glasses)
}

func NutritionTip(patientName string, trimester int, tip string) string {
	return fmt.Sprintf("Dear %s, nutrition tip for trimester %d: %s", patientName, trimester, tip)
}

func DeficiencyReminder(patientName, tip string) string {
	return fmt.Sprintf("Dear %s, important: %s", patientName, tip)
}

func NutritionProfileCreated(p domain.NutritionProfile) string {
	return fmt.Sprintf(
		"Dear %s, your nutrition profile has been created. You will receive hydration reminders and nutrition tips for trimester %d.",
		p.PatientName, p.Trimester,
	)
}

// PickNutritionTip selects a tip for the trimester using randIntn; ok is false for unknown trimesters.
func PickNutritionTip(trimester int, randIntn func(n int) int) (string, bool) {
	tips := NutritionTips[trimester]
	if len(tips) == 0 {
		return "", false
	}
	idx := 0
	if randIntn != nil {
		idx = randIntn(len(tips))
	}
	if idx < 0 || idx >= len(tips) {
		idx = 0
	}
	return tips[idx], true
}

func MedicationDose(m domain.Medication) string {
	if m.Frequency == domain.FrequencyWeekly {
		return fmt.Sprintf("Weekly medication reminder: %s (%s)", m.MedicationName, m.Dosage)
	}
	return fmt.Sprintf("Time to take your medication: %s (%s)", m.MedicationName, m.Dosage)
}

func MedicationRefill(m domain.Medication) string {
	var date string
	if m.RefillDate != nil {
		date = FormatDate(*m.RefillDate)
	}

	var pharmacy string
	if strings.TrimSpace(m.PharmacyName) != "" {
		pharmacy = fmt.Sprintf(" at %s (%s)", m.PharmacyName, m.PharmacyPhone)
	}
	return fmt.Sprintf("Reminder to refill %s by %s%s", m.MedicationName, date, pharmacy)
}

func MedicationCreated(m domain.Medication) string {
	return fmt.Sprintf("Medication reminder set for %s (%s), %s at %s.", m.MedicationName, m.Dosage, m.Frequency, m.Time)
}

// PregnancyWeekly renders the weekly update, falling back to a generic text for weeks without a milestone.
func PregnancyWeekly(week int) string {
	update, ok := WeeklyUpdates[week]
	if !ok {
		update = fmt.Sprintf("Your baby is growing! You're now at week %d of your pregnancy.", week)
	}
	return fmt.Sprintf("Week %d update: %s", week, update)
}

func PregnancySchedule(currentWeek int) string {
	var frequency string
	switch domain.AppointmentIntervalWeeks(currentWeek) {
	case 4:
		frequency = "4 weeks (monthly)"
	case 2:
		frequency = "2 weeks (twice monthly)"
	default:
		frequency = "1 week (weekly)"
	}
	return fmt.Sprintf("Appointment reminder: Next appointment in %s", frequency)
}

func PregnancyCreated(p domain.Pregnancy) string {
	return fmt.Sprintf(
		"Your pregnancy profile has been created. You are currently in week %d. You will receive weekly updates about your pregnancy journey.",
		p.CurrentWeek,
	)
}

func VisitSchedule(patientName string, dates []time.Time) string {
	formatted := make([]string, 0, len(dates))
	for _, d := range dates {
		formatted = append(formatted, FormatDate(d))
	}
	return fmt.Sprintf(
		"Dear %s, your antenatal visits have been scheduled for: %s. Please arrive on time for each appointment. Thank you.",
		patientName, strings.Join(formatted, ", "),
	)
}

// PinChanged never includes the PIN itself.
func PinChanged(action string) string {
	return fmt.Sprintf("Your PIN has been %s. Please do not share it with anyone.", action)
}

func ExhaustedAlert(p domain.PendingReminder) (subject string, body string) {
	subject = fmt.Sprintf(exhaustedSubjectFmt, p.Kind)

	var b strings.Builder
	fmt.Fprintf(&b, "A reminder could not be delivered after %d attempts.\n\n", p.RetryCount)
	fmt.Fprintf(&b, "Reminder: %s\n", p.ID)
	fmt.Fprintf(&b, "Kind: %s\n", p.Kind)
	fmt.Fprintf(&b, "Recipient: %s\n", p.Recipient)
	if p.ReferenceID != nil {
		fmt.Fprintf(&b, "Reference: %s\n", *p.ReferenceID)
	}
	if p.LastError != nil {
		fmt.Fprintf(&b, "Last error: %s\n", *p.LastError)
	}
	fmt.Fprintf(&b, "Created: %s\n\n%s\n", p.CreatedAt.UTC().Format(time.RFC3339), p.Message)
	return subject, b.String()
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
