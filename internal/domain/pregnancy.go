package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MaxPregnancyWeek bounds weekly updates.
	MaxPregnancyWeek = 42

	monthlyStageEnd      = 28
	twiceMonthlyStageEnd = 36
)

type Pregnancy struct {
	ID                      string
	PatientID               string
	PatientName             string
	Phone                   string
	StartDate               time.Time
	CurrentWeek             int
	NextAppointmentSchedule *time.Time
	LastUpdateSent          *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

func (p *Pregnancy) Validate() error {
	if strings.TrimSpace(p.PatientID) == "" {
		return fmt.Errorf("%w: patientId is required", ErrValidation)
	}
	if strings.TrimSpace(p.PatientName) == "" {
		return fmt.Errorf("%w: patientName is required", ErrValidation)
	}
	if strings.TrimSpace(p.Phone) == "" {
		return fmt.Errorf("%w: phone is required", ErrValidation)
	}
	if p.StartDate.IsZero() {
		return fmt.Errorf("%w: startDate is required", ErrValidation)
	}
	if p.CurrentWeek < 0 {
		return fmt.Errorf("%w: currentWeek must not be negative", ErrValidation)
	}
	return nil
}

// WeekAt returns the number of whole weeks elapsed since StartDate.
func (p *Pregnancy) WeekAt(now time.Time) int {
	if now.Before(p.StartDate) {
		return 0
	}
	return int(now.Sub(p.StartDate) / week)
}

// ComputeNextAppointment sets NextAppointmentSchedule from the gestational stage of CurrentWeek:
// monthly before week 28, twice monthly before week 36, weekly afterwards.
func (p *Pregnancy) ComputeNextAppointment() {
	next := p.StartDate.AddDate(0, 0, (p.CurrentWeek+AppointmentIntervalWeeks(p.CurrentWeek))*7)
	p.NextAppointmentSchedule = &next
}

// AppointmentIntervalWeeks returns the antenatal appointment spacing for a gestational week.
func AppointmentIntervalWeeks(currentWeek int) int {
	switch {
	case currentWeek < monthlyStageEnd:
		return 4
	case currentWeek < twiceMonthlyStageEnd:
		return 2
	default:
		return 1
	}
}

func (p *Pregnancy) UpdateDue(now time.Time) bool {
	if p.CurrentWeek > MaxPregnancyWeek {
		return false
	}
	return p.LastUpdateSent == nil || p.LastUpdateSent.Before(now.Add(-week))
}
