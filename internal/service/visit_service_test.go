package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
)

func pregnancyAtWeek(week int) *domain.Pregnancy {
	return &domain.Pregnancy{
		ID:          "preg-1",
		PatientID:   "pat-1",
		PatientName: "Ama",
		Phone:       "233241234567",
		StartDate:   fixedNow.Add(-time.Duration(week)*7*24*time.Hour - time.Hour),
		CurrentWeek: week,
	}
}

func newTestVisitService(t *testing.T, visits *fakeVisitRepo, week int, sender *fakeNotifier) *VisitService {
	t.Helper()

	pregnancies := &fakePregnancyRepo{getByPatientIDFn: func(ctx context.Context, patientID string) (*domain.Pregnancy, error) {
		if patientID != "pat-1" {
			return nil, domain.ErrNotFound
		}
		return pregnancyAtWeek(week), nil
	}}
	svc, err := NewVisitService(visits, pregnancies, sender, &fakeEnqueuer{}, nil)
	if err != nil {
		t.Fatalf("NewVisitService() unexpected error = %v", err)
	}
	svc.now = fixedClock
	return svc
}

func TestVisitServiceSchedule(t *testing.T) {
	t.Parallel()

	var created []*domain.Visit
	visits := &fakeVisitRepo{createBatchFn: func(ctx context.Context, v []*domain.Visit) error {
		created = v
		return nil
	}}
	sender := &fakeNotifier{}
	svc := newTestVisitService(t, visits, 30, sender)

	later := fixedNow.Add(10 * 24 * time.Hour)
	sooner := fixedNow.Add(3 * 24 * time.Hour)
	got, err := svc.Schedule(context.Background(), "pat-1", []time.Time{later, sooner})
	if err != nil {
		t.Fatalf("Schedule() unexpected error = %v", err)
	}
	if len(got) != 2 || len(created) != 2 {
		t.Fatalf("visits = %d created = %d, want 2", len(got), len(created))
	}
	if !got[0].VisitDate.Equal(sooner) {
		t.Fatalf("first visit = %v, want sorted %v", got[0].VisitDate, sooner)
	}
	if got[0].ReminderSent || got[0].DailyReminderCount != 0 {
		t.Fatalf("visit = %+v, want fresh reminder state", got[0])
	}

	msgs := sender.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0].Message, "3/5/2026, 3/12/2026") {
		t.Fatalf("notice = %+v, want both dates in order", msgs)
	}
}

func TestVisitServiceScheduleErrors(t *testing.T) {
	t.Parallel()

	future := fixedNow.Add(3 * 24 * time.Hour)

	tests := []struct {
		name      string
		patientID string
		week      int
		dates     []time.Time
		existing  int64
		wantErr   error
	}{
		{name: "unknown patient", patientID: "pat-9", week: 10, dates: []time.Time{future}, wantErr: domain.ErrNotFound},
		{name: "wrong count", patientID: "pat-1", week: 10, dates: []time.Time{future, future}, wantErr: domain.ErrValidation},
		{name: "week out of range", patientID: "pat-1", week: 45, dates: []time.Time{future}, wantErr: domain.ErrValidation},
		{name: "already booked", patientID: "pat-1", week: 10, dates: []time.Time{future}, existing: 1, wantErr: domain.ErrConflict},
		{name: "past date", patientID: "pat-1", week: 10, dates: []time.Time{fixedNow.Add(-48 * time.Hour)}, wantErr: domain.ErrValidation},
		{name: "no dates", patientID: "pat-1", week: 10, wantErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			visits := &fakeVisitRepo{countInRangeFn: func(ctx context.Context, patientID string, from, to time.Time) (int64, error) {
				if from.Day() != 1 || to.Sub(from) < 28*24*time.Hour {
					t.Errorf("count range = %v..%v, want the current month", from, to)
				}
				return tt.existing, nil
			}}
			svc := newTestVisitService(t, visits, tt.week, &fakeNotifier{})

			if _, err := svc.Schedule(context.Background(), tt.patientID, tt.dates); !errors.Is(err, tt.wantErr) {
				t.Fatalf("Schedule() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestVisitServiceListByPatient(t *testing.T) {
	t.Parallel()

	visits := &fakeVisitRepo{listByPatientFn: func(ctx context.Context, patientID string) ([]domain.Visit, error) {
		return []domain.Visit{{ID: "v1", PatientID: patientID}}, nil
	}}
	svc := newTestVisitService(t, visits, 10, &fakeNotifier{})

	got, err := svc.ListByPatient(context.Background(), "pat-1")
	if err != nil || len(got) != 1 {
		t.Fatalf("ListByPatient() = %v, %v, want one visit", got, err)
	}
	if _, err := svc.ListByPatient(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("ListByPatient() blank error = %v, want ErrValidation", err)
	}
}
