package handler

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/service"
	"github.com/gofiber/fiber/v2"
)

func noRun(context.Context) (service.RunResult, error) { return service.RunResult{}, nil }

func noSweep(context.Context) (service.SweepResult, error) { return service.SweepResult{}, nil }

func newSMSDeps() SMSDeps {
	return SMSDeps{
		Messages:        &stubMessenger{},
		Appointments:    &stubAppointments{},
		Care:            &stubCare{},
		RunAppointments: noRun,
		RunMedications:  noRun,
		RunWater:        noRun,
		RunTips:         noRun,
		RunPregnancy:    noRun,
		Sweep:           noSweep,
	}
}

func newSMSTestApp(t *testing.T, deps SMSDeps) *fiber.App {
	t.Helper()
	return newTestApp(t, func(app *fiber.App) error { return RegisterSMSRoutes(app, deps) })
}

func TestRegisterSMSRoutes_RequiresDependencies(t *testing.T) {
	t.Parallel()

	deps := newSMSDeps()
	deps.Sweep = nil
	if err := RegisterSMSRoutes(fiber.New(), deps); err == nil {
		t.Fatal("expected error when the sweep is missing")
	}

	deps = newSMSDeps()
	deps.Care = nil
	if err := RegisterSMSRoutes(fiber.New(), deps); err == nil {
		t.Fatal("expected error when the care service is missing")
	}
}

func TestSMSIntegration_Send(t *testing.T) {
	t.Parallel()

	deps := newSMSDeps()
	deps.Messages = &stubMessenger{
		sendFn: func(ctx context.Context, phone, text string) (service.SendOutcome, error) {
			if phone == "0200000000" {
				return service.SendOutcome{Queued: true}, nil
			}
			return service.SendOutcome{Sent: true}, nil
		},
	}
	app := newSMSTestApp(t, deps)

	resp, body := performRequest(t, app, http.MethodPost, "/sms/send", `{"phone":"0241234567","message":"hello"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}
	env := decodeEnvelope(t, body)
	if !env.Success || env.Path != "/sms/send" {
		t.Fatalf("envelope = %+v, want success on /sms/send", env)
	}
	if got := resultMap(t, env)["sent"]; got != true {
		t.Fatalf("sent = %v, want true", got)
	}

	resp, body = performRequest(t, app, http.MethodPost, "/sms/send", `{"phone":"0200000000","message":"hello"}`)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202 for queued send, body=%s", resp.StatusCode, string(body))
	}

	resp, body = performRequest(t, app, http.MethodPost, "/sms/send", `{"phone":"","message":"hello"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing phone", resp.StatusCode)
	}
	env = decodeEnvelope(t, body)
	if env.Success || env.Error == nil || env.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("envelope = %+v, want failed 400 envelope", env)
	}
}

func TestSMSIntegration_SendTestProviderFailure(t *testing.T) {
	t.Parallel()

	deps := newSMSDeps()
	deps.Messages = &stubMessenger{
		sendTestFn: func(ctx context.Context, phone string) error {
			return fmt.Errorf("gateway down")
		},
	}
	app := newSMSTestApp(t, deps)

	resp, body := performRequest(t, app, http.MethodPost, "/sms/test", `{"phone":"0241234567"}`)
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	env := decodeEnvelope(t, body)
	if env.Error == nil || env.Error.Message != "internal server error" {
		t.Fatalf("error = %+v, want generic message", env.Error)
	}
}

func TestSMSIntegration_ScheduleAppointment(t *testing.T) {
	t.Parallel()

	wantDate := time.Date(2026, 11, 2, 10, 0, 0, 0, time.UTC)
	deps := newSMSDeps()
	deps.Appointments = &stubAppointments{
		scheduleFn: func(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
			if !appt.Date.Equal(wantDate) {
				t.Fatalf("Date = %v, want %v", appt.Date, wantDate)
			}
			if appt.Doctor == "late" {
				return nil, fmt.Errorf("%w: date must be in the future", domain.ErrValidation)
			}
			appt.ID = "appt-1"
			appt.Status = domain.AppointmentPending
			return appt, nil
		},
	}
	app := newSMSTestApp(t, deps)

	body := `{"patientName":"Ama","phone":"0241234567","doctor":"Mensah","date":"2026-11-02T10:00:00Z","location":"Ridge"}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/sms/appointments", body)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(respBody))
	}
	result := resultMap(t, decodeEnvelope(t, respBody))
	if result["id"] != "appt-1" || result["status"] != "pending" || result["date"] != "2026-11-02T10:00:00Z" {
		t.Fatalf("result = %v", result)
	}

	late := `{"patientName":"Ama","phone":"0241234567","doctor":"late","date":"2026-11-02T10:00:00Z"}`
	resp, _ = performRequest(t, app, http.MethodPost, "/sms/appointments", late)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for service validation error", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/sms/appointments", `{"patientName":"Ama","phone":"0241234567"}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for missing doctor", resp.StatusCode)
	}
}

func TestSMSIntegration_ConfirmAppointment(t *testing.T) {
	t.Parallel()

	deps := newSMSDeps()
	deps.Appointments = &stubAppointments{
		confirmFn: func(ctx context.Context, phone, answer string) (*domain.Appointment, error) {
			if phone == "0209999999" {
				return nil, fmt.Errorf("%w: no pending appointment", domain.ErrNotFound)
			}
			return &domain.Appointment{ID: "appt-1", Status: domain.AppointmentConfirmed, Confirmed: true}, nil
		},
	}
	app := newSMSTestApp(t, deps)

	resp, body := performRequest(t, app, http.MethodPost, "/sms/appointments/confirm", `{"phone":"0241234567","confirmation":"Y"}`)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}
	env := decodeEnvelope(t, body)
	if env.Message != "appointment confirmed" {
		t.Fatalf("message = %q, want %q", env.Message, "appointment confirmed")
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/sms/appointments/confirm", `{"phone":"0209999999","confirmation":"N"}`)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestSMSIntegration_CreateMedication(t *testing.T) {
	t.Parallel()

	deps := newSMSDeps()
	deps.Care = &stubCare{
		medicationFn: func(ctx context.Context, m *domain.Medication) (*domain.Medication, error) {
			if m.Frequency != domain.FrequencyWeekly {
				t.Fatalf("Frequency = %q, want weekly", m.Frequency)
			}
			m.ID = "med-1"
			return m, nil
		},
	}
	app := newSMSTestApp(t, deps)

	body := `{"patientName":"Ama","phone":"0241234567","medicationName":"Folic acid","dosage":"5mg","frequency":"Weekly"}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/sms/medications", body)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(respBody))
	}
	if got := resultMap(t, decodeEnvelope(t, respBody))["frequency"]; got != "weekly" {
		t.Fatalf("frequency = %v, want weekly", got)
	}

	bad := `{"patientName":"Ama","phone":"0241234567","medicationName":"Folic acid","dosage":"5mg","frequency":"hourly"}`
	resp, _ = performRequest(t, app, http.MethodPost, "/sms/medications", bad)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid frequency", resp.StatusCode)
	}
}

func TestSMSIntegration_NutritionAndPregnancy(t *testing.T) {
	t.Parallel()

	next := time.Date(2026, 4, 27, 0, 0, 0, 0, time.UTC)
	deps := newSMSDeps()
	deps.Care = &stubCare{
		nutritionFn: func(ctx context.Context, p *domain.NutritionProfile) (*domain.NutritionProfile, error) {
			p.ID = "nut-1"
			return p, nil
		},
		pregnancyFn: func(ctx context.Context, p *domain.Pregnancy) (*domain.Pregnancy, error) {
			return nil, fmt.Errorf("%w: pregnancy profile already exists", domain.ErrConflict)
		},
		updateWeekFn: func(ctx context.Context, patientID string) (*domain.Pregnancy, error) {
			return &domain.Pregnancy{
				ID:                      "preg-1",
				PatientID:               patientID,
				StartDate:               time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
				CurrentWeek:             12,
				NextAppointmentSchedule: &next,
			}, nil
		},
	}
	app := newSMSTestApp(t, deps)

	resp, _ := performRequest(t, app, http.MethodPost, "/sms/nutrition", `{"patientName":"Ama","phone":"0241234567","trimester":4}`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for trimester 4", resp.StatusCode)
	}
	resp, body := performRequest(t, app, http.MethodPost, "/sms/nutrition", `{"patientName":"Ama","phone":"0241234567","trimester":2,"deficiencies":["iron"]}`)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201, body=%s", resp.StatusCode, string(body))
	}

	pregnancy := `{"patientId":"p-1","patientName":"Ama","phone":"0241234567","startDate":"2026-01-05T00:00:00Z"}`
	resp, _ = performRequest(t, app, http.MethodPost, "/sms/pregnancy", pregnancy)
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("status = %d, want 409", resp.StatusCode)
	}

	resp, body = performRequest(t, app, http.MethodPatch, "/sms/pregnancy/p-1/week", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}
	result := resultMap(t, decodeEnvelope(t, body))
	if result["patientId"] != "p-1" || result["currentWeek"] != float64(12) {
		t.Fatalf("result = %v", result)
	}
}

func TestSMSIntegration_RunProducersAndSweep(t *testing.T) {
	t.Parallel()

	calls := make(map[string]int)
	counted := func(name string) RunFunc {
		return func(context.Context) (service.RunResult, error) {
			calls[name]++
			return service.RunResult{Sent: 2, Queued: 1}, nil
		}
	}

	deps := newSMSDeps()
	deps.RunAppointments = counted("appointments")
	deps.RunMedications = counted("medications")
	deps.RunWater = counted("water")
	deps.RunTips = counted("tips")
	deps.RunPregnancy = counted("pregnancy")
	deps.Sweep = func(context.Context) (service.SweepResult, error) {
		return service.SweepResult{Skipped: true}, nil
	}
	app := newSMSTestApp(t, deps)

	testCases := []struct {
		method string
		path   string
		name   string
	}{
		{method: http.MethodGet, path: "/sms/appointments/send-reminders", name: "appointments"},
		{method: http.MethodPost, path: "/sms/medications/send-reminders", name: "medications"},
		{method: http.MethodPost, path: "/sms/nutrition/send-water-reminders", name: "water"},
		{method: http.MethodPost, path: "/sms/nutrition/send-tips", name: "tips"},
		{method: http.MethodPost, path: "/sms/pregnancy/send-updates", name: "pregnancy"},
	}
	for _, tc := range testCases {
		resp, body := performRequest(t, app, tc.method, tc.path, "")
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("%s %s status = %d, want 200", tc.method, tc.path, resp.StatusCode)
		}
		if got := resultMap(t, decodeEnvelope(t, body))["sent"]; got != float64(2) {
			t.Fatalf("%s sent = %v, want 2", tc.path, got)
		}
		if calls[tc.name] != 1 {
			t.Fatalf("%s calls = %d, want 1", tc.name, calls[tc.name])
		}
	}

	resp, _ := performRequest(t, app, http.MethodPost, "/sms/pending/process", "")
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202 for skipped sweep", resp.StatusCode)
	}
}
