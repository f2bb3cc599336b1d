package handler

import (
	"bytes"
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/awopa/maternal-notify/internal/domain"
	"github.com/awopa/maternal-notify/internal/repository"
	"github.com/awopa/maternal-notify/internal/service"
	"github.com/awopa/maternal-notify/internal/transport"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var errNotStubbed = errors.New("not stubbed")

func newTestApp(t *testing.T, register func(app *fiber.App) error) *fiber.App {
	t.Helper()

	app := fiber.New(fiber.Config{
		ErrorHandler: transport.ErrorHandler(zap.NewNop()),
	})
	if err := register(app); err != nil {
		t.Fatalf("register routes error = %v", err)
	}
	return app
}

func performRequest(t *testing.T, app *fiber.App, method string, path string, body string) (*http.Response, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()

	return resp, respBody
}

func decodeEnvelope(t *testing.T, body []byte) transport.Envelope {
	t.Helper()

	var env transport.Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		t.Fatalf("json unmarshal error = %v, body=%s", err, string(body))
	}
	return env
}

func resultMap(t *testing.T, env transport.Envelope) map[string]any {
	t.Helper()

	m, ok := env.Result.(map[string]any)
	if !ok {
		t.Fatalf("result = %T, want object", env.Result)
	}
	return m
}

type stubMessenger struct {
	sendFn     func(ctx context.Context, phone, text string) (service.SendOutcome, error)
	sendTestFn func(ctx context.Context, phone string) error
}

func (s *stubMessenger) Send(ctx context.Context, phone, text string) (service.SendOutcome, error) {
	if s.sendFn == nil {
		return service.SendOutcome{}, errNotStubbed
	}
	return s.sendFn(ctx, phone, text)
}

func (s *stubMessenger) SendTest(ctx context.Context, phone string) error {
	if s.sendTestFn == nil {
		return errNotStubbed
	}
	return s.sendTestFn(ctx, phone)
}

type stubAppointments struct {
	scheduleFn func(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error)
	confirmFn  func(ctx context.Context, phone, answer string) (*domain.Appointment, error)
}

func (s *stubAppointments) Schedule(ctx context.Context, appt *domain.Appointment) (*domain.Appointment, error) {
	if s.scheduleFn == nil {
		return nil, errNotStubbed
	}
	return s.scheduleFn(ctx, appt)
}

func (s *stubAppointments) Confirm(ctx context.Context, phone string, answer string) (*domain.Appointment, error) {
	if s.confirmFn == nil {
		return nil, errNotStubbed
	}
	return s.confirmFn(ctx, phone, answer)
}

type stubCare struct {
	nutritionFn  func(ctx context.Context, p *domain.NutritionProfile) (*domain.NutritionProfile, error)
	medicationFn func(ctx context.Context, m *domain.Medication) (*domain.Medication, error)
	pregnancyFn  func(ctx context.Context, p *domain.Pregnancy) (*domain.Pregnancy, error)
	updateWeekFn func(ctx context.Context, patientID string) (*domain.Pregnancy, error)
}

func (s *stubCare) CreateNutritionProfile(ctx context.Context, p *domain.NutritionProfile) (*domain.NutritionProfile, error) {
	if s.nutritionFn == nil {
		return nil, errNotStubbed
	}
	return s.nutritionFn(ctx, p)
}

func (s *stubCare) CreateMedication(ctx context.Context, m *domain.Medication) (*domain.Medication, error) {
	if s.medicationFn == nil {
		return nil, errNotStubbed
	}
	return s.medicationFn(ctx, m)
}

func (s *stubCare) CreatePregnancy(ctx context.Context, p *domain.Pregnancy) (*domain.Pregnancy, error) {
	if s.pregnancyFn == nil {
		return nil, errNotStubbed
	}
	return s.pregnancyFn(ctx, p)
}

func (s *stubCare) UpdatePregnancyWeek(ctx context.Context, patientID string) (*domain.Pregnancy, error) {
	if s.updateWeekFn == nil {
		return nil, errNotStubbed
	}
	return s.updateWeekFn(ctx, patientID)
}

type stubVisits struct {
	scheduleFn func(ctx context.Context, patientID string, dates []time.Time) ([]domain.Visit, error)
	listFn     func(ctx context.Context, patientID string) ([]domain.Visit, error)
}

func (s *stubVisits) Schedule(ctx context.Context, patientID string, dates []time.Time) ([]domain.Visit, error) {
	if s.scheduleFn == nil {
		return nil, errNotStubbed
	}
	return s.scheduleFn(ctx, patientID, dates)
}

func (s *stubVisits) ListByPatient(ctx context.Context, patientID string) ([]domain.Visit, error) {
	if s.listFn == nil {
		return nil, errNotStubbed
	}
	return s.listFn(ctx, patientID)
}

type stubPins struct {
	createFn func(ctx context.Context, userID, pin, phone string) error
	verifyFn func(ctx context.Context, userID, pin string) error
	updateFn func(ctx context.Context, userID, oldPin, newPin, phone string) error
	deleteFn func(ctx context.Context, userID string) error
	hasPinFn func(ctx context.Context, userID string) (bool, error)
}

func (s *stubPins) Create(ctx context.Context, userID, pin, phone string) error {
	if s.createFn == nil {
		return errNotStubbed
	}
	return s.createFn(ctx, userID, pin, phone)
}

func (s *stubPins) Verify(ctx context.Context, userID, pin string) error {
	if s.verifyFn == nil {
		return errNotStubbed
	}
	return s.verifyFn(ctx, userID, pin)
}

func (s *stubPins) Update(ctx context.Context, userID, oldPin, newPin, phone string) error {
	if s.updateFn == nil {
		return errNotStubbed
	}
	return s.updateFn(ctx, userID, oldPin, newPin, phone)
}

func (s *stubPins) Delete(ctx context.Context, userID string) error {
	if s.deleteFn == nil {
		return errNotStubbed
	}
	return s.deleteFn(ctx, userID)
}

func (s *stubPins) HasPin(ctx context.Context, userID string) (bool, error) {
	if s.hasPinFn == nil {
		return false, errNotStubbed
	}
	return s.hasPinFn(ctx, userID)
}

type stubPending struct {
	listFn func(ctx context.Context, params repository.PendingListParams) ([]domain.PendingReminder, int64, error)
}

func (s *stubPending) List(ctx context.Context, params repository.PendingListParams) ([]domain.PendingReminder, int64, error) {
	if s.listFn == nil {
		return nil, 0, errNotStubbed
	}
	return s.listFn(ctx, params)
}

type stubBroker struct {
	connected bool
}

func (b stubBroker) Connected() bool { return b.connected }

type stubConnector struct {
	pingErr error
}

func (c stubConnector) Connect(context.Context) (driver.Conn, error) {
	return stubConn(c), nil
}

func (c stubConnector) Driver() driver.Driver {
	return stubDriver(c)
}

type stubDriver struct {
	pingErr error
}

func (d stubDriver) Open(string) (driver.Conn, error) {
	return stubConn(d), nil
}

type stubConn struct {
	pingErr error
}

func (c stubConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("not implemented") }
func (c stubConn) Close() error                        { return nil }
func (c stubConn) Begin() (driver.Tx, error)           { return nil, errors.New("not implemented") }
func (c stubConn) Ping(context.Context) error          { return c.pingErr }

type stubRedisHook struct {
	pingErr error
}

func (h stubRedisHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (h stubRedisHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if strings.EqualFold(cmd.Name(), "ping") && h.pingErr != nil {
			cmd.SetErr(h.pingErr)
			return h.pingErr
		}
		cmd.SetErr(nil)
		return nil
	}
}

func (h stubRedisHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		for _, cmd := range cmds {
			cmd.SetErr(nil)
		}
		return nil
	}
}

func newStubRedisClient(pingErr error) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         "127.0.0.1:6379",
		DialTimeout:  time.Millisecond,
		ReadTimeout:  time.Millisecond,
		WriteTimeout: time.Millisecond,
	})
	rdb.AddHook(stubRedisHook{pingErr: pingErr})
	return rdb
}
