package observability

import (
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsGatewayCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncNotificationSent("SMS")
	metrics.IncNotificationFailed("sms", "server_error")
	metrics.IncNotificationFailed("email", "")
	metrics.ObserveNotificationSendDuration("sms", 120*time.Millisecond)

	if got := testutil.ToFloat64(metrics.notificationsSentTotal.WithLabelValues("sms")); got != 1 {
		t.Fatalf("notifications_sent_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.notificationsFailedTotal.WithLabelValues("sms", "server_error")); got != 1 {
		t.Fatalf("notifications_failed_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.notificationsFailedTotal.WithLabelValues("email", "unknown")); got != 1 {
		t.Fatalf("notifications_failed_total{reason=unknown} = %v, want 1", got)
	}
}

func TestMetricsReminderCollectors(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()

	metrics.IncPendingEnqueued("appointment")
	metrics.IncSweepOutcome("sent")
	metrics.IncSweepOutcome("failed")
	metrics.IncSweepOutcome("failed")
	metrics.IncReminderExhausted("medication")
	metrics.IncTriggerRun("water", "offline")
	metrics.SetConnectivity(true)

	if got := testutil.ToFloat64(metrics.pendingEnqueuedTotal.WithLabelValues("appointment")); got != 1 {
		t.Fatalf("pending_reminders_enqueued_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.sweepOutcomesTotal.WithLabelValues("failed")); got != 2 {
		t.Fatalf("pending_sweep_outcomes_total{failed} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(metrics.remindersExhaustedTotal.WithLabelValues("medication")); got != 1 {
		t.Fatalf("reminders_exhausted_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.triggerRunsTotal.WithLabelValues("water", "offline")); got != 1 {
		t.Fatalf("trigger_runs_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(metrics.connectivityOnline); got != 1 {
		t.Fatalf("connectivity_online = %v, want 1", got)
	}

	metrics.SetConnectivity(false)
	if got := testutil.ToFloat64(metrics.connectivityOnline); got != 0 {
		t.Fatalf("connectivity_online = %v, want 0", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	t.Parallel()

	var metrics *Metrics
	metrics.IncNotificationSent("sms")
	metrics.IncSweepOutcome("sent")
	metrics.IncTriggerRun("sweep", "ran")
	metrics.SetConnectivity(true)
	if metrics.Handler() == nil {
		t.Fatal("Handler() should fall back to the default handler")
	}
}

func TestMetricsHTTPMiddlewareRecordsRequest(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/livez", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/livez", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/livez", "200")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}

func TestMetricsHTTPMiddlewareRecordsErrorStatus(t *testing.T) {
	t.Parallel()

	metrics := NewMetrics()
	app := fiber.New()
	app.Use(metrics.HTTPMiddleware())
	app.Get("/boom", func(c *fiber.Ctx) error {
		return errors.New("boom")
	})

	req := httptest.NewRequest("GET", "/boom", nil)
	_, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	if got := testutil.ToFloat64(metrics.httpRequestsTotal.WithLabelValues("GET", "/boom", "500")); got != 1 {
		t.Fatalf("http_requests_total = %v, want 1", got)
	}
}
