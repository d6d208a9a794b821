package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.EvaluationRecorded()
	m.CascadeStep("ledger", errors.New("boom"))
	m.ReconcileRepair("log_orphan", 3)
	m.CacheLookup("github", true)
	m.WSConnected(1)
}

func TestIndependentRegistries(t *testing.T) {
	a := New("test")
	b := New("test")

	a.EvaluationRecorded()
	a.EvaluationRecorded()
	b.EvaluationRecorded()

	if got := testutil.ToFloat64(a.EvaluationsRecorded); got != 2 {
		t.Fatalf("expected 2, got %v", got)
	}
	if got := testutil.ToFloat64(b.EvaluationsRecorded); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
}

func TestCascadeStepLabels(t *testing.T) {
	m := New("test")
	m.CascadeStep("ledger", nil)
	m.CascadeStep("ledger", errors.New("down"))
	m.CascadeStep("ledger", errors.New("down"))

	if got := testutil.ToFloat64(m.CascadeSteps.WithLabelValues("ledger", "ok")); got != 1 {
		t.Fatalf("expected 1 ok, got %v", got)
	}
	if got := testutil.ToFloat64(m.CascadeSteps.WithLabelValues("ledger", "error")); got != 2 {
		t.Fatalf("expected 2 errors, got %v", got)
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	m := New("test")
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/items/:id", func(c fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", m.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/items/42", nil))
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	_ = resp.Body.Close()

	if got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/items/:id", "200")); got != 1 {
		t.Fatalf("expected route-labelled counter 1, got %v", got)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("metrics request: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "test_http_requests_total") {
		t.Fatalf("expected exposition to contain request counter")
	}
}
