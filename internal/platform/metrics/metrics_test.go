package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCollector_RecordEvent(t *testing.T) {
	c := NewCollector("appointment")
	c.RecordEvent("created", "Scheduled")
	c.RecordEvent("created", "Scheduled")
	c.RecordEvent("statusChanged", "Cancelled")

	if got := testutil.ToFloat64(c.EventsTotal.WithLabelValues("created", "Scheduled")); got != 2 {
		t.Errorf("expected 2 created events, got %v", got)
	}
	if got := testutil.ToFloat64(c.EventsTotal.WithLabelValues("statusChanged", "Cancelled")); got != 1 {
		t.Errorf("expected 1 statusChanged event, got %v", got)
	}
}

func TestCollector_RecordRejection(t *testing.T) {
	c := NewCollector("appointment")
	c.RecordRejection("conflict")

	if got := testutil.ToFloat64(c.RejectionsTotal.WithLabelValues("conflict")); got != 1 {
		t.Errorf("expected 1 conflict rejection, got %v", got)
	}
}

func TestCollector_IndependentRegistries(t *testing.T) {
	a := NewCollector("appointment")
	b := NewCollector("appointment")
	a.RecordRejection("not_found")

	if got := testutil.ToFloat64(b.RejectionsTotal.WithLabelValues("not_found")); got != 0 {
		t.Errorf("expected collectors not to share state, got %v", got)
	}
}

func TestMiddleware_CountsByRoute(t *testing.T) {
	c := NewCollector("appointment")
	e := echo.New()
	e.Use(c.Middleware())
	e.GET("/appointments/:id", func(ec echo.Context) error {
		return ec.String(http.StatusOK, "ok")
	})
	e.GET("/missing", func(ec echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	})

	for _, path := range []string{"/appointments/apt-1", "/appointments/apt-2", "/missing"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(c.RequestsTotal.WithLabelValues("GET", "/appointments/:id", "200")); got != 2 {
		t.Errorf("expected 2 requests for route pattern, got %v", got)
	}
	if got := testutil.ToFloat64(c.RequestsTotal.WithLabelValues("GET", "/missing", "404")); got != 1 {
		t.Errorf("expected 1 request with status 404, got %v", got)
	}
	if got := testutil.ToFloat64(c.InFlightGauge); got != 0 {
		t.Errorf("expected no in-flight requests, got %v", got)
	}
}

func TestHandler_ExposesMetrics(t *testing.T) {
	c := NewCollector("appointment")
	c.RecordEvent("deleted", "Confirmed")

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `appointment_events_total{event="deleted",status="Confirmed"} 1`) {
		t.Errorf("expected events counter in exposition, got:\n%s", body)
	}
}
