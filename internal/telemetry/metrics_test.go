package telemetry

import (
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestMiddleware_RecordsRequestCountAndDuration(t *testing.T) {
	reg := NewRegistry()
	metrics := NewMetrics(reg)

	handler := Middleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var m dto.Metric
	if err := metrics.RequestsTotal.WithLabelValues("/auth/token", "POST", "200").Write(&m); err != nil {
		t.Fatalf("write counter metric: %v", err)
	}
	if m.Counter.GetValue() != 1 {
		t.Errorf("RequestsTotal = %v, want 1", m.Counter.GetValue())
	}

	var h dto.Metric
	if err := metrics.RequestDuration.WithLabelValues("/auth/token", "POST").Write(&h); err != nil {
		t.Fatalf("write histogram metric: %v", err)
	}
	if h.Histogram.GetSampleCount() != 1 {
		t.Errorf("RequestDuration sample count = %d, want 1", h.Histogram.GetSampleCount())
	}
}

func TestMiddleware_RecordsErrorStatus(t *testing.T) {
	reg := NewRegistry()
	metrics := NewMetrics(reg)

	handler := Middleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	req := httptest.NewRequest(http.MethodPost, "/auth/token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var m dto.Metric
	if err := metrics.RequestsTotal.WithLabelValues("/auth/token", "POST", "500").Write(&m); err != nil {
		t.Fatalf("write counter metric: %v", err)
	}
	if m.Counter.GetValue() != 1 {
		t.Errorf("RequestsTotal(500) = %v, want 1", m.Counter.GetValue())
	}
}

func TestNewMetrics_RegistersGoAndProcessCollectors(t *testing.T) {
	reg := NewRegistry()
	NewMetrics(reg)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	var sawGo, sawIdentityd bool
	for _, mf := range families {
		switch {
		case len(mf.GetName()) >= len("go_") && mf.GetName()[:3] == "go_":
			sawGo = true
		case len(mf.GetName()) >= len("identityd_") && mf.GetName()[:10] == "identityd_":
			sawIdentityd = true
		}
	}
	if !sawGo {
		t.Error("expected a go_* metric family from the Go collector")
	}
	if !sawIdentityd {
		t.Error("expected an identityd_* metric family from NewMetrics")
	}
}
