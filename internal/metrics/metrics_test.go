package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestLifecycleCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.ReservationCreated()
	c.ReservationCreated()
	c.EmailConfirmed()
	c.ReservationConfirmed()
	c.ReservationDeleted()

	if v := counterValue(t, reg, "reservo_reservations_created_total"); v != 2 {
		t.Errorf("created = %v, want 2", v)
	}
	if v := counterValue(t, reg, "reservo_emails_confirmed_total"); v != 1 {
		t.Errorf("emails confirmed = %v, want 1", v)
	}
	if v := counterValue(t, reg, "reservo_reservations_confirmed_total"); v != 1 {
		t.Errorf("confirmed = %v, want 1", v)
	}
	if v := counterValue(t, reg, "reservo_reservations_deleted_total"); v != 1 {
		t.Errorf("deleted = %v, want 1", v)
	}
}

func TestMiddleware_ObservesStatusAndMethod(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	h := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/reservations", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != "reservo_http_request_duration_seconds" {
			continue
		}
		m := mf.GetMetric()[0]
		labels := map[string]string{}
		for _, l := range m.GetLabel() {
			labels[l.GetName()] = l.GetValue()
		}
		if labels["method"] != "GET" || labels["status_code"] != "404" {
			t.Fatalf("labels = %v", labels)
		}
		if m.GetHistogram().GetSampleCount() != 1 {
			t.Fatalf("sample count = %d, want 1", m.GetHistogram().GetSampleCount())
		}
		return
	}
	t.Fatal("duration histogram not found")
}

func TestHandler_ServesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.ReservationCreated()

	w := httptest.NewRecorder()
	Handler(reg).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "reservo_reservations_created_total 1") {
		t.Fatalf("scrape output missing counter: %s", body)
	}
}
