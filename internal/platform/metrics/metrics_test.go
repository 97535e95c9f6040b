package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"
)

func findFamily(t *testing.T, m *Metrics, name string) *dto.MetricFamily {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func labelValue(metric *dto.Metric, name string) string {
	for _, l := range metric.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func TestObserveReport_CountsByResult(t *testing.T) {
	m := New()
	m.ObserveReport("success-rate", nil, 10*time.Millisecond, 3)
	m.ObserveReport("success-rate", nil, 5*time.Millisecond, 2)
	m.ObserveReport("success-rate", errors.New("boom"), time.Millisecond, 0)

	f := findFamily(t, m, "hms_report_evaluations_total")
	if f == nil {
		t.Fatal("expected hms_report_evaluations_total to be registered")
	}

	counts := map[string]float64{}
	for _, metric := range f.GetMetric() {
		counts[labelValue(metric, "result")] = metric.GetCounter().GetValue()
	}
	if counts[ResultSuccess] != 2 {
		t.Errorf("expected 2 successes, got %v", counts[ResultSuccess])
	}
	if counts[ResultError] != 1 {
		t.Errorf("expected 1 error, got %v", counts[ResultError])
	}
}

func TestObserveReport_RowsKeepLastSuccess(t *testing.T) {
	m := New()
	m.ObserveReport("age-distribution", nil, time.Millisecond, 4)
	m.ObserveReport("age-distribution", errors.New("down"), time.Millisecond, 0)

	f := findFamily(t, m, "hms_report_rows")
	if f == nil || len(f.GetMetric()) != 1 {
		t.Fatal("expected one hms_report_rows series")
	}
	if got := f.GetMetric()[0].GetGauge().GetValue(); got != 4 {
		t.Errorf("expected last successful row count 4, got %v", got)
	}
}

func TestObserveHTTPRequest(t *testing.T) {
	m := New()
	m.ObserveHTTPRequest(http.MethodGet, "/api/v1/reports/:id", http.StatusOK, time.Millisecond)

	f := findFamily(t, m, "hms_http_requests_total")
	if f == nil || len(f.GetMetric()) != 1 {
		t.Fatal("expected one hms_http_requests_total series")
	}
	metric := f.GetMetric()[0]
	if labelValue(metric, "route") != "/api/v1/reports/:id" {
		t.Errorf("unexpected route label: %s", labelValue(metric, "route"))
	}
	if labelValue(metric, "status") != "200" {
		t.Errorf("unexpected status label: %s", labelValue(metric, "status"))
	}
}

func TestNilMetrics_NoPanic(t *testing.T) {
	var m *Metrics
	m.ObserveReport("x", nil, time.Second, 1)
	m.ObserveHTTPRequest(http.MethodGet, "/", http.StatusOK, time.Second)
	if m.Registry() != nil {
		t.Error("expected nil registry for nil metrics")
	}

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 from disabled metrics handler, got %d", rec.Code)
	}
}

func TestHandler_Exposition(t *testing.T) {
	m := New()
	m.ObserveReport("unsuccessful-treatments", nil, time.Millisecond, 1)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `hms_report_evaluations_total{report="unsuccessful-treatments",result="success"} 1`) {
		t.Errorf("expected evaluation counter in exposition, got:\n%s", body)
	}
}
