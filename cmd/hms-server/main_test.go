package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/hms/hms/internal/config"
	"github.com/hms/hms/internal/domain/records"
	"github.com/hms/hms/internal/domain/reports"
	"github.com/hms/hms/internal/platform/db"
	"github.com/hms/hms/internal/platform/metrics"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:             "0",
		Env:              "test",
		DataSource:       config.SourceMemory,
		DefaultCondition: "Hypertension",
		CORSOrigins:      []string{"http://localhost:3000"},
		RequestTimeout:   5 * time.Second,
	}
}

type failingReader struct{}

func (failingReader) ReadSnapshot(context.Context) (*records.Snapshot, error) {
	return nil, &records.SourceError{Source: "postgres", Err: errors.New("connection refused")}
}

func (failingReader) Ping(context.Context) error { return errors.New("connection refused") }

func serve(t *testing.T, reader records.SnapshotReader, m *metrics.Metrics, path string) *httptest.ResponseRecorder {
	t.Helper()
	e := newServer(testConfig(), zerolog.New(io.Discard), reader, m)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	reader := records.NewMemorySnapshotRepo(records.SampleSnapshot())
	for _, path := range []string{"/health", "/health/db"} {
		rec := serve(t, reader, nil, path)
		if rec.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestServer_HealthDBUnavailable(t *testing.T) {
	rec := serve(t, failingReader{}, nil, "/health/db")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestServer_RunReport(t *testing.T) {
	reader := records.NewMemorySnapshotRepo(records.SampleSnapshot())
	rec := serve(t, reader, nil, "/api/v1/reports/success-rate?condition=Hypertension")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected a request id header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected security headers")
	}

	var body struct {
		ReportID string                   `json:"report_id"`
		RowCount int                      `json:"row_count"`
		Results  []map[string]interface{} `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.ReportID != "success-rate" || body.RowCount != 3 || len(body.Results) != 3 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestServer_ErrorStatuses(t *testing.T) {
	reader := records.NewMemorySnapshotRepo(records.SampleSnapshot())
	if rec := serve(t, reader, nil, "/api/v1/reports/unknown"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if rec := serve(t, failingReader{}, nil, "/api/v1/reports/treatment-counts"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestServer_Metrics(t *testing.T) {
	m := metrics.New()
	reader := records.NewMemorySnapshotRepo(records.SampleSnapshot())
	e := newServer(testConfig(), zerolog.New(io.Discard), reader, m)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/treatment-counts", nil)
	e.ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "hms_report_evaluations_total") {
		t.Error("expected report metrics in exposition")
	}
}

func TestServer_NoMetricsRoute(t *testing.T) {
	reader := records.NewMemorySnapshotRepo(records.SampleSnapshot())
	if rec := serve(t, reader, nil, "/metrics"); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 with metrics disabled, got %d", rec.Code)
	}
}

func sampleReport(t *testing.T, id string, params map[string]string) (*reports.Definition, *reports.Report) {
	t.Helper()
	svc := reports.NewService(records.NewMemorySnapshotRepo(records.SampleSnapshot()), zerolog.New(io.Discard), nil, "Hypertension")
	report, err := svc.Run(context.Background(), id, params)
	if err != nil {
		t.Fatalf("run %s: %v", id, err)
	}
	return reports.FindReport(id), report
}

func TestRenderReport_Table(t *testing.T) {
	def, report := sampleReport(t, "success-rate", nil)
	var buf bytes.Buffer
	if err := renderReport(&buf, def, report, formatTable); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "Treatment Success Rate for Condition") {
		t.Errorf("expected report name, got:\n%s", out)
	}
	if !strings.Contains(out, "condition: Hypertension") {
		t.Errorf("expected parameters, got:\n%s", out)
	}
	if !strings.Contains(out, def.Columns[0]) || !strings.Contains(out, "DrugA") {
		t.Errorf("expected header and rows, got:\n%s", out)
	}
	if !strings.Contains(out, "3 row(s)") {
		t.Errorf("expected row count, got:\n%s", out)
	}
}

func TestRenderReport_EmptyTable(t *testing.T) {
	def, report := sampleReport(t, "age-distribution", map[string]string{reports.ParamCondition: "Gout"})
	var buf bytes.Buffer
	if err := renderReport(&buf, def, report, formatTable); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "(no rows)") {
		t.Errorf("expected empty marker, got:\n%s", buf.String())
	}
}

func TestRenderReport_JSONAndYAML(t *testing.T) {
	def, report := sampleReport(t, "treatment-success-rate", map[string]string{reports.ParamTreatmentType: "Surgery"})

	var js bytes.Buffer
	if err := renderReport(&js, def, report, formatJSON); err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if decoded["report_id"] != "treatment-success-rate" {
		t.Errorf("unexpected json: %s", js.String())
	}

	var ys bytes.Buffer
	if err := renderReport(&ys, def, report, formatYAML); err != nil {
		t.Fatal(err)
	}
	decoded = nil
	if err := yaml.Unmarshal(ys.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid yaml: %v", err)
	}
	if decoded["report_id"] != "treatment-success-rate" {
		t.Errorf("unexpected yaml: %s", ys.String())
	}
	results, ok := decoded["results"].([]interface{})
	if !ok || len(results) != 1 {
		t.Fatalf("expected one result row, got %v", decoded["results"])
	}
	row := results[0].(map[string]interface{})
	if row["treatment_type"] != "Surgery" {
		t.Errorf("expected snake_case keys, got %v", row)
	}
}

func TestRenderDefinitions(t *testing.T) {
	var buf bytes.Buffer
	if err := renderDefinitions(&buf, reports.Catalog, formatTable); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(reports.Catalog)+1 {
		t.Errorf("expected header plus %d lines, got %d", len(reports.Catalog), len(lines))
	}
	if !strings.HasPrefix(lines[0], "ID") {
		t.Errorf("unexpected header: %q", lines[0])
	}

	if err := renderDefinitions(&buf, reports.Catalog, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRenderMigrationStatus(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer
	err := renderMigrationStatus(&buf, "public", []db.MigrationStatus{
		{Version: 1, Name: "hospital_records", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "indexes"},
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "2026-01-02 03:04:05") || !strings.Contains(out, "pending") {
		t.Errorf("unexpected status output:\n%s", out)
	}
}

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	want := map[string]bool{"serve": false, "migrate": false, "report": false}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("subcommand %s not registered", name)
		}
	}
}

func TestReportRunCmd(t *testing.T) {
	t.Setenv("DATA_SOURCE", config.SourceMemory)
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"report", "run", "age-distribution", "--condition", "Hypertension", "-o", "json"})
	if err := root.Execute(); err != nil {
		t.Fatalf("execute: %v", err)
	}

	var body struct {
		ReportID string `json:"report_id"`
		RowCount int    `json:"row_count"`
	}
	if err := json.Unmarshal(out.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", out.String(), err)
	}
	if body.ReportID != "age-distribution" || body.RowCount != 2 {
		t.Errorf("unexpected output: %+v", body)
	}
}

func TestReportRunCmd_BadFormat(t *testing.T) {
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	root.SetArgs([]string{"report", "run", "age-distribution", "-o", "xml"})
	if err := root.Execute(); err == nil {
		t.Error("expected error for unknown output format")
	}
}
