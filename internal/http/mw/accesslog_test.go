package mw

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

// logLine runs one request through AccessLog wrapping the tenant
// resolver and decodes the single line the logger emitted.
func logLine(t *testing.T, host string) map[string]any {
	t.Helper()
	repo, cfg := tenantFixture()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	})
	handler := AccessLog(logger)(TenantResolver(repo, cfg)(inner))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/boats", nil)
	req.Host = host
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
	}
	return line
}

func TestAccessLog(t *testing.T) {
	line := logLine(t, "mosman.shedboard.au")

	if line["msg"] != "request" {
		t.Errorf("msg = %v", line["msg"])
	}
	if line["club_id"] != "club-mosman" {
		t.Errorf("club_id = %v, want club-mosman", line["club_id"])
	}
	if line["status"] != float64(http.StatusOK) {
		t.Errorf("status = %v, want 200", line["status"])
	}
	if line["route"] != "/api/v1/boats" {
		t.Errorf("route = %v", line["route"])
	}
	if line["method"] != http.MethodGet {
		t.Errorf("method = %v", line["method"])
	}
	if _, ok := line["duration_ms"]; !ok {
		t.Error("duration_ms missing")
	}
	if _, ok := line["request_id"]; !ok {
		t.Error("request_id missing")
	}
}

func TestAccessLog_UnresolvedHost(t *testing.T) {
	line := logLine(t, "nobody.shedboard.au")

	if _, ok := line["club_id"]; ok {
		t.Errorf("club_id logged for unresolved host: %v", line["club_id"])
	}
	if line["status"] != float64(http.StatusNotFound) {
		t.Errorf("status = %v, want 404", line["status"])
	}
}

func TestAccessLog_NilLoggerDefaults(t *testing.T) {
	// Must not panic; falls back to slog.Default.
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	AccessLog(nil)(inner).ServeHTTP(httptest.NewRecorder(), req)
}
