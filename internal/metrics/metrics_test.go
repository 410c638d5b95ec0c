package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodPost, "/api/v1/register", http.StatusOK, 15*time.Millisecond)
	m.RecordRegistration("created")
	m.RecordDetection("fallback")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`http_requests_total{method="POST",route="/api/v1/register",status="200"} 1`,
		`identity_registrations_total{result="created"} 1`,
		`wallet_detections_total{match="fallback"} 1`,
		"http_request_duration_seconds_bucket",
	} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("expected %q in metrics output", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest(http.MethodGet, "/", http.StatusOK, time.Millisecond)
	m.RecordRegistration("created")
	m.RecordDetection("flag")
}
