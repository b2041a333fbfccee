package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"just host", "example.com", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"ip address", "192.168.1.1", "192.168.1.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if auditsTotal == nil || attemptsTotal == nil || retriesTotal == nil ||
		auditDurationSeconds == nil || activeJobs == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveAudit(t *testing.T) {
	Init()

	before := testutil.ToFloat64(auditsTotal.WithLabelValues("observed.test", "ok"))
	ObserveAudit("https://observed.test/page", false, 2*time.Second)
	after := testutil.ToFloat64(auditsTotal.WithLabelValues("observed.test", "ok"))
	if after != before+1 {
		t.Errorf("audits_total{ok} = %v; want %v", after, before+1)
	}

	beforeFailed := testutil.ToFloat64(auditsTotal.WithLabelValues("observed.test", "failed"))
	ObserveAudit("https://observed.test/page", true, time.Second)
	afterFailed := testutil.ToFloat64(auditsTotal.WithLabelValues("observed.test", "failed"))
	if afterFailed != beforeFailed+1 {
		t.Errorf("audits_total{failed} = %v; want %v", afterFailed, beforeFailed+1)
	}
}

func TestActiveJobsGauge(t *testing.T) {
	Init()

	base := testutil.ToFloat64(activeJobs)
	IncActiveJobs()
	if got := testutil.ToFloat64(activeJobs); got != base+1 {
		t.Errorf("active jobs after Inc = %v; want %v", got, base+1)
	}
	DecActiveJobs()
	if got := testutil.ToFloat64(activeJobs); got != base {
		t.Errorf("active jobs after Dec = %v; want %v", got, base)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	ObserveRetry()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET metrics endpoint: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics endpoint status = %d; want %d", resp.StatusCode, http.StatusOK)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	if !strings.Contains(string(body), "audit_retries_total") {
		t.Error("metrics exposition is missing audit_retries_total")
	}
}

func TestObserveAttemptAndRetry(t *testing.T) {
	Init()

	before := testutil.ToFloat64(attemptsTotal.WithLabelValues("failed"))
	ObserveAttempt(true)
	if got := testutil.ToFloat64(attemptsTotal.WithLabelValues("failed")); got != before+1 {
		t.Errorf("attempts_total{failed} = %v; want %v", got, before+1)
	}

	beforeRetries := testutil.ToFloat64(retriesTotal)
	ObserveRetry()
	if got := testutil.ToFloat64(retriesTotal); got != beforeRetries+1 {
		t.Errorf("retries_total = %v; want %v", got, beforeRetries+1)
	}
}
