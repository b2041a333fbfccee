// Package metrics exposes Prometheus collectors for the batch auditor.
package metrics

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	auditsTotal           *prometheus.CounterVec
	attemptsTotal         *prometheus.CounterVec
	retriesTotal          prometheus.Counter
	auditDurationSeconds  *prometheus.HistogramVec
	activeJobs            prometheus.Gauge
	browserLaunchFailures prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		auditsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audits_total",
				Help: "Total number of audits finished, labeled by site and status.",
			},
			[]string{"site", "status"},
		)

		attemptsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "audit_attempts_total",
				Help: "Total number of audit attempts, labeled by status.",
			},
			[]string{"status"},
		)

		retriesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_retries_total",
				Help: "Total number of retry waits performed.",
			},
		)

		auditDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "audit_duration_seconds",
				Help:    "Histogram of per-audit latencies, labeled by site.",
				Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"site"},
		)

		activeJobs = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "audit_active_jobs",
				Help: "Number of audit jobs currently in flight.",
			},
		)

		browserLaunchFailures = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "audit_browser_launch_failures_total",
				Help: "Total browser process launch failures.",
			},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAudit records one finished audit with its outcome and latency.
func ObserveAudit(site string, failed bool, duration time.Duration) {
	sanitized := SanitizeSite(site)
	status := "ok"
	if failed {
		status = "failed"
	}
	auditsTotal.WithLabelValues(sanitized, status).Inc()
	auditDurationSeconds.WithLabelValues(sanitized).Observe(duration.Seconds())
}

// ObserveAttempt increments the attempt counter for the given outcome.
func ObserveAttempt(failed bool) {
	status := "ok"
	if failed {
		status = "failed"
	}
	attemptsTotal.WithLabelValues(status).Inc()
}

// ObserveRetry increments the retry counter.
func ObserveRetry() {
	retriesTotal.Inc()
}

// ObserveBrowserLaunchFailure increments the launch failure counter.
func ObserveBrowserLaunchFailure() {
	browserLaunchFailures.Inc()
}

// IncActiveJobs increments the in-flight jobs gauge.
func IncActiveJobs() {
	activeJobs.Inc()
}

// DecActiveJobs decrements the in-flight jobs gauge.
func DecActiveJobs() {
	activeJobs.Dec()
}
