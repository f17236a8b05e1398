// Package metrics exposes Prometheus collectors for the statute crawler.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapeRunsTotal            *prometheus.CounterVec
	scrapeItemsTotal           *prometheus.CounterVec
	robotsFallbackTotal        *prometheus.CounterVec
	rateLimitDelaySeconds      *prometheus.HistogramVec
	activeScrapes              prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapeRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statute_scrape_runs_total",
				Help: "Total number of scrape runs, labeled by jurisdiction and final status.",
			},
			[]string{"jurisdiction", "status"},
		)

		scrapeItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statute_scrape_items_total",
				Help: "Total number of target documents attempted, labeled by jurisdiction and outcome.",
			},
			[]string{"jurisdiction", "outcome"},
		)

		robotsFallbackTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "statute_robots_fallback_total",
				Help: "robots.txt lookups that fell back to allow-all, labeled by host and reason.",
			},
			[]string{"host", "reason"},
		)

		rateLimitDelaySeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "statute_rate_limit_delay_seconds",
				Help:    "Histogram of politeness waits before outbound fetches.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"host"},
		)

		activeScrapes = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "statute_active_scrapes",
				Help: "Number of jurisdictions currently being scraped.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite extracts a lowercase hostname from a URL.
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

// ObserveRun records the final status of a scrape run.
func ObserveRun(jurisdiction, status string) {
	Init()
	scrapeRunsTotal.WithLabelValues(jurisdiction, status).Inc()
}

// ObserveItem records the outcome of one target document.
func ObserveItem(jurisdiction, outcome string) {
	Init()
	scrapeItemsTotal.WithLabelValues(jurisdiction, outcome).Inc()
}

// ObserveRobotsFallback counts a robots.txt lookup that degraded to allow-all.
func ObserveRobotsFallback(site, reason string) {
	Init()
	robotsFallbackTotal.WithLabelValues(SanitizeSite(site), reason).Inc()
}

// ObserveRateLimitDelay records the duration of a politeness wait.
func ObserveRateLimitDelay(site string, duration time.Duration) {
	Init()
	rateLimitDelaySeconds.WithLabelValues(SanitizeSite(site)).Observe(duration.Seconds())
}

// IncActiveScrapes increments the active scrapes gauge.
func IncActiveScrapes() {
	Init()
	activeScrapes.Inc()
}

// DecActiveScrapes decrements the active scrapes gauge.
func DecActiveScrapes() {
	Init()
	activeScrapes.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
