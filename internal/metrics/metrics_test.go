package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://leginfo.legislature.ca.gov/faces", "leginfo.legislature.ca.gov"},
		{"standard https", "https://Statutes.Capitol.Texas.gov/Docs", "statutes.capitol.texas.gov"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
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

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if scrapeRunsTotal == nil || scrapeItemsTotal == nil || robotsFallbackTotal == nil ||
		rateLimitDelaySeconds == nil || activeScrapes == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObserveCounters(t *testing.T) {
	ObserveRun("ZZ", "completed")
	ObserveItem("ZZ", "ok")
	ObserveItem("ZZ", "ok")
	ObserveRobotsFallback("https://robots-test.example/robots.txt", "unreachable")
	ObserveRateLimitDelay("https://robots-test.example/a", 2*time.Second)

	if val := testutil.ToFloat64(scrapeRunsTotal.WithLabelValues("ZZ", "completed")); val != 1 {
		t.Errorf("expected one completed run, got %f", val)
	}
	if val := testutil.ToFloat64(scrapeItemsTotal.WithLabelValues("ZZ", "ok")); val != 2 {
		t.Errorf("expected two ok items, got %f", val)
	}
	if val := testutil.ToFloat64(robotsFallbackTotal.WithLabelValues("robots-test.example", "unreachable")); val != 1 {
		t.Errorf("expected one robots fallback, got %f", val)
	}
}

func TestActiveScrapesGauge(t *testing.T) {
	IncActiveScrapes()
	IncActiveScrapes()
	DecActiveScrapes()
	if val := testutil.ToFloat64(activeScrapes); val < 1 {
		t.Errorf("expected gauge to be at least 1, got %f", val)
	}
	DecActiveScrapes()
}

func TestMiddleware(t *testing.T) {
	Init()
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/scrape/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Get("/scrape/status/{jurisdiction}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	for _, path := range []string{"/scrape/stats", "/scrape/status/CA"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	if val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "418")); val != 1 {
		t.Errorf("expected one 418 request, got %f", val)
	}
	if val := testutil.CollectAndCount(httpRequestDurationSeconds); val <= 0 {
		t.Errorf("expected httpRequestDurationSeconds to be observed, got %d", val)
	}
}

func FuzzSanitizeSite(f *testing.F) {
	for _, tc := range []string{"http://example.com", "https://www.nysenate.gov", "ftp://example.com"} {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		if SanitizeSite(orig) == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
