// Package api exposes the HTTP interface for the statute crawler service.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/statute-crawler/internal/audit"
	"github.com/JakeFAU/statute-crawler/internal/config"
	"github.com/JakeFAU/statute-crawler/internal/coordinator"
	"github.com/JakeFAU/statute-crawler/internal/metrics"
	"github.com/JakeFAU/statute-crawler/internal/statute"
)

const (
	readTimeout  = 15 * time.Second
	readyTimeout = 2 * time.Second
)

// Scrapes is the coordinator surface the handlers drive.
type Scrapes interface {
	RunScrape(ctx context.Context, jurisdiction string, opts coordinator.Options) (statute.RunResult, error)
	Trigger(ctx context.Context, jurisdiction string, opts coordinator.Options) (statute.RunResult, error)
	Cancel(jurisdiction string) bool
	Active() []string
	Status(ctx context.Context, jurisdiction string) (statute.SessionState, error)
	History(ctx context.Context, jurisdiction string, limit int) ([]statute.Session, error)
	Stats(ctx context.Context) (statute.Stats, error)
}

// StatuteReader loads stored statutes.
type StatuteReader interface {
	Get(ctx context.Context, citation string) (statute.Statute, error)
}

// Auditor produces the robots compliance report.
type Auditor interface {
	Run(ctx context.Context) (audit.Report, error)
}

// Pinger reports backend readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps bundles the collaborators behind the routes. Ready may be nil, in which
// case /readyz always succeeds.
type Deps struct {
	Scrapes  Scrapes
	Statutes StatuteReader
	Auditor  Auditor
	Ready    Pinger
}

// Server wires HTTP handlers to the coordinator and stores.
type Server struct {
	router chi.Router
	deps   Deps
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{deps: deps, logger: logger.Named("api")}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		// Blocking scrapes and the audit run for as long as the target list needs.
		r.Post("/scrape/{jurisdiction}", s.startScrape)
		r.Post("/scrape/{jurisdiction}/cancel", s.cancelScrape)
		r.Get("/scrape/robots-audit", s.robotsAudit)

		r.Group(func(r chi.Router) {
			r.Use(timeoutMiddleware(requestTimeout(cfg)))
			r.Get("/scrape/active", s.activeScrapes)
			r.Get("/scrape/status/{jurisdiction}", s.scrapeStatus)
			r.Get("/scrape/history", s.scrapeHistory)
			r.Get("/scrape/stats", s.scrapeStats)
			r.Get("/statutes/{citation}", s.getStatute)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func requestTimeout(cfg config.Config) time.Duration {
	if cfg.Server.ReadTimeoutSeconds > 0 {
		return time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	}
	return readTimeout
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()
		if err := s.deps.Ready.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// startScrape handles POST /scrape/{jurisdiction}. By default the run is
// accepted with 202 and continues in the background; ?wait=true runs it inside
// the request and answers 200 with the final result.
func (s *Server) startScrape(w http.ResponseWriter, r *http.Request) {
	jurisdiction := chi.URLParam(r, "jurisdiction")
	query := r.URL.Query()
	wait, err := parseBool(query.Get("wait"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid wait flag")
		return
	}
	generic, err := parseBool(query.Get("generic"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid generic flag")
		return
	}
	opts := coordinator.Options{Generic: generic}

	var result statute.RunResult
	status := http.StatusAccepted
	if wait {
		result, err = s.deps.Scrapes.RunScrape(r.Context(), jurisdiction, opts)
		status = http.StatusOK
	} else {
		result, err = s.deps.Scrapes.Trigger(r.Context(), jurisdiction, opts)
	}
	switch {
	case errors.Is(err, coordinator.ErrUnknownJurisdiction):
		status = http.StatusBadRequest
	case errors.Is(err, coordinator.ErrAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, coordinator.ErrShuttingDown):
		status = http.StatusServiceUnavailable
	case err != nil:
		s.logger.Error("scrape could not start", zap.String("jurisdiction", jurisdiction), zap.Error(err))
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, result)
}

func (s *Server) cancelScrape(w http.ResponseWriter, r *http.Request) {
	jurisdiction := strings.ToUpper(chi.URLParam(r, "jurisdiction"))
	if !s.deps.Scrapes.Cancel(jurisdiction) {
		writeJSON(w, http.StatusNotFound, statute.RunResult{
			Message: "no active scrape for " + jurisdiction,
		})
		return
	}
	writeJSON(w, http.StatusOK, statute.RunResult{
		Success: true,
		Message: "cancel requested for " + jurisdiction,
	})
}

func (s *Server) activeScrapes(w http.ResponseWriter, _ *http.Request) {
	active := s.deps.Scrapes.Active()
	if active == nil {
		active = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"active": active})
}

func (s *Server) scrapeStatus(w http.ResponseWriter, r *http.Request) {
	state, err := s.deps.Scrapes.Status(r.Context(), chi.URLParam(r, "jurisdiction"))
	if err != nil {
		s.internalError(w, "load scrape status", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// scrapeHistory handles GET /scrape/history?jurisdiction=&limit=. Sessions are
// returned newest first; an omitted limit uses the configured default.
func (s *Server) scrapeHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 0
	if raw := query.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	sessions, err := s.deps.Scrapes.History(r.Context(), query.Get("jurisdiction"), limit)
	if err != nil {
		s.internalError(w, "list scrape history", err)
		return
	}
	if sessions == nil {
		sessions = []statute.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) scrapeStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Scrapes.Stats(r.Context())
	if err != nil {
		s.internalError(w, "aggregate scrape stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) robotsAudit(w http.ResponseWriter, r *http.Request) {
	if s.deps.Auditor == nil {
		writeError(w, http.StatusServiceUnavailable, "robots audit unavailable")
		return
	}
	report, err := s.deps.Auditor.Run(r.Context())
	if err != nil {
		s.internalError(w, "run robots audit", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) getStatute(w http.ResponseWriter, r *http.Request) {
	citation, err := url.PathUnescape(chi.URLParam(r, "citation"))
	if err != nil || strings.TrimSpace(citation) == "" {
		writeError(w, http.StatusBadRequest, "invalid citation")
		return
	}
	record, err := s.deps.Statutes.Get(r.Context(), citation)
	if errors.Is(err, statute.ErrNotFound) {
		writeError(w, http.StatusNotFound, "statute not found")
		return
	}
	if err != nil {
		s.internalError(w, "load statute", err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (s *Server) internalError(w http.ResponseWriter, op string, err error) {
	s.logger.Error(op+" failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, op+" failed")
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, err //nolint:wrapcheck // surfaced as a 400 without detail
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
