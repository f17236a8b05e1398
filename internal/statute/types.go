// Package statute defines the records and contracts shared by the scraping subsystems.
package statute

import (
	"errors"
	"time"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrSessionClosed is returned when a write targets a session that already reached a terminal status.
var ErrSessionClosed = errors.New("session already closed")

// SessionStatus represents the lifecycle state of a scrape session.
type SessionStatus string

// Session status values persisted in scrape_sessions.status.
const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
	SessionFailed     SessionStatus = "failed"
)

// IsTerminal reports whether no further writes may touch a session in this status.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionCompleted || s == SessionFailed
}

// ScrapeTypeFull labels a run that walks a jurisdiction's whole target list.
const ScrapeTypeFull = "full_scrape"

// Statute is one persisted legal section, unique by Citation.
type Statute struct {
	Citation      string     `json:"citation"`
	Title         string     `json:"title"`
	Content       string     `json:"content"`
	URL           string     `json:"url"`
	Jurisdiction  string     `json:"jurisdiction"`
	Category      string     `json:"category,omitempty"`
	Penalties     string     `json:"penalties,omitempty"`
	EffectiveDate *time.Time `json:"effective_date,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Session is the durable record of one scrape run.
type Session struct {
	ID              string         `json:"id"`
	Jurisdiction    string         `json:"jurisdiction"`
	ScrapeType      string         `json:"scrape_type"`
	Status          SessionStatus  `json:"status"`
	StartedAt       time.Time      `json:"started_at"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty"`
	LastUpdatedAt   *time.Time     `json:"last_updated_at,omitempty"`
	StatutesScraped int            `json:"statutes_scraped"`
	ErrorCount      int            `json:"error_count"`
	ErrorMessage    *string        `json:"error_message,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// SessionState merges the latest persisted session with the live activity flag.
type SessionState struct {
	Jurisdiction string   `json:"jurisdiction"`
	Active       bool     `json:"active"`
	Session      *Session `json:"session,omitempty"`
}

// Stats aggregates counts across every persisted session.
type Stats struct {
	TotalSessions        int      `json:"total_sessions"`
	Completed            int      `json:"completed"`
	Failed               int      `json:"failed"`
	InProgress           int      `json:"in_progress"`
	TotalStatutesScraped int      `json:"total_statutes_scraped"`
	TotalErrors          int      `json:"total_errors"`
	Jurisdictions        []string `json:"jurisdictions"`
	MostRecent           *Session `json:"most_recent,omitempty"`
}

// RunResult is the uniform answer returned to scrape callers.
type RunResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}
