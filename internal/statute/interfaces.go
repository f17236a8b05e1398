package statute

import (
	"context"
	"time"
)

// Store persists statutes keyed by citation.
type Store interface {
	// Upsert inserts or overwrites the row for s.Citation and reports whether it was new.
	Upsert(ctx context.Context, s Statute) (bool, error)
	// Get loads a statute by citation or returns ErrNotFound.
	Get(ctx context.Context, citation string) (Statute, error)
	// CountByJurisdiction returns how many statutes are stored for a jurisdiction.
	CountByJurisdiction(ctx context.Context, jurisdiction string) (int, error)
}

// SessionTracker records the lifecycle of a scrape run.
type SessionTracker interface {
	Start(ctx context.Context, jurisdiction, scrapeType string) (string, error)
	Progress(ctx context.Context, sessionID string, scraped, errors int) error
	Complete(ctx context.Context, sessionID string, success bool, errMsg string, metadata map[string]any) error
}

// SessionReader exposes read-only session queries.
type SessionReader interface {
	Latest(ctx context.Context, jurisdiction string) (Session, error)
	History(ctx context.Context, jurisdiction string, limit int) ([]Session, error)
	Stats(ctx context.Context) (Stats, error)
}

// SessionRepository is the full session persistence surface.
type SessionRepository interface {
	SessionTracker
	SessionReader
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces session identifiers.
type IDGenerator interface {
	NewID() (string, error)
}
