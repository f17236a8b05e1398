package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/statute-crawler/internal/statute"
)

const (
	insertSessionSQL = `
INSERT INTO scrape_sessions (id, jurisdiction, scrape_type, status, started_at, statutes_scraped, error_count)
VALUES ($1, $2, $3, $4, $5, 0, 0)`

	progressSessionSQL = `
UPDATE scrape_sessions
SET statutes_scraped = GREATEST(statutes_scraped, $2),
	error_count = GREATEST(error_count, $3),
	last_updated_at = $4
WHERE id = $1 AND status = $5`

	completeSessionSQL = `
UPDATE scrape_sessions
SET status = $2, completed_at = $3, last_updated_at = $3, error_message = $4, metadata = $5
WHERE id = $1 AND status = $6`

	sessionStatusSQL = `SELECT status FROM scrape_sessions WHERE id = $1`

	sessionColumns = `id::text, jurisdiction, scrape_type, status, started_at, completed_at,
	last_updated_at, statutes_scraped, error_count, error_message, metadata`

	historySQL = `
SELECT ` + sessionColumns + `
FROM scrape_sessions
WHERE ($1 = '' OR jurisdiction = $1)
ORDER BY started_at DESC, id DESC
LIMIT $2`

	statsSQL = `
SELECT count(*),
	count(*) FILTER (WHERE status = 'completed'),
	count(*) FILTER (WHERE status = 'failed'),
	count(*) FILTER (WHERE status = 'in_progress'),
	COALESCE(sum(statutes_scraped), 0),
	COALESCE(sum(error_count), 0)
FROM scrape_sessions`

	jurisdictionsSQL = `SELECT DISTINCT jurisdiction FROM scrape_sessions ORDER BY jurisdiction`
)

// SessionStore records scrape sessions in scrape_sessions.
type SessionStore struct {
	pool  pool
	clock statute.Clock
	ids   statute.IDGenerator
}

// Sessions returns a SessionStore backed by db.
func (db *DB) Sessions(clock statute.Clock, ids statute.IDGenerator) *SessionStore {
	return &SessionStore{pool: db.pool, clock: clock, ids: ids}
}

// Start inserts an in_progress session and returns its id.
func (s *SessionStore) Start(ctx context.Context, jurisdiction, scrapeType string) (string, error) {
	if s.ids == nil {
		return "", errors.New("session store has no id generator")
	}
	id, err := s.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	if _, err := s.pool.Exec(ctx, insertSessionSQL,
		id, jurisdiction, scrapeType, string(statute.SessionInProgress), s.now(),
	); err != nil {
		return "", fmt.Errorf("insert session: %w", err)
	}
	return id, nil
}

// Progress overwrites the running counters while the session is in progress.
func (s *SessionStore) Progress(ctx context.Context, sessionID string, scraped, errCount int) error {
	tag, err := s.pool.Exec(ctx, progressSessionSQL,
		sessionID, scraped, errCount, s.now(), string(statute.SessionInProgress),
	)
	if err != nil {
		return fmt.Errorf("update session progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missedWrite(ctx, sessionID)
	}
	return nil
}

// Complete records the terminal status. It succeeds at most once per session.
func (s *SessionStore) Complete(
	ctx context.Context,
	sessionID string,
	success bool,
	errMsg string,
	metadata map[string]any,
) error {
	status := statute.SessionCompleted
	var msg *string
	if !success {
		status = statute.SessionFailed
		msg = &errMsg
	}
	var meta []byte
	if metadata != nil {
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal session metadata: %w", err)
		}
		meta = encoded
	}
	tag, err := s.pool.Exec(ctx, completeSessionSQL,
		sessionID, string(status), s.now(), msg, meta, string(statute.SessionInProgress),
	)
	if err != nil {
		return fmt.Errorf("complete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return s.missedWrite(ctx, sessionID)
	}
	return nil
}

// missedWrite explains why a guarded update touched no rows.
func (s *SessionStore) missedWrite(ctx context.Context, sessionID string) error {
	var status string
	err := s.pool.QueryRow(ctx, sessionStatusSQL, sessionID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return statute.ErrNotFound
		}
		return fmt.Errorf("load session status: %w", err)
	}
	return fmt.Errorf("%w: %s is %s", statute.ErrSessionClosed, sessionID, status)
}

// Latest returns the most recently started session for a jurisdiction.
func (s *SessionStore) Latest(ctx context.Context, jurisdiction string) (statute.Session, error) {
	sessions, err := s.History(ctx, jurisdiction, 1)
	if err != nil {
		return statute.Session{}, err
	}
	if len(sessions) == 0 {
		return statute.Session{}, statute.ErrNotFound
	}
	return sessions[0], nil
}

// History lists sessions newest first. An empty jurisdiction matches all; limit <= 0 means no limit.
func (s *SessionStore) History(ctx context.Context, jurisdiction string, limit int) ([]statute.Session, error) {
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}
	rows, err := s.pool.Query(ctx, historySQL, jurisdiction, limitArg)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []statute.Session{}
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Stats aggregates every stored session.
func (s *SessionStore) Stats(ctx context.Context) (statute.Stats, error) {
	var stats statute.Stats
	err := s.pool.QueryRow(ctx, statsSQL).Scan(
		&stats.TotalSessions,
		&stats.Completed,
		&stats.Failed,
		&stats.InProgress,
		&stats.TotalStatutesScraped,
		&stats.TotalErrors,
	)
	if err != nil {
		return statute.Stats{}, fmt.Errorf("aggregate sessions: %w", err)
	}

	rows, err := s.pool.Query(ctx, jurisdictionsSQL)
	if err != nil {
		return statute.Stats{}, fmt.Errorf("list jurisdictions: %w", err)
	}
	jurisdictions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return statute.Stats{}, fmt.Errorf("collect jurisdictions: %w", err)
	}
	stats.Jurisdictions = jurisdictions

	recent, err := s.Latest(ctx, "")
	switch {
	case err == nil:
		stats.MostRecent = &recent
	case !errors.Is(err, statute.ErrNotFound):
		return statute.Stats{}, err
	}
	return stats, nil
}

func scanSession(row pgx.Row) (statute.Session, error) {
	var (
		sess   statute.Session
		status string
		meta   []byte
	)
	err := row.Scan(
		&sess.ID,
		&sess.Jurisdiction,
		&sess.ScrapeType,
		&status,
		&sess.StartedAt,
		&sess.CompletedAt,
		&sess.LastUpdatedAt,
		&sess.StatutesScraped,
		&sess.ErrorCount,
		&sess.ErrorMessage,
		&meta,
	)
	if err != nil {
		return statute.Session{}, fmt.Errorf("scan session: %w", err)
	}
	sess.Status = statute.SessionStatus(status)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &sess.Metadata); err != nil {
			return statute.Session{}, fmt.Errorf("decode session metadata: %w", err)
		}
	}
	return sess, nil
}

func (s *SessionStore) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock.Now().UTC()
}
