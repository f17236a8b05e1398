package memory

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/JakeFAU/statute-crawler/internal/statute"
)

// SessionStore records scrape sessions in memory.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]statute.Session
	clock    statute.Clock
	ids      statute.IDGenerator
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore(clock statute.Clock, ids statute.IDGenerator) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]statute.Session),
		clock:    clock,
		ids:      ids,
	}
}

// Start inserts an in_progress session with zeroed counters.
func (s *SessionStore) Start(_ context.Context, jurisdiction, scrapeType string) (string, error) {
	if s.ids == nil {
		return "", errors.New("session store has no id generator")
	}
	id, err := s.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.sessions[id]; exists {
		return "", fmt.Errorf("session %s already exists", id)
	}
	s.sessions[id] = statute.Session{
		ID:           id,
		Jurisdiction: jurisdiction,
		ScrapeType:   scrapeType,
		Status:       statute.SessionInProgress,
		StartedAt:    now(s.clock),
	}
	return id, nil
}

// Progress overwrites the running counters. Counters never move backwards.
func (s *SessionStore) Progress(_ context.Context, sessionID string, scraped, errCount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.openSession(sessionID)
	if err != nil {
		return err
	}
	sess.StatutesScraped = max(sess.StatutesScraped, scraped)
	sess.ErrorCount = max(sess.ErrorCount, errCount)
	sess.LastUpdatedAt = pointerTime(now(s.clock))
	s.sessions[sessionID] = sess
	return nil
}

// Complete moves the session to its terminal status.
func (s *SessionStore) Complete(
	_ context.Context,
	sessionID string,
	success bool,
	errMsg string,
	metadata map[string]any,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, err := s.openSession(sessionID)
	if err != nil {
		return err
	}
	ts := now(s.clock)
	sess.CompletedAt = pointerTime(ts)
	sess.LastUpdatedAt = pointerTime(ts)
	sess.Metadata = maps.Clone(metadata)
	if success {
		sess.Status = statute.SessionCompleted
	} else {
		sess.Status = statute.SessionFailed
		msg := errMsg
		sess.ErrorMessage = &msg
	}
	s.sessions[sessionID] = sess
	return nil
}

func (s *SessionStore) openSession(sessionID string) (statute.Session, error) {
	sess, ok := s.sessions[sessionID]
	if !ok {
		return statute.Session{}, statute.ErrNotFound
	}
	if sess.Status.IsTerminal() {
		return statute.Session{}, fmt.Errorf("%w: %s is %s", statute.ErrSessionClosed, sessionID, sess.Status)
	}
	return sess, nil
}

// Get returns one session by id.
func (s *SessionStore) Get(_ context.Context, sessionID string) (statute.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return statute.Session{}, statute.ErrNotFound
	}
	return sess, nil
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
func (s *SessionStore) History(_ context.Context, jurisdiction string, limit int) ([]statute.Session, error) {
	s.mu.RLock()
	out := make([]statute.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		if jurisdiction == "" || sess.Jurisdiction == jurisdiction {
			out = append(out, sess)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b statute.Session) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Stats aggregates every stored session.
func (s *SessionStore) Stats(ctx context.Context) (statute.Stats, error) {
	sessions, err := s.History(ctx, "", 0)
	if err != nil {
		return statute.Stats{}, err
	}
	stats := statute.Stats{Jurisdictions: []string{}}
	seen := make(map[string]struct{})
	for _, sess := range sessions {
		stats.TotalSessions++
		switch sess.Status {
		case statute.SessionCompleted:
			stats.Completed++
		case statute.SessionFailed:
			stats.Failed++
		case statute.SessionInProgress:
			stats.InProgress++
		}
		stats.TotalStatutesScraped += sess.StatutesScraped
		stats.TotalErrors += sess.ErrorCount
		if _, ok := seen[sess.Jurisdiction]; !ok {
			seen[sess.Jurisdiction] = struct{}{}
			stats.Jurisdictions = append(stats.Jurisdictions, sess.Jurisdiction)
		}
	}
	slices.Sort(stats.Jurisdictions)
	if len(sessions) > 0 {
		recent := sessions[0]
		stats.MostRecent = &recent
	}
	return stats, nil
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
