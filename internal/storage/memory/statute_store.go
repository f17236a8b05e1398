// Package memory provides in-process stores for development and tests.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JakeFAU/statute-crawler/internal/statute"
)

// StatuteStore keeps statutes in a map keyed by citation.
type StatuteStore struct {
	mu       sync.RWMutex
	statutes map[string]statute.Statute
	clock    statute.Clock
}

// NewStatuteStore constructs a StatuteStore. A nil clock uses time.Now.
func NewStatuteStore(clock statute.Clock) *StatuteStore {
	return &StatuteStore{
		statutes: make(map[string]statute.Statute),
		clock:    clock,
	}
}

// Upsert inserts or overwrites the statute and reports whether the citation was new.
func (s *StatuteStore) Upsert(_ context.Context, st statute.Statute) (bool, error) {
	if st.Citation == "" {
		return false, errors.New("statute citation is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.statutes[st.Citation]
	st.UpdatedAt = now(s.clock)
	s.statutes[st.Citation] = st
	return !exists, nil
}

// Get returns the statute for citation.
func (s *StatuteStore) Get(_ context.Context, citation string) (statute.Statute, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.statutes[citation]
	if !ok {
		return statute.Statute{}, statute.ErrNotFound
	}
	return st, nil
}

// CountByJurisdiction counts stored statutes for a jurisdiction.
func (s *StatuteStore) CountByJurisdiction(_ context.Context, jurisdiction string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, st := range s.statutes {
		if st.Jurisdiction == jurisdiction {
			count++
		}
	}
	return count, nil
}

func now(clock statute.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}
