package coordinator

import (
	"context"
	"slices"
	"sync"
)

// ActiveSet tracks which jurisdictions have a run in flight. Check-and-set is
// atomic, so at most one entry exists per jurisdiction.
type ActiveSet struct {
	mu     sync.Mutex
	active map[string]context.CancelFunc
}

// NewActiveSet returns an empty set.
func NewActiveSet() *ActiveSet {
	return &ActiveSet{active: make(map[string]context.CancelFunc)}
}

// TryAcquire claims jurisdiction, remembering cancel so the run can be stopped.
// It reports false when the jurisdiction is already held.
func (s *ActiveSet) TryAcquire(jurisdiction string, cancel context.CancelFunc) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, held := s.active[jurisdiction]; held {
		return false
	}
	if cancel == nil {
		cancel = func() {}
	}
	s.active[jurisdiction] = cancel
	return true
}

// Release frees jurisdiction. Releasing an unheld jurisdiction is a no-op.
func (s *ActiveSet) Release(jurisdiction string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.active, jurisdiction)
}

// IsActive reports whether jurisdiction is held.
func (s *ActiveSet) IsActive(jurisdiction string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, held := s.active[jurisdiction]
	return held
}

// Cancel signals the run holding jurisdiction to stop. The entry stays until the
// run releases it.
func (s *ActiveSet) Cancel(jurisdiction string) bool {
	s.mu.Lock()
	cancel, held := s.active[jurisdiction]
	s.mu.Unlock()
	if held {
		cancel()
	}
	return held
}

// CancelAll signals every active run.
func (s *ActiveSet) CancelAll() {
	s.mu.Lock()
	cancels := make([]context.CancelFunc, 0, len(s.active))
	for _, cancel := range s.active {
		cancels = append(cancels, cancel)
	}
	s.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// List returns the held jurisdictions in sorted order.
func (s *ActiveSet) List() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.active))
	for jurisdiction := range s.active {
		out = append(out, jurisdiction)
	}
	slices.Sort(out)
	return out
}
