package capture

import (
	"sync"
	"time"
)

// DefaultWindow is how long a captured post stays in the recent set.
const DefaultWindow = 8 * time.Second

// RecentSet remembers keys for a fixed window so one user action that
// fires several DOM events is captured once. Expired keys are evicted
// lazily when they are looked up or when the set is swept on insert.
type RecentSet struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	seen   map[string]time.Time
}

// NewRecentSet builds a set; a nil clock uses time.Now.
func NewRecentSet(window time.Duration, now func() time.Time) *RecentSet {
	if window <= 0 {
		window = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &RecentSet{window: window, now: now, seen: make(map[string]time.Time)}
}

// Contains reports whether key was added less than one window ago.
func (s *RecentSet) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveLocked(key, s.now())
}

// Claim adds key unless it is already live. It returns false when the
// key was already claimed inside the window.
func (s *RecentSet) Claim(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.liveLocked(key, now) {
		return false
	}
	s.sweepLocked(now)
	s.seen[key] = now
	return true
}

// Release forgets key so the next capture of it is not suppressed.
func (s *RecentSet) Release(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, key)
}

// Len counts live keys.
func (s *RecentSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.now())
	return len(s.seen)
}

func (s *RecentSet) liveLocked(key string, now time.Time) bool {
	at, ok := s.seen[key]
	if !ok {
		return false
	}
	if now.Sub(at) >= s.window {
		delete(s.seen, key)
		return false
	}
	return true
}

func (s *RecentSet) sweepLocked(now time.Time) {
	for k, at := range s.seen {
		if now.Sub(at) >= s.window {
			delete(s.seen, k)
		}
	}
}
