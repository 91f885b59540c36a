package cache

import (
	"sync"
	"time"

	"github.com/commentpulse/comment-pulse/internal/models"
	"github.com/sirupsen/logrus"
)

// Entry is one cached analysis with its creation timestamp
type Entry struct {
	Bundle    *models.MetricsBundle
	Timestamp time.Time
}

// Store is an explicit in-memory cache for analysis bundles, keyed by the
// request tuple. Expiry is the caller's policy: Get applies maxAge, and the
// serving layer invokes Sweep on a schedule.
type Store struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
}

// New creates an empty cache store
func New() *Store {
	return &Store{
		entries: make(map[string]Entry),
		now:     time.Now,
	}
}

// Get returns the cached entry for key if it is younger than maxAge
func (s *Store) Get(key string, maxAge time.Duration) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[key]
	if !ok || s.now().Sub(entry.Timestamp) > maxAge {
		return Entry{}, false
	}
	return entry, true
}

// Set stores a bundle under key, stamping it with the current time
func (s *Store) Set(key string, bundle *models.MetricsBundle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = Entry{Bundle: bundle, Timestamp: s.now()}
}

// Sweep removes entries older than maxAge and returns how many were evicted
func (s *Store) Sweep(maxAge time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	cutoff := s.now().Add(-maxAge)
	for key, entry := range s.entries {
		if entry.Timestamp.Before(cutoff) {
			delete(s.entries, key)
			evicted++
		}
	}

	if evicted > 0 {
		logrus.Infof("Cache sweep evicted %d expired entries", evicted)
	}
	return evicted
}

// Clear drops every entry and returns how many were removed
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := len(s.entries)
	s.entries = make(map[string]Entry)
	return size
}

// Len reports the current number of entries
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
