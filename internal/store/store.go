package store

import (
	"sort"
	"time"

	"github.com/nhle/canvas-todo/internal/model"
)

// Store persists the state that must survive between runs.
type Store interface {
	// LoadCompleted returns the manually completed set. A missing or
	// unreadable state file yields an empty set.
	LoadCompleted() *CompletedSet

	// SaveCompleted overwrites the state file with set.
	SaveCompleted(set *CompletedSet) error
}

// CompletedSet is the set of manually completed assignments, keyed by URL.
type CompletedSet struct {
	entries map[string]model.CompletedAssignment

	// WeeklyResetOn is the local date (YYYY-MM-DD) of the last weekly
	// reset, or empty if none was recorded.
	WeeklyResetOn string
}

// NewCompletedSet returns an empty set.
func NewCompletedSet() *CompletedSet {
	return &CompletedSet{entries: make(map[string]model.CompletedAssignment)}
}

// Len returns the number of entries.
func (s *CompletedSet) Len() int {
	return len(s.entries)
}

// Has reports whether url is in the set.
func (s *CompletedSet) Has(url string) bool {
	_, ok := s.entries[url]
	return ok
}

// Add inserts rec unless its URL is already present. It reports whether
// the set changed.
func (s *CompletedSet) Add(rec model.CompletedAssignment) bool {
	if rec.URL == "" || s.Has(rec.URL) {
		return false
	}
	if rec.RecordedAt.IsZero() {
		rec.RecordedAt = time.Now().UTC()
	}
	s.entries[rec.URL] = rec
	return true
}

// Prune removes every entry for which keep returns false and returns the
// removed entries sorted by URL.
func (s *CompletedSet) Prune(keep func(url string) bool) []model.CompletedAssignment {
	var removed []model.CompletedAssignment
	for url, rec := range s.entries {
		if !keep(url) {
			removed = append(removed, rec)
			delete(s.entries, url)
		}
	}
	sortByURL(removed)
	return removed
}

// Entries returns the entries sorted by URL.
func (s *CompletedSet) Entries() []model.CompletedAssignment {
	out := make([]model.CompletedAssignment, 0, len(s.entries))
	for _, rec := range s.entries {
		out = append(out, rec)
	}
	sortByURL(out)
	return out
}

func sortByURL(recs []model.CompletedAssignment) {
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].URL < recs[j].URL
	})
}
