package scraper

import (
	"github.com/ibeckermayer/fbsweep/internal/textnorm"
	"github.com/ibeckermayer/fbsweep/internal/types"
)

// ResultSet accumulates records across every capture of a session, keeping
// insertion order and at most one record per normalized text.
type ResultSet struct {
	seen    map[string]struct{}
	records []types.PostRecord
}

// NewResultSet creates an empty set.
func NewResultSet() *ResultSet {
	return &ResultSet{seen: make(map[string]struct{})}
}

// TryInsert adds r unless a record with the same normalized text is already
// present. Records without text are rejected. The stored text is normalized.
func (s *ResultSet) TryInsert(r types.PostRecord) bool {
	key := textnorm.Key(r.Text)
	if key == "" {
		return false
	}
	if _, ok := s.seen[key]; ok {
		return false
	}
	s.seen[key] = struct{}{}
	r.Text = key
	s.records = append(s.records, r)
	return true
}

// Len returns the number of unique records.
func (s *ResultSet) Len() int {
	return len(s.records)
}

// Records returns a copy of the records in insertion order, never nil.
func (s *ResultSet) Records() []types.PostRecord {
	out := make([]types.PostRecord, len(s.records))
	copy(out, s.records)
	return out
}
