// Package memory provides an in-memory persistence backend for local dry
// runs and tests; nothing survives the process.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hashedlabs/mention-monitor/internal/monitor"
)

// Store implements monitor.MentionStore and monitor.WatermarkStore in memory.
type Store struct {
	mu        sync.Mutex
	mentions  map[string]monitor.Mention
	order     []string // insertion order, newest last
	watermark time.Time
	present   bool
}

// New creates an empty Store.
func New() *Store {
	return &Store{mentions: map[string]monitor.Mention{}}
}

// LoadSeenIDs returns at most cap of the most recently appended IDs.
func (s *Store) LoadSeenIDs(_ context.Context, cap int) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := s.order
	if len(ids) > cap {
		ids = ids[len(ids)-cap:]
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return seen, nil
}

// AppendMentions inserts mentions; first writer wins on ID collision.
func (s *Store) AppendMentions(_ context.Context, mentions []monitor.Mention) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range mentions {
		if _, ok := s.mentions[m.ID]; ok {
			continue
		}
		s.mentions[m.ID] = m
		s.order = append(s.order, m.ID)
	}
	return nil
}

// Mentions returns all stored mentions sorted by fetch time (test helper).
func (s *Store) Mentions() []monitor.Mention {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]monitor.Mention, 0, len(s.mentions))
	for _, m := range s.mentions {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FetchedAt.Before(out[j].FetchedAt) })
	return out
}

// LoadWatermark reads the run cursor.
func (s *Store) LoadWatermark(_ context.Context) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.watermark, s.present, nil
}

// StoreWatermark sets the run cursor.
func (s *Store) StoreWatermark(_ context.Context, since time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watermark = since
	s.present = true
	return nil
}
