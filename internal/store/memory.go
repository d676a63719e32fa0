package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"pairbot-go/internal/market"
)

// MemoryStore keeps series in process memory. It backs replay tests and small
// research runs where standing up redis is not worth it.
type MemoryStore struct {
	mu     sync.RWMutex
	series map[market.InstrumentKey]market.Series
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{series: make(map[market.InstrumentKey]market.Series)}
}

// Save merges the bars into the held series, keeping ascending order and
// replacing bars that share a timestamp.
func (s *MemoryStore) Save(ctx context.Context, key market.InstrumentKey, series market.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byTs := make(map[time.Time]market.Bar, len(s.series[key])+len(series))
	for _, b := range s.series[key] {
		byTs[b.Ts] = b
	}
	for _, b := range series {
		byTs[b.Ts] = b
	}
	merged := make(market.Series, 0, len(byTs))
	for _, b := range byTs {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Ts.Before(merged[j].Ts) })
	s.series[key] = merged
	return nil
}

// Load returns the bars within [start, end), or ErrNotFound for unknown keys.
func (s *MemoryStore) Load(ctx context.Context, key market.InstrumentKey, start, end time.Time) (market.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	held, ok := s.series[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make(market.Series, 0, len(held))
	for _, b := range held {
		if inRange(b.Ts, start, end) {
			out = append(out, b)
		}
	}
	return out, nil
}
