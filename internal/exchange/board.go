package exchange

import (
	"sync"
	"time"

	"pairbot-go/internal/market"
)

// Board folds per-instrument quotes into immutable tick snapshots. It is the
// only place latest prices accumulate; strategies receive value-type Ticks and
// never observe later mutations.
type Board struct {
	mu     sync.Mutex
	latest map[market.InstrumentKey]float64
}

// NewBoard returns an empty price board.
func NewBoard() *Board {
	return &Board{latest: make(map[market.InstrumentKey]float64)}
}

// Apply records the quote and returns the resulting snapshot. Non-positive
// prices are ignored and leave the previous snapshot content intact.
func (b *Board) Apply(q market.Quote) market.Tick {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q.Price > 0 {
		b.latest[q.Key] = q.Price
	}
	return market.NewTick(b.latest, q.Ts)
}

// Snapshot returns the current snapshot stamped with ts, without applying
// any update.
func (b *Board) Snapshot(ts time.Time) market.Tick {
	b.mu.Lock()
	defer b.mu.Unlock()
	return market.NewTick(b.latest, ts)
}
