// Package store persists per-instrument time series and serves the range
// reads the replay engine depends on.
package store

import (
	"context"
	"errors"
	"time"

	"pairbot-go/internal/market"
)

// ErrNotFound reports that no series exists under the requested key.
var ErrNotFound = errors.New("store: series not found")

// Store is the storage collaborator contract. Load returns bars with
// start <= Ts < end, ascending; zero-valued bounds mean unbounded. The core
// pipeline only ever consumes Load results; writes come from ingestion
// tooling.
type Store interface {
	Save(ctx context.Context, key market.InstrumentKey, series market.Series) error
	Load(ctx context.Context, key market.InstrumentKey, start, end time.Time) (market.Series, error)
}

func inRange(ts, start, end time.Time) bool {
	if !start.IsZero() && ts.Before(start) {
		return false
	}
	if !end.IsZero() && !ts.Before(end) {
		return false
	}
	return true
}
