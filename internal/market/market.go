// Package market standardizes payloads shared between data ingestion, strategy,
// and execution layers.
package market

import "time"

// InstrumentKey is the stable identifier for a tradable instrument within the
// configured universe. Mapping a key to a venue-specific symbol or contract
// belongs to the data and execution collaborators, never to the core.
type InstrumentKey string

// Quote is a single per-instrument price update produced by a feed.
type Quote struct {
	Key   InstrumentKey
	Price float64
	Ts    time.Time
}

// Tick is an immutable point-in-time snapshot of the latest known prices for
// the tracked universe. Construct one per market event or historical bar and
// never mutate it after handing it to a strategy.
type Tick struct {
	prices map[InstrumentKey]float64
	ts     time.Time
}

// NewTick copies the supplied price map into a snapshot. Non-positive prices
// are treated as unknown and dropped.
func NewTick(prices map[InstrumentKey]float64, ts time.Time) Tick {
	cp := make(map[InstrumentKey]float64, len(prices))
	for k, px := range prices {
		if px > 0 {
			cp[k] = px
		}
	}
	return Tick{prices: cp, ts: ts}
}

// Price returns the last known price for key, if any.
func (t Tick) Price(key InstrumentKey) (float64, bool) {
	px, ok := t.prices[key]
	return px, ok
}

// Ready reports whether every required key has a known positive price, i.e.
// whether the tick may be consumed by an estimator.
func (t Tick) Ready(keys ...InstrumentKey) bool {
	for _, k := range keys {
		if _, ok := t.prices[k]; !ok {
			return false
		}
	}
	return len(keys) > 0
}

// Ts returns the snapshot timestamp.
func (t Tick) Ts() time.Time { return t.ts }

// Bar is one time-series record as persisted by the storage collaborator.
type Bar struct {
	Ts    time.Time `json:"ts"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// Series is an ordered (ascending by Ts) sequence of bars for one instrument.
type Series []Bar
