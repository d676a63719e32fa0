// Package risk is the last admission filter between signal generation and
// order routing.
package risk

import (
	"errors"
	"time"

	"pairbot-go/internal/market"
)

var (
	// ErrEmptyEmission rejects nil emissions and emissions with no orders.
	ErrEmptyEmission = errors.New("risk: empty emission")
	// ErrUnknownKind rejects decision kinds outside the allow-list.
	ErrUnknownKind = errors.New("risk: unknown decision kind")
	// ErrRateLimited rejects emissions above the rolling-window budget. It is
	// distinguishable so callers can log and back off rather than silently
	// drop.
	ErrRateLimited = errors.New("risk: rate limit exceeded")
)

// Limits encodes guard-rails for how many decisions the gate admits.
type Limits struct {
	MaxPerWindow int
	Window       time.Duration
}

// Gate checks emissions against an allow-list and a rolling rate limit. It
// never mutates the emission; the only side effect is the admission counter.
type Gate struct {
	limits  Limits
	allowed map[market.DecisionKind]struct{}
	now     func() time.Time
	granted []time.Time
}

// NewGate builds a gate admitting only the supplied decision kinds. A zero
// MaxPerWindow disables rate limiting.
func NewGate(limits Limits, kinds ...market.DecisionKind) *Gate {
	allowed := make(map[market.DecisionKind]struct{}, len(kinds))
	for _, k := range kinds {
		allowed[k] = struct{}{}
	}
	return &Gate{limits: limits, allowed: allowed, now: time.Now}
}

// Check returns nil when the emission may route to execution, or one of the
// package sentinel errors describing why it may not.
func (g *Gate) Check(em *market.Emission) error {
	if em == nil || len(em.Orders) == 0 {
		return ErrEmptyEmission
	}
	if _, ok := g.allowed[em.Kind]; !ok {
		return ErrUnknownKind
	}
	if g.limits.MaxPerWindow > 0 {
		cutoff := g.now().Add(-g.limits.Window)
		kept := g.granted[:0]
		for _, ts := range g.granted {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		g.granted = kept
		if len(g.granted) >= g.limits.MaxPerWindow {
			return ErrRateLimited
		}
		g.granted = append(g.granted, g.now())
	}
	return nil
}
