package strategy

import (
	"math"
	"time"

	"pairbot-go/internal/market"
)

// Position enumerates the exposure states of one traded pair.
type Position int

const (
	// Flat holds no exposure.
	Flat Position = iota
	// LongSpread is long leg 1 against a short beta-weighted leg 2.
	LongSpread
	// ShortSpread is short leg 1 against a long beta-weighted leg 2.
	ShortSpread
)

// String returns the state name used in logs and metrics.
func (p Position) String() string {
	switch p {
	case LongSpread:
		return "LONG_SPREAD"
	case ShortSpread:
		return "SHORT_SPREAD"
	default:
		return "FLAT"
	}
}

// Machine converts a continuous deviation score plus hedge ratio into discrete
// entry/exit decisions. At most one position variant is held at a time and a
// position exits fully before any re-entry. Transitions happen only on tick
// boundaries; one goroutine owns each instance.
type Machine struct {
	leg1     market.InstrumentKey
	leg2     market.InstrumentKey
	entry    float64
	exit     float64
	baseQty  int
	position Position
}

// NewMachine builds a state machine starting flat. Thresholds must already be
// validated (entry > exit > 0, baseQty > 0) by the configuration layer.
func NewMachine(leg1, leg2 market.InstrumentKey, entry, exit float64, baseQty int) *Machine {
	return &Machine{leg1: leg1, leg2: leg2, entry: entry, exit: exit, baseQty: baseQty}
}

// Position returns the current exposure state.
func (m *Machine) Position() Position { return m.position }

// hedgeQty truncates toward zero. Rounding half-up would tighten the realized
// hedge slightly but changes fills.
func (m *Machine) hedgeQty(beta float64) int {
	return int(float64(m.baseQty) * math.Abs(beta))
}

// Step evaluates the transition table for one tick and returns at most one
// emission. The exit hedge quantity is recomputed from the current beta, not
// the entry-time beta, so an exit is not guaranteed to flatten leg 2 if beta
// drifted; callers that need exact flattening must track per-leg open
// quantity (see internal/paper).
func (m *Machine) Step(z, beta float64, ts time.Time) *market.Emission {
	switch m.position {
	case Flat:
		switch {
		case z < -m.entry:
			// Spread too low: leg 1 cheap relative to leg 2, buy the spread.
			em := market.NewEmission(market.EntryLongSpread, ts)
			em.AddOrder(m.leg1, market.Buy, m.baseQty)
			em.AddOrder(m.leg2, market.Sell, m.hedgeQty(beta))
			m.position = LongSpread
			return em
		case z > m.entry:
			em := market.NewEmission(market.EntryShortSpread, ts)
			em.AddOrder(m.leg1, market.Sell, m.baseQty)
			em.AddOrder(m.leg2, market.Buy, m.hedgeQty(beta))
			m.position = ShortSpread
			return em
		}
	default:
		if math.Abs(z) < m.exit {
			em := market.NewEmission(market.ExitAll, ts)
			if m.position == LongSpread {
				em.AddOrder(m.leg1, market.Sell, m.baseQty)
				em.AddOrder(m.leg2, market.Buy, m.hedgeQty(beta))
			} else {
				em.AddOrder(m.leg1, market.Buy, m.baseQty)
				em.AddOrder(m.leg2, market.Sell, m.hedgeQty(beta))
			}
			m.position = Flat
			return em
		}
	}
	return nil
}
