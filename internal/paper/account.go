// Package paper tracks simulated positions for replay runs. It exists partly
// to make one known approximation observable: exits size the hedge leg from
// the current beta, so a drifted beta leaves residual exposure that only
// per-leg accounting can reveal.
package paper

import (
	"errors"
	"math"
	"sync"

	"pairbot-go/internal/execution"
	"pairbot-go/internal/market"
)

// FillRecorder captures fills for later inspection.
type FillRecorder interface {
	Record(execution.Fill)
}

const epsilon = 1e-9

type positionState struct {
	Qty     float64 // signed: negative is short
	AvgCost float64
}

// Account tracks cash, realized PnL, and signed per-instrument positions for
// a replayed pair strategy. Shorts are first-class since every spread trade
// opens one.
type Account struct {
	mu           sync.Mutex
	startingCash float64
	cash         float64
	realizedPnL  float64
	positions    map[market.InstrumentKey]positionState
}

// PositionSnapshot exposes a read-only view of a single instrument position.
type PositionSnapshot struct {
	Qty         float64
	AvgCost     float64
	MarketValue float64
	Unrealized  float64
}

// Snapshot is a consistent view of the account, marked to the provided prices.
type Snapshot struct {
	Cash        float64
	RealizedPnL float64
	Equity      float64
	Positions   map[market.InstrumentKey]PositionSnapshot
}

// NewAccount constructs an account with starting cash.
func NewAccount(startingCash float64) *Account {
	return &Account{
		startingCash: startingCash,
		cash:         startingCash,
		positions:    make(map[market.InstrumentKey]positionState),
	}
}

// StartingCash returns the initial bankroll used to compute drawdown.
func (a *Account) StartingCash() float64 { return a.startingCash }

// ApplyFill executes a fill against the account, reducing existing exposure
// first and opening or extending in the fill direction with the remainder.
func (a *Account) ApplyFill(fill execution.Fill) error {
	if fill.Qty <= 0 {
		return errors.New("quantity must be positive")
	}
	if fill.Price <= 0 {
		return errors.New("price must be positive")
	}

	signed := float64(fill.Qty)
	if fill.Side == market.Sell {
		signed = -signed
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	state := a.positions[fill.Key]
	remaining := signed

	// Closing portion: fill direction opposes the held position.
	if state.Qty != 0 && !sameSign(state.Qty, remaining) {
		closed := math.Min(math.Abs(remaining), math.Abs(state.Qty))
		direction := sign(state.Qty)
		// Long close realizes price-cost; short close realizes cost-price.
		a.realizedPnL += closed * direction * (fill.Price - state.AvgCost)
		a.cash += closed * direction * fill.Price
		state.Qty -= closed * direction
		remaining += closed * direction
		if math.Abs(state.Qty) <= epsilon {
			state = positionState{}
		}
	}

	// Opening portion.
	if math.Abs(remaining) > epsilon {
		newQty := state.Qty + remaining
		if state.Qty == 0 {
			state.AvgCost = fill.Price
		} else {
			state.AvgCost = (state.AvgCost*math.Abs(state.Qty) + fill.Price*math.Abs(remaining)) / math.Abs(newQty)
		}
		state.Qty = newQty
		a.cash -= remaining * fill.Price
	}

	if math.Abs(state.Qty) <= epsilon {
		delete(a.positions, fill.Key)
	} else {
		a.positions[fill.Key] = state
	}
	return nil
}

// Position returns the signed position size for the supplied instrument.
func (a *Account) Position(key market.InstrumentKey) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.positions[key].Qty
}

// RealizedPnL returns total closed-trade profit and loss.
func (a *Account) RealizedPnL() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.realizedPnL
}

// Snapshot returns a copy of balances marked using the supplied prices.
func (a *Account) Snapshot(prices map[market.InstrumentKey]float64) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	positions := make(map[market.InstrumentKey]PositionSnapshot, len(a.positions))
	equity := a.cash
	for key, pos := range a.positions {
		mark := prices[key]
		marketValue := pos.Qty * mark
		unrealized := (mark - pos.AvgCost) * pos.Qty
		if mark == 0 {
			marketValue = 0
			unrealized = 0
		}
		positions[key] = PositionSnapshot{
			Qty:         pos.Qty,
			AvgCost:     pos.AvgCost,
			MarketValue: marketValue,
			Unrealized:  unrealized,
		}
		equity += marketValue
	}

	return Snapshot{
		Cash:        a.cash,
		RealizedPnL: a.realizedPnL,
		Equity:      equity,
		Positions:   positions,
	}
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func sameSign(a, b float64) bool {
	return (a >= 0) == (b >= 0)
}
