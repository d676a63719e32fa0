package market

import (
	"time"

	"github.com/google/uuid"
)

// DecisionKind labels the trading decision carried by an Emission.
type DecisionKind string

const (
	// EntryLongSpread buys leg 1 and sells the beta-weighted leg 2.
	EntryLongSpread DecisionKind = "ENTRY_LONG_SPREAD"
	// EntryShortSpread sells leg 1 and buys the beta-weighted leg 2.
	EntryShortSpread DecisionKind = "ENTRY_SHORT_SPREAD"
	// ExitAll closes both legs of the open spread position.
	ExitAll DecisionKind = "EXIT_ALL"
)

// Side enumerates order directions.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// OrderStyle selects how an instruction should be priced at the venue.
type OrderStyle string

const (
	Market OrderStyle = "MARKET"
	Limit  OrderStyle = "LIMIT"
)

// OrderInstruction is one abstract order carried inside an Emission. The
// instrument key travels with the instruction so downstream layers never need
// a reverse lookup against configuration.
type OrderInstruction struct {
	Key   InstrumentKey `json:"key"`
	Side  Side          `json:"side"`
	Qty   int           `json:"qty"`
	Style OrderStyle    `json:"style"`
}

// Emission is the immutable output record of the state machine: the decision
// kind, the per-instrument order instructions in submission order, and the
// diagnostic metadata surfaced to observability.
type Emission struct {
	ID     string             `json:"id"`
	Kind   DecisionKind       `json:"kind"`
	Orders []OrderInstruction `json:"orders"`
	Meta   map[string]float64 `json:"meta,omitempty"`
	Ts     time.Time          `json:"ts"`
}

// NewEmission stamps a fresh emission with a unique identifier.
func NewEmission(kind DecisionKind, ts time.Time) *Emission {
	return &Emission{ID: uuid.NewString(), Kind: kind, Ts: ts}
}

// AddOrder appends a market order instruction. Zero-quantity instructions are
// dropped so executors never see an unroutable order.
func (e *Emission) AddOrder(key InstrumentKey, side Side, qty int) {
	if qty <= 0 {
		return
	}
	e.Orders = append(e.Orders, OrderInstruction{Key: key, Side: side, Qty: qty, Style: Market})
}
