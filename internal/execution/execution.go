// Package execution routes admitted order instructions to a venue.
package execution

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pairbot-go/internal/market"
	"pairbot-go/internal/metrics"
)

// Executor submits every instruction carried by an emission. Submission is
// fire-and-forget from the strategy's perspective: a partial failure is
// reported to the caller and never retried here, because retrying a trade is a
// business decision rather than a transient fault.
type Executor interface {
	Submit(ctx context.Context, em *market.Emission) error
}

// Fill records one (real or simulated) execution of an order instruction.
type Fill struct {
	Key   market.InstrumentKey `json:"key"`
	Side  market.Side          `json:"side"`
	Qty   int                  `json:"qty"`
	Price float64              `json:"price"`
	Ts    time.Time            `json:"ts"`
}

// LogExecutor logs each instruction instead of reaching a venue. Useful for
// dry runs and as the default wiring until a broker connector is attached.
type LogExecutor struct{ log zerolog.Logger }

// NewLogExecutor wraps a zerolog logger for order submissions.
func NewLogExecutor(log zerolog.Logger) *LogExecutor { return &LogExecutor{log: log} }

// Submit logs the decision and each instruction, bumping the order counters.
func (e *LogExecutor) Submit(ctx context.Context, em *market.Emission) error {
	if em == nil {
		return nil
	}
	for _, o := range em.Orders {
		metrics.OrdersTotal.WithLabelValues(string(o.Key), string(o.Side)).Inc()
		e.log.Info().
			Str("id", em.ID).
			Str("kind", string(em.Kind)).
			Str("key", string(o.Key)).
			Str("side", string(o.Side)).
			Int("qty", o.Qty).
			Str("style", string(o.Style)).
			Msg("submit order")
	}
	return nil
}
