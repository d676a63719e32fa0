// Package engine drives the strategy pipeline from either a live feed or a
// historical replay. Both drivers share the same Pipeline value so the core
// semantics cannot diverge between modes.
package engine

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"pairbot-go/internal/market"
	"pairbot-go/internal/metrics"
	"pairbot-go/internal/risk"
	"pairbot-go/internal/strategy"
)

// Pipeline is the estimator + state machine + risk gate path. One goroutine
// owns a Pipeline; ticks must be applied strictly sequentially.
type Pipeline struct {
	leg1  market.InstrumentKey
	leg2  market.InstrumentKey
	strat strategy.Strategy
	gate  *risk.Gate
	pair  string
	log   zerolog.Logger
}

// NewPipeline wires the strategy and risk gate for one traded pair.
func NewPipeline(leg1, leg2 market.InstrumentKey, strat strategy.Strategy, gate *risk.Gate, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		leg1:  leg1,
		leg2:  leg2,
		strat: strat,
		gate:  gate,
		pair:  fmt.Sprintf("%s/%s", leg1, leg2),
		log:   log,
	}
}

// RequiredKeys returns the instrument keys a tick must price for processing.
func (p *Pipeline) RequiredKeys() []market.InstrumentKey {
	return []market.InstrumentKey{p.leg1, p.leg2}
}

// Diagnostics proxies the strategy's latest snapshot.
func (p *Pipeline) Diagnostics() (strategy.Diagnostics, bool) {
	return p.strat.Diagnostics()
}

// Step processes one tick. A tick missing either leg is a no-op. An admitted
// decision is returned; a risk-rejected decision is dropped with its reason
// logged and counted, and processing continues on the next tick.
func (p *Pipeline) Step(tick market.Tick) *market.Emission {
	if !tick.Ready(p.leg1, p.leg2) {
		return nil
	}

	em := p.strat.OnTick(tick)
	if diag, ok := p.strat.Diagnostics(); ok {
		metrics.DeviationScore.WithLabelValues(p.pair).Set(diag.Z)
		metrics.HedgeRatio.WithLabelValues(p.pair).Set(diag.Beta)
	}
	if em == nil {
		return nil
	}
	metrics.EmissionsTotal.WithLabelValues(string(em.Kind)).Inc()

	if err := p.gate.Check(em); err != nil {
		metrics.RiskRejectionsTotal.WithLabelValues(rejectionReason(err)).Inc()
		p.log.Warn().Err(err).Str("kind", string(em.Kind)).Msg("risk gate rejected decision")
		return nil
	}
	return em
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, risk.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, risk.ErrUnknownKind):
		return "unknown_kind"
	case errors.Is(err, risk.ErrEmptyEmission):
		return "empty"
	default:
		return "other"
	}
}
