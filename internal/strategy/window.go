package strategy

import (
	"math"

	"github.com/rs/zerolog"

	"pairbot-go/internal/market"
)

// WindowPair is the static-hedge variant: it computes the spread
// y - ratio*x over a fixed rolling window and standardizes the latest spread
// against the window mean and deviation. Unlike KalmanPair the hedge ratio
// never adapts, which suits pairs whose relationship is believed stable.
type WindowPair struct {
	leg1    market.InstrumentKey
	leg2    market.InstrumentKey
	ratio   float64
	window  int
	warmup  int
	spreads []float64
	machine *Machine
	diag    Diagnostics
	warmed  bool
	log     zerolog.Logger
}

// NewWindowPair builds the rolling-window strategy. A non-positive window
// falls back to 60 samples; warmup is clamped to the window size.
func NewWindowPair(p Params, log zerolog.Logger) *WindowPair {
	window := p.Window
	if window <= 0 {
		window = 60
	}
	warmup := p.Warmup
	if warmup <= 0 || warmup > window {
		warmup = window / 2
	}
	ratio := p.HedgeRatio
	if ratio == 0 {
		ratio = 1
	}
	return &WindowPair{
		leg1:    p.Leg1,
		leg2:    p.Leg2,
		ratio:   ratio,
		window:  window,
		warmup:  warmup,
		machine: NewMachine(p.Leg1, p.Leg2, p.EntryThreshold, p.ExitThreshold, p.BaseQty),
		log:     log,
	}
}

// Name returns the strategy identifier for logging.
func (w *WindowPair) Name() string { return "WindowPair" }

// Position exposes the current exposure state.
func (w *WindowPair) Position() Position { return w.machine.Position() }

// Diagnostics returns the latest spread snapshot; false until warmed up.
func (w *WindowPair) Diagnostics() (Diagnostics, bool) {
	return w.diag, w.warmed
}

// OnTick appends the latest spread to the window and steps the state machine
// on the standardized value. Missing legs and the warmup period are no-ops.
func (w *WindowPair) OnTick(t market.Tick) *market.Emission {
	y, okY := t.Price(w.leg1)
	x, okX := t.Price(w.leg2)
	if !okY || !okX {
		return nil
	}

	spread := y - w.ratio*x
	w.spreads = append(w.spreads, spread)
	if len(w.spreads) > w.window {
		w.spreads = w.spreads[len(w.spreads)-w.window:]
	}
	if len(w.spreads) < w.warmup {
		return nil
	}

	mean, std := meanStd(w.spreads)
	if std == 0 {
		return nil
	}
	z := (spread - mean) / std
	w.diag = Diagnostics{Z: z, Beta: w.ratio, PredictedY: y - spread + mean, Err: spread - mean}
	w.warmed = true

	em := w.machine.Step(z, w.ratio, t.Ts())
	if em == nil {
		return nil
	}
	em.Meta = map[string]float64{
		"z_score": z,
		"beta":    w.ratio,
		"spread":  spread,
	}
	return em
}

func meanStd(xs []float64) (float64, float64) {
	var sum float64
	for _, v := range xs {
		sum += v
	}
	mean := sum / float64(len(xs))
	var ss float64
	for _, v := range xs {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}
