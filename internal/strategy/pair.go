package strategy

import (
	"github.com/rs/zerolog"

	"pairbot-go/internal/market"
	"pairbot-go/internal/metrics"
)

// Strategy defines behaviour shared by pair-trading strategy implementations.
// OnTick returns at most one emission per tick; a nil return means hold.
// Diagnostics exposes the latest estimator snapshot for observability and
// returns false until the strategy has warmed up.
type Strategy interface {
	OnTick(t market.Tick) *market.Emission
	Name() string
	Diagnostics() (Diagnostics, bool)
}

// Diagnostics is the read-only estimator snapshot exposed to observability
// after each processed tick.
type Diagnostics struct {
	Z          float64
	Beta       float64
	Alpha      float64
	PredictedY float64
	Err        float64
}

// KalmanPair binds the adaptive estimator and the position state machine to a
// configured instrument pair. One instance serves exactly one pair and must be
// driven by a single goroutine.
type KalmanPair struct {
	leg1    market.InstrumentKey
	leg2    market.InstrumentKey
	filter  *Estimator
	machine *Machine
	diag    Diagnostics
	warmed  bool
	log     zerolog.Logger
}

// NewKalmanPair wires an estimator and state machine for leg1 (Y) regressed on
// leg2 (X).
func NewKalmanPair(p Params, log zerolog.Logger) *KalmanPair {
	return &KalmanPair{
		leg1:    p.Leg1,
		leg2:    p.Leg2,
		filter:  NewEstimator(p.ProcessNoiseDelta, p.MeasurementNoise, p.InitialVariance),
		machine: NewMachine(p.Leg1, p.Leg2, p.EntryThreshold, p.ExitThreshold, p.BaseQty),
		log:     log,
	}
}

// Name returns the strategy identifier for logging.
func (k *KalmanPair) Name() string { return "KalmanPair" }

// Position exposes the current exposure state.
func (k *KalmanPair) Position() Position { return k.machine.Position() }

// Diagnostics returns the latest estimator snapshot. The boolean is false
// until at least one update has been accepted.
func (k *KalmanPair) Diagnostics() (Diagnostics, bool) {
	return k.diag, k.warmed
}

// OnTick runs one filter update and one state-machine step. A tick missing
// either leg is a no-op: no state change, no emission. A degenerate innovation
// variance rejects the update, keeps prior state, and is logged as a warning.
func (k *KalmanPair) OnTick(t market.Tick) *market.Emission {
	y, okY := t.Price(k.leg1)
	x, okX := t.Price(k.leg2)
	if !okY || !okX {
		return nil
	}

	est, err := k.filter.Update(y, x)
	if err != nil {
		metrics.DegenerateUpdatesTotal.Inc()
		k.log.Warn().Err(err).Str("leg1", string(k.leg1)).Str("leg2", string(k.leg2)).Msg("filter update rejected")
		return nil
	}
	k.diag = Diagnostics(est)
	k.warmed = true

	em := k.machine.Step(est.Z, est.Beta, t.Ts())
	if em == nil {
		return nil
	}
	em.Meta = map[string]float64{
		"z_score":     est.Z,
		"beta":        est.Beta,
		"alpha":       est.Alpha,
		"predicted_y": est.PredictedY,
		"error":       est.Err,
	}
	return em
}
