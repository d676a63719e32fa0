package strategy

import (
	"strings"

	"github.com/rs/zerolog"

	"pairbot-go/internal/market"
)

// Params expresses tunable knobs required by strategy constructors.
type Params struct {
	Leg1              market.InstrumentKey
	Leg2              market.InstrumentKey
	EntryThreshold    float64
	ExitThreshold     float64
	BaseQty           int
	ProcessNoiseDelta float64
	MeasurementNoise  float64
	InitialVariance   float64
	// WindowPair only.
	HedgeRatio float64
	Window     int
	Warmup     int
}

// Build returns the strategy implementation matching the configured mode. The
// set of variants is closed and selected here at construction time; there is
// no runtime lookup by class name.
func Build(mode string, params Params, log zerolog.Logger) Strategy {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "window", "static", "rolling":
		return NewWindowPair(params, log)
	default:
		return NewKalmanPair(params, log)
	}
}
