package strategy

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pairbot-go/internal/market"
)

func pairParams() Params {
	return Params{
		Leg1:              "AMZN_STK",
		Leg2:              "MSFT_STK",
		EntryThreshold:    2.0,
		ExitThreshold:     0.5,
		BaseQty:           10,
		ProcessNoiseDelta: 1e-4,
		MeasurementNoise:  1e-3,
		InitialVariance:   1.0,
	}
}

func TestKalmanPairIgnoresIncompleteTicks(t *testing.T) {
	pair := NewKalmanPair(pairParams(), zerolog.Nop())
	now := time.Now()

	// Warm the filter with a few complete ticks first.
	for i := 0; i < 5; i++ {
		tick := market.NewTick(map[market.InstrumentKey]float64{
			"AMZN_STK": 100 + float64(i),
			"MSFT_STK": 50 + float64(i),
		}, now)
		pair.OnTick(tick)
	}
	meanBefore := pair.filter.Mean()
	covBefore := pair.filter.Cov()
	stateBefore := pair.Position()

	gap := market.NewTick(map[market.InstrumentKey]float64{"AMZN_STK": 120}, now)
	if em := pair.OnTick(gap); em != nil {
		t.Fatalf("expected no emission on data gap, got %+v", em)
	}
	if pair.filter.Mean() != meanBefore {
		t.Fatalf("state mean changed on data-gap tick")
	}
	if pair.filter.Cov() != covBefore {
		t.Fatalf("state covariance changed on data-gap tick")
	}
	if pair.Position() != stateBefore {
		t.Fatalf("position changed on data-gap tick")
	}
}

func TestKalmanPairEmitsOnSpreadDislocation(t *testing.T) {
	pair := NewKalmanPair(pairParams(), zerolog.Nop())
	rng := rand.New(rand.NewSource(3))
	now := time.Now()

	// Establish the relationship y = 2 + 1.5x, then dislocate y upward.
	var em *market.Emission
	for i := 0; i < 300; i++ {
		x := 50 + 20*math.Sin(float64(i)/9) + rng.Float64()
		y := 2 + 1.5*x + 0.01*rng.NormFloat64()
		if i == 299 {
			y += 5 // large positive innovation: spread too high
		}
		em = pair.OnTick(market.NewTick(map[market.InstrumentKey]float64{
			"AMZN_STK": y,
			"MSFT_STK": x,
		}, now.Add(time.Duration(i)*time.Second)))
	}

	if em == nil {
		t.Fatalf("expected a short-spread entry on dislocation")
	}
	if em.Kind != market.EntryShortSpread {
		t.Fatalf("expected SHORT entry, got %s", em.Kind)
	}
	if em.Orders[0].Side != market.Sell {
		t.Fatalf("expected SELL leg 1 on short spread")
	}
	for _, key := range []string{"z_score", "beta", "predicted_y", "error"} {
		if _, ok := em.Meta[key]; !ok {
			t.Fatalf("metadata missing %q: %+v", key, em.Meta)
		}
	}
	if em.Meta["z_score"] <= 2.0 {
		t.Fatalf("expected z above entry threshold, got %.3f", em.Meta["z_score"])
	}

	diag, ok := pair.Diagnostics()
	if !ok {
		t.Fatalf("expected diagnostics after warmup")
	}
	if diag.Z != em.Meta["z_score"] {
		t.Fatalf("diagnostics out of sync with emission metadata")
	}
}

func TestWindowPairRoundTrip(t *testing.T) {
	params := pairParams()
	params.HedgeRatio = 1.5
	params.Window = 50
	params.Warmup = 20
	pair := NewWindowPair(params, zerolog.Nop())
	now := time.Now()

	var entry *market.Emission
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 100; i++ {
		x := 50 + rng.Float64()
		y := 2 + 1.5*x + 0.05*rng.NormFloat64()
		if i == 99 {
			y += 3
		}
		if em := pair.OnTick(market.NewTick(map[market.InstrumentKey]float64{
			"AMZN_STK": y,
			"MSFT_STK": x,
		}, now)); em != nil {
			entry = em
		}
	}
	if entry == nil || entry.Kind != market.EntryShortSpread {
		t.Fatalf("expected short entry from window strategy, got %+v", entry)
	}
	if entry.Orders[1].Qty != 15 { // 10 * 1.5 static hedge
		t.Fatalf("expected static hedge qty 15, got %d", entry.Orders[1].Qty)
	}
}

func TestBuildSelectsVariant(t *testing.T) {
	if name := Build("", pairParams(), zerolog.Nop()).Name(); name != "KalmanPair" {
		t.Fatalf("expected kalman default, got %s", name)
	}
	if name := Build("window", pairParams(), zerolog.Nop()).Name(); name != "WindowPair" {
		t.Fatalf("expected window variant, got %s", name)
	}
}
