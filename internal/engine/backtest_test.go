package engine

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pairbot-go/internal/market"
	"pairbot-go/internal/risk"
	"pairbot-go/internal/store"
	"pairbot-go/internal/strategy"
)

var t0 = time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC)

func testPipeline() *Pipeline {
	params := strategy.Params{
		Leg1:              "AMZN_STK",
		Leg2:              "MSFT_STK",
		EntryThreshold:    2.0,
		ExitThreshold:     0.5,
		BaseQty:           10,
		ProcessNoiseDelta: 1e-4,
		MeasurementNoise:  1e-3,
		InitialVariance:   1.0,
	}
	strat := strategy.NewKalmanPair(params, zerolog.Nop())
	gate := risk.NewGate(risk.Limits{}, market.EntryLongSpread, market.EntryShortSpread, market.ExitAll)
	return NewPipeline("AMZN_STK", "MSFT_STK", strat, gate, zerolog.Nop())
}

// pairHistory generates a cointegrated pair with one upward dislocation of
// leg 1 at dislocateAt, which produces a short entry followed by an exit.
func pairHistory(n, dislocateAt int) (market.Series, market.Series) {
	var ys, xs market.Series
	for i := 0; i < n; i++ {
		ts := t0.Add(time.Duration(i) * time.Minute)
		x := 50 + 30*math.Sin(float64(i)/7)
		y := 2 + 1.5*x
		if i == dislocateAt {
			y += 5
		}
		xs = append(xs, market.Bar{Ts: ts, Open: x, High: x, Low: x, Close: x})
		ys = append(ys, market.Bar{Ts: ts, Open: y, High: y, Low: y, Close: y})
	}
	return ys, xs
}

func seedStore(t *testing.T, ys, xs market.Series) *store.MemoryStore {
	t.Helper()
	st := store.NewMemoryStore()
	ctx := context.Background()
	if err := st.Save(ctx, "AMZN_STK", ys); err != nil {
		t.Fatalf("seed leg1: %v", err)
	}
	if err := st.Save(ctx, "MSFT_STK", xs); err != nil {
		t.Fatalf("seed leg2: %v", err)
	}
	return st
}

func TestBacktestRoundTrip(t *testing.T) {
	ys, xs := pairHistory(260, 200)
	st := seedStore(t, ys, xs)

	bt := NewBacktest(st, testPipeline(), nil, 1e6, zerolog.Nop())
	result, err := bt.Run(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if result.Ticks != 260 {
		t.Fatalf("expected 260 replayed ticks, got %d", result.Ticks)
	}
	if len(result.Decisions) < 2 {
		t.Fatalf("expected entry and exit, got %d decisions", len(result.Decisions))
	}
	if result.Decisions[0].Emission.Kind != market.EntryShortSpread {
		t.Fatalf("expected short entry on upward dislocation, got %s", result.Decisions[0].Emission.Kind)
	}
	if result.Decisions[1].Emission.Kind != market.ExitAll {
		t.Fatalf("expected exit after reversion, got %s", result.Decisions[1].Emission.Kind)
	}
	if len(result.Fills) == 0 {
		t.Fatalf("expected simulated fills")
	}
	// Leg 1 trades the base quantity symmetrically so it must end flat.
	if pos, ok := result.Account.Positions["AMZN_STK"]; ok && pos.Qty != 0 {
		t.Fatalf("expected leg 1 flat after exit, got %+v", pos)
	}
}

func TestBacktestFailsFastOnMissingInstrument(t *testing.T) {
	ys, _ := pairHistory(50, 25)
	st := store.NewMemoryStore()
	if err := st.Save(context.Background(), "AMZN_STK", ys); err != nil {
		t.Fatalf("seed: %v", err)
	}

	bt := NewBacktest(st, testPipeline(), nil, 1e6, zerolog.Nop())
	_, err := bt.Run(context.Background(), time.Time{}, time.Time{})
	if err == nil {
		t.Fatalf("expected fatal error for missing leg 2 data")
	}
	if !strings.Contains(err.Error(), "MSFT_STK") {
		t.Fatalf("expected error to name the missing instrument, got %v", err)
	}
}

func TestAlignSeriesForwardFillsAndDropsLeadingGaps(t *testing.T) {
	// Leg 2 starts one step late and skips the third stamp entirely.
	series := map[market.InstrumentKey]market.Series{
		"AMZN_STK": {
			{Ts: t0, Close: 100},
			{Ts: t0.Add(time.Minute), Close: 101},
			{Ts: t0.Add(2 * time.Minute), Close: 102},
			{Ts: t0.Add(3 * time.Minute), Close: 103},
		},
		"MSFT_STK": {
			{Ts: t0.Add(time.Minute), Close: 50},
			{Ts: t0.Add(3 * time.Minute), Close: 51},
		},
	}

	rows := alignSeries(series)
	if len(rows) != 3 {
		t.Fatalf("expected leading gap dropped, got %d rows", len(rows))
	}
	if !rows[0].ts.Equal(t0.Add(time.Minute)) {
		t.Fatalf("expected first row at t0+1m, got %s", rows[0].ts)
	}
	// Stamp t0+2m has no leg-2 bar: its price forward-fills from t0+1m.
	if rows[1].prices["MSFT_STK"] != 50 {
		t.Fatalf("expected forward-filled leg 2 price 50, got %.2f", rows[1].prices["MSFT_STK"])
	}
	if rows[2].prices["MSFT_STK"] != 51 || rows[2].prices["AMZN_STK"] != 103 {
		t.Fatalf("unexpected final row: %+v", rows[2])
	}
}
