package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"pairbot-go/internal/execution"
	"pairbot-go/internal/market"
	"pairbot-go/internal/paper"
	"pairbot-go/internal/store"
)

// Decision is one replayed pipeline output with the prices in effect when it
// was produced.
type Decision struct {
	Ts       time.Time
	Emission *market.Emission
	Prices   map[market.InstrumentKey]float64
}

// Result is the ordered outcome of one replay.
type Result struct {
	Ticks     int
	Decisions []Decision
	Fills     []execution.Fill
	Account   paper.Snapshot
}

// Backtest replays a stored price history through the identical pipeline the
// live driver runs. Decisions are collected instead of routed; fills are
// simulated at the replay tick's close so per-leg exposure (including any
// hedge residual left by beta drift) lands in the account snapshot.
type Backtest struct {
	store    store.Store
	pipe     *Pipeline
	recorder paper.FillRecorder // optional
	cash     float64
	log      zerolog.Logger
}

// NewBacktest builds a replay driver over the given store. recorder may be
// nil; cash seeds the simulated account.
func NewBacktest(st store.Store, pipe *Pipeline, recorder paper.FillRecorder, cash float64, log zerolog.Logger) *Backtest {
	if cash <= 0 {
		cash = 1_000_000
	}
	return &Backtest{store: st, pipe: pipe, recorder: recorder, cash: cash, log: log}
}

// Run replays [start, end). Missing instrument data is a configuration error
// that aborts the run; it must never degrade into an empty, misleading result.
func (b *Backtest) Run(ctx context.Context, start, end time.Time) (*Result, error) {
	series := make(map[market.InstrumentKey]market.Series)
	for _, key := range b.pipe.RequiredKeys() {
		s, err := b.store.Load(ctx, key, start, end)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("no stored data for instrument %s", key)
		}
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", key, err)
		}
		if len(s) == 0 {
			return nil, fmt.Errorf("instrument %s has no bars in [%s, %s)", key, start, end)
		}
		series[key] = s
	}

	timeline := alignSeries(series)
	if len(timeline) == 0 {
		return nil, fmt.Errorf("aligned timeline is empty, check instrument date ranges")
	}
	b.log.Info().Int("ticks", len(timeline)).Msg("replay starting")

	acct := paper.NewAccount(b.cash)
	result := &Result{}
	var lastPrices map[market.InstrumentKey]float64

	for _, row := range timeline {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		tick := market.NewTick(row.prices, row.ts)
		result.Ticks++
		lastPrices = row.prices

		em := b.pipe.Step(tick)
		if em == nil {
			continue
		}

		decision := Decision{Ts: row.ts, Emission: em, Prices: row.prices}
		result.Decisions = append(result.Decisions, decision)

		for _, o := range em.Orders {
			fill := execution.Fill{Key: o.Key, Side: o.Side, Qty: o.Qty, Price: row.prices[o.Key], Ts: row.ts}
			if err := acct.ApplyFill(fill); err != nil {
				return nil, fmt.Errorf("apply fill at %s: %w", row.ts, err)
			}
			result.Fills = append(result.Fills, fill)
			if b.recorder != nil {
				b.recorder.Record(fill)
			}
		}
	}

	result.Account = acct.Snapshot(lastPrices)
	b.log.Info().
		Int("decisions", len(result.Decisions)).
		Float64("realized_pnl", result.Account.RealizedPnL).
		Msg("replay complete")
	return result, nil
}

type timelineRow struct {
	ts     time.Time
	prices map[market.InstrumentKey]float64
}

// alignSeries builds one synchronized timeline: outer join on timestamp,
// forward-fill gaps with the last close, and drop leading rows while any
// instrument is still unknown.
func alignSeries(series map[market.InstrumentKey]market.Series) []timelineRow {
	stamps := make(map[time.Time]struct{})
	closes := make(map[market.InstrumentKey]map[time.Time]float64, len(series))
	for key, bars := range series {
		byTs := make(map[time.Time]float64, len(bars))
		for _, bar := range bars {
			byTs[bar.Ts] = bar.Close
			stamps[bar.Ts] = struct{}{}
		}
		closes[key] = byTs
	}

	ordered := make([]time.Time, 0, len(stamps))
	for ts := range stamps {
		ordered = append(ordered, ts)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Before(ordered[j]) })

	last := make(map[market.InstrumentKey]float64, len(series))
	rows := make([]timelineRow, 0, len(ordered))
	for _, ts := range ordered {
		for key := range series {
			if px, ok := closes[key][ts]; ok {
				last[key] = px
			}
		}
		if len(last) < len(series) {
			continue // still warming up: some instrument has never printed
		}
		prices := make(map[market.InstrumentKey]float64, len(last))
		for key, px := range last {
			prices[key] = px
		}
		rows = append(rows, timelineRow{ts: ts, prices: prices})
	}
	return rows
}
