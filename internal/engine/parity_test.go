package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"pairbot-go/internal/market"
)

// sliceSource replays a finite quote sequence and then stops, standing in for
// a live feed.
type sliceSource struct{ quotes []market.Quote }

func (s sliceSource) Run(ctx context.Context, out chan<- market.Quote) error {
	for _, q := range s.quotes {
		select {
		case out <- q:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// captureExecutor collects admitted emissions instead of routing them.
type captureExecutor struct {
	mu        sync.Mutex
	emissions []*market.Emission
}

func (c *captureExecutor) Submit(ctx context.Context, em *market.Emission) error {
	c.mu.Lock()
	c.emissions = append(c.emissions, em)
	c.mu.Unlock()
	return nil
}

// TestLiveBacktestParity feeds the identical synthetic history through both
// drivers and requires the same decision sequence: same kinds, same order
// legs, same quantities, same metadata.
func TestLiveBacktestParity(t *testing.T) {
	ys, xs := pairHistory(260, 200)

	// Historical replay.
	st := seedStore(t, ys, xs)
	bt := NewBacktest(st, testPipeline(), nil, 1e6, zerolog.Nop())
	replayed, err := bt.Run(context.Background(), time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("backtest failed: %v", err)
	}

	// Live path over the same series, quote by quote, fresh pipeline.
	quotes := make([]market.Quote, 0, 2*len(ys))
	for i := range ys {
		quotes = append(quotes,
			market.Quote{Key: "MSFT_STK", Price: xs[i].Close, Ts: xs[i].Ts},
			market.Quote{Key: "AMZN_STK", Price: ys[i].Close, Ts: ys[i].Ts},
		)
	}
	capture := &captureExecutor{}
	live := NewLive(sliceSource{quotes: quotes}, testPipeline(), capture, nil, 0, zerolog.Nop())
	if err := live.Run(context.Background()); err != nil {
		t.Fatalf("live run failed: %v", err)
	}

	if len(capture.emissions) != len(replayed.Decisions) {
		t.Fatalf("decision count diverged: live=%d backtest=%d", len(capture.emissions), len(replayed.Decisions))
	}
	for i, liveEm := range capture.emissions {
		btEm := replayed.Decisions[i].Emission
		if liveEm.Kind != btEm.Kind {
			t.Fatalf("decision %d kind diverged: live=%s backtest=%s", i, liveEm.Kind, btEm.Kind)
		}
		if !liveEm.Ts.Equal(btEm.Ts) {
			t.Fatalf("decision %d timestamp diverged: live=%s backtest=%s", i, liveEm.Ts, btEm.Ts)
		}
		if len(liveEm.Orders) != len(btEm.Orders) {
			t.Fatalf("decision %d order count diverged", i)
		}
		for j := range liveEm.Orders {
			if liveEm.Orders[j] != btEm.Orders[j] {
				t.Fatalf("decision %d order %d diverged: live=%+v backtest=%+v", i, j, liveEm.Orders[j], btEm.Orders[j])
			}
		}
		if len(liveEm.Meta) != len(btEm.Meta) {
			t.Fatalf("decision %d metadata keys diverged", i)
		}
		for k, v := range btEm.Meta {
			if liveEm.Meta[k] != v {
				t.Fatalf("decision %d meta[%s] diverged: live=%v backtest=%v", i, k, liveEm.Meta[k], v)
			}
		}
	}
}

func TestLiveCooldownSuppressesRouting(t *testing.T) {
	ys, xs := pairHistory(260, 200)
	quotes := make([]market.Quote, 0, 2*len(ys))
	for i := range ys {
		quotes = append(quotes,
			market.Quote{Key: "MSFT_STK", Price: xs[i].Close, Ts: xs[i].Ts},
			market.Quote{Key: "AMZN_STK", Price: ys[i].Close, Ts: ys[i].Ts},
		)
	}

	capture := &captureExecutor{}
	live := NewLive(sliceSource{quotes: quotes}, testPipeline(), capture, nil, time.Hour, zerolog.Nop())
	// Freeze the clock so the hour-long cooldown can never elapse mid-run.
	frozen := time.Unix(1750000000, 0)
	live.now = func() time.Time { return frozen }

	if err := live.Run(context.Background()); err != nil {
		t.Fatalf("live run failed: %v", err)
	}
	// The entry routes; the exit lands inside the cooldown window and is held
	// back from execution.
	if len(capture.emissions) != 1 {
		t.Fatalf("expected exactly the first decision routed, got %d", len(capture.emissions))
	}
	if capture.emissions[0].Kind != market.EntryShortSpread {
		t.Fatalf("expected the entry to route first, got %s", capture.emissions[0].Kind)
	}
}
