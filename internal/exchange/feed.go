// Package exchange hosts market-data connectors feeding the trading pipeline.
package exchange

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pairbot-go/internal/market"
	"pairbot-go/internal/metrics"
)

const (
	// ProviderStub emits a deterministic synthetic cointegrated pair (useful
	// for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance streams live trades from Binance public websockets.
	ProviderBinance = "binance"
	// ProviderNATS consumes quotes published by an upstream collector.
	ProviderNATS = "nats"
)

// Feed represents a pluggable market data stream implementation. It emits
// per-instrument quotes; snapshot assembly happens downstream in the Board so
// no component shares a mutable price table.
type Feed struct {
	provider      string
	log           zerolog.Logger
	pollInterval  time.Duration
	natsURL       string
	subjectPrefix string

	mu          sync.RWMutex
	instruments map[market.InstrumentKey]string // key -> venue symbol
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const defaultPollInterval = 500 * time.Millisecond

// WithPollInterval overrides the default cadence for the stub provider.
func WithPollInterval(d time.Duration) Option {
	return func(f *Feed) {
		if d > 0 {
			f.pollInterval = d
		}
	}
}

// WithNATS injects server URL and subject prefix for the NATS provider.
func WithNATS(url, subjectPrefix string) Option {
	return func(f *Feed) {
		f.natsURL = url
		if subjectPrefix != "" {
			f.subjectPrefix = strings.TrimSuffix(subjectPrefix, ".")
		}
	}
}

// NewFeed constructs a feed backed by the requested provider. instruments
// maps stable keys to venue symbols; the mapping never leaks past this
// package.
func NewFeed(provider string, instruments map[market.InstrumentKey]string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:      strings.ToLower(provider),
		log:           log,
		pollInterval:  defaultPollInterval,
		subjectPrefix: "quotes",
		instruments:   make(map[market.InstrumentKey]string, len(instruments)),
	}
	for key, sym := range instruments {
		f.instruments[key] = strings.TrimSpace(sym)
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// keys returns the tracked instrument keys, sorted for determinism.
func (f *Feed) keys() []market.InstrumentKey {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]market.InstrumentKey, 0, len(f.instruments))
	for k := range f.instruments {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// symbolIndex inverts the instrument map for providers that receive venue
// symbols on the wire.
func (f *Feed) symbolIndex() map[string]market.InstrumentKey {
	f.mu.RLock()
	defer f.mu.RUnlock()
	idx := make(map[string]market.InstrumentKey, len(f.instruments))
	for key, sym := range f.instruments {
		if sym != "" {
			idx[strings.ToUpper(sym)] = key
		}
	}
	return idx
}

// Run pushes quotes onto the provided channel until the context is canceled.
func (f *Feed) Run(ctx context.Context, out chan<- market.Quote) error {
	switch f.provider {
	case ProviderBinance:
		return f.runBinance(ctx, out)
	case ProviderNATS:
		return f.runNATS(ctx, out)
	default:
		return f.runStub(ctx, out)
	}
}

// runStub generates a cointegrated pair: the first key follows a slow sine
// walk and every other key tracks 2 + 1.5x plus a small deterministic wobble.
// Handy for exercising the whole pipeline without a venue.
func (f *Feed) runStub(ctx context.Context, out chan<- market.Quote) error {
	ticker := time.NewTicker(f.pollInterval)
	defer ticker.Stop()

	step := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			step++
			x := 50 + 10*math.Sin(float64(step)/20)
			keys := f.keys()
			for i, key := range keys {
				px := x
				if i > 0 {
					px = 2 + 1.5*x + 0.2*math.Sin(float64(step)/3)
				}
				quote := market.Quote{Key: key, Price: px, Ts: ts}
				select {
				case out <- quote:
					metrics.TicksTotal.WithLabelValues(string(key)).Inc()
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
