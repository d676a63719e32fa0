package engine

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"pairbot-go/internal/exchange"
	"pairbot-go/internal/execution"
	"pairbot-go/internal/market"
	"pairbot-go/internal/strategy"
)

// QuoteSource is the data collaborator contract the live driver consumes.
type QuoteSource interface {
	Run(ctx context.Context, out chan<- market.Quote) error
}

// Telemetry receives per-tick diagnostics; *monitor.Heartbeat satisfies it.
type Telemetry interface {
	Log(tick market.Tick, diag strategy.Diagnostics) error
}

// Live pumps a quote stream through the shared pipeline and routes admitted
// decisions to the execution collaborator. Shutdown is context-driven and
// lands between ticks, where strategy state is always consistent.
type Live struct {
	source   QuoteSource
	board    *exchange.Board
	pipe     *Pipeline
	exec     execution.Executor
	telem    Telemetry // optional
	cooldown time.Duration
	now      func() time.Time
	log      zerolog.Logger

	lastTrade time.Time
	pending   map[market.InstrumentKey]struct{}
}

// NewLive builds the live driver. cooldown is the minimum spacing between
// executed decisions; telem may be nil.
func NewLive(source QuoteSource, pipe *Pipeline, exec execution.Executor, telem Telemetry, cooldown time.Duration, log zerolog.Logger) *Live {
	return &Live{
		source:   source,
		board:    exchange.NewBoard(),
		pipe:     pipe,
		exec:     exec,
		telem:    telem,
		cooldown: cooldown,
		now:      time.Now,
		log:      log,
		pending:  make(map[market.InstrumentKey]struct{}),
	}
}

// Run consumes quotes until ctx is canceled or the feed stops. The pipeline
// steps once per complete round of required-instrument updates, so a burst of
// quotes for one leg cannot multiply filter updates.
func (l *Live) Run(ctx context.Context) error {
	quotes := make(chan market.Quote, 1024)
	feedErr := make(chan error, 1)
	go func() { feedErr <- l.source.Run(ctx, quotes) }()

	l.log.Info().Str("strategy", l.pipe.strat.Name()).Msg("live engine started")
	for {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("live engine shutting down")
			return ctx.Err()
		case err := <-feedErr:
			if err != nil && ctx.Err() == nil {
				l.log.Error().Err(err).Msg("feed stopped")
			}
			// The feed goroutine has exited; consume whatever it buffered so a
			// finite source is fully processed.
			for {
				select {
				case q := <-quotes:
					l.onQuote(ctx, q)
				default:
					return err
				}
			}
		case q := <-quotes:
			l.onQuote(ctx, q)
		}
	}
}

func (l *Live) onQuote(ctx context.Context, q market.Quote) {
	tick := l.board.Apply(q)
	l.pending[q.Key] = struct{}{}

	// Wait for every required leg to refresh before stepping so live and
	// replay runs see the same one-step-per-round cadence.
	for _, key := range l.pipe.RequiredKeys() {
		if _, ok := l.pending[key]; !ok {
			return
		}
	}
	l.pending = make(map[market.InstrumentKey]struct{})

	em := l.pipe.Step(tick)
	if l.telem != nil {
		if diag, ok := l.pipe.Diagnostics(); ok {
			if err := l.telem.Log(tick, diag); err != nil {
				l.log.Warn().Err(err).Msg("heartbeat write failed")
			}
		}
	}
	if em == nil {
		return
	}

	if l.cooldown > 0 {
		if since := l.now().Sub(l.lastTrade); !l.lastTrade.IsZero() && since < l.cooldown {
			l.log.Warn().
				Str("kind", string(em.Kind)).
				Dur("since_last", since).
				Msg("cooldown active, decision not routed")
			return
		}
	}

	if err := l.exec.Submit(ctx, em); err != nil {
		// Surfaced, not retried: re-sending a trade is a business decision.
		l.log.Error().Err(err).Str("id", em.ID).Msg("execution failed")
		return
	}
	l.lastTrade = l.now()
	l.log.Info().Str("id", em.ID).Str("kind", string(em.Kind)).Int("orders", len(em.Orders)).Msg("decision routed")
}
