package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"pairbot-go/internal/market"
	"pairbot-go/internal/metrics"
)

// natsQuote is the wire form published by upstream price collectors on
// <prefix>.<venue-symbol> subjects.
type natsQuote struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
	TsMs   int64   `json:"ts_ms"`
}

func (f *Feed) runNATS(ctx context.Context, out chan<- market.Quote) error {
	index := f.symbolIndex()
	if len(index) == 0 {
		return fmt.Errorf("nats feed requires at least one instrument with a venue symbol")
	}
	if f.natsURL == "" {
		return fmt.Errorf("nats feed requires a server URL")
	}

	conn, err := nats.Connect(f.natsURL, nats.Name("pairbot-feed"))
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer conn.Drain()

	subject := f.subjectPrefix + ".>"
	sub, err := conn.Subscribe(subject, func(msg *nats.Msg) {
		var q natsQuote
		if err := json.Unmarshal(msg.Data, &q); err != nil {
			f.log.Warn().Err(err).Str("subject", msg.Subject).Msg("failed to decode quote")
			return
		}
		key, ok := index[strings.ToUpper(q.Symbol)]
		if !ok || q.Price <= 0 {
			return
		}
		quote := market.Quote{Key: key, Price: q.Price, Ts: time.UnixMilli(q.TsMs)}
		select {
		case out <- quote:
			metrics.TicksTotal.WithLabelValues(string(key)).Inc()
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	defer sub.Unsubscribe()

	f.log.Info().Str("provider", ProviderNATS).Str("subject", subject).Msg("connected market data feed")

	<-ctx.Done()
	return ctx.Err()
}
