package execution

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"pairbot-go/internal/market"
	"pairbot-go/internal/metrics"
)

// orderMessage is the wire form published per instruction. The emission id
// doubles as an idempotency key for downstream order routers.
type orderMessage struct {
	EmissionID string                  `json:"emission_id"`
	Kind       market.DecisionKind     `json:"kind"`
	Order      market.OrderInstruction `json:"order"`
	Meta       map[string]float64      `json:"meta,omitempty"`
}

// NATSExecutor publishes order instructions to per-instrument subjects
// (<prefix>.<key>) for an external order router to consume.
type NATSExecutor struct {
	conn    *nats.Conn
	subject string
	log     zerolog.Logger
}

// NewNATSExecutor connects to the NATS server at url. subjectPrefix defaults
// to "orders".
func NewNATSExecutor(url, subjectPrefix string, log zerolog.Logger) (*NATSExecutor, error) {
	if subjectPrefix == "" {
		subjectPrefix = "orders"
	}
	conn, err := nats.Connect(url, nats.Name("pairbot-executor"))
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSExecutor{conn: conn, subject: subjectPrefix, log: log}, nil
}

// Submit publishes every instruction in the emission. The first publish error
// aborts and is returned; already published instructions are not recalled.
func (e *NATSExecutor) Submit(ctx context.Context, em *market.Emission) error {
	if em == nil {
		return nil
	}
	for _, o := range em.Orders {
		msg := orderMessage{EmissionID: em.ID, Kind: em.Kind, Order: o, Meta: em.Meta}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal order: %w", err)
		}
		subject := fmt.Sprintf("%s.%s", e.subject, o.Key)
		if err := e.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("publish %s: %w", subject, err)
		}
		metrics.OrdersTotal.WithLabelValues(string(o.Key), string(o.Side)).Inc()
		e.log.Info().Str("id", em.ID).Str("subject", subject).Int("qty", o.Qty).Msg("order published")
	}
	return nil
}

// Close drains and closes the underlying connection.
func (e *NATSExecutor) Close() {
	if e.conn != nil {
		_ = e.conn.Drain()
	}
}
