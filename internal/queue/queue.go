package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/shiningsmiles/tuition-ledger/internal/model"
	"github.com/shiningsmiles/tuition-ledger/pkg/logger"
	"github.com/shiningsmiles/tuition-ledger/pkg/redis"
)

// Event types published to the payment event stream. The notification
// service and the bursar bot consume these; this side only produces.
const (
	EventPaymentPosted = "payment.posted"
	EventPaymentVoided = "payment.voided"
)

// PaymentEvent is the envelope written to the stream.
type PaymentEvent struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	TenantID   int64          `json:"tenant_id"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payment    *model.Payment `json:"payment"`
}

type PublisherConfig struct {
	Stream string
	MaxLen int64
}

// Publisher appends payment events to a redis stream, trimming it to an
// approximate max length so an idle consumer cannot grow it unbounded.
type Publisher struct {
	adapter redis.RedisAdapter
	config  PublisherConfig
}

func NewPublisher(adapter redis.RedisAdapter, config PublisherConfig) *Publisher {
	if config.Stream == "" {
		config.Stream = "payment-events"
	}
	return &Publisher{adapter: adapter, config: config}
}

// Publish appends one event and returns its stream id.
func (p *Publisher) Publish(ctx context.Context, eventType string, payment *model.Payment) (string, error) {
	event := PaymentEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		TenantID:   payment.TenantID,
		OccurredAt: time.Now().UTC(),
		Payment:    payment,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return "", err
	}

	id, err := p.adapter.XAdd(p.config.Stream, map[string]interface{}{
		"type": eventType,
		"data": data,
	})
	if err != nil {
		return "", err
	}

	if p.config.MaxLen > 0 {
		if err := p.adapter.XTrimApprox(p.config.Stream, p.config.MaxLen); err != nil {
			logger.Warn("failed to trim event stream", "stream", p.config.Stream, "error", err)
		}
	}

	return id, nil
}

// Len reports the current stream length.
func (p *Publisher) Len() (int64, error) {
	return p.adapter.XLen(p.config.Stream)
}

// Read fetches up to count events starting after the given stream id ("0"
// for the beginning). Used by tests and ad-hoc inspection; the real
// consumers read through their own consumer groups.
func (p *Publisher) Read(id string, count int64) ([]PaymentEvent, error) {
	msgs, err := p.adapter.XRead(p.config.Stream, id, count)
	if err != nil {
		return nil, err
	}

	events := make([]PaymentEvent, 0, len(msgs))
	for _, m := range msgs {
		raw, ok := m.Values["data"].(string)
		if !ok {
			continue
		}
		var ev PaymentEvent
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			logger.Warn("skipping malformed event", "stream_id", m.ID, "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}
