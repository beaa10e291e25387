// Package publisher fans audit events out to Kafka for downstream consumers
// (SIEM, retention pipelines). Publishing is fire-and-forget: the audit store
// remains the durable record, Kafka is a bonus feed.
package publisher

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"certiva/pkg/platform/audit"
)

// Kafka publishes audit events as JSON records.
type Kafka struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafka connects to the given brokers. Returns nil when brokers is empty
// (publishing not configured) so callers can wire it unconditionally.
func NewKafka(brokers []string, topic string, logger *slog.Logger) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, err
	}
	return &Kafka{client: client, topic: topic, logger: logger}, nil
}

type payload struct {
	Actor     string `json:"actor,omitempty"`
	Action    string `json:"action"`
	Details   string `json:"details,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Publish produces the event asynchronously. Failures are logged, never
// returned; audit emission must not block domain transitions.
func (k *Kafka) Publish(ctx context.Context, event audit.Event) {
	p := payload{
		Action:    string(event.Action),
		Details:   event.Details,
		CreatedAt: event.CreatedAt.Format(time.RFC3339Nano),
	}
	if event.Actor != nil {
		p.Actor = event.Actor.String()
	}
	value, err := json.Marshal(p)
	if err != nil {
		k.logger.Error("marshal audit event", "error", err)
		return
	}

	record := &kgo.Record{Topic: k.topic, Key: []byte(p.Action), Value: value}
	k.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			k.logger.Error("publish audit event", "error", err, "action", p.Action)
		}
	})
}

// Close flushes outstanding records and releases the client.
func (k *Kafka) Close() {
	if k == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = k.client.Flush(ctx)
	k.client.Close()
}
