package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"docvault/internal/notify/metrics"
)

// Producer is the slice of *kgo.Client the Kafka notifier uses. TryProduce
// never waits for buffer space; a full buffer fails the record with
// kgo.ErrMaxBuffered right away.
type Producer interface {
	TryProduce(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
}

// Kafka publishes notices as JSON records keyed by document, so every notice
// for one document lands on the same partition in order.
type Kafka struct {
	producer Producer
	topic    string
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type KafkaOption func(*Kafka)

func WithMetrics(m *metrics.Metrics) KafkaOption {
	return func(k *Kafka) {
		k.metrics = m
	}
}

func NewKafka(producer Producer, topic string, logger *slog.Logger, opts ...KafkaOption) *Kafka {
	k := &Kafka{producer: producer, topic: topic, logger: logger}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// message is the wire format consumers read.
type message struct {
	Kind         string    `json:"kind"`
	TenantID     string    `json:"tenant_id"`
	DocumentID   string    `json:"document_id"`
	Recipient    string    `json:"recipient,omitempty"`
	GrantID      string    `json:"grant_id,omitempty"`
	Subject      string    `json:"subject,omitempty"`
	RevocationID string    `json:"revocation_id,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Message      string    `json:"message,omitempty"`
	Actor        string    `json:"actor,omitempty"`
	RequestID    string    `json:"request_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

func encode(n Notice) ([]byte, error) {
	m := message{
		Kind:       string(n.Kind),
		TenantID:   n.TenantID.String(),
		DocumentID: n.DocumentID.String(),
		Recipient:  n.Recipient.String(),
		Reason:     n.Reason,
		Message:    n.Message,
		Actor:      string(n.Actor),
		RequestID:  n.RequestID,
		OccurredAt: n.OccurredAt,
	}
	if !n.GrantID.IsNil() {
		m.GrantID = n.GrantID.String()
	}
	if !n.Subject.IsZero() {
		m.Subject = string(n.Subject.Kind) + ":" + n.Subject.ID.String()
	}
	if !n.RevocationID.IsNil() {
		m.RevocationID = n.RevocationID.String()
	}
	return json.Marshal(m)
}

func (k *Kafka) Notify(ctx context.Context, n Notice) {
	payload, err := encode(n)
	if err != nil {
		k.logger.ErrorContext(ctx, "failed to encode notification", "kind", string(n.Kind), "error", err)
		return
	}
	rec := &kgo.Record{
		Topic: k.topic,
		Key:   []byte(n.DocumentID.String()),
		Value: payload,
		Headers: []kgo.RecordHeader{
			{Key: "kind", Value: []byte(n.Kind)},
		},
	}
	// The request context ends with the response; delivery outlives it.
	k.producer.TryProduce(context.WithoutCancel(ctx), rec, func(r *kgo.Record, err error) {
		if err == nil {
			return
		}
		cause := "broker"
		msg := "notification not delivered to broker"
		if errors.Is(err, kgo.ErrMaxBuffered) {
			cause = "buffer_full"
			msg = "notification dropped, producer buffer full"
		}
		if k.metrics != nil {
			k.metrics.IncUndelivered(string(n.Kind), cause)
		}
		k.logger.Warn(msg,
			"kind", string(n.Kind),
			"document_id", n.DocumentID.String(),
			"topic", r.Topic,
			"error", err,
		)
	})
}
