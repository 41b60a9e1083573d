//go:build integration

package notify_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"github.com/twmb/franz-go/pkg/kgo"

	"docvault/internal/notify"
	"docvault/internal/platform/config"
	"docvault/internal/platform/kafka"
	id "docvault/pkg/domain"
	"docvault/pkg/testutil/containers"
)

type KafkaSuite struct {
	suite.Suite
	redpanda *containers.RedpandaContainer
}

func TestKafkaSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(KafkaSuite))
}

func (s *KafkaSuite) SetupSuite() {
	s.redpanda = containers.GetManager().GetRedpanda(s.T())
}

func (s *KafkaSuite) TestNoticeReachesTopic() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	topic := "docvault.notifications." + uuid.NewString()[:8]
	cfg := config.NotifyConfig{Brokers: s.redpanda.Brokers, Topic: topic}

	producer, err := kafka.NewProducer(cfg)
	s.Require().NoError(err)
	defer producer.Close()
	s.Require().NoError(kafka.EnsureTopic(ctx, producer, topic, 1, 1))
	s.Require().NoError(kafka.EnsureTopic(ctx, producer, topic, 1, 1), "second ensure must be a no-op")

	docID := id.DocumentID(uuid.New())
	notifier := notify.NewKafka(producer, topic, slog.New(slog.NewTextHandler(io.Discard, nil)))
	notifier.Notify(ctx, notify.Notice{
		Kind:       notify.KindDocumentRevoked,
		TenantID:   id.TenantID(uuid.New()),
		DocumentID: docID,
		Reason:     "position_cancelled",
		OccurredAt: time.Now().UTC(),
	})
	s.Require().NoError(producer.Flush(ctx))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(s.redpanda.Brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	s.Require().NoError(err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	s.Require().Empty(fetches.Errors())
	records := fetches.Records()
	s.Require().NotEmpty(records)

	var m map[string]any
	s.Require().NoError(json.Unmarshal(records[0].Value, &m))
	s.Equal("document_revoked", m["kind"])
	s.Equal(docID.String(), string(records[0].Key))
}
