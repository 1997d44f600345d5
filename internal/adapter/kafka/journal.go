// Package kafka publishes submit outcomes to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/agri-dashboard/internal/config"
	"github.com/couchcryptid/agri-dashboard/internal/domain"
	"github.com/couchcryptid/agri-dashboard/internal/observability"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Journal produces one message per submit outcome.
// It implements domain.OutcomeJournal.
type Journal struct {
	writer  messageWriter
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewJournal creates a Kafka producer for the configured outcome topic.
func NewJournal(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Journal {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.KafkaBrokers...),
		Topic:                  cfg.KafkaTopic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return newJournal(w, logger, metrics)
}

func newJournal(w messageWriter, logger *slog.Logger, metrics *observability.Metrics) *Journal {
	return &Journal{writer: w, logger: logger, metrics: metrics}
}

// Record publishes event keyed by capability, so outcomes of one page keep
// their order within a partition.
func (j *Journal) Record(ctx context.Context, event domain.OutcomeEvent) error {
	msg, err := serializeToMessage(event)
	if err != nil {
		j.metrics.JournalWrites.WithLabelValues("error").Inc()
		return err
	}
	if err := j.writer.WriteMessages(ctx, msg); err != nil {
		j.metrics.JournalWrites.WithLabelValues("error").Inc()
		return fmt.Errorf("publish outcome %s: %w", event.ID, err)
	}
	j.metrics.JournalWrites.WithLabelValues("success").Inc()
	j.logger.Debug("outcome journaled", "id", event.ID, "capability", event.Capability, "status", event.Status)
	return nil
}

func (j *Journal) Close() error {
	return j.writer.Close()
}

// serializeToMessage marshals an OutcomeEvent into a Kafka message.
func serializeToMessage(event domain.OutcomeEvent) (kafkago.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize outcome: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(event.Capability),
		Value: data,
		Time:  event.At,
		Headers: []kafkago.Header{
			{Key: "event_id", Value: []byte(event.ID)},
			{Key: "status", Value: []byte(event.Status)},
			{Key: "recorded_at", Value: []byte(event.At.Format(time.RFC3339))},
		},
	}, nil
}
