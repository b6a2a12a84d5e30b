package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/nepalfire/firereport/internal/domain"
)

// Writer publishes daily snapshots to a Kafka topic.
// It implements pipeline.Notifier.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the snapshot topic.
func NewWriter(brokers []string, topic string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return &Writer{writer: w, logger: logger}
}

// Notify publishes one snapshot keyed by its archive date, so every
// regeneration of a day lands on the same partition.
func (w *Writer) Notify(ctx context.Context, key string, snap domain.Snapshot) error {
	msg, err := serializeToMessage(key, snap, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", key, err)
	}
	w.logger.Debug("snapshot published", "topic", w.writer.Topic, "key", key)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a Snapshot into a Kafka message.
func serializeToMessage(key string, snap domain.Snapshot, at time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize snapshot: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "total_fires", Value: []byte(fmt.Sprint(snap.Stats.TotalFires))},
			{Key: "published_at", Value: []byte(at.Format(time.RFC3339))},
		},
	}, nil
}
