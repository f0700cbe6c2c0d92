package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/suspension-forecast/internal/config"
	"github.com/couchcryptid/suspension-forecast/internal/domain"
)

// Writer produces prediction batches to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch serializes and publishes one prediction batch. The batch is a
// single message: consumers treat a batch as atomic, never a partial unit list.
func (w *Writer) LoadBatch(ctx context.Context, batch domain.PredictionBatch) error {
	msg, err := serializeToMessage(batch)
	if err != nil {
		return err
	}
	return w.writer.WriteMessages(ctx, msg)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a PredictionBatch into a Kafka message keyed by
// prediction date, so one date's batches land on one partition in order.
func serializeToMessage(batch domain.PredictionBatch) (kafkago.Message, error) {
	data, err := json.Marshal(batch)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize prediction batch: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(batch.Date.Format(domain.DateLayout)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "batch_id", Value: []byte(batch.ID)},
			{Key: "model_version", Value: []byte(batch.ModelVersion)},
			{Key: "generated_at", Value: []byte(batch.GeneratedAt.Format(time.RFC3339))},
		},
	}, nil
}
