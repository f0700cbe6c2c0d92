package kafka

import (
	"context"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/suspension-forecast/internal/config"
	"github.com/couchcryptid/suspension-forecast/internal/domain"
)

// Reader consumes cycle messages from the source topic.
// It implements pipeline.CycleExtractor.
type Reader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewReader creates a Kafka consumer for the configured source topic.
// Offsets are committed explicitly after a batch is published, so a crash
// mid-cycle replays the cycle rather than dropping it.
func NewReader(cfg *config.Config, logger *slog.Logger) *Reader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers: cfg.KafkaBrokers,
		Topic:   cfg.KafkaSourceTopic,
		GroupID: cfg.KafkaGroupID,
	})
	return &Reader{reader: r, logger: logger}
}

// Extract fetches the next cycle message, blocking until one arrives or the
// context is cancelled.
func (r *Reader) Extract(ctx context.Context) (domain.RawCycle, error) {
	msg, err := r.reader.FetchMessage(ctx)
	if err != nil {
		return domain.RawCycle{}, err
	}
	return r.mapMessageToRawCycle(msg), nil
}

func (r *Reader) mapMessageToRawCycle(msg kafkago.Message) domain.RawCycle {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return domain.RawCycle{
		Key:       msg.Key,
		Value:     msg.Value,
		Headers:   headers,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Commit: func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		},
	}
}

func (r *Reader) Close() error {
	return r.reader.Close()
}
