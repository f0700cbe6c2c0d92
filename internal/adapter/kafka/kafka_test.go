package kafka

import (
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/suspension-forecast/internal/domain"
)

func TestMapMessageToRawCycle(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("2025-09-15"),
		Value:     []byte(`{"date":"2025-09-15"}`),
		Topic:     "raw-weather-cycles",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "collector", Value: []byte("open-meteo")},
		},
	}

	r := &Reader{}
	raw := r.mapMessageToRawCycle(msg)

	assert.Equal(t, []byte("2025-09-15"), raw.Key)
	assert.JSONEq(t, `{"date":"2025-09-15"}`, string(raw.Value))
	assert.Equal(t, "raw-weather-cycles", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "open-meteo", raw.Headers["collector"])
	assert.NotNil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	generated := time.Date(2025, time.September, 14, 18, 0, 0, 0, time.UTC)
	batch := domain.PredictionBatch{
		ID:           "b-123",
		Date:         time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC),
		GeneratedAt:  generated,
		ModelVersion: "gbt-v1.0.0",
		Results: []domain.PredictionResult{
			{Unit: "Makati", Probability: 0.38, Tier: domain.TierNormal},
		},
		Summary: domain.BatchSummary{TotalUnits: 1, NormalCount: 1, MeanProbability: 0.38},
	}

	msg, err := serializeToMessage(batch)
	require.NoError(t, err)

	assert.Equal(t, []byte("2025-09-15"), msg.Key)
	assert.Contains(t, string(msg.Value), `"risk_tier":"normal"`)
	assert.Len(t, msg.Headers, 3)
	assert.Equal(t, "batch_id", msg.Headers[0].Key)
	assert.Equal(t, []byte("b-123"), msg.Headers[0].Value)
	assert.Equal(t, "model_version", msg.Headers[1].Key)
	assert.Equal(t, []byte("gbt-v1.0.0"), msg.Headers[1].Value)
	assert.Equal(t, "generated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(generated.Format(time.RFC3339)), msg.Headers[2].Value)
}
