package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/suspension-forecast/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func storedBatch(id, date string, generatedAt time.Time) domain.PredictionBatch {
	d, _ := domain.ParseDate(date)
	return domain.PredictionBatch{
		ID:           id,
		Date:         d,
		GeneratedAt:  generatedAt,
		ModelVersion: "gbt-v1.0.0",
		Results: []domain.PredictionResult{
			{Date: d, Unit: "Makati", Probability: 0.38, Tier: domain.TierNormal},
			{Date: d, Unit: "Marikina", Probability: 0.56, Suspended: true, Tier: domain.TierSuspension},
		},
		Summary: domain.BatchSummary{TotalUnits: 2, NormalCount: 1, SuspensionCount: 1, MeanProbability: 0.47},
	}
}

func TestStoreRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	generated := time.Date(2025, time.September, 14, 18, 0, 0, 0, time.UTC)
	batch := storedBatch("b-1", "2025-09-15", generated)

	require.NoError(t, s.LoadBatch(ctx, batch))

	got, err := s.LatestBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b-1", got.ID)
	assert.Equal(t, "gbt-v1.0.0", got.ModelVersion)
	require.Len(t, got.Results, 2)
	assert.Equal(t, domain.TierSuspension, got.Results[1].Tier)
	assert.True(t, got.Results[1].Suspended)
	assert.Equal(t, 0.47, got.Summary.MeanProbability)
}

func TestStoreLatestPicksNewestGeneration(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	older := time.Date(2025, time.September, 14, 6, 0, 0, 0, time.UTC)
	newer := older.Add(12 * time.Hour)

	require.NoError(t, s.LoadBatch(ctx, storedBatch("b-older", "2025-09-15", older)))
	require.NoError(t, s.LoadBatch(ctx, storedBatch("b-newer", "2025-09-15", newer)))

	got, err := s.LatestBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "b-newer", got.ID)
}

func TestStoreBatchByDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	generated := time.Date(2025, time.September, 14, 18, 0, 0, 0, time.UTC)
	require.NoError(t, s.LoadBatch(ctx, storedBatch("b-15", "2025-09-15", generated)))
	require.NoError(t, s.LoadBatch(ctx, storedBatch("b-16", "2025-09-16", generated.Add(24*time.Hour))))

	d, _ := domain.ParseDate("2025-09-15")
	got, err := s.BatchByDate(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, "b-15", got.ID)

	missing, _ := domain.ParseDate("2025-09-17")
	_, err = s.BatchByDate(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrNoBatches)
}

func TestStoreEmpty(t *testing.T) {
	s := openTestStore(t)

	_, err := s.LatestBatch(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoBatches)
}

func TestStoreRejectsDuplicateBatchID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	generated := time.Date(2025, time.September, 14, 18, 0, 0, 0, time.UTC)
	batch := storedBatch("b-dup", "2025-09-15", generated)

	require.NoError(t, s.LoadBatch(ctx, batch))
	require.Error(t, s.LoadBatch(ctx, batch))
}
