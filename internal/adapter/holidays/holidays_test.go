package holidays

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/suspension-forecast/internal/observability"
)

func TestClientHolidays(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"date":"2025-08-25","localName":"National Heroes Day","name":"National Heroes Day"},
			{"date":"2025-12-30","localName":"Rizal Day","name":"Rizal Day"},
			{"date":"not-a-date","localName":"Broken","name":"Broken"}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "PH", time.Second, slog.Default(), observability.NewMetricsForTesting())

	holidays, err := client.Holidays(context.Background(), 2025)
	require.NoError(t, err)

	assert.Equal(t, "/PublicHolidays/2025/PH", gotPath)

	// Malformed dates are skipped, not fatal.
	require.Len(t, holidays, 2)
	assert.Equal(t, time.Date(2025, time.August, 25, 0, 0, 0, 0, time.UTC), holidays[0])
	assert.Equal(t, time.Date(2025, time.December, 30, 0, 0, 0, 0, time.UTC), holidays[1])
}

func TestClientHolidaysAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "no data", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "PH", time.Second, slog.Default(), observability.NewMetricsForTesting())

	_, err := client.Holidays(context.Background(), 1800)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

type countingProvider struct {
	calls atomic.Int64
	err   error
}

func (p *countingProvider) Holidays(_ context.Context, year int) ([]time.Time, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	return []time.Time{time.Date(year, time.June, 12, 0, 0, 0, 0, time.UTC)}, nil
}

func TestCachedProvider(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedProvider(inner, observability.NewMetricsForTesting())

	for i := 0; i < 3; i++ {
		holidays, err := cached.Holidays(context.Background(), 2025)
		require.NoError(t, err)
		assert.Len(t, holidays, 1)
	}
	assert.EqualValues(t, 1, inner.calls.Load())

	// A different year is a fresh fetch.
	_, err := cached.Holidays(context.Background(), 2026)
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestCachedProviderDoesNotCacheFailures(t *testing.T) {
	inner := &countingProvider{err: errors.New("api down")}
	cached := NewCachedProvider(inner, observability.NewMetricsForTesting())

	_, err := cached.Holidays(context.Background(), 2025)
	require.Error(t, err)
	_, err = cached.Holidays(context.Background(), 2025)
	require.Error(t, err)

	assert.EqualValues(t, 2, inner.calls.Load())
}
