package holidays

import (
	"context"
	"sync"
	"time"

	"github.com/couchcryptid/suspension-forecast/internal/domain"
	"github.com/couchcryptid/suspension-forecast/internal/observability"
)

// CachedProvider wraps a HolidayProvider with a per-year cache. Holiday sets
// are immutable within a deployment's lifetime and the pipeline asks for the
// same one or two years every cycle, so entries never expire.
type CachedProvider struct {
	inner   domain.HolidayProvider
	metrics *observability.Metrics

	mu    sync.Mutex
	years map[int][]time.Time
}

// NewCachedProvider creates a cache decorator around a holiday provider.
func NewCachedProvider(inner domain.HolidayProvider, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		metrics: metrics,
		years:   make(map[int][]time.Time),
	}
}

func (c *CachedProvider) Holidays(ctx context.Context, year int) ([]time.Time, error) {
	c.mu.Lock()
	cached, ok := c.years[year]
	c.mu.Unlock()
	if ok {
		c.metrics.HolidayCache.WithLabelValues("hit").Inc()
		return cached, nil
	}
	c.metrics.HolidayCache.WithLabelValues("miss").Inc()

	// Failures are not cached: a transient API outage should not pin a year
	// to "no holidays" for the rest of the process lifetime.
	holidays, err := c.inner.Holidays(ctx, year)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.years[year] = holidays
	c.mu.Unlock()
	return holidays, nil
}
