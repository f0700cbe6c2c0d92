package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/suspension-forecast/internal/domain"
)

// MultiLoader fans one batch out to several destinations, typically the sink
// topic plus the history store. The first destination is authoritative: its
// failure fails the load and the cycle retries. Later destinations are
// best-effort, logged and skipped on error, so a wedged history database
// cannot stall publishing.
type MultiLoader struct {
	primary   BatchLoader
	secondary []BatchLoader
	logger    *slog.Logger
}

// NewMultiLoader builds a MultiLoader. Nil secondaries are ignored.
func NewMultiLoader(primary BatchLoader, logger *slog.Logger, secondary ...BatchLoader) *MultiLoader {
	kept := make([]BatchLoader, 0, len(secondary))
	for _, l := range secondary {
		if l != nil {
			kept = append(kept, l)
		}
	}
	return &MultiLoader{primary: primary, secondary: kept, logger: logger}
}

func (m *MultiLoader) LoadBatch(ctx context.Context, batch domain.PredictionBatch) error {
	if err := m.primary.LoadBatch(ctx, batch); err != nil {
		return err
	}
	for _, l := range m.secondary {
		if err := l.LoadBatch(ctx, batch); err != nil {
			m.logger.Warn("secondary batch destination failed", "error", err, "batch_id", batch.ID)
		}
	}
	return nil
}
