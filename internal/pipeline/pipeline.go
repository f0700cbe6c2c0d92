// Package pipeline orchestrates the consume-predict-publish loop: one cycle
// message in, one complete prediction batch out.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/suspension-forecast/internal/domain"
	"github.com/couchcryptid/suspension-forecast/internal/model"
	"github.com/couchcryptid/suspension-forecast/internal/observability"
)

// CycleExtractor reads the next raw cycle message from the source.
type CycleExtractor interface {
	Extract(ctx context.Context) (domain.RawCycle, error)
}

// BatchLoader delivers an assembled prediction batch to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, batch domain.PredictionBatch) error
}

// Pipeline orchestrates the consume-predict-publish loop.
type Pipeline struct {
	extractor CycleExtractor
	predictor *Predictor
	loader    BatchLoader
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(e CycleExtractor, p *Predictor, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		extractor: e,
		predictor: p,
		loader:    l,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil if the pipeline has published at least one
// batch, or an error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not published any batches yet")
	}
	return nil
}

// Run executes the prediction loop until the context is cancelled or a fatal
// incompatibility is hit.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started")
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	// Exponential backoff: start at 200ms, double each retry, cap at 5s.
	// Keeps retry storms short while avoiding tight loops during Kafka outages.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopping", "reason", ctx.Err())
			return nil
		default:
		}

		stop, err := p.processCycle(ctx, &backoff, maxBackoff)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

// processCycle runs one consume-predict-publish cycle. Returns stop=true when
// the pipeline should shut down cleanly, or an error for fatal conditions.
func (p *Pipeline) processCycle(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) (bool, error) {
	start := time.Now()

	raw, err := p.extractor.Extract(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return true, nil
		}
		p.logger.Error("extract cycle failed", "error", err)
		return !p.backoffOrStop(ctx, backoff, maxBackoff), nil
	}

	p.metrics.CyclesConsumed.Inc()
	*backoff = 200 * time.Millisecond

	batch, err := p.predictor.PredictCycle(ctx, raw)
	if err != nil {
		// A schema mismatch means the deployed model and feature code
		// disagree; every later cycle would fail identically, so stop loudly
		// instead of committing past it.
		var mismatch *model.SchemaMismatchError
		if errors.As(err, &mismatch) {
			p.logger.Error("model schema incompatible, stopping", "error", err)
			return true, err
		}

		p.logger.Warn("cycle prediction failed, skipping",
			"error", err,
			"topic", raw.Topic,
			"partition", raw.Partition,
			"offset", raw.Offset,
		)
		p.metrics.CycleErrors.Inc()
		p.commitOffset(ctx, raw)
		return false, nil
	}

	if err := p.loader.LoadBatch(ctx, batch); err != nil {
		p.logger.Error("load batch failed", "error", err, "batch_id", batch.ID)
		return !p.backoffOrStop(ctx, backoff, maxBackoff), nil
	}

	p.metrics.BatchesPublished.Inc()
	p.commitOffset(ctx, raw)

	p.metrics.CycleDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)

	p.logger.Info("batch published",
		"batch_id", batch.ID,
		"date", batch.Date.Format(domain.DateLayout),
		"suspension_count", batch.Summary.SuspensionCount,
		"alert_count", batch.Summary.AlertCount,
		"mean_probability", batch.Summary.MeanProbability,
	)
	return false, nil
}

// backoffOrStop checks for context cancellation, sleeps with the current backoff,
// and advances the backoff. Returns false if the pipeline should stop.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration, maxBackoff time.Duration) bool {
	if ctx.Err() != nil {
		return false
	}
	if !sleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = nextBackoff(*backoff, maxBackoff)
	return true
}

// commitOffset commits the message offset if a commit function is available.
func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawCycle) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
