package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/suspension-forecast/internal/domain"
	"github.com/couchcryptid/suspension-forecast/internal/feature"
	"github.com/couchcryptid/suspension-forecast/internal/model"
	"github.com/couchcryptid/suspension-forecast/internal/observability"
	"github.com/couchcryptid/suspension-forecast/internal/risk"
)

// historyWindow is how many trailing days of historical observations feed the
// lag and rolling features.
const historyWindow = 7

// Predictor turns one collection cycle into one complete prediction batch:
// normalize, build features, score, interpret, assemble.
type Predictor struct {
	units       *domain.UnitTable
	builder     *feature.Builder
	scorer      *model.Scorer
	interpreter *risk.Interpreter
	holidays    domain.HolidayProvider
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewPredictor wires the prediction stages together. The holiday provider may
// be nil; predictions then run on weekday-only calendar logic.
func NewPredictor(
	units *domain.UnitTable,
	builder *feature.Builder,
	scorer *model.Scorer,
	interpreter *risk.Interpreter,
	holidays domain.HolidayProvider,
	logger *slog.Logger,
	metrics *observability.Metrics,
) *Predictor {
	return &Predictor{
		units:       units,
		builder:     builder,
		scorer:      scorer,
		interpreter: interpreter,
		holidays:    holidays,
		logger:      logger,
		metrics:     metrics,
	}
}

// PredictCycle parses and predicts one raw cycle message.
func (p *Predictor) PredictCycle(ctx context.Context, raw domain.RawCycle) (domain.PredictionBatch, error) {
	var payload domain.CyclePayload
	if err := json.Unmarshal(raw.Value, &payload); err != nil {
		return domain.PredictionBatch{}, fmt.Errorf("parse cycle payload: %w", err)
	}
	return p.PredictPayload(ctx, payload)
}

// PredictPayload runs the full prediction flow for one cycle payload. Every
// configured unit gets exactly one result; a unit whose feature build or
// score fails aborts the cycle, because downstream consumers assume complete
// coverage.
func (p *Predictor) PredictPayload(ctx context.Context, payload domain.CyclePayload) (domain.PredictionBatch, error) {
	date, err := domain.ParseDate(payload.Date)
	if err != nil {
		return domain.PredictionBatch{}, fmt.Errorf("cycle date: %w", err)
	}

	advisory, err := domain.NormalizeAdvisory(payload.Advisory)
	if err != nil {
		return domain.PredictionBatch{}, err
	}

	set := domain.NewObservationSet()
	for _, raw := range payload.Observations {
		obs, err := domain.NormalizeObservation(raw)
		if err != nil {
			return domain.PredictionBatch{}, err
		}
		// Exact duplicates are collapsed inside Add; a conflicting duplicate
		// means the collector double-reported and the cycle cannot be trusted.
		if err := set.Add(obs); err != nil {
			return domain.PredictionBatch{}, err
		}
	}

	calendar := domain.MaterializeCalendar(ctx, p.holidays, date, p.logger)
	cal := feature.CalendarInfo{
		IsHoliday:   calendar.IsHoliday(date),
		IsSchoolDay: calendar.IsSchoolDay(date),
	}

	results := make([]domain.PredictionResult, 0, p.units.Count())
	for _, unit := range p.units.All() {
		result, err := p.predictUnit(date, unit.Name, set, advisory, cal)
		if err != nil {
			p.metrics.PredictionErrors.Inc()
			return domain.PredictionBatch{}, fmt.Errorf("predict %s: %w", unit.Name, err)
		}
		results = append(results, result)
	}

	batch, err := domain.AssembleBatch(date, p.scorer.Version(), advisory, results, p.units)
	if err != nil {
		return domain.PredictionBatch{}, err
	}

	for _, r := range batch.Results {
		p.metrics.TierPredictions.WithLabelValues(r.Tier.String()).Inc()
		for _, reason := range r.Degradations {
			p.metrics.Degradations.WithLabelValues(reason).Inc()
		}
	}

	return batch, nil
}

// predictUnit builds, scores, and interprets one unit.
func (p *Predictor) predictUnit(
	date time.Time,
	unit string,
	set *domain.ObservationSet,
	advisory domain.AdvisoryStatus,
	cal feature.CalendarInfo,
) (domain.PredictionResult, error) {
	start := time.Now()
	defer func() {
		p.metrics.ScoringDuration.Observe(time.Since(start).Seconds())
	}()

	history := set.Historical(unit, date, historyWindow)

	var forecast *domain.WeatherObservation
	if obs, ok := set.Forecast(unit, date); ok {
		forecast = &obs
	}

	vector, degradations, err := p.builder.Build(date, unit, history, forecast, cal)
	if err != nil {
		return domain.PredictionResult{}, err
	}

	probability, err := p.scorer.Score(vector)
	if err != nil {
		return domain.PredictionResult{}, err
	}

	if len(degradations) > 0 {
		p.logger.Debug("prediction degraded",
			"unit", unit,
			"date", date.Format(domain.DateLayout),
			"reasons", degradations,
		)
	}

	return p.interpreter.Interpret(date, unit, probability, forecast, advisory, degradations), nil
}
