// Command genmock generates mock cycle fixtures and their expected prediction
// batches for test suites and demo environments. It runs the actual predictor
// so the expected output matches real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -scenario typhoon \
//	  -date 2025-09-15 \
//	  -cycle-out data/mock/cycle_typhoon.json \
//	  -batch-out data/mock/batch_typhoon.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/suspension-forecast/internal/config"
	"github.com/couchcryptid/suspension-forecast/internal/domain"
	"github.com/couchcryptid/suspension-forecast/internal/feature"
	"github.com/couchcryptid/suspension-forecast/internal/model"
	"github.com/couchcryptid/suspension-forecast/internal/observability"
	"github.com/couchcryptid/suspension-forecast/internal/pipeline"
	"github.com/couchcryptid/suspension-forecast/internal/risk"
)

// scenario bundles the forecast signals and advisory snapshot for one mock
// weather situation.
type scenario struct {
	precipitation float64
	windSpeed     float64
	windGusts     float64
	humidity      float64
	pressure      float64
	advisory      domain.RawAdvisoryRecord
}

var scenarios = map[string]scenario{
	"clear": {
		precipitation: 15, windSpeed: 25, windGusts: 40, humidity: 75, pressure: 1010,
	},
	"heavy-rain": {
		precipitation: 35, windSpeed: 45, windGusts: 70, humidity: 88, pressure: 1005,
		advisory: domain.RawAdvisoryRecord{RainfallWarningLevel: "orange"},
	},
	"typhoon": {
		precipitation: 65, windSpeed: 85, windGusts: 110, humidity: 92, pressure: 995,
		advisory: domain.RawAdvisoryRecord{
			HasActiveTyphoon:     true,
			TyphoonName:          "Opong",
			WindSignalLevel:      2,
			AreaAffected:         true,
			RainfallWarningLevel: "red",
		},
	},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	name := flag.String("scenario", "clear", "scenario: clear, heavy-rain, or typhoon")
	date := flag.String("date", "2025-09-15", "prediction date (YYYY-MM-DD)")
	cycleOut := flag.String("cycle-out", "", "output path for the raw cycle fixture")
	batchOut := flag.String("batch-out", "", "output path for the expected batch fixture")
	flag.Parse()

	if *cycleOut == "" || *batchOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -cycle-out, -batch-out")
	}

	sc, ok := scenarios[*name]
	if !ok {
		return fmt.Errorf("unknown scenario %q", *name)
	}

	targetDate, err := domain.ParseDate(*date)
	if err != nil {
		return err
	}

	// Fix the clock and batch ID inputs for reproducible fixtures.
	domain.SetClock(clockwork.NewFakeClockAt(targetDate.Add(-6 * time.Hour)))
	defer domain.SetClock(nil)

	units, err := config.LoadUnits("")
	if err != nil {
		return err
	}

	payload := buildPayload(*date, targetDate, sc, units)

	batch, err := predict(units, payload)
	if err != nil {
		return err
	}

	if err := writeJSON(*cycleOut, payload); err != nil {
		return fmt.Errorf("writing cycle fixture: %w", err)
	}
	log.Printf("wrote cycle fixture: %s (%d observations)", *cycleOut, len(payload.Observations))

	if err := writeJSON(*batchOut, batch); err != nil {
		return fmt.Errorf("writing batch fixture: %w", err)
	}
	log.Printf("wrote batch fixture: %s", *batchOut)

	log.Printf("scenario %s: mean probability %.4f (normal %d, alert %d, suspension %d)",
		*name,
		batch.Summary.MeanProbability,
		batch.Summary.NormalCount,
		batch.Summary.AlertCount,
		batch.Summary.SuspensionCount,
	)
	return nil
}

// buildPayload synthesizes one cycle: a same-day forecast per unit plus seven
// days of calmer trailing history.
func buildPayload(date string, targetDate time.Time, sc scenario, units *config.Units) domain.CyclePayload {
	payload := domain.CyclePayload{Date: date, Advisory: sc.advisory}

	for _, u := range units.Table.All() {
		payload.Observations = append(payload.Observations, forecastRecord(date, u.Name, sc))
		for offset := 1; offset <= 7; offset++ {
			day := targetDate.AddDate(0, 0, -offset).Format(domain.DateLayout)
			payload.Observations = append(payload.Observations, historicalRecord(day, u.Name, sc, offset))
		}
	}
	return payload
}

func forecastRecord(date, unit string, sc scenario) domain.RawObservationRecord {
	temp := 29.0
	cloud := 90.0
	hours := 8.0
	return domain.RawObservationRecord{
		Date:               date,
		Unit:               unit,
		Kind:               string(domain.KindForecast),
		PrecipitationSum:   f(sc.precipitation),
		WindSpeedMax:       f(sc.windSpeed),
		WindGustsMax:       f(sc.windGusts),
		HumidityMean:       f(sc.humidity),
		PressureMin:        f(sc.pressure),
		TemperatureMax:     &temp,
		CloudCoverMax:      &cloud,
		PrecipitationHours: &hours,
	}
}

func historicalRecord(date, unit string, sc scenario, offset int) domain.RawObservationRecord {
	// Trailing days taper toward calm so rolling sums stay below the
	// forecast-day signal.
	precip := sc.precipitation / float64(offset+1)
	wind := sc.windSpeed / float64(offset+1)
	gusts := sc.windGusts / float64(offset+1)
	temp := 30.0
	humidity := 78.0
	cloud := 70.0
	pressure := 1008.0
	return domain.RawObservationRecord{
		Date:             date,
		Unit:             unit,
		Kind:             string(domain.KindHistorical),
		PrecipitationSum: &precip,
		WindSpeedMax:     &wind,
		WindGustsMax:     &gusts,
		TemperatureMax:   &temp,
		HumidityMean:     &humidity,
		CloudCoverMax:    &cloud,
		PressureMin:      &pressure,
	}
}

func predict(units *config.Units, payload domain.CyclePayload) (domain.PredictionBatch, error) {
	builder, err := feature.NewBuilder(units.Table, units.RainyMonths, units.SchoolYearStart)
	if err != nil {
		return domain.PredictionBatch{}, err
	}

	artifact, err := model.LoadArtifact("")
	if err != nil {
		return domain.PredictionBatch{}, err
	}
	scorer, err := model.NewScorer(artifact)
	if err != nil {
		return domain.PredictionBatch{}, err
	}

	interpreter, err := risk.NewInterpreter(risk.DefaultDecisionThreshold)
	if err != nil {
		return domain.PredictionBatch{}, err
	}

	predictor := pipeline.NewPredictor(
		units.Table, builder, scorer, interpreter, nil,
		slog.Default(), observability.NewMetricsForTesting(),
	)
	return predictor.PredictPayload(context.Background(), payload)
}

func f(v float64) *float64 { return &v }

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
