// Command backfill replays an archive of raw weather cycles through the
// feature builder or the full prediction pipeline, without Kafka. Archives
// are JSON arrays of cycle payloads, one element per prediction date.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/suspension-forecast/internal/adapter/store"
	"github.com/couchcryptid/suspension-forecast/internal/config"
	"github.com/couchcryptid/suspension-forecast/internal/domain"
	"github.com/couchcryptid/suspension-forecast/internal/feature"
	"github.com/couchcryptid/suspension-forecast/internal/model"
	"github.com/couchcryptid/suspension-forecast/internal/observability"
	"github.com/couchcryptid/suspension-forecast/internal/pipeline"
	"github.com/couchcryptid/suspension-forecast/internal/risk"
)

var (
	inputPath  string
	outputPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Replay archived weather cycles through the suspension predictor",
	Long: "backfill reads a JSON archive of raw weather cycles and either extracts\n" +
		"the feature vectors the model would see, or re-runs the full prediction\n" +
		"pipeline over every cycle in the archive.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&inputPath, "input", "i", "", "Path to the cycle archive JSON (required)")
	rootCmd.PersistentFlags().StringVarP(&outputPath, "output", "o", "", "Path to write results (default: stdout)")
	_ = rootCmd.MarkPersistentFlagRequired("input")

	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(predictCmd)
}

// --- features command ---

// unitFeatures is one row of the features subcommand's output.
type unitFeatures struct {
	Date         string         `json:"date"`
	Unit         string         `json:"lgu"`
	Features     feature.Vector `json:"features"`
	Degradations []string       `json:"degradations,omitempty"`
}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Extract model feature vectors from every cycle in the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		units, err := config.LoadUnits("")
		if err != nil {
			return err
		}
		builder, err := feature.NewBuilder(units.Table, units.RainyMonths, units.SchoolYearStart)
		if err != nil {
			return err
		}

		cycles, err := readArchive(inputPath)
		if err != nil {
			return err
		}

		var rows []unitFeatures
		for i, payload := range cycles {
			date, set, err := normalizeCycle(payload, units)
			if err != nil {
				return fmt.Errorf("cycle %d: %w", i, err)
			}

			// Offline replays have no holiday API; weekday-only calendar.
			calendar := domain.NewStaticCalendar(nil)
			for _, u := range units.Table.All() {
				history := set.Historical(u.Name, date, 7)
				var forecast *domain.WeatherObservation
				if obs, ok := set.Forecast(u.Name, date); ok {
					forecast = &obs
				}
				vec, degraded, err := builder.Build(date, u.Name, history, forecast, feature.CalendarInfo{
					IsHoliday:   calendar.IsHoliday(date),
					IsSchoolDay: calendar.IsSchoolDay(date),
				})
				if err != nil {
					return fmt.Errorf("cycle %d unit %s: %w", i, u.Name, err)
				}
				rows = append(rows, unitFeatures{
					Date:         payload.Date,
					Unit:         u.Name,
					Features:     vec,
					Degradations: degraded,
				})
			}
		}

		fmt.Fprintf(os.Stderr, "extracted %d feature vectors from %d cycles\n", len(rows), len(cycles))
		return writeOutput(rows)
	},
}

// --- predict command ---

var (
	historyDBPath string
	threshold     float64
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Re-run the full prediction pipeline over every cycle in the archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

		units, err := config.LoadUnits("")
		if err != nil {
			return err
		}
		builder, err := feature.NewBuilder(units.Table, units.RainyMonths, units.SchoolYearStart)
		if err != nil {
			return err
		}
		artifact, err := model.LoadArtifact(os.Getenv("MODEL_ARTIFACT"))
		if err != nil {
			return err
		}
		scorer, err := model.NewScorer(artifact)
		if err != nil {
			return err
		}
		interpreter, err := risk.NewInterpreter(threshold)
		if err != nil {
			return err
		}

		predictor := pipeline.NewPredictor(
			units.Table, builder, scorer, interpreter, nil,
			logger, observability.NewMetricsForTesting(),
		)

		var history *store.Store
		if historyDBPath != "" {
			history, err = store.Open(historyDBPath, logger)
			if err != nil {
				return err
			}
			defer history.Close()
		}

		cycles, err := readArchive(inputPath)
		if err != nil {
			return err
		}

		ctx := context.Background()
		start := time.Now()
		batches := make([]domain.PredictionBatch, 0, len(cycles))
		for i, payload := range cycles {
			batch, err := predictor.PredictPayload(ctx, payload)
			if err != nil {
				return fmt.Errorf("cycle %d (%s): %w", i, payload.Date, err)
			}
			if history != nil {
				if err := history.LoadBatch(ctx, batch); err != nil {
					return fmt.Errorf("store batch for %s: %w", payload.Date, err)
				}
			}
			batches = append(batches, batch)
		}

		fmt.Fprintf(os.Stderr, "predicted %d batches in %s\n", len(batches), time.Since(start).Round(time.Millisecond))
		return writeOutput(batches)
	},
}

func init() {
	predictCmd.Flags().StringVar(&historyDBPath, "history-db", "", "Also write batches into a SQLite history database")
	predictCmd.Flags().Float64Var(&threshold, "threshold", risk.DefaultDecisionThreshold, "Binary decision threshold")
}

func normalizeCycle(payload domain.CyclePayload, units *config.Units) (time.Time, *domain.ObservationSet, error) {
	date, err := domain.ParseDate(payload.Date)
	if err != nil {
		return time.Time{}, nil, err
	}
	set := domain.NewObservationSet()
	for i, raw := range payload.Observations {
		obs, err := domain.NormalizeObservation(raw)
		if err != nil {
			return time.Time{}, nil, fmt.Errorf("observation %d: %w", i, err)
		}
		if !units.Table.Contains(obs.Unit) {
			return time.Time{}, nil, fmt.Errorf("observation %d: unknown unit %q", i, obs.Unit)
		}
		if err := set.Add(obs); err != nil {
			return time.Time{}, nil, fmt.Errorf("observation %d: %w", i, err)
		}
	}
	return date, set, nil
}

func readArchive(path string) ([]domain.CyclePayload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read archive: %w", err)
	}
	var cycles []domain.CyclePayload
	if err := json.Unmarshal(data, &cycles); err != nil {
		return nil, fmt.Errorf("parse archive: %w", err)
	}
	if len(cycles) == 0 {
		return nil, fmt.Errorf("archive %s contains no cycles", path)
	}
	return cycles, nil
}

func writeOutput(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize output: %w", err)
	}
	data = append(data, '\n')

	if outputPath == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	return os.WriteFile(outputPath, data, 0o644)
}
