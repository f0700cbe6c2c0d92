// Command validate performs end-to-end integrity checks across prediction
// fixtures: the raw cycle JSON, the expected batch JSON, and the consistency
// between the two when the cycle is re-run through the actual predictor.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -cycle-json data/mock/cycle_typhoon.json \
//	  -batch-json data/mock/batch_typhoon.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/couchcryptid/suspension-forecast/internal/config"
	"github.com/couchcryptid/suspension-forecast/internal/domain"
	"github.com/couchcryptid/suspension-forecast/internal/feature"
	"github.com/couchcryptid/suspension-forecast/internal/model"
	"github.com/couchcryptid/suspension-forecast/internal/observability"
	"github.com/couchcryptid/suspension-forecast/internal/pipeline"
	"github.com/couchcryptid/suspension-forecast/internal/risk"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	cycleJSON := flag.String("cycle-json", "", "path to the raw cycle JSON fixture")
	batchJSON := flag.String("batch-json", "", "path to the expected batch JSON fixture")
	flag.Parse()

	if *cycleJSON == "" || *batchJSON == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*cycleJSON, *batchJSON); code != 0 {
		os.Exit(code)
	}
}

func run(cyclePath, batchPath string) int {
	units, err := config.LoadUnits("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "load unit table: %v\n", err)
		return 1
	}

	var payload domain.CyclePayload
	if err := readJSON(cyclePath, &payload); err != nil {
		fmt.Fprintf(os.Stderr, "read cycle fixture: %v\n", err)
		return 1
	}

	var expected domain.PredictionBatch
	if err := readJSON(batchPath, &expected); err != nil {
		fmt.Fprintf(os.Stderr, "read batch fixture: %v\n", err)
		return 1
	}

	phases := []*phase{
		validateCycle(payload, units),
		validateBatch(expected, units),
		validateConsistency(payload, expected, units),
	}

	failed := 0
	for _, p := range phases {
		if p.passed() {
			fmt.Printf("PASS  %s\n", p.name)
			continue
		}
		failed++
		fmt.Printf("FAIL  %s\n", p.name)
		for _, e := range p.errors {
			fmt.Printf("      - %s\n", e)
		}
	}

	if failed > 0 {
		fmt.Printf("\n%d of %d phases failed\n", failed, len(phases))
		return 1
	}
	fmt.Printf("\nall %d phases passed\n", len(phases))
	return 0
}

// validateCycle checks the raw cycle fixture: parseable date, normalizable
// advisory and observations, and a same-day forecast for every unit.
func validateCycle(payload domain.CyclePayload, units *config.Units) *phase {
	p := &phase{name: "cycle fixture"}

	date, err := domain.ParseDate(payload.Date)
	if err != nil {
		p.errorf("cycle date: %v", err)
		return p
	}

	if _, err := domain.NormalizeAdvisory(payload.Advisory); err != nil {
		p.errorf("advisory: %v", err)
	}

	set := domain.NewObservationSet()
	for i, raw := range payload.Observations {
		obs, err := domain.NormalizeObservation(raw)
		if err != nil {
			p.errorf("observation %d: %v", i, err)
			continue
		}
		if !units.Table.Contains(obs.Unit) {
			p.errorf("observation %d: unknown unit %q", i, obs.Unit)
			continue
		}
		if err := set.Add(obs); err != nil {
			p.errorf("observation %d: %v", i, err)
		}
	}

	for _, u := range units.Table.All() {
		if _, ok := set.Forecast(u.Name, date); !ok {
			p.errorf("unit %s has no same-day forecast", u.Name)
		}
	}
	return p
}

// validateBatch checks the expected batch's internal consistency: complete
// unit coverage, tier boundaries, and summary statistics.
func validateBatch(batch domain.PredictionBatch, units *config.Units) *phase {
	p := &phase{name: "batch fixture"}

	if batch.ID == "" {
		p.errorf("batch has no id")
	}
	if batch.ModelVersion == "" {
		p.errorf("batch has no model version")
	}
	if len(batch.Results) != units.Table.Count() {
		p.errorf("batch covers %d units, configuration has %d", len(batch.Results), units.Table.Count())
	}

	var sum float64
	counts := map[domain.RiskTier]int{}
	for _, r := range batch.Results {
		if !units.Table.Contains(r.Unit) {
			p.errorf("result for unknown unit %q", r.Unit)
		}
		if r.Probability < 0 || r.Probability > 1 {
			p.errorf("unit %s probability %g outside [0,1]", r.Unit, r.Probability)
		}
		if got := risk.TierFor(r.Probability); got != r.Tier {
			p.errorf("unit %s tier %s does not match probability %g (expected %s)",
				r.Unit, r.Tier, r.Probability, got)
		}
		sum += r.Probability
		counts[r.Tier]++
	}

	s := batch.Summary
	if s.TotalUnits != len(batch.Results) {
		p.errorf("summary total %d, results %d", s.TotalUnits, len(batch.Results))
	}
	if s.NormalCount != counts[domain.TierNormal] ||
		s.AlertCount != counts[domain.TierAlert] ||
		s.SuspensionCount != counts[domain.TierSuspension] {
		p.errorf("summary tier counts (%d/%d/%d) do not match results (%d/%d/%d)",
			s.NormalCount, s.AlertCount, s.SuspensionCount,
			counts[domain.TierNormal], counts[domain.TierAlert], counts[domain.TierSuspension])
	}
	if len(batch.Results) > 0 {
		mean := sum / float64(len(batch.Results))
		if math.Abs(mean-s.MeanProbability) > 1e-9 {
			p.errorf("summary mean %g, recomputed %g", s.MeanProbability, mean)
		}
	}
	return p
}

// validateConsistency re-runs the cycle through the predictor and compares
// per-unit probabilities and tiers against the expected batch.
func validateConsistency(payload domain.CyclePayload, expected domain.PredictionBatch, units *config.Units) *phase {
	p := &phase{name: "cycle/batch consistency"}

	builder, err := feature.NewBuilder(units.Table, units.RainyMonths, units.SchoolYearStart)
	if err != nil {
		p.errorf("feature builder: %v", err)
		return p
	}
	artifact, err := model.LoadArtifact(os.Getenv("MODEL_ARTIFACT"))
	if err != nil {
		p.errorf("model artifact: %v", err)
		return p
	}
	scorer, err := model.NewScorer(artifact)
	if err != nil {
		p.errorf("scorer: %v", err)
		return p
	}
	interpreter, err := risk.NewInterpreter(risk.DefaultDecisionThreshold)
	if err != nil {
		p.errorf("interpreter: %v", err)
		return p
	}

	predictor := pipeline.NewPredictor(
		units.Table, builder, scorer, interpreter, nil,
		slog.Default(), observability.NewMetricsForTesting(),
	)

	batch, err := predictor.PredictPayload(context.Background(), payload)
	if err != nil {
		p.errorf("predict: %v", err)
		return p
	}

	if batch.ModelVersion != expected.ModelVersion {
		p.errorf("model version %s, fixture has %s", batch.ModelVersion, expected.ModelVersion)
	}

	expectedByUnit := make(map[string]domain.PredictionResult, len(expected.Results))
	for _, r := range expected.Results {
		expectedByUnit[r.Unit] = r
	}

	for _, got := range batch.Results {
		want, ok := expectedByUnit[got.Unit]
		if !ok {
			p.errorf("unit %s missing from fixture", got.Unit)
			continue
		}
		if math.Abs(got.Probability-want.Probability) > 1e-9 {
			p.errorf("unit %s probability %g, fixture has %g", got.Unit, got.Probability, want.Probability)
		}
		if got.Tier != want.Tier {
			p.errorf("unit %s tier %s, fixture has %s", got.Unit, got.Tier, want.Tier)
		}
	}
	return p
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
