package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RiskTier is the three-level categorical recommendation derived from a
// suspension probability. The ordering normal < alert < suspension is part of
// the contract: tier comparisons drive escalation logic downstream.
type RiskTier int

const (
	TierNormal RiskTier = iota
	TierAlert
	TierSuspension
)

func (t RiskTier) String() string {
	switch t {
	case TierAlert:
		return "alert"
	case TierSuspension:
		return "suspension"
	default:
		return "normal"
	}
}

// MarshalJSON encodes the tier as its string name; field names and values in
// batch output are an implicit schema contract with persistence/dashboard.
func (t RiskTier) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *RiskTier) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "normal":
		*t = TierNormal
	case "alert":
		*t = TierAlert
	case "suspension":
		*t = TierSuspension
	default:
		return fmt.Errorf("unknown risk tier %q", s)
	}
	return nil
}

// WeatherContext is presentation metadata attached to a result. It never
// feeds back into the probability or tier.
type WeatherContext struct {
	Description   string `json:"description,omitempty"`   // e.g. "Heavy rain likely"
	Precipitation string `json:"precipitation,omitempty"` // e.g. "35.0mm precipitation"
	Advisory      string `json:"advisory,omitempty"`      // e.g. "Wind Signal No. 2 (Opong)"
}

// PredictionResult is one (date, unit) prediction. Created by the risk
// interpreter, never mutated afterwards.
type PredictionResult struct {
	Date time.Time `json:"date"`
	Unit string    `json:"lgu"`

	Probability float64  `json:"suspension_probability"`
	Suspended   bool     `json:"predicted_suspended"`
	Tier        RiskTier `json:"risk_tier"`

	Recommendation     string         `json:"recommendation"`
	Actions            []string       `json:"actions"`
	MonitoringInterval string         `json:"monitoring_interval"`
	WeatherContext     WeatherContext `json:"weather_context"`

	// Degradations lists the documented fallbacks applied while building the
	// unit's feature vector (missing t-1 history, absent forecast fields, ...).
	// Imperfect input is the normal operating condition; these are metadata,
	// not errors.
	Degradations []string `json:"degradations,omitempty"`
}

// BatchSummary carries derived statistics over one batch's results.
type BatchSummary struct {
	TotalUnits      int     `json:"total_units"`
	NormalCount     int     `json:"normal_count"`
	AlertCount      int     `json:"alert_count"`
	SuspensionCount int     `json:"suspension_count"`
	MeanProbability float64 `json:"mean_probability"`
}

// PredictionBatch is one cycle's complete output: every configured unit's
// result for one date, the advisory context stored once, and summary
// statistics. Append-only history for persistence and dashboards.
type PredictionBatch struct {
	ID           string             `json:"id"`
	Date         time.Time          `json:"date"`
	GeneratedAt  time.Time          `json:"generated_at"`
	ModelVersion string             `json:"model_version"`
	Advisory     AdvisoryStatus     `json:"advisory"`
	Results      []PredictionResult `json:"predictions"`
	Summary      BatchSummary       `json:"summary"`
}

// ErrNoBatches is returned by batch history lookups when no stored batch
// matches.
var ErrNoBatches = errors.New("no prediction batches stored")

// CompletenessError reports a batch that does not cover the configured unit
// set exactly. Downstream consumers assume full coverage, so a short batch is
// surfaced loudly instead of shipped.
type CompletenessError struct {
	Missing    []string
	Unexpected []string
}

func (e *CompletenessError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing units: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, "unexpected units: "+strings.Join(e.Unexpected, ", "))
	}
	return "incomplete prediction batch: " + strings.Join(parts, "; ")
}

// AssembleBatch packages per-unit results into one dated batch. It enforces
// exactly one result per configured unit and derives the summary. Results are
// ordered by unit code regardless of input order.
func AssembleBatch(date time.Time, modelVersion string, advisory AdvisoryStatus, results []PredictionResult, units *UnitTable) (PredictionBatch, error) {
	seen := make(map[string]PredictionResult, len(results))
	var unexpected []string
	for _, r := range results {
		if !units.Contains(r.Unit) {
			unexpected = append(unexpected, r.Unit)
			continue
		}
		if _, dup := seen[r.Unit]; dup {
			unexpected = append(unexpected, r.Unit)
			continue
		}
		seen[r.Unit] = r
	}

	var missing []string
	ordered := make([]PredictionResult, 0, units.Count())
	for _, u := range units.All() {
		r, ok := seen[u.Name]
		if !ok {
			missing = append(missing, u.Name)
			continue
		}
		ordered = append(ordered, r)
	}

	if len(missing) > 0 || len(unexpected) > 0 {
		sort.Strings(unexpected)
		return PredictionBatch{}, &CompletenessError{Missing: missing, Unexpected: unexpected}
	}

	summary := BatchSummary{TotalUnits: len(ordered)}
	var sum float64
	for _, r := range ordered {
		sum += r.Probability
		switch r.Tier {
		case TierSuspension:
			summary.SuspensionCount++
		case TierAlert:
			summary.AlertCount++
		default:
			summary.NormalCount++
		}
	}
	summary.MeanProbability = sum / float64(len(ordered))

	return PredictionBatch{
		ID:           uuid.NewString(),
		Date:         date,
		GeneratedAt:  clock.Now().UTC(),
		ModelVersion: modelVersion,
		Advisory:     advisory,
		Results:      ordered,
		Summary:      summary,
	}, nil
}
