package risk

import (
	"fmt"
	"time"

	"github.com/couchcryptid/suspension-forecast/internal/domain"
)

// Tier guidance. The checklists are ordered by urgency; dashboards render
// them verbatim.
var (
	normalActions = []string{
		"Continue routine school operations",
		"Review weather updates once daily",
	}
	alertActions = []string{
		"Monitor weather conditions every 2 hours",
		"Prepare early dismissal plan",
		"Coordinate with disaster office",
	}
	suspensionActions = []string{
		"Issue class suspension announcement",
		"Activate remote learning arrangements",
		"Monitor conditions for multi-day impact",
	}

	// Escalations appended on top of the tier checklist when the advisory
	// warrants them.
	typhoonWatchAction = "Monitor typhoon bulletins"
	escalationActions  = []string{
		"Activate disaster response protocols",
		"Secure school facilities",
	}
)

// escalationSignal is the wind-signal level at which suspension guidance
// escalates to disaster-response actions.
const escalationSignal = 2

// Interpreter derives the operational recommendation for one scored unit. It
// is configured once with the binary decision threshold and reused across
// cycles.
type Interpreter struct {
	decisionThreshold float64
}

// NewInterpreter validates the decision threshold and returns an Interpreter.
func NewInterpreter(decisionThreshold float64) (*Interpreter, error) {
	if decisionThreshold <= 0 || decisionThreshold >= 1 {
		return nil, &domain.ConfigurationError{
			Reason: fmt.Sprintf("decision threshold %g outside (0,1)", decisionThreshold),
		}
	}
	return &Interpreter{decisionThreshold: decisionThreshold}, nil
}

// Interpret builds the complete per-unit result from a probability and its
// context. Pure: same inputs always produce the same result, and the weather
// context never feeds back into the tier.
func (in *Interpreter) Interpret(
	date time.Time,
	unit string,
	probability float64,
	forecast *domain.WeatherObservation,
	advisory domain.AdvisoryStatus,
	degradations []string,
) domain.PredictionResult {
	p := clamp(probability)
	tier := TierFor(p)

	return domain.PredictionResult{
		Date:               date,
		Unit:               unit,
		Probability:        p,
		Suspended:          p >= in.decisionThreshold,
		Tier:               tier,
		Recommendation:     recommendationFor(tier),
		Actions:            actionsFor(tier, advisory),
		MonitoringInterval: monitoringFor(tier),
		WeatherContext:     FormatWeatherContext(forecast, advisory),
		Degradations:       degradations,
	}
}

func recommendationFor(tier domain.RiskTier) string {
	switch tier {
	case domain.TierSuspension:
		return "Recommend suspending face-to-face classes"
	case domain.TierAlert:
		return "Prepare for possible class suspension"
	default:
		return "Continue routine operations"
	}
}

func monitoringFor(tier domain.RiskTier) string {
	switch tier {
	case domain.TierSuspension:
		return "hourly"
	case domain.TierAlert:
		return "every 2 hours"
	default:
		return "daily"
	}
}

// actionsFor returns the tier checklist, extended by advisory escalations.
// A raised wind signal on the alert tier adds typhoon watching; signal at or
// above the escalation level on the suspension tier adds disaster-response
// actions.
func actionsFor(tier domain.RiskTier, advisory domain.AdvisoryStatus) []string {
	var base []string
	switch tier {
	case domain.TierSuspension:
		base = suspensionActions
	case domain.TierAlert:
		base = alertActions
	default:
		base = normalActions
	}

	out := make([]string, len(base), len(base)+len(escalationActions))
	copy(out, base)

	if tier == domain.TierAlert && advisory.WindSignal >= 1 {
		out = append(out, typhoonWatchAction)
	}
	if tier == domain.TierSuspension && advisory.WindSignal >= escalationSignal {
		out = append(out, escalationActions...)
	}
	return out
}

// FormatWeatherContext renders the presentation strings attached to a
// result: a bucketed precipitation phrase, the raw amount, and the active
// advisory when there is one.
func FormatWeatherContext(forecast *domain.WeatherObservation, advisory domain.AdvisoryStatus) domain.WeatherContext {
	ctx := domain.WeatherContext{Advisory: formatAdvisory(advisory)}
	if forecast == nil {
		return ctx
	}

	ctx.Description = precipitationPhrase(forecast.PrecipitationSum)
	ctx.Precipitation = fmt.Sprintf("%.1fmm precipitation", forecast.PrecipitationSum)
	return ctx
}

func precipitationPhrase(mm float64) string {
	switch {
	case mm < 7.5:
		return "Light rain possible"
	case mm < 15:
		return "Moderate rain expected"
	case mm < 30:
		return "Heavy rain likely"
	case mm < 60:
		return "Very heavy rain expected"
	default:
		return "Intense rainfall expected"
	}
}

// formatAdvisory prefers the rainfall warning and falls back to the wind
// signal, matching the bulletin precedence dashboards expect.
func formatAdvisory(advisory domain.AdvisoryStatus) string {
	if advisory.HasRainfallWarning {
		return fmt.Sprintf("%s rainfall warning", titleWarning(advisory.RainfallWarning))
	}
	if advisory.HasActiveTyphoon && advisory.WindSignal > 0 {
		if advisory.TyphoonName != "" {
			return fmt.Sprintf("Wind Signal No. %d (%s)", advisory.WindSignal, advisory.TyphoonName)
		}
		return fmt.Sprintf("Wind Signal No. %d", advisory.WindSignal)
	}
	return ""
}

func titleWarning(w domain.RainfallWarning) string {
	switch w {
	case domain.WarningYellow:
		return "Yellow"
	case domain.WarningOrange:
		return "Orange"
	case domain.WarningRed:
		return "Red"
	default:
		return string(w)
	}
}
