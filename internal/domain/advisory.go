package domain

import (
	"fmt"
	"strings"
)

// RainfallWarning is the PAGASA-style rainfall warning level.
type RainfallWarning string

const (
	WarningNone   RainfallWarning = "none"
	WarningYellow RainfallWarning = "yellow"
	WarningOrange RainfallWarning = "orange"
	WarningRed    RainfallWarning = "red"
)

// ParseRainfallWarning normalizes a warning level string. Unknown or empty
// values map to WarningNone (upstream bulletins omit the field entirely when
// no warning is active).
func ParseRainfallWarning(s string) RainfallWarning {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yellow":
		return WarningYellow
	case "orange":
		return WarningOrange
	case "red":
		return WarningRed
	default:
		return WarningNone
	}
}

// Ordinal returns the warning's model encoding: none 0, yellow 1, orange 2, red 3.
func (w RainfallWarning) Ordinal() int {
	switch w {
	case WarningYellow:
		return 1
	case WarningOrange:
		return 2
	case WarningRed:
		return 3
	default:
		return 0
	}
}

// MaxWindSignal is the highest tropical cyclone wind signal PAGASA issues.
const MaxWindSignal = 5

// RawAdvisoryRecord mirrors the advisory snapshot as collected upstream.
type RawAdvisoryRecord struct {
	HasActiveTyphoon     bool   `json:"has_active_typhoon"`
	TyphoonName          string `json:"typhoon_name,omitempty"`
	WindSignalLevel      int    `json:"wind_signal_level"`
	HasRainfallWarning   bool   `json:"has_rainfall_warning"`
	RainfallWarningLevel string `json:"rainfall_warning_level,omitempty"`
	AreaAffected         bool   `json:"area_affected"`
}

// AdvisoryStatus is one validated advisory snapshot, broadcast identically to
// every geographic unit in a collection cycle and immutable thereafter.
type AdvisoryStatus struct {
	HasActiveTyphoon bool   `json:"has_active_typhoon"`
	TyphoonName      string `json:"typhoon_name,omitempty"`

	// WindSignal is the effective signal for the covered area: zero when no
	// typhoon is active or when the advisory does not flag the area as
	// affected. RawWindSignal keeps the bulletin-level value for audit.
	WindSignal    int `json:"wind_signal_level"`
	RawWindSignal int `json:"raw_wind_signal_level"`

	HasRainfallWarning bool            `json:"has_rainfall_warning"`
	RainfallWarning    RainfallWarning `json:"rainfall_warning_level"`
	AreaAffected       bool            `json:"area_affected"`
}

// NormalizeAdvisory validates a raw advisory record and derives the effective
// wind signal. A signal with no active typhoon, or a typhoon whose track does
// not affect the area, contributes signal zero — a signal raised for another
// region must not inflate local predictions.
func NormalizeAdvisory(raw RawAdvisoryRecord) (AdvisoryStatus, error) {
	if raw.WindSignalLevel < 0 || raw.WindSignalLevel > MaxWindSignal {
		return AdvisoryStatus{}, fmt.Errorf("normalize advisory: wind signal %d outside [0,%d]", raw.WindSignalLevel, MaxWindSignal)
	}

	warning := ParseRainfallWarning(raw.RainfallWarningLevel)

	status := AdvisoryStatus{
		HasActiveTyphoon: raw.HasActiveTyphoon,
		TyphoonName:      strings.TrimSpace(raw.TyphoonName),
		RawWindSignal:    raw.WindSignalLevel,
		// A set flag with no level (or vice versa) means the collector saw a
		// partial bulletin; the level string is authoritative.
		HasRainfallWarning: warning != WarningNone,
		RainfallWarning:    warning,
		AreaAffected:       raw.AreaAffected,
	}

	if !raw.HasActiveTyphoon {
		status.TyphoonName = ""
		status.RawWindSignal = 0
	}
	if status.HasActiveTyphoon && status.AreaAffected {
		status.WindSignal = status.RawWindSignal
	}

	return status, nil
}

// Indicators returns the advisory's numeric encodings for persistence and
// model-context serialization: booleans as {0,1}, warning as ordinal 0-3.
func (a AdvisoryStatus) Indicators() AdvisoryIndicators {
	return AdvisoryIndicators{
		HasActiveTyphoon:   boolToInt(a.HasActiveTyphoon),
		WindSignal:         a.WindSignal,
		HasRainfallWarning: boolToInt(a.HasRainfallWarning),
		RainfallWarning:    a.RainfallWarning.Ordinal(),
		AreaAffected:       boolToInt(a.AreaAffected),
	}
}

// AdvisoryIndicators is the numeric form of an advisory snapshot.
type AdvisoryIndicators struct {
	HasActiveTyphoon   int `json:"has_active_typhoon"`
	WindSignal         int `json:"wind_signal_level"`
	HasRainfallWarning int `json:"has_rainfall_warning"`
	RainfallWarning    int `json:"rainfall_warning_level"`
	AreaAffected       int `json:"area_affected"`
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
