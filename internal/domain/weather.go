package domain

import (
	"context"
	"fmt"
	"time"
)

// ObservationKind distinguishes observed history from same-day forecasts.
type ObservationKind string

const (
	KindHistorical ObservationKind = "historical"
	KindForecast   ObservationKind = "forecast"
)

// DateLayout is the civil-date format used across cycle payloads and batch output.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD civil date as UTC midnight.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// RawCycle is one unprocessed collection-cycle message from the source topic.
type RawCycle struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// CyclePayload is the flat JSON structure produced by the collector: one
// target date, one broadcast advisory snapshot, and per-unit observations.
type CyclePayload struct {
	Date         string                 `json:"date"`
	Advisory     RawAdvisoryRecord      `json:"advisory"`
	Observations []RawObservationRecord `json:"observations"`
}

// RawObservationRecord mirrors one Open-Meteo daily record as collected
// upstream. Numeric fields are pointers because providers omit variables;
// the normalizer resolves every absence here, at the boundary, so the core
// never re-litigates missing data.
type RawObservationRecord struct {
	Date string `json:"date"` // YYYY-MM-DD
	Unit string `json:"lgu"`
	Kind string `json:"kind"` // "historical" or "forecast"

	PrecipitationSum   *float64 `json:"precipitation_sum"`
	TemperatureMax     *float64 `json:"temperature_2m_max"`
	TemperatureMin     *float64 `json:"temperature_2m_min"`
	WindSpeedMax       *float64 `json:"wind_speed_10m_max"`
	WindGustsMax       *float64 `json:"wind_gusts_10m_max"`
	HumidityMean       *float64 `json:"relative_humidity_2m_mean"`
	CloudCoverMax      *float64 `json:"cloud_cover_max"`
	PressureMin        *float64 `json:"pressure_msl_min"`
	DewPointMean       *float64 `json:"dew_point_2m_mean"`
	ApparentTempMax    *float64 `json:"apparent_temperature_max"`
	WeatherCode        *float64 `json:"weather_code"`
	PrecipitationHours *float64 `json:"precipitation_hours"`
	CapeMax            *float64 `json:"cape_max"`
}

// Climatological defaults applied when a source omits a core field, matching
// the values the model was trained against for gap days in Metro Manila.
const (
	DefaultPressureMin     = 1010.0
	DefaultTemperatureMax  = 30.0
	DefaultTemperatureMin  = 24.0
	DefaultHumidityMean    = 70.0
	DefaultCloudCoverMax   = 50.0
	DefaultDewPointMean    = 24.0
	DefaultApparentTempMax = 30.0
)

// WeatherObservation is one day's validated, aggregated weather for one unit.
type WeatherObservation struct {
	Date time.Time       `json:"date"`
	Unit string          `json:"lgu"`
	Kind ObservationKind `json:"kind"`

	PrecipitationSum float64 `json:"precipitation_sum"`
	TemperatureMax   float64 `json:"temperature_max"`
	TemperatureMin   float64 `json:"temperature_min"`
	WindSpeedMax     float64 `json:"wind_speed_max"`
	WindGustsMax     float64 `json:"wind_gusts_max"`
	HumidityMean     float64 `json:"humidity_mean"`
	CloudCoverMax    float64 `json:"cloud_cover_max"`
	PressureMin      float64 `json:"pressure_min"`

	// Provider-dependent fields; nil when the upstream source omits them.
	DewPointMean       *float64 `json:"dew_point_mean,omitempty"`
	ApparentTempMax    *float64 `json:"apparent_temp_max,omitempty"`
	WeatherCode        *float64 `json:"weather_code,omitempty"`
	PrecipitationHours *float64 `json:"precipitation_hours,omitempty"`
	CapeMax            *float64 `json:"cape_max,omitempty"`
}

// NormalizeObservation validates and types a raw observation record. Missing
// core fields take the climatological defaults (zero for precipitation and
// wind, which genuinely mean "none"); out-of-range values are rejected rather
// than clamped because they indicate a broken collector, not weather.
func NormalizeObservation(raw RawObservationRecord) (WeatherObservation, error) {
	date, err := ParseDate(raw.Date)
	if err != nil {
		return WeatherObservation{}, fmt.Errorf("normalize observation: %w", err)
	}
	if raw.Unit == "" {
		return WeatherObservation{}, fmt.Errorf("normalize observation: missing lgu")
	}

	var kind ObservationKind
	switch ObservationKind(raw.Kind) {
	case KindHistorical, KindForecast:
		kind = ObservationKind(raw.Kind)
	default:
		return WeatherObservation{}, fmt.Errorf("normalize observation: invalid kind %q", raw.Kind)
	}

	obs := WeatherObservation{
		Date: date,
		Unit: raw.Unit,
		Kind: kind,

		PrecipitationSum: valueOr(raw.PrecipitationSum, 0),
		TemperatureMax:   valueOr(raw.TemperatureMax, DefaultTemperatureMax),
		TemperatureMin:   valueOr(raw.TemperatureMin, DefaultTemperatureMin),
		WindSpeedMax:     valueOr(raw.WindSpeedMax, 0),
		WindGustsMax:     valueOr(raw.WindGustsMax, 0),
		HumidityMean:     valueOr(raw.HumidityMean, DefaultHumidityMean),
		CloudCoverMax:    valueOr(raw.CloudCoverMax, DefaultCloudCoverMax),
		PressureMin:      valueOr(raw.PressureMin, DefaultPressureMin),

		DewPointMean:       raw.DewPointMean,
		ApparentTempMax:    raw.ApparentTempMax,
		WeatherCode:        raw.WeatherCode,
		PrecipitationHours: raw.PrecipitationHours,
		CapeMax:            raw.CapeMax,
	}

	switch {
	case obs.PrecipitationSum < 0:
		return WeatherObservation{}, fmt.Errorf("normalize observation %s/%s: negative precipitation %g", raw.Unit, raw.Date, obs.PrecipitationSum)
	case obs.WindSpeedMax < 0 || obs.WindGustsMax < 0:
		return WeatherObservation{}, fmt.Errorf("normalize observation %s/%s: negative wind speed", raw.Unit, raw.Date)
	case obs.HumidityMean < 0 || obs.HumidityMean > 100:
		return WeatherObservation{}, fmt.Errorf("normalize observation %s/%s: humidity %g outside [0,100]", raw.Unit, raw.Date, obs.HumidityMean)
	case obs.CloudCoverMax < 0 || obs.CloudCoverMax > 100:
		return WeatherObservation{}, fmt.Errorf("normalize observation %s/%s: cloud cover %g outside [0,100]", raw.Unit, raw.Date, obs.CloudCoverMax)
	}

	return obs, nil
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// DuplicateObservationError reports two observations for the same
// (date, unit, kind) with different values within one cycle.
type DuplicateObservationError struct {
	Unit string
	Date time.Time
	Kind ObservationKind
}

func (e *DuplicateObservationError) Error() string {
	return fmt.Sprintf("conflicting duplicate observation for %s %s (%s)",
		e.Unit, e.Date.Format(DateLayout), e.Kind)
}

type obsKey struct {
	date time.Time
	unit string
	kind ObservationKind
}

// ObservationSet indexes one cycle's observations by (date, unit, kind).
type ObservationSet struct {
	byKey map[obsKey]WeatherObservation
}

// NewObservationSet returns an empty set.
func NewObservationSet() *ObservationSet {
	return &ObservationSet{byKey: make(map[obsKey]WeatherObservation)}
}

// Add inserts an observation. Re-adding an identical observation is a no-op;
// a conflicting duplicate returns a DuplicateObservationError.
func (s *ObservationSet) Add(obs WeatherObservation) error {
	key := obsKey{date: obs.Date, unit: obs.Unit, kind: obs.Kind}
	if existing, ok := s.byKey[key]; ok {
		if !observationsEqual(existing, obs) {
			return &DuplicateObservationError{Unit: obs.Unit, Date: obs.Date, Kind: obs.Kind}
		}
		return nil
	}
	s.byKey[key] = obs
	return nil
}

// Historical returns the unit's historical observations dated strictly before
// cutoff and within the trailing window of `days` days, oldest first.
func (s *ObservationSet) Historical(unit string, cutoff time.Time, days int) []WeatherObservation {
	var out []WeatherObservation
	for i := days; i >= 1; i-- {
		key := obsKey{date: cutoff.AddDate(0, 0, -i), unit: unit, kind: KindHistorical}
		if obs, ok := s.byKey[key]; ok {
			out = append(out, obs)
		}
	}
	return out
}

// Forecast returns the unit's forecast observation for the given date, if present.
func (s *ObservationSet) Forecast(unit string, date time.Time) (WeatherObservation, bool) {
	obs, ok := s.byKey[obsKey{date: date, unit: unit, kind: KindForecast}]
	return obs, ok
}

// Len returns the number of distinct observations in the set.
func (s *ObservationSet) Len() int { return len(s.byKey) }

func observationsEqual(a, b WeatherObservation) bool {
	if a.Date != b.Date || a.Unit != b.Unit || a.Kind != b.Kind {
		return false
	}
	if a.PrecipitationSum != b.PrecipitationSum ||
		a.TemperatureMax != b.TemperatureMax ||
		a.TemperatureMin != b.TemperatureMin ||
		a.WindSpeedMax != b.WindSpeedMax ||
		a.WindGustsMax != b.WindGustsMax ||
		a.HumidityMean != b.HumidityMean ||
		a.CloudCoverMax != b.CloudCoverMax ||
		a.PressureMin != b.PressureMin {
		return false
	}
	return ptrEqual(a.DewPointMean, b.DewPointMean) &&
		ptrEqual(a.ApparentTempMax, b.ApparentTempMax) &&
		ptrEqual(a.WeatherCode, b.WeatherCode) &&
		ptrEqual(a.PrecipitationHours, b.PrecipitationHours) &&
		ptrEqual(a.CapeMax, b.CapeMax)
}

func ptrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
