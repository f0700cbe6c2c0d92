package feature

import (
	"sort"
	"time"

	"github.com/couchcryptid/suspension-forecast/internal/domain"
)

// Degradation reasons recorded when a documented fallback fires. These are
// result metadata and Prometheus label values; missing data never aborts a
// unit's prediction.
const (
	DegradedMissingT1            = "missing_t1_history"
	DegradedMissingForecast      = "missing_forecast"
	DegradedMissingForecastField = "missing_forecast_field"
	DegradedShortWindow          = "short_rolling_window"
	DegradedMissingFloodRisk     = "missing_flood_risk"
)

// neutralFloodRisk substitutes for units without a configured flood-risk
// score. Midpoint, so the feature neither raises nor lowers the prediction.
const neutralFloodRisk = 0.5

// CalendarInfo is the pre-resolved schedule context for a target date.
// Supplied by the caller; the builder computes nothing calendar-related
// beyond plain date arithmetic.
type CalendarInfo struct {
	IsHoliday   bool
	IsSchoolDay bool
}

// Builder turns a target date, a unit, trailing history, a same-day forecast,
// and calendar context into a complete schema-ordered vector.
type Builder struct {
	units           *domain.UnitTable
	rainyMonths     map[time.Month]bool
	schoolYearStart time.Month
}

// NewBuilder validates the static tables and returns a Builder. Absent tables
// are startup-time configuration errors, never per-prediction ones.
func NewBuilder(units *domain.UnitTable, rainyMonths []time.Month, schoolYearStart time.Month) (*Builder, error) {
	if units == nil || units.Count() == 0 {
		return nil, &domain.ConfigurationError{Reason: "feature builder requires a geographic-unit table"}
	}
	if len(rainyMonths) == 0 {
		return nil, &domain.ConfigurationError{Reason: "rainy-season month set is empty"}
	}
	if schoolYearStart < time.January || schoolYearStart > time.December {
		return nil, &domain.ConfigurationError{Reason: "school-year start month is invalid"}
	}

	months := make(map[time.Month]bool, len(rainyMonths))
	for _, m := range rainyMonths {
		if m < time.January || m > time.December {
			return nil, &domain.ConfigurationError{Reason: "rainy-season month set contains an invalid month"}
		}
		months[m] = true
	}

	return &Builder{
		units:           units,
		rainyMonths:     months,
		schoolYearStart: schoolYearStart,
	}, nil
}

// Build assembles the 33-field vector for one unit and date.
//
// Fallback policies (documented behavior, preserved from the trained model's
// data-preparation pipeline):
//   - No t-1 historical record: every t-1 field takes the same-day forecast
//     value ("forecast-as-proxy"). Zero-filling would read as "no rain, no
//     wind" and silently understate risk.
//   - No forecast either: climatological defaults (domain.Default*).
//   - Rolling 3d/7d aggregates run over whatever trailing history exists,
//     never zero-filled per missing day.
//   - Optional forecast fields absent from the provider take documented
//     sentinels (CAPE 0, dew point 24, ...).
//
// Every fired fallback is returned as a degradation note. Build fails only
// for an unconfigured unit.
func (b *Builder) Build(
	targetDate time.Time,
	unitName string,
	history []domain.WeatherObservation,
	forecast *domain.WeatherObservation,
	cal CalendarInfo,
) (Vector, []string, error) {
	unit, err := b.units.Lookup(unitName)
	if err != nil {
		return Vector{}, nil, err
	}

	v := newVector()
	var degradations []string
	note := func(reason string) {
		for _, d := range degradations {
			if d == reason {
				return
			}
		}
		degradations = append(degradations, reason)
	}

	// Temporal fields: pure functions of the target date and calendar info.
	v.set(Year, float64(targetDate.Year()))
	v.set(Month, float64(targetDate.Month()))
	v.set(Day, float64(targetDate.Day()))
	v.set(DayOfWeek, float64(mondayZeroWeekday(targetDate)))
	v.set(IsRainySeason, boolFeature(b.rainyMonths[targetDate.Month()]))
	v.set(MonthFromSYStart, float64(monthsFrom(b.schoolYearStart, targetDate.Month())))
	v.set(IsHoliday, boolFeature(cal.IsHoliday))
	v.set(IsSchoolDay, boolFeature(cal.IsSchoolDay))

	// Geographic fields.
	v.set(UnitCode, float64(unit.Code))
	if unit.FloodRisk != nil {
		v.set(MeanFloodRiskScore, *unit.FloodRisk)
	} else {
		v.set(MeanFloodRiskScore, neutralFloodRisk)
		note(DegradedMissingFloodRisk)
	}

	b.setHistoricalFields(&v, targetDate, history, forecast, note)
	b.setRollingFields(&v, targetDate, history, note)
	b.setForecastFields(&v, forecast, note)

	sort.Strings(degradations)
	return v, degradations, nil
}

// setHistoricalFields fills the t-1 lag fields from the record dated exactly
// one day before the target, falling back to forecast-as-proxy.
func (b *Builder) setHistoricalFields(v *Vector, targetDate time.Time, history []domain.WeatherObservation, forecast *domain.WeatherObservation, note func(string)) {
	prev := targetDate.AddDate(0, 0, -1)

	var t1 *domain.WeatherObservation
	for i := range history {
		obs := history[i]
		if obs.Kind == domain.KindHistorical && sameDate(obs.Date, prev) {
			t1 = &obs
			break
		}
	}

	src := t1
	if src == nil {
		note(DegradedMissingT1)
		src = forecast
	}

	if src == nil {
		v.set(HistPrecipitationSumT1, 0)
		v.set(HistWindSpeedMaxT1, 0)
		v.set(HistWindGustsMaxT1, 0)
		v.set(HistPressureMinT1, domain.DefaultPressureMin)
		v.set(HistTemperatureMaxT1, domain.DefaultTemperatureMax)
		v.set(HistHumidityMeanT1, domain.DefaultHumidityMean)
		v.set(HistCloudCoverMaxT1, domain.DefaultCloudCoverMax)
		v.set(HistDewPointMeanT1, domain.DefaultDewPointMean)
		v.set(HistApparentTempMaxT1, domain.DefaultApparentTempMax)
		v.set(HistWeatherCodeT1, 0)
		return
	}

	v.set(HistPrecipitationSumT1, src.PrecipitationSum)
	v.set(HistWindSpeedMaxT1, src.WindSpeedMax)
	v.set(HistWindGustsMaxT1, src.WindGustsMax)
	v.set(HistPressureMinT1, src.PressureMin)
	v.set(HistTemperatureMaxT1, src.TemperatureMax)
	v.set(HistHumidityMeanT1, src.HumidityMean)
	v.set(HistCloudCoverMaxT1, src.CloudCoverMax)
	v.set(HistDewPointMeanT1, optional(src.DewPointMean, domain.DefaultDewPointMean))
	v.set(HistApparentTempMaxT1, optional(src.ApparentTempMax, domain.DefaultApparentTempMax))
	v.set(HistWeatherCodeT1, optional(src.WeatherCode, 0))
}

// setRollingFields computes the trailing 3-day and 7-day aggregates over
// historical records only, inclusive of t-1 and exclusive of the target date.
func (b *Builder) setRollingFields(v *Vector, targetDate time.Time, history []domain.WeatherObservation, note func(string)) {
	var (
		precip3d, precip7d, windMax7d float64
		found                         int
	)

	for offset := 1; offset <= 7; offset++ {
		day := targetDate.AddDate(0, 0, -offset)
		for i := range history {
			obs := history[i]
			if obs.Kind != domain.KindHistorical || !sameDate(obs.Date, day) {
				continue
			}
			found++
			precip7d += obs.PrecipitationSum
			if offset <= 3 {
				precip3d += obs.PrecipitationSum
			}
			if obs.WindSpeedMax > windMax7d {
				windMax7d = obs.WindSpeedMax
			}
			break
		}
	}

	if found < 7 {
		note(DegradedShortWindow)
	}

	v.set(HistPrecipSum7d, precip7d)
	v.set(HistPrecipSum3d, precip3d)
	v.set(HistWindMax7d, windMax7d)
}

// setForecastFields copies the same-day forecast into the fcst_* fields.
func (b *Builder) setForecastFields(v *Vector, forecast *domain.WeatherObservation, note func(string)) {
	if forecast == nil {
		note(DegradedMissingForecast)
		v.set(FcstPrecipitationSum, 0)
		v.set(FcstPrecipitationHours, 0)
		v.set(FcstWindSpeedMax, 0)
		v.set(FcstWindGustsMax, 0)
		v.set(FcstPressureMin, domain.DefaultPressureMin)
		v.set(FcstTemperatureMax, domain.DefaultTemperatureMax)
		v.set(FcstHumidityMean, domain.DefaultHumidityMean)
		v.set(FcstCloudCoverMax, domain.DefaultCloudCoverMax)
		v.set(FcstDewPointMean, domain.DefaultDewPointMean)
		v.set(FcstCapeMax, 0)
		return
	}

	v.set(FcstPrecipitationSum, forecast.PrecipitationSum)
	v.set(FcstWindSpeedMax, forecast.WindSpeedMax)
	v.set(FcstWindGustsMax, forecast.WindGustsMax)
	v.set(FcstPressureMin, forecast.PressureMin)
	v.set(FcstTemperatureMax, forecast.TemperatureMax)
	v.set(FcstHumidityMean, forecast.HumidityMean)
	v.set(FcstCloudCoverMax, forecast.CloudCoverMax)

	// CAPE and precipitation hours are unavailable from some providers.
	if forecast.PrecipitationHours == nil || forecast.DewPointMean == nil || forecast.CapeMax == nil {
		note(DegradedMissingForecastField)
	}
	v.set(FcstPrecipitationHours, optional(forecast.PrecipitationHours, 0))
	v.set(FcstDewPointMean, optional(forecast.DewPointMean, domain.DefaultDewPointMean))
	v.set(FcstCapeMax, optional(forecast.CapeMax, 0))
}

// mondayZeroWeekday converts Go's Sunday=0 convention to the training data's
// Monday=0..Sunday=6.
func mondayZeroWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// monthsFrom returns the number of whole months from the school-year start
// month to m, wrapping across the calendar year (June start: June=0, May=11).
func monthsFrom(start, m time.Month) int {
	return ((int(m) - int(start)) % 12 + 12) % 12
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func boolFeature(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func optional(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
