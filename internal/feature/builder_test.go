package feature

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/suspension-forecast/internal/domain"
)

func testUnits(t *testing.T) *domain.UnitTable {
	t.Helper()
	risk := 0.72
	units, err := domain.NewUnitTable([]domain.GeographicUnit{
		{Name: "Makati", Code: 0, FloodRisk: &risk},
		{Name: "Marikina", Code: 1},
	})
	require.NoError(t, err)
	return units
}

func testBuilder(t *testing.T) *Builder {
	t.Helper()
	b, err := NewBuilder(testUnits(t), []time.Month{
		time.June, time.July, time.August, time.September, time.October, time.November,
	}, time.June)
	require.NoError(t, err)
	return b
}

func histObs(unit string, date time.Time, precip, wind float64) domain.WeatherObservation {
	return domain.WeatherObservation{
		Date:             date,
		Unit:             unit,
		Kind:             domain.KindHistorical,
		PrecipitationSum: precip,
		WindSpeedMax:     wind,
		WindGustsMax:     wind * 1.4,
		TemperatureMax:   31,
		TemperatureMin:   25,
		HumidityMean:     78,
		CloudCoverMax:    60,
		PressureMin:      1008,
	}
}

func fcstObs(unit string, date time.Time, precip, wind float64) *domain.WeatherObservation {
	hours := 6.0
	dew := 25.5
	cape := 800.0
	return &domain.WeatherObservation{
		Date:               date,
		Unit:               unit,
		Kind:               domain.KindForecast,
		PrecipitationSum:   precip,
		WindSpeedMax:       wind,
		WindGustsMax:       wind * 1.5,
		TemperatureMax:     29,
		TemperatureMin:     24,
		HumidityMean:       85,
		CloudCoverMax:      90,
		PressureMin:        1004,
		PrecipitationHours: &hours,
		DewPointMean:       &dew,
		CapeMax:            &cape,
	}
}

func TestNewBuilderValidation(t *testing.T) {
	units := testUnits(t)

	_, err := NewBuilder(nil, []time.Month{time.June}, time.June)
	require.Error(t, err)

	_, err = NewBuilder(units, nil, time.June)
	require.Error(t, err)

	_, err = NewBuilder(units, []time.Month{time.Month(13)}, time.June)
	require.Error(t, err)

	_, err = NewBuilder(units, []time.Month{time.June}, time.Month(0))
	require.Error(t, err)
}

func TestBuildTemporalFields(t *testing.T) {
	b := testBuilder(t)

	// 2025-08-18 is a Monday in the rainy season, two months into the
	// school year.
	date := time.Date(2025, time.August, 18, 0, 0, 0, 0, time.UTC)
	v, degradations, err := b.Build(date, "Makati", nil, fcstObs("Makati", date, 10, 20), CalendarInfo{IsSchoolDay: true})
	require.NoError(t, err)

	assert.Equal(t, 2025.0, v.At(Year))
	assert.Equal(t, 8.0, v.At(Month))
	assert.Equal(t, 18.0, v.At(Day))
	assert.Equal(t, 0.0, v.At(DayOfWeek))
	assert.Equal(t, 1.0, v.At(IsRainySeason))
	assert.Equal(t, 2.0, v.At(MonthFromSYStart))
	assert.Equal(t, 0.0, v.At(IsHoliday))
	assert.Equal(t, 1.0, v.At(IsSchoolDay))
	assert.Equal(t, 0.0, v.At(UnitCode))
	assert.Equal(t, 0.72, v.At(MeanFloodRiskScore))

	// No history at all: forecast-as-proxy plus a short rolling window.
	assert.Contains(t, degradations, DegradedMissingT1)
	assert.Contains(t, degradations, DegradedShortWindow)
}

func TestBuildSchoolYearWrap(t *testing.T) {
	b := testBuilder(t)

	// May is the last month of a June-start school year.
	date := time.Date(2025, time.May, 4, 0, 0, 0, 0, time.UTC) // a Sunday
	v, _, err := b.Build(date, "Makati", nil, fcstObs("Makati", date, 0, 5), CalendarInfo{})
	require.NoError(t, err)

	assert.Equal(t, 11.0, v.At(MonthFromSYStart))
	assert.Equal(t, 6.0, v.At(DayOfWeek))
	assert.Equal(t, 0.0, v.At(IsRainySeason))
}

func TestBuildT1FromHistory(t *testing.T) {
	b := testBuilder(t)
	date := time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC)

	history := make([]domain.WeatherObservation, 0, 7)
	for offset := 1; offset <= 7; offset++ {
		day := date.AddDate(0, 0, -offset)
		history = append(history, histObs("Makati", day, float64(offset)*2, 20+float64(offset)))
	}

	v, degradations, err := b.Build(date, "Makati", history, fcstObs("Makati", date, 12, 30), CalendarInfo{IsSchoolDay: true})
	require.NoError(t, err)
	assert.Empty(t, degradations)

	// t-1 is the offset=1 record.
	assert.Equal(t, 2.0, v.At(HistPrecipitationSumT1))
	assert.Equal(t, 21.0, v.At(HistWindSpeedMaxT1))
	assert.InDelta(t, 21.0*1.4, v.At(HistWindGustsMaxT1), 1e-9)
	assert.Equal(t, 1008.0, v.At(HistPressureMinT1))

	// Optional t-1 fields absent from the record take defaults.
	assert.Equal(t, domain.DefaultDewPointMean, v.At(HistDewPointMeanT1))
	assert.Equal(t, domain.DefaultApparentTempMax, v.At(HistApparentTempMaxT1))
	assert.Equal(t, 0.0, v.At(HistWeatherCodeT1))

	// Rolling sums: precip 2+4+6=12 over 3d, 2+..+14=56 over 7d, wind max 27.
	assert.InDelta(t, 12.0, v.At(HistPrecipSum3d), 1e-9)
	assert.InDelta(t, 56.0, v.At(HistPrecipSum7d), 1e-9)
	assert.Equal(t, 27.0, v.At(HistWindMax7d))
}

func TestBuildForecastAsProxy(t *testing.T) {
	b := testBuilder(t)
	date := time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC)
	fc := fcstObs("Makati", date, 40, 55)

	v, degradations, err := b.Build(date, "Makati", nil, fc, CalendarInfo{IsSchoolDay: true})
	require.NoError(t, err)

	// With no t-1 record the lag fields mirror the forecast rather than
	// zero-filling, which would read as calm weather.
	assert.Equal(t, 40.0, v.At(HistPrecipitationSumT1))
	assert.Equal(t, 55.0, v.At(HistWindSpeedMaxT1))
	assert.Equal(t, 1004.0, v.At(HistPressureMinT1))
	assert.Contains(t, degradations, DegradedMissingT1)
}

func TestBuildNoDataAtAll(t *testing.T) {
	b := testBuilder(t)
	date := time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC)

	v, degradations, err := b.Build(date, "Makati", nil, nil, CalendarInfo{IsSchoolDay: true})
	require.NoError(t, err)

	assert.Equal(t, 0.0, v.At(HistPrecipitationSumT1))
	assert.Equal(t, domain.DefaultPressureMin, v.At(HistPressureMinT1))
	assert.Equal(t, 0.0, v.At(FcstPrecipitationSum))
	assert.Equal(t, domain.DefaultPressureMin, v.At(FcstPressureMin))
	assert.Equal(t, domain.DefaultHumidityMean, v.At(FcstHumidityMean))

	assert.Contains(t, degradations, DegradedMissingT1)
	assert.Contains(t, degradations, DegradedMissingForecast)
	assert.Contains(t, degradations, DegradedShortWindow)
}

func TestBuildMissingForecastFields(t *testing.T) {
	b := testBuilder(t)
	date := time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC)
	fc := fcstObs("Makati", date, 10, 20)
	fc.CapeMax = nil
	fc.PrecipitationHours = nil

	v, degradations, err := b.Build(date, "Makati", nil, fc, CalendarInfo{IsSchoolDay: true})
	require.NoError(t, err)

	assert.Equal(t, 0.0, v.At(FcstCapeMax))
	assert.Equal(t, 0.0, v.At(FcstPrecipitationHours))
	assert.Contains(t, degradations, DegradedMissingForecastField)
}

func TestBuildMissingFloodRisk(t *testing.T) {
	b := testBuilder(t)
	date := time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC)

	v, degradations, err := b.Build(date, "Marikina", nil, fcstObs("Marikina", date, 10, 20), CalendarInfo{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, v.At(UnitCode))
	assert.Equal(t, neutralFloodRisk, v.At(MeanFloodRiskScore))
	assert.Contains(t, degradations, DegradedMissingFloodRisk)
}

func TestBuildUnknownUnit(t *testing.T) {
	b := testBuilder(t)
	date := time.Date(2025, time.September, 10, 0, 0, 0, 0, time.UTC)

	_, _, err := b.Build(date, "Atlantis", nil, nil, CalendarInfo{})
	require.Error(t, err)

	var cfgErr *domain.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestBuildDeterministicShape(t *testing.T) {
	b := testBuilder(t)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		date := time.Date(2025, time.Month(1+rng.Intn(12)), 1+rng.Intn(28), 0, 0, 0, 0, time.UTC)
		precip := rng.Float64() * 80
		wind := rng.Float64() * 100

		var history []domain.WeatherObservation
		for back := 1; back <= rng.Intn(8); back++ {
			history = append(history, histObs("Makati", date.AddDate(0, 0, -back), precip/2, wind/2))
		}
		fc := fcstObs("Makati", date, precip, wind)
		cal := CalendarInfo{IsHoliday: rng.Intn(2) == 0, IsSchoolDay: rng.Intn(2) == 0}

		first, firstNotes, err := b.Build(date, "Makati", history, fc, cal)
		require.NoError(t, err)
		second, secondNotes, err := b.Build(date, "Makati", history, fc, cal)
		require.NoError(t, err)

		assert.Equal(t, first.Values(), second.Values(), "repeated build must be identical")
		assert.Equal(t, firstNotes, secondNotes)

		data, err := json.Marshal(first)
		require.NoError(t, err)
		var fields map[string]float64
		require.NoError(t, json.Unmarshal(data, &fields))
		require.Len(t, fields, Count)
		for _, name := range Names {
			assert.Contains(t, fields, name)
		}
	}
}
