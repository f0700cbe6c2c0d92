package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/suspension-forecast/internal/domain"
)

func testInterpreter(t *testing.T) *Interpreter {
	t.Helper()
	in, err := NewInterpreter(DefaultDecisionThreshold)
	require.NoError(t, err)
	return in
}

func testForecast(precip float64) *domain.WeatherObservation {
	return &domain.WeatherObservation{
		Date:             time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC),
		Unit:             "Marikina",
		Kind:             domain.KindForecast,
		PrecipitationSum: precip,
	}
}

func TestNewInterpreterValidation(t *testing.T) {
	for _, threshold := range []float64{0, 1, -0.1, 1.5} {
		_, err := NewInterpreter(threshold)
		require.Error(t, err, "threshold %v", threshold)
	}
}

func TestInterpretClearDay(t *testing.T) {
	in := testInterpreter(t)
	date := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)

	r := in.Interpret(date, "Marikina", 0.376, testForecast(15), domain.AdvisoryStatus{}, nil)

	assert.Equal(t, "Marikina", r.Unit)
	assert.Equal(t, 0.376, r.Probability)
	assert.False(t, r.Suspended)
	assert.Equal(t, domain.TierNormal, r.Tier)
	assert.Equal(t, "Continue routine operations", r.Recommendation)
	assert.Equal(t, "daily", r.MonitoringInterval)
	assert.Equal(t, normalActions, r.Actions)
	assert.Equal(t, "Heavy rain likely", r.WeatherContext.Description)
	assert.Equal(t, "15.0mm precipitation", r.WeatherContext.Precipitation)
	assert.Empty(t, r.WeatherContext.Advisory)
}

func TestInterpretHeavyRain(t *testing.T) {
	in := testInterpreter(t)
	date := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)
	advisory := domain.AdvisoryStatus{
		HasRainfallWarning: true,
		RainfallWarning:    domain.WarningOrange,
	}

	r := in.Interpret(date, "Marikina", 0.501, testForecast(35), advisory, nil)

	assert.Equal(t, domain.TierAlert, r.Tier)
	assert.True(t, r.Suspended) // 0.501 crosses the default 0.5 decision cut
	assert.Equal(t, "every 2 hours", r.MonitoringInterval)
	assert.Contains(t, r.Actions, "Coordinate with disaster office")
	assert.NotContains(t, r.Actions, typhoonWatchAction)
	assert.Equal(t, "Very heavy rain expected", r.WeatherContext.Description)
	assert.Equal(t, "Orange rainfall warning", r.WeatherContext.Advisory)
}

func TestInterpretAlertUnderWindSignal(t *testing.T) {
	in := testInterpreter(t)
	date := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)
	advisory := domain.AdvisoryStatus{
		HasActiveTyphoon: true,
		TyphoonName:      "Opong",
		WindSignal:       1,
		RawWindSignal:    1,
		AreaAffected:     true,
	}

	r := in.Interpret(date, "Marikina", 0.45, testForecast(20), advisory, nil)

	assert.Equal(t, domain.TierAlert, r.Tier)
	assert.Contains(t, r.Actions, typhoonWatchAction)
	assert.Equal(t, "Wind Signal No. 1 (Opong)", r.WeatherContext.Advisory)
}

func TestInterpretTyphoonEscalation(t *testing.T) {
	in := testInterpreter(t)
	date := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)
	advisory := domain.AdvisoryStatus{
		HasActiveTyphoon:   true,
		TyphoonName:        "Opong",
		WindSignal:         2,
		RawWindSignal:      2,
		AreaAffected:       true,
		HasRainfallWarning: true,
		RainfallWarning:    domain.WarningRed,
	}

	r := in.Interpret(date, "Marikina", 0.572, testForecast(65), advisory, nil)

	assert.Equal(t, domain.TierSuspension, r.Tier)
	assert.True(t, r.Suspended)
	assert.Equal(t, "Recommend suspending face-to-face classes", r.Recommendation)
	assert.Equal(t, "hourly", r.MonitoringInterval)
	assert.Contains(t, r.Actions, "Activate disaster response protocols")
	assert.Contains(t, r.Actions, "Secure school facilities")
	assert.Equal(t, "Intense rainfall expected", r.WeatherContext.Description)
	// The rainfall warning takes precedence over the wind signal.
	assert.Equal(t, "Red rainfall warning", r.WeatherContext.Advisory)
}

func TestInterpretSuspensionWithoutEscalation(t *testing.T) {
	in := testInterpreter(t)
	date := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)

	// High probability but wind signal below the escalation level: the
	// disaster-response actions stay off the checklist.
	advisory := domain.AdvisoryStatus{
		HasActiveTyphoon: true,
		TyphoonName:      "Opong",
		WindSignal:       1,
		RawWindSignal:    1,
		AreaAffected:     true,
	}
	r := in.Interpret(date, "Marikina", 0.60, testForecast(50), advisory, nil)

	assert.Equal(t, domain.TierSuspension, r.Tier)
	assert.NotContains(t, r.Actions, "Activate disaster response protocols")
	assert.NotContains(t, r.Actions, "Secure school facilities")
}

func TestInterpretCustomDecisionThreshold(t *testing.T) {
	in, err := NewInterpreter(0.6)
	require.NoError(t, err)
	date := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)

	r := in.Interpret(date, "Marikina", 0.572, testForecast(65), domain.AdvisoryStatus{}, nil)

	// Tier derives from the fixed tier thresholds; the binary decision
	// follows the configured cut independently.
	assert.Equal(t, domain.TierSuspension, r.Tier)
	assert.False(t, r.Suspended)
}

func TestInterpretMissingForecast(t *testing.T) {
	in := testInterpreter(t)
	date := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)

	r := in.Interpret(date, "Marikina", 0.3, nil, domain.AdvisoryStatus{}, []string{"missing_forecast"})

	assert.Empty(t, r.WeatherContext.Description)
	assert.Empty(t, r.WeatherContext.Precipitation)
	assert.Equal(t, []string{"missing_forecast"}, r.Degradations)
}

func TestPrecipitationPhraseBuckets(t *testing.T) {
	tests := []struct {
		mm   float64
		want string
	}{
		{0, "Light rain possible"},
		{7.4, "Light rain possible"},
		{7.5, "Moderate rain expected"},
		{14.9, "Moderate rain expected"},
		{15, "Heavy rain likely"},
		{29.9, "Heavy rain likely"},
		{30, "Very heavy rain expected"},
		{59.9, "Very heavy rain expected"},
		{60, "Intense rainfall expected"},
		{200, "Intense rainfall expected"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, precipitationPhrase(tc.mm), "%vmm", tc.mm)
	}
}

func TestFormatAdvisoryPrecedence(t *testing.T) {
	signal2 := domain.AdvisoryStatus{
		HasActiveTyphoon: true,
		TyphoonName:      "Opong",
		WindSignal:       2,
		RawWindSignal:    2,
		AreaAffected:     true,
	}
	both := signal2
	both.HasRainfallWarning = true
	both.RainfallWarning = domain.WarningRed

	cases := []struct {
		name     string
		advisory domain.AdvisoryStatus
		want     string
	}{
		{"none", domain.AdvisoryStatus{}, ""},
		{"signal only", signal2, "Wind Signal No. 2 (Opong)"},
		{"warning only", domain.AdvisoryStatus{
			HasRainfallWarning: true,
			RainfallWarning:    domain.WarningOrange,
		}, "Orange rainfall warning"},
		{"warning wins over signal", both, "Red rainfall warning"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := FormatWeatherContext(testForecast(20), tc.advisory)
			assert.Equal(t, tc.want, got.Advisory)
		})
	}
}
