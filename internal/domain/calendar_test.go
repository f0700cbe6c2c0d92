package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHolidayProvider struct {
	holidays map[int][]time.Time
	err      error
	calls    []int
}

func (f *fakeHolidayProvider) Holidays(_ context.Context, year int) ([]time.Time, error) {
	f.calls = append(f.calls, year)
	if f.err != nil {
		return nil, f.err
	}
	return f.holidays[year], nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStaticCalendar(t *testing.T) {
	bonifacioDay := time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC) // a Monday
	cal := NewStaticCalendar([]time.Time{bonifacioDay})

	assert.True(t, cal.IsHoliday(bonifacioDay))
	assert.False(t, cal.IsSchoolDay(bonifacioDay))

	tuesday := bonifacioDay.AddDate(0, 0, 1)
	assert.False(t, cal.IsHoliday(tuesday))
	assert.True(t, cal.IsSchoolDay(tuesday))

	saturday := time.Date(2025, time.December, 6, 0, 0, 0, 0, time.UTC)
	assert.False(t, cal.IsSchoolDay(saturday))
}

func TestMaterializeCalendar(t *testing.T) {
	holiday := time.Date(2025, time.August, 25, 0, 0, 0, 0, time.UTC)
	provider := &fakeHolidayProvider{holidays: map[int][]time.Time{2025: {holiday}}}

	cal := MaterializeCalendar(context.Background(), provider, holiday, discardLogger())
	require.NotNil(t, cal)
	assert.True(t, cal.IsHoliday(holiday))
	assert.Equal(t, []int{2025}, provider.calls)
}

func TestMaterializeCalendarYearBoundary(t *testing.T) {
	// Early-January target: the trailing feature window reaches into the
	// previous year, so both years are fetched.
	provider := &fakeHolidayProvider{holidays: map[int][]time.Time{}}
	date := time.Date(2026, time.January, 3, 0, 0, 0, 0, time.UTC)

	MaterializeCalendar(context.Background(), provider, date, discardLogger())
	assert.Equal(t, []int{2026, 2025}, provider.calls)
}

func TestMaterializeCalendarDegradesOnFailure(t *testing.T) {
	provider := &fakeHolidayProvider{err: errors.New("api down")}
	date := time.Date(2025, time.August, 25, 0, 0, 0, 0, time.UTC)

	cal := MaterializeCalendar(context.Background(), provider, date, discardLogger())
	require.NotNil(t, cal)

	// Degrades to weekday-only logic instead of failing the cycle.
	assert.False(t, cal.IsHoliday(date))
	assert.True(t, cal.IsSchoolDay(date)) // a Monday
}

func TestMaterializeCalendarNilProvider(t *testing.T) {
	date := time.Date(2025, time.August, 25, 0, 0, 0, 0, time.UTC)
	cal := MaterializeCalendar(context.Background(), nil, date, discardLogger())
	require.NotNil(t, cal)
	assert.True(t, cal.IsSchoolDay(date))
}
