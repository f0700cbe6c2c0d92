package domain

import (
	"context"
	"log/slog"
	"time"
)

// Calendar answers schedule questions for prediction dates. Implementations
// must be pure lookups: the pipeline materializes any remote data before the
// core runs, so no Calendar method performs I/O.
type Calendar interface {
	IsHoliday(date time.Time) bool
	IsSchoolDay(date time.Time) bool
}

// HolidayProvider supplies public holidays for a calendar year. Implemented
// by the holidays API adapter.
type HolidayProvider interface {
	Holidays(ctx context.Context, year int) ([]time.Time, error)
}

// StaticCalendar is a Calendar backed by a fixed holiday set. School days are
// weekdays that are not holidays (Monday=0..Friday=4 in the feature encoding).
type StaticCalendar struct {
	holidays map[string]struct{}
}

// NewStaticCalendar builds a calendar from explicit holiday dates.
func NewStaticCalendar(holidays []time.Time) *StaticCalendar {
	set := make(map[string]struct{}, len(holidays))
	for _, h := range holidays {
		set[h.Format(DateLayout)] = struct{}{}
	}
	return &StaticCalendar{holidays: set}
}

func (c *StaticCalendar) IsHoliday(date time.Time) bool {
	_, ok := c.holidays[date.Format(DateLayout)]
	return ok
}

func (c *StaticCalendar) IsSchoolDay(date time.Time) bool {
	wd := date.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return !c.IsHoliday(date)
}

// MaterializeCalendar fetches the holiday set covering the target date and its
// trailing feature window, returning a pure StaticCalendar. A nil provider or
// a fetch failure degrades to weekday-only logic (no holidays) with a warning;
// an unreachable holiday API must never abort a prediction cycle.
func MaterializeCalendar(ctx context.Context, provider HolidayProvider, date time.Time, logger *slog.Logger) Calendar {
	if provider == nil {
		return NewStaticCalendar(nil)
	}

	years := []int{date.Year()}
	if prev := date.AddDate(0, 0, -7); prev.Year() != date.Year() {
		years = append(years, prev.Year())
	}

	var all []time.Time
	for _, year := range years {
		holidays, err := provider.Holidays(ctx, year)
		if err != nil {
			logger.Warn("holiday lookup failed, assuming no holidays",
				"year", year,
				"error", err,
			)
			continue
		}
		all = append(all, holidays...)
	}
	return NewStaticCalendar(all)
}
