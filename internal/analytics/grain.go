package analytics

import (
	"fmt"
	"strings"
	"time"
)

// Grain represents the period granularity used to regularize an observation series
type Grain string

const (
	GrainDaily   Grain = "Daily"
	GrainWeekly  Grain = "Weekly"
	GrainMonthly Grain = "Monthly"
	GrainYearly  Grain = "Yearly"
)

// Grains lists the supported grains in ascending period length
var Grains = []Grain{GrainDaily, GrainWeekly, GrainMonthly, GrainYearly}

// grainLimit holds the per-grain horizon limits and history requirements
type grainLimit struct {
	minHorizon     int
	maxHorizon     int
	defaultHorizon int
	minPeriods     int
	unit           string
}

var grainLimits = map[Grain]grainLimit{
	GrainDaily:   {minHorizon: 7, maxHorizon: 90, defaultHorizon: 30, minPeriods: 7, unit: "days"},
	GrainWeekly:  {minHorizon: 4, maxHorizon: 52, defaultHorizon: 12, minPeriods: 4, unit: "weeks"},
	GrainMonthly: {minHorizon: 3, maxHorizon: 24, defaultHorizon: 6, minPeriods: 4, unit: "months"},
	GrainYearly:  {minHorizon: 1, maxHorizon: 5, defaultHorizon: 2, minPeriods: 4, unit: "years"},
}

// ParseGrain parses a grain name case-insensitively. Short forms d/w/m/y are accepted.
func ParseGrain(s string) (Grain, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "daily", "day", "d", "1d":
		return GrainDaily, nil
	case "weekly", "week", "w", "1w":
		return GrainWeekly, nil
	case "monthly", "month", "m", "1mo":
		return GrainMonthly, nil
	case "yearly", "year", "y", "1y":
		return GrainYearly, nil
	default:
		return "", fmt.Errorf("unknown grain: %q (supported: Daily, Weekly, Monthly, Yearly)", s)
	}
}

// Valid reports whether g is one of the supported grains
func (g Grain) Valid() bool {
	_, ok := grainLimits[g]
	return ok
}

// HorizonBounds returns the inclusive horizon range accepted for this grain
func (g Grain) HorizonBounds() (int, int) {
	l := grainLimits[g]
	return l.minHorizon, l.maxHorizon
}

// DefaultHorizon returns the horizon used when the caller does not supply one
func (g Grain) DefaultHorizon() int {
	return grainLimits[g].defaultHorizon
}

// MinPeriods returns the minimum number of aggregated periods needed to forecast
func (g Grain) MinPeriods() int {
	return grainLimits[g].minPeriods
}

// Unit returns the plural unit label, e.g. "weeks"
func (g Grain) Unit() string {
	return grainLimits[g].unit
}

// Truncate returns the canonical start of the period containing t, evaluated in loc.
// Weeks start on Monday (ISO 8601).
func (g Grain) Truncate(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	y, m, d := t.Date()

	switch g {
	case GrainWeekly:
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
		return day.AddDate(0, 0, -offset)
	case GrainMonthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case GrainYearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}

// Advance moves t forward by n calendar units of the grain.
// Month and year steps keep the day-of-month, clamped to the target month's length.
func (g Grain) Advance(t time.Time, n int) time.Time {
	switch g {
	case GrainWeekly:
		return t.AddDate(0, 0, 7*n)
	case GrainMonthly:
		return addMonthsClamped(t, n)
	case GrainYearly:
		return addMonthsClamped(t, 12*n)
	default:
		return t.AddDate(0, 0, n)
	}
}

// Sequence returns the n period starts following last, each offset from last
// so that clamping never accumulates across steps.
func (g Grain) Sequence(last time.Time, n int) []time.Time {
	if n <= 0 {
		return nil
	}
	dates := make([]time.Time, n)
	for i := 0; i < n; i++ {
		dates[i] = g.Advance(last, i+1)
	}
	return dates
}

func addMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	total := int(m) - 1 + months
	year := y + total/12
	month := total % 12
	if month < 0 {
		month += 12
		year--
	}
	target := time.Month(month + 1)
	if last := daysIn(year, target, t.Location()); d > last {
		d = last
	}
	return time.Date(year, target, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}
