// Package timeutil resolves the partial date strings accepted by
// interval mode into concrete UTC bounds.
package timeutil

import (
	"fmt"
	"time"

	"telereader/internal/constants"
)

// precision identifies how much of the timestamp the caller supplied.
type precision int

const (
	precYear precision = iota
	precMonth
	precDay
	precHour
	precMinute
	precSecond
)

var layouts = []struct {
	layout string
	prec   precision
}{
	{"2006-01-02T15:04:05", precSecond},
	{"2006-01-02T15:04", precMinute},
	{"2006-01-02T15", precHour},
	{"2006-01-02", precDay},
	{"2006-01", precMonth},
	{"2006", precYear},
}

// ParsePartial parses a partial timestamp and fills the missing
// components. As a range start the missing parts default to the start
// of the period (Jan 1, day 1, 00:00:00); as a range end they default
// to the end of the period (Dec 31, last day of month, 23:59:59.999999).
func ParsePartial(s string, end bool) (time.Time, error) {
	var parsed time.Time
	var prec precision
	matched := false

	for _, l := range layouts {
		t, err := time.Parse(l.layout, s)
		if err != nil {
			continue
		}
		parsed = t
		prec = l.prec
		matched = true
		break
	}

	if !matched {
		return time.Time{}, fmt.Errorf("invalid date %q: use formats like 2026, 2026-01, 2026-01-05, 2026-01-05T10", s)
	}

	if !end {
		return time.Date(parsed.Year(), parsed.Month(), parsed.Day(),
			parsed.Hour(), parsed.Minute(), parsed.Second(), 0, time.UTC), nil
	}

	year := parsed.Year()
	month := parsed.Month()
	if prec == precYear {
		month = time.December
	}

	day := parsed.Day()
	if prec <= precMonth {
		day = lastDayOfMonth(year, month)
	}

	hour, minute, second := parsed.Hour(), parsed.Minute(), parsed.Second()
	nsec := 999999 * int(time.Microsecond)
	switch prec {
	case precYear, precMonth, precDay:
		hour, minute, second = 23, 59, 59
	case precHour:
		minute, second = 59, 59
	case precMinute:
		second = 59
		nsec = 999 * int(time.Millisecond)
	case precSecond:
		nsec = 0
	}

	return time.Date(year, month, day, hour, minute, second, nsec, time.UTC), nil
}

// ResolveWindow turns the optional from/to strings into a concrete
// window. Both empty: the default window ending at now. Only from:
// from until now. Only to: the default window before to.
func ResolveWindow(fromStr, toStr string, now time.Time) (time.Time, time.Time, error) {
	window := constants.DefaultIntervalWindowHr * time.Hour

	to := now.UTC()
	from := to.Add(-window)

	if toStr != "" {
		t, err := ParsePartial(toStr, true)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date: %w", err)
		}
		to = t
		from = to.Add(-window)
	}

	if fromStr != "" {
		f, err := ParsePartial(fromStr, false)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date: %w", err)
		}
		from = f
		if toStr == "" {
			to = now.UTC()
		}
	}

	return from, to, nil
}

func lastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
