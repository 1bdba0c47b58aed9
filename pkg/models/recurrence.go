package models

import (
	"sort"
	"time"
)

type RecurrencePattern string

const (
	PatternDaily   RecurrencePattern = "daily"
	PatternWeekly  RecurrencePattern = "weekly"
	PatternMonthly RecurrencePattern = "monthly"
	PatternCustom  RecurrencePattern = "custom"
)

type RecurrenceDefinition struct {
	Pattern  RecurrencePattern `json:"pattern"`
	Interval int               `json:"interval"`
	Weekdays []int             `json:"weekdays,omitempty"`
	Anchor   time.Time         `json:"anchor_date"`
}

// Normalize returns a copy with legacy or malformed fields replaced by
// defaults: unknown pattern -> daily, interval < 1 -> 1, weekdays outside
// 0-6 dropped. Weekdays only survive on weekly definitions.
func (d RecurrenceDefinition) Normalize() RecurrenceDefinition {
	out := RecurrenceDefinition{
		Pattern:  d.Pattern,
		Interval: d.Interval,
		Anchor:   d.Anchor,
	}

	switch out.Pattern {
	case PatternDaily, PatternWeekly, PatternMonthly, PatternCustom:
	default:
		out.Pattern = PatternDaily
	}
	if out.Interval < 1 {
		out.Interval = 1
	}
	if !out.Anchor.IsZero() {
		out.Anchor = Day(out.Anchor)
	}

	if out.Pattern == PatternWeekly {
		seen := make(map[int]bool)
		for _, wd := range d.Weekdays {
			if wd < 0 || wd > 6 || seen[wd] {
				continue
			}
			seen[wd] = true
			out.Weekdays = append(out.Weekdays, wd)
		}
		sort.Ints(out.Weekdays)
	}

	return out
}

// Day truncates t to its calendar date at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

const DateLayout = "2006-01-02"

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}
