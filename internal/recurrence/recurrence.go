// Package recurrence resolves recurrence definitions into the calendar dates
// on which an occurrence is due. Everything here is pure: the only notion of
// "now" is the window the caller passes in.
package recurrence

import (
	"time"

	"github.com/nick-dorsch/tally/pkg/models"
)

// Window bounds a resolution. Both ends are calendar dates; whether each end
// is part of the window is explicit so callers never rely on a hidden
// convention.
type Window struct {
	From        time.Time
	To          time.Time
	IncludeFrom bool
	IncludeTo   bool
}

// Closed returns a window containing both of its ends.
func Closed(from, to time.Time) Window {
	return Window{From: from, To: to, IncludeFrom: true, IncludeTo: true}
}

// bounds converts the window into an inclusive [lo, hi] date range clipped
// to the anchor. ok is false when the range is empty.
func (w Window) bounds(anchor time.Time) (lo, hi time.Time, ok bool) {
	lo = models.Day(w.From)
	if !w.IncludeFrom {
		lo = lo.AddDate(0, 0, 1)
	}
	hi = models.Day(w.To)
	if !w.IncludeTo {
		hi = hi.AddDate(0, 0, -1)
	}
	if lo.Before(anchor) {
		lo = anchor
	}
	return lo, hi, !hi.Before(lo)
}

// Dates returns the ordered, de-duplicated applicable dates of def inside w.
// Dates before the anchor are never applicable; a definition without an
// anchor has no occurrences.
func Dates(def models.RecurrenceDefinition, w Window) []time.Time {
	def = def.Normalize()
	if def.Anchor.IsZero() {
		return nil
	}

	lo, hi, ok := w.bounds(def.Anchor)
	if !ok {
		return nil
	}

	switch def.Pattern {
	case models.PatternWeekly:
		if len(def.Weekdays) == 0 {
			return stepDays(def.Anchor, 7*def.Interval, lo, hi)
		}
		return weeklyOn(def, lo, hi)
	case models.PatternMonthly:
		return monthly(def, lo, hi)
	default:
		// daily and custom both step in day units
		return stepDays(def.Anchor, def.Interval, lo, hi)
	}
}

func stepDays(anchor time.Time, step int, lo, hi time.Time) []time.Time {
	k := 0
	if offset := models.DaysBetween(anchor, lo); offset > 0 {
		k = (offset + step - 1) / step
	}

	var out []time.Time
	for d := anchor.AddDate(0, 0, k*step); !d.After(hi); d = d.AddDate(0, 0, step) {
		out = append(out, d)
	}
	return out
}

// weeklyOn walks the range day by day. Weeks start on Sunday (weekday 0).
// Week 0 is the week holding the first selected weekday on or after the
// anchor; only every interval-th week from there is active.
func weeklyOn(def models.RecurrenceDefinition, lo, hi time.Time) []time.Time {
	days := make(map[int]bool, len(def.Weekdays))
	for _, wd := range def.Weekdays {
		days[wd] = true
	}

	first := def.Anchor
	for !days[int(first.Weekday())] {
		first = first.AddDate(0, 0, 1)
	}
	firstWeek := first.AddDate(0, 0, -int(first.Weekday()))

	var out []time.Time
	for d := lo; !d.After(hi); d = d.AddDate(0, 0, 1) {
		if !days[int(d.Weekday())] {
			continue
		}
		week := models.DaysBetween(firstWeek, d) / 7
		if week%def.Interval == 0 {
			out = append(out, d)
		}
	}
	return out
}

func monthly(def models.RecurrenceDefinition, lo, hi time.Time) []time.Time {
	k := 0
	months := (lo.Year()-def.Anchor.Year())*12 + int(lo.Month()) - int(def.Anchor.Month())
	if months > def.Interval {
		k = months/def.Interval - 1
	}

	var out []time.Time
	for ; ; k++ {
		d := addMonthsClamped(def.Anchor, k*def.Interval)
		if d.After(hi) {
			break
		}
		if !d.Before(lo) {
			out = append(out, d)
		}
	}
	return out
}

// addMonthsClamped moves anchor forward n months keeping its day of month,
// clamped to the last day of shorter months. The clamp never carries over:
// Jan 31 -> Feb 29 -> Mar 31.
func addMonthsClamped(anchor time.Time, n int) time.Time {
	first := time.Date(anchor.Year(), anchor.Month()+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	day := anchor.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// IsApplicable reports whether date is an occurrence of def.
func IsApplicable(def models.RecurrenceDefinition, date time.Time) bool {
	return len(Dates(def, Closed(date, date))) == 1
}

// Previous returns the latest applicable date on or before date.
func Previous(def models.RecurrenceDefinition, date time.Time) (time.Time, bool) {
	def = def.Normalize()
	lookback := 32*def.Interval + 7
	dates := Dates(def, Closed(models.Day(date).AddDate(0, 0, -lookback), date))
	if len(dates) == 0 {
		return time.Time{}, false
	}
	return dates[len(dates)-1], true
}

// ExpectedGapDays is the nominal number of days between occurrences, used to
// decide when a series has gone quiet for too long.
func ExpectedGapDays(def models.RecurrenceDefinition) int {
	def = def.Normalize()
	switch def.Pattern {
	case models.PatternWeekly:
		return 7 * def.Interval
	case models.PatternMonthly:
		return 30 * def.Interval
	default:
		return def.Interval
	}
}
