package recurrence

import (
	"testing"
	"time"

	"github.com/nick-dorsch/tally/pkg/models"
)

func day(s string) time.Time {
	d, err := models.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func formatDates(dates []time.Time) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(models.DateLayout)
	}
	return out
}

func assertDates(t *testing.T, got []time.Time, want ...string) {
	t.Helper()
	g := formatDates(got)
	if len(g) != len(want) {
		t.Fatalf("Expected %d dates %v, got %d %v", len(want), want, len(g), g)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Errorf("Date %d: expected %s, got %s", i, want[i], g[i])
		}
	}
}

func TestDailyAnchorBoundary(t *testing.T) {
	def := models.RecurrenceDefinition{Pattern: models.PatternDaily, Interval: 1, Anchor: day("2024-01-01")}

	t.Run("anchor included", func(t *testing.T) {
		got := Dates(def, Window{From: day("2024-01-01"), To: day("2024-01-05"), IncludeFrom: true})
		assertDates(t, got, "2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04")
	})

	t.Run("anchor excluded", func(t *testing.T) {
		got := Dates(def, Window{From: day("2024-01-01"), To: day("2024-01-05")})
		assertDates(t, got, "2024-01-02", "2024-01-03", "2024-01-04")
	})

	t.Run("to included", func(t *testing.T) {
		got := Dates(def, Closed(day("2024-01-04"), day("2024-01-05")))
		assertDates(t, got, "2024-01-04", "2024-01-05")
	})
}

func TestDailyInterval(t *testing.T) {
	def := models.RecurrenceDefinition{Pattern: models.PatternDaily, Interval: 3, Anchor: day("2024-01-01")}
	got := Dates(def, Closed(day("2024-01-02"), day("2024-01-12")))
	assertDates(t, got, "2024-01-04", "2024-01-07", "2024-01-10")
}

func TestNothingBeforeAnchor(t *testing.T) {
	def := models.RecurrenceDefinition{Pattern: models.PatternDaily, Interval: 1, Anchor: day("2024-03-10")}
	got := Dates(def, Closed(day("2024-03-01"), day("2024-03-11")))
	assertDates(t, got, "2024-03-10", "2024-03-11")

	if got := Dates(def, Closed(day("2024-03-01"), day("2024-03-09"))); len(got) != 0 {
		t.Errorf("Expected no dates before anchor, got %v", formatDates(got))
	}
}

func TestWeeklyAnchorWeekday(t *testing.T) {
	// 2024-01-01 is a Monday
	def := models.RecurrenceDefinition{Pattern: models.PatternWeekly, Interval: 2, Anchor: day("2024-01-01")}
	got := Dates(def, Closed(day("2024-01-01"), day("2024-02-05")))
	assertDates(t, got, "2024-01-01", "2024-01-15", "2024-01-29")
}

func TestWeeklyWeekdays(t *testing.T) {
	// Mondays and Wednesdays
	def := models.RecurrenceDefinition{
		Pattern:  models.PatternWeekly,
		Interval: 1,
		Weekdays: []int{3, 1},
		Anchor:   day("2024-01-01"),
	}
	got := Dates(def, Closed(day("2024-01-01"), day("2024-01-14")))
	assertDates(t, got, "2024-01-01", "2024-01-03", "2024-01-08", "2024-01-10")
}

func TestWeeklyWeekdaysEveryOtherWeek(t *testing.T) {
	// Anchor on Wednesday 2024-01-03; week 0 runs Sun 2023-12-31 .. Sat 2024-01-06.
	def := models.RecurrenceDefinition{
		Pattern:  models.PatternWeekly,
		Interval: 2,
		Weekdays: []int{1, 5},
		Anchor:   day("2024-01-03"),
	}
	got := Dates(def, Closed(day("2024-01-01"), day("2024-01-21")))
	// Monday 01-01 precedes the anchor; Friday 01-05 is week 0; week 1 is skipped.
	assertDates(t, got, "2024-01-05", "2024-01-15", "2024-01-19")
}

func TestWeeklyWeekdaysFirstMatchInLaterWeek(t *testing.T) {
	// Saturday anchor, Mondays every other week: the first Monday after the
	// anchor starts the cycle.
	def := models.RecurrenceDefinition{
		Pattern:  models.PatternWeekly,
		Interval: 2,
		Weekdays: []int{1},
		Anchor:   day("2024-01-06"),
	}
	got := Dates(def, Closed(day("2024-01-06"), day("2024-01-31")))
	assertDates(t, got, "2024-01-08", "2024-01-22")

	prev, ok := Previous(def, day("2024-01-10"))
	if !ok || !prev.Equal(day("2024-01-08")) {
		t.Errorf("Previous = %v, %v; want 2024-01-08", prev, ok)
	}
}

func TestWeeklyInvalidWeekdaysIgnored(t *testing.T) {
	def := models.RecurrenceDefinition{
		Pattern:  models.PatternWeekly,
		Interval: 1,
		Weekdays: []int{-1, 9},
		Anchor:   day("2024-01-01"),
	}
	got := Dates(def, Closed(day("2024-01-01"), day("2024-01-15")))
	assertDates(t, got, "2024-01-01", "2024-01-08", "2024-01-15")
}

func TestMonthlyClampsToMonthEnd(t *testing.T) {
	def := models.RecurrenceDefinition{Pattern: models.PatternMonthly, Interval: 1, Anchor: day("2024-01-31")}
	got := Dates(def, Closed(day("2024-01-01"), day("2024-05-31")))
	assertDates(t, got, "2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30", "2024-05-31")
}

func TestMonthlyLateWindow(t *testing.T) {
	def := models.RecurrenceDefinition{Pattern: models.PatternMonthly, Interval: 2, Anchor: day("2023-01-15")}
	got := Dates(def, Closed(day("2024-01-01"), day("2024-06-30")))
	assertDates(t, got, "2024-01-15", "2024-03-15", "2024-05-15")
}

func TestCustomFloorsInterval(t *testing.T) {
	def := models.RecurrenceDefinition{Pattern: models.PatternCustom, Interval: 0, Anchor: day("2024-01-01")}
	got := Dates(def, Closed(day("2024-01-01"), day("2024-01-03")))
	assertDates(t, got, "2024-01-01", "2024-01-02", "2024-01-03")
}

func TestLegacyPatternDefaultsToDaily(t *testing.T) {
	def := models.RecurrenceDefinition{Interval: -4, Anchor: day("2024-01-01")}
	got := Dates(def, Closed(day("2024-01-01"), day("2024-01-02")))
	assertDates(t, got, "2024-01-01", "2024-01-02")
}

func TestNoAnchorNoDates(t *testing.T) {
	def := models.RecurrenceDefinition{Pattern: models.PatternDaily, Interval: 1}
	if got := Dates(def, Closed(day("2024-01-01"), day("2024-01-10"))); got != nil {
		t.Errorf("Expected nil, got %v", formatDates(got))
	}
}

func TestOverlappingWindowsAreConsistent(t *testing.T) {
	def := models.RecurrenceDefinition{Pattern: models.PatternWeekly, Interval: 1, Weekdays: []int{2, 4}, Anchor: day("2024-01-01")}

	full := formatDates(Dates(def, Closed(day("2024-01-01"), day("2024-02-29"))))
	a := formatDates(Dates(def, Closed(day("2024-01-01"), day("2024-01-31"))))
	b := formatDates(Dates(def, Window{From: day("2024-01-31"), To: day("2024-02-29"), IncludeTo: true}))

	joined := append(a, b...)
	if len(joined) != len(full) {
		t.Fatalf("Expected %d dates from split windows, got %d", len(full), len(joined))
	}
	for i := range full {
		if joined[i] != full[i] {
			t.Errorf("Date %d: expected %s, got %s", i, full[i], joined[i])
		}
	}
}

func TestIsApplicableAndPrevious(t *testing.T) {
	def := models.RecurrenceDefinition{Pattern: models.PatternWeekly, Interval: 1, Weekdays: []int{1}, Anchor: day("2024-01-01")}

	if !IsApplicable(def, day("2024-01-08")) {
		t.Error("Expected Monday to be applicable")
	}
	if IsApplicable(def, day("2024-01-09")) {
		t.Error("Expected Tuesday not to be applicable")
	}

	prev, ok := Previous(def, day("2024-01-11"))
	if !ok {
		t.Fatal("Expected a previous occurrence")
	}
	if prev.Format(models.DateLayout) != "2024-01-08" {
		t.Errorf("Expected 2024-01-08, got %s", prev.Format(models.DateLayout))
	}

	if _, ok := Previous(def, day("2023-12-31")); ok {
		t.Error("Expected no occurrence before the anchor")
	}
}

func TestExpectedGapDays(t *testing.T) {
	tests := []struct {
		def  models.RecurrenceDefinition
		want int
	}{
		{models.RecurrenceDefinition{Pattern: models.PatternDaily, Interval: 2}, 2},
		{models.RecurrenceDefinition{Pattern: models.PatternWeekly, Interval: 2}, 14},
		{models.RecurrenceDefinition{Pattern: models.PatternMonthly}, 30},
		{models.RecurrenceDefinition{Pattern: models.PatternCustom, Interval: 5}, 5},
	}
	for _, tt := range tests {
		if got := ExpectedGapDays(tt.def); got != tt.want {
			t.Errorf("%s/%d: expected %d, got %d", tt.def.Pattern, tt.def.Interval, tt.want, got)
		}
	}
}
