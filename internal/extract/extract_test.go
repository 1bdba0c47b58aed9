package extract

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestExtractReadingAndPractice(t *testing.T) {
	res := Extract("Read 20 pages and practice piano for 30 minutes")

	if len(res.Metrics) != 2 {
		t.Fatalf("Expected 2 metrics, got %d: %+v", len(res.Metrics), res.Metrics)
	}

	pages := res.Metrics[0]
	if pages.Type != "pages" || pages.Value != 20 || pages.Unit != "pages" {
		t.Errorf("Unexpected first metric: %+v", pages)
	}
	minutes := res.Metrics[1]
	if minutes.Type != "minutes" || minutes.Value != 30 || minutes.Unit != "minutes" {
		t.Errorf("Unexpected second metric: %+v", minutes)
	}

	seen := make(map[string]bool)
	for _, m := range res.Metrics {
		key := m.Type + "|" + m.Unit
		if seen[key] {
			t.Errorf("Duplicate metric %s", key)
		}
		seen[key] = true
	}

	// reading is declared before music, so it wins even though "piano" also matches
	if res.ActivityCategory != "reading" {
		t.Errorf("Expected category reading, got %q", res.ActivityCategory)
	}

	if pages.Confidence != 0.9 {
		t.Errorf("Expected pages confidence 0.9, got %v", pages.Confidence)
	}
	if minutes.Confidence != 0.7 {
		t.Errorf("Expected minutes confidence 0.7, got %v", minutes.Confidence)
	}
	if res.Confidence != 0.9 {
		t.Errorf("Expected overall confidence 0.9, got %v", res.Confidence)
	}
}

func TestExtractHoursUseMultiplier(t *testing.T) {
	res := Extract("2 hours deep work")
	if len(res.Metrics) != 1 {
		t.Fatalf("Expected 1 metric, got %+v", res.Metrics)
	}
	if res.Metrics[0].Type != "minutes" || res.Metrics[0].Value != 120 {
		t.Errorf("Expected 120 minutes, got %+v", res.Metrics[0])
	}
}

func TestExtractDecimalDurations(t *testing.T) {
	tests := []struct {
		text    string
		want    float64
		matched string
	}{
		{"Ran for 1.5 hours", 90, "1.5 hours"},
		{"Deep work 1.5h", 90, "1.5h"},
		{"Stretch 2.5 minutes", 2.5, "2.5 minutes"},
		{"Practice 45 min", 45, "45 min"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			res := Extract(tt.text)
			if len(res.Metrics) != 1 {
				t.Fatalf("Expected 1 metric, got %+v", res.Metrics)
			}
			m := res.Metrics[0]
			if m.Type != "minutes" || m.Value != tt.want || m.OriginalText != tt.matched {
				t.Errorf("Expected %v minutes from %q, got %+v", tt.want, tt.matched, m)
			}
		})
	}
}

func TestExtractIgnoresNumberTails(t *testing.T) {
	res := Extract("Release v2.5 pages")
	if len(res.Metrics) != 0 {
		t.Errorf("Expected no metrics from a number glued to a word, got %+v", res.Metrics)
	}
}

func TestExtractSpecificBeatsGeneric(t *testing.T) {
	res := Extract("Solve 5 puzzles")
	for _, m := range res.Metrics {
		if m.Type == "items" || m.Type == "times" {
			t.Errorf("Generic pattern should not re-read a claimed number: %+v", m)
		}
	}
	if len(res.Metrics) != 1 || res.Metrics[0].Type != "puzzles" || res.Metrics[0].Value != 5 {
		t.Errorf("Expected 5 puzzles, got %+v", res.Metrics)
	}
	if res.ActivityCategory != "chess" {
		t.Errorf("Expected chess category, got %q", res.ActivityCategory)
	}
}

func TestExtractDeduplicatesByTypeAndUnit(t *testing.T) {
	res := Extract("1 hour of piano then 15 minutes of scales")
	count := 0
	for _, m := range res.Metrics {
		if m.Type == "minutes" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Expected a single minutes metric, got %d: %+v", count, res.Metrics)
	}
}

func TestExtractDistanceDecimals(t *testing.T) {
	res := Extract("Morning run 5.5 km")
	if len(res.Metrics) != 1 {
		t.Fatalf("Expected 1 metric, got %+v", res.Metrics)
	}
	m := res.Metrics[0]
	if m.Type != "distance" || m.Value != 5.5 || m.Unit != "km" {
		t.Errorf("Unexpected metric %+v", m)
	}
	if res.ActivityCategory != "exercise" {
		t.Errorf("Expected exercise, got %q", res.ActivityCategory)
	}
}

func TestExtractMultipleTypesBonus(t *testing.T) {
	res := Extract("3 sets of 12 reps")
	if len(res.Metrics) != 2 {
		t.Fatalf("Expected 2 metrics, got %+v", res.Metrics)
	}
	if res.Metrics[0].Type != "reps" || res.Metrics[1].Type != "sets" {
		t.Errorf("Expected reps then sets, got %+v", res.Metrics)
	}
	// both matches score 0.9; the second type adds 0.1
	if res.Confidence != 1 {
		t.Errorf("Expected confidence 1, got %v", res.Confidence)
	}
}

func TestExtractNothing(t *testing.T) {
	for _, text := range []string{"", "   ", "call mom", "0 pages", "!!! ???"} {
		res := Extract(text)
		if len(res.Metrics) != 0 {
			t.Errorf("%q: expected no metrics, got %+v", text, res.Metrics)
		}
		if res.Metrics == nil {
			t.Errorf("%q: expected empty, non-nil metrics", text)
		}
		if res.Confidence != 0 {
			t.Errorf("%q: expected zero confidence, got %v", text, res.Confidence)
		}
	}
}

func TestDetectActivityCategory(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Meditate for 10 minutes", "mindfulness"},
		{"Journal before bed", "writing"},
		{"Gym session", "exercise"},
		{"Duolingo lesson", "learning"},
		{"Chess tactics then read a book", "chess"},
		{"Pay rent", ""},
		{"Reading before bed", "reading"},
		{"Get ready for the meeting", ""},
		{"Repair the bike", "exercise"},
		{"Repair the sink", ""},
		{"Single item check", ""},
		{"Singing practice", "music"},
		{"Meditation at noon", "mindfulness"},
	}
	for _, tt := range tests {
		if got := DetectActivityCategory(tt.text); got != tt.want {
			t.Errorf("%q: expected %q, got %q", tt.text, tt.want, got)
		}
	}
}

func TestDeclaredOrderIsTieBreak(t *testing.T) {
	cats := compileCategories([]Category{
		{Name: "music", Keywords: []string{"piano"}},
		{Name: "reading", Keywords: []string{"read"}},
	})
	if got := detect(cats, "Read 20 pages and practice piano"); got != "music" {
		t.Errorf("Expected first declared category music, got %q", got)
	}
}

func TestAggregateMetrics(t *testing.T) {
	today := time.Date(2024, 5, 10, 18, 0, 0, 0, time.UTC)
	entries := []Entry{
		{Text: "Run 5 km in 30 minutes", CompletedAt: today.Add(-2 * time.Hour)},
		{Text: "Run 3 km in 20 minutes", CompletedAt: today.AddDate(0, 0, -1)},
		{Text: "Read 15 pages", CompletedAt: today.AddDate(0, 0, -2)},
	}

	agg := AggregateMetrics(entries, today)
	if agg.TotalDistance != 8 || agg.TodayDistance != 5 {
		t.Errorf("Unexpected distance totals: %+v", agg)
	}
	if agg.DistanceUnit != "km" {
		t.Errorf("Expected km, got %q", agg.DistanceUnit)
	}
	if agg.TotalTimeMinutes != 50 || agg.TodayTimeMinutes != 30 {
		t.Errorf("Unexpected time totals: %+v", agg)
	}
	if agg.TotalCount != 15 || agg.TodayCount != 0 {
		t.Errorf("Unexpected counts: %+v", agg)
	}
}

func TestResultJSONCategoryNull(t *testing.T) {
	b, err := json.Marshal(Extract("nothing to see"))
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}
	if !strings.Contains(string(b), `"activity_category":null`) {
		t.Errorf("Expected null category, got %s", b)
	}
	if !strings.Contains(string(b), `"metrics":[]`) {
		t.Errorf("Expected empty metrics array, got %s", b)
	}

	b, _ = json.Marshal(Extract("Read 20 pages"))
	if !strings.Contains(string(b), `"activity_category":"reading"`) {
		t.Errorf("Expected reading category, got %s", b)
	}
}
