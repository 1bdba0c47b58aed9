// Package extract pulls structured numeric metrics out of free task text.
package extract

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/nick-dorsch/tally/pkg/models"
)

type pattern struct {
	re         *regexp.Regexp
	metricType string
	unit       string
	multiplier float64
}

// number matches an integer or decimal that is not the tail of a longer
// number, so "1.5 hours" is never read as "5 hours".
const number = `(?:^|[^\w.])(\d+(?:\.\d+)?)`

func p(expr, metricType, unit string, multiplier float64) pattern {
	return pattern{
		re:         regexp.MustCompile(`(?i)` + number + expr),
		metricType: metricType,
		unit:       unit,
		multiplier: multiplier,
	}
}

// patterns are evaluated in order. Domain-specific entries come first so a
// number they claim is not re-read by the generic fallbacks at the end.
var patterns = []pattern{
	p(`\s*(?:chess\s+)?puzzles?\b`, "puzzles", "puzzles", 0),
	p(`\s*(?:chess\s+)?(?:games?|matches|rounds?)\b`, "games", "games", 0),
	p(`\s*(?:pages?|pgs?)\b`, "pages", "pages", 0),
	p(`\s*(?:chapters?|chs?)\b`, "chapters", "chapters", 0),
	p(`\s*(?:reps?|repetitions?|push-?ups?|squats?)\b`, "reps", "reps", 0),
	p(`\s*sets?\b`, "sets", "sets", 0),
	p(`\s*(?:kgs?|kilograms?)\b`, "weight", "kg", 0),
	p(`\s*(?:lbs?|pounds?)\b`, "weight", "lbs", 0),
	p(`\s*(?:km|kilometers?|kilometres?)\b`, "distance", "km", 0),
	p(`\s*(?:mi|miles?)\b`, "distance", "miles", 0),
	p(`\s*(?:hours?|hrs?|h)\b`, "minutes", "minutes", 60),
	p(`\s*(?:minutes?|mins?)\b`, "minutes", "minutes", 0),
	p(`\s*(?:seconds?|secs?)\b`, "seconds", "seconds", 0),
	p(`\s*items?\b`, "items", "items", 0),
	p(`\s*tasks?\b`, "tasks", "tasks", 0),
	p(`\s*(?:times|x)\b`, "times", "times", 0),
}

// domainTerms raise confidence when they appear inside the matched text.
var domainTerms = []string{
	"puzzle", "game", "match", "round", "page", "chapter",
	"rep", "set", "push", "squat", "kg", "lb", "km", "mile",
}

type Result struct {
	Metrics          []models.ExtractedMetric `json:"metrics"`
	ActivityCategory string                   `json:"activity_category,omitempty"`
	Confidence       float64                  `json:"confidence"`
}

// MarshalJSON encodes a missing activity category as null.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	out := struct {
		plain
		ActivityCategory *string `json:"activity_category"`
	}{plain: plain(r)}
	if r.ActivityCategory != "" {
		out.ActivityCategory = &r.ActivityCategory
	}
	return json.Marshal(out)
}

// Extract never fails: text without recognisable numbers yields an empty
// metric list, no category and zero confidence.
func Extract(text string) Result {
	res := Result{
		Metrics:          []models.ExtractedMetric{},
		ActivityCategory: DetectActivityCategory(text),
	}

	wordCount := len(strings.Fields(text))
	claimed := make(map[int]bool)
	index := make(map[string]int)

	for _, pat := range patterns {
		for _, loc := range pat.re.FindAllStringSubmatchIndex(text, -1) {
			numStart, numEnd := loc[2], loc[3]
			if claimed[numStart] {
				continue
			}

			value, err := strconv.ParseFloat(text[numStart:numEnd], 64)
			if err != nil || value <= 0 {
				continue
			}
			if pat.multiplier > 0 {
				value *= pat.multiplier
			}
			claimed[numStart] = true

			matched := text[numStart:loc[1]]
			m := models.ExtractedMetric{
				Type:         pat.metricType,
				Value:        value,
				Unit:         pat.unit,
				Confidence:   matchConfidence(matched, wordCount),
				OriginalText: matched,
			}

			key := m.Type + "|" + m.Unit
			if i, ok := index[key]; ok {
				if m.Confidence > res.Metrics[i].Confidence {
					res.Metrics[i] = m
				}
				continue
			}
			index[key] = len(res.Metrics)
			res.Metrics = append(res.Metrics, m)
		}
	}

	res.Confidence = overallConfidence(res.Metrics)
	return res
}

func matchConfidence(matched string, wordCount int) float64 {
	c := 0.5

	lower := strings.ToLower(matched)
	for _, term := range domainTerms {
		if strings.Contains(lower, term) {
			c += 0.2
			break
		}
	}

	switch n := len(matched); {
	case n > 3:
		c += 0.1
	case n < 3:
		c -= 0.2
	}

	if wordCount > 3 {
		c += 0.1
	}

	return clamp01(c)
}

func overallConfidence(metrics []models.ExtractedMetric) float64 {
	if len(metrics) == 0 {
		return 0
	}

	var sum float64
	types := make(map[string]bool)
	for _, m := range metrics {
		sum += m.Confidence
		types[m.Type] = true
	}

	bonus := math.Min(0.2, float64(len(types)-1)*0.1)
	return clamp01(sum/float64(len(metrics)) + bonus)
}

func clamp01(v float64) float64 {
	return math.Round(math.Max(0, math.Min(1, v))*100) / 100
}
