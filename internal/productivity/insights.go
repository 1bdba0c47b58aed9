package productivity

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/nick-dorsch/tally/internal/scoring"
	"github.com/nick-dorsch/tally/pkg/models"
)

type InsightKind string

const (
	InsightPeakDay    InsightKind = "peak_day"
	InsightPeakHour   InsightKind = "peak_hour"
	InsightEfficiency InsightKind = "efficiency"
	InsightCompletion InsightKind = "completion"
	InsightPriority   InsightKind = "priority"
	InsightActivity   InsightKind = "activity"
)

type Insight struct {
	Kind    InsightKind `json:"type"`
	Title   string      `json:"title"`
	Message string      `json:"message"`
}

// Insights turns the figures of Compute into short observations. now is
// only used for relative wording.
func Insights(tasks []models.Task, p models.Period, now time.Time) []Insight {
	m := Compute(tasks, p)
	inPeriod := scoring.InPeriod(tasks, p)
	byDay, byHour, latest := completionHistogram(inPeriod)

	insights := []Insight{}

	if latest == nil {
		insights = append(insights, Insight{
			Kind:    InsightActivity,
			Title:   "No completions yet",
			Message: "No tasks were completed in this period.",
		})
		return insights
	}

	if d, n := peak(byDay[:]); n > 0 {
		insights = append(insights, Insight{
			Kind:    InsightPeakDay,
			Title:   "Peak day",
			Message: fmt.Sprintf("You complete the most tasks on %s (%d completed).", time.Weekday(d), n),
		})
	}
	if h, n := peak(byHour[:]); n > 0 {
		insights = append(insights, Insight{
			Kind:    InsightPeakHour,
			Title:   "Peak hour",
			Message: fmt.Sprintf("Your most productive hour is %02d:00 (%d completed).", h, n),
		})
	}

	switch {
	case m.TimeEfficiency < 80:
		insights = append(insights, Insight{
			Kind:    InsightEfficiency,
			Title:   "Estimates running short",
			Message: fmt.Sprintf("Tasks take longer than estimated (efficiency %d%%). Consider padding estimates.", m.TimeEfficiency),
		})
	case m.TimeEfficiency > 120:
		insights = append(insights, Insight{
			Kind:    InsightEfficiency,
			Title:   "Ahead of estimates",
			Message: fmt.Sprintf("Tasks finish faster than estimated (efficiency %d%%).", m.TimeEfficiency),
		})
	}

	switch {
	case m.CompletionRate >= 80:
		insights = append(insights, Insight{
			Kind:    InsightCompletion,
			Title:   "Strong follow-through",
			Message: fmt.Sprintf("%d%% of tasks in this period are done.", m.CompletionRate),
		})
	case m.CompletionRate < 50:
		insights = append(insights, Insight{
			Kind:    InsightCompletion,
			Title:   "Backlog building up",
			Message: fmt.Sprintf("Only %d%% of tasks in this period are done.", m.CompletionRate),
		})
	}

	if m.CompletedTasks > 0 && m.HighCompleted*2 >= m.CompletedTasks {
		insights = append(insights, Insight{
			Kind:    InsightPriority,
			Title:   "High priority focus",
			Message: fmt.Sprintf("%d of %d completed tasks were high priority.", m.HighCompleted, m.CompletedTasks),
		})
	}

	insights = append(insights, Insight{
		Kind:    InsightActivity,
		Title:   "Recent activity",
		Message: fmt.Sprintf("Last completion %s, %s tracked in total.", humanize.RelTime(*latest, now, "ago", "from now"), m.TotalTimeFormatted),
	})

	return insights
}

// peak returns the first index holding the largest count.
func peak(counts []int) (int, int) {
	idx, best := 0, 0
	for i, n := range counts {
		if n > best {
			idx, best = i, n
		}
	}
	return idx, best
}
