// Package productivity folds a task snapshot into a single productivity
// score and a handful of narrative insights.
package productivity

import (
	"fmt"
	"math"
	"time"

	"github.com/nick-dorsch/tally/internal/scoring"
	"github.com/nick-dorsch/tally/pkg/models"
)

const (
	neutralEfficiency = 100
	efficiencyCap     = 150
	activityCapHours  = 8
)

type Metrics struct {
	Period                models.Period `json:"period"`
	TotalTasks            int           `json:"total_tasks"`
	CompletedTasks        int           `json:"completed_tasks"`
	CompletionRate        int           `json:"completion_rate"`
	TimeEfficiency        int           `json:"time_efficiency"`
	TotalEstimatedMinutes int           `json:"total_estimated_minutes"`
	TotalActualMinutes    int           `json:"total_actual_minutes"`
	TotalTimeFormatted    string        `json:"total_time_formatted"`
	PriorityDensity       float64       `json:"priority_density"`
	ActivityVolume        float64       `json:"activity_volume"`
	HighCompleted         int           `json:"high_priority_completed"`
	MediumCompleted       int           `json:"medium_priority_completed"`
	LowCompleted          int           `json:"low_priority_completed"`
	Score                 int           `json:"productivity_score"`
}

// Compute scores the tasks whose relevant time falls in p.
//
//	score = 0.4*completionRate + 0.3*min(timeEfficiency, 150)
//	      + 0.2*priorityDensity + 0.1*activityVolume
//
// priorityDensity and activityVolume are both on a 0-100 scale, so their
// weighted contributions span 0-20 and 0-10.
func Compute(tasks []models.Task, p models.Period) Metrics {
	inPeriod := scoring.InPeriod(tasks, p)
	m := Metrics{Period: p, TotalTasks: len(inPeriod)}

	var est, act, weighted, minutes int
	for _, t := range inPeriod {
		if !t.Done {
			continue
		}
		m.CompletedTasks++
		minutes += t.ActualMinutes

		switch models.ParsePriority(string(t.Priority)) {
		case models.PriorityHigh:
			m.HighCompleted++
		case models.PriorityMedium:
			m.MediumCompleted++
		case models.PriorityLow:
			m.LowCompleted++
		}
		weighted += models.ParsePriority(string(t.Priority)).Weight()

		if t.EstimatedMinutes > 0 && t.ActualMinutes > 0 {
			est += t.EstimatedMinutes
			act += t.ActualMinutes
		}
	}

	m.CompletionRate = scoring.CompletionRate(m.CompletedTasks, m.TotalTasks-m.CompletedTasks)
	m.TimeEfficiency = TimeEfficiency(est, act)
	m.TotalEstimatedMinutes = est
	m.TotalActualMinutes = minutes
	m.TotalTimeFormatted = FormatTime(minutes)

	denom := m.TotalTasks
	if denom < 1 {
		denom = 1
	}
	m.PriorityDensity = round1(float64(weighted) / float64(3*denom) * 100)
	m.ActivityVolume = round1(math.Min(float64(minutes)/60, activityCapHours) / activityCapHours * 100)

	score := 0.4*float64(m.CompletionRate) +
		0.3*math.Min(float64(m.TimeEfficiency), efficiencyCap) +
		0.2*m.PriorityDensity +
		0.1*m.ActivityVolume
	m.Score = int(math.Round(math.Min(100, math.Max(0, score))))
	return m
}

// TimeEfficiency is 100*estimated/actual, or 100 when there is nothing to
// compare.
func TimeEfficiency(estimated, actual int) int {
	if estimated <= 0 || actual <= 0 {
		return neutralEfficiency
	}
	return int(math.Round(100 * float64(estimated) / float64(actual)))
}

// FormatTime renders minutes as "2h 5m", or "45m" below an hour.
func FormatTime(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	h, m := minutes/60, minutes%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// completionHistogram buckets completion timestamps of done tasks.
func completionHistogram(tasks []models.Task) (byDay [7]int, byHour [24]int, latest *time.Time) {
	for _, t := range tasks {
		if !t.Done || t.CompletedAt == nil {
			continue
		}
		c := *t.CompletedAt
		byDay[c.Weekday()]++
		byHour[c.Hour()]++
		if latest == nil || c.After(*latest) {
			latest = &c
		}
	}
	return byDay, byHour, latest
}
