// Package goals evaluates goal definitions against a task snapshot.
package goals

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/nick-dorsch/tally/pkg/models"
)

var (
	ErrInvalidTarget = errors.New("goal target value must be positive")
	ErrInvalidGoal   = errors.New("invalid goal")
)

// Validate checks a goal before it is stored. Progress assumes a goal that
// passed validation.
func Validate(g models.Goal) error {
	if g.TargetValue <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidTarget, g.TargetValue)
	}
	switch g.Type {
	case models.GoalDaily, models.GoalWeekly, models.GoalMonthly:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidGoal, g.Type)
	}
	switch g.TargetType {
	case models.TargetTasksCompleted, models.TargetTimeSpent:
	case models.TargetCategoryFocus:
		if strings.TrimSpace(g.TargetCategory) == "" {
			return fmt.Errorf("%w: category_focus needs a target category", ErrInvalidGoal)
		}
	default:
		return fmt.Errorf("%w: unknown target type %q", ErrInvalidGoal, g.TargetType)
	}
	if !g.StartDate.IsZero() && !g.EndDate.IsZero() && g.EndDate.Before(g.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrInvalidGoal)
	}
	return nil
}

// ApplyDefaultPeriod fills a missing start or end date from the goal type:
// the day for daily goals, the Monday to Sunday week for weekly goals and the
// calendar month for monthly goals, all containing now.
func ApplyDefaultPeriod(g *models.Goal, now time.Time) {
	ref := now
	if !g.StartDate.IsZero() {
		ref = g.StartDate
	}
	start, end := defaultPeriod(g.Type, ref)
	if g.StartDate.IsZero() {
		g.StartDate = start
	}
	if g.EndDate.IsZero() {
		g.EndDate = end
	}
	g.StartDate = models.Day(g.StartDate)
	g.EndDate = models.Day(g.EndDate)
}

func defaultPeriod(t models.GoalType, ref time.Time) (time.Time, time.Time) {
	d := models.Day(ref)
	switch t {
	case models.GoalWeekly:
		offset := (int(d.Weekday()) + 6) % 7
		start := d.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 6)
	case models.GoalMonthly:
		start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, -1)
	default:
		return d, d
	}
}

// Progress computes how far a goal has come. Tasks count when their
// relevant time falls on a day between the goal's start and end dates.
func Progress(g models.Goal, tasks []models.Task, now time.Time) models.GoalProgress {
	start := models.Day(g.StartDate)
	endExclusive := models.Day(g.EndDate).AddDate(0, 0, 1)

	current := 0
	for _, t := range tasks {
		rt := t.RelevantTime()
		if rt.Before(start) || !rt.Before(endExclusive) || !t.Done {
			continue
		}
		switch g.TargetType {
		case models.TargetTasksCompleted:
			current++
		case models.TargetTimeSpent:
			current += t.ActualMinutes
		case models.TargetCategoryFocus:
			if t.InCategory(g.TargetCategory) {
				current++
			}
		}
	}

	pct := 0
	if g.TargetValue > 0 {
		pct = int(math.Min(100, math.Round(100*float64(current)/float64(g.TargetValue))))
	}
	completed := g.TargetValue > 0 && current >= g.TargetValue

	remaining := int(math.Ceil(endExclusive.Sub(now).Hours() / 24))
	if remaining < 0 {
		remaining = 0
	}

	return models.GoalProgress{
		Goal:               g,
		Current:            current,
		ProgressPercentage: pct,
		IsCompleted:        completed,
		IsOverdue:          !now.Before(endExclusive) && !completed,
		DaysRemaining:      remaining,
	}
}
