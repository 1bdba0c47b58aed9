package analytics

import (
	"context"
	"sort"
	"time"

	"github.com/nick-dorsch/tally/internal/extract"
	"github.com/nick-dorsch/tally/internal/recurrence"
	"github.com/nick-dorsch/tally/internal/scoring"
	"github.com/nick-dorsch/tally/pkg/models"
)

// neverStartedDays is how old an untouched task must be to count as never
// started.
const neverStartedDays = 7

type HistoryPoint struct {
	Date   string                  `json:"date"`
	Status models.OccurrenceStatus `json:"status"`
}

type RecurringStats struct {
	RootID            string                   `json:"recurring_root_id"`
	TaskText          string                   `json:"task_text"`
	Pattern           models.RecurrencePattern `json:"pattern"`
	Interval          int                      `json:"interval"`
	Weekdays          []int                    `json:"weekdays"`
	CurrentStreak     int                      `json:"current_streak"`
	LongestStreak     int                      `json:"longest_streak"`
	TotalCompleted    int                      `json:"total_completed"`
	TotalMissed       int                      `json:"total_missed"`
	CompletionRate    int                      `json:"completion_rate"`
	History           []HistoryPoint           `json:"history"`
	LastCompletedDate *string                  `json:"last_completed_date"`
	AggregateMetrics  extract.Aggregate        `json:"aggregate_metrics"`
	Paused            bool                     `json:"paused,omitempty"`
}

type OverdueTask struct {
	ID          string          `json:"id"`
	Text        string          `json:"text"`
	Priority    models.Priority `json:"priority"`
	Category    string          `json:"category"`
	Deadline    string          `json:"deadline"`
	DaysOverdue int             `json:"days_overdue"`
}

type NeverStartedTask struct {
	ID             string          `json:"id"`
	Text           string          `json:"text"`
	Priority       models.Priority `json:"priority"`
	Category       string          `json:"category"`
	CreatedDaysAgo int             `json:"created_days_ago"`
}

type SkippedRecurring struct {
	ID                      string                   `json:"id"`
	Text                    string                   `json:"text"`
	Priority                models.Priority          `json:"priority"`
	Category                string                   `json:"category"`
	Pattern                 models.RecurrencePattern `json:"pattern"`
	Interval                int                      `json:"interval"`
	DaysSinceLastCompletion int                      `json:"days_since_last_completion"`
}

type MissedSummary struct {
	TotalMissed       int `json:"total_missed"`
	OverdueCount      int `json:"overdue_count"`
	NeverStartedCount int `json:"never_started_count"`
	RecurringMissed   int `json:"recurring_missed"`
	CriticalMissed    int `json:"critical_missed"`
}

type MissedAnalysis struct {
	OverdueTasks      []OverdueTask      `json:"overdue_tasks"`
	NeverStartedTasks []NeverStartedTask `json:"never_started_tasks"`
	SkippedRecurring  []SkippedRecurring `json:"skipped_recurring"`
	Summary           MissedSummary      `json:"summary"`
}

// GetAllRecurringStats reports every series, worst completion rate first.
func (e *Engine) GetAllRecurringStats(ctx context.Context) ([]RecurringStats, error) {
	tasks, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	all, err := e.ledger.ListSeries(ctx)
	if err != nil {
		return nil, err
	}

	entries := make(map[string][]extract.Entry)
	for _, t := range tasks {
		id := t.SeriesID()
		if id == "" || !t.Done || t.CompletedAt == nil {
			continue
		}
		entries[id] = append(entries[id], extract.Entry{Text: t.Text, CompletedAt: *t.CompletedAt})
	}

	now := e.now()
	out := make([]RecurringStats, 0, len(all))
	for _, s := range all {
		history, err := e.ledger.History(ctx, s.RootID)
		if err != nil {
			return nil, err
		}

		points := make([]HistoryPoint, len(history))
		for i, h := range history {
			points[i] = HistoryPoint{Date: h.Date.Format(models.DateLayout), Status: h.Status}
		}

		weekdays := s.Definition.Weekdays
		if weekdays == nil {
			weekdays = []int{}
		}

		st := RecurringStats{
			RootID:           s.RootID,
			TaskText:         s.Text,
			Pattern:          s.Definition.Pattern,
			Interval:         s.Definition.Interval,
			Weekdays:         weekdays,
			CurrentStreak:    s.CurrentStreak,
			LongestStreak:    s.LongestStreak,
			TotalCompleted:   s.TotalCompleted,
			TotalMissed:      s.TotalMissed,
			CompletionRate:   scoring.CompletionRate(s.TotalCompleted, s.TotalMissed),
			History:          points,
			AggregateMetrics: extract.AggregateMetrics(entries[s.RootID], now),
			Paused:           !s.Active,
		}
		if s.LastCompletedDate != nil {
			d := s.LastCompletedDate.Format(models.DateLayout)
			st.LastCompletedDate = &d
		}
		out = append(out, st)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CompletionRate != out[j].CompletionRate {
			return out[i].CompletionRate < out[j].CompletionRate
		}
		return out[i].RootID < out[j].RootID
	})
	return out, nil
}

// GetMissedTasksAnalysis lists overdue one-off tasks, one-off tasks that sat
// untouched for a week, and series that went quiet for longer than their
// expected gap.
func (e *Engine) GetMissedTasksAnalysis(ctx context.Context) (*MissedAnalysis, error) {
	tasks, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	all, err := e.ledger.ListSeries(ctx)
	if err != nil {
		return nil, err
	}

	now := e.now()
	res := &MissedAnalysis{
		OverdueTasks:      []OverdueTask{},
		NeverStartedTasks: []NeverStartedTask{},
		SkippedRecurring:  []SkippedRecurring{},
	}
	critical := 0

	for _, t := range tasks {
		if t.Done || t.SeriesID() != "" {
			continue
		}
		priority := models.ParsePriority(string(t.Priority))

		if t.IsOverdue(now) {
			res.OverdueTasks = append(res.OverdueTasks, OverdueTask{
				ID:          t.ID,
				Text:        t.Text,
				Priority:    priority,
				Category:    t.CategoryName(),
				Deadline:    t.Deadline.Format(models.DateLayout),
				DaysOverdue: models.DaysBetween(*t.Deadline, now),
			})
			if priority == models.PriorityHigh {
				critical++
			}
			continue
		}

		age := models.DaysBetween(t.CreatedAt, now)
		if age >= neverStartedDays && t.ActualMinutes == 0 {
			res.NeverStartedTasks = append(res.NeverStartedTasks, NeverStartedTask{
				ID:             t.ID,
				Text:           t.Text,
				Priority:       priority,
				Category:       t.CategoryName(),
				CreatedDaysAgo: age,
			})
			if priority == models.PriorityHigh {
				critical++
			}
		}
	}

	for _, s := range all {
		if !s.Active {
			continue
		}
		since := s.Definition.Anchor
		if s.LastCompletedDate != nil {
			since = *s.LastCompletedDate
		}
		if since.After(now) {
			continue
		}
		days := models.DaysBetween(since, now)
		if days <= recurrence.ExpectedGapDays(s.Definition) {
			continue
		}
		res.SkippedRecurring = append(res.SkippedRecurring, SkippedRecurring{
			ID:                      s.RootID,
			Text:                    s.Text,
			Priority:                s.Priority,
			Category:                s.Category,
			Pattern:                 s.Definition.Pattern,
			Interval:                s.Definition.Interval,
			DaysSinceLastCompletion: days,
		})
		if s.Priority == models.PriorityHigh {
			critical++
		}
	}

	sort.SliceStable(res.OverdueTasks, func(i, j int) bool {
		return res.OverdueTasks[i].DaysOverdue > res.OverdueTasks[j].DaysOverdue
	})
	sort.SliceStable(res.NeverStartedTasks, func(i, j int) bool {
		return res.NeverStartedTasks[i].CreatedDaysAgo > res.NeverStartedTasks[j].CreatedDaysAgo
	})
	sort.SliceStable(res.SkippedRecurring, func(i, j int) bool {
		return res.SkippedRecurring[i].DaysSinceLastCompletion > res.SkippedRecurring[j].DaysSinceLastCompletion
	})

	res.Summary = MissedSummary{
		OverdueCount:      len(res.OverdueTasks),
		NeverStartedCount: len(res.NeverStartedTasks),
		RecurringMissed:   len(res.SkippedRecurring),
		CriticalMissed:    critical,
	}
	res.Summary.TotalMissed = res.Summary.OverdueCount + res.Summary.NeverStartedCount + res.Summary.RecurringMissed
	return res, nil
}

// Now is the engine clock.
func (e *Engine) Now() time.Time {
	return e.now()
}
