package models

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
	PriorityNone   Priority = "none"
)

// Priorities lists every priority from most to least urgent.
var Priorities = []Priority{PriorityHigh, PriorityMedium, PriorityLow, PriorityNone}

// ParsePriority maps free-form priority strings onto the known set.
// Anything unrecognised is treated as PriorityNone.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityMedium:
		return PriorityMedium
	case PriorityLow:
		return PriorityLow
	default:
		return PriorityNone
	}
}

// Weight is the priority multiplier used by productivity scoring.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

const UncategorizedCategory = "Uncategorized"

// Task is a task record as supplied by the task-storage collaborator.
// The streak fields are display copies of the ledger's SeriesState.
type Task struct {
	ID               string                `json:"id"`
	Text             string                `json:"text"`
	Done             bool                  `json:"done"`
	Deadline         *time.Time            `json:"deadline,omitempty"`
	Priority         Priority              `json:"priority"`
	Category         string                `json:"category,omitempty"`
	CategoryPath     []string              `json:"category_path,omitempty"`
	EstimatedMinutes int                   `json:"estimated_minutes,omitempty"`
	ActualMinutes    int                   `json:"actual_minutes,omitempty"`
	CreatedAt        time.Time             `json:"created_at"`
	CompletedAt      *time.Time            `json:"completed_at,omitempty"`
	IsRecurring      bool                  `json:"is_recurring"`
	Recurrence       *RecurrenceDefinition `json:"recurrence,omitempty"`
	RecurringRootID  string                `json:"recurring_root_id,omitempty"`

	CurrentStreak     int        `json:"current_streak,omitempty"`
	LongestStreak     int        `json:"longest_streak,omitempty"`
	TotalCompleted    int        `json:"total_completed,omitempty"`
	TotalMissed       int        `json:"total_missed,omitempty"`
	LastCompletedDate *time.Time `json:"last_completed_date,omitempty"`
}

// CategoryName returns the flat category, falling back to the leaf of the
// hierarchical path.
func (t Task) CategoryName() string {
	if c := strings.TrimSpace(t.Category); c != "" {
		return c
	}
	for i := len(t.CategoryPath) - 1; i >= 0; i-- {
		if c := strings.TrimSpace(t.CategoryPath[i]); c != "" {
			return c
		}
	}
	return UncategorizedCategory
}

// InCategory reports whether the task belongs to category, either directly
// or through any segment of its category path.
func (t Task) InCategory(category string) bool {
	if strings.EqualFold(t.CategoryName(), category) {
		return true
	}
	for _, seg := range t.CategoryPath {
		if strings.EqualFold(strings.TrimSpace(seg), category) {
			return true
		}
	}
	return false
}

// RelevantTime is the completion time for done tasks and the creation time
// otherwise.
func (t Task) RelevantTime() time.Time {
	if t.Done && t.CompletedAt != nil {
		return *t.CompletedAt
	}
	return t.CreatedAt
}

// SeriesID returns the recurring root this task belongs to, or "" for
// one-off tasks.
func (t Task) SeriesID() string {
	if !t.IsRecurring && t.RecurringRootID == "" {
		return ""
	}
	if t.RecurringRootID != "" {
		return t.RecurringRootID
	}
	return t.ID
}

// IsOverdue reports whether an open task's deadline day is before now's day.
func (t Task) IsOverdue(now time.Time) bool {
	if t.Done || t.Deadline == nil {
		return false
	}
	return Day(*t.Deadline).Before(Day(now))
}
