package models

import "time"

type GoalType string

const (
	GoalDaily   GoalType = "daily"
	GoalWeekly  GoalType = "weekly"
	GoalMonthly GoalType = "monthly"
)

type GoalTargetType string

const (
	TargetTasksCompleted GoalTargetType = "tasks_completed"
	TargetTimeSpent      GoalTargetType = "time_spent"
	TargetCategoryFocus  GoalTargetType = "category_focus"
)

type Goal struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Type           GoalType       `json:"type"`
	TargetType     GoalTargetType `json:"target_type"`
	TargetValue    int            `json:"target_value"`
	TargetCategory string         `json:"target_category,omitempty"`
	StartDate      time.Time      `json:"start_date"`
	EndDate        time.Time      `json:"end_date"`
	CreatedAt      time.Time      `json:"created_at"`
}

// GoalProgress is always recomputed from the task snapshot, never stored.
type GoalProgress struct {
	Goal               Goal `json:"goal"`
	Current            int  `json:"current"`
	ProgressPercentage int  `json:"progress_percentage"`
	IsCompleted        bool `json:"is_completed"`
	IsOverdue          bool `json:"is_overdue"`
	DaysRemaining      int  `json:"days_remaining"`
}
