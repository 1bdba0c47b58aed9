package models

import "time"

type OccurrenceStatus string

const (
	OccurrenceCompleted OccurrenceStatus = "completed"
	OccurrenceMissed    OccurrenceStatus = "missed"
)

// OccurrenceEntry is one (root, date) record of a series' history.
type OccurrenceEntry struct {
	RootID            string           `json:"recurring_root_id"`
	Date              time.Time        `json:"date"`
	Status            OccurrenceStatus `json:"status"`
	CorrectedFromMiss bool             `json:"corrected_from_miss,omitempty"`
	RecordedAt        time.Time        `json:"recorded_at"`
}

type SeriesState struct {
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	TotalCompleted    int        `json:"total_completed"`
	TotalMissed       int        `json:"total_missed"`
	LastCompletedDate *time.Time `json:"last_completed_date"`
	LastCheckedDate   *time.Time `json:"last_checked_date"`
}

// Series is a recurring task definition together with its derived state.
type Series struct {
	RootID     string               `json:"recurring_root_id"`
	Text       string               `json:"task_text"`
	Category   string               `json:"category,omitempty"`
	Priority   Priority             `json:"priority"`
	Definition RecurrenceDefinition `json:"definition"`
	Active     bool                 `json:"active"`
	CreatedAt  time.Time            `json:"created_at"`
	UpdatedAt  time.Time            `json:"updated_at"`
	SeriesState
}
