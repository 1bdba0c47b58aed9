package ledger

import (
	"time"

	"github.com/nick-dorsch/tally/internal/recurrence"
	"github.com/nick-dorsch/tally/pkg/models"
)

type Streaks struct {
	Current int `json:"current_streak"`
	Longest int `json:"longest_streak"`
}

// ComputeStreaks derives streaks from a series history.
//
// The current streak is the run of completed occurrences ending at the most
// recent recorded occurrence; a missed entry or an applicable date with no
// entry ends it. The longest streak is the longest such run anywhere in the
// history. Entries on dates that are not applicable are ignored.
func ComputeStreaks(def models.RecurrenceDefinition, history []models.OccurrenceEntry) Streaks {
	if len(history) == 0 {
		return Streaks{}
	}

	status := make(map[time.Time]models.OccurrenceStatus, len(history))
	first, last := models.Day(history[0].Date), models.Day(history[0].Date)
	for _, e := range history {
		d := models.Day(e.Date)
		status[d] = e.Status
		if d.Before(first) {
			first = d
		}
		if d.After(last) {
			last = d
		}
	}

	var s Streaks
	run := 0
	for _, d := range recurrence.Dates(def, recurrence.Closed(first, last)) {
		if status[d] == models.OccurrenceCompleted {
			run++
		} else {
			run = 0
		}
		if run > s.Longest {
			s.Longest = run
		}
	}
	s.Current = run
	return s
}
