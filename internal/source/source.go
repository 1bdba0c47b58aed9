// Package source reads task snapshots from the task-storage collaborator.
// Sources are read-only; the engine never writes tasks back.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nick-dorsch/tally/pkg/models"
)

type TaskSource interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
}

// Static serves a fixed task list.
type Static []models.Task

func (s Static) ListTasks(ctx context.Context) ([]models.Task, error) {
	out := make([]models.Task, len(s))
	copy(out, s)
	return out, nil
}

// taskRecord is the wire shape of a task. Dates arrive either as RFC 3339
// timestamps or as bare dates depending on the store.
type taskRecord struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	Done             bool              `json:"done"`
	Deadline         string            `json:"deadline"`
	Priority         string            `json:"priority"`
	Category         string            `json:"category"`
	CategoryPath     []string          `json:"category_path"`
	EstimatedMinutes int               `json:"estimated_minutes"`
	ActualMinutes    int               `json:"actual_minutes"`
	CreatedAt        string            `json:"created_at"`
	CompletedAt      string            `json:"completed_at"`
	IsRecurring      bool              `json:"is_recurring"`
	Recurrence       *recurrenceRecord `json:"recurrence"`
	RecurringRootID  string            `json:"recurring_root_id"`
}

type recurrenceRecord struct {
	Pattern    string `json:"pattern"`
	Interval   any    `json:"interval"`
	Weekdays   []any  `json:"weekdays"`
	AnchorDate string `json:"anchor_date"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	models.DateLayout,
}

func parseTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognised time %q", s)
}

// toInt accepts JSON numbers and numeric strings; anything else is reported
// as not ok.
func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		return int(x), x == float64(int(x))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		return n, err == nil
	default:
		return 0, false
	}
}

// decodeTask converts one raw record. Legacy recurrence fields that do not
// parse fall back to defaults instead of failing the record.
func decodeTask(raw []byte) (models.Task, error) {
	var rec taskRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return models.Task{}, fmt.Errorf("failed to decode task: %w", err)
	}
	return rec.toTask()
}

func (rec taskRecord) toTask() (models.Task, error) {
	t := models.Task{
		ID:               rec.ID,
		Text:             rec.Text,
		Done:             rec.Done,
		Priority:         models.ParsePriority(rec.Priority),
		Category:         rec.Category,
		CategoryPath:     rec.CategoryPath,
		EstimatedMinutes: rec.EstimatedMinutes,
		ActualMinutes:    rec.ActualMinutes,
		IsRecurring:      rec.IsRecurring,
		RecurringRootID:  rec.RecurringRootID,
	}

	var err error
	if t.Deadline, err = parseTime(rec.Deadline); err != nil {
		return t, fmt.Errorf("task %s: deadline: %w", rec.ID, err)
	}
	if t.CompletedAt, err = parseTime(rec.CompletedAt); err != nil {
		return t, fmt.Errorf("task %s: completed_at: %w", rec.ID, err)
	}
	created, err := parseTime(rec.CreatedAt)
	if err != nil {
		return t, fmt.Errorf("task %s: created_at: %w", rec.ID, err)
	}
	if created != nil {
		t.CreatedAt = *created
	}

	if rec.Recurrence != nil {
		def := models.RecurrenceDefinition{Pattern: models.RecurrencePattern(strings.ToLower(rec.Recurrence.Pattern))}
		if n, ok := toInt(rec.Recurrence.Interval); ok {
			def.Interval = n
		}
		for _, w := range rec.Recurrence.Weekdays {
			if n, ok := toInt(w); ok {
				def.Weekdays = append(def.Weekdays, n)
			}
		}
		if anchor, err := parseTime(rec.Recurrence.AnchorDate); err == nil && anchor != nil {
			def.Anchor = *anchor
		}
		def = def.Normalize()
		t.Recurrence = &def
		t.IsRecurring = true
	}

	return t, nil
}
