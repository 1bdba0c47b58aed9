// Package ledger owns the occurrence history and streak state of recurring
// series. It is the only code path that writes either.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/nick-dorsch/tally/internal/db"
	"github.com/nick-dorsch/tally/internal/recurrence"
	"github.com/nick-dorsch/tally/pkg/models"
	"github.com/sirupsen/logrus"
)

var (
	ErrUnknownSeries = errors.New("unknown recurring series")
	ErrNoOccurrence  = errors.New("no occurrence on or before date")
)

type Ledger struct {
	db  *db.DB
	log logrus.FieldLogger
}

func New(database *db.DB, log logrus.FieldLogger) *Ledger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Ledger{db: database, log: log}
}

// Completion describes the outcome of RecordCompletion.
type Completion struct {
	RootID    string             `json:"recurring_root_id"`
	Text      string             `json:"text,omitempty"`
	Date      time.Time          `json:"date"`
	Inserted  bool               `json:"inserted"`
	Corrected bool               `json:"corrected_from_miss"`
	State     models.SeriesState `json:"state"`
}

type SeriesError struct {
	RootID string `json:"recurring_root_id"`
	Error  string `json:"error"`
}

type SeriesCheck struct {
	RootID    string `json:"recurring_root_id"`
	NewMisses int    `json:"new_misses"`
}

type BatchResult struct {
	Processed      int           `json:"processed"`
	TotalNewMisses int           `json:"total_new_misses"`
	Checked        []SeriesCheck `json:"checked,omitempty"`
	Errors         []SeriesError `json:"errors,omitempty"`
}

type SyncResult struct {
	Series      int `json:"series"`
	Completions int `json:"completions"`
	// Recorded holds the completions this sync inserted or corrected.
	Recorded []Completion `json:"recorded,omitempty"`
}

func (l *Ledger) streakFunc(def models.RecurrenceDefinition) db.StreakFunc {
	return func(history []models.OccurrenceEntry) (int, int) {
		s := ComputeStreaks(def, history)
		return s.Current, s.Longest
	}
}

func (l *Ledger) series(ctx context.Context, rootID string) (*models.Series, error) {
	s, err := l.db.GetSeries(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSeries, rootID)
	}
	return s, nil
}

// RecordCompletion marks the occurrence fulfilled by a completion on date.
// That is the latest applicable date on or before date. A missed entry for
// that occurrence is overwritten and flagged as corrected; recording the same
// completion again changes nothing.
func (l *Ledger) RecordCompletion(ctx context.Context, rootID string, date time.Time) (*Completion, error) {
	s, err := l.series(ctx, rootID)
	if err != nil {
		return nil, err
	}

	occ, ok := recurrence.Previous(s.Definition, date)
	if !ok {
		return nil, fmt.Errorf("%w: %s on %s", ErrNoOccurrence, rootID, models.Day(date).Format(models.DateLayout))
	}

	res, err := l.db.MarkCompleted(ctx, rootID, occ, l.streakFunc(s.Definition))
	if err != nil {
		return nil, err
	}

	updated, err := l.series(ctx, rootID)
	if err != nil {
		return nil, err
	}

	if res.Corrected {
		l.log.WithFields(logrus.Fields{"root_id": rootID, "date": occ.Format(models.DateLayout)}).Info("Corrected missed occurrence")
	}

	return &Completion{
		RootID:    rootID,
		Text:      updated.Text,
		Date:      occ,
		Inserted:  res.Inserted,
		Corrected: res.Corrected,
		State:     updated.SeriesState,
	}, nil
}

// CheckForMisses records a miss for every applicable date before asOf that
// has no entry and returns how many were new. The first check starts at the
// anchor; later checks resume at the previous asOf, which that check left
// open. asOf itself is never marked.
func (l *Ledger) CheckForMisses(ctx context.Context, rootID string, asOf time.Time) (int, error) {
	s, err := l.series(ctx, rootID)
	if err != nil {
		return 0, err
	}

	from := s.Definition.Anchor
	if s.LastCheckedDate != nil {
		from = *s.LastCheckedDate
	}

	dates := recurrence.Dates(s.Definition, recurrence.Window{
		From:        from,
		To:          asOf,
		IncludeFrom: true,
		IncludeTo:   false,
	})

	n, err := l.db.RecordMisses(ctx, rootID, dates, asOf, l.streakFunc(s.Definition))
	if err != nil {
		return 0, fmt.Errorf("failed to check series %s: %w", rootID, err)
	}
	return n, nil
}

// CheckAllMissedRecurring runs CheckForMisses over every active series. A
// failing series is recorded in the result and the batch carries on.
func (l *Ledger) CheckAllMissedRecurring(ctx context.Context, asOf time.Time) (*BatchResult, error) {
	ids, err := l.db.ListSeriesIDs(ctx, true)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{}
	for _, rootID := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		n, err := l.CheckForMisses(ctx, rootID, asOf)
		if err != nil {
			l.log.WithField("root_id", rootID).WithError(err).Warn("Missed check failed")
			result.Errors = append(result.Errors, SeriesError{RootID: rootID, Error: err.Error()})
			continue
		}

		result.Processed++
		result.TotalNewMisses += n
		result.Checked = append(result.Checked, SeriesCheck{RootID: rootID, NewMisses: n})
	}

	l.log.WithFields(logrus.Fields{
		"processed":  result.Processed,
		"new_misses": result.TotalNewMisses,
		"errors":     len(result.Errors),
	}).Debug("Missed check finished")

	return result, nil
}

// SyncSeries brings stored series in line with a task snapshot. Recurring
// tasks are grouped by root; the definition comes from the root task, or the
// earliest instance when the root is absent. Completed instances are then
// recorded against the occurrence they fulfil.
func (l *Ledger) SyncSeries(ctx context.Context, tasks []models.Task) (*SyncResult, error) {
	groups := make(map[string][]models.Task)
	var order []string
	for _, t := range tasks {
		id := t.SeriesID()
		if id == "" {
			continue
		}
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], t)
	}
	sort.Strings(order)

	result := &SyncResult{}
	err := l.db.Batch(ctx, func() (bool, error) {
		var written bool
		for _, rootID := range order {
			changed, err := l.syncOne(ctx, rootID, groups[rootID], result)
			written = written || changed
			if err != nil {
				return written, err
			}
		}
		return written, nil
	})
	return result, err
}

// syncOne stores one series and its completions. It reports whether anything
// was written.
func (l *Ledger) syncOne(ctx context.Context, rootID string, instances []models.Task, result *SyncResult) (bool, error) {
	s := seriesFromInstances(rootID, instances)
	if s == nil {
		return false, nil
	}

	var changed bool
	existing, err := l.db.GetSeries(ctx, rootID)
	if err != nil {
		return false, err
	}
	if existing != nil {
		s.Active = existing.Active
	}
	if existing == nil || !sameSeries(existing, s) {
		if err := l.db.UpsertSeries(ctx, s); err != nil {
			return false, err
		}
		changed = true
	}
	result.Series++

	for _, t := range instances {
		date, ok := completionDate(t)
		if !ok {
			continue
		}
		c, err := l.RecordCompletion(ctx, rootID, date)
		if errors.Is(err, ErrNoOccurrence) {
			l.log.WithField("root_id", rootID).Debug("Completion predates series anchor")
			continue
		}
		if err != nil {
			return changed, err
		}
		if c.Inserted || c.Corrected {
			result.Completions++
			result.Recorded = append(result.Recorded, *c)
			changed = true
		}
	}
	return changed, nil
}

// SetActive pauses or resumes a series. Paused series are skipped by batch
// checks; their history and completions are kept.
func (l *Ledger) SetActive(ctx context.Context, rootID string, active bool) (*models.Series, error) {
	if _, err := l.series(ctx, rootID); err != nil {
		return nil, err
	}
	if err := l.db.SetSeriesActive(ctx, rootID, active); err != nil {
		return nil, err
	}
	l.log.WithFields(logrus.Fields{"root_id": rootID, "active": active}).Info("Series activity changed")
	return l.series(ctx, rootID)
}

func (l *Ledger) Series(ctx context.Context, rootID string) (*models.Series, error) {
	return l.db.GetSeries(ctx, rootID)
}

func (l *Ledger) ListSeries(ctx context.Context) ([]*models.Series, error) {
	return l.db.ListSeries(ctx, false)
}

func (l *Ledger) History(ctx context.Context, rootID string) ([]models.OccurrenceEntry, error) {
	return l.db.ListHistory(ctx, rootID)
}

func seriesFromInstances(rootID string, instances []models.Task) *models.Series {
	sort.SliceStable(instances, func(i, j int) bool {
		return instances[i].CreatedAt.Before(instances[j].CreatedAt)
	})

	root := instances[0]
	for _, t := range instances {
		if t.ID == rootID {
			root = t
			break
		}
	}

	var def models.RecurrenceDefinition
	if root.Recurrence != nil {
		def = *root.Recurrence
	} else {
		for _, t := range instances {
			if t.Recurrence != nil {
				def = *t.Recurrence
				break
			}
		}
	}

	if def.Anchor.IsZero() {
		switch {
		case root.Deadline != nil:
			def.Anchor = *root.Deadline
		case !root.CreatedAt.IsZero():
			def.Anchor = root.CreatedAt
		default:
			return nil
		}
	}

	return &models.Series{
		RootID:     rootID,
		Text:       root.Text,
		Category:   root.CategoryName(),
		Priority:   root.Priority,
		Definition: def.Normalize(),
		Active:     true,
	}
}

func sameSeries(a, b *models.Series) bool {
	if a.Text != b.Text || a.Category != b.Category || a.Priority != b.Priority {
		return false
	}
	x, y := a.Definition.Normalize(), b.Definition.Normalize()
	if x.Pattern != y.Pattern || x.Interval != y.Interval || !x.Anchor.Equal(y.Anchor) {
		return false
	}
	return slices.Equal(x.Weekdays, y.Weekdays)
}

// completionDate is the occurrence date a done instance stands for: its
// deadline when it has one, else the day it was completed.
func completionDate(t models.Task) (time.Time, bool) {
	if !t.Done {
		return time.Time{}, false
	}
	if t.Deadline != nil {
		return *t.Deadline, true
	}
	if t.CompletedAt != nil {
		return *t.CompletedAt, true
	}
	return time.Time{}, false
}
