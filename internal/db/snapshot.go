package db

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nick-dorsch/tally/pkg/models"
)

const snapshotVersion = 1

type snapshotMeta struct {
	RecordType string    `json:"record_type"`
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
}

type snapshotSeries struct {
	RecordType string `json:"record_type"`
	*models.Series
}

type snapshotEntry struct {
	RecordType string `json:"record_type"`
	models.OccurrenceEntry
}

type snapshotGoal struct {
	RecordType string `json:"record_type"`
	*models.Goal
}

// EnableAutoSnapshot sets up a hook that exports a snapshot to path after
// every successful write.
func (db *DB) EnableAutoSnapshot(path string) {
	db.SetOnChange(func(ctx context.Context) {
		// Best effort.
		_ = db.ExportSnapshot(ctx, path)
	})
}

// ExportSnapshot writes every series, history entry and goal as JSONL to
// path atomically using a temporary file.
func (db *DB) ExportSnapshot(ctx context.Context, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, "snapshot-*.jsonl")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() {
		if tempFile != nil {
			tempFile.Close()
			os.Remove(tempFile.Name())
		}
	}()

	w := bufio.NewWriter(tempFile)
	enc := json.NewEncoder(w)

	if err := enc.Encode(snapshotMeta{RecordType: "meta", Version: snapshotVersion, ExportedAt: time.Now().UTC()}); err != nil {
		return fmt.Errorf("failed to write snapshot meta: %w", err)
	}

	series, err := db.ListSeries(ctx, false)
	if err != nil {
		return err
	}
	for _, s := range series {
		if err := enc.Encode(snapshotSeries{RecordType: "series", Series: s}); err != nil {
			return fmt.Errorf("failed to write series %s: %w", s.RootID, err)
		}
	}
	for _, s := range series {
		history, err := db.ListHistory(ctx, s.RootID)
		if err != nil {
			return err
		}
		for _, e := range history {
			if err := enc.Encode(snapshotEntry{RecordType: "occurrence", OccurrenceEntry: e}); err != nil {
				return fmt.Errorf("failed to write occurrence: %w", err)
			}
		}
	}

	goals, err := db.ListGoals(ctx)
	if err != nil {
		return err
	}
	for _, g := range goals {
		if err := enc.Encode(snapshotGoal{RecordType: "goal", Goal: g}); err != nil {
			return fmt.Errorf("failed to write goal %s: %w", g.ID, err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush snapshot: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	filename := tempFile.Name()
	tempFile = nil // Prevent defer from removing it

	if err := os.Rename(filename, path); err != nil {
		os.Remove(filename)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// ImportSnapshot restores a JSONL snapshot in one transaction. Series are
// upserted in place and keep their history. Goals replace goals with the same
// ID and history entries replace the entry for the same (root, date).
func (db *DB) ImportSnapshot(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot file: %w", err)
	}
	defer file.Close()

	err = db.inTx(ctx, func(tx *sql.Tx) error {
		scanner := bufio.NewScanner(file)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

		for scanner.Scan() {
			line := scanner.Bytes()
			if len(line) == 0 {
				continue
			}

			var base struct {
				RecordType string `json:"record_type"`
			}
			if err := json.Unmarshal(line, &base); err != nil {
				return fmt.Errorf("failed to unmarshal base record: %w", err)
			}

			switch base.RecordType {
			case "meta":
				// Skip meta
			case "series":
				var s models.Series
				if err := json.Unmarshal(line, &s); err != nil {
					return fmt.Errorf("failed to unmarshal series: %w", err)
				}
				if err := importSeries(ctx, tx, &s); err != nil {
					return err
				}
			case "occurrence":
				var e models.OccurrenceEntry
				if err := json.Unmarshal(line, &e); err != nil {
					return fmt.Errorf("failed to unmarshal occurrence: %w", err)
				}
				corrected := 0
				if e.CorrectedFromMiss {
					corrected = 1
				}
				_, err := tx.ExecContext(ctx, `
					INSERT OR REPLACE INTO occurrence_history (root_id, date, status, corrected_from_miss, recorded_at)
					VALUES (?, ?, ?, ?, ?)`,
					e.RootID, models.Day(e.Date).Format(models.DateLayout), string(e.Status), corrected, e.RecordedAt)
				if err != nil {
					return fmt.Errorf("failed to sync occurrence %s/%s: %w", e.RootID, e.Date.Format(models.DateLayout), err)
				}
			case "goal":
				var g models.Goal
				if err := json.Unmarshal(line, &g); err != nil {
					return fmt.Errorf("failed to unmarshal goal: %w", err)
				}
				_, err := tx.ExecContext(ctx, `
					INSERT OR REPLACE INTO goals (id, title, goal_type, target_type, target_value, target_category, start_date, end_date, created_at)
					VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
					g.ID, g.Title, string(g.Type), string(g.TargetType), g.TargetValue, g.TargetCategory,
					g.StartDate.Format(models.DateLayout), g.EndDate.Format(models.DateLayout), g.CreatedAt)
				if err != nil {
					return fmt.Errorf("failed to sync goal %s: %w", g.ID, err)
				}
			default:
				return fmt.Errorf("unknown snapshot record type: %q", base.RecordType)
			}
		}

		if err := scanner.Err(); err != nil {
			return fmt.Errorf("scanner error: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	db.triggerChange(ctx)
	return nil
}

func importSeries(ctx context.Context, tx *sql.Tx, s *models.Series) error {
	def := s.Definition.Normalize()
	if def.Anchor.IsZero() {
		return fmt.Errorf("series %s has no anchor date", s.RootID)
	}

	active := 0
	if s.Active {
		active = 1
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO series (
			root_id, text, category, priority, pattern, recur_interval, weekdays, anchor_date, active,
			current_streak, longest_streak, total_completed, total_missed,
			last_completed_date, last_checked_date, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(root_id) DO UPDATE SET
			text = excluded.text,
			category = excluded.category,
			priority = excluded.priority,
			pattern = excluded.pattern,
			recur_interval = excluded.recur_interval,
			weekdays = excluded.weekdays,
			anchor_date = excluded.anchor_date,
			active = excluded.active,
			current_streak = excluded.current_streak,
			longest_streak = excluded.longest_streak,
			total_completed = excluded.total_completed,
			total_missed = excluded.total_missed,
			last_completed_date = excluded.last_completed_date,
			last_checked_date = excluded.last_checked_date,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at`,
		s.RootID, s.Text, s.Category, string(s.Priority), string(def.Pattern), def.Interval,
		formatWeekdays(def.Weekdays), def.Anchor.Format(models.DateLayout), active,
		s.CurrentStreak, s.LongestStreak, s.TotalCompleted, s.TotalMissed,
		formatNullDay(s.LastCompletedDate), formatNullDay(s.LastCheckedDate), s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to sync series %s: %w", s.RootID, err)
	}
	return nil
}

func formatNullDay(t *time.Time) any {
	if t == nil {
		return nil
	}
	return models.Day(*t).Format(models.DateLayout)
}
