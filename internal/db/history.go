package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nick-dorsch/tally/pkg/models"
)

// StreakFunc derives current and longest streaks from a date-ordered history.
type StreakFunc func(history []models.OccurrenceEntry) (current, longest int)

// MarkResult reports what MarkCompleted did to the (root, date) entry.
type MarkResult struct {
	Inserted  bool
	Corrected bool
}

// ListHistory returns the occurrence history of a series in ascending date
// order.
func (db *DB) ListHistory(ctx context.Context, rootID string) ([]models.OccurrenceEntry, error) {
	return listHistory(ctx, db.DB, rootID)
}

func listHistory(ctx context.Context, exec executor, rootID string) ([]models.OccurrenceEntry, error) {
	rows, err := exec.QueryContext(ctx, `
		SELECT root_id, date, status, corrected_from_miss, recorded_at
		FROM occurrence_history
		WHERE root_id = ?
		ORDER BY date
	`, rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	defer rows.Close()

	var out []models.OccurrenceEntry
	for rows.Next() {
		var (
			e         models.OccurrenceEntry
			date      string
			status    string
			corrected int
		)
		if err := rows.Scan(&e.RootID, &date, &status, &corrected, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		if e.Date, err = models.ParseDay(date); err != nil {
			return nil, fmt.Errorf("invalid history date %q: %w", date, err)
		}
		e.Status = models.OccurrenceStatus(status)
		e.CorrectedFromMiss = corrected == 1
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// RecordMisses inserts a missed entry for each date that has no entry yet,
// advances last_checked_date to asOf and refreshes the derived state, all in
// one transaction. It returns the number of entries actually inserted.
func (db *DB) RecordMisses(ctx context.Context, rootID string, dates []time.Time, asOf time.Time, streaks StreakFunc) (int, error) {
	inserted := 0
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO occurrence_history (root_id, date, status)
			VALUES (?, ?, 'missed')
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, d := range dates {
			res, err := stmt.ExecContext(ctx, rootID, models.Day(d).Format(models.DateLayout))
			if err != nil {
				return fmt.Errorf("failed to record miss: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			inserted += int(n)
		}

		// ISO dates compare correctly as text; never move the checkpoint back.
		_, err = tx.ExecContext(ctx, `
			UPDATE series
			SET last_checked_date = ?
			WHERE root_id = ? AND (last_checked_date IS NULL OR last_checked_date < ?)
		`, models.Day(asOf).Format(models.DateLayout), rootID, models.Day(asOf).Format(models.DateLayout))
		if err != nil {
			return fmt.Errorf("failed to update last checked date: %w", err)
		}

		return refreshState(ctx, tx, rootID, streaks)
	})
	if err != nil {
		return 0, err
	}

	if inserted > 0 {
		db.triggerChange(ctx)
	}
	return inserted, nil
}

// MarkCompleted records a completion for (rootID, date). A missed entry is
// overwritten and flagged as corrected; an existing completion is left alone.
func (db *DB) MarkCompleted(ctx context.Context, rootID string, date time.Time, streaks StreakFunc) (MarkResult, error) {
	var result MarkResult
	day := models.Day(date).Format(models.DateLayout)

	err := db.inTx(ctx, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx,
			`SELECT status FROM occurrence_history WHERE root_id = ? AND date = ?`, rootID, day,
		).Scan(&status)

		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO occurrence_history (root_id, date, status)
				VALUES (?, ?, 'completed')
			`, rootID, day); err != nil {
				return fmt.Errorf("failed to record completion: %w", err)
			}
			result.Inserted = true
		case err != nil:
			return fmt.Errorf("failed to read history entry: %w", err)
		case status == string(models.OccurrenceMissed):
			if _, err := tx.ExecContext(ctx, `
				UPDATE occurrence_history
				SET status = 'completed', corrected_from_miss = 1, recorded_at = CURRENT_TIMESTAMP
				WHERE root_id = ? AND date = ?
			`, rootID, day); err != nil {
				return fmt.Errorf("failed to correct miss: %w", err)
			}
			result.Corrected = true
		default:
			return nil
		}

		return refreshState(ctx, tx, rootID, streaks)
	})
	if err != nil {
		return MarkResult{}, err
	}

	if result.Inserted || result.Corrected {
		db.triggerChange(ctx)
	}
	return result, nil
}

// refreshState recomputes totals, last completion and streaks from history.
func refreshState(ctx context.Context, tx *sql.Tx, rootID string, streaks StreakFunc) error {
	history, err := listHistory(ctx, tx, rootID)
	if err != nil {
		return err
	}

	var (
		completed, missed int
		lastCompleted     any
	)
	for _, e := range history {
		switch e.Status {
		case models.OccurrenceCompleted:
			completed++
			lastCompleted = e.Date.Format(models.DateLayout)
		case models.OccurrenceMissed:
			missed++
		}
	}

	current, longest := 0, 0
	if streaks != nil {
		current, longest = streaks(history)
	}
	if current > longest {
		longest = current
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE series
		SET current_streak = ?, longest_streak = ?, total_completed = ?, total_missed = ?,
			last_completed_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE root_id = ?
	`, current, longest, completed, missed, lastCompleted, rootID)
	if err != nil {
		return fmt.Errorf("failed to update series state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("series not found: %s", rootID)
	}
	return nil
}
