package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nick-dorsch/tally/pkg/models"
)

const seriesColumns = `
	root_id, text, category, priority, pattern, recur_interval, weekdays, anchor_date, active,
	current_streak, longest_streak, total_completed, total_missed,
	last_completed_date, last_checked_date, created_at, updated_at
`

// UpsertSeries stores a series definition. Derived state columns are never
// touched here; only the ledger transactions below write them.
func (db *DB) UpsertSeries(ctx context.Context, s *models.Series) error {
	def := s.Definition.Normalize()
	if def.Anchor.IsZero() {
		return fmt.Errorf("series %s has no anchor date", s.RootID)
	}

	active := 0
	if s.Active {
		active = 1
	}

	query := `
		INSERT INTO series (root_id, text, category, priority, pattern, recur_interval, weekdays, anchor_date, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(root_id) DO UPDATE SET
			text = excluded.text,
			category = excluded.category,
			priority = excluded.priority,
			pattern = excluded.pattern,
			recur_interval = excluded.recur_interval,
			weekdays = excluded.weekdays,
			anchor_date = excluded.anchor_date,
			active = excluded.active,
			updated_at = CURRENT_TIMESTAMP
		RETURNING created_at, updated_at
	`
	err := db.QueryRowContext(ctx, query,
		s.RootID, s.Text, s.Category, string(s.Priority), string(def.Pattern), def.Interval,
		formatWeekdays(def.Weekdays), def.Anchor.Format(models.DateLayout), active,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert series: %w", err)
	}

	s.Definition = def
	db.triggerChange(ctx)
	return nil
}

// GetSeries retrieves a series by its root ID. It returns nil when the
// series is unknown.
func (db *DB) GetSeries(ctx context.Context, rootID string) (*models.Series, error) {
	return db.getSeries(ctx, db.DB, rootID)
}

func (db *DB) getSeries(ctx context.Context, exec executor, rootID string) (*models.Series, error) {
	rows, err := exec.QueryContext(ctx, `SELECT `+seriesColumns+` FROM series WHERE root_id = ?`, rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to get series: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanSeries(rows)
}

// ListSeries returns series ordered by root ID, optionally only active ones.
func (db *DB) ListSeries(ctx context.Context, activeOnly bool) ([]*models.Series, error) {
	query := `SELECT ` + seriesColumns + ` FROM series`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY root_id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list series: %w", err)
	}
	defer rows.Close()

	var out []*models.Series
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// ListSeriesIDs returns root IDs only, so one unreadable row cannot hide
// the others from a batch.
func (db *DB) ListSeriesIDs(ctx context.Context, activeOnly bool) ([]string, error) {
	query := `SELECT root_id FROM series`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY root_id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list series ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan series id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return ids, nil
}

// SetSeriesActive toggles whether batch checks visit a series.
func (db *DB) SetSeriesActive(ctx context.Context, rootID string, active bool) error {
	v := 0
	if active {
		v = 1
	}
	res, err := db.ExecContext(ctx, `UPDATE series SET active = ?, updated_at = CURRENT_TIMESTAMP WHERE root_id = ?`, v, rootID)
	if err != nil {
		return fmt.Errorf("failed to update series: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("series not found: %s", rootID)
	}

	db.triggerChange(ctx)
	return nil
}

func scanSeries(rows *sql.Rows) (*models.Series, error) {
	s := &models.Series{}
	var (
		priority, pattern, weekdays, anchor string
		active                              int
		lastCompleted, lastChecked          sql.NullString
	)
	err := rows.Scan(
		&s.RootID, &s.Text, &s.Category, &priority, &pattern, &s.Definition.Interval, &weekdays, &anchor, &active,
		&s.CurrentStreak, &s.LongestStreak, &s.TotalCompleted, &s.TotalMissed,
		&lastCompleted, &lastChecked, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan series: %w", err)
	}

	s.Priority = models.ParsePriority(priority)
	s.Active = active == 1
	s.Definition.Pattern = models.RecurrencePattern(pattern)
	s.Definition.Weekdays = parseWeekdays(weekdays)
	if s.Definition.Anchor, err = models.ParseDay(anchor); err != nil {
		return nil, fmt.Errorf("invalid anchor date for series %s: %w", s.RootID, err)
	}
	if s.LastCompletedDate, err = parseNullDay(lastCompleted); err != nil {
		return nil, err
	}
	if s.LastCheckedDate, err = parseNullDay(lastChecked); err != nil {
		return nil, err
	}
	return s, nil
}

func formatWeekdays(days []int) string {
	parts := make([]string, len(days))
	for i, d := range days {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, ",")
}

// parseWeekdays skips anything that is not an integer; Normalize drops out
// of range values later.
func parseWeekdays(s string) []int {
	var out []int
	for _, part := range strings.Split(s, ",") {
		if d, err := strconv.Atoi(strings.TrimSpace(part)); err == nil {
			out = append(out, d)
		}
	}
	return out
}

func parseNullDay(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := models.ParseDay(s.String)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", s.String, err)
	}
	return &d, nil
}
