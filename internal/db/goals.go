package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/nick-dorsch/tally/pkg/models"
)

const goalColumns = `id, title, goal_type, target_type, target_value, target_category, start_date, end_date, created_at`

// CreateGoal stores a goal, assigning it a fresh ID.
func (db *DB) CreateGoal(ctx context.Context, g *models.Goal) error {
	g.ID = uuid.New().String()

	query := `
		INSERT INTO goals (id, title, goal_type, target_type, target_value, target_category, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING created_at
	`
	err := db.QueryRowContext(ctx, query,
		g.ID, g.Title, string(g.Type), string(g.TargetType), g.TargetValue, g.TargetCategory,
		models.Day(g.StartDate).Format(models.DateLayout), models.Day(g.EndDate).Format(models.DateLayout),
	).Scan(&g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create goal: %w", err)
	}

	db.triggerChange(ctx)
	return nil
}

// GetGoal returns nil when no goal has the given ID.
func (db *DB) GetGoal(ctx context.Context, id string) (*models.Goal, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get goal: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanGoal(rows)
}

func (db *DB) ListGoals(ctx context.Context) ([]*models.Goal, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+goalColumns+` FROM goals ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list goals: %w", err)
	}
	defer rows.Close()

	var goals []*models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return goals, nil
}

func (db *DB) DeleteGoal(ctx context.Context, id string) error {
	res, err := db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete goal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("goal not found: %s", id)
	}

	db.triggerChange(ctx)
	return nil
}

func scanGoal(rows *sql.Rows) (*models.Goal, error) {
	var (
		g                                models.Goal
		goalType, targetType, start, end string
	)
	if err := rows.Scan(&g.ID, &g.Title, &goalType, &targetType, &g.TargetValue, &g.TargetCategory, &start, &end, &g.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan goal: %w", err)
	}
	g.Type = models.GoalType(goalType)
	g.TargetType = models.GoalTargetType(targetType)

	var err error
	if g.StartDate, err = models.ParseDay(start); err != nil {
		return nil, fmt.Errorf("invalid goal start date: %w", err)
	}
	if g.EndDate, err = models.ParseDay(end); err != nil {
		return nil, fmt.Errorf("invalid goal end date: %w", err)
	}
	return &g, nil
}
