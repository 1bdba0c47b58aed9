package db

import (
	"context"
	"testing"

	"github.com/nick-dorsch/tally/pkg/models"
)

func TestGoalLifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	g := &models.Goal{
		Title:       "Ten tasks a week",
		Type:        models.GoalWeekly,
		TargetType:  models.TargetTasksCompleted,
		TargetValue: 10,
		StartDate:   day(t, "2024-01-01"),
		EndDate:     day(t, "2024-01-07"),
	}
	if err := db.CreateGoal(ctx, g); err != nil {
		t.Fatalf("Failed to create goal: %v", err)
	}
	if g.ID == "" {
		t.Fatal("Expected goal ID to be assigned")
	}
	if g.CreatedAt.IsZero() {
		t.Error("Expected created_at to be set")
	}

	got, err := db.GetGoal(ctx, g.ID)
	if err != nil {
		t.Fatalf("Failed to get goal: %v", err)
	}
	if got == nil || got.Title != g.Title || got.TargetValue != 10 {
		t.Fatalf("Unexpected goal: %+v", got)
	}
	if !got.EndDate.Equal(day(t, "2024-01-07")) {
		t.Errorf("Expected end date 2024-01-07, got %v", got.EndDate)
	}

	goals, err := db.ListGoals(ctx)
	if err != nil {
		t.Fatalf("Failed to list goals: %v", err)
	}
	if len(goals) != 1 {
		t.Errorf("Expected 1 goal, got %d", len(goals))
	}

	if err := db.DeleteGoal(ctx, g.ID); err != nil {
		t.Fatalf("Failed to delete goal: %v", err)
	}
	got, err = db.GetGoal(ctx, g.ID)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("Expected goal to be gone, got %+v", got)
	}
	if err := db.DeleteGoal(ctx, g.ID); err == nil {
		t.Error("Expected error deleting missing goal")
	}
}

func TestCreateGoalRejectsNonPositiveTarget(t *testing.T) {
	db := setupTestDB(t)
	g := &models.Goal{
		Type:       models.GoalDaily,
		TargetType: models.TargetTasksCompleted,
		StartDate:  day(t, "2024-01-01"),
		EndDate:    day(t, "2024-01-01"),
	}
	if err := db.CreateGoal(context.Background(), g); err == nil {
		t.Fatal("Expected check constraint to reject target 0")
	}
}
