package db

import (
	"context"
	"testing"
	"time"
)

func TestJobRuns(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	last, err := db.GetLastRun(ctx, "check_missed")
	if err != nil {
		t.Fatalf("Failed to get last run: %v", err)
	}
	if last != nil {
		t.Fatalf("Expected no last run, got %v", last)
	}

	at := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	if err := db.RecordRun(ctx, "check_missed", at, "ok"); err != nil {
		t.Fatalf("Failed to record run: %v", err)
	}
	later := at.Add(time.Hour)
	if err := db.RecordRun(ctx, "check_missed", later, "ok"); err != nil {
		t.Fatalf("Failed to record run: %v", err)
	}

	last, err = db.GetLastRun(ctx, "check_missed")
	if err != nil {
		t.Fatalf("Failed to get last run: %v", err)
	}
	if last == nil || !last.Equal(later) {
		t.Errorf("Expected last run %v, got %v", later, last)
	}
}
