package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nick-dorsch/tally/pkg/models"
	"github.com/sirupsen/logrus"
)

func writeTasks(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tasks.jsonl")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write tasks file: %v", err)
	}
	return path
}

func TestJSONLSource(t *testing.T) {
	path := writeTasks(t, `{"id":"1","text":"Read 20 pages","done":true,"priority":"HIGH","created_at":"2024-01-01T08:00:00Z","completed_at":"2024-01-01T09:00:00Z","actual_minutes":30}

{"id":"2","text":"Gym","is_recurring":true,"deadline":"2024-01-02","created_at":"2024-01-01","recurrence":{"pattern":"weekly","interval":"2","weekdays":[1,"3",9,"x"],"anchor_date":"2024-01-01"}}
{"id":"3","text":"Legacy","recurrence":{"pattern":"","interval":0}}
`)

	tasks, err := NewJSONLSource(path).ListTasks(context.Background())
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("Expected 3 tasks, got %d", len(tasks))
	}

	if tasks[0].Priority != models.PriorityHigh {
		t.Errorf("Expected priority normalised to high, got %q", tasks[0].Priority)
	}
	if tasks[0].CompletedAt == nil || tasks[0].CompletedAt.Hour() != 9 {
		t.Errorf("Unexpected completed_at: %v", tasks[0].CompletedAt)
	}

	gym := tasks[1]
	if gym.Deadline == nil || gym.Deadline.Format(models.DateLayout) != "2024-01-02" {
		t.Errorf("Expected bare date deadline, got %v", gym.Deadline)
	}
	if gym.Recurrence == nil {
		t.Fatal("Expected recurrence")
	}
	if gym.Recurrence.Interval != 2 {
		t.Errorf("Expected interval 2, got %d", gym.Recurrence.Interval)
	}
	if len(gym.Recurrence.Weekdays) != 2 || gym.Recurrence.Weekdays[0] != 1 || gym.Recurrence.Weekdays[1] != 3 {
		t.Errorf("Expected weekdays [1 3], got %v", gym.Recurrence.Weekdays)
	}

	legacy := tasks[2]
	if legacy.Recurrence.Pattern != models.PatternDaily || legacy.Recurrence.Interval != 1 {
		t.Errorf("Expected legacy defaults, got %+v", legacy.Recurrence)
	}
	if !legacy.IsRecurring {
		t.Error("Expected a task with recurrence to be recurring")
	}
}

func TestJSONLSourceReportsLine(t *testing.T) {
	path := writeTasks(t, "{\"id\":\"1\"}\n{not json}\n")

	_, err := NewJSONLSource(path).ListTasks(context.Background())
	if err == nil {
		t.Fatal("Expected decode error")
	}
	if !strings.Contains(err.Error(), ":2:") {
		t.Errorf("Expected line number in error, got %v", err)
	}
}

func TestJSONLSourceMissingFile(t *testing.T) {
	_, err := NewJSONLSource(filepath.Join(t.TempDir(), "nope.jsonl")).ListTasks(context.Background())
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestSupabaseSourceDecodesRows(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)

	s := &SupabaseSource{table: "tasks", log: log}
	s.fetch = func(ctx context.Context) ([]byte, error) {
		return []byte(`[
			{"id":"a","text":"Run 5 km","done":true,"created_at":"2024-02-01T07:00:00","completed_at":"2024-02-01 07:45:00","category":"Exercise"},
			{"id":"b","text":"Plan week","priority":null,"created_at":"2024-02-02T10:00:00Z"}
		]`), nil
	}

	tasks, err := s.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("Failed to list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("Expected 2 tasks, got %d", len(tasks))
	}
	if tasks[0].CompletedAt == nil || tasks[0].CompletedAt.Minute() != 45 {
		t.Errorf("Unexpected completed_at: %v", tasks[0].CompletedAt)
	}
	if tasks[1].Priority != models.PriorityNone {
		t.Errorf("Expected null priority to become none, got %q", tasks[1].Priority)
	}
}

func TestSupabaseSourcePropagatesErrors(t *testing.T) {
	s := &SupabaseSource{table: "tasks", log: logrus.New()}
	s.fetch = func(ctx context.Context) ([]byte, error) {
		return nil, errors.New("boom")
	}
	if _, err := s.ListTasks(context.Background()); err == nil {
		t.Fatal("Expected error")
	}
}

func TestNewSupabaseSourceRequiresCredentials(t *testing.T) {
	if _, err := NewSupabaseSource("", "", "", nil); err == nil {
		t.Fatal("Expected error without credentials")
	}
}
