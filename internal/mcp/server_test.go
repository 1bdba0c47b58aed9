package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/nick-dorsch/tally/internal/analytics"
	"github.com/nick-dorsch/tally/internal/db"
	"github.com/nick-dorsch/tally/internal/source"
	"github.com/nick-dorsch/tally/pkg/models"
	"github.com/sirupsen/logrus/hooks/test"
)

var testNow = time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

func setupEngine(t *testing.T) *analytics.Engine {
	t.Helper()
	database, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := database.Init(context.Background()); err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}

	done := time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC)
	tasks := source.Static{
		{
			ID:          "read",
			Text:        "Read 20 pages",
			Priority:    models.PriorityMedium,
			Category:    "Learning",
			CreatedAt:   time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC),
			IsRecurring: true,
			Recurrence: &models.RecurrenceDefinition{
				Pattern:  models.PatternDaily,
				Interval: 1,
				Anchor:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			ID:          "ship",
			Text:        "Ship release",
			Done:        true,
			Priority:    models.PriorityHigh,
			Category:    "Work",
			CreatedAt:   time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC),
			CompletedAt: &done,
		},
	}

	log, _ := test.NewNullLogger()
	return analytics.New(tasks, database,
		analytics.WithClock(func() time.Time { return testNow }),
		analytics.WithLogger(log),
	)
}

func call(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	if tool == nil {
		t.Fatalf("Tool %s not found", name)
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := tool.Handler(context.Background(), req)
	if err != nil {
		t.Fatalf("Handler %s failed: %v", name, err)
	}
	return result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("Expected content in result")
	}
	return result.Content[0].(mcp.TextContent).Text
}

func TestServerInitialization(t *testing.T) {
	s := NewServer(setupEngine(t))
	stdio := server.NewStdioServer(s)

	r, w := io.Pipe()
	stdout := &bytes.Buffer{}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	errChan := make(chan error, 1)
	go func() {
		errChan <- stdio.Listen(ctx, r, stdout)
	}()

	initReq := mcp.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}

	rawReq := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "initialize",
		"params":  initReq.Params,
	}

	data, err := json.Marshal(rawReq)
	if err != nil {
		t.Fatalf("Failed to marshal request: %v", err)
	}
	w.Write(data)
	w.Write([]byte("\n"))

	time.Sleep(200 * time.Millisecond)

	if stdout.Len() == 0 {
		t.Fatal("Expected response from server, got none")
	}

	var resp struct {
		ID     int `json:"id"`
		Result struct {
			ServerInfo struct {
				Name string `json:"name"`
			} `json:"serverInfo"`
		} `json:"result"`
	}
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to unmarshal response: %v\nOutput: %s", err, stdout.String())
	}
	if resp.ID != 1 {
		t.Errorf("Expected id 1, got %v", resp.ID)
	}
	if resp.Result.ServerInfo.Name != "Tally" {
		t.Errorf("Expected server name Tally, got %v", resp.Result.ServerInfo.Name)
	}
}

func TestRecurringTools(t *testing.T) {
	s := NewServer(setupEngine(t))

	t.Run("check_missed_recurring", func(t *testing.T) {
		result := call(t, s, "check_missed_recurring", map[string]any{"as_of_date": "2024-01-05"})
		if result.IsError {
			t.Fatalf("Tool returned error: %s", resultText(t, result))
		}

		var res struct {
			Processed      int `json:"processed"`
			TotalNewMisses int `json:"total_new_misses"`
		}
		if err := json.Unmarshal([]byte(resultText(t, result)), &res); err != nil {
			t.Fatalf("Failed to decode result: %v", err)
		}
		if res.Processed != 1 || res.TotalNewMisses != 4 {
			t.Errorf("Expected 1 processed and 4 misses, got %+v", res)
		}
	})

	t.Run("record_completion", func(t *testing.T) {
		result := call(t, s, "record_completion", map[string]any{
			"recurring_root_id": "read",
			"date":              "2024-01-04",
		})
		if result.IsError {
			t.Fatalf("Tool returned error: %s", resultText(t, result))
		}
		if !strings.Contains(resultText(t, result), `"corrected_from_miss":true`) {
			t.Errorf("Expected a corrected miss, got %s", resultText(t, result))
		}
	})

	t.Run("record_completion bad date", func(t *testing.T) {
		result := call(t, s, "record_completion", map[string]any{
			"recurring_root_id": "read",
			"date":              "04/01/2024",
		})
		if !result.IsError {
			t.Error("Expected an error for a malformed date")
		}
	})

	t.Run("get_recurring_stats", func(t *testing.T) {
		result := call(t, s, "get_recurring_stats", nil)
		if result.IsError {
			t.Fatalf("Tool returned error: %s", resultText(t, result))
		}

		var res struct {
			Series []analytics.RecurringStats `json:"series"`
		}
		if err := json.Unmarshal([]byte(resultText(t, result)), &res); err != nil {
			t.Fatalf("Failed to decode result: %v", err)
		}
		if len(res.Series) != 1 {
			t.Fatalf("Expected 1 series, got %d", len(res.Series))
		}
		if res.Series[0].CurrentStreak != 1 || res.Series[0].TotalMissed != 3 {
			t.Errorf("Unexpected stats: %+v", res.Series[0])
		}
	})

	t.Run("get_missed_tasks_analysis", func(t *testing.T) {
		result := call(t, s, "get_missed_tasks_analysis", nil)
		if result.IsError {
			t.Fatalf("Tool returned error: %s", resultText(t, result))
		}
		if !strings.Contains(resultText(t, result), `"summary"`) {
			t.Errorf("Expected a summary, got %s", resultText(t, result))
		}
	})
}

func TestSetSeriesActiveTool(t *testing.T) {
	s := NewServer(setupEngine(t))

	result := call(t, s, "set_series_active", map[string]any{
		"recurring_root_id": "read",
		"active":            false,
	})
	if result.IsError {
		t.Fatalf("Tool returned error: %s", resultText(t, result))
	}
	if !strings.Contains(resultText(t, result), `"active":false`) {
		t.Errorf("Expected a paused series, got %s", resultText(t, result))
	}

	result = call(t, s, "check_missed_recurring", map[string]any{"as_of_date": "2024-01-05"})
	if !strings.Contains(resultText(t, result), `"processed":0`) {
		t.Errorf("Expected the paused series to be skipped, got %s", resultText(t, result))
	}

	result = call(t, s, "set_series_active", map[string]any{
		"recurring_root_id": "read",
		"active":            true,
	})
	if !strings.Contains(resultText(t, result), `"active":true`) {
		t.Errorf("Expected a resumed series, got %s", resultText(t, result))
	}

	result = call(t, s, "set_series_active", map[string]any{
		"recurring_root_id": "nope",
		"active":            false,
	})
	if !result.IsError {
		t.Error("Expected an error for an unknown series")
	}
}

func TestScoringTools(t *testing.T) {
	s := NewServer(setupEngine(t))

	for _, name := range []string{"get_lag_indicators", "get_task_mastery_stats", "get_productivity_metrics"} {
		t.Run(name, func(t *testing.T) {
			result := call(t, s, name, map[string]any{"period": "week"})
			if result.IsError {
				t.Fatalf("Tool returned error: %s", resultText(t, result))
			}

			result = call(t, s, name, map[string]any{"period": "decade"})
			if !result.IsError {
				t.Error("Expected an error for an unknown period")
			}
		})
	}

	t.Run("get_productivity_insights", func(t *testing.T) {
		result := call(t, s, "get_productivity_insights", nil)
		if result.IsError {
			t.Fatalf("Tool returned error: %s", resultText(t, result))
		}
		if !strings.Contains(resultText(t, result), `"insights"`) {
			t.Errorf("Unexpected result: %s", resultText(t, result))
		}
	})

	t.Run("extract_metrics", func(t *testing.T) {
		result := call(t, s, "extract_metrics", map[string]any{
			"text": "Read 20 pages and practice piano for 30 minutes",
		})
		if result.IsError {
			t.Fatalf("Tool returned error: %s", resultText(t, result))
		}

		var res struct {
			Metrics []models.ExtractedMetric `json:"metrics"`
		}
		if err := json.Unmarshal([]byte(resultText(t, result)), &res); err != nil {
			t.Fatalf("Failed to decode result: %v", err)
		}
		if len(res.Metrics) != 2 {
			t.Errorf("Expected 2 metrics, got %d", len(res.Metrics))
		}
	})
}

func TestGoalTools(t *testing.T) {
	s := NewServer(setupEngine(t))

	result := call(t, s, "create_goal", map[string]any{
		"title":        "Two a day",
		"type":         "daily",
		"target_type":  "tasks_completed",
		"target_value": float64(2),
	})
	if result.IsError {
		t.Fatalf("Tool returned error: %s", resultText(t, result))
	}

	var goal models.Goal
	if err := json.Unmarshal([]byte(resultText(t, result)), &goal); err != nil {
		t.Fatalf("Failed to decode goal: %v", err)
	}
	if goal.ID == "" {
		t.Fatal("Expected a goal ID")
	}

	result = call(t, s, "list_goals", nil)
	if !strings.Contains(resultText(t, result), goal.ID) {
		t.Errorf("Expected goal in list, got %s", resultText(t, result))
	}

	result = call(t, s, "get_goal_progress", map[string]any{"goal_id": goal.ID})
	if result.IsError {
		t.Fatalf("Tool returned error: %s", resultText(t, result))
	}

	result = call(t, s, "create_goal", map[string]any{
		"title":        "Nothing",
		"type":         "daily",
		"target_type":  "tasks_completed",
		"target_value": float64(0),
	})
	if !result.IsError {
		t.Error("Expected a zero target to be rejected")
	}

	result = call(t, s, "delete_goal", map[string]any{"goal_id": goal.ID})
	if result.IsError {
		t.Fatalf("Tool returned error: %s", resultText(t, result))
	}

	result = call(t, s, "get_goal_progress", map[string]any{"goal_id": goal.ID})
	if !result.IsError || !strings.Contains(resultText(t, result), "not found") {
		t.Errorf("Expected not found, got %s", resultText(t, result))
	}
}
