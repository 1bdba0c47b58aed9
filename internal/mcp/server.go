package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/nick-dorsch/tally/internal/analytics"
	"github.com/nick-dorsch/tally/pkg/models"
)

const periodHelp = "Period: week|month|quarter|year|all (defaults to month)"

// NewServer creates a new MCP server.
func NewServer(engine *analytics.Engine) *server.MCPServer {
	s := server.NewMCPServer("Tally", "0.1.0")

	// Recurring series
	s.AddTool(mcp.NewTool("check_missed_recurring",
		mcp.WithDescription("Record missed occurrences for every active recurring series up to, but not including, as_of_date. Safe to repeat."),
		mcp.WithString("as_of_date", mcp.Description("YYYY-MM-DD (defaults to today)")),
	), checkMissedHandler(engine))

	s.AddTool(mcp.NewTool("record_completion",
		mcp.WithDescription("Mark the occurrence of a recurring series fulfilled. A previously missed occurrence is corrected."),
		mcp.WithString("recurring_root_id", mcp.Description("Series root task ID"), mcp.Required()),
		mcp.WithString("date", mcp.Description("YYYY-MM-DD (defaults to today)")),
	), recordCompletionHandler(engine))

	s.AddTool(mcp.NewTool("set_series_active",
		mcp.WithDescription("Pause or resume a recurring series. Paused series keep their history and are skipped by miss checks."),
		mcp.WithString("recurring_root_id", mcp.Description("Series root task ID"), mcp.Required()),
		mcp.WithBoolean("active", mcp.Description("false pauses, true resumes"), mcp.Required()),
	), setSeriesActiveHandler(engine))

	s.AddTool(mcp.NewTool("get_recurring_stats",
		mcp.WithDescription("Streaks, totals, history and aggregated metrics for every recurring series, worst completion rate first."),
	), recurringStatsHandler(engine))

	s.AddTool(mcp.NewTool("get_missed_tasks_analysis",
		mcp.WithDescription("Overdue tasks, tasks never started and recurring series that have gone quiet."),
	), missedAnalysisHandler(engine))

	// Scoring
	s.AddTool(mcp.NewTool("get_lag_indicators",
		mcp.WithDescription("Lag score per category and priority, worst first."),
		mcp.WithString("period", mcp.Description(periodHelp)),
	), lagHandler(engine))

	s.AddTool(mcp.NewTool("get_task_mastery_stats",
		mcp.WithDescription("Mastery score per category, best first."),
		mcp.WithString("period", mcp.Description(periodHelp)),
	), masteryHandler(engine))

	s.AddTool(mcp.NewTool("extract_metrics",
		mcp.WithDescription("Extract quantities (pages, minutes, reps, distance...) and an activity category from free text."),
		mcp.WithString("text", mcp.Description("Task text"), mcp.Required()),
	), extractHandler(engine))

	// Goals
	s.AddTool(mcp.NewTool("list_goals",
		mcp.WithDescription("List all goals."),
	), listGoalsHandler(engine))

	s.AddTool(mcp.NewTool("create_goal",
		mcp.WithDescription("Create a goal. Start and end dates default to the day, week or month containing today."),
		mcp.WithString("title", mcp.Description("Goal title"), mcp.Required()),
		mcp.WithString("type", mcp.Description("daily|weekly|monthly"), mcp.Required()),
		mcp.WithString("target_type", mcp.Description("tasks_completed|time_spent|category_focus"), mcp.Required()),
		mcp.WithNumber("target_value", mcp.Description("Target (must be positive)"), mcp.Required()),
		mcp.WithString("target_category", mcp.Description("Category (required for category_focus)")),
		mcp.WithString("start_date", mcp.Description("YYYY-MM-DD")),
		mcp.WithString("end_date", mcp.Description("YYYY-MM-DD")),
	), createGoalHandler(engine))

	s.AddTool(mcp.NewTool("get_goal_progress",
		mcp.WithDescription("Current progress towards a goal."),
		mcp.WithString("goal_id", mcp.Description("Goal ID"), mcp.Required()),
	), goalProgressHandler(engine))

	s.AddTool(mcp.NewTool("delete_goal",
		mcp.WithDescription("Delete a goal."),
		mcp.WithString("goal_id", mcp.Description("Goal ID"), mcp.Required()),
	), deleteGoalHandler(engine))

	// Productivity
	s.AddTool(mcp.NewTool("get_productivity_metrics",
		mcp.WithDescription("Productivity score and its components."),
		mcp.WithString("period", mcp.Description(periodHelp)),
	), productivityHandler(engine))

	s.AddTool(mcp.NewTool("get_productivity_insights",
		mcp.WithDescription("Narrative insights over the last 30 days."),
	), insightsHandler(engine))

	return s
}

// Serve starts the MCP server on stdio.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// optionalDate parses an optional YYYY-MM-DD argument.
func optionalDate(request mcp.CallToolRequest, key string) (*time.Time, error) {
	raw := strings.TrimSpace(mcp.ParseString(request, key, ""))
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDay(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: expected YYYY-MM-DD", key, raw)
	}
	return &d, nil
}

func checkMissedHandler(engine *analytics.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		asOf, err := optionalDate(request, "as_of_date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := engine.CheckAllMissedRecurring(ctx, asOf)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(res)
	}
}

func recordCompletionHandler(engine *analytics.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rootID := mcp.ParseString(request, "recurring_root_id", "")
		date, err := optionalDate(request, "date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		c, err := engine.RecordCompletion(ctx, rootID, date)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(c)
	}
}

func setSeriesActiveHandler(engine *analytics.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		rootID := mcp.ParseString(request, "recurring_root_id", "")
		series, err := engine.SetSeriesActive(ctx, rootID, mcp.ParseBoolean(request, "active", true))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(series)
	}
}

func recurringStatsHandler(engine *analytics.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := engine.GetAllRecurringStats(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"series": stats})
	}
}

func missedAnalysisHandler(engine *analytics.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := engine.GetMissedTasksAnalysis(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(res)
	}
}

func lagHandler(engine *analytics.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		report, err := engine.GetLagIndicators(ctx, mcp.ParseString(request, "period", "month"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(report)
	}
}

func masteryHandler(engine *analytics.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stats, err := engine.GetTaskMasteryStats(ctx, mcp.ParseString(request, "period", "month"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"categories": stats})
	}
}

func extractHandler(engine *analytics.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(engine.ExtractMetrics(mcp.ParseString(request, "text", "")))
	}
}

func listGoalsHandler(engine *analytics.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		goals, err := engine.GetGoals(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"goals": goals})
	}
}

func createGoalHandler(engine *analytics.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		g := models.Goal{
			Title:          mcp.ParseString(request, "title", ""),
			Type:           models.GoalType(mcp.ParseString(request, "type", "")),
			TargetType:     models.GoalTargetType(mcp.ParseString(request, "target_type", "")),
			TargetValue:    mcp.ParseInt(request, "target_value", 0),
			TargetCategory: mcp.ParseString(request, "target_category", ""),
		}

		start, err := optionalDate(request, "start_date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		end, err := optionalDate(request, "end_date")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if start != nil {
			g.StartDate = *start
		}
		if end != nil {
			g.EndDate = *end
		}

		created, err := engine.CreateGoal(ctx, g)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(created)
	}
}

func goalProgressHandler(engine *analytics.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		goalID := mcp.ParseString(request, "goal_id", "")
		p, err := engine.GetGoalProgress(ctx, goalID)
		if errors.Is(err, analytics.ErrGoalNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Goal with id '%s' not found", goalID)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(p)
	}
}

func deleteGoalHandler(engine *analytics.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		goalID := mcp.ParseString(request, "goal_id", "")
		err := engine.DeleteGoal(ctx, goalID)
		if errors.Is(err, analytics.ErrGoalNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("Goal with id '%s' not found", goalID)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Goal deleted successfully"), nil
	}
}

func productivityHandler(engine *analytics.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		m, err := engine.GetProductivityMetrics(ctx, mcp.ParseString(request, "period", "month"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(m)
	}
}

func insightsHandler(engine *analytics.Engine) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		insights, err := engine.GetProductivityInsights(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{"insights": insights})
	}
}
