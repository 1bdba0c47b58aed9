package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/nick-dorsch/tally/internal/analytics"
	"github.com/nick-dorsch/tally/internal/extract"
	"github.com/nick-dorsch/tally/internal/productivity"
	"github.com/nick-dorsch/tally/internal/scoring"
	"github.com/spf13/cobra"
)

const periodUsage = "Period: week, month, quarter, year or all"

func newMissedCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "missed",
		Short: "List overdue, never-started and slipping tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.GetMissedTasksAnalysis(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, opts, res, func(w io.Writer) { printMissed(w, res) })
		},
	}
}

func printMissed(w io.Writer, res *analytics.MissedAnalysis) {
	s := res.Summary
	fmt.Fprintf(w, "%d missed: %d overdue, %d never started, %d recurring (%d critical)\n\n",
		s.TotalMissed, s.OverdueCount, s.NeverStartedCount, s.RecurringMissed, s.CriticalMissed)

	if len(res.OverdueTasks) > 0 {
		header(w, "%-40s %-8s %-12s %s", "OVERDUE", "PRIORITY", "DEADLINE", "DAYS")
		for _, t := range res.OverdueTasks {
			fmt.Fprintf(w, "%-40s %-8s %-12s %d\n", truncate(t.Text, 40), t.Priority, t.Deadline, t.DaysOverdue)
		}
		fmt.Fprintln(w)
	}
	if len(res.NeverStartedTasks) > 0 {
		header(w, "%-40s %-8s %s", "NEVER STARTED", "PRIORITY", "AGE (DAYS)")
		for _, t := range res.NeverStartedTasks {
			fmt.Fprintf(w, "%-40s %-8s %d\n", truncate(t.Text, 40), t.Priority, t.CreatedDaysAgo)
		}
		fmt.Fprintln(w)
	}
	if len(res.SkippedRecurring) > 0 {
		header(w, "%-40s %-8s %s", "SLIPPING", "PATTERN", "DAYS SINCE DONE")
		for _, t := range res.SkippedRecurring {
			fmt.Fprintf(w, "%-40s %-8s %d\n", truncate(t.Text, 40), t.Pattern, t.DaysSinceLastCompletion)
		}
	}
}

func newLagCmd(opts *options) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "lag",
		Short: "Show which categories and priorities are falling behind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.engine.GetLagIndicators(cmd.Context(), period)
			if err != nil {
				return err
			}
			return render(cmd, opts, report, func(w io.Writer) { printLag(w, report) })
		},
	}
	cmd.Flags().StringVar(&period, "period", "month", periodUsage)
	return cmd
}

func printLag(w io.Writer, r *scoring.LagReport) {
	fmt.Fprintf(w, "Overall lag: %d (%s)\n\n", r.OverallLagScore, r.OverallLagLabel)
	header(w, "%-20s %5s %-12s %7s %7s %5s", "CATEGORY", "LAG", "LABEL", "PENDING", "OVERDUE", "RATE")
	for _, c := range r.LagCategories {
		fmt.Fprintf(w, "%-20s %5d %-12s %7d %7d %4d%%\n",
			truncate(c.Category, 20), c.LagScore, c.LagLabel, c.PendingCount, c.OverdueCount, c.CompletionRate)
	}
	fmt.Fprintln(w)
	header(w, "%-20s %7s %7s %5s", "PRIORITY", "PENDING", "OVERDUE", "RATE")
	for _, p := range r.LagPriorities {
		fmt.Fprintf(w, "%-20s %7d %7d %4d%%\n", p.Priority, p.PendingCount, p.OverdueCount, p.CompletionRate)
	}
}

func newMasteryCmd(opts *options) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "mastery",
		Short: "Score how consistently each category gets done",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.engine.GetTaskMasteryStats(cmd.Context(), period)
			if err != nil {
				return err
			}
			return render(cmd, opts, stats, func(w io.Writer) { printMastery(w, stats) })
		},
	}
	cmd.Flags().StringVar(&period, "period", "month", periodUsage)
	return cmd
}

func printMastery(w io.Writer, stats []scoring.CategoryMastery) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No tasks in this period")
		return
	}
	header(w, "%-20s %-22s %-14s %-10s %s", "CATEGORY", "SCORE", "LABEL", "TREND", "DONE")
	for _, m := range stats {
		fmt.Fprintf(w, "%-20s %s %3d %-14s %-10s %d/%d\n",
			truncate(m.Category, 20), bar(m.MasteryScore, 18), m.MasteryScore, m.MasteryLabel, m.Trend, m.Completed, m.Total)
	}
}

func newExtractCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <text...>",
		Short: "Extract quantities and an activity category from task text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res := extract.Extract(strings.Join(args, " "))
			return render(cmd, opts, res, func(w io.Writer) {
				if res.ActivityCategory != "" {
					fmt.Fprintf(w, "Category: %s\n", res.ActivityCategory)
				}
				if len(res.Metrics) == 0 {
					fmt.Fprintln(w, "No metrics found")
					return
				}
				header(w, "%-10s %10s %-10s %s", "TYPE", "VALUE", "UNIT", "MATCH")
				for _, m := range res.Metrics {
					fmt.Fprintf(w, "%-10s %10g %-10s %s\n", m.Type, m.Value, m.Unit, m.OriginalText)
				}
			})
		},
	}
}

func newProductivityCmd(opts *options) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "productivity",
		Short: "Show the productivity score and its components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			m, err := a.engine.GetProductivityMetrics(cmd.Context(), period)
			if err != nil {
				return err
			}
			return render(cmd, opts, m, func(w io.Writer) { printProductivity(w, m) })
		},
	}
	cmd.Flags().StringVar(&period, "period", "month", periodUsage)
	return cmd
}

func printProductivity(w io.Writer, m *productivity.Metrics) {
	fmt.Fprintf(w, "Productivity (%s): %d\n", m.Period.Name, m.Score)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%-20s %d/%d (%d%%)\n", "Completed", m.CompletedTasks, m.TotalTasks, m.CompletionRate)
	fmt.Fprintf(w, "%-20s %d%%\n", "Time efficiency", m.TimeEfficiency)
	fmt.Fprintf(w, "%-20s %s\n", "Time spent", m.TotalTimeFormatted)
	fmt.Fprintf(w, "%-20s %.2f\n", "Priority density", m.PriorityDensity)
	fmt.Fprintf(w, "%-20s %.2f\n", "Activity volume", m.ActivityVolume)
	fmt.Fprintf(w, "%-20s %d high, %d medium, %d low\n", "By priority", m.HighCompleted, m.MediumCompleted, m.LowCompleted)
}

func newInsightsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Summarise the last 30 days",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			insights, err := a.engine.GetProductivityInsights(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, opts, insights, func(w io.Writer) {
				if len(insights) == 0 {
					fmt.Fprintln(w, "Nothing to report")
					return
				}
				for _, in := range insights {
					fmt.Fprintf(w, "[%s] %s\n  %s\n", in.Kind, in.Title, in.Message)
				}
			})
		},
	}
}
