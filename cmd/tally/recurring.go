package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/dustin/go-humanize"
	"github.com/nick-dorsch/tally/internal/analytics"
	"github.com/nick-dorsch/tally/internal/ledger"
	"github.com/nick-dorsch/tally/internal/ui"
	"github.com/nick-dorsch/tally/pkg/models"
	"github.com/spf13/cobra"
)

func parseDateFlag(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDay(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return &d, nil
}

func newCheckCmd(opts *options) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Record missed occurrences for every active recurring task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDateFlag(asOf)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.engine.CheckAllMissedRecurring(cmd.Context(), date)
			if err != nil {
				return err
			}
			return render(cmd, opts, res, func(w io.Writer) { printBatch(w, res) })
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "Check up to, but not including, this date (YYYY-MM-DD, default today)")
	return cmd
}

func printBatch(w io.Writer, res *ledger.BatchResult) {
	fmt.Fprintf(w, "✓ Checked %d series, %d new misses\n", res.Processed, res.TotalNewMisses)
	for _, c := range res.Checked {
		if c.NewMisses > 0 {
			fmt.Fprintf(w, "  %-30s %d missed\n", c.RootID, c.NewMisses)
		}
	}
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  ✗ %-28s %s\n", e.RootID, e.Error)
	}
}

func newCompleteCmd(opts *options) *cobra.Command {
	var date string
	cmd := &cobra.Command{
		Use:   "complete <recurring-root-id>",
		Short: "Mark an occurrence of a recurring task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDateFlag(date)
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := a.engine.RecordCompletion(cmd.Context(), args[0], day)
			if err != nil {
				return err
			}
			return render(cmd, opts, c, func(w io.Writer) {
				verb := "Recorded"
				switch {
				case c.Corrected:
					verb = "Corrected missed"
				case !c.Inserted:
					verb = "Already recorded"
				}
				fmt.Fprintf(w, "✓ %s %s on %s (streak %d, best %d)\n",
					verb, c.RootID, c.Date.Format(models.DateLayout), c.State.CurrentStreak, c.State.LongestStreak)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Occurrence date (YYYY-MM-DD, default today)")
	return cmd
}

// newSetActiveCmd builds pause (active false) and resume (active true).
func newSetActiveCmd(opts *options, active bool) *cobra.Command {
	use, short, verb := "pause", "Skip a recurring task in miss checks until resumed", "Paused"
	if active {
		use, short, verb = "resume", "Include a paused recurring task in miss checks again", "Resumed"
	}
	return &cobra.Command{
		Use:   use + " <recurring-root-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			s, err := a.engine.SetSeriesActive(cmd.Context(), args[0], active)
			if err != nil {
				return err
			}
			return render(cmd, opts, s, func(w io.Writer) {
				fmt.Fprintf(w, "✓ %s %s (%s)\n", verb, s.RootID, s.Text)
			})
		},
	}
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show streaks and completion rates of recurring tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.engine.GetAllRecurringStats(cmd.Context())
			if err != nil {
				return err
			}
			return render(cmd, opts, stats, func(w io.Writer) {
				printStats(w, stats, a.engine.Now())
			})
		},
	}
}

func printStats(w io.Writer, stats []analytics.RecurringStats, now time.Time) {
	if len(stats) == 0 {
		fmt.Fprintln(w, "No recurring tasks yet")
		return
	}
	header(w, "%-30s %-8s %6s %6s %6s %s", "TASK", "PATTERN", "STREAK", "BEST", "RATE", "LAST DONE")
	for _, s := range stats {
		text := s.TaskText
		if s.Paused {
			text = "(paused) " + text
		}
		var last *time.Time
		if s.LastCompletedDate != nil {
			if d, err := models.ParseDay(*s.LastCompletedDate); err == nil {
				last = &d
			}
		}
		fmt.Fprintf(w, "%-30s %-8s %6d %6d %5d%% %s\n",
			truncate(text, 30), s.Pattern, s.CurrentStreak, s.LongestStreak, s.CompletionRate, ago(last, now))
		if m := s.AggregateMetrics; m.TotalCount > 0 || m.TotalTimeMinutes > 0 || m.TotalDistance > 0 {
			fmt.Fprintf(w, "  %s count · %s min", humanize.Commaf(m.TotalCount), humanize.Commaf(m.TotalTimeMinutes))
			if m.TotalDistance > 0 {
				fmt.Fprintf(w, " · %s %s", humanize.Commaf(m.TotalDistance), m.DistanceUnit)
			}
			fmt.Fprintln(w)
		}
	}
}

func newBoardCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show recurring tasks as a habit board",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.engine.GetAllRecurringStats(cmd.Context())
			if err != nil {
				return err
			}
			missed, err := a.engine.GetMissedTasksAnalysis(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput(opts) {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"series": stats, "missed": missed})
			}

			width := 80
			interactive := term.IsTerminal(os.Stdout.Fd())
			if interactive {
				if w, _, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 {
					width = w
				}
			}
			content := ui.RenderHabitBoard(stats, missed, a.engine.Now(), width)
			if !interactive {
				fmt.Fprintln(cmd.OutOrStdout(), content)
				return nil
			}
			return ui.RunBoard(content)
		},
	}
}
