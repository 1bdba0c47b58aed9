package main

import (
	"fmt"
	"io"

	"github.com/nick-dorsch/tally/pkg/models"
	"github.com/spf13/cobra"
)

func newGoalsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goals",
		Short: "Manage goals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListGoals(cmd, opts)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List goals with their progress",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runListGoals(cmd, opts)
			},
		},
		newGoalCreateCmd(opts),
		&cobra.Command{
			Use:   "progress <goal-id>",
			Short: "Show progress towards a goal",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(cmd.Context(), opts)
				if err != nil {
					return err
				}
				defer a.Close()

				p, err := a.engine.GetGoalProgress(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return render(cmd, opts, p, func(w io.Writer) { printProgress(w, p) })
			},
		},
		&cobra.Command{
			Use:   "delete <goal-id>",
			Short: "Delete a goal",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(cmd.Context(), opts)
				if err != nil {
					return err
				}
				defer a.Close()

				if err := a.engine.DeleteGoal(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted goal %s\n", args[0])
				return nil
			},
		},
	)
	return cmd
}

func runListGoals(cmd *cobra.Command, opts *options) error {
	a, err := openApp(cmd.Context(), opts)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.engine.GetGoals(cmd.Context())
	if err != nil {
		return err
	}
	progress := make([]*models.GoalProgress, 0, len(list))
	for _, g := range list {
		p, err := a.engine.GetGoalProgress(cmd.Context(), g.ID)
		if err != nil {
			return err
		}
		progress = append(progress, p)
	}

	return render(cmd, opts, progress, func(w io.Writer) {
		if len(progress) == 0 {
			fmt.Fprintln(w, "No goals yet")
			return
		}
		header(w, "%-36s %-24s %-8s %s", "ID", "TITLE", "TYPE", "PROGRESS")
		for _, p := range progress {
			fmt.Fprintf(w, "%-36s %-24s %-8s %s %3d%%\n",
				p.Goal.ID, truncate(p.Goal.Title, 24), p.Goal.Type, bar(p.ProgressPercentage, 10), p.ProgressPercentage)
		}
	})
}

func printProgress(w io.Writer, p *models.GoalProgress) {
	g := p.Goal
	fmt.Fprintf(w, "%s (%s, %s)\n", g.Title, g.Type, g.TargetType)
	fmt.Fprintln(w, rule)
	fmt.Fprintf(w, "%s %d/%d (%d%%)\n", bar(p.ProgressPercentage, 30), p.Current, g.TargetValue, p.ProgressPercentage)
	fmt.Fprintf(w, "%s to %s\n", g.StartDate.Format(models.DateLayout), g.EndDate.Format(models.DateLayout))
	switch {
	case p.IsCompleted:
		fmt.Fprintln(w, "✓ Completed")
	case p.IsOverdue:
		fmt.Fprintln(w, "✗ Overdue")
	default:
		fmt.Fprintf(w, "%d days remaining\n", p.DaysRemaining)
	}
}

func newGoalCreateCmd(opts *options) *cobra.Command {
	var (
		goalType   string
		targetType string
		target     int
		category   string
		start, end string
	)
	cmd := &cobra.Command{
		Use:   "create <title>",
		Short: "Create a goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			g := models.Goal{
				Title:          args[0],
				Type:           models.GoalType(goalType),
				TargetType:     models.GoalTargetType(targetType),
				TargetValue:    target,
				TargetCategory: category,
			}
			startDay, err := parseDateFlag(start)
			if err != nil {
				return err
			}
			endDay, err := parseDateFlag(end)
			if err != nil {
				return err
			}
			if startDay != nil {
				g.StartDate = *startDay
			}
			if endDay != nil {
				g.EndDate = *endDay
			}

			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			created, err := a.engine.CreateGoal(cmd.Context(), g)
			if err != nil {
				return err
			}
			return render(cmd, opts, created, func(w io.Writer) {
				fmt.Fprintf(w, "✓ Created goal %s (%s to %s)\n", created.ID,
					created.StartDate.Format(models.DateLayout), created.EndDate.Format(models.DateLayout))
			})
		},
	}
	cmd.Flags().StringVar(&goalType, "type", "weekly", "daily, weekly or monthly")
	cmd.Flags().StringVar(&targetType, "target-type", "tasks_completed", "tasks_completed, time_spent or category_focus")
	cmd.Flags().IntVar(&target, "target", 0, "Target value (tasks or minutes)")
	cmd.Flags().StringVar(&category, "category", "", "Category for category_focus goals")
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "End date (YYYY-MM-DD)")
	cmd.MarkFlagRequired("target")
	return cmd
}
