package main

import (
	"fmt"

	"github.com/nick-dorsch/tally/internal/ui"
	"github.com/spf13/cobra"
)

// options holds the global flags. Empty values leave the config untouched.
type options struct {
	cfgFile   string
	dbPath    string
	tasksPath string
	output    string
	verbose   bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "tally",
		Short: "Habit and task analytics",
		Long: `tally tracks streaks and misses of recurring tasks and scores how a task
list is going: lag, mastery, goals and productivity.

Tasks are read from a JSONL file or a Supabase table; the ledger of
completed and missed occurrences lives in SQLite under .tally/.

Run without arguments for an interactive menu.`,
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			selected, err := ui.RunMenu()
			if err != nil {
				return fmt.Errorf("failed to run menu: %w", err)
			}
			if selected == "" {
				return nil
			}
			sub, _, err := cmd.Find([]string{selected})
			if err != nil || sub == cmd {
				return fmt.Errorf("unknown command: %s", selected)
			}
			if sub.RunE == nil {
				return sub.Help()
			}
			sub.SetContext(cmd.Context())
			return sub.RunE(sub, nil)
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "Config file (default: .tally/config.yaml)")
	root.PersistentFlags().StringVar(&opts.dbPath, "db-path", "", "Path to database file")
	root.PersistentFlags().StringVar(&opts.tasksPath, "tasks", "", "Path to tasks JSONL file")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "table", "Output format (table, json)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newInitCmd(opts),
		newCheckCmd(opts),
		newCompleteCmd(opts),
		newSetActiveCmd(opts, false),
		newSetActiveCmd(opts, true),
		newStatsCmd(opts),
		newBoardCmd(opts),
		newMissedCmd(opts),
		newLagCmd(opts),
		newMasteryCmd(opts),
		newExtractCmd(opts),
		newGoalsCmd(opts),
		newProductivityCmd(opts),
		newInsightsCmd(opts),
		newSnapshotCmd(opts),
		newServeCmd(opts),
		newMCPCmd(opts),
	)
	return root
}
