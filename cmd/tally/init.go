package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/nick-dorsch/tally/internal/config"
	"github.com/nick-dorsch/tally/internal/db"
	"github.com/spf13/cobra"
)

func newInitCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "init [dir]",
		Short: "Create the .tally directory, config and database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			targetDir := "."
			if len(args) > 0 {
				targetDir = args[0]
			}
			return runInit(cmd, opts, targetDir)
		},
	}
}

func runInit(cmd *cobra.Command, opts *options, targetDir string) error {
	out := cmd.OutOrStdout()

	tallyDir := filepath.Join(targetDir, config.Dir)
	if err := os.MkdirAll(tallyDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", config.Dir, err)
	}
	fmt.Fprintf(out, "✓ Created %s/ directory\n", config.Dir)

	gitignorePath := filepath.Join(tallyDir, ".gitignore")
	if err := os.WriteFile(gitignorePath, []byte("tally.db*\n"), 0644); err != nil {
		return fmt.Errorf("failed to create .gitignore: %w", err)
	}
	fmt.Fprintf(out, "✓ Created %s/.gitignore\n", config.Dir)

	cfgPath := opts.cfgFile
	if cfgPath == "" {
		cfgPath = filepath.Join(tallyDir, config.FileName)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	if !exists(cfgPath) {
		if err := config.Default().Save(cfgPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Wrote %s\n", cfgPath)
	}

	resolve := func(flag, path string) string {
		if flag != "" {
			return flag
		}
		if filepath.IsAbs(path) {
			return path
		}
		return filepath.Join(targetDir, path)
	}
	dbPath := resolve(opts.dbPath, cfg.Database.Path)
	snapshotPath := resolve("", cfg.Database.SnapshotPath)

	if cfg.Tasks.Source == config.SourceJSONL {
		tasksPath := resolve(opts.tasksPath, cfg.Tasks.Path)
		if !exists(tasksPath) {
			if err := os.WriteFile(tasksPath, nil, 0644); err != nil {
				return fmt.Errorf("failed to create tasks file: %w", err)
			}
			fmt.Fprintf(out, "✓ Created %s\n", tasksPath)
		}
	}

	database, err := db.OpenWithDriver(cfg.Database.Driver, dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := cmd.Context()
	if err := database.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	fmt.Fprintf(out, "✓ Initialized database at %s\n", dbPath)

	if exists(snapshotPath) {
		if err := database.ImportSnapshot(ctx, snapshotPath); err != nil {
			return fmt.Errorf("failed to import snapshot: %w", err)
		}
		fmt.Fprintf(out, "✓ Imported snapshot from %s\n", snapshotPath)
	}

	fmt.Fprintln(out, "✓ Tally initialized successfully")
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return !errors.Is(err, fs.ErrNotExist)
}

func newSnapshotCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Export or import the ledger as JSONL",
	}

	pathOr := func(a *app, args []string) string {
		if len(args) > 0 {
			return args[0]
		}
		return a.cfg.Database.SnapshotPath
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "export [path]",
			Short: "Write the ledger to a snapshot file",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(cmd.Context(), opts)
				if err != nil {
					return err
				}
				defer a.Close()

				path := pathOr(a, args)
				if err := a.db.ExportSnapshot(cmd.Context(), path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported snapshot to %s\n", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "import [path]",
			Short: "Load a snapshot file into the ledger",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				a, err := openApp(cmd.Context(), opts)
				if err != nil {
					return err
				}
				defer a.Close()

				path := pathOr(a, args)
				if err := a.db.ImportSnapshot(cmd.Context(), path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported snapshot from %s\n", path)
				return nil
			},
		},
	)
	return cmd
}
