package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/nick-dorsch/tally/internal/mcp"
	"github.com/nick-dorsch/tally/internal/scheduler"
	"github.com/nick-dorsch/tally/internal/server"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *options) *cobra.Command {
	var (
		port       int
		noSchedule bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the missed-occurrence scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if port == 0 {
				port = a.cfg.Server.Port
			}

			errCh := make(chan error, 2)

			if !noSchedule {
				interval, err := a.cfg.MinInterval()
				if err != nil {
					return err
				}
				sched, err := scheduler.New(a.engine, a.db, a.cfg.Scheduler.Spec,
					scheduler.Throttle{MinInterval: interval},
					scheduler.WithLogger(a.log),
				)
				if err != nil {
					return err
				}
				go func() { errCh <- sched.Start(ctx) }()
			}

			srv := server.NewServer(a.engine, a.log)
			go func() {
				if err := srv.Start(fmt.Sprintf(":%d", port)); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				if err != nil {
					stop()
					return err
				}
				<-ctx.Done()
			}

			a.log.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Port to listen on (default from config)")
	cmd.Flags().BoolVar(&noSchedule, "no-schedule", false, "Do not run the missed-occurrence scheduler")
	return cmd
}

func newMCPCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the analytics tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			return mcp.Serve(mcp.NewServer(a.engine))
		},
	}
}
