package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"vigil/internal/supervisor"
	"vigil/internal/vigilerr"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run and inspect the periodic verification monitor",
	}
	cmd.AddCommand(newWatchStartCommand(ctx))
	cmd.AddCommand(newWatchStopCommand(ctx))
	cmd.AddCommand(newWatchStatusCommand(ctx))
	return cmd
}

func newWatchStartCommand(ctx *commandContext) *cobra.Command {
	var intervalSeconds int
	var timeoutSeconds int

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Verify the tree on an interval until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if intervalSeconds < 1 {
				return vigilerr.Wrap(vigilerr.ErrValidation, "watch",
					fmt.Sprintf("interval must be at least 1 second, got %d", intervalSeconds), nil)
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			mon, err := ctx.watchMonitor()
			if err != nil {
				return err
			}
			opts, policy, err := ctx.scanOptions("", nil, nil, timeoutSeconds)
			if err != nil {
				return err
			}

			store, err := ctx.openAnnotations()
			if err != nil {
				return err
			}
			defer store.Close()

			if opts.Annotations, err = loadAnnotations(cmd, store, policy); err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			handle := mon.Start()
			defer mon.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s every %ds (instance %s); interrupt to stop\n",
				opts.Root, intervalSeconds, handle.ID())

			sup := supervisor.New(logger, store)
			ticker := time.NewTicker(time.Duration(intervalSeconds) * time.Second)
			defer ticker.Stop()

			for {
				result, err := sup.Verify(runCtx, opts)
				switch {
				case err != nil && runCtx.Err() != nil:
					return nil
				case err != nil:
					logger.Error("watch cycle failed", slog.Any("error", err))
				case !result.Report.Pass:
					logger.Warn("watch cycle found deviations",
						slog.Int("deviations", result.Report.Deviations()),
						slog.Bool("critical", result.Report.CriticalFailure))
				}

				select {
				case <-runCtx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}

	cmd.Flags().IntVar(&intervalSeconds, "interval", 300, "Seconds between verification cycles")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "Per-cycle scan deadline in seconds (0 uses config)")
	return cmd
}

func newWatchStopCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the watch monitor owned by this process",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mon, err := ctx.watchMonitor()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if mon.Stop() {
				fmt.Fprintln(out, "Watch monitor stopped")
				return nil
			}
			fmt.Fprintln(out, "Watch monitor was not running")
			return nil
		},
	}
}

func newWatchStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report the watch monitor lifecycle state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mon, err := ctx.watchMonitor()
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				payload := map[string]any{"state": string(mon.State())}
				if handle, ok := mon.Active(); ok {
					payload["id"] = handle.ID()
					payload["started_at"] = handle.StartedAt().Format(time.RFC3339)
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "State: %s\n", mon.State())
			if handle, ok := mon.Active(); ok {
				fmt.Fprintf(out, "Instance: %s\n", handle.ID())
				fmt.Fprintf(out, "Started: %s\n", handle.StartedAt().Format(time.RFC3339))
			}
			return nil
		},
	}
}
