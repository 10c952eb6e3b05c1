package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent generate and verify runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openAnnotations()
			if err != nil {
				return err
			}
			defer store.Close()

			n := limit
			if n <= 0 {
				n = cfg.History.Limit
			}
			runs, err := store.RecentRuns(cmd.Context(), n)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, runs)
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No scan history recorded")
				return nil
			}

			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.StartedAt.UTC().Format(time.RFC3339),
					string(run.Kind),
					run.State,
					strconv.Itoa(run.Included),
					strconv.Itoa(run.Deviations),
					yesNo(run.Critical),
					run.Elapsed.Round(timeRounding).String(),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Started", "Kind", "State", "Files", "Deviations", "Critical", "Elapsed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Number of runs to show (0 uses config)")
	return cmd
}
