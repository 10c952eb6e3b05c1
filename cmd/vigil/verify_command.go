package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vigil/internal/supervisor"
	"vigil/internal/verify"
)

const timeRounding = time.Millisecond

// errDriftDetected signals a completed verification that found deviations.
// main maps it to the drift exit code after the report has been printed.
var errDriftDetected = errors.New("integrity deviations detected")

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var rootFlag string
	var timeoutSeconds int

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Re-scan the tree and report deviations from the baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			opts, policy, err := ctx.scanOptions(rootFlag, nil, nil, timeoutSeconds)
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

			sup := supervisor.New(logger, store)
			result, err := sup.Verify(cmd.Context(), opts)
			if err != nil {
				return err
			}

			report := result.Report
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				renderReport(cmd, report)
			}

			if !report.Pass {
				return errDriftDetected
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rootFlag, "root", "", "Directory tree to verify (overrides config)")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "Scan deadline in seconds (0 uses config)")
	return cmd
}

func renderReport(cmd *cobra.Command, report *verify.Report) {
	out := cmd.OutOrStdout()

	if report.Deviations() > 0 {
		rows := make([][]string, 0, report.Deviations())
		rows = appendFindings(rows, "modified", report.Modified)
		rows = appendFindings(rows, "missing", report.Missing)
		rows = appendFindings(rows, "unauthorized", report.Unauthorized)
		fmt.Fprintln(out, renderTable(
			[]string{"Status", "Path", "Critical", "Detail"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft},
		))
	}

	fmt.Fprintf(out, "Passed %d, modified %d, missing %d, unauthorized %d (%s)\n",
		len(report.Passed),
		len(report.Modified),
		len(report.Missing),
		len(report.Unauthorized),
		report.Elapsed.Round(timeRounding))

	switch {
	case report.Pass:
		fmt.Fprintln(out, "Verification passed")
	case report.CriticalFailure:
		fmt.Fprintln(out, "Verification FAILED: critical paths deviated")
	default:
		fmt.Fprintln(out, "Verification failed")
	}
}

func appendFindings(rows [][]string, status string, findings []verify.Finding) [][]string {
	for _, f := range findings {
		rows = append(rows, []string{status, f.Path, yesNo(f.Critical), f.Detail})
	}
	return rows
}
