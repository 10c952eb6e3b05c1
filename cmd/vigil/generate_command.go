package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"vigil/internal/supervisor"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var rootFlag string
	var patterns []string
	var excludes []string
	var timeoutSeconds int

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Scan the tree and write a fresh baseline manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			opts, _, err := ctx.scanOptions(rootFlag, patterns, excludes, timeoutSeconds)
			if err != nil {
				return err
			}

			history, err := ctx.openAnnotations()
			if err != nil {
				return err
			}
			defer history.Close()

			sup := supervisor.New(logger, history)
			result, err := sup.Generate(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, result.Baseline)
			}

			var totalBytes uint64
			for _, rec := range result.Baseline.Files {
				totalBytes += uint64(rec.Size)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Baseline written to %s\n", opts.ManifestPath)
			fmt.Fprintf(out, "Fingerprinted %d files (%s) in %s\n",
				len(result.Baseline.Files),
				humanize.IBytes(totalBytes),
				result.Statistics.Elapsed.Round(timeRounding))
			fmt.Fprintf(out, "Visited %d entries, excluded %d, skipped %d\n",
				result.Statistics.Visited,
				result.Statistics.Excluded,
				result.Statistics.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&rootFlag, "root", "", "Directory tree to baseline (overrides config)")
	cmd.Flags().StringArrayVar(&patterns, "pattern", nil, "Include glob pattern (repeatable)")
	cmd.Flags().StringArrayVar(&excludes, "exclude", nil, "Exclude glob pattern (repeatable)")
	cmd.Flags().IntVar(&timeoutSeconds, "timeout", 0, "Scan deadline in seconds (0 uses config)")
	return cmd
}
