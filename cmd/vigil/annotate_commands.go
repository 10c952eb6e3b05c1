package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vigil/internal/annotations"
)

func newWhitelistCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Manage expected-but-unbaselined paths",
	}
	cmd.AddCommand(newAnnotationAddCommand(ctx, annotations.KindWhitelist, "add",
		"Exempt a path from unauthorized-file detection"))
	cmd.AddCommand(newAnnotationRemoveCommand(ctx, annotations.KindWhitelist, "remove",
		"Drop a whitelist entry"))
	cmd.AddCommand(newAnnotationListCommand(ctx, annotations.KindWhitelist,
		"List whitelist entries"))
	return cmd
}

func newCriticalCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "critical",
		Short: "Manage paths whose deviation blocks verification",
	}
	cmd.AddCommand(newAnnotationAddCommand(ctx, annotations.KindCritical, "mark",
		"Elevate deviations on a path to blocking severity"))
	cmd.AddCommand(newAnnotationRemoveCommand(ctx, annotations.KindCritical, "unmark",
		"Drop a critical mark"))
	cmd.AddCommand(newAnnotationListCommand(ctx, annotations.KindCritical,
		"List critical marks"))
	return cmd
}

func newAnnotationAddCommand(ctx *commandContext, kind annotations.Kind, use, short string) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   use + " <path>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openAnnotations()
			if err != nil {
				return err
			}
			defer store.Close()

			entry, err := store.Add(cmd.Context(), kind, args[0], note)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s annotation for %s\n", kind, entry.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "Optional operator note stored with the entry")
	return cmd
}

func newAnnotationRemoveCommand(ctx *commandContext, kind annotations.Kind, use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <path>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openAnnotations()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Remove(cmd.Context(), kind, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if removed {
				fmt.Fprintf(out, "Removed %s annotation for %s\n", kind, args[0])
			} else {
				fmt.Fprintf(out, "No %s annotation found for %s\n", kind, args[0])
			}
			return nil
		},
	}
}

func newAnnotationListCommand(ctx *commandContext, kind annotations.Kind, short string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openAnnotations()
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), kind)
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, entries)
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No %s entries\n", kind)
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.Path,
					e.Note,
					e.CreatedAt.UTC().Format(time.RFC3339),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Path", "Note", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
}
