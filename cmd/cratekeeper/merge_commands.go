package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cratekeeper/cratekeeper/internal/service"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	mergeCmd := &cobra.Command{
		Use:   "merge",
		Short: "Preview, queue and apply tag merges",
	}

	mergeCmd.AddCommand(newMergePreviewCommand(ctx))
	mergeCmd.AddCommand(newMergeApplyCommand(ctx))

	return mergeCmd
}

func newMergePreviewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <primary> <tag>...",
		Short: "Show what merging tags into a primary would do",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *service.TagService) error {
				preview, err := svc.PreviewMerge(cmd.Context(), args[0], args[1:])
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "primary: %s (frequency %d)\n", preview.Primary.Name, preview.Primary.Frequency)
				for _, t := range preview.TagsToMerge {
					fmt.Fprintf(out, "  merge: %s (frequency %d)\n", t.Name, t.Frequency)
				}
				fmt.Fprintf(out, "affected albums: %d, frequency change: %+d\n",
					preview.AffectedAlbums, preview.FrequencyChange)

				for _, c := range preview.Conflicts {
					kind := "advisory"
					if c.Blocking() {
						kind = "blocking"
					}
					fmt.Fprintf(out, "conflict (%s) %s: %s\n", kind, c.Type, c.Message)
				}
				return nil
			})
		},
	}
}

// Queue and apply run in one invocation: the queue lives in memory, so a
// separate process could never apply it.
func newMergeApplyCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "apply <primary> <tag>...",
		Short: "Queue a merge and apply it",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *service.TagService) error {
				out := cmd.OutOrStdout()

				queued, err := svc.QueueMerge(cmd.Context(), args[0], args[1:], force)
				if err != nil {
					return err
				}
				if !queued {
					fmt.Fprintln(out, "merge rejected by conflict policy (use --force to override)")
					return nil
				}

				records, err := svc.ApplyPendingMerges(cmd.Context())
				if err != nil {
					return err
				}
				for _, rec := range records {
					fmt.Fprintf(out, "%s: %s <- %v\n", rec.Status, rec.PrimaryName, rec.MergedNames)
					if rec.Error != "" {
						fmt.Fprintf(out, "  error: %s\n", rec.Error)
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Bypass blocking conflicts")
	return cmd
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the merge and migration audit log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *service.TagService) error {
				records, err := svc.MergeHistory(cmd.Context(), limit)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "No history")
					return nil
				}
				for _, rec := range records {
					fmt.Fprintf(out, "%s  %-8s %s", rec.CreatedAt.Format("2006-01-02 15:04:05"), rec.Status, rec.PrimaryName)
					if len(rec.MergedNames) > 0 {
						fmt.Fprintf(out, " <- %v", rec.MergedNames)
					}
					if rec.Forced {
						fmt.Fprint(out, " (forced)")
					}
					if rec.Notes != "" {
						fmt.Fprintf(out, "  %s", rec.Notes)
					}
					fmt.Fprintln(out)
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum records to show (0 for all)")
	return cmd
}
