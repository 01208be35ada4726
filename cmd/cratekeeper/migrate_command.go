package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cratekeeper/cratekeeper/internal/service"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run the full tag corpus migration pass",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *service.TagService) error {
				stats, err := svc.RunMigration(cmd.Context(), dryRun)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if dryRun {
					fmt.Fprintln(out, "dry run (nothing persisted)")
				}
				fmt.Fprintf(out, "tags processed:   %d\n", stats.TagsProcessed)
				fmt.Fprintf(out, "tags merged:      %d\n", stats.TagsMerged)
				fmt.Fprintf(out, "tags updated:     %d\n", stats.TagsUpdated)
				fmt.Fprintf(out, "variants created: %d\n", stats.VariantsCreated)
				fmt.Fprintf(out, "errors:           %d\n", stats.Errors)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Execute the pass but roll back instead of committing")
	return cmd
}
