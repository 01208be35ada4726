package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cratekeeper/cratekeeper/internal/service"
)

func newValidateCommand(ctx *commandContext) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <tag>...",
		Short: "Run the ingestion quality gate over raw tag strings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *service.TagService) error {
				out := cmd.OutOrStdout()
				accepted, rejected, report := svc.FilterTags(args, strict)

				for _, raw := range args {
					findings := report.Findings[raw]
					if len(findings) == 0 {
						fmt.Fprintf(out, "%s: ok\n", raw)
						continue
					}
					fmt.Fprintf(out, "%s:\n", raw)
					for _, f := range findings {
						fmt.Fprintf(out, "  %-7s %s: %s", f.Severity, f.Category, f.Message)
						if f.SuggestedFix != "" {
							fmt.Fprintf(out, " (fix: %q)", f.SuggestedFix)
						}
						fmt.Fprintln(out)
					}
				}

				fmt.Fprintf(out, "\naccepted %d, rejected %d\n", len(accepted), len(rejected))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Reject tags with warnings, not just errors")
	return cmd
}
