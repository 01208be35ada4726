package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cratekeeper/cratekeeper/internal/service"
)

func newCandidatesCommand(ctx *commandContext) *cobra.Command {
	var (
		threshold    float64
		minFrequency int
	)

	cmd := &cobra.Command{
		Use:   "candidates",
		Short: "Suggest likely duplicate tag pairs ranked by impact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *service.TagService) error {
				candidates, err := svc.SuggestMerges(cmd.Context(), threshold, minFrequency)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(candidates) == 0 {
					fmt.Fprintln(out, "No merge candidates found")
					return nil
				}
				for _, c := range candidates {
					fmt.Fprintf(out, "%.2f  %s (%d)  <->  %s (%d)\n",
						c.Score, c.TagA.Name, c.TagA.Frequency, c.TagB.Name, c.TagB.Frequency)
				}
				return nil
			})
		},
	}

	cmd.Flags().Float64Var(&threshold, "threshold", 0.85, "Minimum similarity score")
	cmd.Flags().IntVar(&minFrequency, "min-frequency", 0, "Skip pairs whose combined album count is below this")
	return cmd
}
