package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cratekeeper/cratekeeper/internal/service"
)

func newNormalizeCommand(ctx *commandContext) *cobra.Command {
	var showDecomposition bool

	cmd := &cobra.Command{
		Use:   "normalize <tag>...",
		Short: "Print the canonical form and category of raw tag strings",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *service.TagService) error {
				out := cmd.OutOrStdout()
				for _, raw := range args {
					normalized := svc.Normalize(raw)
					if normalized == "" {
						fmt.Fprintf(out, "%-30s -> (empty)\n", raw)
						continue
					}
					fmt.Fprintf(out, "%-30s -> %s  [%s]\n", raw, normalized, svc.Category(normalized))

					if showDecomposition {
						if parts, ok := svc.Decompose(normalized); ok {
							fmt.Fprintf(out, "%-30s    decomposes to %s\n", "", strings.Join(parts, ", "))
						}
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&showDecomposition, "decompose", false, "Show atomic decomposition for compound tags")
	return cmd
}
