package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cratekeeper/cratekeeper/internal/service"
)

func newUnmappedCommand(ctx *commandContext) *cobra.Command {
	unmappedCmd := &cobra.Command{
		Use:   "unmapped",
		Short: "Review raw tag strings that matched no known vocabulary",
	}

	unmappedCmd.AddCommand(newUnmappedListCommand(ctx))
	unmappedCmd.AddCommand(newUnmappedResolveCommand(ctx))

	return unmappedCmd
}

func newUnmappedListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List unmapped raw strings, most frequent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *service.TagService) error {
				unmapped, err := svc.ListUnmapped(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(unmapped) == 0 {
					fmt.Fprintln(out, "No unmapped tags")
					return nil
				}
				for _, u := range unmapped {
					fmt.Fprintf(out, "%4d  %s  (first seen %s)\n",
						u.AlbumCount, u.RawValue, u.FirstSeen.Format("2006-01-02"))
				}
				return nil
			})
		},
	}
}

func newUnmappedResolveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <raw> <canonical>",
		Short: "Map a raw string to a canonical tag and mark it handled",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *service.TagService) error {
				return svc.ResolveUnmapped(cmd.Context(), args[0], args[1])
			})
		},
	}
}
