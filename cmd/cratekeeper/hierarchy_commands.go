package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cratekeeper/cratekeeper/internal/service"
)

func newHierarchyCommand(ctx *commandContext) *cobra.Command {
	hierarchyCmd := &cobra.Command{
		Use:   "hierarchy",
		Short: "Query and edit the tag parent/child hierarchy",
	}

	hierarchyCmd.AddCommand(newHierarchyAddCommand(ctx))
	hierarchyCmd.AddCommand(newHierarchyRemoveCommand(ctx))
	hierarchyCmd.AddCommand(newHierarchyAncestorsCommand(ctx))
	hierarchyCmd.AddCommand(newHierarchyDescendantsCommand(ctx))
	hierarchyCmd.AddCommand(newHierarchySuggestCommand(ctx))
	hierarchyCmd.AddCommand(newHierarchyStatsCommand(ctx))

	return hierarchyCmd
}

func newHierarchyAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <parent> <child>",
		Short: "Add a parent/child relation between two tags",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *service.TagService) error {
				if err := svc.AddRelationship(cmd.Context(), args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", args[0], args[1])
				return nil
			})
		},
	}
}

func newHierarchyRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <parent> <child>",
		Short: "Remove a parent/child relation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *service.TagService) error {
				return svc.RemoveRelationship(cmd.Context(), args[0], args[1])
			})
		},
	}
}

func newHierarchyAncestorsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ancestors <tag>",
		Short: "List every transitive parent of a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *service.TagService) error {
				tags, err := svc.Ancestors(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, t := range tags {
					fmt.Fprintln(cmd.OutOrStdout(), t.Name)
				}
				return nil
			})
		},
	}
}

func newHierarchyDescendantsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "descendants <tag>",
		Short: "List every transitive child of a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *service.TagService) error {
				tags, err := svc.Descendants(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, t := range tags {
					fmt.Fprintln(cmd.OutOrStdout(), t.Name)
				}
				return nil
			})
		},
	}
}

func newHierarchySuggestCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <tag>",
		Short: "Suggest hierarchy placements for a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *service.TagService) error {
				suggestions := svc.SuggestParents(args[0])
				out := cmd.OutOrStdout()
				if len(suggestions) == 0 {
					fmt.Fprintln(out, "No suggestions")
					return nil
				}
				for _, s := range suggestions {
					fmt.Fprintf(out, "%.2f  %s\n", s.Confidence, s.Parent)
				}
				return nil
			})
		},
	}
}

func newHierarchyStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the shape of the hierarchy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withService(func(svc *service.TagService) error {
				stats := svc.HierarchyStats()
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "tags:          %d\n", stats.Tags)
				fmt.Fprintf(out, "edges:         %d\n", stats.Edges)
				fmt.Fprintf(out, "roots:         %d\n", stats.Roots)
				fmt.Fprintf(out, "leaves:        %d\n", stats.Leaves)
				fmt.Fprintf(out, "intermediates: %d\n", stats.Intermediates)
				fmt.Fprintf(out, "avg fan-out:   %.2f\n", stats.AvgFanOut)
				return nil
			})
		},
	}
}
