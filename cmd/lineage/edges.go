package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/lineage-core/internal/application/handlers"
)

func newParentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parent",
		Short: "Link and unlink parents and children",
	}

	cmd.AddCommand(
		newParentAddCmd(),
		newParentRemoveCmd(),
	)

	return cmd
}

func newParentAddCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "add <parent> <child>",
		Short: "Record a parent of a child",
		Long: `Links a parent to a child. Persons are given by ID or unique name.

The link is refused when it would make someone their own ancestor, give a
child a third biological parent, or two biological parents of the same sex.

Examples:
  lineage parent add "John Smith" "Tom Smith"
  lineage parent add 3f2a9c1e "Ann Lee" --kind adoptive`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(d *Deps) error {
				edge, err := d.Edges.HandleAddParent(cmd.Context(), d.Scope, handlers.AddParentRequest{
					Parent: args[0],
					Child:  args[1],
					Kind:   kind,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Linked %s parent (edge %s)\n", edge.Kind, edge.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "biological", "Link kind: biological, adoptive, step, foster")

	return cmd
}

func newParentRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <edge-id>",
		Short: "Remove a parent-child link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(d *Deps) error {
				if err := d.Edges.HandleRemoveParent(cmd.Context(), d.Scope, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed edge %s\n", args[0])
				return nil
			})
		},
	}
}

type unionCreateFlags struct {
	unionType string
	start     string
	end       string
}

func newUnionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "union",
		Short: "Manage unions and their children",
	}

	cmd.AddCommand(
		newUnionCreateCmd(),
		newUnionMemberCmd("add-member", "Add a person to a union"),
		newUnionMemberCmd("remove-member", "Remove a person from a union"),
		newUnionAddChildCmd(),
		newUnionRemoveChildCmd(),
	)

	return cmd
}

func newUnionCreateCmd() *cobra.Command {
	var flags unionCreateFlags

	cmd := &cobra.Command{
		Use:   "create <member>...",
		Short: "Create a union of one or more persons",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(d *Deps) error {
				union, err := d.Edges.HandleCreateUnion(cmd.Context(), d.Scope, handlers.CreateUnionRequest{
					Type:    flags.unionType,
					Start:   flags.start,
					End:     flags.end,
					Members: args,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s\n", union.Type, union.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.unionType, "type", "marriage", "Union type: marriage, civil_union, partnership, engagement, other")
	cmd.Flags().StringVar(&flags.start, "start", "", "Start date")
	cmd.Flags().StringVar(&flags.end, "end", "", "End date")

	return cmd
}

func newUnionMemberCmd(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <union-id> <person>",
		Short: short,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(d *Deps) error {
				ctx := cmd.Context()
				if use == "add-member" {
					if _, err := d.Edges.HandleAddMember(ctx, d.Scope, args[0], args[1]); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Added %s to union %s\n", args[1], args[0])
					return nil
				}
				if err := d.Edges.HandleRemoveMember(ctx, d.Scope, args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s from union %s\n", args[1], args[0])
				return nil
			})
		},
	}
}

func newUnionAddChildCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "add-child <union-id> <child>",
		Short: "Link a child to every member of a union",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(d *Deps) error {
				result, err := d.Edges.HandleAddChild(cmd.Context(), d.Scope, handlers.UnionChildRequest{
					UnionID: args[0],
					Child:   args[1],
					Kind:    kind,
				})
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Linked %d parent(s)\n", len(result.Created))
				for _, s := range result.Skipped {
					fmt.Fprintf(out, "  skipped %s: %s\n", s.Person.DisplayName(), s.Message)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "biological", "Link kind: biological, adoptive, step, foster")

	return cmd
}

func newUnionRemoveChildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-child <union-id> <child>",
		Short: "Unlink a child from every member of a union",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDeps(cmd, func(d *Deps) error {
				removed, err := d.Edges.HandleRemoveChild(cmd.Context(), d.Scope, args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d link(s)\n", removed)
				return nil
			})
		},
	}
}
