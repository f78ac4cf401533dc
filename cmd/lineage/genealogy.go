package main

import (
	"github.com/spf13/cobra"

	"github.com/ersonp/lineage-core/internal/application/handlers"
)

type treeFlags struct {
	mode        string
	generations int
	format      string
}

func newTreeCmd() *cobra.Command {
	var flags treeFlags

	cmd := &cobra.Command{
		Use:   "tree <person>",
		Short: "Show ancestors, descendants or both",
		Long: `Builds a family tree around a person.

Modes:
  pedigree     ancestors of the person
  descendants  children, grandchildren and their unions
  hourglass    both directions

Examples:
  lineage tree "John Smith"
  lineage tree "John Smith" --mode descendants --generations 3
  lineage tree 3f2a9c1e --mode hourglass --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTree(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.mode, "mode", "m", "pedigree", "Tree mode: pedigree, descendants, hourglass")
	cmd.Flags().IntVarP(&flags.generations, "generations", "g", 0, "Generations to show (0 for the configured default)")
	cmd.Flags().StringVar(&flags.format, "format", "tree", "Output format: tree, json")

	return cmd
}

func runTree(cmd *cobra.Command, ref string, flags treeFlags) error {
	if err := validateFormat(flags.format, "tree", "json"); err != nil {
		return err
	}

	return withDeps(cmd, func(d *Deps) error {
		result, err := d.Genealogy.HandleTree(cmd.Context(), d.Scope, handlers.TreeRequest{
			Person:      ref,
			Mode:        flags.mode,
			Generations: flags.generations,
		})
		if err != nil {
			return err
		}

		if flags.format == "json" {
			return printJSON(cmd.OutOrStdout(), result)
		}
		printTree(cmd.OutOrStdout(), result)
		return nil
	})
}

func newFamilyCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "family <person>",
		Short: "Show a person's parents, unions and children",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, "text", "json"); err != nil {
				return err
			}
			return withDeps(cmd, func(d *Deps) error {
				group, err := d.Genealogy.HandleFamily(cmd.Context(), d.Scope, args[0])
				if err != nil {
					return err
				}
				if format == "json" {
					return printJSON(cmd.OutOrStdout(), group)
				}
				printFamily(cmd.OutOrStdout(), group)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json")

	return cmd
}

func newRelationshipCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "relationship <a> <b>",
		Short: "Describe how A is related to B by blood",
		Long: `Finds the closest common ancestors of two persons and names the
relationship of the first to the second.

Examples:
  lineage relationship "Tom Smith" "Ann Smith"
  lineage relationship 3f2a9c1e 9b1d77aa --format json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, "text", "json"); err != nil {
				return err
			}
			return withDeps(cmd, func(d *Deps) error {
				result, err := d.Genealogy.HandleRelationship(cmd.Context(), d.Scope, handlers.PairRequest{A: args[0], B: args[1]})
				if err != nil {
					return err
				}
				if format == "json" {
					return printJSON(cmd.OutOrStdout(), result)
				}
				printRelationship(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json")

	return cmd
}

type pathFlags struct {
	maxDepth int
	format   string
}

func newPathCmd() *cobra.Command {
	var flags pathFlags

	cmd := &cobra.Command{
		Use:   "path <a> <b>",
		Short: "Find the shortest chain of family links between two persons",
		Long: `Searches parent, child and union links for the shortest path from A to B
and labels every step.

Examples:
  lineage path "Tom Smith" "Eve Jones"
  lineage path "Tom Smith" "Eve Jones" --max-depth 6`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(flags.format, "text", "json"); err != nil {
				return err
			}
			return withDeps(cmd, func(d *Deps) error {
				result, err := d.Genealogy.HandlePath(cmd.Context(), d.Scope, handlers.PathRequest{
					PairRequest: handlers.PairRequest{A: args[0], B: args[1]},
					MaxDepth:    flags.maxDepth,
				})
				if err != nil {
					return err
				}
				if flags.format == "json" {
					return printJSON(cmd.OutOrStdout(), result)
				}
				printPath(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&flags.maxDepth, "max-depth", 0, "Maximum path length (0 for the configured default)")
	cmd.Flags().StringVar(&flags.format, "format", "text", "Output format: text, json")

	return cmd
}
