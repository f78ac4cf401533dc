package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/lineage-core/internal/application/handlers"
	"github.com/ersonp/lineage-core/internal/infrastructure/config"
)

func newTreesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trees",
		Short: "Manage family trees",
		RunE:  runTreesList,
	}

	cmd.AddCommand(
		newTreesListCmd(),
		newTreesCreateCmd(),
		newTreesDeleteCmd(),
	)

	return cmd
}

func newTreesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all trees",
		RunE:  runTreesList,
	}
}

func runTreesList(cmd *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	trees, err := handlers.NewTreesHandler(openStore).HandleList(cwd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(trees) == 0 {
		fmt.Fprintln(out, "No trees configured.")
		fmt.Fprintln(out, "Use 'lineage trees create NAME' to create a tree.")
		return nil
	}

	fmt.Fprintf(out, "%-20s %-38s %s\n", "NAME", "ID", "DESCRIPTION")
	fmt.Fprintf(out, "%-20s %-38s %s\n", "----", "--", "-----------")

	for _, tree := range trees {
		fmt.Fprintf(out, "%-20s %-38s %s\n", tree.Name, tree.ID, tree.Description)
	}

	return nil
}

func newTreesCreateCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTreesCreate(cmd, args[0], description)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Tree description")

	return cmd
}

func runTreesCreate(cmd *cobra.Command, name, description string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	result, err := handlers.NewTreesHandler(openStore).HandleCreate(cmd.Context(), cwd, handlers.CreateTreeRequest{
		Name:        name,
		Description: description,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if result.Initialized {
		fmt.Fprintf(out, "Initialized lineage in %s\n", config.ConfigDir(cwd))
	}
	fmt.Fprintf(out, "Created tree %q (%s)\n", result.Tree.Name, result.Tree.ID)

	return nil
}

func newTreesDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting current directory: %w", err)
			}
			if err := handlers.NewTreesHandler(openStore).HandleDelete(cmd.Context(), cwd, args[0], force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted tree %q\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Delete even if the tree contains persons")

	return cmd
}
