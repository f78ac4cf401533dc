package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/lineage-core/internal/application/handlers"
)

type importFlags struct {
	format string
	dryRun bool
}

func newImportCmd() *cobra.Command {
	var flags importFlags

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import persons, unions and parent links from JSON or CSV",
		Long: `Imports a family dataset. Records that break a rule (a cycle, a third
biological parent) are reported and skipped; the rest are kept.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, args[0], flags)
		},
	}

	cmd.Flags().StringVarP(&flags.format, "format", "f", "auto", "File format (json, csv, auto)")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Validate without saving")

	return cmd
}

func runImport(cmd *cobra.Command, filePath string, flags importFlags) error {
	return withDeps(cmd, func(d *Deps) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Importing %s...\n", filePath)

		result, err := d.Import.Handle(cmd.Context(), d.Scope, filePath, handlers.ImportOptions{
			Format: flags.format,
			DryRun: flags.dryRun,
		})
		if err != nil {
			return fmt.Errorf("importing file: %w", err)
		}

		if len(result.Errors) > 0 {
			fmt.Fprintf(out, "\nErrors (%d):\n", len(result.Errors))
			for _, e := range result.Errors {
				fmt.Fprintf(out, "  %s\n", e.Error())
			}
		}

		fmt.Fprintln(out)
		verb := "Imported"
		if flags.dryRun {
			verb = "Dry run, would import"
		}
		fmt.Fprintf(out, "%s: %d persons, %d unions, %d parent links", verb, result.Persons, result.Unions, result.Edges)
		if result.Skipped > 0 {
			fmt.Fprintf(out, ", %d skipped", result.Skipped)
		}
		fmt.Fprintln(out)

		return nil
	})
}
