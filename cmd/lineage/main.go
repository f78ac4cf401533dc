// Package main provides the entry point for the lineage CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ersonp/lineage-core/internal/domain/entities"
)

var (
	version    = "0.1.0-dev"
	globalTree string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func run(ctx context.Context, args []string) error {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lineage",
		Short:         "A family tree store with pedigree views and kinship analysis",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&globalTree, "tree", "t", os.Getenv("LINEAGE_TREE"),
		"Tree to operate on (or set LINEAGE_TREE)")

	rootCmd.AddCommand(
		newTreesCmd(),
		newPersonCmd(),
		newParentCmd(),
		newUnionCmd(),
		newTreeCmd(),
		newFamilyCmd(),
		newRelationshipCmd(),
		newPathCmd(),
		newImportCmd(),
	)

	return rootCmd
}

// exitCode maps an error to a process exit status.
func exitCode(err error) int {
	switch entities.CodeOf(err) {
	case entities.CodeValidation:
		return 2
	case entities.CodeNotFound:
		return 3
	case entities.CodeForbidden:
		return 4
	case entities.CodeCancelled:
		return 130
	default:
		return 1
	}
}
