package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/lineage-core/internal/application/handlers"
)

type personAddFlags struct {
	given   string
	surname string
	sex     string
	birth   string
	death   string
	names   []string
	format  string
}

func newPersonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "person",
		Short: "Manage persons",
	}

	cmd.AddCommand(
		newPersonAddCmd(),
		newPersonListCmd(),
		newPersonShowCmd(),
	)

	return cmd
}

func newPersonAddCmd() *cobra.Command {
	var flags personAddFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a person to the tree",
		Long: `Adds a person. Dates accept YYYY-MM-DD, YYYY or ~YYYY (approximate).

Examples:
  lineage person add --given John --surname Smith --sex m --birth 1900
  lineage person add --given Ada --name "fr:Adélaïde:Lovelace"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPersonAdd(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.given, "given", "", "Given name")
	cmd.Flags().StringVar(&flags.surname, "surname", "", "Surname")
	cmd.Flags().StringVar(&flags.sex, "sex", "", "Sex: male, female, unknown (m, f, u)")
	cmd.Flags().StringVar(&flags.birth, "birth", "", "Birth date")
	cmd.Flags().StringVar(&flags.death, "death", "", "Death date")
	cmd.Flags().StringArrayVar(&flags.names, "name", nil, "Localized name as locale:given:surname (repeatable)")
	cmd.Flags().StringVar(&flags.format, "format", "text", "Output format: text, json")

	return cmd
}

func runPersonAdd(cmd *cobra.Command, flags personAddFlags) error {
	if err := validateFormat(flags.format, "text", "json"); err != nil {
		return err
	}

	req := handlers.AddPersonRequest{
		GivenName: flags.given,
		Surname:   flags.surname,
		Sex:       flags.sex,
		Birth:     flags.birth,
		Death:     flags.death,
	}
	for _, raw := range flags.names {
		name, err := parseLocalizedName(raw)
		if err != nil {
			return err
		}
		req.Names = append(req.Names, name)
	}

	return withDeps(cmd, func(d *Deps) error {
		person, err := d.Persons.HandleAdd(cmd.Context(), d.Scope, req)
		if err != nil {
			return err
		}

		if flags.format == "json" {
			return printJSON(cmd.OutOrStdout(), person)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", personLabel(person))
		return nil
	})
}

// parseLocalizedName parses "locale:given:surname"; the surname is optional.
func parseLocalizedName(raw string) (handlers.NameRequest, error) {
	parts := strings.SplitN(raw, ":", 3)
	if len(parts) < 2 {
		return handlers.NameRequest{}, fmt.Errorf("invalid --name %q (use locale:given:surname)", raw)
	}
	name := handlers.NameRequest{Locale: parts[0], GivenName: parts[1]}
	if len(parts) == 3 {
		name.Surname = parts[2]
	}
	return name, nil
}

type personListFlags struct {
	limit  int
	offset int
	search string
	format string
}

func newPersonListCmd() *cobra.Command {
	var flags personListFlags

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List or search persons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPersonList(cmd, flags)
		},
	}

	cmd.Flags().IntVarP(&flags.limit, "limit", "l", DefaultListLimit, "Maximum persons to show")
	cmd.Flags().IntVar(&flags.offset, "offset", 0, "Persons to skip")
	cmd.Flags().StringVarP(&flags.search, "search", "s", "", "Match names, including localized names")
	cmd.Flags().StringVar(&flags.format, "format", "text", "Output format: text, json")

	return cmd
}

func runPersonList(cmd *cobra.Command, flags personListFlags) error {
	if err := validateFormat(flags.format, "text", "json"); err != nil {
		return err
	}

	return withDeps(cmd, func(d *Deps) error {
		var (
			result *handlers.PersonListResult
			err    error
		)
		if flags.search != "" {
			result, err = d.Persons.HandleSearch(cmd.Context(), d.Scope, flags.search, flags.limit)
		} else {
			result, err = d.Persons.HandleList(cmd.Context(), d.Scope, flags.limit, flags.offset)
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if flags.format == "json" {
			return printJSON(out, result)
		}
		if len(result.Persons) == 0 {
			fmt.Fprintln(out, "No persons found.")
			return nil
		}
		for i := range result.Persons {
			fmt.Fprintln(out, personLabel(&result.Persons[i]))
		}
		fmt.Fprintf(out, "\n%d of %d persons\n", len(result.Persons), result.Total)
		return nil
	})
}

func newPersonShowCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "show <person>",
		Short: "Show a person and their history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format, "text", "json"); err != nil {
				return err
			}
			return withDeps(cmd, func(d *Deps) error {
				details, err := d.Persons.HandleShow(cmd.Context(), d.Scope, args[0])
				if err != nil {
					return err
				}
				if format == "json" {
					return printJSON(cmd.OutOrStdout(), details)
				}
				printPersonDetails(cmd.OutOrStdout(), details)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text, json")

	return cmd
}
