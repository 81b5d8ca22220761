package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/probitylabs/probity/pkg/index"
)

// listOpts holds the command-line flags for the list command.
type listOpts struct {
	fresh        bool // bypass the response cache
	noJSON       bool // use the simple listing instead of the JSON index
	asJSON       bool // emit the parsed catalog as JSON
	justVersions bool // one version per line, for scripting
}

// newListCmd creates the list command, which prints everything the
// index knows about a package: releases in ascending version order and
// the files published for each.
func newListCmd(cfgPath *string) *cobra.Command {
	var opts listOpts

	cmd := &cobra.Command{
		Use:   "list <package>",
		Short: "List the releases and files the index knows about",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.close()

			pkg, err := app.catalog.Package(cmd.Context(), args[0], !opts.noJSON, opts.fresh)
			if err != nil {
				return err
			}
			return printPackage(pkg, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.fresh, "fresh", false, "bypass the response cache")
	cmd.Flags().BoolVar(&opts.noJSON, "no-json", false, "use the simple index listing")
	cmd.Flags().BoolVar(&opts.asJSON, "as-json", false, "print the catalog as JSON")
	cmd.Flags().BoolVar(&opts.justVersions, "just-versions", false, "print one version per line")

	return cmd
}

func printPackage(pkg *index.Package, opts listOpts) error {
	if opts.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pkg)
	}
	if opts.justVersions {
		for _, rel := range pkg.Releases {
			fmt.Println(rel.Version)
		}
		return nil
	}

	printKeyValue("package", pkg.Name)
	fmt.Println("releases:")
	for _, rel := range pkg.Releases {
		line := "  " + StyleHighlight.Render(rel.Version)
		if rel.Yanked {
			line += " " + StyleWarning.Render("(yanked)")
		}
		fmt.Println(line)
		for _, a := range rel.Artifacts {
			note := a.Kind.String()
			if a.RequiresPython != "" {
				note += ", requires-python " + a.RequiresPython
			}
			printDetail("%s (%s)", a.Filename, note)
		}
	}
	return nil
}
