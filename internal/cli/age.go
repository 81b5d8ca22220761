package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// newAgeCmd creates the age command, which prints when each release was
// uploaded and how old it is. With --base the ages are computed against
// a fixed date instead of now, which makes the output reproducible.
func newAgeCmd(cfgPath *string) *cobra.Command {
	var (
		fresh bool
		base  string
	)

	cmd := &cobra.Command{
		Use:   "age <package>",
		Short: "Show release upload dates and ages in days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := time.Now().UTC()
			if base != "" {
				var err error
				ref, err = time.Parse("2006-01-02", base)
				if err != nil {
					return fmt.Errorf("invalid --base date %q (want yyyy-mm-dd): %w", base, err)
				}
			}

			app, err := newApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.close()

			// Only the JSON index carries upload times.
			pkg, err := app.catalog.Package(cmd.Context(), args[0], true, fresh)
			if err != nil {
				return err
			}

			for _, rel := range pkg.Releases {
				uploaded := rel.EarliestUpload()
				if uploaded.IsZero() {
					fmt.Printf("%s\t(no files)\n", rel.Version)
					continue
				}
				days := ref.Sub(uploaded).Hours() / 24
				fmt.Printf("%s\t%s\t%.2f\n", rel.Version, uploaded.Format("2006-01-02"), days)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&fresh, "fresh", false, "bypass the response cache")
	cmd.Flags().StringVar(&base, "base", "", "compute ages against this date (yyyy-mm-dd)")

	return cmd
}
