package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/probitylabs/probity/pkg/archive"
	"github.com/probitylabs/probity/pkg/errors"
)

// newExtractCmd creates the extract command, which fetches a release's
// sdist and unpacks it into a directory. Member paths are validated
// before writing, so a hostile archive cannot escape the destination.
func newExtractCmd(cfgPath *string) *cobra.Command {
	var (
		fresh bool
		dest  string
	)

	cmd := &cobra.Command{
		Use:   "extract <package[==version]>",
		Short: "Unpack a release's source distribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.close()

			releases, err := app.selectReleases(cmd.Context(), args[0], fresh)
			if err != nil {
				return err
			}
			if len(releases) != 1 {
				return fmt.Errorf("extract needs a single release, %q selects %d", args[0], len(releases))
			}
			rel := releases[0]

			sdist := rel.Sdist()
			if sdist == nil {
				return errors.New(errors.ErrCodeNotFound, "%s %s has no source distribution", rel.Name, rel.Version)
			}

			path, err := materialize(cmd, app, rel.Name, *sdist)
			if err != nil {
				return err
			}

			target := filepath.Join(dest, stripArchiveExt(sdist.Filename))
			if err := archive.ExtractTo(path, target); err != nil {
				return err
			}
			printSuccess("Extracted %s %s", rel.Name, rel.Version)
			printFile(target)
			return nil
		},
	}

	cmd.Flags().BoolVar(&fresh, "fresh", false, "bypass the response cache")
	cmd.Flags().StringVarP(&dest, "dest", "d", ".", "directory to extract into")

	return cmd
}

func stripArchiveExt(filename string) string {
	for _, ext := range []string{".tar.gz", ".tar.bz2", ".tgz", ".zip", ".tar"} {
		if strings.HasSuffix(filename, ext) {
			return strings.TrimSuffix(filename, ext)
		}
	}
	return filename
}
