package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/probitylabs/probity/pkg/index"
)

// Download exit code bits, matching the command's documented contract:
// bit 1 for artifact failures, bit 2 for index failures.
const (
	downloadArtifactFailed = 1
	downloadIndexFailed    = 2
)

// exitError wraps an error with an explicit process exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// ExitCode returns the value the process should exit with.
func (e *exitError) ExitCode() int { return e.code }

// downloadOpts holds the command-line flags for the download command.
type downloadOpts struct {
	fresh bool
	all   bool   // every artifact, not just the sdist
	dest  string // copy downloads here instead of only caching them
}

// newDownloadCmd creates the download command. Artifacts land in the
// content-addressed cache with their digests verified; with --dest they
// are additionally copied out to a directory. A failed artifact is
// reported and skipped rather than aborting the rest.
func newDownloadCmd(cfgPath *string) *cobra.Command {
	var opts downloadOpts

	cmd := &cobra.Command{
		Use:   "download <package[==version]>",
		Short: "Fetch release archives into the local cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.close()

			releases, err := app.selectReleases(cmd.Context(), args[0], opts.fresh)
			if err != nil {
				return &exitError{code: downloadIndexFailed, err: err}
			}

			failed := 0
			for _, rel := range releases {
				artifacts := pickArtifacts(rel, opts.all)
				if len(artifacts) == 0 {
					printWarning("%s %s has no source distribution", rel.Name, rel.Version)
					continue
				}
				for _, a := range artifacts {
					path, err := materialize(cmd, app, rel.Name, a)
					if err != nil {
						printError("%s: %v", a.Filename, err)
						failed++
						continue
					}
					if opts.dest != "" {
						path, err = copyOut(path, opts.dest)
						if err != nil {
							return err
						}
					}
					printFile(path)
				}
			}
			if failed > 0 {
				return &exitError{
					code: downloadArtifactFailed,
					err:  fmt.Errorf("%d artifacts failed to download", failed),
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.fresh, "fresh", false, "bypass the response cache")
	cmd.Flags().BoolVar(&opts.all, "all", false, "download every artifact, not just the sdist")
	cmd.Flags().StringVarP(&opts.dest, "dest", "d", "", "copy downloads to this directory")

	return cmd
}

// materialize fetches one artifact with a spinner on stderr.
func materialize(cmd *cobra.Command, app *app, name string, a index.Artifact) (string, error) {
	sp := newSpinner(cmd.Context(), "downloading "+a.Filename)
	sp.Start()
	defer sp.Stop()
	return app.store.Materialize(cmd.Context(), name, a)
}

func pickArtifacts(rel *index.Release, all bool) []index.Artifact {
	if all {
		return rel.Artifacts
	}
	if sdist := rel.Sdist(); sdist != nil {
		return []index.Artifact{*sdist}
	}
	return nil
}

// copyOut copies a cached artifact into dest and returns the new path.
func copyOut(path, dest string) (string, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", err
	}
	src, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer src.Close()

	target := filepath.Join(dest, filepath.Base(path))
	dst, err := os.Create(target)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("copy %s: %w", target, err)
	}
	if err := dst.Close(); err != nil {
		return "", err
	}
	return target, nil
}
