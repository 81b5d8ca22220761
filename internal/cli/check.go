package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/probitylabs/probity/pkg/check"
	"github.com/probitylabs/probity/pkg/index"
)

// FlagsError carries the aggregate inconsistency flags of a check run
// so main can use them as the process exit code.
type FlagsError struct {
	Flags check.Flags
}

func (e *FlagsError) Error() string {
	return fmt.Sprintf("inconsistencies found: %s", e.Flags)
}

// ExitCode returns the value the process should exit with: the bitwise
// OR of the flags of every checked release.
func (e *FlagsError) ExitCode() int {
	return e.Flags.ExitCode()
}

// checkOpts holds the command-line flags for the check command.
type checkOpts struct {
	fresh      bool
	noJSON     bool
	skipYanked bool
	allBdists  bool
	parallel   int
}

// newCheckCmd creates the check command. Each argument is a package
// selector: a bare name checks the latest release, "name==1.2" an exact
// version, "name==*" every published version. The command exits with
// the OR of all inconsistency flags, so a zero exit means every checked
// release was consistent.
func newCheckCmd(cfgPath *string) *cobra.Command {
	var opts checkOpts

	cmd := &cobra.Command{
		Use:   "check <package[==version]>...",
		Short: "Compare binary distributions against the sdist",
		Long: `Check compares the Python sources inside a release's binary
distribution against its source distribution. Files present in a wheel
but absent from the sdist, or present in both with different contents,
are flagged. By default the most relevant binary is chosen (a pure py3
wheel when available); --all-bdists checks every one.

Exit code bits:
  1  release has binaries but no sdist
  2  an archive could not be fetched or read
  4  the binary carries files the sdist does not
  8  a file differs between binary and sdist`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.close()

			checker := app.checker()
			if opts.skipYanked {
				checker.SkipYanked = true
			}
			if opts.parallel > 0 {
				checker.Parallelism = opts.parallel
			}
			checker.AllBdists = opts.allBdists

			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)

			var aggregate check.Flags
			checked := 0
			for _, arg := range args {
				sel, err := index.ParseSelector(arg)
				if err != nil {
					return err
				}
				summary, err := checker.Check(cmd.Context(), sel, !opts.noJSON, opts.fresh)
				if err != nil {
					return err
				}
				aggregate |= summary.Flags
				checked += len(summary.Results)
				printSummary(summary)
			}
			prog.done(fmt.Sprintf("Checked %d releases", checked))

			if aggregate != 0 {
				return &FlagsError{Flags: aggregate}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.fresh, "fresh", false, "bypass the response cache")
	cmd.Flags().BoolVar(&opts.noJSON, "no-json", false, "use the simple index listing")
	cmd.Flags().BoolVar(&opts.skipYanked, "skip-yanked", false, "skip yanked releases in wildcard checks")
	cmd.Flags().BoolVar(&opts.allBdists, "all-bdists", false, "check every binary artifact, not just the most relevant one")
	cmd.Flags().IntVar(&opts.parallel, "parallel", 0, "releases to check concurrently")

	return cmd
}

func printSummary(s *check.Summary) {
	for _, r := range s.Results {
		label := fmt.Sprintf("%s %s", r.Package, r.Version)
		if r.Yanked {
			label += " " + StyleWarning.Render("(yanked)")
		}
		if r.Flags == 0 {
			printSuccess("%s %s", label, renderFlags(r.Flags))
		} else {
			printError("%s %s", label, renderFlags(r.Flags))
		}

		switch {
		case r.BdistOnly:
			printDetail("no source distribution published")
		case r.SdistOnly:
			printDetail("no binary distributions to compare")
		case r.SdistErr != "":
			printDetail("sdist unreadable: %s", r.SdistErr)
		}

		for _, a := range r.Artifacts {
			printArtifact(a)
		}
	}
}

func printArtifact(a check.ArtifactResult) {
	if a.Err != "" {
		printDetail("%s: %s", a.Filename, a.Err)
		return
	}
	if a.Diff == nil || len(a.Diff.Extra) == 0 && len(a.Diff.Mismatched) == 0 {
		return
	}
	printDetail("%s", a.Filename)
	for _, path := range a.Diff.Extra {
		printDetail("  + %s (not in sdist)", path)
	}
	for _, m := range a.Diff.Mismatched {
		printDetail("  ~ %s (sdist %.8s, bdist %.8s)", m.Path, m.SdistSHA1, m.BdistSHA1)
	}
}
