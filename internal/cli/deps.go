package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/probitylabs/probity/pkg/deps"
)

// depsOpts holds the command-line flags for the deps command.
type depsOpts struct {
	includeExtras bool
	flat          bool
	pythonVersion string
	sysPlatform   string
	historical    string // resolve as if run on this date (yyyy-mm-dd)
	dot           bool
	svg           string
}

// newDepsCmd creates the deps command, which resolves the transitive
// dependency tree of a requirement against the index. Environment
// markers are evaluated against a configurable Python version and
// platform, and --historical trims away every release uploaded after
// the given date, reconstructing what an install would have picked
// back then.
func newDepsCmd(cfgPath *string) *cobra.Command {
	var opts depsOpts

	cmd := &cobra.Command{
		Use:   "deps <requirement>",
		Short: "Resolve and print the dependency tree",
		Long: `Deps resolves a requirement (e.g. "flask", "requests[socks]>=2.0")
transitively and prints the tree. Cycles are cut at the repeated
package, unresolvable constraints are shown with a reason, and nodes
missing an sdist or wheel are annotated.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.close()

			pyVersion := opts.pythonVersion
			if pyVersion == "" {
				pyVersion = app.cfg.PythonVersion
			}
			platform := opts.sysPlatform
			if platform == "" {
				platform = app.cfg.SysPlatform
			}
			env, err := deps.NewEnvironment(pyVersion, platform)
			if err != nil {
				return err
			}

			logger := loggerFromContext(cmd.Context())
			walker := &deps.Walker{
				Catalog:       app.catalog,
				Store:         app.store,
				Env:           env,
				IncludeExtras: opts.includeExtras,
				Logf:          func(format string, args ...any) { logger.Warnf(format, args...) },
			}
			if opts.historical != "" {
				asOf, err := time.Parse("2006-01-02", opts.historical)
				if err != nil {
					return fmt.Errorf("invalid --historical date %q (want yyyy-mm-dd): %w", opts.historical, err)
				}
				// Include everything uploaded on that day.
				walker.AsOf = asOf.Add(24*time.Hour - time.Nanosecond)
			}

			prog := newProgress(logger)
			node, err := walker.Walk(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Resolved %s", args[0]))

			root := &deps.Node{Edges: []deps.Edge{{Constraint: "*", To: node}}}
			switch {
			case opts.svg != "":
				svg, err := deps.RenderSVG(cmd.Context(), deps.ToDOT(node))
				if err != nil {
					return err
				}
				if err := os.WriteFile(opts.svg, svg, 0o644); err != nil {
					return err
				}
				printSuccess("Rendered dependency graph")
				printFile(opts.svg)
			case opts.dot:
				fmt.Print(deps.ToDOT(node))
			case opts.flat:
				deps.PrintFlat(os.Stdout, root)
			default:
				deps.PrintTree(os.Stdout, root)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.includeExtras, "include-extras", false, "follow all extras, not just requested ones")
	cmd.Flags().BoolVar(&opts.flat, "flat", false, "print pinned requirements instead of a tree")
	cmd.Flags().StringVar(&opts.pythonVersion, "python-version", "", "Python version for marker evaluation")
	cmd.Flags().StringVar(&opts.sysPlatform, "sys-platform", "", "platform for marker evaluation")
	cmd.Flags().StringVar(&opts.historical, "historical", "", "resolve as of this date (yyyy-mm-dd)")
	cmd.Flags().BoolVar(&opts.dot, "dot", false, "print the graph in DOT format")
	cmd.Flags().StringVar(&opts.svg, "svg", "", "render the graph to this SVG file")

	return cmd
}
