package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package during initialization
// with values injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the probity CLI and returns an error if any command
// fails. This is the main entry point for the CLI application.
//
// The function sets up the root command with all subcommands, configures
// logging based on the --verbose flag, and executes the command tree.
// The logger is attached to the context and accessible to all commands
// via loggerFromContext.
func Execute(ctx context.Context) error {
	var (
		verbose bool
		cfgPath string
	)

	root := &cobra.Command{
		Use:           "probity",
		Short:         "Probity audits PyPI releases for sdist/bdist consistency",
		Long:          `Probity compares the binary distributions of PyPI releases against their source distribution, flagging packages whose published wheels contain code that is not in the sdist. It also lists releases, shows their ages, and resolves dependency trees as of a point in time.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("probity %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default: user config dir)")

	root.AddCommand(newListCmd(&cfgPath))
	root.AddCommand(newCheckCmd(&cfgPath))
	root.AddCommand(newAgeCmd(&cfgPath))
	root.AddCommand(newDepsCmd(&cfgPath))
	root.AddCommand(newDownloadCmd(&cfgPath))
	root.AddCommand(newExtractCmd(&cfgPath))
	root.AddCommand(newCacheCmd(&cfgPath))

	return root.ExecuteContext(ctx)
}
