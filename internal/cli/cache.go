package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// newCacheCmd creates the cache management command with its
// subcommands.
func newCacheCmd(cfgPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the artifact and response caches",
	}

	cmd.AddCommand(newCacheClearCmd(cfgPath))
	cmd.AddCommand(newCachePathCmd(cfgPath))
	cmd.AddCommand(newCacheVerifyCmd(cfgPath))

	return cmd
}

// newCacheClearCmd creates the "cache clear" subcommand.
func newCacheClearCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all cached artifacts and index responses",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.close()

			count := 0
			for _, sub := range []string{"artifacts", "index"} {
				dir := filepath.Join(app.root, sub)
				count += countFiles(dir)
				if err := os.RemoveAll(dir); err != nil {
					return fmt.Errorf("clear %s: %w", dir, err)
				}
			}

			printSuccess("Cleared %d cached files", count)
			printDetail("Directory: %s", app.root)
			return nil
		},
	}
}

// newCachePathCmd creates the "cache path" subcommand.
func newCachePathCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.close()
			fmt.Println(app.root)
			return nil
		},
	}
}

// newCacheVerifyCmd creates the "cache verify" subcommand, which
// re-hashes every cached artifact against its recorded digest.
func newCacheVerifyCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Re-hash cached artifacts against their recorded digests",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *cfgPath)
			if err != nil {
				return err
			}
			defer app.close()

			problems, err := app.store.Verify(cmd.Context())
			if err != nil {
				return err
			}
			if len(problems) == 0 {
				printSuccess("All cached artifacts verified")
				return nil
			}
			for _, p := range problems {
				printError("%s: %s", p.Path, p.Reason)
			}
			return fmt.Errorf("%d corrupt cache entries", len(problems))
		},
	}
}

func countFiles(dir string) int {
	count := 0
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			count++
		}
		return nil
	})
	return count
}
