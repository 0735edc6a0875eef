// Command gbsw materializes a multi-repository checkout tree from a
// declarative manifest.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/nn1a/gbsw/sync"
	"github.com/nn1a/gbsw/vcs"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gbsw",
		Short:         "Manifest-driven multi-repository checkout tool",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newSyncCmd())
	return root
}

func newSyncCmd() *cobra.Command {
	var (
		manifestPath string
		target       string
		overlayDir   string
		projects     []string
		jobs         int
		detach       bool
		keep         bool
		quiet        bool
		rebase       bool
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Clone or update every project the manifest describes",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelInfo
			if quiet {
				level = slog.LevelError
			}
			log := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			ctx := clog.WithLogger(cmd.Context(), log)

			opts := sync.Options{
				Detach:     detach,
				Force:      force,
				Jobs:       jobs,
				Quiet:      quiet,
				Keep:       keep,
				OverlayDir: overlayDir,
			}
			if rebase {
				opts.Strategy = sync.Rebase
			}

			absManifest, err := filepath.Abs(manifestPath)
			if err != nil {
				return err
			}
			absTarget, err := filepath.Abs(target)
			if err != nil {
				return err
			}

			syncer, err := sync.New(osfs.New("/"), vcs.New(nil), opts)
			if err != nil {
				return err
			}

			var filter []string
			if len(projects) > 0 {
				filter = projects
			}
			return syncer.Sync(ctx, absManifest, filter, absTarget)
		},
	}

	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "path to the manifest XML file (required)")
	cmd.Flags().StringVarP(&target, "target", "t", ".", "target directory for the checkout tree")
	cmd.Flags().StringVar(&overlayDir, "local-manifests", "", "override the local manifest overlay directory")
	cmd.Flags().StringSliceVarP(&projects, "project", "p", nil, "sync only the named projects (repeatable)")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "number of parallel sync jobs (default: manifest sync-j, capped at 4)")
	cmd.Flags().BoolVar(&detach, "detach", false, "detach each project at the exact resolved revision")
	cmd.Flags().BoolVar(&keep, "keep", false, "tolerate per-project failures and keep syncing")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only report errors")
	cmd.Flags().BoolVar(&rebase, "rebase", false, "rebase existing checkouts instead of hard-resetting")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "accepted for compatibility")
	_ = cmd.MarkFlagRequired("manifest")

	return cmd
}
