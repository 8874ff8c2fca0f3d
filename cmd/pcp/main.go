package main

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/thediveo/enumflag/v2"

	"github.com/vexxhost/pcp/internal/config"
	"github.com/vexxhost/pcp/internal/orchestrator"
	"github.com/vexxhost/pcp/internal/progress"
	"github.com/vexxhost/pcp/internal/xcperr"
)

var (
	cfg       = config.Default()
	verbosity int
)

var rootCmd = &cobra.Command{
	Use:   "pcp [flags] SOURCE... DEST",
	Short: "Parallel, kernel-accelerated file copy",
	Long: `pcp copies files and trees like cp, but fans the work out over a pool of
workers and moves bytes with reflink clones, in-kernel range copies, and
sparse-extent detection where the filesystem supports them.`,
	Args:          cobra.ArbitraryArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		configureLogging()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		var sink orchestrator.StatusSink
		if cfg.NoProgress || verbosity > 0 {
			sink = progress.NewLogSink()
		} else {
			sink = progress.NewBarSink("Copying")
		}
		return orchestrator.Run(&cfg, args, sink)
	},
}

// configureLogging maps -v flags to logrus levels; a level named in the
// PCP_LOG environment variable wins over the flags.
func configureLogging() {
	level := log.WarnLevel
	switch {
	case verbosity >= 3:
		level = log.TraceLevel
	case verbosity == 2:
		level = log.DebugLevel
	case verbosity == 1:
		level = log.InfoLevel
	}

	if env := os.Getenv("PCP_LOG"); env != "" {
		if parsed, err := log.ParseLevel(env); err == nil {
			level = parsed
		} else {
			log.WithField("PCP_LOG", env).Warn("unrecognised log level, ignoring")
		}
	}
	log.SetLevel(level)
}

func init() {
	flags := rootCmd.PersistentFlags()

	flags.BoolVarP(&cfg.Recursive, "recursive", "r", cfg.Recursive, "Copy directories recursively")
	flags.BoolVarP(&cfg.NoClobber, "no-clobber", "n", cfg.NoClobber, "Never overwrite an existing destination")
	flags.BoolVarP(&cfg.Glob, "glob", "g", cfg.Glob, "Expand source arguments as glob patterns")
	flags.CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (repeatable)")
	flags.BoolVar(&cfg.NoProgress, "no-progress", cfg.NoProgress, "Disable the progress bar")
	flags.BoolVar(&cfg.FollowSymlinks, "dereference", cfg.FollowSymlinks, "Follow symlinks instead of recreating them")
	flags.BoolVar(&cfg.PreserveXattr, "preserve-xattr", cfg.PreserveXattr, "Copy extended attributes")
	flags.IntVar(&cfg.WorkerCount, "workers", cfg.WorkerCount, "Number of copy workers")
	flags.Int64Var(&cfg.BlockSize, "block-size", cfg.BlockSize, "Block size in bytes for the parblock driver")
	flags.Int64Var(&cfg.BatchSize, "batch-size", cfg.BatchSize, "Progress batch size in bytes for the parfile driver")
	flags.IntVar(&cfg.ChannelCapacity, "status-capacity", cfg.ChannelCapacity, "Status event channel capacity")

	flags.Var(
		enumflag.New(&cfg.Driver, "driver", config.DriverIDs, enumflag.EnumCaseInsensitive),
		"driver", "Copy driver: parfile (per-file parallelism) or parblock (per-extent parallelism)")
	flags.Var(
		enumflag.New(&cfg.ReflinkPolicy, "reflink", config.ReflinkPolicyIDs, enumflag.EnumCaseInsensitive),
		"reflink", "Reflink clone policy: always, auto, or never")
	flags.Var(
		enumflag.New(&cfg.GlobPolicy, "glob-policy", config.GlobPolicyIDs, enumflag.EnumCaseInsensitive),
		"glob-policy", "What to do with a glob pattern matching nothing: drop or error")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.WithError(err).Error("❌ pcp failed")
		os.Exit(xcperr.KindOf(err).ExitCode())
	}
}
