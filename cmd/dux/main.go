package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dux/internal/app"
	"dux/internal/config"
)

var (
	flagMaxDepth       int
	flagFollowSymlinks bool
	flagCrossFS        bool
	flagForceRescan    bool
	flagWorkers        int
	flagSkip           []string
	flagLogFile        string
)

var rootCmd = &cobra.Command{
	Use:   "dux [path]",
	Short: "Interactive disk usage analyzer",
	Long: `dux scans a directory tree, shows where the space went, and lets you
reclaim it: browse by size, surface large files and stale build
artifacts, and delete interactively. Results are cached so the next
run on the same tree starts instantly.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.DefaultConfig()
		if loaded, err := config.LoadConfig(); err == nil {
			cfg = loaded
		}

		if len(args) > 0 {
			cfg.Path = args[0]
		}
		if cfg.Path == "" {
			cfg.Path = "."
		}
		flags := cmd.Flags()
		if flags.Changed("max-depth") {
			cfg.MaxDepth = flagMaxDepth
		}
		if flags.Changed("follow-symlinks") {
			cfg.FollowSymlinks = flagFollowSymlinks
		}
		if flags.Changed("cross-filesystem") {
			cfg.CrossFilesystem = flagCrossFS
		}
		if flags.Changed("workers") {
			cfg.Workers = flagWorkers
		}
		if flags.Changed("skip") {
			cfg.SkipOverrides = flagSkip
		}
		if flags.Changed("log-file") {
			cfg.LogFile = flagLogFile
		}
		cfg.ForceRescan = flagForceRescan

		return app.Run(cfg)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.IntVar(&flagMaxDepth, "max-depth", 0, "limit scan depth (0 = unlimited)")
	flags.BoolVar(&flagFollowSymlinks, "follow-symlinks", false, "follow symbolic links to directories")
	flags.BoolVar(&flagCrossFS, "cross-filesystem", false, "descend into other filesystems")
	flags.BoolVar(&flagForceRescan, "force-rescan", false, "ignore the cached snapshot and rescan")
	flags.IntVar(&flagWorkers, "workers", 0, "scan worker count (0 = CPU count)")
	flags.StringSliceVar(&flagSkip, "skip", nil, "extra path patterns to skip")
	flags.StringVar(&flagLogFile, "log-file", "", "write a JSON debug log to this file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dux:", err)
		os.Exit(1)
	}
}
