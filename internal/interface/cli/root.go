package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/bus"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/cache"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/config"
	"github.com/FlorianBruniaux/ccboard-sub001/internal/core/store"
)

var (
	verbose     bool
	projectPath string
	versionInfo string
)

// SetVersion sets the version information from build-time ldflags
func SetVersion(version, commit, date string) {
	versionInfo = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)
	rootCmd.Version = versionInfo
}

// Execute runs the CLI
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ccboard",
	Short: "Claude Code session analytics",
	Long: `ccboard - ingest, watch, and analyze your Claude Code sessions

Parses session logs into queryable metadata, keeps a persistent cache for
fast restarts, follows live filesystem changes, and computes usage trends,
forecasts, patterns, and anomalies.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to the stats overview if no subcommand specified
		return statsCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&projectPath, "project", "", "Project path for settings resolution (default: working directory)")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openStore wires config, cache, bus, and store, and runs the initial load.
// The returned cleanup flushes and closes the cache.
func openStore(ctx context.Context) (*store.Store, *config.Config, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	log := newLogger()
	metaCache := cache.Open(cfg.CachePath, log)
	events := bus.New(log)

	project := projectPath
	if project == "" {
		if wd, err := os.Getwd(); err == nil {
			project = wd
		}
	}

	s := store.New(cfg, metaCache, events, log, store.WithProject(project))
	s.InitialLoad(ctx)

	cleanup := func() {
		if err := metaCache.Close(); err != nil {
			log.Warn("cache close failed", "error", err)
		}
	}
	return s, cfg, cleanup, nil
}
