package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"clipharvest/internal/pipeline"
	"clipharvest/pkg/config"
	"clipharvest/pkg/lock"
	"clipharvest/pkg/logger"
	"clipharvest/pkg/secrets"
	"clipharvest/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	dataDir    string
	noColor    bool
	noPacing   bool
	quiet      bool
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "clipharvest",
	Short: "Harvest short-form video search results and audit AI content labels",
	Long: `clipharvest collects TikTok and YouTube Shorts video URLs from hashtag
search pages, fetches their engagement metadata and records whether each
video carries a platform AI-generated content label.

Workflow:
  - harvest     scroll one hashtag page for one country and write its table
  - finalcheck  pick up URLs harvested but never finalized
  - label       resumable label pass over a merged table
  - export      merge tables into a spreadsheet`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		ui.SetNoColor(noColor)
		if quiet {
			ui.SetQuietMode(true)
		}
		if cmd.Name() != "version" && cmd.Name() != "help" && isTopLevel(cmd) {
			ui.PrintLogo()
		}
	},
}

// isTopLevel reports whether cmd is a direct child of the root command
func isTopLevel(cmd *cobra.Command) bool {
	return cmd.HasParent() && !cmd.Parent().HasParent()
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.clipharvest.yaml or ~/.config/clipharvest/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data root holding the registry, ledger and tables")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noPacing, "no-pacing", false, "disable human-like delays")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.SetVersionTemplate(`clipharvest {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// globalFlags collects the persistent flags in the shape MergeCommandLineFlags expects.
func globalFlags() map[string]interface{} {
	flags := map[string]interface{}{
		"data-dir":  dataDir,
		"no-pacing": noPacing,
		"log-level": logLevel,
	}
	switch {
	case verbose:
		flags["log-level"] = "debug"
	case quiet:
		flags["log-level"] = "error"
	}
	return flags
}

// loadConfig loads configuration, fills credentials from the secrets chain
// and initializes the global logger.
func loadConfig(flags map[string]interface{}) (*config.Config, logger.Logger, error) {
	merged := globalFlags()
	for k, v := range flags {
		merged[k] = v
	}

	cfg, err := config.Load(configFile, merged)
	if err != nil {
		return nil, nil, err
	}

	if dir, err := secrets.ConfigDir(); err == nil {
		if manager, err := secrets.NewManager(dir); err == nil {
			manager.Resolve(cfg)
		}
	}

	logger.Version = version
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger.GetLogger(), nil
}

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runLocked runs fn while holding the run lock, when one is configured.
func runLocked(ctx context.Context, cfg *config.Config, log logger.Logger, fn func(context.Context, *pipeline.Pipeline) error) error {
	locker := lock.New(cfg.Lock, log)
	if err := locker.Acquire(ctx); err != nil {
		return err
	}
	defer func() {
		// the run context may already be cancelled
		if err := locker.Release(context.Background()); err != nil {
			log.WithError(err).Warn("Failed to release run lock")
		}
		if closer, ok := locker.(interface{ Close() error }); ok {
			closer.Close()
		}
	}()

	return fn(ctx, pipeline.New(cfg, log))
}
