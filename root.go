package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/prune-dev/prune/internal/catalog"
	"github.com/prune-dev/prune/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in setupRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// skipConfigAnnotation marks commands that open their own catalog/config
// rather than relying on PersistentPreRunE's automatic resolution.
const skipConfigAnnotation = "skipConfig"

// CLIContext bundles resolved config, an open catalog store, and a logger.
// Created once in PersistentPreRunE.
type CLIContext struct {
	Cfg    *config.Config
	Store  *catalog.Store
	Logger *slog.Logger
	JSON   bool
	Quiet  bool
}

// Statusf prints a status message to stderr unless quiet mode is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	statusf(cc.Quiet, format, args...)
}

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// cliContextFrom extracts the CLIContext from the command's context.
func cliContextFrom(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		return nil
	}

	return cc
}

// mustCLIContext extracts the CLIContext or panics with an actionable
// message. RunE handlers for commands without skipConfigAnnotation can
// assume PersistentPreRunE already populated the context.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc := cliContextFrom(ctx)
	if cc == nil {
		panic("BUG: CLIContext not found in context — ensure the command " +
			"does not skip config loading (no skipConfigAnnotation) or " +
			"explicitly loads config in its RunE")
	}

	return cc
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "prune",
		Short:   "Safe, auditable multi-drive file migration",
		Long:    "prune indexes, classifies, and migrates files across drives with transactional plans and rollback.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations[skipConfigAnnotation] == "true" {
				return nil
			}

			// A non-interactive stdout (piped or redirected) gets the same
			// quiet behavior as an explicit --quiet, unless the caller set
			// --verbose/--debug/--quiet themselves.
			if !cmd.Flags().Changed("verbose") && !cmd.Flags().Changed("debug") &&
				!cmd.Flags().Changed("quiet") && !isatty.IsTerminal(os.Stdout.Fd()) {
				flagQuiet = true
			}

			return loadContext(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if cc := cliContextFrom(cmd.Context()); cc != nil && cc.Store != nil {
				return cc.Store.Close()
			}

			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "show detailed output")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newDriveCmd())
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newDuplicatesCmd())
	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newPlanCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newRollbackCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newReportCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newPolicyCmd())

	return cmd
}

// loadContext resolves configuration, opens the catalog database, and
// stashes both (plus a logger) in the command's context for RunE handlers.
func loadContext(cmd *cobra.Command) error {
	logger := buildLogger(nil)

	cfg, err := config.LoadOrDefault(flagConfigPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	finalLogger := buildLogger(cfg)

	store, err := catalog.Open(cmd.Context(), cfg.Catalog.DatabasePath, finalLogger)
	if err != nil {
		return fmt.Errorf("opening catalog: %w", err)
	}

	cc := &CLIContext{Cfg: cfg, Store: store, Logger: finalLogger, JSON: flagJSON, Quiet: flagQuiet}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Pass nil for pre-config bootstrap. Config-file log level is
// the baseline; --verbose/--debug/--quiet (mutually exclusive) override it.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelWarn

	if cfg != nil {
		switch cfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}
	}

	if flagVerbose {
		level = slog.LevelInfo
	}

	if flagDebug {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
