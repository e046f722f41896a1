// Package main implements the sentryd CLI, a persistent, learning
// static-analysis engine.
//
// This file is the entry point and command-registration hub; individual
// command families live in one cmd_*.go file each, the way
// codenerd/cmd/nerd splits its own root command from its cmd_*.go files.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"sentryd/internal/config"
	"sentryd/internal/logging"
)

var (
	verbose     bool
	showAll     bool
	helpSec     bool
	dataDirFlag string
	configPath  string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sentryd",
	Short: "sentryd - a persistent, learning static-analysis engine",
	Long: `sentryd analyzes a project's source for issues, remembers what it has
already seen and decided, and can propose or apply fixes under a layered
safety envelope.

Run "sentryd analyze <path>" to scan a project, or "sentryd fix <path>" to
propose and apply fixes.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapCfg := zap.NewProductionConfig()
		if verbose {
			zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapCfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		wd, _ := os.Getwd()
		if err := logging.Initialize(wd); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to initialize file logging: %v\n", err)
		}

		path := configPath
		if path == "" {
			path = filepath.Join(wd, ".sentryd.yaml")
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if dataDirFlag != "" {
			cfg.DataDir = dataDirFlag
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	rootCmd.PersistentFlags().StringVar(&dataDirFlag, "data-dir", "", "override the configured data directory")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a sentryd config YAML file")
	rootCmd.PersistentFlags().BoolVar(&showAll, "show-all", false, "list hidden commands in --help output")
	rootCmd.PersistentFlags().BoolVar(&helpSec, "help-security", false, "list hidden security/maintenance commands")

	analyzeCmd.Flags().BoolVar(&analyzeQuick, "quick", false, "skip the recursive-improvement loop; one pass only")
	analyzeCmd.Flags().IntVar(&analyzeBatchSize, "batch-size", 0, "override the configured walker batch size")
	analyzeCmd.Flags().StringVar(&analyzeGitDiffRef, "git-diff", "", "scope the scan to files changed relative to this git ref")
	analyzeCmd.Flags().BoolVar(&analyzeStagedOnly, "staged-only", false, "scope a --git-diff scan to the staged index")
	analyzeCmd.Flags().StringVar(&analyzeSinceCommit, "since-commit", "", "scope a --git-diff scan to changes since this commit")

	fixCmd.Flags().BoolVar(&fixInteractive, "interactive", false, "prompt for every non-auto-safe fix")
	fixCmd.Flags().BoolVar(&fixAutoSafeOnly, "auto-safe-only", false, "apply only fixes that qualify as auto_safe")
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "compute and report fixes without writing them")

	executeIntegrationCmd.Flags().BoolVar(&executeDryRun, "dry-run", false, "compute backups/approvals but never write to the project")
	executeIntegrationCmd.Flags().BoolVar(&executeInteractive, "interactive", false, "route every non-safe step through the approval gate")

	autoUpdateCmd.Flags().BoolVar(&autoUpdateDryRun, "dry-run", false, "run the full pipeline but never write to the project")

	rootCmd.AddCommand(
		analyzeCmd,
		fixCmd,
		trainCmd,
		statsCmd,
		cycleCmd,
		mapIntegrationCmd,
		executeIntegrationCmd,
		autoUpdateCmd,
		metricsCmd,
	)

	reveal := false
	for _, a := range os.Args[1:] {
		if a == "--show-all" || a == "--help-security" {
			reveal = true
			break
		}
	}
	for _, c := range []*cobra.Command{testCmd, validateCmd, consolidateCmd} {
		c.Hidden = !reveal
		rootCmd.AddCommand(c)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
