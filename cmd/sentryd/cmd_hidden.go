package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sentryd/internal/patternpack"
	"sentryd/internal/regression"
)

// testCmd, validateCmd, and consolidateCmd are maintenance commands hidden
// from --help unless --show-all or --help-security is passed, per the CLI
// surface's hidden-command convention (spec §6). They function fully when
// typed explicitly regardless of visibility.

var testCmd = &cobra.Command{
	Use:   "test <battery.yaml>",
	Short: "Run a regression battery against the current directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runTest,
}

var validateCmd = &cobra.Command{
	Use:   "validate <pattern-pack.yaml>",
	Short: "Validate a pattern pack manifest without installing it",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Prune stale, low-quality pattern records from every language store",
	Args:  cobra.NoArgs,
	RunE:  runConsolidate,
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	battery, err := regression.LoadBattery(args[0])
	if err != nil {
		return cliError(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		return cliError(err)
	}
	results, err := regression.RunBattery(ctx, battery, wd)
	if err != nil {
		return cliError(err)
	}
	failed := 0
	for _, r := range results {
		status := "ok"
		if !r.Success {
			status = "FAIL: " + r.Error
			failed++
		}
		fmt.Printf("%-30s %s (%dms)\n", r.TaskID, status, r.DurationMs)
	}
	if failed > 0 {
		os.Exit(1)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	manifest, err := patternpack.LoadManifest(args[0])
	if err != nil {
		return cliError(err)
	}
	if err := patternpack.Validate(manifest); err != nil {
		return cliError(err)
	}
	fmt.Printf("%s: valid, %d pattern(s) for %s\n", args[0], len(manifest.Patterns), manifest.Language)
	return nil
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	stores, err := openStores()
	if err != nil {
		return cliError(err)
	}
	defer stores.CloseAll()

	pruned, err := stores.PruneAll(ctx)
	if err != nil {
		return cliError(err)
	}
	fmt.Printf("consolidated %d stale pattern record(s)\n", pruned)
	return nil
}
