package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"sentryd/internal/connector"
	"sentryd/internal/integration"
	"sentryd/internal/logging"
	"sentryd/internal/metrics"
	"sentryd/internal/model"
)

var autoUpdateDryRun bool

var autoUpdateCmd = &cobra.Command{
	Use:   "auto-update <package-path>",
	Short: "Map and apply a package integration in one step",
	Long: `Runs the same Package Analyzer, Code Connector, and Integration Mapper
pipeline as map-integration, then immediately feeds the result to the
Automated Patcher — the end-to-end path for a package that doesn't need a
human to review the plan first.`,
	Args: cobra.ExactArgs(1),
	RunE: runAutoUpdate,
}

func runAutoUpdate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	packagePath, err := filepath.Abs(args[0])
	if err != nil {
		return cliError(err)
	}
	projectRoot, envelope, err := resolveProjectRootArg(".")
	if err != nil {
		return cliError(err)
	}

	opCtx, cancel, err := envelope.BeginOperation(ctx, "auto-update", 0)
	if err != nil {
		return cliError(err)
	}
	defer cancel()
	defer envelope.EndOperation("auto-update")

	graph, err := buildPackageGraph(packagePath)
	if err != nil {
		return cliError(err)
	}
	targets, err := projectCapabilities(opCtx, projectRoot)
	if err != nil {
		return cliError(err)
	}

	var orphans []model.Capabilities
	for _, f := range graph.Files {
		orphans = append(orphans, f.Capabilities)
	}
	suggestions := connector.New().Suggest(orphans, targets)

	existing := integration.ExistingFiles{}
	for _, t := range targets {
		existing[filepath.ToSlash(t.FilePath)] = true
	}
	fileContents := map[string]string{}
	for _, f := range graph.Files {
		fileContents[f.Path] = f.Content
	}
	im := integration.New().Build(graph, suggestions, existing, fileContents)

	result, err := applyIntegrationMap(opCtx, projectRoot, im, autoUpdateDryRun, false)

	audit := logging.AuditWithProject(projectRoot)
	summary := metrics.RunSummary{
		Timestamp:    time.Now(),
		Command:      "auto-update",
		Target:       packagePath,
		FilesScanned: len(graph.Files),
		FixesApplied: result.StepsApplied,
		DurationMs:   time.Since(start).Milliseconds(),
	}
	if err != nil {
		summary.RegressionFailures = 1
		recordRun(summary)
		audit.FixRolledBack(projectRoot, result.RolledBack, err.Error())
		fmt.Fprintf(os.Stderr, "auto-update rolled back: %v\n", err)
		os.Exit(1)
	}
	recordRun(summary)
	audit.FixApplied(projectRoot, "integration", false)

	fmt.Printf("auto-update applied %d step(s) from %s, skipped %d, risk=%s\n",
		result.StepsApplied, packagePath, result.StepsSkipped, im.RiskAssessment)
	return nil
}
