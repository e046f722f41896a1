package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"sentryd/internal/analyzer"
	"sentryd/internal/logging"
	"sentryd/internal/metrics"
	"sentryd/internal/model"
	"sentryd/internal/walker"
)

var (
	analyzeQuick       bool
	analyzeBatchSize   int
	analyzeGitDiffRef  string
	analyzeStagedOnly  bool
	analyzeSinceCommit string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>",
	Short: "Analyze a project for issues",
	Long: `Walks path, runs every registered language analyzer over the files in
scope, and reports issues by severity.

Exit code 0: no critical issues. 1: critical issues found. 2: internal
error.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	projectRoot, envelope, err := resolveProjectRootArg(args[0])
	if err != nil {
		return cliError(err)
	}

	opCtx, cancel, err := envelope.BeginOperation(ctx, "analyze", 0)
	if err != nil {
		return cliError(err)
	}
	defer cancel()
	defer envelope.EndOperation("analyze")

	stores, err := openStores()
	if err != nil {
		return cliError(err)
	}
	defer stores.CloseAll()

	orch := newOrchestrator(stores, projectRoot)

	opts := walkerOptionsFromFlags()
	var batch analysisOutcome
	if analyzeQuick {
		paths, err := walker.New(projectRoot).Walk(opCtx, opts)
		if err != nil {
			return cliError(err)
		}
		for _, chunk := range walker.Batch(paths, analyzeBatchSize) {
			result, err := orch.RunBatch(opCtx, chunk)
			if err != nil {
				return cliError(err)
			}
			batch.Issues = append(batch.Issues, result.Issues...)
			batch.FilesScanned += result.FilesAnalyzed
		}
	} else {
		result, err := orch.RunRecursive(opCtx, opts)
		if err != nil && len(result.Passes) == 0 {
			return cliError(err)
		}
		batch = flattenRecursive(result)
	}

	if err := emitIssues(batch.Issues); err != nil {
		return cliError(err)
	}
	if err := persistRunIssues(start, batch.Issues); err != nil {
		logging.CLIError("failed to persist run issues: %v", err)
	}

	critical, criticalHigh := 0, 0
	for _, iss := range batch.Issues {
		switch iss.Severity {
		case model.SeverityCritical:
			critical++
			criticalHigh++
		case model.SeverityHigh:
			criticalHigh++
		}
	}

	recordRun(metrics.RunSummary{
		Timestamp:    time.Now(),
		Command:      "analyze",
		Target:       projectRoot,
		FilesScanned: batch.FilesScanned,
		IssuesFound:  len(batch.Issues),
		DurationMs:   time.Since(start).Milliseconds(),
	})

	logging.AuditWithProject(projectRoot).ScanComplete(projectRoot, len(batch.Issues), time.Since(start).Milliseconds())

	fmt.Printf("analyzed %d file(s) in %s: %d issue(s), %d critical/high\n",
		batch.FilesScanned, time.Since(start).Round(time.Millisecond), len(batch.Issues), criticalHigh)

	if critical > 0 {
		os.Exit(1)
	}
	return nil
}

// analysisOutcome normalizes a single-pass or recursive analyze run into
// the shape the rest of the command needs to report and persist.
type analysisOutcome struct {
	Issues       []model.Issue
	FilesScanned int
}

func flattenRecursive(r analyzer.RecursiveResult) analysisOutcome {
	var out analysisOutcome
	for _, pass := range r.Passes {
		out.FilesScanned += pass.FilesAnalyzed
	}
	if n := len(r.Passes); n > 0 {
		out.Issues = r.Passes[n-1].Issues
	}
	return out
}

func walkerOptionsFromFlags() walker.Options {
	opts := walker.Options{Mode: walker.FullTree}
	if analyzeGitDiffRef != "" || analyzeStagedOnly || analyzeSinceCommit != "" {
		opts.Mode = walker.GitDiff
		opts.GitDiffRef = analyzeGitDiffRef
		opts.StagedOnly = analyzeStagedOnly
		opts.SinceCommit = analyzeSinceCommit
	}
	return opts
}

func emitIssues(issues []model.Issue) error {
	data, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func cliError(err error) error {
	logging.CLIError("%v", err)
	return err
}

func runsDir() string {
	return filepath.Join(cfg.DataDir, "runs")
}

// persistRunIssues writes this run's issue list to runs/<timestamp>/issues.json
// per the persisted state layout (spec §6).
func persistRunIssues(start time.Time, issues []model.Issue) error {
	dir := filepath.Join(runsDir(), start.UTC().Format("20060102T150405Z"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "issues.json"), data, 0o644)
}

func recordRun(summary metrics.RunSummary) {
	if err := metrics.AppendRun(cfg.MetricsHistoryPath(), summary); err != nil {
		logging.CLIError("failed to record run summary: %v", err)
	}
}
