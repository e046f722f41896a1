package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"sentryd/internal/connector"
	"sentryd/internal/integration"
	"sentryd/internal/model"
	"sentryd/internal/patcher"
	"sentryd/internal/pkganalyzer"
	"sentryd/internal/tactile"
	"sentryd/internal/validator"
	"sentryd/internal/walker"
)

var mapIntegrationCmd = &cobra.Command{
	Use:   "map-integration <package-path>",
	Short: "Emit the Integration Map JSON for incorporating a package into the current project",
	Long: `Walks package-path, classifies each file's role and capabilities, resolves
its internal/external dependency graph, and matches its files against the
current project's existing capabilities via the Code Connector. The
resulting Integration Map is printed as JSON to stdout; it is not applied
until passed to execute-integration.`,
	Args: cobra.ExactArgs(1),
	RunE: runMapIntegration,
}

var executeIntegrationCmd = &cobra.Command{
	Use:   "execute-integration <map.json>",
	Short: "Apply a previously generated Integration Map",
	Long: `Loads an Integration Map from map.json and runs it through the Automated
Patcher against the current directory: backup, apply, validate, and
rollback-on-failure for every step.`,
	Args: cobra.ExactArgs(1),
	RunE: runExecuteIntegration,
}

var (
	executeDryRun      bool
	executeInteractive bool
)

func runMapIntegration(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	packagePath, err := filepath.Abs(args[0])
	if err != nil {
		return cliError(err)
	}
	projectRoot, err := os.Getwd()
	if err != nil {
		return cliError(err)
	}

	graph, err := buildPackageGraph(packagePath)
	if err != nil {
		return cliError(err)
	}

	targets, err := projectCapabilities(ctx, projectRoot)
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

	data, err := json.MarshalIndent(im, "", "  ")
	if err != nil {
		return cliError(err)
	}
	fmt.Println(string(data))
	if graph.CycleDetected {
		fmt.Fprintln(os.Stderr, "warning: internal dependency cycle detected within the package")
	}
	return nil
}

func runExecuteIntegration(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return cliError(err)
	}
	var im model.IntegrationMap
	if err := json.Unmarshal(data, &im); err != nil {
		return cliError(fmt.Errorf("parsing integration map: %w", err))
	}

	projectRoot, err := os.Getwd()
	if err != nil {
		return cliError(err)
	}

	result, err := applyIntegrationMap(ctx, projectRoot, im, executeDryRun, executeInteractive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "execution rolled back: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("applied %d step(s), skipped %d\n", result.StepsApplied, result.StepsSkipped)
	return nil
}

// applyIntegrationMap is the shared Patcher-invocation path for
// execute-integration and auto-update.
func applyIntegrationMap(ctx context.Context, projectRoot string, im model.IntegrationMap, dryRun, interactive bool) (patcher.Result, error) {
	patcherCfg := cfg.Patcher
	patcherCfg.Interactive = interactive
	p := patcher.New(patcherCfg)

	sandboxCfg := validator.SandboxConfig{
		BuildCommand: cfg.Sandbox.BuildCommand,
		SmokeCommand: cfg.Sandbox.SmokeCommand,
		Timeout:      sandboxTimeout(),
	}
	v := validator.New(tactile.NewDirectExecutor(), sandboxCfg)

	var approver patcher.Approver = patcher.AlwaysAccept{}
	if interactive {
		approver = stepPrompter{}
	}

	return p.Execute(ctx, projectRoot, im, patcher.Options{
		ReadSource: func(path string) ([]byte, error) { return os.ReadFile(filepath.Join(projectRoot, path)) },
		Approver:   approver,
		Validator:  v,
		DryRun:     dryRun,
	})
}

// buildPackageGraph walks packagePath, extracting Capabilities and role for
// every file it finds, and hands the resulting PackageFile set to
// pkganalyzer.Analyze.
func buildPackageGraph(packagePath string) (model.PackageDependencyGraph, error) {
	paths, err := walker.New(packagePath).Walk(context.Background(), walker.Options{Mode: walker.FullTree})
	if err != nil {
		return model.PackageDependencyGraph{}, err
	}
	files := make([]model.PackageFile, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(packagePath, p)
		if err != nil {
			rel = p
		}
		rel = filepath.ToSlash(rel)
		caps := pkganalyzer.ExtractCapabilities(rel, content)
		caps.Role = string(pkganalyzer.ClassifyRole(rel))
		files = append(files, model.PackageFile{
			Path:         rel,
			Content:      string(content),
			Capabilities: caps,
			Role:         pkganalyzer.ClassifyRole(rel),
		})
	}
	return pkganalyzer.Analyze(files), nil
}

// projectCapabilities extracts Capabilities for every file already present
// in projectRoot, used as the Code Connector's match targets.
func projectCapabilities(ctx context.Context, projectRoot string) ([]model.Capabilities, error) {
	paths, err := walker.New(projectRoot).Walk(ctx, walker.Options{Mode: walker.FullTree})
	if err != nil {
		return nil, err
	}
	var out []model.Capabilities
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		rel, err := filepath.Rel(projectRoot, p)
		if err != nil {
			rel = p
		}
		out = append(out, pkganalyzer.ExtractCapabilities(filepath.ToSlash(rel), content))
	}
	return out, nil
}

func sandboxTimeout() (d time.Duration) {
	if cfg.Sandbox.MaxOperationSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(cfg.Sandbox.MaxOperationSeconds) * time.Second
}

// stepPrompter routes an Integration Map step through the same stdin
// decision loop fixPrompter uses for Fix Proposals, adapted to a step's
// coarser description.
type stepPrompter struct{}

func (stepPrompter) Decide(ctx context.Context, step model.IntegrationStep) (model.ApprovalDecision, error) {
	fmt.Printf("\nstep: %s (%s)\napply? [y/N/s/abort] ", step.Description, step.Type)
	var line string
	fmt.Scanln(&line)
	switch line {
	case "y", "Y":
		return model.DecisionAccept, nil
	case "s", "S":
		return model.DecisionSkip, nil
	case "a", "A":
		return model.DecisionAbortSession, nil
	default:
		return model.DecisionReject, nil
	}
}
