package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sentryd/internal/falsepositive"
	"sentryd/internal/fixgen"
	"sentryd/internal/logging"
	"sentryd/internal/metrics"
	"sentryd/internal/model"
	"sentryd/internal/patcher"
	"sentryd/internal/tactile"
	"sentryd/internal/validator"
	"sentryd/internal/walker"
)

var (
	fixInteractive  bool
	fixAutoSafeOnly bool
	fixDryRun       bool
)

var fixCmd = &cobra.Command{
	Use:   "fix <path>",
	Short: "Propose and apply fixes for a project's issues",
	Long: `Analyzes path, generates a Fix Proposal per surviving issue, routes each
through the approval gate (auto-accepting anything that classifies
auto_safe), and applies the accepted proposals through the same
backup/validate/rollback machinery the Automated Patcher uses for
Integration Maps.

Exit code 0: every accepted fix applied and validated. 1: one or more
fixes were rejected by the sandbox gate and rolled back. 2: internal
error.`,
	Args: cobra.ExactArgs(1),
	RunE: runFix,
}

func runFix(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	projectRoot, envelope, err := resolveProjectRootArg(args[0])
	if err != nil {
		return cliError(err)
	}

	opCtx, cancel, err := envelope.BeginOperation(ctx, "fix", 0)
	if err != nil {
		return cliError(err)
	}
	defer cancel()
	defer envelope.EndOperation("fix")

	stores, err := openStores()
	if err != nil {
		return cliError(err)
	}
	defer stores.CloseAll()

	orch := newOrchestrator(stores, projectRoot)
	reg := newAnalyzerRegistry()

	paths, err := walker.New(projectRoot).Walk(opCtx, walker.Options{Mode: walker.FullTree})
	if err != nil {
		return cliError(err)
	}

	var issues []model.Issue
	fileContents := map[string][]byte{}
	for _, chunk := range walker.Batch(paths, 0) {
		result, err := orch.RunBatch(opCtx, chunk)
		if err != nil {
			return cliError(err)
		}
		issues = append(issues, result.Issues...)
	}
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		fileContents[p] = content
	}

	langStore, err := stores.Open("go")
	if err != nil {
		return cliError(err)
	}
	issues, _, err = falsepositive.New().Apply(opCtx, issues, fileContents, langStore)
	if err != nil {
		return cliError(err)
	}

	generator := fixgen.New(fixgen.NewDefaultRegistry())
	var proposals []model.FixProposal
	for _, iss := range issues {
		content, ok := fileContents[iss.FilePath]
		if !ok {
			continue
		}
		lines := strings.Split(string(content), "\n")
		lineContent := ""
		if iss.Line > 0 && iss.Line <= len(lines) {
			lineContent = lines[iss.Line-1]
		}
		site := fixgen.Site{Issue: iss, LineContent: lineContent, FileContent: string(content)}

		language := "generic"
		if a := reg.For(iss.FilePath); a != nil {
			language = a.LanguageName()
		}
		h, err := stores.Open(language)
		if err != nil {
			h = nil
		}
		proposal, err := generator.Generate(opCtx, site, language, h)
		if err != nil {
			logging.FixgenDebug("no proposal for %s at %s:%d: %v", iss.Type, iss.FilePath, iss.Line, err)
			continue
		}
		proposals = append(proposals, proposal)
	}

	if len(proposals) == 0 {
		fmt.Println("no fixable issues found")
		return nil
	}

	prompter := fixPrompter{auto: fixAutoSafeOnly}
	decisions, err := fixgen.AutoAcceptAutoSafe(opCtx, prompter, proposals)
	if err != nil {
		return cliError(err)
	}

	var accepted []model.FixProposal
	rejected, skipped := 0, 0
	for i, d := range decisions {
		switch d {
		case model.DecisionAccept:
			accepted = append(accepted, proposals[i])
		case model.DecisionReject:
			rejected++
		default:
			skipped++
		}
	}

	if fixDryRun {
		for _, p := range accepted {
			fmt.Printf("would fix %s:%d (%s): %s\n", p.TargetFile, p.LineRangeStart, p.Category, p.Rationale)
		}
		fmt.Printf("%d fix(es) would be applied, %d rejected, %d skipped (dry run)\n", len(accepted), rejected, skipped)
		return nil
	}

	im := integrationMapFromProposals(accepted)
	sandboxCfg := validator.SandboxConfig{
		BuildCommand: cfg.Sandbox.BuildCommand,
		SmokeCommand: cfg.Sandbox.SmokeCommand,
		Timeout:      sandboxTimeout(),
	}
	v := validator.New(tactile.NewDirectExecutor(), sandboxCfg)

	patcherCfg := cfg.Patcher
	patcherCfg.Interactive = false
	p := patcher.New(patcherCfg)
	result, err := p.Execute(opCtx, projectRoot, im, patcher.Options{
		Approver:  patcher.AlwaysAccept{},
		Validator: v,
		DryRun:    false,
	})

	audit := logging.AuditWithProject(projectRoot)
	if err != nil {
		audit.FixRolledBack(projectRoot, result.RolledBack, err.Error())
		recordRun(metrics.RunSummary{
			Timestamp:          time.Now(),
			Command:            "fix",
			Target:             projectRoot,
			FilesScanned:       len(paths),
			IssuesFound:        len(issues),
			FixesAccepted:      len(accepted),
			FixesRejected:      rejected,
			FixesApplied:       result.StepsApplied,
			RegressionFailures: 1,
			DurationMs:         time.Since(start).Milliseconds(),
		})
		fmt.Fprintf(os.Stderr, "fix rolled back: %v\n", err)
		os.Exit(1)
	}

	for _, p := range accepted {
		audit.FixApplied(p.TargetFile, string(p.Category), p.AutoSafe)
	}

	recordRun(metrics.RunSummary{
		Timestamp:     time.Now(),
		Command:       "fix",
		Target:        projectRoot,
		FilesScanned:  len(paths),
		IssuesFound:   len(issues),
		FixesAccepted: len(accepted),
		FixesRejected: rejected,
		FixesApplied:  result.StepsApplied,
		DurationMs:    time.Since(start).Milliseconds(),
	})

	fmt.Printf("applied %d fix(es), %d rejected, %d skipped\n", result.StepsApplied, rejected, skipped)
	return nil
}

// integrationMapFromProposals wraps each accepted Fix Proposal in its own
// single-modification step, the inverse of patcher.go's
// proposalFromModification: here a FixProposal becomes the FileModification
// the Patcher already knows how to back up, apply, and validate.
func integrationMapFromProposals(proposals []model.FixProposal) model.IntegrationMap {
	steps := make([]model.IntegrationStep, 0, len(proposals))
	for _, p := range proposals {
		safetyLevel := model.SafetyLevelReviewRequired
		if p.AutoSafe {
			safetyLevel = model.SafetyLevelSafe
		}
		steps = append(steps, model.IntegrationStep{
			Type:        model.StepModification,
			Description: p.Rationale,
			Modifications: []model.FileModification{{
				ModificationType: model.ModificationTextPatch,
				FilePath:         p.TargetFile,
				LineNumber:       p.LineRangeStart,
				OriginalContent:  p.OriginalSnippet,
				NewContent:       p.ReplacementSnippet,
				Reasoning:        p.Rationale,
				SafetyLevel:      safetyLevel,
				RollbackInfo:     p.RollbackBlob,
			}},
		})
	}
	return model.IntegrationMap{
		SchemaVersion:      model.CurrentIntegrationMapSchemaVersion,
		Steps:              steps,
		RiskAssessment:     model.RiskLow,
		ValidationStrategy: "sandboxed build + smoke test per step",
	}
}

// fixPrompter implements fixgen.Prompter for the CLI: with --auto-safe-only,
// or without --interactive, it skips every non-auto-safe proposal without
// asking; with --interactive it reads a single-letter decision from stdin.
type fixPrompter struct {
	auto bool
}

func (f fixPrompter) Decide(ctx context.Context, p model.FixProposal) (model.ApprovalDecision, error) {
	if f.auto || !fixInteractive {
		return model.DecisionSkip, nil
	}
	fmt.Printf("\n%s:%d [%s] %s\n  - %s\n  + %s\naccept? [y/N/s/abort] ", p.TargetFile, p.LineRangeStart, p.Category, p.Rationale, p.OriginalSnippet, p.ReplacementSnippet)
	line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return model.DecisionAccept, nil
	case "s", "skip":
		return model.DecisionSkip, nil
	case "a", "abort":
		return model.DecisionAbortSession, nil
	default:
		return model.DecisionReject, nil
	}
}
