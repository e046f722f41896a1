// Package patcher implements the Automated Patcher (C10): sequential,
// rollback-safe execution of an Integration Map (or, via the same
// machinery, a bundle of Fix Proposals routed through the fix generator).
package patcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"sentryd/internal/config"
	"sentryd/internal/errs"
	"sentryd/internal/logging"
	"sentryd/internal/model"
	"sentryd/internal/validator"
)

// Approver routes a non-safe step through the interactive approval system
// (§4.9) before the Patcher is allowed to apply it.
type Approver interface {
	Decide(ctx context.Context, step model.IntegrationStep) (model.ApprovalDecision, error)
}

// AlwaysAccept is an Approver that accepts every step, useful for
// --auto-safe-only runs that never reach a review_required step, and for
// tests.
type AlwaysAccept struct{}

func (AlwaysAccept) Decide(context.Context, model.IntegrationStep) (model.ApprovalDecision, error) {
	return model.DecisionAccept, nil
}

// Options configures one Execute call.
type Options struct {
	// ReadSource resolves a file_copy step's SourcePath to its content. It
	// is required whenever the map contains a file_copy step.
	ReadSource func(path string) ([]byte, error)
	Approver   Approver
	Validator  *validator.Validator
	// DryRun computes backups and approvals but never writes to projectRoot.
	DryRun bool
}

// Result is the outcome of executing one Integration Map.
type Result struct {
	Context        model.ExecutionContext
	StepsApplied   int
	StepsSkipped   int
	RolledBack     bool
	PartialRollback []string
}

// Patcher executes Integration Maps against a single project root, one at
// a time (see acquireLock).
type Patcher struct {
	cfg config.PatcherConfig
}

// New returns a Patcher configured from cfg.
func New(cfg config.PatcherConfig) *Patcher {
	return &Patcher{cfg: cfg}
}

// Execute runs im's steps in order against projectRoot, backing up every
// file before its first modification, validating after each step, and
// rolling back everything on the first failure or user abort.
func (p *Patcher) Execute(ctx context.Context, projectRoot string, im model.IntegrationMap, opts Options) (Result, error) {
	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return Result{}, errs.Wrap(errs.KindIOError, err, "resolving project root")
	}
	absBackupRoot, err := filepath.Abs(p.cfg.BackupDirectory)
	if err != nil {
		return Result{}, errs.Wrap(errs.KindIOError, err, "resolving backup directory")
	}
	if withinRoot(absBackupRoot, absRoot) {
		return Result{}, errs.New(errs.KindUnsafeBackupLocation, "backup directory %s is inside project root %s", absBackupRoot, absRoot)
	}

	l, err := acquireLock(absBackupRoot)
	if err != nil {
		return Result{}, err
	}
	defer l.release()

	runID := strconv.FormatInt(time.Now().UnixNano(), 36)
	ec := model.ExecutionContext{
		ProjectRoot:     absRoot,
		BackupDirectory: filepath.Join(absBackupRoot, runID),
		TempDirectory:   filepath.Join(os.TempDir(), "sentryd-patch-"+runID),
	}

	approver := opts.Approver
	if approver == nil {
		approver = AlwaysAccept{}
	}

	backedUp := map[string]bool{}
	applied := 0
	skipped := 0

	for idx, step := range im.Steps {
		if requiresApproval(step, p.cfg.Interactive) {
			decision, err := approver.Decide(ctx, step)
			if err != nil {
				return p.abort(ctx, ec, backedUp, applied, skipped, err)
			}
			switch decision {
			case model.DecisionReject, model.DecisionSkip:
				skipped++
				continue
			case model.DecisionAbortSession:
				return p.abort(ctx, ec, backedUp, applied, skipped, errs.New(errs.KindValidationFailed, "user aborted session at step %d", idx))
			}
		}

		if err := p.backupStep(step, absRoot, ec.BackupDirectory, backedUp); err != nil {
			return p.abort(ctx, ec, backedUp, applied, skipped, err)
		}

		if !opts.DryRun {
			if err := p.applyStep(ctx, step, absRoot, opts); err != nil {
				return p.abort(ctx, ec, backedUp, applied, skipped, err)
			}
			if opts.Validator != nil {
				if err := p.validateStep(ctx, step, absRoot, opts.Validator); err != nil {
					return p.abort(ctx, ec, backedUp, applied, skipped, err)
				}
			}
		}

		ec.ExecutedSteps = append(ec.ExecutedSteps, idx)
		ec.CurrentStep = idx
		applied++
	}

	logging.Patcher("applied %d step(s), skipped %d, project=%s", applied, skipped, absRoot)
	return Result{Context: ec, StepsApplied: applied, StepsSkipped: skipped}, nil
}

// requiresApproval reports whether step contains a modification that is not
// safe, gating it on interactive mode being enabled at all.
func requiresApproval(step model.IntegrationStep, interactive bool) bool {
	if !interactive {
		return false
	}
	for _, m := range step.Modifications {
		if m.SafetyLevel != model.SafetyLevelSafe {
			return true
		}
	}
	return false
}

// backupStep snapshots every file step touches that has not already been
// backed up this run.
func (p *Patcher) backupStep(step model.IntegrationStep, projectRoot, backupDir string, backedUp map[string]bool) error {
	for _, target := range touchedPaths(step) {
		if backedUp[target] {
			continue
		}
		src := filepath.Join(projectRoot, target)
		dst := filepath.Join(backupDir, target)
		if _, err := backupFile(src, dst); err != nil {
			return errs.Wrap(errs.KindIOError, err, "backing up %s", target)
		}
		backedUp[target] = true
	}
	return nil
}

func touchedPaths(step model.IntegrationStep) []string {
	var paths []string
	if step.DestPath != "" {
		paths = append(paths, step.DestPath)
	}
	for _, m := range step.Modifications {
		paths = append(paths, m.FilePath)
	}
	return paths
}

// applyStep writes step's effects to disk under projectRoot.
func (p *Patcher) applyStep(ctx context.Context, step model.IntegrationStep, projectRoot string, opts Options) error {
	switch step.Type {
	case model.StepDependencyInstall, model.StepValidation:
		return nil // no filesystem effect of their own
	case model.StepFileCopy:
		if opts.ReadSource == nil {
			return errs.New(errs.KindInvalidInput, "file_copy step for %s requires ReadSource", step.SourcePath)
		}
		content, err := opts.ReadSource(step.SourcePath)
		if err != nil {
			return errs.Wrap(errs.KindIOError, err, "reading source %s", step.SourcePath)
		}
		dest := filepath.Join(projectRoot, step.DestPath)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return errs.Wrap(errs.KindIOError, err, "creating directory for %s", dest)
		}
		if err := os.WriteFile(dest, content, 0o644); err != nil {
			return errs.Wrap(errs.KindIOError, err, "writing %s", dest)
		}
		return nil
	case model.StepModification:
		for _, m := range step.Modifications {
			if err := applyModification(projectRoot, m); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyModification writes m's NewContent into m.FilePath, replacing
// OriginalContent in place when present (a targeted text_patch/import_add),
// or appending when the file is new or OriginalContent is empty.
func applyModification(projectRoot string, m model.FileModification) error {
	path := filepath.Join(projectRoot, m.FilePath)
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return errs.Wrap(errs.KindIOError, err, "reading %s", path)
	}

	var updated string
	switch {
	case m.OriginalContent != "" && strings.Contains(string(existing), m.OriginalContent):
		updated = strings.Replace(string(existing), m.OriginalContent, m.NewContent, 1)
	case len(existing) == 0:
		updated = m.NewContent
	default:
		updated = string(existing) + "\n" + m.NewContent + "\n"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.KindIOError, err, "creating directory for %s", path)
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return errs.Wrap(errs.KindIOError, err, "writing %s", path)
	}
	return nil
}

// validateStep runs the Defense-in-Depth Validator against each of step's
// modifications, adapted into a synthetic Fix Proposal — spec §4.8 calls
// this "the same machinery" the fix-generator path uses.
func (p *Patcher) validateStep(ctx context.Context, step model.IntegrationStep, projectRoot string, v *validator.Validator) error {
	for _, m := range step.Modifications {
		proposal := proposalFromModification(m)
		resultingPath := filepath.Join(projectRoot, m.FilePath)
		resultingContent, _ := os.ReadFile(resultingPath)
		sandboxDir := filepath.Join(os.TempDir(), "sentryd-validate-"+strconv.FormatInt(time.Now().UnixNano(), 36))
		report, err := v.Validate(ctx, proposal, string(resultingContent), projectRoot, sandboxDir)
		if err != nil {
			return fmt.Errorf("validation failed for %s: %w (gates=%+v)", m.FilePath, err, report.Gates)
		}
	}
	return nil
}

// proposalFromModification adapts a FileModification into the shape the
// Defense-in-Depth Validator expects, mapping safety_level to a
// representative safety_score band.
func proposalFromModification(m model.FileModification) model.FixProposal {
	score := 0.6
	category := model.FixCategoryRefactor
	switch m.SafetyLevel {
	case model.SafetyLevelSafe:
		score = 0.95
		category = model.FixCategoryDeadCode
	case model.SafetyLevelReviewRequired:
		score = 0.3
	}
	line := m.LineNumber
	if line <= 0 {
		line = 1
	}
	return model.FixProposal{
		Issue:              model.Issue{FilePath: m.FilePath},
		TargetFile:         m.FilePath,
		OriginalSnippet:    m.OriginalContent,
		ReplacementSnippet: m.NewContent,
		LineRangeStart:     line,
		LineRangeEnd:       line,
		Category:           category,
		SafetyScore:        score,
		AutoSafe:           m.SafetyLevel == model.SafetyLevelSafe,
		Rationale:          m.Reasoning,
	}
}

// abort restores every file backed up so far and reports the outcome.
func (p *Patcher) abort(ctx context.Context, ec model.ExecutionContext, backedUp map[string]bool, applied, skipped int, cause error) (Result, error) {
	ec.RollbackInitiated = true
	failed := p.rollback(ec, backedUp)
	logging.PatcherWarn("rolling back after failure: %v (restored %d, failed %d)", cause, len(backedUp)-len(failed), len(failed))
	if len(failed) > 0 {
		return Result{Context: ec, StepsApplied: applied, StepsSkipped: skipped, RolledBack: true, PartialRollback: failed},
			errs.Wrap(errs.KindPartialRollback, cause, "partial rollback, unrestored: %s", strings.Join(failed, ", "))
	}
	return Result{Context: ec, StepsApplied: applied, StepsSkipped: skipped, RolledBack: true}, cause
}

// rollback restores every backed-up file from ec.BackupDirectory into
// ec.ProjectRoot, continuing past individual failures and returning their
// paths. It never touches the project directory itself.
func (p *Patcher) rollback(ec model.ExecutionContext, backedUp map[string]bool) []string {
	var failed []string
	for path := range backedUp {
		src := filepath.Join(ec.BackupDirectory, path)
		dst := filepath.Join(ec.ProjectRoot, path)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			// the file did not exist before this run; remove what was created.
			_ = os.Remove(dst)
			continue
		}
		if err := restoreFile(src, dst); err != nil {
			logging.PatcherError("rollback failed for %s: %v", path, err)
			failed = append(failed, path)
		}
	}
	return failed
}

// withinRoot reports whether candidate resolves inside root.
func withinRoot(candidate, root string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && rel != "..")
}

// Cleanup removes completed runs' backup directories older than the
// configured retention window. With a zero retention window Cleanup is a
// no-op: backups are kept, and no later run removes them.
func (p *Patcher) Cleanup() error {
	if p.cfg.RetentionHours <= 0 {
		return nil
	}
	entries, err := os.ReadDir(p.cfg.BackupDirectory)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errs.Wrap(errs.KindIOError, err, "listing backup directory")
	}
	cutoff := time.Now().Add(-time.Duration(p.cfg.RetentionHours) * time.Hour)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		_ = os.RemoveAll(filepath.Join(p.cfg.BackupDirectory, e.Name()))
	}
	return nil
}
