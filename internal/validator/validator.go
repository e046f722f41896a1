// Package validator implements the Defense-in-Depth Validator (C12): three
// mandatory, independently-vetoing gates a Fix Proposal must clear before
// the Patcher is allowed to apply it.
package validator

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"sentryd/internal/errs"
	"sentryd/internal/model"
	"sentryd/internal/tactile"
)

// DangerousPatterns catches dynamic code execution, shell-true subprocess
// invocation and os.system shell calls, unsafe deserialization (yaml.load
// is flagged whatever Loader it is given; yaml.safe_load is not), and
// credential-exfiltration shapes —
// the pattern-gate vocabulary spec §4.10 names. Exported so the fix
// generator's forbidden-templates check (spec §4.9) can reject a template
// at classification time using the exact same vocabulary the sandbox-side
// pattern gate enforces at apply time.
var DangerousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\beval\s*\(`),
	regexp.MustCompile(`\bexec\s*\(`),
	regexp.MustCompile(`shell\s*=\s*True`),
	regexp.MustCompile(`\bos\.system\s*\(`),
	regexp.MustCompile(`(?i)pickle\.loads?\(`),
	regexp.MustCompile(`(?i)yaml\.load\(`),
	regexp.MustCompile(`(?i)(curl|wget|requests\.(post|get))\(.*["'](https?://)[^"']*\b(token|secret|key|password)\b`),
	regexp.MustCompile(`os\.Setenv\(|subprocess\.Popen\(.*shell=True`),
}

// GateResult is the recorded outcome of one gate on a Fix Proposal.
type GateResult struct {
	Name    string
	Passed  bool
	Detail  string
}

// Report aggregates every gate's outcome for one Fix Proposal.
type Report struct {
	Gates []GateResult
}

// Passed reports whether every gate in the report succeeded.
func (r Report) Passed() bool {
	for _, g := range r.Gates {
		if !g.Passed {
			return false
		}
	}
	return true
}

// SandboxConfig configures the third gate: an isolated copy of the project
// the candidate modification is applied to before anything touches the
// real tree.
type SandboxConfig struct {
	BuildCommand string
	SmokeCommand string
	Timeout      time.Duration
}

// Validator runs the pattern, metadata, and sandbox gates in order.
type Validator struct {
	executor tactile.Executor
	sandbox  SandboxConfig
}

// New returns a Validator that shells out via executor for its sandbox
// gate's build/smoke commands.
func New(executor tactile.Executor, sandbox SandboxConfig) *Validator {
	return &Validator{executor: executor, sandbox: sandbox}
}

// Validate runs all three gates against proposal, applying it (the
// replacement snippet in place of the original) to a copy of projectDir
// under sandboxDir for the third gate.
func (v *Validator) Validate(ctx context.Context, proposal model.FixProposal, resultingFile string, projectDir, sandboxDir string) (Report, error) {
	var report Report

	patternResult := v.patternGate(proposal, resultingFile)
	report.Gates = append(report.Gates, patternResult)
	if !patternResult.Passed {
		return report, errs.New(errs.KindDangerousPattern, "%s", patternResult.Detail)
	}

	metadataResult := v.metadataGate(proposal)
	report.Gates = append(report.Gates, metadataResult)
	if !metadataResult.Passed {
		return report, errs.New(errs.KindMetadataTampering, "%s", metadataResult.Detail)
	}

	sandboxResult, err := v.sandboxGate(ctx, proposal, projectDir, sandboxDir)
	report.Gates = append(report.Gates, sandboxResult)
	if !sandboxResult.Passed {
		if err == nil {
			err = errs.New(errs.KindSandboxValidationFailed, "%s", sandboxResult.Detail)
		}
		return report, err
	}

	return report, nil
}

// patternGate scans both the replacement snippet and the file it would
// produce for dangerous constructs.
func (v *Validator) patternGate(proposal model.FixProposal, resultingFile string) GateResult {
	for _, p := range DangerousPatterns {
		if p.MatchString(proposal.ReplacementSnippet) {
			return GateResult{Name: "pattern", Passed: false, Detail: "replacement snippet matches dangerous pattern " + p.String()}
		}
		if p.MatchString(resultingFile) {
			return GateResult{Name: "pattern", Passed: false, Detail: "resulting file matches dangerous pattern " + p.String()}
		}
	}
	return GateResult{Name: "pattern", Passed: true}
}

// metadataGate checks the Fix Proposal's own fields are internally
// consistent, rather than trusting a caller-set AutoSafe flag.
func (v *Validator) metadataGate(proposal model.FixProposal) GateResult {
	if proposal.AutoSafe && !proposal.IsEligibleForAutoSafe() {
		return GateResult{Name: "metadata", Passed: false, Detail: "auto_safe is set but safety_score/category do not qualify"}
	}
	if proposal.SafetyScore < 0 || proposal.SafetyScore > 1 {
		return GateResult{Name: "metadata", Passed: false, Detail: "safety_score out of [0,1] bounds"}
	}
	if proposal.LineRangeStart <= 0 || proposal.LineRangeEnd < proposal.LineRangeStart {
		return GateResult{Name: "metadata", Passed: false, Detail: "line range is inconsistent with the issue site"}
	}
	if proposal.Issue.FilePath != proposal.TargetFile {
		return GateResult{Name: "metadata", Passed: false, Detail: "issue file_path does not match target_file"}
	}
	return GateResult{Name: "metadata", Passed: true}
}

// sandboxGate copies projectDir into sandboxDir, applies the fix, then runs
// the configured build and smoke commands there through the executor. It
// runs no parse check of its own: with neither command configured the gate
// passes once the copy and the edit succeed. Network isolation is left to
// the executor; the CLI commands pass a DirectExecutor, which runs the
// commands on the host without network isolation.
func (v *Validator) sandboxGate(ctx context.Context, proposal model.FixProposal, projectDir, sandboxDir string) (GateResult, error) {
	if err := copyTree(projectDir, sandboxDir); err != nil {
		return GateResult{Name: "sandbox", Passed: false, Detail: "failed to prepare sandbox: " + err.Error()}, err
	}
	defer os.RemoveAll(sandboxDir)

	rel := proposal.TargetFile
	if filepath.IsAbs(rel) {
		if r, err := filepath.Rel(projectDir, rel); err == nil {
			rel = r
		}
	}
	target := filepath.Join(sandboxDir, rel)
	if err := applySnippet(target, proposal); err != nil {
		return GateResult{Name: "sandbox", Passed: false, Detail: "failed to apply modification in sandbox: " + err.Error()}, err
	}

	if v.sandbox.BuildCommand != "" {
		res, err := v.run(ctx, sandboxDir, v.sandbox.BuildCommand)
		if err != nil || !res.Success || res.ExitCode != 0 {
			return GateResult{Name: "sandbox", Passed: false, Detail: "build failed: " + res.Combined}, err
		}
	}
	if v.sandbox.SmokeCommand != "" {
		res, err := v.run(ctx, sandboxDir, v.sandbox.SmokeCommand)
		if err != nil || !res.Success || res.ExitCode != 0 {
			return GateResult{Name: "sandbox", Passed: false, Detail: "smoke test failed: " + res.Combined}, err
		}
	}
	return GateResult{Name: "sandbox", Passed: true}, nil
}

func (v *Validator) run(ctx context.Context, dir, command string) (*tactile.ExecutionResult, error) {
	cmd := tactile.Command{
		Binary:           "sh",
		Arguments:        []string{"-c", command},
		WorkingDirectory: dir,
		Environment:      []string{}, // no inherited network-capable credentials
	}
	return v.executor.Execute(ctx, cmd)
}
