package validator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"sentryd/internal/model"
	"sentryd/internal/tactile"
)

func TestPatternGate_RejectsDangerousReplacement(t *testing.T) {
	v := New(tactile.NewDirectExecutor(), SandboxConfig{})
	proposal := model.FixProposal{ReplacementSnippet: `os.system("rm -rf " + userInput)`}
	result := v.patternGate(proposal, "")
	if result.Passed {
		t.Fatal("expected the pattern gate to reject an eval/exec-shaped replacement")
	}
}

func TestPatternGate_AllowsBenignReplacement(t *testing.T) {
	v := New(tactile.NewDirectExecutor(), SandboxConfig{})
	proposal := model.FixProposal{ReplacementSnippet: `fmt.Println("hi")`}
	result := v.patternGate(proposal, "package main\nfunc main() {}\n")
	if !result.Passed {
		t.Fatalf("expected the pattern gate to pass a benign replacement, got %s", result.Detail)
	}
}

func TestMetadataGate_RejectsInconsistentAutoSafe(t *testing.T) {
	v := New(tactile.NewDirectExecutor(), SandboxConfig{})
	proposal := model.FixProposal{
		Issue:          model.Issue{FilePath: "f.go"},
		TargetFile:     "f.go",
		AutoSafe:       true,
		SafetyScore:    0.5,
		Category:       model.FixCategoryDeadCode,
		LineRangeStart: 1,
		LineRangeEnd:   1,
	}
	result := v.metadataGate(proposal)
	if result.Passed {
		t.Fatal("expected the metadata gate to reject auto_safe=true with safety_score below threshold")
	}
}

func TestMetadataGate_AcceptsConsistentProposal(t *testing.T) {
	v := New(tactile.NewDirectExecutor(), SandboxConfig{})
	proposal := model.FixProposal{
		Issue:          model.Issue{FilePath: "f.go"},
		TargetFile:     "f.go",
		AutoSafe:       true,
		SafetyScore:    0.95,
		Category:       model.FixCategoryDeadCode,
		LineRangeStart: 1,
		LineRangeEnd:   2,
	}
	result := v.metadataGate(proposal)
	if !result.Passed {
		t.Fatalf("expected a consistent proposal to pass the metadata gate, got %s", result.Detail)
	}
}

func TestValidate_SandboxGateParseChecksInIsolatedCopy(t *testing.T) {
	projectDir := t.TempDir()
	sandboxRoot := t.TempDir()
	sandboxDir := filepath.Join(sandboxRoot, "sandbox")

	original := "package main\n\nfunc main() {\n\tprintln(\"old\")\n}\n"
	if err := os.WriteFile(filepath.Join(projectDir, "main.go"), []byte(original), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	proposal := model.FixProposal{
		Issue:              model.Issue{FilePath: "main.go"},
		TargetFile:         "main.go",
		OriginalSnippet:    `println("old")`,
		ReplacementSnippet: `println("new")`,
		Category:           model.FixCategoryDeadCode,
		SafetyScore:        0.95,
		AutoSafe:           true,
		LineRangeStart:     4,
		LineRangeEnd:       4,
	}

	v := New(tactile.NewDirectExecutor(), SandboxConfig{})
	report, err := v.Validate(context.Background(), proposal, original, projectDir, sandboxDir)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !report.Passed() {
		t.Fatalf("expected all gates to pass, got %+v", report.Gates)
	}
	if _, err := os.Stat(sandboxDir); !os.IsNotExist(err) {
		t.Fatal("expected the sandbox directory to be cleaned up after validation")
	}
}
