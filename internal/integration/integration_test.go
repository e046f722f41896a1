package integration

import (
	"context"
	"testing"

	"sentryd/internal/model"
)

func TestBuild_EmitsDependencyStepWhenExternalRequiresPresent(t *testing.T) {
	graph := model.PackageDependencyGraph{
		Files:            []model.PackageFile{{Path: "helper.go", Role: model.RoleUtility}},
		ExternalRequires: []string{"github.com/example/thing"},
		IntegrationOrder: []string{"helper.go"},
	}
	m := New()
	result := m.Build(graph, nil, ExistingFiles{}, nil)

	if result.Steps[0].Type != model.StepDependencyInstall {
		t.Fatalf("expected the first step to be dependency_install, got %s", result.Steps[0].Type)
	}
}

func TestBuild_ConflictBecomesReviewRequiredNotOverwrite(t *testing.T) {
	graph := model.PackageDependencyGraph{
		Files:            []model.PackageFile{{Path: "helper.go", Role: model.RoleUtility, Content: "package helper"}},
		IntegrationOrder: []string{"helper.go"},
	}
	existing := ExistingFiles{"internal/helper.go": true}
	m := New()
	result := m.Build(graph, nil, existing, nil)

	found := false
	for _, s := range result.Steps {
		if s.Type == model.StepModification {
			for _, mod := range s.Modifications {
				if mod.SafetyLevel == model.SafetyLevelReviewRequired {
					found = true
				}
			}
		}
		if s.Type == model.StepFileCopy {
			t.Fatal("expected the conflicting file to not be emitted as a plain file_copy step")
		}
	}
	if !found {
		t.Fatal("expected a review_required modification for the conflicting destination")
	}
}

func TestBuild_RiskAssessmentEscalatesWithReviewRequiredModifications(t *testing.T) {
	accepted := make([]model.ConnectionSuggestion, 0, 5)
	for i := 0; i < 5; i++ {
		accepted = append(accepted, model.ConnectionSuggestion{
			OrphanPath: "orphan.go",
			TargetPath: "main.go",
			Reasoning:  "calls subprocess.Popen(cmd, shell=True)",
			Score:      0.9,
		})
	}
	m := New()
	result := m.Build(model.PackageDependencyGraph{}, accepted, ExistingFiles{}, nil)

	if result.RiskAssessment != model.RiskHigh {
		t.Fatalf("expected high risk with 5 review_required modifications, got %s", result.RiskAssessment)
	}
}

func TestBuild_LowRiskWithNoConflictsOrDangerousPatterns(t *testing.T) {
	accepted := []model.ConnectionSuggestion{{
		OrphanPath: "orphan.go",
		TargetPath: "main.go",
		Reasoning:  "shares keyword overlap",
		Score:      0.5,
	}}
	m := New()
	result := m.Build(model.PackageDependencyGraph{}, accepted, ExistingFiles{}, nil)

	if result.RiskAssessment != model.RiskLow {
		t.Fatalf("expected low risk, got %s", result.RiskAssessment)
	}
}

func TestParseCheck_FlagsBrokenGoSource(t *testing.T) {
	err := ParseCheck(context.Background(), "broken.go", []byte("package main\nfunc ( {\n"))
	if err == nil {
		t.Fatal("expected a parse failure for malformed Go source")
	}
}

func TestParseCheck_AcceptsValidGoSource(t *testing.T) {
	err := ParseCheck(context.Background(), "fine.go", []byte("package main\n\nfunc main() {}\n"))
	if err != nil {
		t.Fatalf("ParseCheck failed on valid source: %v", err)
	}
}

func TestRunValidationStep_FailsOnParseError(t *testing.T) {
	touched := []string{"broken.go"}
	readFile := func(path string) ([]byte, error) {
		return []byte("package main\nfunc ( {\n"), nil
	}
	_, err := RunValidationStep(context.Background(), touched, readFile, nil, t.TempDir())
	if err == nil {
		t.Fatal("expected RunValidationStep to fail on a broken touched file")
	}
}
