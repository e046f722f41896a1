package patcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sentryd/internal/config"
	"sentryd/internal/model"
)

func newTestPatcher(t *testing.T, projectRoot string) *Patcher {
	t.Helper()
	cfg := config.PatcherConfig{
		BackupDirectory: filepath.Join(t.TempDir(), "backups"),
		Interactive:     true,
	}
	return New(cfg)
}

func TestExecute_RejectsBackupDirectoryInsideProject(t *testing.T) {
	projectRoot := t.TempDir()
	cfg := config.PatcherConfig{BackupDirectory: filepath.Join(projectRoot, "backups")}
	p := New(cfg)

	_, err := p.Execute(context.Background(), projectRoot, model.IntegrationMap{}, Options{})
	if err == nil {
		t.Fatal("expected UnsafeBackupLocation when backup dir is inside the project root")
	}
}

func TestExecute_AppliesSafeModificationWithoutApproval(t *testing.T) {
	projectRoot := t.TempDir()
	if err := os.WriteFile(filepath.Join(projectRoot, "main.go"), []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	p := newTestPatcher(t, projectRoot)

	im := model.IntegrationMap{
		Steps: []model.IntegrationStep{{
			Type: model.StepModification,
			Modifications: []model.FileModification{{
				ModificationType: model.ModificationImportAdd,
				FilePath:         "main.go",
				NewContent:       "// added",
				SafetyLevel:      model.SafetyLevelSafe,
			}},
		}},
	}

	result, err := p.Execute(context.Background(), projectRoot, im, Options{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.StepsApplied != 1 {
		t.Fatalf("expected 1 step applied, got %d", result.StepsApplied)
	}
	content, _ := os.ReadFile(filepath.Join(projectRoot, "main.go"))
	if !strings.Contains(string(content), "// added") {
		t.Fatalf("expected the modification to be written, got %q", content)
	}
}

func TestExecute_ReviewRequiredStepRoutesThroughApprover(t *testing.T) {
	projectRoot := t.TempDir()
	os.WriteFile(filepath.Join(projectRoot, "main.go"), []byte("package main\n"), 0o644)
	p := newTestPatcher(t, projectRoot)

	im := model.IntegrationMap{
		Steps: []model.IntegrationStep{{
			Type: model.StepModification,
			Modifications: []model.FileModification{{
				FilePath:    "main.go",
				NewContent:  "os.Exec(cmd)",
				SafetyLevel: model.SafetyLevelReviewRequired,
			}},
		}},
	}

	rejecting := rejectApprover{}
	result, err := p.Execute(context.Background(), projectRoot, im, Options{Approver: rejecting})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.StepsSkipped != 1 {
		t.Fatalf("expected the rejected step to be skipped, got skipped=%d", result.StepsSkipped)
	}
	content, _ := os.ReadFile(filepath.Join(projectRoot, "main.go"))
	if strings.Contains(string(content), "os.Exec") {
		t.Fatal("expected a rejected step to never touch the file")
	}
}

func TestRollback_RestoresOriginalContentAndNeverDeletesProjectDir(t *testing.T) {
	projectRoot := t.TempDir()
	original := "package main\n// original\n"
	os.WriteFile(filepath.Join(projectRoot, "main.go"), []byte(original), 0o644)
	p := newTestPatcher(t, projectRoot)

	im := model.IntegrationMap{
		Steps: []model.IntegrationStep{
			{
				Type: model.StepModification,
				Modifications: []model.FileModification{{
					FilePath:    "main.go",
					NewContent:  "// step one",
					SafetyLevel: model.SafetyLevelSafe,
				}},
			},
			{
				// A bogus file_copy with no ReadSource configured forces a failure
				// so rollback fires after the first step already applied.
				Type:       model.StepFileCopy,
				SourcePath: "missing.go",
				DestPath:   "missing.go",
			},
		},
	}

	_, err := p.Execute(context.Background(), projectRoot, im, Options{})
	if err == nil {
		t.Fatal("expected the second step to fail and trigger rollback")
	}
	restored, _ := os.ReadFile(filepath.Join(projectRoot, "main.go"))
	if string(restored) != original {
		t.Fatalf("expected rollback to restore original content, got %q", restored)
	}
	if _, err := os.Stat(projectRoot); err != nil {
		t.Fatal("rollback must never remove the project directory")
	}
}

func TestAcquireLock_SecondAcquisitionFails(t *testing.T) {
	dir := t.TempDir()
	l1, err := acquireLock(dir)
	if err != nil {
		t.Fatalf("first acquireLock failed: %v", err)
	}
	defer l1.release()

	if _, err := acquireLock(dir); err == nil {
		t.Fatal("expected a second concurrent acquireLock to fail")
	}
}

type rejectApprover struct{}

func (rejectApprover) Decide(context.Context, model.IntegrationStep) (model.ApprovalDecision, error) {
	return model.DecisionReject, nil
}
