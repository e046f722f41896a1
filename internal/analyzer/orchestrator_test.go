package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"sentryd/internal/config"
	"sentryd/internal/model"
	"sentryd/internal/store"
	"sentryd/internal/walker"
)

func newTestOrchestrator(t *testing.T) (*Orchestrator, string) {
	t.Helper()
	dataDir := t.TempDir()
	projectRoot := t.TempDir()

	reg, err := store.NewRegistry(dataDir, nil)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	t.Cleanup(func() { reg.CloseAll() })

	cfg := config.DefaultConfig()
	cfg.Concurrency.MaxWorkers = 2

	analyzers := NewRegistry()
	if err := analyzers.Register(NewGoAnalyzer()); err != nil {
		t.Fatalf("Register(go) failed: %v", err)
	}

	w := walker.New(projectRoot)
	o := NewOrchestrator(analyzers, reg, cfg, w)
	o.SetGenericAnalyzer(NewGenericAnalyzer())
	return o, projectRoot
}

func TestOrchestrator_RunBatch_FindsUnusedImportAndSecret(t *testing.T) {
	o, root := newTestOrchestrator(t)

	src := "package main\n\nimport (\n\t\"fmt\"\n\t\"os\"\n)\n\nfunc main() {\n\tfmt.Println(\"hi\")\n}\n"
	goPath := filepath.Join(root, "main.go")
	if err := os.WriteFile(goPath, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfgPath := filepath.Join(root, "config.txt")
	if err := os.WriteFile(cfgPath, []byte("api_key = \"sk_live_abcdef1234567890\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	result, err := o.RunBatch(context.Background(), []string{goPath, cfgPath})
	if err != nil {
		t.Fatalf("RunBatch failed: %v", err)
	}
	if result.FilesAnalyzed != 2 {
		t.Fatalf("FilesAnalyzed = %d, want 2", result.FilesAnalyzed)
	}

	var foundUnusedImport, foundSecret bool
	for _, iss := range result.Issues {
		if iss.Type == "unused_import" && iss.FilePath == goPath {
			foundUnusedImport = true
		}
		if iss.Type == "hardcoded_secret" && iss.FilePath == cfgPath {
			foundSecret = true
		}
	}
	if !foundUnusedImport {
		t.Errorf("expected an unused_import issue for %s, got %+v", goPath, result.Issues)
	}
	if !foundSecret {
		t.Errorf("expected a hardcoded_secret issue for %s, got %+v", cfgPath, result.Issues)
	}

	for i := 1; i < len(result.Issues); i++ {
		a, b := result.Issues[i-1], result.Issues[i]
		if a.FilePath > b.FilePath {
			t.Fatalf("issues not sorted by file_path: %+v before %+v", a, b)
		}
	}
}

func TestSortIssues_OrdersByFileLineType(t *testing.T) {
	issues := []model.Issue{
		{FilePath: "b.go", Line: 1, Type: "z"},
		{FilePath: "a.go", Line: 5, Type: "y"},
		{FilePath: "a.go", Line: 2, Type: "x"},
	}
	sortIssues(issues)
	want := []string{"a.go:2:x", "a.go:5:y", "b.go:1:z"}
	for i, w := range want {
		if issues[i].Key() != w {
			t.Fatalf("issues[%d] = %s, want %s", i, issues[i].Key(), w)
		}
	}
}

func TestOrchestrator_RunRecursive_DetectsRegressionWhenNothingImproves(t *testing.T) {
	o, root := newTestOrchestrator(t)
	cfgPath := filepath.Join(root, "config.txt")
	if err := os.WriteFile(cfgPath, []byte("api_key = \"sk_live_abcdef1234567890\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := o.RunRecursive(context.Background(), walker.Options{Mode: walker.FullTree})
	if err == nil {
		t.Fatal("expected RunRecursive to report a regression when the issue count never improves")
	}
}

func TestCriticalHighCount(t *testing.T) {
	issues := []model.Issue{
		{Severity: model.SeverityCritical},
		{Severity: model.SeverityHigh},
		{Severity: model.SeverityLow},
		{Severity: model.SeverityMedium},
	}
	if got := criticalHighCount(issues); got != 2 {
		t.Fatalf("criticalHighCount = %d, want 2", got)
	}
}
