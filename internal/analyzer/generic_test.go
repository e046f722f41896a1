package analyzer

import (
	"context"
	"testing"

	"sentryd/internal/model"
)

func TestGenericAnalyzer_DetectsHardcodedSecret(t *testing.T) {
	a := NewGenericAnalyzer()
	content := []byte("password = \"hunter2hunter2\"\n")
	issues, err := a.AnalyzeFile(context.Background(), "settings.ini", content, nil, nil)
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}
	if len(issues) != 1 || issues[0].Type != "hardcoded_secret" {
		t.Fatalf("issues = %+v, want one hardcoded_secret", issues)
	}
	if issues[0].Severity != model.SeverityCritical {
		t.Errorf("Severity = %s, want critical", issues[0].Severity)
	}
}

func TestGenericAnalyzer_SafePatternSuppressesMatch(t *testing.T) {
	a := NewGenericAnalyzer()
	content := []byte("api_key = os.environ[\"API_KEY\"]\n")
	issues, err := a.AnalyzeFile(context.Background(), "settings.py", content, nil, nil)
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected the os.environ reference to be treated as safe, got %+v", issues)
	}
}

func TestGenericAnalyzer_DebtMarkerSeverityEscalatesInSecurityContext(t *testing.T) {
	a := NewGenericAnalyzer()
	content := []byte("# TODO: fix this auth bypass before release\n")
	issues, err := a.AnalyzeFile(context.Background(), "auth.py", content, nil, nil)
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("issues = %+v, want one debt marker", issues)
	}
	if issues[0].Severity != model.SeverityMedium {
		t.Errorf("Severity = %s, want medium (escalated from low)", issues[0].Severity)
	}
}

func TestGenericAnalyzer_DebtMarkerSeverityReducedInTestFile(t *testing.T) {
	a := NewGenericAnalyzer()
	content := []byte("// FIXME: flaky assertion\n")
	issues, err := a.AnalyzeFile(context.Background(), "widget_test.go", content, nil, nil)
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("issues = %+v, want one debt marker", issues)
	}
	if issues[0].Severity != model.SeverityLow {
		t.Errorf("Severity = %s, want low (reduced from medium)", issues[0].Severity)
	}
}

func TestGenericAnalyzer_IgnoresNonCommentTodoLookingCode(t *testing.T) {
	a := NewGenericAnalyzer()
	content := []byte("var todoList = loadTodos()\n")
	issues, err := a.AnalyzeFile(context.Background(), "app.go", content, nil, nil)
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no debt marker on a non-comment line, got %+v", issues)
	}
}
