package analyzer

import (
	"context"
	"testing"
)

func TestJavaScriptAnalyzer_DetectsDebuggerStatement(t *testing.T) {
	src := "function f() {\n  debugger;\n  return 1;\n}\n"
	a := NewJavaScriptAnalyzer()
	issues, err := a.AnalyzeFile(context.Background(), "f.js", []byte(src), nil, nil)
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}
	found := false
	for _, iss := range issues {
		if iss.Type == "debugger_statement" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a debugger_statement issue, got %+v", issues)
	}
}

func TestJavaScriptAnalyzer_DetectsUnreachableCode(t *testing.T) {
	src := "function f() {\n  return 1;\n  console.log('dead');\n}\n"
	a := NewJavaScriptAnalyzer()
	issues, err := a.AnalyzeFile(context.Background(), "f.js", []byte(src), nil, nil)
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}
	found := false
	for _, iss := range issues {
		if iss.Type == "unreachable_code" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an unreachable_code issue, got %+v", issues)
	}
}
