package analyzer

import (
	"context"
	"testing"
)

func TestPythonAnalyzer_UnusedImport(t *testing.T) {
	src := "import os\nimport sys\n\ndef main():\n    print(sys.argv)\n"
	a := NewPythonAnalyzer()
	issues, err := a.AnalyzeFile(context.Background(), "main.py", []byte(src), nil, nil)
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}
	found := false
	for _, iss := range issues {
		if iss.Type == "unused_import" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an unused_import issue for os, got %+v", issues)
	}
}

func TestPythonAnalyzer_NoFalsePositiveWhenImportUsed(t *testing.T) {
	src := "import sys\n\ndef main():\n    print(sys.argv)\n"
	a := NewPythonAnalyzer()
	issues, err := a.AnalyzeFile(context.Background(), "main.py", []byte(src), nil, nil)
	if err != nil {
		t.Fatalf("AnalyzeFile failed: %v", err)
	}
	for _, iss := range issues {
		if iss.Type == "unused_import" {
			t.Fatalf("did not expect an unused_import issue, got %+v", issues)
		}
	}
}
