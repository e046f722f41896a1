package falsepositive

import (
	"context"
	"testing"

	"sentryd/internal/model"
	"sentryd/internal/store"
)

func openTestHandle(t *testing.T) *store.Handle {
	t.Helper()
	reg, err := store.NewRegistry(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	t.Cleanup(func() { reg.CloseAll() })
	h, err := reg.Open("go")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return h
}

func TestFilter_Apply_DropsConfirmedFalsePositive(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	f := New()

	content := []byte("package main\n// TODO: revisit\n")
	files := map[string][]byte{"f.go": content}
	sig := Signature("technical_debt_todo", "f.go", "// TODO: revisit")
	if err := f.Confirm(ctx, h, sig, "technical_debt_todo", "intentional, tracked elsewhere"); err != nil {
		t.Fatalf("Confirm failed: %v", err)
	}

	issues := []model.Issue{{Type: "technical_debt_todo", FilePath: "f.go", Line: 2}}
	kept, dropped, err := f.Apply(ctx, issues, files, h)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if dropped != 1 || len(kept) != 0 {
		t.Fatalf("Apply() kept=%v dropped=%d, want 0 kept 1 dropped", kept, dropped)
	}
}

func TestFilter_Apply_KeepsUnconfirmedIssue(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	f := New()

	content := []byte("package main\n// TODO: revisit\n")
	files := map[string][]byte{"f.go": content}
	issues := []model.Issue{{Type: "technical_debt_todo", FilePath: "f.go", Line: 2}}
	kept, dropped, err := f.Apply(ctx, issues, files, h)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if dropped != 0 || len(kept) != 1 {
		t.Fatalf("Apply() kept=%v dropped=%d, want 1 kept 0 dropped", kept, dropped)
	}
}

func TestFilter_DropsBugTrackingReferencedDebtMarker(t *testing.T) {
	ctx := context.Background()
	h := openTestHandle(t)
	f := New()

	content := []byte("package main\n// TODO(JIRA-123): scheduled cleanup\n")
	files := map[string][]byte{"f.go": content}
	issues := []model.Issue{{Type: "technical_debt_todo", FilePath: "f.go", Line: 2}}
	kept, dropped, err := f.Apply(ctx, issues, files, h)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if dropped != 1 || len(kept) != 0 {
		t.Fatalf("Apply() kept=%v dropped=%d, want 0 kept 1 dropped", kept, dropped)
	}
}

func TestSignature_StableAcrossLineShift(t *testing.T) {
	a := Signature("unused_import", "pkg/file.go", "import \"os\"")
	b := Signature("unused_import", "pkg/file.go", "import   \"os\"  ")
	if a != b {
		t.Fatalf("Signature should normalize whitespace: %s != %s", a, b)
	}
}
