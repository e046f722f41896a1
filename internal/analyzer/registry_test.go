package analyzer

import (
	"context"
	"testing"

	"sentryd/internal/model"
	"sentryd/internal/store"
)

type stubAnalyzer struct {
	name string
	exts []string
}

func (s *stubAnalyzer) LanguageName() string     { return s.name }
func (s *stubAnalyzer) FileExtensions() []string { return s.exts }
func (s *stubAnalyzer) GetCrossLanguageCorrelations() []string { return nil }
func (s *stubAnalyzer) AnalyzeFile(ctx context.Context, path string, content []byte, localStore *store.Handle, globalStore *store.CrossReferenceIndex) ([]model.Issue, error) {
	return nil, nil
}
func (s *stubAnalyzer) LearnFromAnalysis(ctx context.Context, issues []model.Issue, localStore *store.Handle) error {
	return nil
}
func (s *stubAnalyzer) GetSimilarPatterns(ctx context.Context, issueType string, localStore *store.Handle) ([]string, error) {
	return nil, nil
}

func TestRegistry_RegisterAndFor(t *testing.T) {
	r := NewRegistry()
	go1 := &stubAnalyzer{name: "go", exts: []string{".go"}}
	py := &stubAnalyzer{name: "python", exts: []string{".py"}}
	if err := r.Register(go1); err != nil {
		t.Fatalf("Register(go) failed: %v", err)
	}
	if err := r.Register(py); err != nil {
		t.Fatalf("Register(python) failed: %v", err)
	}

	if got := r.For("main.go"); got != go1 {
		t.Fatalf("For(main.go) = %v, want go analyzer", got)
	}
	if got := r.For("script.PY"); got != py {
		t.Fatalf("For(script.PY) should match case-insensitively, got %v", got)
	}
	if got := r.For("README.md"); got != nil {
		t.Fatalf("For(README.md) = %v, want nil", got)
	}

	langs := r.Languages()
	if len(langs) != 2 || langs[0] != "go" || langs[1] != "python" {
		t.Fatalf("Languages() = %v, want [go python]", langs)
	}
}

func TestRegistry_DuplicateExtensionErrors(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubAnalyzer{name: "go", exts: []string{".go"}}); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	err := r.Register(&stubAnalyzer{name: "other", exts: []string{".go"}})
	if err == nil {
		t.Fatal("expected an error registering a second analyzer for .go")
	}
}
