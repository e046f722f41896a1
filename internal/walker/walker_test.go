package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return p
}

func TestWalk_FullTree_SortedAndFiltered(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.go", "package main\n")
	writeFile(t, root, "a.go", "package main\n")
	writeFile(t, root, "vendor/dep.go", "package dep\n")
	writeFile(t, root, ".git/HEAD", "ref: refs/heads/main\n")
	writeFile(t, root, "image.png", "\x89PNG\r\n\x1a\nbinarydata")

	w := New(root)
	paths, err := w.Walk(context.Background(), Options{Mode: FullTree})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	if len(paths) != 2 {
		t.Fatalf("Walk returned %v, want exactly a.go and b.go", paths)
	}
	if filepath.Base(paths[0]) != "a.go" || filepath.Base(paths[1]) != "b.go" {
		t.Fatalf("Walk did not return sorted order: %v", paths)
	}
}

func TestWalk_ExplicitList(t *testing.T) {
	root := t.TempDir()
	p := writeFile(t, root, "main.py", "print('hi')\n")

	w := New(root)
	paths, err := w.Walk(context.Background(), Options{Mode: ExplicitList, Files: []string{"main.py"}})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(paths) != 1 || paths[0] != p {
		t.Fatalf("Walk(ExplicitList) = %v, want [%s]", paths, p)
	}
}

func TestWalk_ExplicitList_MissingFileErrors(t *testing.T) {
	root := t.TempDir()
	w := New(root)
	if _, err := w.Walk(context.Background(), Options{Mode: ExplicitList, Files: []string{"missing.go"}}); err == nil {
		t.Fatal("expected error for a missing explicit file")
	}
}

func TestWalk_UnknownModeErrors(t *testing.T) {
	w := New(t.TempDir())
	if _, err := w.Walk(context.Background(), Options{Mode: Mode(99)}); err == nil {
		t.Fatal("expected error for an unknown walker mode")
	}
}

func TestBatch_SplitsIntoChunks(t *testing.T) {
	paths := make([]string, 125)
	for i := range paths {
		paths[i] = filepath.Join("pkg", "file.go")
	}
	batches := Batch(paths, 50)
	if len(batches) != 3 {
		t.Fatalf("Batch produced %d batches, want 3", len(batches))
	}
	if len(batches[0]) != 50 || len(batches[1]) != 50 || len(batches[2]) != 25 {
		t.Fatalf("unexpected batch sizes: %d %d %d", len(batches[0]), len(batches[1]), len(batches[2]))
	}
}

func TestBatch_DefaultsWhenSizeNonPositive(t *testing.T) {
	paths := make([]string, 10)
	batches := Batch(paths, 0)
	if len(batches) != 1 || len(batches[0]) != 10 {
		t.Fatalf("Batch with size<=0 should use DefaultBatchSize, got %v", batches)
	}
}

func TestIsIgnoredPath(t *testing.T) {
	if !isIgnoredPath(filepath.Join("proj", "node_modules", "lib.js"), nil) {
		t.Error("expected node_modules path to be ignored")
	}
	if isIgnoredPath(filepath.Join("proj", "src", "main.go"), nil) {
		t.Error("expected ordinary source path not to be ignored")
	}
	if !isIgnoredPath("bundle.min.js", nil) {
		t.Error("expected *.min.js pattern to be ignored")
	}
}
