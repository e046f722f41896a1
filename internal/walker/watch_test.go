package walker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_EmitsBatchOnChange(t *testing.T) {
	root := t.TempDir()
	w, err := NewWatcher(root)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	target := filepath.Join(root, "changed.go")
	if err := os.WriteFile(target, []byte("package main\n"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	select {
	case batch := <-w.Batches():
		if len(batch) == 0 {
			t.Fatal("expected a non-empty batch of changed paths")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a watch batch")
	}
}

func TestWatchableDirs_SkipsIgnored(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "vendor", "dep"), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(root, "pkg"), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	dirs, err := watchableDirs(root)
	if err != nil {
		t.Fatalf("watchableDirs failed: %v", err)
	}
	for _, d := range dirs {
		if filepath.Base(d) == "dep" {
			t.Fatalf("expected vendor/dep to be skipped, got dirs=%v", dirs)
		}
	}
}
