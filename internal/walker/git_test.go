package walker

import (
	"context"
	"os/exec"
	"path/filepath"
	"testing"
)

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func runGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

func TestWalk_GitDiff_StagedOnly(t *testing.T) {
	requireGit(t)
	root := t.TempDir()

	runGit(t, root, "init")
	runGit(t, root, "config", "user.email", "test@example.com")
	runGit(t, root, "config", "user.name", "test")
	writeFile(t, root, "a.go", "package main\n")
	runGit(t, root, "add", "a.go")
	runGit(t, root, "commit", "-m", "initial")

	writeFile(t, root, "b.go", "package main\n\nfunc B() {}\n")
	runGit(t, root, "add", "b.go")

	w := New(root)
	paths, err := w.Walk(context.Background(), Options{Mode: GitDiff, StagedOnly: true})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}
	if len(paths) != 1 || filepath.Base(paths[0]) != "b.go" {
		t.Fatalf("Walk(GitDiff staged) = %v, want [b.go]", paths)
	}
}
