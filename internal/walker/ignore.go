package walker

import (
	"path/filepath"
	"strings"
)

// defaultIgnoreDirs names directories skipped entirely during a full-tree
// walk: VCS metadata, build artifacts, and vendored dependencies across the
// languages sentryd's analyzers cover (spec §4.2).
var defaultIgnoreDirs = []string{
	".git", ".hg", ".svn",
	"node_modules", "vendor", "venv", ".venv", "__pycache__",
	"dist", "build", "target", "bin", "obj",
	".sentryd", ".idea", ".vscode",
}

// DefaultIgnorePatterns lists the glob-style file patterns ignored on top of
// defaultIgnoreDirs.
var DefaultIgnorePatterns = []string{
	"*.min.js", "*.min.css",
	"*.pyc", "*.pyo",
	"*.so", "*.dll", "*.dylib", "*.exe",
	"*.lock",
}

// isIgnoredPath reports whether path matches a default or caller-supplied
// ignore pattern, or falls inside a default-ignored directory.
func isIgnoredPath(path string, extra []string) bool {
	parts := strings.Split(filepath.ToSlash(path), "/")
	for _, part := range parts {
		if isIgnoredDir(part) {
			return true
		}
	}

	base := filepath.Base(path)
	for _, pat := range DefaultIgnorePatterns {
		if matched, _ := filepath.Match(pat, base); matched {
			return true
		}
	}
	for _, pat := range extra {
		if matched, _ := filepath.Match(pat, base); matched {
			return true
		}
		if matched, _ := filepath.Match(pat, path); matched {
			return true
		}
	}
	return false
}
