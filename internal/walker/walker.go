// Package walker implements the File Walker (C3): it enumerates the files an
// analysis run should cover, in one of three scoping modes, skips ignored
// and binary files, and groups the result into deterministic batches.
package walker

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sentryd/internal/errs"
	"sentryd/internal/logging"
)

// Mode selects how the Walker decides which files are in scope.
type Mode int

const (
	// FullTree walks every file under ProjectRoot.
	FullTree Mode = iota
	// GitDiff scopes to files changed relative to a git ref (or the
	// staged index, or a since-commit range — see Options).
	GitDiff
	// ExplicitList scopes to exactly the paths given in Options.Files.
	ExplicitList
)

// Options configures a single Walk call.
type Options struct {
	Mode Mode

	// GitDiffRef is compared against the working tree when Mode is GitDiff
	// and StagedOnly/SinceCommit are unset.
	GitDiffRef string
	// StagedOnly restricts a GitDiff walk to the staged index.
	StagedOnly bool
	// SinceCommit scopes a GitDiff walk to changes since this commit.
	SinceCommit string

	// Files lists the exact paths in scope when Mode is ExplicitList.
	Files []string

	// ExtraIgnore adds additional glob-style ignore patterns beyond the
	// built-in defaults (DefaultIgnorePatterns).
	ExtraIgnore []string
}

// Walker enumerates files under a single project root.
type Walker struct {
	ProjectRoot string
}

// New returns a Walker rooted at projectRoot. projectRoot must be an
// absolute, already-resolved path; boundary enforcement against it is the
// safety envelope's job, not the walker's.
func New(projectRoot string) *Walker {
	return &Walker{ProjectRoot: projectRoot}
}

// Walk returns the files in scope for opts, sorted by path for deterministic
// enumeration order (spec §4.2, §5).
func (w *Walker) Walk(ctx context.Context, opts Options) ([]string, error) {
	var paths []string
	var err error

	switch opts.Mode {
	case FullTree:
		paths, err = w.walkFullTree(ctx, opts.ExtraIgnore)
	case GitDiff:
		paths, err = gitDiffFiles(ctx, w.ProjectRoot, opts)
	case ExplicitList:
		paths, err = w.resolveExplicit(opts.Files)
	default:
		return nil, errs.New(errs.KindInvalidInput, "unknown walker mode %d", int(opts.Mode))
	}
	if err != nil {
		return nil, err
	}

	filtered := make([]string, 0, len(paths))
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return nil, errs.Wrap(errs.KindTimeout, ctx.Err(), "walk cancelled")
		default:
		}
		if isIgnoredPath(p, opts.ExtraIgnore) {
			continue
		}
		isBinary, err := looksBinary(p)
		if err != nil {
			logging.WalkerWarn("walker: skipping unreadable file %s: %v", p, err)
			continue
		}
		if isBinary {
			logging.WalkerDebug("walker: skipping binary file %s", p)
			continue
		}
		filtered = append(filtered, p)
	}

	sort.Strings(filtered)
	logging.Walker("walker: %d files in scope under %s (mode=%d)", len(filtered), w.ProjectRoot, opts.Mode)
	return filtered, nil
}

// walkFullTree enumerates every non-ignored, non-directory file under the
// project root.
func (w *Walker) walkFullTree(ctx context.Context, extraIgnore []string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(w.ProjectRoot, func(path string, d os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err != nil {
			logging.WalkerWarn("walker: walk error at %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if path != w.ProjectRoot && isIgnoredDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindIOError, err, "failed to walk %s", w.ProjectRoot)
	}
	return paths, nil
}

func isIgnoredDir(name string) bool {
	for _, ig := range defaultIgnoreDirs {
		if name == ig {
			return true
		}
	}
	return false
}

// resolveExplicit turns a possibly-relative explicit file list into absolute
// paths rooted at ProjectRoot, rejecting entries that don't exist.
func (w *Walker) resolveExplicit(files []string) ([]string, error) {
	resolved := make([]string, 0, len(files))
	for _, f := range files {
		p := f
		if !filepath.IsAbs(p) {
			p = filepath.Join(w.ProjectRoot, f)
		}
		if _, err := os.Stat(p); err != nil {
			return nil, errs.Wrap(errs.KindNotFound, err, "explicit file %s not found", f)
		}
		resolved = append(resolved, p)
	}
	return resolved, nil
}

// looksBinary sniffs the first 512 bytes of path via net/http's content-type
// detector, the stdlib's canonical magic-byte heuristic (spec §4.2) — no
// pack library specializes in this, so stdlib is the right tool (see
// DESIGN.md).
func looksBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, err
	}
	contentType := http.DetectContentType(buf[:n])
	if strings.HasPrefix(contentType, "text/") {
		return false, nil
	}
	if contentType == "application/octet-stream" && looksLikeText(buf[:n]) {
		return false, nil
	}
	return true, nil
}

// looksLikeText guards against DetectContentType's generic fallback
// ("application/octet-stream") misclassifying source files with no
// recognizable prefix (many scripting languages, config files) as binary.
func looksLikeText(b []byte) bool {
	for _, c := range b {
		if c == 0 {
			return false
		}
	}
	return true
}
