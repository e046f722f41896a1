package analyzer

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"sentryd/internal/errs"
)

// Registry maps file extensions to the LanguageAnalyzer that claims them.
// A single analyzer may claim several extensions (e.g. ".ts"/".tsx"); an
// extension claimed twice is a registration error, since dispatch must be
// unambiguous.
type Registry struct {
	mu        sync.RWMutex
	byExt     map[string]LanguageAnalyzer
	analyzers []LanguageAnalyzer
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{byExt: make(map[string]LanguageAnalyzer)}
}

// Register adds a to the registry under every extension it reports.
func (r *Registry) Register(a LanguageAnalyzer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range a.FileExtensions() {
		ext = strings.ToLower(ext)
		if existing, ok := r.byExt[ext]; ok {
			return errs.New(errs.KindInvalidInput, "extension %s already claimed by %s, cannot register %s", ext, existing.LanguageName(), a.LanguageName())
		}
		r.byExt[ext] = a
	}
	r.analyzers = append(r.analyzers, a)
	return nil
}

// For returns the analyzer registered for path's extension, or nil if none
// claims it (the orchestrator then falls back to the generic analyzer set
// by its SetGenericAnalyzer, if any).
func (r *Registry) For(path string) LanguageAnalyzer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ext := strings.ToLower(filepath.Ext(path))
	return r.byExt[ext]
}

// Languages lists every distinct analyzer's LanguageName, sorted.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, a := range r.analyzers {
		if !seen[a.LanguageName()] {
			seen[a.LanguageName()] = true
			out = append(out, a.LanguageName())
		}
	}
	sort.Strings(out)
	return out
}

// All returns every registered analyzer, in registration order.
func (r *Registry) All() []LanguageAnalyzer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]LanguageAnalyzer, len(r.analyzers))
	copy(out, r.analyzers)
	return out
}
