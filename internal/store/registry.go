package store

import (
	"context"
	"sort"
	"sync"

	"sentryd/internal/embedding"
	"sentryd/internal/errs"
	"sentryd/internal/logging"
	"sentryd/internal/model"
)

// Registry owns every open language Handle plus the Cross-Reference Index
// for one data directory. It is the top-level entry point C3-C13 use to
// reach the Memory Store; callers never construct a Handle directly.
type Registry struct {
	dataDir string
	engine  embedding.EmbeddingEngine

	mu       sync.RWMutex
	handles  map[string]*Handle
	crossRef *CrossReferenceIndex
}

// NewRegistry opens (or prepares to lazily open) language stores rooted at
// dataDir, and eagerly opens the global Cross-Reference Index.
func NewRegistry(dataDir string, engine embedding.EmbeddingEngine) (*Registry, error) {
	cr, err := openCrossReferenceIndex(dataDir)
	if err != nil {
		return nil, err
	}
	return &Registry{
		dataDir:  dataDir,
		engine:   engine,
		handles:  make(map[string]*Handle),
		crossRef: cr,
	}, nil
}

// Open returns the Handle for language, opening its database on first use.
// Safe for concurrent use by multiple goroutines.
func (r *Registry) Open(language string) (*Handle, error) {
	r.mu.RLock()
	h, ok := r.handles[language]
	r.mu.RUnlock()
	if ok {
		return h, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.handles[language]; ok {
		return h, nil
	}

	h, err := openLanguage(r.dataDir, language)
	if err != nil && h == nil {
		return nil, err
	}
	if r.engine != nil {
		h.SetEmbeddingEngine(r.engine)
	}
	r.handles[language] = h
	if err != nil {
		// CorruptStore: handle is usable read-only, but still registered so
		// subsequent Open calls don't retry the failed init.
		return h, err
	}
	return h, nil
}

// Languages lists every language with an open handle.
func (r *Registry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.handles))
	for lang := range r.handles {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// CrossReferenceIndex exposes the registry's global cross-reference index.
func (r *Registry) CrossReferenceIndex() *CrossReferenceIndex { return r.crossRef }

// SearchCrossLanguage executes Search against every registered language
// handle read-only and merges results, preserving per-language grouping
// (spec §4.1). Handles that are read-only due to corruption are skipped
// with a warning rather than failing the whole call.
func (r *Registry) SearchCrossLanguage(ctx context.Context, query string, k int) (map[string]model.SearchOutcome, error) {
	timer := logging.StartTimer(logging.CategoryStore, "SearchCrossLanguage")
	defer timer.Stop()

	r.mu.RLock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	out := make(map[string]model.SearchOutcome, len(handles))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, h := range handles {
		if h.ReadOnly() {
			logging.StoreWarn("store[%s]: skipped in cross-language search (read-only)", h.Language())
			continue
		}
		h := h
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcome, err := h.Search(ctx, query, k, Filter{}, DefaultSearchTimeout)
			if err != nil {
				logging.StoreWarn("store[%s]: cross-language search failed: %v", h.Language(), err)
				return
			}
			mu.Lock()
			out[h.Language()] = outcome
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out, nil
}

// CloseAll closes every open handle and the cross-reference index.
func (r *Registry) CloseAll() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for lang, h := range r.handles {
		if err := h.Close(); err != nil && firstErr == nil {
			firstErr = errs.Wrap(errs.KindStorageError, err, "failed to close store %s", lang)
		}
	}
	if err := r.crossRef.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// PruneAll runs Prune against every open language handle and returns the
// total number of records removed.
func (r *Registry) PruneAll(ctx context.Context) (int64, error) {
	r.mu.RLock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	var total int64
	for _, h := range handles {
		if h.ReadOnly() {
			continue
		}
		n, err := h.Prune(ctx)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
