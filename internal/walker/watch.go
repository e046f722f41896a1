package walker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"sentryd/internal/errs"
	"sentryd/internal/logging"
)

// defaultDebounce settles rapid-fire filesystem events before re-batching
// them, the way codenerd's MangleWatcher debounces rapid saves before
// reparsing.
const defaultDebounce = 500 * time.Millisecond

// Watcher watches a project tree and emits batches of changed file paths,
// feeding the Orchestrator's recursive-improvement loop (spec §4.3 item 3)
// independently of the Patcher's own re-queue signal.
type Watcher struct {
	root     string
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	pending map[string]time.Time

	batches chan []string
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a Watcher rooted at root. Call Start to begin watching.
func NewWatcher(root string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errs.Wrap(errs.KindIOError, err, "failed to create filesystem watcher")
	}
	return &Watcher{
		root:     root,
		debounce: defaultDebounce,
		watcher:  fw,
		pending:  make(map[string]time.Time),
		batches:  make(chan []string, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins watching root (recursively) and its subdirectories, skipping
// ignored directories. Non-blocking; events are delivered via Batches.
func (w *Watcher) Start(ctx context.Context) error {
	dirs, err := watchableDirs(w.root)
	if err != nil {
		return err
	}
	for _, d := range dirs {
		if err := w.watcher.Add(d); err != nil {
			logging.WalkerWarn("walker: failed to watch %s: %v", d, err)
		}
	}
	logging.Walker("walker: watching %d directories under %s", len(dirs), w.root)
	go w.run(ctx)
	return nil
}

// Batches returns the channel of debounced changed-file batches.
func (w *Watcher) Batches() <-chan []string {
	return w.batches
}

// Stop stops the watcher and waits for its goroutine to exit.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.batches)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if isIgnoredPath(event.Name, nil) {
				continue
			}
			w.mu.Lock()
			w.pending[event.Name] = time.Now()
			w.mu.Unlock()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.WalkerWarn("walker: watch error: %v", err)
		case <-ticker.C:
			w.flush()
		}
	}
}

func (w *Watcher) flush() {
	w.mu.Lock()
	now := time.Now()
	var ready []string
	for path, t := range w.pending {
		if now.Sub(t) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	if len(ready) == 0 {
		return
	}
	select {
	case w.batches <- ready:
	default:
		logging.WalkerWarn("walker: batch channel full, dropping %d watched changes", len(ready))
	}
}

// watchableDirs lists root and every non-ignored subdirectory under it, for
// registering with fsnotify (which watches directories, not trees).
func watchableDirs(root string) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isIgnoredDir(d.Name()) {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})
	if err != nil {
		return nil, errs.Wrap(errs.KindIOError, err, "failed to enumerate watchable directories under %s", root)
	}
	return dirs, nil
}
