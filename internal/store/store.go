// Package store implements the Memory Store (C1): one isolated SQLite
// database per language holding Pattern Records and key-value namespaces
// (false_positives, issue_validations, context_rules, intelligent_fix_generator),
// plus the global Cross-Reference Index. Writes are serialized per language
// handle; reads take a snapshot and never block on a concurrent writer.
package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sentryd/internal/embedding"
	"sentryd/internal/errs"
	"sentryd/internal/logging"

	_ "modernc.org/sqlite"
)

// sqliteDriver is the database/sql driver name used to open every store
// database. modernc.org/sqlite is pure Go, so sentryd runs without cgo by
// default; vec.go supplies the vec0 virtual table and cosine distance
// function that driver lacks natively. Builds tagged sqlite_vec,cgo switch
// this to "sqlite3" (github.com/mattn/go-sqlite3) and register the real
// sqlite-vec-go-bindings extension for true ANN search (see vec_cgo.go).
var sqliteDriver = "sqlite"

// Handle is a single language's isolated store: one SQLite file, one
// writer at a time, many concurrent readers. The zero value is not usable;
// obtain a Handle via Registry.Open or OpenLanguage.
type Handle struct {
	language string
	path     string
	db       *sql.DB
	mu       sync.RWMutex

	embeddingEngine embedding.EmbeddingEngine
	vectorEnabled   bool

	readOnly bool // set true after CorruptStore is detected (spec §7)
}

// Language reports the language this handle is isolated to.
func (h *Handle) Language() string { return h.language }

// Path reports the on-disk SQLite file backing this handle.
func (h *Handle) Path() string { return h.path }

// ReadOnly reports whether this handle has been demoted after detecting
// schema corruption (spec §7: "Corrupt Memory Store drops that language to
// read-only for the remainder of the process; other languages proceed.").
func (h *Handle) ReadOnly() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.readOnly
}

// SetEmbeddingEngine wires the Embedding Oracle (C2) into this handle. A nil
// engine puts the handle into permanent keyword-degraded mode.
func (h *Handle) SetEmbeddingEngine(engine embedding.EmbeddingEngine) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.embeddingEngine = engine
	if engine != nil {
		logging.Store("store[%s]: embedding engine set to %s (dim=%d)", h.language, engine.Name(), engine.Dimensions())
		h.vectorEnabled = initVecIndex(h.db, engine.Dimensions())
	} else {
		logging.StoreWarn("store[%s]: embedding engine cleared, degrading to keyword search", h.language)
		h.vectorEnabled = false
	}
}

// Close releases the underlying database handle.
func (h *Handle) Close() error {
	logging.Store("store[%s]: closing", h.language)
	return h.db.Close()
}

// openLanguage opens (creating if absent) the per-language database rooted
// at dataDir/stores/<language>/patterns.db, per spec §6's persisted state
// layout, and runs schema initialization.
func openLanguage(dataDir, language string) (*Handle, error) {
	timer := logging.StartTimer(logging.CategoryStore, "openLanguage")
	defer timer.Stop()

	if language == "" {
		return nil, errs.New(errs.KindUnsupportedLanguage, "language must not be empty")
	}

	dir := filepath.Join(dataDir, "stores", language)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindStorageError, err, "failed to create language store directory %s", dir)
	}
	path := filepath.Join(dir, "patterns.db")

	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return nil, errs.Wrap(errs.KindStorageError, err, "failed to open store at %s", path)
	}
	// Single-writer-per-language-store, many-readers (spec §5). One
	// connection keeps writes serialized through database/sql's pool;
	// WAL lets readers proceed against the last committed snapshot.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		logging.StoreDebug("store[%s]: failed to set busy_timeout: %v", language, err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("store[%s]: failed to set journal_mode=WAL: %v", language, err)
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL"); err != nil {
		logging.StoreDebug("store[%s]: failed to set synchronous=NORMAL: %v", language, err)
	}

	h := &Handle{language: language, path: path, db: db}
	if err := initSchema(db); err != nil {
		db.Close()
		if isCorruption(err) {
			logging.StoreError("store[%s]: schema corruption detected, opening read-only: %v", language, err)
			h.readOnly = true
			return h, errs.Wrap(errs.KindCorruptStore, err, "store %s is corrupt", path)
		}
		return nil, errs.Wrap(errs.KindStorageError, err, "failed to initialize schema at %s", path)
	}
	h.vectorEnabled = detectVecExtension(db)
	logging.Store("store[%s]: opened at %s (vector_enabled=%v)", language, path, h.vectorEnabled)
	return h, nil
}

func isCorruption(err error) bool {
	if err == nil {
		return false
	}
	return containsAny(err.Error(), []string{"malformed", "file is not a database", "database disk image is malformed"})
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
