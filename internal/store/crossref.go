package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"sentryd/internal/errs"
	"sentryd/internal/logging"
	"sentryd/internal/model"
)

// CrossReferenceIndex is the global, read-mostly structure mapping universal
// concept keys (e.g. "buffer_overflow", "hardcoded_secret") to the set of
// (language, pattern_id) references that implement them, at
// stores/cross_ref/index.db (spec §3, §6). It is eventually consistent with
// the Language Stores and is maintained by explicit Reconcile calls rather
// than synchronously on every Store, so a slow cross-reference write never
// blocks a language store's single writer.
type CrossReferenceIndex struct {
	db *sql.DB
	mu sync.RWMutex
}

func openCrossReferenceIndex(dataDir string) (*CrossReferenceIndex, error) {
	dir := filepath.Join(dataDir, "stores", "cross_ref")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.Wrap(errs.KindStorageError, err, "failed to create cross-reference directory %s", dir)
	}
	path := filepath.Join(dir, "index.db")
	db, err := sql.Open(sqliteDriver, path)
	if err != nil {
		return nil, errs.Wrap(errs.KindStorageError, err, "failed to open cross-reference index at %s", path)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		logging.StoreDebug("cross_ref: failed to set journal_mode=WAL: %v", err)
	}
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cross_references (
			concept_key TEXT NOT NULL,
			language TEXT NOT NULL,
			pattern_id TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (concept_key, language, pattern_id)
		);
		CREATE INDEX IF NOT EXISTS idx_cross_references_concept ON cross_references(concept_key);
	`); err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindStorageError, err, "failed to initialize cross-reference schema")
	}
	return &CrossReferenceIndex{db: db}, nil
}

// Reconcile records that pattern_id (in language) implements conceptKey.
// This is the only write path into the index; it never touches a Language
// Store, satisfying "maintained by background reconciliation" (spec §3).
func (c *CrossReferenceIndex) Reconcile(ctx context.Context, conceptKey, language, patternID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cross_references (concept_key, language, pattern_id) VALUES (?, ?, ?)`,
		conceptKey, language, patternID)
	if err != nil {
		return errs.Wrap(errs.KindStorageError, err, "failed to reconcile cross-reference %s", conceptKey)
	}
	return nil
}

// Lookup returns every (language, pattern_id) reference recorded for
// conceptKey.
func (c *CrossReferenceIndex) Lookup(ctx context.Context, conceptKey string) (model.CrossReferenceEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(ctx,
		`SELECT language, pattern_id FROM cross_references WHERE concept_key = ? ORDER BY language, pattern_id`,
		conceptKey)
	if err != nil {
		return model.CrossReferenceEntry{}, errs.Wrap(errs.KindStorageError, err, "failed to look up cross-reference %s", conceptKey)
	}
	defer rows.Close()

	entry := model.CrossReferenceEntry{ConceptKey: conceptKey}
	for rows.Next() {
		var ref model.LanguagePatternID
		if err := rows.Scan(&ref.Language, &ref.PatternID); err != nil {
			continue
		}
		entry.References = append(entry.References, ref)
	}
	return entry, nil
}

// ConceptKeys lists every concept key with at least one reference.
func (c *CrossReferenceIndex) ConceptKeys(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT concept_key FROM cross_references`)
	if err != nil {
		return nil, errs.Wrap(errs.KindStorageError, err, "failed to list concept keys")
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

func (c *CrossReferenceIndex) Close() error {
	return c.db.Close()
}
