package store

import (
	"database/sql"
	"fmt"
)

// initSchema creates the tables a fresh or existing language store needs.
// Grounded on the teacher's table-then-migrate discipline: base tables are
// created first, then RunMigrations backfills columns added by later
// revisions, and indexes that depend on migrated columns are created last.
func initSchema(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS patterns (
			pattern_id TEXT PRIMARY KEY,
			language TEXT NOT NULL,
			category TEXT NOT NULL,
			severity TEXT NOT NULL,
			detection TEXT NOT NULL,
			suggestion TEXT,
			educational_content TEXT,
			cross_language_correlation TEXT, -- JSON array of pattern ids
			embedding BLOB,
			success_count INTEGER NOT NULL DEFAULT 0,
			failure_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_used_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE INDEX IF NOT EXISTS idx_patterns_category ON patterns(category);`,
		`CREATE INDEX IF NOT EXISTS idx_patterns_last_used ON patterns(last_used_at);`,

		// Secondary key-value namespaces: false_positives, issue_validations,
		// context_rules, intelligent_fix_generator (spec §3 "Language Store").
		`CREATE TABLE IF NOT EXISTS namespace_entries (
			namespace TEXT NOT NULL,
			key TEXT NOT NULL,
			value TEXT NOT NULL, -- JSON
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (namespace, key)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_namespace_entries_ns ON namespace_entries(namespace);`,
	}
	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return runMigrations(db)
}

// migration is one forward-only, idempotent schema change.
type migration struct {
	name string
	run  func(*sql.DB) error
}

// migrations lists schema evolutions in order. Each must tolerate being run
// against a database that already has the column/table it adds (ALTER TABLE
// ADD COLUMN errors on "duplicate column" are swallowed deliberately).
var migrations = []migration{
	{
		name: "patterns_quality_score_cache",
		run: func(db *sql.DB) error {
			_, err := db.Exec(`ALTER TABLE patterns ADD COLUMN quality_score_cache REAL DEFAULT 0`)
			return ignoreDuplicateColumn(err)
		},
	},
}

func runMigrations(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (name TEXT PRIMARY KEY, applied_at DATETIME DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}
	for _, m := range migrations {
		var applied int
		if err := db.QueryRow(`SELECT COUNT(*) FROM schema_migrations WHERE name = ?`, m.name).Scan(&applied); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", m.name, err)
		}
		if applied > 0 {
			continue
		}
		if err := m.run(db); err != nil {
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}
		if _, err := db.Exec(`INSERT INTO schema_migrations (name) VALUES (?)`, m.name); err != nil {
			return fmt.Errorf("failed to record migration %s: %w", m.name, err)
		}
	}
	return nil
}

func ignoreDuplicateColumn(err error) error {
	if err == nil {
		return nil
	}
	if containsAny(err.Error(), []string{"duplicate column"}) {
		return nil
	}
	return err
}
