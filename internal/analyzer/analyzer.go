// Package analyzer implements the Language Analyzer contract (C4) and its
// Registry/Orchestrator (C5): per-language analyzers are registered by file
// extension, dispatched in parallel over a batch of files, and their issues
// learned back into the Memory Store.
package analyzer

import (
	"context"

	"sentryd/internal/model"
	"sentryd/internal/store"
)

// LanguageAnalyzer is implemented by every per-language (or generic)
// analyzer. Its method set is the spec's literal contract: analyze a file
// against both stores, learn from what it found, and expose enough of its
// internal vocabulary that the Orchestrator can correlate across
// languages and surface similar prior patterns to a fix generator.
type LanguageAnalyzer interface {
	// LanguageName identifies this analyzer, and the Memory Store language
	// store it reads from and writes patterns to.
	LanguageName() string

	// FileExtensions lists the extensions (with leading dot, e.g. ".go")
	// this analyzer claims in the Registry.
	FileExtensions() []string

	// AnalyzeFile inspects a single file's content and returns the issues
	// found. localStore is this analyzer's own language handle; globalStore
	// is the read-mostly Cross-Reference Index used to look up or record
	// concept correlations across languages.
	AnalyzeFile(ctx context.Context, path string, content []byte, localStore *store.Handle, globalStore *store.CrossReferenceIndex) ([]model.Issue, error)

	// LearnFromAnalysis records what this run found back into localStore,
	// e.g. reinforcing existing pattern records or storing new ones.
	LearnFromAnalysis(ctx context.Context, issues []model.Issue, localStore *store.Handle) error

	// GetSimilarPatterns returns pattern IDs in localStore whose category or
	// detection resembles issueType, for a fix generator to draw on.
	GetSimilarPatterns(ctx context.Context, issueType string, localStore *store.Handle) ([]string, error)

	// GetCrossLanguageCorrelations lists the other languages this analyzer
	// is known to share concepts with (e.g. go correlates with python's
	// "hardcoded_secret" the same way javascript does).
	GetCrossLanguageCorrelations() []string
}
