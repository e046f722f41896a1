package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"sentryd/internal/embedding"
	"sentryd/internal/errs"
	"sentryd/internal/logging"
	"sentryd/internal/model"
)

// DefaultMaxPatternsPerLanguage bounds a single language store before
// StorePattern starts failing with MemoryFull (spec §4.1). Operators can
// override per deployment; there is no global cap across languages since
// stores are isolated.
const DefaultMaxPatternsPerLanguage = 250_000

// pruneTTL is how long a record may go unused before prune() considers it
// for removal; combined with the quality threshold below.
const pruneTTL = 90 * 24 * time.Hour

// pruneQualityThreshold is Q in spec §4.1's prune formula:
// success_count/(success_count+failure_count+1) < Q.
const pruneQualityThreshold = 0.2

// Store computes an embedding for content (or skips it in degraded mode)
// and durably writes a new Pattern Record. It is atomic: a reader of this
// language's store either observes the full record or none of it.
func (h *Handle) Store(ctx context.Context, rec model.PatternRecord, content string, metadata map[string]interface{}) (string, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Store")
	defer timer.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.readOnly {
		return "", errs.New(errs.KindCorruptStore, "store %s is read-only", h.language)
	}
	if rec.PatternID == "" {
		return "", errs.New(errs.KindInvalidMetadata, "pattern_id is required")
	}
	if rec.Language == "" {
		rec.Language = h.language
	}
	if rec.Language != h.language {
		return "", errs.New(errs.KindInvalidMetadata, "pattern language %q does not match store language %q", rec.Language, h.language)
	}

	var count int
	if err := h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM patterns").Scan(&count); err != nil {
		return "", errs.Wrap(errs.KindStorageError, err, "failed to count patterns")
	}
	if count >= DefaultMaxPatternsPerLanguage {
		return "", errs.New(errs.KindMemoryFull, "language store %s is at capacity (%d patterns)", h.language, count)
	}

	embeddingVec := rec.Embedding
	if embeddingVec == nil && h.embeddingEngine != nil {
		taskType := embedding.GetOptimalTaskType(content, metadata, false)
		var err error
		if taskAware, ok := h.embeddingEngine.(taskTypeAwareEngine); ok && taskType != "" {
			embeddingVec, err = taskAware.EmbedWithTask(ctx, content, taskType)
		} else {
			embeddingVec, err = h.embeddingEngine.Embed(ctx, content)
		}
		if err != nil {
			// Failure model (spec §4.1): embedding errors degrade to
			// keyword mode and emit a health event, they never fail Store.
			logging.StoreWarn("store[%s]: embedding failed, storing without vector: %v", h.language, err)
			embeddingVec = nil
		}
	}

	correlJSON, err := json.Marshal(rec.CrossLanguageCorrelation)
	if err != nil {
		return "", errs.Wrap(errs.KindInvalidMetadata, err, "failed to serialize cross_language_correlation")
	}
	var embBlob []byte
	if len(embeddingVec) > 0 {
		embBlob = encodeEmbedding(embeddingVec)
	}

	now := time.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.LastUsedAt = now

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return "", errs.Wrap(errs.KindStorageError, err, "failed to begin transaction")
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO patterns (
			pattern_id, language, category, severity, detection, suggestion,
			educational_content, cross_language_correlation, embedding,
			success_count, failure_count, created_at, last_used_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pattern_id) DO UPDATE SET
			category=excluded.category, severity=excluded.severity,
			detection=excluded.detection, suggestion=excluded.suggestion,
			educational_content=excluded.educational_content,
			cross_language_correlation=excluded.cross_language_correlation,
			embedding=excluded.embedding, last_used_at=excluded.last_used_at`,
		rec.PatternID, rec.Language, string(rec.Category), string(rec.Severity),
		rec.Detection, rec.Suggestion, rec.EducationalContent, string(correlJSON),
		embBlob, rec.SuccessCount, rec.FailureCount, rec.CreatedAt, rec.LastUsedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return "", errs.Wrap(errs.KindStorageError, err, "failed to insert pattern %s", rec.PatternID)
	}
	if h.vectorEnabled && embBlob != nil {
		metaJSON, _ := json.Marshal(metadata)
		if _, err := tx.ExecContext(ctx,
			"INSERT OR REPLACE INTO vec_index (embedding, pattern_id, metadata) VALUES (?, ?, ?)",
			embBlob, rec.PatternID, string(metaJSON)); err != nil {
			logging.StoreWarn("store[%s]: failed to index vector for %s: %v", h.language, rec.PatternID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return "", errs.Wrap(errs.KindStorageError, err, "failed to commit pattern %s", rec.PatternID)
	}

	logging.Store("store[%s]: stored pattern %s (category=%s)", h.language, rec.PatternID, rec.Category)
	return rec.PatternID, nil
}

// UpdateQuality bumps the success/failure counters for pattern_id and
// refreshes last_used_at, per spec §4.1.
func (h *Handle) UpdateQuality(ctx context.Context, patternID string, outcome model.Outcome) error {
	timer := logging.StartTimer(logging.CategoryStore, "UpdateQuality")
	defer timer.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.readOnly {
		return errs.New(errs.KindCorruptStore, "store %s is read-only", h.language)
	}

	var column string
	switch outcome {
	case model.OutcomeSuccess:
		column = "success_count"
	case model.OutcomeFailure:
		column = "failure_count"
	default:
		return errs.New(errs.KindInvalidMetadata, "unknown outcome %q", outcome)
	}

	res, err := h.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE patterns SET %s = %s + 1, last_used_at = ? WHERE pattern_id = ?", column, column),
		time.Now(), patternID)
	if err != nil {
		return errs.Wrap(errs.KindStorageError, err, "failed to update quality for %s", patternID)
	}
	rows, _ := res.RowsAffected()
	if rows == 0 {
		return errs.New(errs.KindNotFound, "pattern %s not found in store %s", patternID, h.language)
	}
	return nil
}

// Prune removes Pattern Records whose last_used_at predates the TTL and
// whose smoothed quality score is below threshold (spec §4.1). Returns the
// number of records removed.
func (h *Handle) Prune(ctx context.Context) (int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Prune")
	defer timer.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.readOnly {
		return 0, errs.New(errs.KindCorruptStore, "store %s is read-only", h.language)
	}

	cutoff := time.Now().Add(-pruneTTL)
	res, err := h.db.ExecContext(ctx,
		`DELETE FROM patterns
		 WHERE last_used_at < ?
		 AND (CAST(success_count AS REAL) / (success_count + failure_count + 1)) < ?`,
		cutoff, pruneQualityThreshold)
	if err != nil {
		return 0, errs.Wrap(errs.KindStorageError, err, "failed to prune store %s", h.language)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		logging.Store("store[%s]: pruned %d stale low-quality patterns", h.language, n)
	}
	return n, nil
}

// Get fetches a single Pattern Record by id, or NotFound.
func (h *Handle) Get(ctx context.Context, patternID string) (model.PatternRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	row := h.db.QueryRowContext(ctx, `
		SELECT pattern_id, language, category, severity, detection, suggestion,
		       educational_content, cross_language_correlation, embedding,
		       success_count, failure_count, created_at, last_used_at
		FROM patterns WHERE pattern_id = ?`, patternID)

	var rec model.PatternRecord
	var correlJSON string
	var embBlob []byte
	var category, severity string
	if err := row.Scan(&rec.PatternID, &rec.Language, &category, &severity, &rec.Detection,
		&rec.Suggestion, &rec.EducationalContent, &correlJSON, &embBlob,
		&rec.SuccessCount, &rec.FailureCount, &rec.CreatedAt, &rec.LastUsedAt); err != nil {
		return model.PatternRecord{}, errs.Wrap(errs.KindNotFound, err, "pattern %s not found", patternID)
	}
	rec.Category = model.PatternCategory(category)
	rec.Severity = model.Severity(severity)
	_ = json.Unmarshal([]byte(correlJSON), &rec.CrossLanguageCorrelation)
	if len(embBlob) > 0 {
		v, err := decodeEmbedding(embBlob)
		if err == nil {
			rec.Embedding = v
		}
	}
	return rec, nil
}

// taskTypeAwareEngine mirrors embedding.TaskTypeAwareEngine locally to avoid
// an import cycle; any engine satisfying it gets task-specific embeddings.
type taskTypeAwareEngine interface {
	embedding.EmbeddingEngine
	EmbedWithTask(ctx context.Context, text string, taskType string) ([]float32, error)
}
