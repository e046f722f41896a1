package store

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"sentryd/internal/embedding"
	"sentryd/internal/errs"
	"sentryd/internal/logging"
	"sentryd/internal/model"
)

// DefaultSearchTimeout bounds search() per spec §4.1: "search returns in
// bounded time under a configurable search_timeout; on timeout, returns the
// best partial result with partial=true."
const DefaultSearchTimeout = 2 * time.Second

// Filter narrows a Search call by category and severity. A zero Filter
// matches everything. It has no language field: each handle holds a
// single language, and SearchCrossLanguage groups results per handle.
type Filter struct {
	Category model.PatternCategory
	Severity model.Severity
}

func (f Filter) matches(rec model.PatternRecord) bool {
	if f.Category != "" && rec.Category != f.Category {
		return false
	}
	if f.Severity != "" && rec.Severity != f.Severity {
		return false
	}
	return true
}

// Search performs the hybrid embedding/keyword search described in spec
// §4.1. With an embedding backend it ranks by cosine similarity; without
// one (or on embedding failure) it degrades to substring/keyword matching
// over detection/suggestion/educational_content and sets Degraded=true. A
// query exceeding timeout returns the best-effort ranking gathered so far
// with Partial=true rather than failing.
func (h *Handle) Search(ctx context.Context, query string, k int, filter Filter, timeout time.Duration) (model.SearchOutcome, error) {
	searchTimer := logging.StartTimer(logging.CategoryStore, "Search")
	defer searchTimer.Stop()

	if k <= 0 {
		k = 10
	}
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	h.mu.RLock()
	engine := h.embeddingEngine
	h.mu.RUnlock()

	if engine == nil {
		return h.searchKeyword(ctx, query, k, filter)
	}

	queryTaskType := embedding.GetOptimalTaskType(query, nil, true)
	var queryVec []float32
	var err error
	if taskAware, ok := engine.(taskTypeAwareEngine); ok && queryTaskType != "" {
		queryVec, err = taskAware.EmbedWithTask(ctx, query, queryTaskType)
	} else {
		queryVec, err = engine.Embed(ctx, query)
	}
	if err != nil {
		logging.StoreWarn("store[%s]: query embedding failed, degrading to keyword search: %v", h.language, err)
		return h.searchKeyword(ctx, query, k, filter)
	}

	return h.searchSemantic(ctx, queryVec, k, filter)
}

type scoredResult struct {
	rec   model.PatternRecord
	score float64
}

func (h *Handle) searchSemantic(ctx context.Context, queryVec []float32, k int, filter Filter) (model.SearchOutcome, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rows, err := h.db.QueryContext(ctx, `
		SELECT pattern_id, language, category, severity, detection, suggestion,
		       educational_content, cross_language_correlation, embedding,
		       success_count, failure_count, created_at, last_used_at
		FROM patterns WHERE embedding IS NOT NULL`)
	if err != nil {
		return model.SearchOutcome{}, errs.Wrap(errs.KindStorageError, err, "search query failed")
	}
	defer rows.Close()

	var scored []scoredResult
	partial := false
	for rows.Next() {
		select {
		case <-ctx.Done():
			partial = true
		default:
		}
		if partial {
			break
		}

		rec, embBlob, err := scanPattern(rows)
		if err != nil {
			continue
		}
		if !filter.matches(rec) {
			continue
		}
		vec, err := decodeEmbedding(embBlob)
		if err != nil || len(vec) == 0 {
			continue
		}
		sim, err := embedding.CosineSimilarity(queryVec, vec)
		if err != nil {
			continue
		}
		rec.Embedding = vec
		scored = append(scored, scoredResult{rec: rec, score: normalizeSimilarity(sim)})
	}
	if ctx.Err() != nil {
		partial = true
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > k {
		scored = scored[:k]
	}

	return model.SearchOutcome{Results: toSearchResults(scored), Degraded: false, Partial: partial}, nil
}

func (h *Handle) searchKeyword(ctx context.Context, query string, k int, filter Filter) (model.SearchOutcome, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rows, err := h.db.QueryContext(ctx, `
		SELECT pattern_id, language, category, severity, detection, suggestion,
		       educational_content, cross_language_correlation, embedding,
		       success_count, failure_count, created_at, last_used_at
		FROM patterns`)
	if err != nil {
		return model.SearchOutcome{}, errs.Wrap(errs.KindStorageError, err, "keyword search query failed")
	}
	defer rows.Close()

	needle := strings.ToLower(query)
	var scored []scoredResult
	partial := false
	for rows.Next() {
		select {
		case <-ctx.Done():
			partial = true
		default:
		}
		if partial {
			break
		}

		rec, _, err := scanPattern(rows)
		if err != nil {
			continue
		}
		if !filter.matches(rec) {
			continue
		}
		haystack := strings.ToLower(rec.Detection + " " + rec.Suggestion + " " + rec.EducationalContent)
		if needle == "" || strings.Contains(haystack, needle) {
			scored = append(scored, scoredResult{rec: rec, score: keywordScore(haystack, needle)})
		}
	}
	if ctx.Err() != nil {
		partial = true
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > k {
		scored = scored[:k]
	}

	return model.SearchOutcome{Results: toSearchResults(scored), Degraded: true, Partial: partial}, nil
}

// normalizeSimilarity maps CosineSimilarity's [-1,1] range onto the [0,1]
// score range every SearchResult must satisfy, so opposite-direction
// embeddings rank below orthogonal ones instead of producing a negative
// score.
func normalizeSimilarity(sim float64) float64 {
	return (sim + 1) / 2
}

// keywordScore is a crude but deterministic relevance proxy: a haystack
// that starts with needle (the detection begins with the query) scores
// 1.0, any other substring hit scores 0.5, and an empty needle, which
// matches every record, also scores 0.5.
func keywordScore(haystack, needle string) float64 {
	if needle == "" {
		return 0.5
	}
	if strings.HasPrefix(haystack, needle) {
		return 1.0
	}
	return 0.5
}

func scanPattern(rows interface{ Scan(...interface{}) error }) (model.PatternRecord, []byte, error) {
	var rec model.PatternRecord
	var correlJSON string
	var embBlob []byte
	var category, severity string
	if err := rows.Scan(&rec.PatternID, &rec.Language, &category, &severity, &rec.Detection,
		&rec.Suggestion, &rec.EducationalContent, &correlJSON, &embBlob,
		&rec.SuccessCount, &rec.FailureCount, &rec.CreatedAt, &rec.LastUsedAt); err != nil {
		return model.PatternRecord{}, nil, err
	}
	rec.Category = model.PatternCategory(category)
	rec.Severity = model.Severity(severity)
	_ = json.Unmarshal([]byte(correlJSON), &rec.CrossLanguageCorrelation)
	return rec, embBlob, nil
}

func toSearchResults(scored []scoredResult) []model.SearchResult {
	out := make([]model.SearchResult, len(scored))
	for i, s := range scored {
		out[i] = model.SearchResult{
			PatternID: s.rec.PatternID,
			Score:     s.score,
			Metadata: map[string]interface{}{
				"language": s.rec.Language,
				"category": s.rec.Category,
				"severity": s.rec.Severity,
			},
		}
	}
	return out
}
