package store

import (
	"context"
	"testing"

	"sentryd/internal/model"
)

// fixedVectorEngine returns the same vector for every Embed call,
// regardless of query text, so a test can pin down exactly what the
// "query embedding" looks like relative to a stored pattern's vector.
type fixedVectorEngine struct{ vec []float32 }

func (e fixedVectorEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.vec, nil
}

func (e fixedVectorEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = e.vec
	}
	return out, nil
}

func (e fixedVectorEngine) Dimensions() int { return len(e.vec) }
func (e fixedVectorEngine) Name() string    { return "fixed-vector" }

func TestSearch_DegradesToKeywordWithoutEmbeddingEngine(t *testing.T) {
	h := openTestHandle(t)
	ctx := context.Background()

	rec := model.PatternRecord{PatternID: "p1", Detection: "hardcoded API key in source"}
	if _, err := h.Store(ctx, rec, "hardcoded API key in source", nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	outcome, err := h.Search(ctx, "API key", 5, Filter{}, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !outcome.Degraded {
		t.Fatal("expected Degraded=true with no embedding engine configured")
	}
	if len(outcome.Results) != 1 || outcome.Results[0].PatternID != "p1" {
		t.Fatalf("Search results = %+v, want exactly p1", outcome.Results)
	}
}

func TestSearch_ReturnsAtMostK(t *testing.T) {
	h := openTestHandle(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		rec := model.PatternRecord{PatternID: string(rune('a' + i)), Detection: "needle pattern"}
		if _, err := h.Store(ctx, rec, "needle pattern", nil); err != nil {
			t.Fatalf("Store failed: %v", err)
		}
	}

	outcome, err := h.Search(ctx, "needle", 3, Filter{}, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(outcome.Results) > 3 {
		t.Fatalf("Search returned %d results, want at most 3", len(outcome.Results))
	}
}

func TestSearch_FilterByCategory(t *testing.T) {
	h := openTestHandle(t)
	ctx := context.Background()

	sec := model.PatternRecord{PatternID: "sec1", Category: model.CategorySecurity, Detection: "needle"}
	perf := model.PatternRecord{PatternID: "perf1", Category: model.CategoryPerformance, Detection: "needle"}
	if _, err := h.Store(ctx, sec, "needle", nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if _, err := h.Store(ctx, perf, "needle", nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	outcome, err := h.Search(ctx, "needle", 10, Filter{Category: model.CategorySecurity}, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	for _, r := range outcome.Results {
		if r.PatternID != "sec1" {
			t.Fatalf("Search with category filter returned unexpected result %+v", r)
		}
	}
}

func TestSearch_ScoreStaysInZeroOneRangeForOppositeDirectionVectors(t *testing.T) {
	h := openTestHandle(t)
	ctx := context.Background()

	queryVec := []float32{1, 0, 0}
	h.SetEmbeddingEngine(fixedVectorEngine{vec: queryVec})

	opposite := model.PatternRecord{
		PatternID: "opposite",
		Detection: "unrelated content",
		Embedding: []float32{-1, 0, 0},
	}
	if _, err := h.Store(ctx, opposite, "unrelated content", nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	aligned := model.PatternRecord{
		PatternID: "aligned",
		Detection: "matching content",
		Embedding: []float32{1, 0, 0},
	}
	if _, err := h.Store(ctx, aligned, "matching content", nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	outcome, err := h.Search(ctx, "matching content", 10, Filter{}, 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(outcome.Results) != 2 {
		t.Fatalf("Search returned %d results, want 2", len(outcome.Results))
	}
	for _, r := range outcome.Results {
		if r.Score < 0 || r.Score > 1 {
			t.Fatalf("result %+v has score outside [0,1]", r)
		}
	}
	if outcome.Results[0].PatternID != "aligned" {
		t.Fatalf("expected the aligned vector to rank first, got %+v", outcome.Results)
	}
	if outcome.Results[1].PatternID != "opposite" {
		t.Fatalf("expected the opposite-direction vector to rank last, got %+v", outcome.Results)
	}
	if outcome.Results[1].Score != 0 {
		t.Fatalf("opposite-direction vector (cosine similarity -1) should normalize to score 0, got %v", outcome.Results[1].Score)
	}
}

func TestCrossReferenceIndex_RoundTrip(t *testing.T) {
	cr, err := openCrossReferenceIndex(t.TempDir())
	if err != nil {
		t.Fatalf("openCrossReferenceIndex failed: %v", err)
	}
	t.Cleanup(func() { cr.Close() })
	ctx := context.Background()

	if err := cr.Reconcile(ctx, "hardcoded_secret", "python", "python_credentials_exposure"); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}
	if err := cr.Reconcile(ctx, "hardcoded_secret", "cpp", "cpp_credentials_exposure"); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	entry, err := cr.Lookup(ctx, "hardcoded_secret")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if len(entry.References) != 2 {
		t.Fatalf("Lookup returned %d references, want 2", len(entry.References))
	}
}

func TestRegistry_SearchCrossLanguagePreservesPerLanguageGrouping(t *testing.T) {
	reg, err := NewRegistry(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	t.Cleanup(func() { reg.CloseAll() })
	ctx := context.Background()

	py, err := reg.Open("python")
	if err != nil {
		t.Fatalf("Open(python) failed: %v", err)
	}
	cpp, err := reg.Open("cpp")
	if err != nil {
		t.Fatalf("Open(cpp) failed: %v", err)
	}
	if _, err := py.Store(ctx, model.PatternRecord{PatternID: "py1", Detection: "hardcoded API key"}, "hardcoded API key", nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if _, err := cpp.Store(ctx, model.PatternRecord{PatternID: "cpp1", Detection: "other"}, "other", nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	results, err := reg.SearchCrossLanguage(ctx, "hardcoded API key", 3)
	if err != nil {
		t.Fatalf("SearchCrossLanguage failed: %v", err)
	}
	if _, ok := results["python"]; !ok {
		t.Fatal("expected a python bucket in cross-language search results")
	}
	if _, ok := results["cpp"]; !ok {
		t.Fatal("expected a cpp bucket present even with no strong match")
	}
	pyResults := results["python"].Results
	if len(pyResults) == 0 || pyResults[0].PatternID != "py1" {
		t.Fatalf("expected python bucket to contain py1, got %+v", pyResults)
	}
}
