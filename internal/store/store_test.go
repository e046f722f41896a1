package store

import (
	"context"
	"testing"
	"time"

	"sentryd/internal/model"
)

func openTestHandle(t *testing.T) *Handle {
	t.Helper()
	h, err := openLanguage(t.TempDir(), "python")
	if err != nil {
		t.Fatalf("openLanguage failed: %v", err)
	}
	t.Cleanup(func() { h.Close() })
	return h
}

func TestOpenLanguage_RejectsEmptyLanguage(t *testing.T) {
	if _, err := openLanguage(t.TempDir(), ""); err == nil {
		t.Fatal("expected error opening store with empty language")
	}
}

func TestStore_RoundTrip(t *testing.T) {
	h := openTestHandle(t)
	ctx := context.Background()

	rec := model.PatternRecord{
		PatternID: "python_unused_import",
		Category:  model.CategorySyntax,
		Severity:  model.SeverityLow,
		Detection: "unused import statement",
		Suggestion: "remove the import",
	}
	id, err := h.Store(ctx, rec, "unused import statement", map[string]interface{}{"file": "main.py"})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if id != rec.PatternID {
		t.Fatalf("Store returned id %q, want %q", id, rec.PatternID)
	}

	got, err := h.Get(ctx, rec.PatternID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Detection != rec.Detection || got.Language != "python" {
		t.Fatalf("Get returned %+v, want detection=%q language=python", got, rec.Detection)
	}
}

func TestStore_RejectsLanguageMismatch(t *testing.T) {
	h := openTestHandle(t)
	rec := model.PatternRecord{PatternID: "x", Language: "cpp", Detection: "x"}
	if _, err := h.Store(context.Background(), rec, "x", nil); err == nil {
		t.Fatal("expected error storing a record whose language does not match the handle")
	}
}

func TestUpdateQuality_BumpsCounters(t *testing.T) {
	h := openTestHandle(t)
	ctx := context.Background()

	rec := model.PatternRecord{PatternID: "p1", Detection: "d"}
	if _, err := h.Store(ctx, rec, "d", nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := h.UpdateQuality(ctx, "p1", model.OutcomeSuccess); err != nil {
		t.Fatalf("UpdateQuality failed: %v", err)
	}
	got, err := h.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.SuccessCount != 1 {
		t.Fatalf("SuccessCount = %d, want 1", got.SuccessCount)
	}
}

func TestUpdateQuality_UnknownPatternIsNotFound(t *testing.T) {
	h := openTestHandle(t)
	if err := h.UpdateQuality(context.Background(), "missing", model.OutcomeSuccess); err == nil {
		t.Fatal("expected NotFound updating quality for a pattern that was never stored")
	}
}

func TestPrune_RemovesStaleLowQualityRecords(t *testing.T) {
	h := openTestHandle(t)
	ctx := context.Background()

	rec := model.PatternRecord{
		PatternID:    "stale",
		Detection:    "d",
		FailureCount: 10,
		LastUsedAt:   time.Now().Add(-2 * pruneTTL),
	}
	if _, err := h.Store(ctx, rec, "d", nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	// Store() stamps LastUsedAt to now; force it back in the past directly.
	if _, err := h.db.Exec(`UPDATE patterns SET last_used_at = ? WHERE pattern_id = ?`,
		time.Now().Add(-2*pruneTTL), "stale"); err != nil {
		t.Fatalf("failed to backdate last_used_at: %v", err)
	}

	n, err := h.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("Prune removed %d records, want 1", n)
	}
	if _, err := h.Get(ctx, "stale"); err == nil {
		t.Fatal("expected pruned pattern to be gone")
	}
}

func TestPrune_KeepsHighQualityRecordsRegardlessOfAge(t *testing.T) {
	h := openTestHandle(t)
	ctx := context.Background()

	rec := model.PatternRecord{PatternID: "good", Detection: "d", SuccessCount: 50}
	if _, err := h.Store(ctx, rec, "d", nil); err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if _, err := h.db.Exec(`UPDATE patterns SET last_used_at = ? WHERE pattern_id = ?`,
		time.Now().Add(-2*pruneTTL), "good"); err != nil {
		t.Fatalf("failed to backdate last_used_at: %v", err)
	}

	if _, err := h.Prune(ctx); err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if _, err := h.Get(ctx, "good"); err != nil {
		t.Fatalf("expected high-quality record to survive prune: %v", err)
	}
}

func TestNamespaceEntry_RoundTrip(t *testing.T) {
	h := openTestHandle(t)
	ctx := context.Background()

	type fpRecord struct {
		Confirmed bool `json:"confirmed"`
	}
	if err := h.PutNamespaceEntry(ctx, "false_positives", "sig1", fpRecord{Confirmed: true}); err != nil {
		t.Fatalf("PutNamespaceEntry failed: %v", err)
	}
	var got fpRecord
	if err := h.GetNamespaceEntry(ctx, "false_positives", "sig1", &got); err != nil {
		t.Fatalf("GetNamespaceEntry failed: %v", err)
	}
	if !got.Confirmed {
		t.Fatal("expected Confirmed=true round-tripped through namespace storage")
	}
}
