package connector

import (
	"testing"

	"sentryd/internal/model"
)

func TestConnector_Suggest_RanksByCompositeScore(t *testing.T) {
	orphan := model.Capabilities{
		FilePath:  "util/retry.py",
		Functions: []model.FunctionSig{{Name: "retry_with_backoff", Arity: 2, Doc: "retry a call with exponential backoff"}},
		Keywords:  []string{"retry", "backoff", "network"},
		Imports:   []string{"time"},
		Role:      "utility",
	}
	strongTarget := model.Capabilities{
		FilePath: "service/client.py",
		Keywords: []string{"retry", "network", "TODO", "unresolved import"},
		Imports:  []string{"time", "retry"},
		Role:     "core",
	}
	weakTarget := model.Capabilities{
		FilePath: "docs/notes.py",
		Keywords: []string{"documentation"},
		Imports:  []string{"markdown"},
		Role:     "documentation",
	}

	c := New()
	suggestions := c.Suggest([]model.Capabilities{orphan}, []model.Capabilities{strongTarget, weakTarget})

	if len(suggestions) == 0 {
		t.Fatal("expected at least one suggestion above the confidence threshold")
	}
	if suggestions[0].TargetPath != "service/client.py" {
		t.Fatalf("top suggestion = %s, want service/client.py", suggestions[0].TargetPath)
	}
	for i := 1; i < len(suggestions); i++ {
		if suggestions[i-1].Score < suggestions[i].Score {
			t.Fatalf("suggestions not sorted by descending score: %+v", suggestions)
		}
	}
}

func TestConnector_Suggest_FiltersBelowThreshold(t *testing.T) {
	orphan := model.Capabilities{FilePath: "a.py", Keywords: []string{"unrelated"}}
	target := model.Capabilities{FilePath: "b.py", Keywords: []string{"nothing_in_common"}}

	c := New()
	suggestions := c.Suggest([]model.Capabilities{orphan}, []model.Capabilities{target})
	if len(suggestions) != 0 {
		t.Fatalf("expected no suggestions for unrelated files, got %+v", suggestions)
	}
}

func TestConnector_Suggest_TieBreaksByNeedThenLexicographic(t *testing.T) {
	orphanA := model.Capabilities{FilePath: "z_orphan.py", Keywords: []string{"retry"}}
	orphanB := model.Capabilities{FilePath: "a_orphan.py", Keywords: []string{"retry"}}
	target := model.Capabilities{FilePath: "m.py", Keywords: []string{"retry"}}

	// Both pairs score about 0.2, below the 0.3 default a zero threshold
	// selects, so a small explicit threshold keeps them.
	c := &Connector{ConfidenceThreshold: 0.1}
	suggestions := c.Suggest([]model.Capabilities{orphanA, orphanB}, []model.Capabilities{target})
	if len(suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].OrphanPath != "a_orphan.py" {
		t.Fatalf("expected lexicographic tie-break to prefer a_orphan.py first, got %+v", suggestions)
	}
}

func TestJaccard(t *testing.T) {
	if got := jaccard(nil, nil); got != 0 {
		t.Fatalf("jaccard(nil, nil) = %v, want 0", got)
	}
	if got := jaccard([]string{"a", "b"}, []string{"a", "b"}); got != 1 {
		t.Fatalf("jaccard(identical) = %v, want 1", got)
	}
	if got := jaccard([]string{"a"}, []string{"b"}); got != 0 {
		t.Fatalf("jaccard(disjoint) = %v, want 0", got)
	}
}
