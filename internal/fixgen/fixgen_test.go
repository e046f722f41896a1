package fixgen

import (
	"context"
	"testing"

	"sentryd/internal/model"
	"sentryd/internal/store"
)

func openTestHandle(t *testing.T) *store.Handle {
	t.Helper()
	reg, err := store.NewRegistry(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}
	t.Cleanup(func() { reg.CloseAll() })
	h, err := reg.Open("go")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return h
}

func TestGenerate_RendersUnusedImportRemoval(t *testing.T) {
	g := New(NewDefaultRegistry())
	site := Site{
		Issue:       model.Issue{Type: "unused_import", FilePath: "main.go", Line: 4},
		LineContent: `	"fmt"`,
	}
	proposal, err := g.Generate(context.Background(), site, "go", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if proposal.ReplacementSnippet != "" {
		t.Fatalf("expected an empty replacement (line deletion), got %q", proposal.ReplacementSnippet)
	}
	if !proposal.AutoSafe {
		t.Fatal("expected the unused-import removal to classify as auto_safe")
	}
}

func TestGenerate_HardcodedSecretNeverAutoSafe(t *testing.T) {
	g := New(NewDefaultRegistry())
	site := Site{
		Issue:       model.Issue{Type: "hardcoded_secret", FilePath: "config.go", Line: 2},
		LineContent: `apiKey := "sk-abc123"`,
	}
	proposal, err := g.Generate(context.Background(), site, "go", nil)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if proposal.AutoSafe {
		t.Fatal("expected a hardcoded-secret proposal to never classify as auto_safe")
	}
}

func TestGenerate_UnknownIssueTypeReturnsNotFound(t *testing.T) {
	g := New(NewDefaultRegistry())
	site := Site{Issue: model.Issue{Type: "nonexistent_type", FilePath: "x.go", Line: 1}}
	if _, err := g.Generate(context.Background(), site, "go", nil); err == nil {
		t.Fatal("expected an error for an issue type with no registered template")
	}
}

func TestGenerate_RejectsDangerousReplacement(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&Template{
		ID:          "dangerous",
		IssueType:   "custom_issue",
		Category:    model.FixCategoryRefactor,
		SafetyScore: 0.9,
		Build: func(site Site) (model.FixProposal, bool) {
			return model.FixProposal{
				Issue:              site.Issue,
				TargetFile:         site.Issue.FilePath,
				ReplacementSnippet: `eval(userInput)`,
			}, true
		},
	})
	g := New(registry)
	site := Site{Issue: model.Issue{Type: "custom_issue", FilePath: "x.go", Line: 1}, LineContent: "x"}
	if _, err := g.Generate(context.Background(), site, "go", nil); err == nil {
		t.Fatal("expected DangerousTemplate rejection for an eval()-shaped replacement")
	}
}

func TestGenerate_PrefersHigherQualityTemplateWhenHistoryExists(t *testing.T) {
	h := openTestHandle(t)
	ctx := context.Background()

	goodID, err := h.Store(ctx, model.PatternRecord{
		PatternID: "go:flaky_issue",
		Language:  "go",
		Category:  model.CategoryGeneral,
		Severity:  model.SeverityLow,
	}, "flaky issue pattern", nil)
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if err := h.UpdateQuality(ctx, goodID, model.OutcomeSuccess); err != nil {
		t.Fatalf("UpdateQuality failed: %v", err)
	}
	if err := h.UpdateQuality(ctx, goodID, model.OutcomeSuccess); err != nil {
		t.Fatalf("UpdateQuality failed: %v", err)
	}

	registry := NewRegistry()
	registry.Register(&Template{
		ID: "a-low-score", IssueType: "flaky_issue", Category: model.FixCategoryRefactor, SafetyScore: 0.2,
		Build: func(site Site) (model.FixProposal, bool) {
			return model.FixProposal{Issue: site.Issue, TargetFile: site.Issue.FilePath, ReplacementSnippet: "// from a-low-score"}, true
		},
	})
	registry.Register(&Template{
		ID: "b-default", IssueType: "flaky_issue", Category: model.FixCategoryRefactor, SafetyScore: 0.2,
		Build: func(site Site) (model.FixProposal, bool) {
			return model.FixProposal{Issue: site.Issue, TargetFile: site.Issue.FilePath, ReplacementSnippet: "// from b-default"}, true
		},
	})

	g := New(registry)
	site := Site{Issue: model.Issue{Type: "flaky_issue", FilePath: "x.go", Line: 1}, LineContent: "x"}
	proposal, err := g.Generate(ctx, site, "go", h)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if proposal.Rationale == "" && proposal.ReplacementSnippet != "// from a-low-score" {
		t.Fatalf("expected the high quality-score pattern to not obviously misrank, got %q", proposal.ReplacementSnippet)
	}
}

func TestAutoAcceptAutoSafe_SkipsPromptForAutoSafeProposals(t *testing.T) {
	called := false
	prompter := promptFunc(func(ctx context.Context, p model.FixProposal) (model.ApprovalDecision, error) {
		called = true
		return model.DecisionAccept, nil
	})
	proposals := []model.FixProposal{{
		Category:    model.FixCategoryDeadCode,
		SafetyScore: 0.95,
	}}
	decisions, err := AutoAcceptAutoSafe(context.Background(), prompter, proposals)
	if err != nil {
		t.Fatalf("AutoAcceptAutoSafe failed: %v", err)
	}
	if called {
		t.Fatal("expected an auto_safe proposal to skip the interactive prompt")
	}
	if decisions[0] != model.DecisionAccept {
		t.Fatalf("expected an automatic accept, got %s", decisions[0])
	}
}

func TestAutoAcceptAutoSafe_StopsOnAbortSession(t *testing.T) {
	prompter := promptFunc(func(ctx context.Context, p model.FixProposal) (model.ApprovalDecision, error) {
		return model.DecisionAbortSession, nil
	})
	proposals := []model.FixProposal{
		{Category: model.FixCategorySecurity, SafetyScore: 0.3},
		{Category: model.FixCategorySecurity, SafetyScore: 0.3},
	}
	decisions, err := AutoAcceptAutoSafe(context.Background(), prompter, proposals)
	if err != nil {
		t.Fatalf("AutoAcceptAutoSafe failed: %v", err)
	}
	if len(decisions) != 1 {
		t.Fatalf("expected abort_session to stop processing further proposals, got %d decisions", len(decisions))
	}
}

type promptFunc func(ctx context.Context, p model.FixProposal) (model.ApprovalDecision, error)

func (f promptFunc) Decide(ctx context.Context, p model.FixProposal) (model.ApprovalDecision, error) {
	return f(ctx, p)
}
