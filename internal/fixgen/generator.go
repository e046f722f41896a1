package fixgen

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"sentryd/internal/errs"
	"sentryd/internal/logging"
	"sentryd/internal/model"
	"sentryd/internal/store"
	"sentryd/internal/validator"
)

// LearningNamespace is where approval outcomes are recorded, keyed by
// (template_id, context_fingerprint).
const LearningNamespace = "intelligent_fix_generator"

// Generator picks the best-ranked template for an Issue and renders it into
// a Fix Proposal, rejecting any candidate whose rendered snippet matches
// the Defense-in-Depth dangerous-pattern list before it ever reaches a
// user or the validator.
type Generator struct {
	registry *Registry
}

// New returns a Generator backed by registry.
func New(registry *Registry) *Generator {
	return &Generator{registry: registry}
}

// Generate renders the best available Fix Proposal for site, trying
// templates in rank order and skipping any whose rendered replacement
// matches the dangerous-pattern list (DangerousTemplate) regardless of
// ranking.
func (g *Generator) Generate(ctx context.Context, site Site, language string, localStore *store.Handle) (model.FixProposal, error) {
	candidates := g.registry.For(site.Issue.Type)
	if len(candidates) == 0 {
		return model.FixProposal{}, errs.New(errs.KindNotFound, "no fix template registered for issue type %q", site.Issue.Type)
	}

	ranked := g.rank(ctx, candidates, language, localStore)

	var lastRejected error
	for _, t := range ranked {
		proposal, ok := t.Build(site)
		if !ok {
			continue
		}
		if dangerousTemplate(proposal.ReplacementSnippet) {
			logging.FixgenDebug("rejecting template %s for %s: matches dangerous pattern", t.ID, site.Issue.Type)
			lastRejected = errs.New(errs.KindDangerousTemplate, "template %s produces a dangerous-pattern snippet", t.ID)
			continue
		}
		proposal.AutoSafe = proposal.IsEligibleForAutoSafe()
		return proposal, nil
	}

	if lastRejected != nil {
		return model.FixProposal{}, lastRejected
	}
	return model.FixProposal{}, errs.New(errs.KindInvalidInput, "no template for %q matched the current site content", site.Issue.Type)
}

// dangerousTemplate reports whether snippet matches the Defense-in-Depth
// Validator's pattern-gate vocabulary.
func dangerousTemplate(snippet string) bool {
	for _, p := range validator.DangerousPatterns {
		if p.MatchString(snippet) {
			return true
		}
	}
	return false
}

// rank sorts candidates by score, descending, then by ID. A template's
// score is the quality score of the Pattern Record keyed
// "<language>:<issue_type>" (the same convention internal/analyzer's
// LearnFromAnalysis uses) when that record exists, and its static
// SafetyScore otherwise. All candidates share one issue type and so one
// record: once it exists they score the same and are ordered by ID alone;
// history does not favor one template over another.
func (g *Generator) rank(ctx context.Context, candidates []*Template, language string, localStore *store.Handle) []*Template {
	scores := make(map[string]float64, len(candidates))
	for _, t := range candidates {
		scores[t.ID] = t.SafetyScore
		if localStore == nil {
			continue
		}
		patternID := fmt.Sprintf("%s:%s", language, t.IssueType)
		if rec, err := localStore.Get(ctx, patternID); err == nil {
			scores[t.ID] = rec.QualityScore()
		}
	}

	ranked := append([]*Template(nil), candidates...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if scores[ranked[i].ID] != scores[ranked[j].ID] {
			return scores[ranked[i].ID] > scores[ranked[j].ID]
		}
		return ranked[i].ID < ranked[j].ID
	})
	return ranked
}

// ContextFingerprint derives a stable identity for one (template, site)
// pairing, used as the learning namespace's key alongside the template ID.
func ContextFingerprint(templateID string, site Site) string {
	h := sha256.New()
	h.Write([]byte(templateID))
	h.Write([]byte("|"))
	h.Write([]byte(strings.TrimSpace(site.Issue.FilePath)))
	h.Write([]byte("|"))
	h.Write([]byte(site.Issue.Type))
	h.Write([]byte("|"))
	h.Write([]byte(strings.Join(strings.Fields(site.LineContent), " ")))
	return hex.EncodeToString(h.Sum(nil))
}

// RecordApproval persists decision to the learning namespace and adjusts
// the underlying Pattern Record's quality score: an accept counts as a
// success, a reject as a failure. That record is the shared
// "<language>:<issue_type>" one, not a per-template record, and the stored
// context fingerprint is not read back by rank, so a reject does not lower
// one template relative to another or vary by context. Skip and
// abort_session decisions are recorded but do not move the quality score
// either way.
func RecordApproval(ctx context.Context, localStore *store.Handle, templateID, language, issueType string, site Site, decision model.ApprovalDecision) error {
	fingerprint := ContextFingerprint(templateID, site)
	record := model.ApprovalRecord{
		TemplateID:         templateID,
		ContextFingerprint: fingerprint,
		Decision:           decision,
	}
	key := templateID + ":" + fingerprint
	if err := localStore.PutNamespaceEntry(ctx, LearningNamespace, key, record); err != nil {
		return errs.Wrap(errs.KindStorageError, err, "recording approval decision")
	}

	patternID := fmt.Sprintf("%s:%s", language, issueType)
	var outcome model.Outcome
	switch decision {
	case model.DecisionAccept:
		outcome = model.OutcomeSuccess
	case model.DecisionReject:
		outcome = model.OutcomeFailure
	default:
		return nil
	}
	if err := localStore.UpdateQuality(ctx, patternID, outcome); err != nil {
		logging.FixgenDebug("no pattern record %s to update quality on: %v", patternID, err)
	}
	return nil
}
