package model

// FixCategory classifies the kind of change a Fix Proposal makes.
type FixCategory string

const (
	FixCategorySyntax    FixCategory = "syntax"
	FixCategoryDeadCode  FixCategory = "dead_code"
	FixCategorySecurity  FixCategory = "security"
	FixCategoryPerf      FixCategory = "performance"
	FixCategoryRefactor  FixCategory = "refactor"
)

// AutoSafeCategories are the fix categories eligible for unattended
// application, per spec §4.9 and §9(b) — still subject to the sandbox gate
// by default.
var AutoSafeCategories = map[FixCategory]bool{
	FixCategoryDeadCode: true,
	FixCategorySyntax:   true,
}

// AutoSafeThreshold is the minimum safety_score a Fix Proposal must reach
// to auto-apply, even when its category is in AutoSafeCategories.
const AutoSafeThreshold = 0.9

// FixProposal is a candidate modification resolving an Issue.
type FixProposal struct {
	Issue               Issue       `json:"issue"`
	TargetFile          string      `json:"target_file"`
	OriginalSnippet     string      `json:"original_snippet"`
	ReplacementSnippet  string      `json:"replacement_snippet"`
	LineRangeStart      int         `json:"line_range_start"`
	LineRangeEnd        int         `json:"line_range_end"`
	Category            FixCategory `json:"category"`
	SafetyScore         float64     `json:"safety_score"` // in [0,1]
	AutoSafe            bool        `json:"auto_safe"`
	Rationale           string      `json:"rationale"`
	RollbackBlob        string      `json:"rollback_blob"`
}

// IsEligibleForAutoSafe reports whether the proposal meets the invariant
// auto_safe ⇒ safety_score ≥ auto_threshold ∧ category ∈ auto_safe_categories.
// Classification (C11) should call this rather than trusting a caller-set
// AutoSafe flag, since the flag itself can be tampered with before reaching
// the metadata gate (C12).
func (f FixProposal) IsEligibleForAutoSafe() bool {
	return f.SafetyScore >= AutoSafeThreshold && AutoSafeCategories[f.Category]
}

// ApprovalDecision is the outcome of the interactive approval gate for a
// single Fix Proposal.
type ApprovalDecision string

const (
	DecisionAccept      ApprovalDecision = "accept"
	DecisionReject      ApprovalDecision = "reject"
	DecisionSkip        ApprovalDecision = "skip"
	DecisionAbortSession ApprovalDecision = "abort_session"
)

// ApprovalRecord is the persisted outcome of one approval decision, written
// to the intelligent_fix_generator learning namespace.
type ApprovalRecord struct {
	TemplateID         string           `json:"template_id"`
	ContextFingerprint string           `json:"context_fingerprint"`
	Decision           ApprovalDecision `json:"decision"`
}
