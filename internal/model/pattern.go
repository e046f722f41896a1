package model

import "time"

// PatternCategory classifies a Pattern Record for dispatch and filtering.
type PatternCategory string

const (
	CategorySecurity           PatternCategory = "security"
	CategoryPerformance        PatternCategory = "performance"
	CategoryMemoryManagement   PatternCategory = "memory_management"
	CategorySyntax             PatternCategory = "syntax"
	CategoryAIPatterns         PatternCategory = "ai_patterns"
	CategoryGeneral            PatternCategory = "general"
	CategoryFalsePositive      PatternCategory = "false_positive"
	CategoryConnectionFeedback PatternCategory = "connection_feedback"
)

// PatternRecord is the durable unit stored by the Memory Store (C1). Its
// pattern_id is unique within a single language store; cross-language
// correlation is a read-only relationship expressed via CrossLanguageIDs.
type PatternRecord struct {
	PatternID                string          `json:"pattern_id"`
	Language                 string          `json:"language"`
	Category                 PatternCategory `json:"category"`
	Severity                 Severity        `json:"severity"`
	Detection                string          `json:"detection"` // regex or structured matcher spec
	Suggestion               string          `json:"suggestion"`
	EducationalContent       string          `json:"educational_content,omitempty"`
	CrossLanguageCorrelation []string        `json:"cross_language_correlation"`
	Embedding                []float32       `json:"embedding"`
	SuccessCount             int             `json:"success_count"`
	FailureCount             int             `json:"failure_count"`
	CreatedAt                time.Time       `json:"created_at"`
	LastUsedAt               time.Time       `json:"last_used_at"`
}

// QualityScore returns success_count/(success_count+failure_count+1), the
// smoothed success ratio used by prune() and the fix-generator's template
// ranking to favor records that have actually helped.
func (p PatternRecord) QualityScore() float64 {
	total := p.SuccessCount + p.FailureCount + 1
	return float64(p.SuccessCount) / float64(total)
}

// Outcome is recorded against a PatternRecord by update_quality.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// SearchResult is one row of a Memory Store search, ranked by Score.
type SearchResult struct {
	PatternID string                 `json:"pattern_id"`
	Score     float64                `json:"score"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// SearchOutcome wraps a ranked result list with the degraded/partial flags
// the Memory Store contract in spec §4.1 requires callers to observe.
type SearchOutcome struct {
	Results   []SearchResult `json:"results"`
	Degraded  bool           `json:"degraded"`  // true: no embedding backend, fell back to keyword match
	Partial   bool           `json:"partial"`   // true: search_timeout hit, best-effort result returned
}

// CrossReferenceEntry maps a universal concept key to the language-specific
// pattern records that implement it, maintained by background reconciliation
// against each Language Store.
type CrossReferenceEntry struct {
	ConceptKey string              `json:"concept_key"`
	References []LanguagePatternID `json:"references"`
}

// LanguagePatternID identifies a pattern record within its owning language store.
type LanguagePatternID struct {
	Language  string `json:"language"`
	PatternID string `json:"pattern_id"`
}
