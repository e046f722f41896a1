package patternpack

import (
	"fmt"
	"regexp"

	"sentryd/internal/errs"
	"sentryd/internal/model"
)

var validCategories = map[model.PatternCategory]bool{
	model.CategorySecurity:           true,
	model.CategoryPerformance:        true,
	model.CategoryMemoryManagement:   true,
	model.CategorySyntax:             true,
	model.CategoryAIPatterns:         true,
	model.CategoryGeneral:            true,
	model.CategoryFalsePositive:      true,
	model.CategoryConnectionFeedback: true,
}

var validSeverities = map[model.Severity]bool{
	model.SeverityCritical: true,
	model.SeverityHigh:     true,
	model.SeverityMedium:   true,
	model.SeverityLow:      true,
}

// Validate checks a manifest against the pattern pack schema: required
// fields present, category/severity drawn from the known vocabularies, no
// duplicate pattern IDs within the pack, and every detection string a
// compilable regex (packs that ship a structured matcher instead of a
// regex are out of scope for this validator and must set detection to a
// literal string, which always compiles). Invalid packs are rejected as a
// whole — nothing in them is ever partially installed.
func Validate(m Manifest) error {
	if m.Language == "" {
		return errs.New(errs.KindInvalidMetadata, "pattern pack manifest missing language")
	}
	if len(m.FileExtensions) == 0 {
		return errs.New(errs.KindInvalidMetadata, "pattern pack for %q declares no file_extensions", m.Language)
	}
	if len(m.Patterns) == 0 {
		return errs.New(errs.KindInvalidMetadata, "pattern pack for %q declares no patterns", m.Language)
	}

	seen := make(map[string]bool, len(m.Patterns))
	for i, p := range m.Patterns {
		if p.PatternID == "" {
			return errs.New(errs.KindInvalidMetadata, "pattern pack for %q: patterns[%d] missing pattern_id", m.Language, i)
		}
		if seen[p.PatternID] {
			return errs.New(errs.KindInvalidMetadata, "pattern pack for %q: duplicate pattern_id %q", m.Language, p.PatternID)
		}
		seen[p.PatternID] = true

		if !validCategories[p.Category] {
			return errs.New(errs.KindInvalidMetadata, "pattern %q: unknown category %q", p.PatternID, p.Category)
		}
		if !validSeverities[p.Severity] {
			return errs.New(errs.KindInvalidMetadata, "pattern %q: unknown severity %q", p.PatternID, p.Severity)
		}
		if p.Detection == "" {
			return errs.New(errs.KindInvalidMetadata, "pattern %q missing detection", p.PatternID)
		}
		if _, err := regexp.Compile(p.Detection); err != nil {
			return errs.Wrap(errs.KindInvalidMetadata, err, "pattern %q has an invalid detection regex", p.PatternID)
		}
		if p.Suggestion == "" {
			return errs.New(errs.KindInvalidMetadata, "pattern %q missing suggestion", p.PatternID)
		}
	}
	return nil
}

// describeError renders a Validate failure alongside the pack's language
// for CLI output, since errs.Error already carries a Kind but not which
// pack it came from when multiple packs are installed in one batch.
func describeError(language string, err error) error {
	return fmt.Errorf("pattern pack %q: %w", language, err)
}
