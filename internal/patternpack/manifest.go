// Package patternpack implements installation and validation of
// third-party pattern packs: a YAML manifest of Pattern Records for a
// single language, distributed separately from sentryd itself so a
// language's detection vocabulary can grow without a new release (spec
// §6, "Pattern pack format").
package patternpack

import "sentryd/internal/model"

// Manifest is a pattern pack's on-disk format, one manifest per language.
type Manifest struct {
	Language       string        `yaml:"language"`
	FileExtensions []string      `yaml:"file_extensions"`
	Patterns       []PatternSpec `yaml:"patterns"`
}

// PatternSpec is one pattern pack entry, mirroring the subset of
// model.PatternRecord's fields a pack author controls; CreatedAt,
// LastUsedAt, SuccessCount, FailureCount, and Embedding are runtime state
// the store manages, not something a pack ships.
type PatternSpec struct {
	PatternID                string                `yaml:"pattern_id"`
	Category                 model.PatternCategory `yaml:"category"`
	Severity                 model.Severity        `yaml:"severity"`
	Detection                string                `yaml:"detection"`
	Suggestion               string                `yaml:"suggestion"`
	EducationalContent       string                `yaml:"educational_content"`
	CrossLanguageCorrelation []string              `yaml:"cross_language_correlation"`
}

// ToPatternRecord converts a pack entry into the store's durable shape.
// Runtime-only fields are left zero-valued; Store populates CreatedAt on
// first write.
func (p PatternSpec) ToPatternRecord(language string) model.PatternRecord {
	return model.PatternRecord{
		PatternID:                p.PatternID,
		Language:                 language,
		Category:                 p.Category,
		Severity:                 p.Severity,
		Detection:                p.Detection,
		Suggestion:               p.Suggestion,
		EducationalContent:       p.EducationalContent,
		CrossLanguageCorrelation: p.CrossLanguageCorrelation,
	}
}
