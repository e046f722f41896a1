package fixgen

import (
	"fmt"
	"strings"

	"sentryd/internal/model"
)

// defaultTemplates is the built-in template library. It covers unused
// imports, unreachable code, debugger statements, hardcoded secrets and
// shell=True subprocess calls; the technical-debt and AI-pattern marker
// issue types the analyzers emit have no template.
func defaultTemplates() []*Template {
	return []*Template{
		{
			ID:          "remove-unused-import",
			IssueType:   "unused_import",
			Category:    model.FixCategoryDeadCode,
			SafetyScore: 0.95,
			Build:       removeLineTemplate("unused_import", model.FixCategoryDeadCode, 0.95),
		},
		{
			ID:          "remove-unreachable-code",
			IssueType:   "unreachable_code",
			Category:    model.FixCategoryDeadCode,
			SafetyScore: 0.9,
			Build:       removeLineTemplate("unreachable_code", model.FixCategoryDeadCode, 0.9),
		},
		{
			ID:          "remove-debugger-statement",
			IssueType:   "debugger_statement",
			Category:    model.FixCategoryDeadCode,
			SafetyScore: 0.92,
			Build:       removeLineTemplate("debugger_statement", model.FixCategoryDeadCode, 0.92),
		},
		{
			ID:          "flag-hardcoded-secret",
			IssueType:   "hardcoded_secret",
			Category:    model.FixCategorySecurity,
			SafetyScore: 0.3,
			Build:       annotateTemplate("move this value to an environment variable or secret store"),
		},
		{
			ID:          "flag-shell-true-subprocess",
			IssueType:   "shell_true_subprocess",
			Category:    model.FixCategorySecurity,
			SafetyScore: 0.25,
			Build:       annotateTemplate("avoid shell=True with untrusted input; pass an argument list instead"),
		},
	}
}

// removeLineTemplate builds a Template.Build func that deletes the exact
// line the Issue flagged, provided the line still matches what was
// recorded.
func removeLineTemplate(issueType string, category model.FixCategory, score float64) func(Site) (model.FixProposal, bool) {
	return func(site Site) (model.FixProposal, bool) {
		if strings.TrimSpace(site.LineContent) == "" {
			return model.FixProposal{}, false
		}
		return model.FixProposal{
			Issue:              site.Issue,
			TargetFile:         site.Issue.FilePath,
			OriginalSnippet:    site.LineContent,
			ReplacementSnippet: "",
			LineRangeStart:     site.Issue.Line,
			LineRangeEnd:       site.Issue.Line,
			Category:           category,
			SafetyScore:        score,
			Rationale:          fmt.Sprintf("removes the %s flagged at line %d", issueType, site.Issue.Line),
		}, true
	}
}

// annotateTemplate builds a Template.Build func that appends a review
// comment to the end of the flagged line rather than changing behavior — used for
// issue types where an automatic code change would be a judgment call, not
// a mechanical fix. These never qualify for auto_safe regardless of the
// safety_score on their Template, since their Category is security and
// security is not in model.AutoSafeCategories.
func annotateTemplate(guidance string) func(Site) (model.FixProposal, bool) {
	return func(site Site) (model.FixProposal, bool) {
		if strings.TrimSpace(site.LineContent) == "" {
			return model.FixProposal{}, false
		}
		return model.FixProposal{
			Issue:              site.Issue,
			TargetFile:         site.Issue.FilePath,
			OriginalSnippet:    site.LineContent,
			ReplacementSnippet: site.LineContent + " // TODO(sentryd): " + guidance,
			LineRangeStart:     site.Issue.Line,
			LineRangeEnd:       site.Issue.Line,
			Category:           model.FixCategorySecurity,
			SafetyScore:        0.3,
			Rationale:          guidance,
		}, true
	}
}
