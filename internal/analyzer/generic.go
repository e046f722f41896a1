package analyzer

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"sentryd/internal/model"
	"sentryd/internal/store"
)

// vulnerabilityPattern is a source regexp paired with an optional negating
// "safe" regexp, the shape lifted from a vulnerability-scanner's built-in
// pattern table: a line that matches Source but also matches one of Safe is
// not flagged.
type vulnerabilityPattern struct {
	IssueType string
	Severity  model.Severity
	Category  model.PatternCategory
	Source    *regexp.Regexp
	Safe      []*regexp.Regexp
	Message   string
}

// debtMarker is a comment-borne technical-debt marker (TODO/FIXME/HACK and
// friends), severity-tiered the way a SATD analyzer classifies comment
// markers rather than code constructs.
type debtMarker struct {
	Pattern  *regexp.Regexp
	Severity model.Severity
	IssueType string
}

// GenericAnalyzer is the fallback LanguageAnalyzer for any file extension
// no specific analyzer claims. It runs line-oriented regex detections for
// common security/secret patterns and SATD-style debt markers, independent
// of language grammar — the same categories §4.3 lists, found the
// heuristic way rather than via AST.
type GenericAnalyzer struct {
	vulnPatterns  []vulnerabilityPattern
	debtMarkers   []debtMarker
	correlations  []string
}

// NewGenericAnalyzer builds the fallback analyzer with its built-in
// pattern tables.
func NewGenericAnalyzer() *GenericAnalyzer {
	return &GenericAnalyzer{
		vulnPatterns: defaultVulnerabilityPatterns(),
		debtMarkers:  defaultDebtMarkers(),
		correlations: []string{"go", "python", "javascript"},
	}
}

func (g *GenericAnalyzer) LanguageName() string     { return "generic" }
func (g *GenericAnalyzer) FileExtensions() []string { return nil } // claimed only as fallback, never registered by extension

func (g *GenericAnalyzer) GetCrossLanguageCorrelations() []string {
	return g.correlations
}

// AnalyzeFile scans content line by line against both pattern tables.
func (g *GenericAnalyzer) AnalyzeFile(ctx context.Context, path string, content []byte, localStore *store.Handle, globalStore *store.CrossReferenceIndex) ([]model.Issue, error) {
	var issues []model.Issue
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if ctx.Err() != nil {
			return issues, ctx.Err()
		}

		for _, vp := range g.vulnPatterns {
			if !vp.Source.MatchString(line) {
				continue
			}
			if matchesAny(vp.Safe, line) {
				continue
			}
			issues = append(issues, model.Issue{
				Type:        vp.IssueType,
				FilePath:    path,
				Line:        lineNo,
				Severity:    vp.Severity,
				Description: vp.Message,
				ContextTags: []string{string(vp.Category)},
			})
		}

		if isCommentLine(line) {
			for _, dm := range g.debtMarkers {
				if dm.Pattern.MatchString(line) {
					issues = append(issues, model.Issue{
						Type:        dm.IssueType,
						FilePath:    path,
						Line:        lineNo,
						Severity:    adjustSeverityForContext(dm.Severity, path, line),
						Description: strings.TrimSpace(line),
						ContextTags: []string{string(model.CategoryGeneral)},
					})
				}
			}
		}
	}
	return issues, nil
}

// LearnFromAnalysis stores one pattern record per distinct issue type
// found, reinforcing existing records via UpdateQuality semantics left to
// the caller (fix outcomes, not discovery, drive quality) — here it only
// ensures a record exists so get_similar_patterns has something to find.
func (g *GenericAnalyzer) LearnFromAnalysis(ctx context.Context, issues []model.Issue, localStore *store.Handle) error {
	seen := make(map[string]bool)
	for _, iss := range issues {
		if seen[iss.Type] {
			continue
		}
		seen[iss.Type] = true
		rec := model.PatternRecord{
			PatternID: fmt.Sprintf("generic:%s", iss.Type),
			Language:  "generic",
			Category:  model.CategoryGeneral,
			Severity:  iss.Severity,
			Detection: iss.Type,
		}
		if _, err := localStore.Store(ctx, rec, iss.Description, map[string]interface{}{"issue_type": iss.Type}); err != nil {
			return err
		}
	}
	return nil
}

// GetSimilarPatterns searches localStore by issueType and returns the
// matching pattern IDs.
func (g *GenericAnalyzer) GetSimilarPatterns(ctx context.Context, issueType string, localStore *store.Handle) ([]string, error) {
	outcome, err := localStore.Search(ctx, issueType, 5, store.Filter{}, store.DefaultSearchTimeout)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(outcome.Results))
	for _, r := range outcome.Results {
		ids = append(ids, r.PatternID)
	}
	return ids, nil
}

func matchesAny(patterns []*regexp.Regexp, line string) bool {
	for _, p := range patterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

// commentPrefixes covers the line-comment syntax of every language the
// generic analyzer is likely to see as a fallback.
var commentPrefixes = []string{"//", "#", "--", ";", "%"}

func isCommentLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, p := range commentPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

// adjustSeverityForContext escalates debt markers found in
// security-sensitive paths and reduces those found in test files, mirroring
// a SATD analyzer's context-based severity adjustment.
func adjustSeverityForContext(base model.Severity, path, line string) model.Severity {
	lowerPath := strings.ToLower(path)
	lowerLine := strings.ToLower(line)
	securityHit := strings.Contains(lowerLine, "security") || strings.Contains(lowerLine, "auth") || strings.Contains(lowerLine, "password") || strings.Contains(lowerLine, "token")
	if securityHit {
		return escalate(base)
	}
	if strings.Contains(lowerPath, "_test.") || strings.Contains(lowerPath, "/test/") || strings.Contains(lowerPath, "/tests/") {
		return reduce(base)
	}
	return base
}

func escalate(s model.Severity) model.Severity {
	switch s {
	case model.SeverityLow:
		return model.SeverityMedium
	case model.SeverityMedium:
		return model.SeverityHigh
	default:
		return s
	}
}

func reduce(s model.Severity) model.Severity {
	switch s {
	case model.SeverityHigh:
		return model.SeverityMedium
	case model.SeverityMedium:
		return model.SeverityLow
	default:
		return s
	}
}

// contextHash returns a stable identity for a debt marker independent of
// line number, so the same marker moved by an unrelated edit doesn't look
// like a new issue across runs.
func contextHash(path, issueType, content string) string {
	h := sha256.Sum256([]byte(path + "|" + issueType + "|" + strings.TrimSpace(content)))
	return hex.EncodeToString(h[:8])
}

func defaultVulnerabilityPatterns() []vulnerabilityPattern {
	return []vulnerabilityPattern{
		{
			IssueType: "hardcoded_secret",
			Severity:  model.SeverityCritical,
			Category:  model.CategorySecurity,
			Source:    regexp.MustCompile(`(?i)(api[_-]?key|secret|password|token)\s*[:=]\s*["'][A-Za-z0-9_\-/+=]{8,}["']`),
			Safe: []*regexp.Regexp{
				regexp.MustCompile(`(?i)(os\.environ|getenv|process\.env|example|placeholder|<.*>|xxx+)`),
			},
			Message: "possible hardcoded credential",
		},
		{
			IssueType: "shell_true_subprocess",
			Severity:  model.SeverityHigh,
			Category:  model.CategorySecurity,
			Source:    regexp.MustCompile(`shell\s*=\s*True`),
			Message:   "subprocess invoked with shell=True, command injection risk if input is not trusted",
		},
		{
			IssueType: "ai_pattern_marker",
			Severity:  model.SeverityLow,
			Category:  model.CategoryAIPatterns,
			Source:    regexp.MustCompile(`(?i)(as an ai|i cannot actually|placeholder implementation|in a real implementation)`),
			Message:   "comment reads like an unfinished AI-generated stub",
		},
	}
}

func defaultDebtMarkers() []debtMarker {
	return []debtMarker{
		{Pattern: regexp.MustCompile(`(?i)\bFIXME\b`), Severity: model.SeverityMedium, IssueType: "technical_debt_fixme"},
		{Pattern: regexp.MustCompile(`(?i)\bHACK\b`), Severity: model.SeverityMedium, IssueType: "technical_debt_hack"},
		{Pattern: regexp.MustCompile(`(?i)\bTODO\b`), Severity: model.SeverityLow, IssueType: "technical_debt_todo"},
		{Pattern: regexp.MustCompile(`(?i)\bXXX\b`), Severity: model.SeverityLow, IssueType: "technical_debt_marker"},
	}
}
