// Package connector implements the Code Connector (C7): given a set of
// orphan files with no inbound references and a set of target ("main")
// files, it scores every (orphan, target) pairing on semantic, structural,
// dependency, and need fit and proposes how the orphan's capability should
// be wired in.
package connector

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"sentryd/internal/model"
)

// Weight assigned to each sub-score in the composite, per spec §4.5.
const (
	weightSemantic   = 0.30
	weightStructural = 0.25
	weightDependency = 0.25
	weightNeed       = 0.20

	// DefaultConfidenceThreshold is the minimum composite score a
	// suggestion must reach to be returned.
	DefaultConfidenceThreshold = 0.3
)

var needEvidencePattern = regexp.MustCompile(`(?i)\b(TODO|FIXME|NotImplementedError|not implemented|unresolved import)\b`)

// Connector scores orphan/target file pairs and proposes connections.
type Connector struct {
	ConfidenceThreshold float64
}

// New returns a Connector using the default confidence threshold.
func New() *Connector {
	return &Connector{ConfidenceThreshold: DefaultConfidenceThreshold}
}

// Suggest scores every (orphan, target) pair and returns the suggestions
// at or above the confidence threshold, ranked highest score first, with
// ties broken by higher need_score then lexicographic (orphan path, target
// path) for determinism. A zero ConfidenceThreshold selects
// DefaultConfidenceThreshold.
func (c *Connector) Suggest(orphans, targets []model.Capabilities) []model.ConnectionSuggestion {
	threshold := c.ConfidenceThreshold
	if threshold == 0 {
		threshold = DefaultConfidenceThreshold
	}

	var out []model.ConnectionSuggestion
	for _, o := range orphans {
		for _, m := range targets {
			if o.FilePath == m.FilePath {
				continue
			}
			suggestion := c.score(o, m)
			if suggestion.Score >= threshold {
				out = append(out, suggestion)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.NeedScore != b.NeedScore {
			return a.NeedScore > b.NeedScore
		}
		if a.OrphanPath != b.OrphanPath {
			return a.OrphanPath < b.OrphanPath
		}
		return a.TargetPath < b.TargetPath
	})
	return out
}

func (c *Connector) score(o, m model.Capabilities) model.ConnectionSuggestion {
	semantic := semanticScore(o, m)
	structural := structuralScore(o, m)
	dependency := dependencyScore(o, m)
	need := needScore(o, m)

	composite := weightSemantic*semantic + weightStructural*structural + weightDependency*dependency + weightNeed*need

	return model.ConnectionSuggestion{
		OrphanPath:      o.FilePath,
		TargetPath:      m.FilePath,
		SemanticScore:   semantic,
		StructuralScore: structural,
		DependencyScore: dependency,
		NeedScore:       need,
		Score:           composite,
		ConnectionType:  connectionType(o),
		Reasoning:       reasoning(o, m, semantic, structural, dependency, need),
	}
}

// semanticScore combines keyword overlap, function-name token overlap, and
// doc overlap, each capped at 1.0 before averaging.
func semanticScore(o, m model.Capabilities) float64 {
	keywordOverlap := capAt1(jaccard(o.Keywords, m.Keywords))
	funcNameOverlap := capAt1(jaccard(functionNameTokens(o), functionNameTokens(m)))
	docOverlap := capAt1(jaccard(docTokens(o), docTokens(m)))
	return (keywordOverlap + funcNameOverlap + docOverlap) / 3
}

// structuralScore rewards the absence of import-name conflicts, API
// surfaces that don't simply duplicate each other, and matching file
// roles (both "core", both "utility", and so on).
func structuralScore(o, m model.Capabilities) float64 {
	var score float64
	if !hasImportConflict(o, m) {
		score += 0.4
	}
	if complementaryAPISurfaces(o, m) {
		score += 0.35
	}
	if o.Role != "" && o.Role == m.Role {
		score += 0.25
	}
	return capAt1(score)
}

// dependencyScore rewards shared external dependencies and matching
// inferred domain (the top-level package segment of their imports).
func dependencyScore(o, m model.Capabilities) float64 {
	shared := jaccard(o.Imports, m.Imports)
	domainMatch := 0.0
	if domainOf(o.Imports) != "" && domainOf(o.Imports) == domainOf(m.Imports) {
		domainMatch = 1.0
	}
	return capAt1(0.6*shared + 0.4*domainMatch)
}

// needScore looks for evidence in m that it needs what o provides: debt
// markers, stub errors, or an import m can't resolve but o's capability
// could satisfy.
func needScore(o, m model.Capabilities) float64 {
	evidence := 0.0
	if needEvidencePattern.MatchString(strings.Join(m.Keywords, " ")) {
		evidence += 0.5
	}
	if unresolvedImportSatisfiedBy(o, m) {
		evidence += 0.5
	}
	return capAt1(evidence)
}

func unresolvedImportSatisfiedBy(o, m model.Capabilities) bool {
	oName := baseNameNoExt(o.FilePath)
	for _, imp := range m.Imports {
		if strings.Contains(imp, oName) {
			return true
		}
	}
	return false
}

// hasImportConflict reports whether o and m import the same package under
// different local aliases inferred from their import strings. Capabilities
// carries raw import paths, not per-file alias tables, so this can only
// catch the case where one side's import string embeds an alias the other
// doesn't share.
func hasImportConflict(o, m model.Capabilities) bool {
	oAliases := make(map[string]string)
	for _, imp := range o.Imports {
		path, alias := splitAliasedImport(imp)
		if alias != "" {
			oAliases[path] = alias
		}
	}
	for _, imp := range m.Imports {
		path, alias := splitAliasedImport(imp)
		if alias == "" {
			continue
		}
		if existing, ok := oAliases[path]; ok && existing != alias {
			return true
		}
	}
	return false
}

// splitAliasedImport splits an import string of the form "alias path"
// (the form go/ast's ImportSpec.Name + Path would be rendered as) into its
// alias and path; imports with no alias return an empty alias.
func splitAliasedImport(imp string) (path, alias string) {
	fields := strings.Fields(imp)
	if len(fields) == 2 {
		return fields[1], fields[0]
	}
	return imp, ""
}

func complementaryAPISurfaces(o, m model.Capabilities) bool {
	oFuncs := toSet(functionNames(o))
	for _, f := range functionNames(m) {
		if oFuncs[f] {
			return false // identical API surface, not complementary
		}
	}
	return len(o.Functions) > 0
}

func connectionType(o model.Capabilities) model.ConnectionType {
	switch {
	case len(o.Functions) > 0:
		return model.ConnectionFunctionImport
	case len(o.Classes) > 0:
		return model.ConnectionClassImport
	case len(o.Constants) > 0:
		return model.ConnectionConstantImport
	case o.Role == string(model.RoleUtility):
		return model.ConnectionUtilityImport
	default:
		return model.ConnectionModuleImport
	}
}

func reasoning(o, m model.Capabilities, semantic, structural, dependency, need float64) string {
	return fmt.Sprintf(
		"%s shares %.0f%% semantic overlap, %.0f%% structural fit, and %.0f%% dependency overlap with %s; need evidence %.0f%%",
		o.FilePath, semantic*100, structural*100, dependency*100, m.FilePath, need*100)
}

func functionNames(c model.Capabilities) []string {
	names := make([]string, 0, len(c.Functions))
	for _, f := range c.Functions {
		names = append(names, f.Name)
	}
	return names
}

func functionNameTokens(c model.Capabilities) []string {
	var tokens []string
	for _, f := range c.Functions {
		tokens = append(tokens, splitIdentifier(f.Name)...)
	}
	return tokens
}

func docTokens(c model.Capabilities) []string {
	var tokens []string
	for _, f := range c.Functions {
		tokens = append(tokens, strings.Fields(strings.ToLower(f.Doc))...)
	}
	return tokens
}

func domainOf(imports []string) string {
	if len(imports) == 0 {
		return ""
	}
	first := imports[0]
	if idx := strings.IndexByte(first, '/'); idx >= 0 {
		return first[:idx]
	}
	return first
}

func baseNameNoExt(path string) string {
	base := path
	if idx := strings.LastIndexByte(base, '/'); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.LastIndexByte(base, '.'); idx >= 0 {
		base = base[:idx]
	}
	return base
}

// splitIdentifier breaks a snake_case or camelCase identifier into lowercase
// tokens for overlap comparison.
func splitIdentifier(name string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '-':
			flush()
		case r >= 'A' && r <= 'Z' && i > 0:
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}

// jaccard returns |a ∩ b| / |a ∪ b|, 0 when both sets are empty.
func jaccard(a, b []string) float64 {
	setA, setB := toSet(a), toSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	intersection := 0
	union := make(map[string]bool, len(setA)+len(setB))
	for k := range setA {
		union[k] = true
		if setB[k] {
			intersection++
		}
	}
	for k := range setB {
		union[k] = true
	}
	if len(union) == 0 {
		return 0
	}
	return float64(intersection) / float64(len(union))
}

func capAt1(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}
