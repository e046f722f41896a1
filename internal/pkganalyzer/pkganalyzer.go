// Package pkganalyzer implements the Package Analyzer (C8): given the
// files of an Update Package, it classifies each file's role, resolves
// import edges into internal (within-package) and external dependencies,
// and computes a topological integration order.
package pkganalyzer

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"sentryd/internal/model"
)

// roleRule pairs a path/name regex with the role it assigns. Rules are
// tried in order; the first match wins (spec §4.6: "core > utility >
// config > test > documentation").
type roleRule struct {
	pattern *regexp.Regexp
	role    model.PackageRole
}

var roleRules = []roleRule{
	{regexp.MustCompile(`(?i)(^|/)(main|core|engine|server|app)\.\w+$`), model.RoleCore},
	{regexp.MustCompile(`(?i)(^|/)(util|utils|helper|helpers|common)(/|\.\w+$)`), model.RoleUtility},
	{regexp.MustCompile(`(?i)(^|/)(config|settings|\.env)(/|\.\w+$|$)`), model.RoleConfig},
	{regexp.MustCompile(`(?i)(^|/)(test_|_test\.|tests?/)`), model.RoleTest},
	{regexp.MustCompile(`(?i)\.(md|rst|txt)$`), model.RoleDocumentation},
}

// ClassifyRole assigns a PackageRole to path using the prioritized rule
// list, defaulting to RoleUtility when nothing matches.
func ClassifyRole(path string) model.PackageRole {
	for _, rule := range roleRules {
		if rule.pattern.MatchString(path) {
			return rule.role
		}
	}
	return model.RoleUtility
}

var entryGuardPattern = regexp.MustCompile(`(?m)(^func main\(\)|if __name__ == ['"]__main__['"])`)

// Analyze classifies every file in files, resolves import edges, and
// computes an integration order.
func Analyze(files []model.PackageFile) model.PackageDependencyGraph {
	byBase := make(map[string]string, len(files)) // import-resolvable basename -> path
	for _, f := range files {
		byBase[importKey(f.Path)] = f.Path
	}

	out := make([]model.PackageFile, len(files))
	externalSet := make(map[string]bool)
	for i, f := range files {
		f.Role = ClassifyRole(f.Path)
		f.Capabilities.Role = string(f.Role)
		f.Capabilities.HasEntryGuard = entryGuardPattern.MatchString(f.Content)

		var internal, external []string
		for _, imp := range f.Capabilities.Imports {
			if target, ok := resolveImport(imp, byBase); ok && target != f.Path {
				internal = append(internal, target)
				continue
			}
			external = append(external, imp)
			externalSet[imp] = true
		}
		sort.Strings(internal)
		sort.Strings(external)
		f.InternalDeps = internal
		f.ExternalDeps = external
		out[i] = f
	}

	order, cycle := topologicalOrder(out)

	var entryPoints, utilityFiles, externalRequires []string
	for _, f := range out {
		if f.Role == model.RoleCore && f.Capabilities.HasEntryGuard {
			entryPoints = append(entryPoints, f.Path)
		}
		if f.Role == model.RoleUtility {
			utilityFiles = append(utilityFiles, f.Path)
		}
	}
	for ext := range externalSet {
		externalRequires = append(externalRequires, ext)
	}
	sort.Strings(entryPoints)
	sort.Strings(utilityFiles)
	sort.Strings(externalRequires)

	return model.PackageDependencyGraph{
		Files:            out,
		ExternalRequires: externalRequires,
		EntryPoints:      entryPoints,
		UtilityFiles:     utilityFiles,
		IntegrationOrder: order,
		CycleDetected:    cycle,
	}
}

// importKey normalizes a package file's path into the form an import
// string referencing it would take: the path without its extension, with
// path separators normalized to match however the source's import syntax
// addresses siblings.
func importKey(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext)
}

// resolveImport checks whether imp addresses one of the package's own
// files, trying the import string verbatim and its final path segment
// (covering both "pkg/mod" and "from pkg import mod" styles).
func resolveImport(imp string, byBase map[string]string) (string, bool) {
	normalized := strings.ReplaceAll(imp, ".", "/")
	if target, ok := byBase[normalized]; ok {
		return target, true
	}
	last := imp
	if idx := strings.LastIndexAny(imp, "./"); idx >= 0 {
		last = imp[idx+1:]
	}
	for base, path := range byBase {
		if filepath.Base(base) == last {
			return path, true
		}
	}
	return "", false
}

// topologicalOrder computes a DFS-based topological sort over the
// package's internal-dependency edges. A cycle is broken by emitting its
// participating nodes in discovery order rather than silently dropping
// any edge, and CycleDetected is set so the result is never mistaken for
// a clean sort (spec §4.6).
func topologicalOrder(files []model.PackageFile) ([]string, bool) {
	byPath := make(map[string]model.PackageFile, len(files))
	paths := make([]string, 0, len(files))
	for _, f := range files {
		byPath[f.Path] = f
		paths = append(paths, f.Path)
	}
	sort.Strings(paths) // deterministic visiting order

	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int, len(files))
	var order []string
	cycleDetected := false

	var visit func(path string)
	visit = func(path string) {
		switch state[path] {
		case visited:
			return
		case visiting:
			cycleDetected = true
			return
		}
		state[path] = visiting
		deps := append([]string(nil), byPath[path].InternalDeps...)
		sort.Strings(deps)
		for _, dep := range deps {
			if _, ok := byPath[dep]; ok {
				visit(dep)
			}
		}
		state[path] = visited
		order = append(order, path)
	}

	for _, p := range paths {
		visit(p)
	}
	return order, cycleDetected
}
