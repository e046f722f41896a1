// Package integration implements the Integration Mapper (C9): it turns a
// Package Dependency Graph plus a set of accepted Code Connector suggestions
// into an executable Integration Map the Automated Patcher can run.
package integration

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"sentryd/internal/diff"
	"sentryd/internal/logging"
	"sentryd/internal/model"
)

// roleSubdir maps a package file's role to the project-relative directory
// a file_copy step targets.
var roleSubdir = map[model.PackageRole]string{
	model.RoleCore:          "",
	model.RoleUtility:       "internal",
	model.RoleConfig:        "config",
	model.RoleTest:          "",
	model.RoleDocumentation: "docs",
}

// highRiskPattern flags constructs that raise a modification's safety_level
// to review_required, which is what adds its risk point — the
// same dangerous-construct vocabulary the Defense-in-Depth Validator's
// pattern gate enforces at apply time.
var highRiskPattern = regexp.MustCompile(`(?i)\bexec\s*\(|\beval\s*\(|shell\s*=\s*True|subprocess\.|__import__\(`)

// Mapper builds Integration Maps from a package graph and accepted
// connections.
type Mapper struct {
	// ValidationCommands run in the Integration Map's validation step, in
	// addition to the per-touched-file parse check.
	ValidationCommands []string
}

// New returns a Mapper with no extra validation commands configured.
func New() *Mapper {
	return &Mapper{}
}

// ExistingFiles reports which project-relative paths already exist, used to
// detect file_copy conflicts. Conflicts demote what would otherwise be a
// plain copy into a review_required modification rather than a silent
// overwrite.
type ExistingFiles map[string]bool

// Build produces the Integration Map for graph, applying accepted at each
// target file. It reads nothing from disk: existing names the paths that
// already exist, and fileContents supplies the target files' current text.
func (m *Mapper) Build(graph model.PackageDependencyGraph, accepted []model.ConnectionSuggestion, existing ExistingFiles, fileContents map[string]string) model.IntegrationMap {
	var steps []model.IntegrationStep

	if len(graph.ExternalRequires) > 0 {
		steps = append(steps, model.IntegrationStep{
			Type:          model.StepDependencyInstall,
			Description:   fmt.Sprintf("install %d external requirement(s)", len(graph.ExternalRequires)),
			Requirements:  append([]string(nil), graph.ExternalRequires...),
			ValidationCmd: nil,
		})
	}

	fileSetup, conflictCount := m.buildFileSetupStep(graph, existing)
	steps = append(steps, fileSetup...)

	modSteps, riskPoints := m.buildModificationSteps(accepted, fileContents)
	steps = append(steps, modSteps...)

	touched := touchedFiles(fileSetup, modSteps)
	steps = append(steps, model.IntegrationStep{
		Type:          model.StepValidation,
		Description:   fmt.Sprintf("parse-check %d touched file(s)", len(touched)),
		ValidationCmd: append([]string(nil), m.ValidationCommands...),
	})

	riskPoints += conflictCount
	assessment := classifyRisk(riskPoints)

	logging.Integration("built integration map: %d steps, risk=%s (%d points)", len(steps), assessment, riskPoints)

	return model.IntegrationMap{
		SchemaVersion:      model.CurrentIntegrationMapSchemaVersion,
		Steps:              steps,
		RiskAssessment:     assessment,
		RollbackPlan:       "restore backed-up files from the patcher's backup directory; never delete the project directory",
		ValidationStrategy: "parse-check touched files, then run configured validation commands",
		SuccessCriteria:    []string{"all steps applied", "validation step passes", "no review_required step left unresolved"},
	}
}

// buildFileSetupStep emits one file_copy step per file in the graph's
// integration order, targeting a role-appropriate subdirectory. A file that
// would land on an existing path is emitted instead as a review_required
// modification step, never a silent overwrite.
func (m *Mapper) buildFileSetupStep(graph model.PackageDependencyGraph, existing ExistingFiles) ([]model.IntegrationStep, int) {
	byPath := make(map[string]model.PackageFile, len(graph.Files))
	for _, f := range graph.Files {
		byPath[f.Path] = f
	}

	order := graph.IntegrationOrder
	if len(order) == 0 {
		for _, f := range graph.Files {
			order = append(order, f.Path)
		}
	}

	var steps []model.IntegrationStep
	conflicts := 0
	for _, path := range order {
		f, ok := byPath[path]
		if !ok {
			continue
		}
		dest := filepath.ToSlash(filepath.Join(roleSubdir[f.Role], filepath.Base(f.Path)))

		if existing[dest] {
			conflicts++
			steps = append(steps, model.IntegrationStep{
				Type:        model.StepModification,
				Description: fmt.Sprintf("conflict: %s already exists at %s", f.Path, dest),
				Modifications: []model.FileModification{{
					ModificationType: model.ModificationTextPatch,
					FilePath:         dest,
					NewContent:       f.Content,
					Reasoning:        fmt.Sprintf("%s would overwrite an existing file; needs manual reconciliation", f.Path),
					SafetyLevel:      model.SafetyLevelReviewRequired,
				}},
			})
			continue
		}

		steps = append(steps, model.IntegrationStep{
			Type:        model.StepFileCopy,
			Description: fmt.Sprintf("copy %s (%s)", f.Path, f.Role),
			SourcePath:  f.Path,
			DestPath:    dest,
		})
	}
	return steps, conflicts
}

// buildModificationSteps emits an import_add plus a call-site text_patch per
// accepted connection suggestion, and returns the total risk-point
// contribution of those modifications (1 point for review_required, 0
// otherwise; a high-risk pattern counts through that review_required
// point, and conflicts are scored separately in Build).
func (m *Mapper) buildModificationSteps(accepted []model.ConnectionSuggestion, fileContents map[string]string) ([]model.IntegrationStep, int) {
	var steps []model.IntegrationStep
	riskPoints := 0

	for _, c := range accepted {
		importLine := fmt.Sprintf("import %q", strings.TrimSuffix(filepath.Base(c.OrphanPath), filepath.Ext(c.OrphanPath)))
		callSite := fmt.Sprintf("// wire %s via %s", c.OrphanPath, c.ConnectionType)

		importMod := model.FileModification{
			ModificationType: model.ModificationImportAdd,
			FilePath:         c.TargetPath,
			NewContent:       importLine,
			Reasoning:        c.Reasoning,
			SafetyLevel:      model.SafetyLevelSafe,
		}

		patchLevel := model.SafetyLevelCaution
		if highRiskPattern.MatchString(callSite) || highRiskPattern.MatchString(c.Reasoning) {
			patchLevel = model.SafetyLevelReviewRequired
		}
		patchMod := model.FileModification{
			ModificationType: model.ModificationTextPatch,
			FilePath:         c.TargetPath,
			NewContent:       callSite,
			Reasoning:        fmt.Sprintf("connect %s into %s (score=%.2f)", c.OrphanPath, c.TargetPath, c.Score),
			SafetyLevel:      patchLevel,
		}

		if old, ok := fileContents[c.TargetPath]; ok {
			fd := diff.ComputeDiff(c.TargetPath, c.TargetPath, old, old+"\n"+callSite+"\n")
			patchMod.Reasoning += "\n" + renderUnifiedDiff(fd)
		}

		if patchLevel == model.SafetyLevelReviewRequired {
			riskPoints++
		}

		steps = append(steps, model.IntegrationStep{
			Type:          model.StepModification,
			Description:   fmt.Sprintf("wire %s into %s", c.OrphanPath, c.TargetPath),
			Modifications: []model.FileModification{importMod, patchMod},
		})
	}
	return steps, riskPoints
}

// touchedFiles collects the distinct file paths any file_copy or
// modification step in steps would write to, sorted for deterministic
// reporting.
func touchedFiles(groups ...[]model.IntegrationStep) []string {
	seen := make(map[string]bool)
	for _, steps := range groups {
		for _, s := range steps {
			if s.DestPath != "" {
				seen[s.DestPath] = true
			}
			for _, m := range s.Modifications {
				seen[m.FilePath] = true
			}
		}
	}
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// classifyRisk maps an aggregate risk-point count to the spec's three risk
// bands: low (<2), medium (2-4), high (>=5).
func classifyRisk(points int) model.RiskAssessment {
	switch {
	case points >= 5:
		return model.RiskHigh
	case points >= 2:
		return model.RiskMedium
	default:
		return model.RiskLow
	}
}

// renderUnifiedDiff renders a FileDiff's hunks as a compact unified-diff
// preview for attaching to a modification's reasoning text.
func renderUnifiedDiff(fd *diff.FileDiff) string {
	if fd == nil || len(fd.Hunks) == 0 {
		return ""
	}
	var b strings.Builder
	for _, h := range fd.Hunks {
		fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldCount, h.NewStart, h.NewCount)
		for _, line := range h.Lines {
			prefix := " "
			switch line.Type {
			case diff.LineAdded:
				prefix = "+"
			case diff.LineRemoved:
				prefix = "-"
			}
			fmt.Fprintf(&b, "%s%s\n", prefix, line.Content)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
