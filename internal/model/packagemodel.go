package model

// PackageRole classifies a file within an Update Package. Roles are decided
// by a prioritized regex list (core > utility > config > test >
// documentation); the first match wins and the default is utility.
type PackageRole string

const (
	RoleCore          PackageRole = "core"
	RoleUtility       PackageRole = "utility"
	RoleConfig        PackageRole = "config"
	RoleTest          PackageRole = "test"
	RoleDocumentation PackageRole = "documentation"
)

// PackageFile is one file within an Update Package awaiting integration.
type PackageFile struct {
	Path                string       `json:"path"`
	Content             string       `json:"content"`
	Capabilities        Capabilities `json:"capabilities"`
	Role                PackageRole  `json:"role"`
	InternalDeps        []string     `json:"internal_deps"`        // paths of other package files it imports
	ExternalDeps        []string     `json:"external_deps"`        // import strings that resolve outside the package
}

// PackageDependencyGraph is the Package Analyzer's (C8) output: the package's
// files, their internal edges, the external requirements collected across
// all files, and the computed integration order.
type PackageDependencyGraph struct {
	Files            []PackageFile `json:"files"`
	ExternalRequires []string      `json:"external_requires"`
	EntryPoints      []string      `json:"entry_points"` // paths with role=core and an entry guard
	UtilityFiles     []string      `json:"utility_files"`
	IntegrationOrder []string      `json:"integration_order"` // topologically sorted paths
	CycleDetected    bool          `json:"cycle_detected"`
}
