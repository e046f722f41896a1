// Package fixgen implements the Fix Generator & Approval subsystem (C11):
// a template library keyed by Issue type, auto_safe classification, and the
// interactive approval contract, backed by the Memory Store's learning
// namespace.
package fixgen

import (
	"sync"

	"sentryd/internal/model"
)

// Site is the concrete location and surrounding text a Template renders a
// Fix Proposal against.
type Site struct {
	Issue       model.Issue
	LineContent string // the exact source line at Issue.Line
	FileContent string // full file content, for templates that need context
}

// Template renders a candidate fix for one Issue type. Build returns ok=false
// when the site's actual content doesn't match what the template expects
// (e.g. the line changed since the issue was recorded), signaling the
// generator to try the next-ranked template instead.
type Template struct {
	ID          string
	IssueType   string
	Category    model.FixCategory
	SafetyScore float64
	Build       func(site Site) (proposal model.FixProposal, ok bool)
}

// Registry is a priority-agnostic, type-keyed template library — templates
// for the same issue type are ranked dynamically at generation time by
// their Memory Store quality score, not by registration order, mirroring
// the teacher's ValidatorRegistry byType lookup cache.
type Registry struct {
	mu      sync.RWMutex
	byIssue map[string][]*Template
	byID    map[string]*Template
}

// NewRegistry returns an empty template registry.
func NewRegistry() *Registry {
	return &Registry{
		byIssue: make(map[string][]*Template),
		byID:    make(map[string]*Template),
	}
}

// Register adds t to the registry, indexed by its IssueType.
func (r *Registry) Register(t *Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byIssue[t.IssueType] = append(r.byIssue[t.IssueType], t)
	r.byID[t.ID] = t
}

// For returns every template registered for issueType, in registration
// order (the generator re-ranks by quality score before picking one).
func (r *Registry) For(issueType string) []*Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	templates := r.byIssue[issueType]
	out := make([]*Template, len(templates))
	copy(out, templates)
	return out
}

// ByID looks up a template by its stable identifier, used when replaying a
// recorded approval decision.
func (r *Registry) ByID(id string) (*Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	return t, ok
}

// NewDefaultRegistry returns a Registry pre-loaded with the built-in
// template set (see templates.go).
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	for _, t := range defaultTemplates() {
		r.Register(t)
	}
	return r
}
