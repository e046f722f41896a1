package model

import "time"

// FieldShapingResponse is the Safety Envelope's verdict on a sensitive
// operation's "intention". Guidance and redirect carry a suggestion but
// never override a hard-safety deny; the hard gates (project boundary,
// pattern/metadata/sandbox validation) are authoritative regardless of this
// response (spec §4.11, §9).
type FieldShapingResponse string

const (
	ResponseAllow             FieldShapingResponse = "allow"
	ResponseAllowWithGuidance FieldShapingResponse = "allow_with_guidance"
	ResponseRedirect          FieldShapingResponse = "redirect"
	ResponseDeny              FieldShapingResponse = "deny"
)

// ResonanceCounters are observability-only usage metrics; they influence
// FieldShapingResponse suggestions but MUST NOT participate in access
// decisions (spec §4.11, §9).
type ResonanceCounters struct {
	BoundaryComfort       int `json:"boundary_comfort"`
	ProjectFocus          int `json:"project_focus"`
	SecurityAppreciation  int `json:"security_appreciation"`
	HelpfulAlignment      int `json:"helpful_alignment"`
	CuriosityRedirection  int `json:"curiosity_redirection"`
}

// SafetyState is the process-scoped, global safety bookkeeping the envelope
// (C13) maintains across every outward-facing operation.
type SafetyState struct {
	RecursionDepth      int               `json:"recursion_depth"`
	ActiveOperations    int               `json:"active_operations"`
	OperationDeadlines  map[string]time.Time `json:"operation_deadlines"` // keyed by operation id
	EmergencyStop       bool              `json:"emergency_stop"`
	Resonance           ResonanceCounters `json:"resonance"`
}

// Intention describes the operation a caller is about to perform, evaluated
// by the envelope's field-shaping step before sensitive work proceeds.
type Intention struct {
	OperationKind string `json:"operation_kind"` // e.g. "network", "cross_boundary_access", "self_modification"
	Rationale     string `json:"rationale,omitempty"`
}
