package safety

import (
	"sentryd/internal/logging"
	"sentryd/internal/model"
)

// auditDecision records one field-shaping or boundary verdict to the
// durable audit log. A safety envelope that silently denies or redirects
// is incomplete — the boundary, emergency-stop and field-shaping paths log
// their outcome here in addition to returning it to the caller, so a
// project's fix history can be reconstructed after the fact without
// replaying the run. BeginOperation's limit refusals are returned but not
// audited.
func (e *Envelope) auditDecision(eventType logging.AuditEventType, operationKind, reason string) {
	logging.AuditWithProject(e.projectRoot).SafetyDecision(eventType, operationKind, reason)
}

// auditBoundaryViolation records a denied path-resolution attempt.
func (e *Envelope) auditBoundaryViolation(path, reason string) {
	logging.AuditWithProject(e.projectRoot).Log(logging.AuditEvent{
		EventType: logging.AuditSafetyBlock,
		Target:    path,
		Success:   false,
		Reason:    reason,
	})
}

// auditEmergencyStop records an emergency-stop trigger.
func (e *Envelope) auditEmergencyStop(reason string) {
	logging.AuditWithProject(e.projectRoot).EmergencyStop(reason)
}

// responseEventType maps a field-shaping verdict to its audit event type.
func responseEventType(r model.FieldShapingResponse) logging.AuditEventType {
	switch r {
	case model.ResponseDeny:
		return logging.AuditSafetyBlock
	case model.ResponseRedirect:
		return logging.AuditSafetyRedirect
	default:
		return logging.AuditSafetyAllow
	}
}
