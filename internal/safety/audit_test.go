package safety

import (
	"testing"

	"sentryd/internal/model"
)

// These exercise the audit-logging call sites added to the boundary,
// emergency-stop, and field-shaping paths. The audit file is normally
// closed in unit tests (debug mode off), so this asserts the wiring never
// panics or blocks when logging.AuditLogger.Log is a no-op, not that a
// file gets written — that's covered at the logging package level.
func TestResolvePath_TraversalDoesNotPanicWithAuditWired(t *testing.T) {
	e := newTestEnvelope(t)
	if _, err := e.ResolvePath("../outside"); err == nil {
		t.Fatal("expected a boundary violation")
	}
}

func TestTriggerEmergencyStop_DoesNotPanicWithAuditWired(t *testing.T) {
	e := newTestEnvelope(t)
	e.TriggerEmergencyStop()
	if !e.IsStopped() {
		t.Fatal("expected IsStopped to report true after TriggerEmergencyStop")
	}
}

func TestEvaluateIntention_RedirectIsAudited(t *testing.T) {
	e := newTestEnvelope(t)
	resp, _ := e.EvaluateIntention(model.Intention{OperationKind: "network"})
	if resp != model.ResponseRedirect {
		t.Fatalf("EvaluateIntention(network) = %s, want redirect", resp)
	}
}
