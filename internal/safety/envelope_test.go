package safety

import (
	"context"
	"testing"

	"sentryd/internal/config"
	"sentryd/internal/model"
)

func newTestEnvelope(t *testing.T) *Envelope {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	return New(root, cfg)
}

func TestResolvePath_DeniesTraversal(t *testing.T) {
	e := newTestEnvelope(t)
	if _, err := e.ResolvePath("../../etc/passwd"); err == nil {
		t.Fatal("expected a boundary violation for a traversal path")
	}
}

func TestResolvePath_AllowsWithinRoot(t *testing.T) {
	e := newTestEnvelope(t)
	resolved, err := e.ResolvePath("sub/file.go")
	if err != nil {
		t.Fatalf("ResolvePath failed: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected a resolved path")
	}
}

func TestBeginOperation_EnforcesConcurrencyLimit(t *testing.T) {
	e := newTestEnvelope(t)
	e.cfg.Safety.MaxConcurrentOperations = 1

	_, cancel1, err := e.BeginOperation(context.Background(), "op1", 1)
	if err != nil {
		t.Fatalf("first BeginOperation failed: %v", err)
	}
	defer cancel1()

	_, _, err = e.BeginOperation(context.Background(), "op2", 1)
	if err == nil {
		t.Fatal("expected the second concurrent operation to be denied")
	}
}

func TestBeginOperation_EnforcesRecursionDepth(t *testing.T) {
	e := newTestEnvelope(t)
	_, _, err := e.BeginOperation(context.Background(), "op1", 99)
	if err == nil {
		t.Fatal("expected recursion depth 99 to exceed the limit")
	}
}

func TestTriggerEmergencyStop_BlocksNewOperations(t *testing.T) {
	e := newTestEnvelope(t)
	e.TriggerEmergencyStop()
	if !e.IsStopped() {
		t.Fatal("expected IsStopped() to report true after TriggerEmergencyStop")
	}
	_, _, err := e.BeginOperation(context.Background(), "op1", 1)
	if err == nil {
		t.Fatal("expected BeginOperation to fail after emergency stop")
	}
}

func TestEvaluateIntention_SelfModificationIsDenied(t *testing.T) {
	e := newTestEnvelope(t)
	resp, _ := e.EvaluateIntention(model.Intention{OperationKind: "self_modification"})
	if resp != model.ResponseDeny {
		t.Fatalf("EvaluateIntention(self_modification) = %s, want deny", resp)
	}
}

func TestEvaluateIntention_DefaultAllows(t *testing.T) {
	e := newTestEnvelope(t)
	resp, _ := e.EvaluateIntention(model.Intention{OperationKind: "read_file"})
	if resp != model.ResponseAllow {
		t.Fatalf("EvaluateIntention(read_file) = %s, want allow", resp)
	}
}
