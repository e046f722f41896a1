// Package safety implements the Safety Envelope (C13): project-boundary
// enforcement, resource limits, emergency stop, and field-shaping
// evaluation of sensitive operations. Every outward-facing component
// (analyzer, connector, mapper, patcher) is expected to check in with an
// Envelope before touching the filesystem or starting a long operation.
package safety

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"sentryd/internal/config"
	"sentryd/internal/errs"
	"sentryd/internal/logging"
	"sentryd/internal/model"
)

// Envelope is the process-scoped safety gate for a single project root.
type Envelope struct {
	projectRoot string
	cfg         *config.Config

	mu    sync.Mutex
	state model.SafetyState
}

// New returns an Envelope rooted at projectRoot (which must already be
// resolved to an absolute path by the caller) governed by cfg's limits.
func New(projectRoot string, cfg *config.Config) *Envelope {
	return &Envelope{
		projectRoot: projectRoot,
		cfg:         cfg,
		state: model.SafetyState{
			OperationDeadlines: make(map[string]time.Time),
		},
	}
}

// ResolvePath checks that path resolves under the envelope's project root
// and returns the resolved absolute path. Traversal (`..`) or an absolute
// path escaping root is denied with BoundaryViolation (spec §4.11).
func (e *Envelope) ResolvePath(path string) (string, error) {
	var resolved string
	if filepath.IsAbs(path) {
		resolved = filepath.Clean(path)
	} else {
		resolved = filepath.Clean(filepath.Join(e.projectRoot, path))
	}
	rootWithSep := e.projectRoot
	if !strings.HasSuffix(rootWithSep, string(filepath.Separator)) {
		rootWithSep += string(filepath.Separator)
	}
	if resolved != e.projectRoot && !strings.HasPrefix(resolved, rootWithSep) {
		e.auditBoundaryViolation(path, "resolves outside project root")
		return "", errs.New(errs.KindBoundaryViolation, "path %s escapes project root %s", path, e.projectRoot)
	}
	return resolved, nil
}

// BeginOperation registers id as active, enforcing the max-concurrent-
// operations and max-recursion-depth limits. Callers must call EndOperation
// when done, even on error paths.
func (e *Envelope) BeginOperation(ctx context.Context, id string, depth int) (context.Context, context.CancelFunc, error) {
	e.mu.Lock()
	if e.state.EmergencyStop {
		e.mu.Unlock()
		return nil, nil, errs.New(errs.KindEmergencyStop, "emergency stop is active, refusing to start operation %s", id)
	}
	if e.state.ActiveOperations >= e.cfg.Safety.MaxConcurrentOperations {
		e.mu.Unlock()
		return nil, nil, errs.New(errs.KindLimitExceeded, "max concurrent operations (%d) reached", e.cfg.Safety.MaxConcurrentOperations)
	}
	if depth > e.cfg.EffectiveRecursionDepth() {
		e.mu.Unlock()
		return nil, nil, errs.New(errs.KindLimitExceeded, "recursion depth %d exceeds limit %d", depth, e.cfg.EffectiveRecursionDepth())
	}
	e.state.ActiveOperations++
	deadline := time.Now().Add(e.cfg.MaxOperationTimeout())
	e.state.OperationDeadlines[id] = deadline
	e.state.RecursionDepth = depth
	e.mu.Unlock()

	opCtx, cancel := context.WithDeadline(ctx, deadline)
	logging.Safety("safety: operation %s started (depth=%d, deadline=%s)", id, depth, deadline.Format(time.RFC3339))
	return opCtx, cancel, nil
}

// EndOperation releases the bookkeeping BeginOperation registered for id.
func (e *Envelope) EndOperation(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.ActiveOperations > 0 {
		e.state.ActiveOperations--
	}
	delete(e.state.OperationDeadlines, id)
}

// TriggerEmergencyStop sets the in-process emergency-stop flag. Active
// operations observe it at their next cooperative checkpoint (their
// context's deadline/cancellation, or an explicit IsStopped check).
func (e *Envelope) TriggerEmergencyStop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state.EmergencyStop = true
	logging.SafetyError("safety: emergency stop triggered")
	e.auditEmergencyStop("TriggerEmergencyStop called")
}

// IsStopped reports whether emergency stop is active, either via the
// in-process flag or the configured stop-file's presence on disk.
func (e *Envelope) IsStopped() bool {
	e.mu.Lock()
	flagged := e.state.EmergencyStop
	e.mu.Unlock()
	return flagged || e.cfg.IsEmergencyStopped()
}

// State returns a snapshot of the envelope's current bookkeeping.
func (e *Envelope) State() model.SafetyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	deadlines := make(map[string]time.Time, len(e.state.OperationDeadlines))
	for k, v := range e.state.OperationDeadlines {
		deadlines[k] = v
	}
	s := e.state
	s.OperationDeadlines = deadlines
	return s
}

// EvaluateIntention implements field-shaping (spec §4.11): it never
// overrides a hard-safety deny (callers must still run ResolvePath /
// BeginOperation independently), and resonance counters are observability
// only — they shape the textual suggestion, never the verdict itself.
func (e *Envelope) EvaluateIntention(intent model.Intention) (model.FieldShapingResponse, string) {
	e.mu.Lock()
	e.bumpResonance(intent)
	counters := e.state.Resonance
	e.mu.Unlock()

	response, guidance := e.evaluateIntentionKind(intent, counters)
	e.auditDecision(responseEventType(response), intent.OperationKind, guidance)
	return response, guidance
}

func (e *Envelope) evaluateIntentionKind(intent model.Intention, counters model.ResonanceCounters) (model.FieldShapingResponse, string) {
	switch intent.OperationKind {
	case "self_modification":
		return model.ResponseDeny, "sentryd does not modify its own source or configuration as a sensitive operation"
	case "network":
		return model.ResponseRedirect, "network access should go through the sandboxed validator, not a direct operation"
	case "cross_boundary_access":
		if counters.BoundaryComfort > 10 {
			return model.ResponseAllowWithGuidance, "repeated cross-boundary requests noted; confirm project_root is configured correctly"
		}
		return model.ResponseAllowWithGuidance, "cross-boundary access requires an explicit project_root reconfiguration, not a one-off exception"
	default:
		return model.ResponseAllow, ""
	}
}

func (e *Envelope) bumpResonance(intent model.Intention) {
	switch intent.OperationKind {
	case "cross_boundary_access":
		e.state.Resonance.BoundaryComfort++
	case "network":
		e.state.Resonance.CuriosityRedirection++
	default:
		e.state.Resonance.ProjectFocus++
	}
}
