// Package logging's audit log is a durable, append-only JSON Lines record
// of every decision sentryd's components make about code on disk: issues
// found, fixes generated/approved/applied/rolled back, and safety-envelope
// allow/deny/redirect verdicts. It is separate from the human-facing
// category loggers — the audit log is meant to be grepped, diffed, or fed
// into a report, not read live.
package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType names one kind of durable audit record.
type AuditEventType string

const (
	AuditScanStart    AuditEventType = "scan_start"
	AuditScanComplete AuditEventType = "scan_complete"

	AuditIssueFound           AuditEventType = "issue_found"
	AuditFalsePositiveFilter  AuditEventType = "false_positive_filtered"
	AuditPatternLearned       AuditEventType = "pattern_learned"
	AuditConnectionSuggested  AuditEventType = "connection_suggested"
	AuditIntegrationMapped    AuditEventType = "integration_mapped"

	AuditFixGenerated AuditEventType = "fix_generated"
	AuditFixAccepted  AuditEventType = "fix_accepted"
	AuditFixRejected  AuditEventType = "fix_rejected"
	AuditFixSkipped   AuditEventType = "fix_skipped"
	AuditFixApplied   AuditEventType = "fix_applied"
	AuditFixRolledBack AuditEventType = "fix_rolled_back"

	AuditValidationFailed AuditEventType = "validation_failed"

	AuditSafetyAllow    AuditEventType = "safety_allow"
	AuditSafetyBlock    AuditEventType = "safety_block"
	AuditSafetyRedirect AuditEventType = "safety_redirect"
	AuditEmergencyStop  AuditEventType = "emergency_stop"
)

// AuditEvent is one durable audit record. Fields not relevant to a given
// EventType are left zero-valued; Fields carries event-specific detail
// that doesn't warrant its own column.
type AuditEvent struct {
	Timestamp int64                  `json:"ts"`
	EventType AuditEventType         `json:"event"`
	ProjectID string                 `json:"project_id,omitempty"`
	Target    string                 `json:"target,omitempty"`
	Success   bool                   `json:"success"`
	Reason    string                 `json:"reason,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

var (
	auditFile   *os.File
	auditMu     sync.Mutex
	auditLogger *AuditLogger
)

// AuditLogger scopes every event it writes to a project ID, so a single
// audit file covering multiple projects can still be filtered per-run.
type AuditLogger struct {
	projectID string
}

// InitAudit opens (creating if necessary) today's audit log file under the
// logging directory. A no-op when debug logging is disabled, matching the
// rest of this package's gating convention.
func InitAudit() error {
	if !IsDebugMode() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.jsonl", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	auditFile = file
	return nil
}

// CloseAudit closes the audit log file, if open.
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// AuditWithProject scopes an AuditLogger to projectID.
func AuditWithProject(projectID string) *AuditLogger {
	return &AuditLogger{projectID: projectID}
}

// Log appends event to the audit file as one JSON line. Silently a no-op
// when the audit file isn't open (debug mode off, or InitAudit not called)
// — the audit log is a diagnostic aid, never load-bearing for correctness.
func (a *AuditLogger) Log(event AuditEvent) {
	auditMu.Lock()
	defer auditMu.Unlock()
	if auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.ProjectID == "" {
		event.ProjectID = a.projectID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	auditFile.Write(append(data, '\n'))
}

// ScanComplete logs the end of an analysis run over target.
func (a *AuditLogger) ScanComplete(target string, issueCount int, durationMs int64) {
	a.Log(AuditEvent{
		EventType: AuditScanComplete,
		Target:    target,
		Success:   true,
		Fields:    map[string]interface{}{"issue_count": issueCount, "duration_ms": durationMs},
	})
}

// IssueFound logs a single analyzer finding surviving the false-positive
// filter.
func (a *AuditLogger) IssueFound(issueType, filePath string, line int, severity string) {
	a.Log(AuditEvent{
		EventType: AuditIssueFound,
		Target:    filePath,
		Success:   true,
		Fields:    map[string]interface{}{"issue_type": issueType, "line": line, "severity": severity},
	})
}

// FixApplied logs a Fix Proposal or Integration Map modification that the
// Automated Patcher wrote to disk.
func (a *AuditLogger) FixApplied(targetFile, category string, autoSafe bool) {
	a.Log(AuditEvent{
		EventType: AuditFixApplied,
		Target:    targetFile,
		Success:   true,
		Fields:    map[string]interface{}{"category": category, "auto_safe": autoSafe},
	})
}

// FixRolledBack logs a patcher rollback, partial or complete.
func (a *AuditLogger) FixRolledBack(targetFile string, complete bool, reason string) {
	a.Log(AuditEvent{
		EventType: AuditFixRolledBack,
		Target:    targetFile,
		Success:   complete,
		Reason:    reason,
	})
}

// SafetyDecision logs a Safety Envelope verdict (allow, block, or redirect)
// for a named operation kind.
func (a *AuditLogger) SafetyDecision(eventType AuditEventType, operationKind, reason string) {
	a.Log(AuditEvent{
		EventType: eventType,
		Target:    operationKind,
		Success:   eventType == AuditSafetyAllow,
		Reason:    reason,
	})
}

// EmergencyStop logs an emergency-stop trigger.
func (a *AuditLogger) EmergencyStop(reason string) {
	a.Log(AuditEvent{
		EventType: AuditEmergencyStop,
		Success:   false,
		Reason:    reason,
	})
}
