package logging

import (
	"testing"
)

func BenchmarkAuditLog(b *testing.B) {
	dir := b.TempDir()
	logsDir = dir
	prevDebug := config.DebugMode
	config.DebugMode = true
	if err := InitAudit(); err != nil {
		b.Fatalf("InitAudit failed: %v", err)
	}
	defer CloseAudit()
	defer func() { logsDir = ""; config.DebugMode = prevDebug }()

	a := AuditWithProject("bench-project")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		a.IssueFound("hardcoded_secret", "config.go", 12, "high")
	}
}
