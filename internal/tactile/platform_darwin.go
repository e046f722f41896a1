//go:build darwin

package tactile

import (
	"syscall"
)

// createRlimits generates rlimit values from ResourceLimits (macOS version).
// Returns a map of resource type to rlimit struct.
// Note: macOS doesn't have RLIMIT_NPROC, and some limits behave differently.
func createRlimits(limits *ResourceLimits) map[int]syscall.Rlimit {
	return createRlimitsCommon(limits)
}

// GetPlatformExecutor returns the best executor for macOS.
// macOS doesn't support Linux namespaces or cgroups, so the sandbox gate
// falls back to direct execution with resource limits only; network
// isolation is not available and the gate must treat that as best-effort.
func GetPlatformExecutor(config ExecutorConfig) Executor {
	return NewDirectExecutorWithConfig(config)
}

// NamespaceConfig is a stub for macOS (namespaces are Linux-only).
type NamespaceConfig struct {
	NewPID   bool
	NewNet   bool
	NewMount bool
	NewUTS   bool
	NewIPC   bool
	NewUser  bool
	Hostname string
}
