// Package config holds sentryd's runtime configuration: persisted-state
// location, resource limits, sandbox commands, and the safety envelope's
// emergency-stop path. It follows the teacher's pattern of a single struct
// with a DefaultConfig, an optional YAML override file, and environment
// variables layered on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"sentryd/internal/logging"
)

// Config holds all sentryd configuration.
type Config struct {
	// DataDir is the root of persisted state: stores/, runs/, metrics/.
	DataDir string `yaml:"data_dir"`

	// EmbeddingModelPath points at a local embedding model/binding; empty
	// means the Embedding Oracle falls back to keyword-only search.
	EmbeddingModelPath string `yaml:"embedding_model_path"`

	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Analysis    AnalysisConfig    `yaml:"analysis"`
	Sandbox     SandboxConfig     `yaml:"sandbox"`
	Safety      SafetyConfig      `yaml:"safety"`
	Patcher     PatcherConfig     `yaml:"patcher"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ConcurrencyConfig bounds the worker pool used by the Orchestrator (§5).
type ConcurrencyConfig struct {
	// MaxWorkers is the fixed-size CPU-bound worker pool, W. DefaultConfig
	// sets it to min(cpus, 8); a zero or negative value runs one worker.
	MaxWorkers int `yaml:"max_workers"`
	// MaxConcurrentOperations is the safety envelope's concurrent-operation cap.
	MaxConcurrentOperations int `yaml:"max_concurrent_operations"`
}

// AnalysisConfig bounds the Orchestrator's recursive-improvement pass (§4.3).
type AnalysisConfig struct {
	// MaxRecursionDepth bounds re-queued recursive-improvement passes.
	// Default 3, hard cap 10 regardless of configured value.
	MaxRecursionDepth int `yaml:"max_recursion_depth"`
	// BatchSize is the File Walker's default batch size B.
	BatchSize int `yaml:"batch_size"`
}

// SandboxConfig names the build/smoke commands the Defense-in-Depth
// Validator's sandbox gate runs against a staged copy of the project (§4.10).
type SandboxConfig struct {
	BuildCommand        string `yaml:"build_command"`
	SmokeCommand        string `yaml:"smoke_command"`
	MaxOperationSeconds int    `yaml:"max_operation_seconds"`
}

// SafetyConfig configures the Safety Envelope (§4.11).
type SafetyConfig struct {
	// MaxRecursionDepth is the envelope-wide recursion limit, distinct from
	// AnalysisConfig.MaxRecursionDepth which bounds analyzer re-passes.
	MaxRecursionDepth int `yaml:"max_recursion_depth"`
	// MaxOperationSeconds bounds wall time per outward-facing operation.
	MaxOperationSeconds int `yaml:"max_operation_seconds"`
	// MaxConcurrentOperations bounds in-flight sensitive operations.
	MaxConcurrentOperations int `yaml:"max_concurrent_operations"`
	// EmergencyStopFile: if this file exists, every active operation stops
	// at its next cooperative checkpoint.
	EmergencyStopFile string `yaml:"emergency_stop_file"`
}

// PatcherConfig configures the Automated Patcher (§4.8).
type PatcherConfig struct {
	// BackupDirectory holds pre-modification file snapshots. It must resolve
	// outside the project root; the Patcher aborts with UnsafeBackupLocation
	// otherwise.
	BackupDirectory string `yaml:"backup_directory"`
	// RetentionHours bounds how long a completed run's backup is kept before
	// Patcher.Cleanup may remove it. Zero makes Cleanup a no-op; backups are
	// then kept, and no later run removes them.
	RetentionHours int `yaml:"retention_hours"`
	// Interactive routes every non-safe step through the approval gate.
	Interactive bool `yaml:"interactive"`
}

// LoggingConfig mirrors the teacher's category-file-logger configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
}

// DefaultConfig returns sentryd's default configuration. DataDir and
// EmergencyStopFile are resolved relative to the user's per-user config
// directory, matching spec §6 ("default per-user").
func DefaultConfig() *Config {
	dataDir := defaultDataDir()
	return &Config{
		DataDir:            dataDir,
		EmbeddingModelPath: "",

		Concurrency: ConcurrencyConfig{
			MaxWorkers:              defaultWorkerCount(),
			MaxConcurrentOperations: 5,
		},
		Analysis: AnalysisConfig{
			MaxRecursionDepth: 3,
			BatchSize:         50,
		},
		Sandbox: SandboxConfig{
			BuildCommand:        "",
			SmokeCommand:        "",
			MaxOperationSeconds: 300,
		},
		Safety: SafetyConfig{
			MaxRecursionDepth:       10,
			MaxOperationSeconds:     300,
			MaxConcurrentOperations: 5,
			EmergencyStopFile:       filepath.Join(dataDir, "EMERGENCY_STOP"),
		},
		Patcher: PatcherConfig{
			BackupDirectory: filepath.Join(dataDir, "backups"),
			RetentionHours:  0,
			Interactive:     true,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   filepath.Join(dataDir, "logs"),
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "sentryd")
	}
	return ".sentryd"
}

func defaultWorkerCount() int {
	if n := runtime.NumCPU(); n < 8 {
		return n
	}
	return 8
}

// Load reads configuration from a YAML file, falling back to defaults when
// the file does not exist, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	logging.BootDebug("loading config from: %s", path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Boot("config file not found, using defaults: %s", path)
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		logging.BootError("failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		logging.BootError("failed to parse config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	logging.Boot("config loaded: data_dir=%s max_workers=%d", cfg.DataDir, cfg.Concurrency.MaxWorkers)
	return cfg, nil
}

// Save writes configuration to a YAML file, creating its directory if needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies the environment variables listed in spec §6:
// data directory override, embedding-model path, max-workers,
// max-recursion-depth, max-operation-seconds, sandbox build/smoke commands,
// emergency-stop file path.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SENTRYD_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("SENTRYD_EMBEDDING_MODEL_PATH"); v != "" {
		c.EmbeddingModelPath = v
	}
	if v := os.Getenv("SENTRYD_MAX_WORKERS"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			c.Concurrency.MaxWorkers = n
		} else {
			logging.BootError("invalid SENTRYD_MAX_WORKERS=%q: %v", v, err)
		}
	}
	if v := os.Getenv("SENTRYD_MAX_RECURSION_DEPTH"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			c.Analysis.MaxRecursionDepth = n
			c.Safety.MaxRecursionDepth = n
		} else {
			logging.BootError("invalid SENTRYD_MAX_RECURSION_DEPTH=%q: %v", v, err)
		}
	}
	if v := os.Getenv("SENTRYD_MAX_OPERATION_SECONDS"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			c.Safety.MaxOperationSeconds = n
			c.Sandbox.MaxOperationSeconds = n
		} else {
			logging.BootError("invalid SENTRYD_MAX_OPERATION_SECONDS=%q: %v", v, err)
		}
	}
	if v := os.Getenv("SENTRYD_SANDBOX_BUILD_COMMAND"); v != "" {
		c.Sandbox.BuildCommand = v
	}
	if v := os.Getenv("SENTRYD_SANDBOX_SMOKE_COMMAND"); v != "" {
		c.Sandbox.SmokeCommand = v
	}
	if v := os.Getenv("SENTRYD_EMERGENCY_STOP_FILE"); v != "" {
		c.Safety.EmergencyStopFile = v
	}
}

func parsePositiveInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("value must be positive, got %d", n)
	}
	return n, nil
}

// MaxOperationTimeout returns the configured max operation time as a duration.
func (c *Config) MaxOperationTimeout() time.Duration {
	return time.Duration(c.Safety.MaxOperationSeconds) * time.Second
}

// EffectiveRecursionDepth clamps the configured analyzer recursion depth to
// the spec's hard cap of 10 (§4.3), regardless of what was configured.
func (c *Config) EffectiveRecursionDepth() int {
	const hardCap = 10
	d := c.Analysis.MaxRecursionDepth
	if d <= 0 {
		d = 3
	}
	if d > hardCap {
		return hardCap
	}
	return d
}

// IsEmergencyStopped reports whether the emergency-stop file currently exists.
func (c *Config) IsEmergencyStopped() bool {
	if c.Safety.EmergencyStopFile == "" {
		return false
	}
	_, err := os.Stat(c.Safety.EmergencyStopFile)
	return err == nil
}

// MetricsHistoryPath returns the append-only run-history ledger location
// under DataDir, matching the CLI surface's `metrics/history.json` (§6).
func (c *Config) MetricsHistoryPath() string {
	return filepath.Join(c.DataDir, "metrics", "history.json")
}
