package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DataDir == "" {
		t.Error("expected a non-empty default DataDir")
	}
	if cfg.Analysis.MaxRecursionDepth != 3 {
		t.Errorf("expected MaxRecursionDepth=3, got %d", cfg.Analysis.MaxRecursionDepth)
	}
	if cfg.Analysis.BatchSize != 50 {
		t.Errorf("expected BatchSize=50, got %d", cfg.Analysis.BatchSize)
	}
	if cfg.Safety.MaxConcurrentOperations != 5 {
		t.Errorf("expected MaxConcurrentOperations=5, got %d", cfg.Safety.MaxConcurrentOperations)
	}
	if cfg.Concurrency.MaxWorkers <= 0 || cfg.Concurrency.MaxWorkers > 8 {
		t.Errorf("expected MaxWorkers in (0,8], got %d", cfg.Concurrency.MaxWorkers)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "sentryd.yaml")

	cfg := DefaultConfig()
	cfg.DataDir = filepath.Join(tmpDir, "data")
	cfg.Sandbox.BuildCommand = "go build ./..."

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.DataDir != cfg.DataDir {
		t.Errorf("DataDir = %q, want %q", loaded.DataDir, cfg.DataDir)
	}
	if loaded.Sandbox.BuildCommand != "go build ./..." {
		t.Errorf("BuildCommand = %q, want %q", loaded.Sandbox.BuildCommand, "go build ./...")
	}
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Analysis.MaxRecursionDepth != 3 {
		t.Errorf("expected default MaxRecursionDepth when file is absent, got %d", cfg.Analysis.MaxRecursionDepth)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("SENTRYD_DATA_DIR", "/tmp/sentryd-test-data")
	t.Setenv("SENTRYD_MAX_WORKERS", "4")
	t.Setenv("SENTRYD_MAX_RECURSION_DEPTH", "7")
	t.Setenv("SENTRYD_MAX_OPERATION_SECONDS", "60")
	t.Setenv("SENTRYD_SANDBOX_BUILD_COMMAND", "make build")
	t.Setenv("SENTRYD_SANDBOX_SMOKE_COMMAND", "make smoke")
	t.Setenv("SENTRYD_EMERGENCY_STOP_FILE", "/tmp/STOP")
	t.Setenv("SENTRYD_EMBEDDING_MODEL_PATH", "/models/embed.bin")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	if cfg.DataDir != "/tmp/sentryd-test-data" {
		t.Errorf("DataDir = %q, want override", cfg.DataDir)
	}
	if cfg.Concurrency.MaxWorkers != 4 {
		t.Errorf("MaxWorkers = %d, want 4", cfg.Concurrency.MaxWorkers)
	}
	if cfg.Analysis.MaxRecursionDepth != 7 || cfg.Safety.MaxRecursionDepth != 7 {
		t.Errorf("MaxRecursionDepth overrides not applied: analysis=%d safety=%d",
			cfg.Analysis.MaxRecursionDepth, cfg.Safety.MaxRecursionDepth)
	}
	if cfg.Safety.MaxOperationSeconds != 60 || cfg.Sandbox.MaxOperationSeconds != 60 {
		t.Errorf("MaxOperationSeconds overrides not applied: safety=%d sandbox=%d",
			cfg.Safety.MaxOperationSeconds, cfg.Sandbox.MaxOperationSeconds)
	}
	if cfg.Sandbox.BuildCommand != "make build" || cfg.Sandbox.SmokeCommand != "make smoke" {
		t.Errorf("sandbox command overrides not applied: %+v", cfg.Sandbox)
	}
	if cfg.Safety.EmergencyStopFile != "/tmp/STOP" {
		t.Errorf("EmergencyStopFile = %q, want /tmp/STOP", cfg.Safety.EmergencyStopFile)
	}
	if cfg.EmbeddingModelPath != "/models/embed.bin" {
		t.Errorf("EmbeddingModelPath = %q, want override", cfg.EmbeddingModelPath)
	}
}

func TestConfig_EnvOverrides_InvalidIntIgnored(t *testing.T) {
	t.Setenv("SENTRYD_MAX_WORKERS", "not-a-number")
	cfg := DefaultConfig()
	want := cfg.Concurrency.MaxWorkers
	cfg.applyEnvOverrides()
	if cfg.Concurrency.MaxWorkers != want {
		t.Errorf("invalid SENTRYD_MAX_WORKERS should leave default unchanged, got %d want %d",
			cfg.Concurrency.MaxWorkers, want)
	}
}

func TestEffectiveRecursionDepth_ClampsToHardCap(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analysis.MaxRecursionDepth = 999
	if got := cfg.EffectiveRecursionDepth(); got != 10 {
		t.Errorf("EffectiveRecursionDepth() = %d, want hard cap 10", got)
	}
}

func TestIsEmergencyStopped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Safety.EmergencyStopFile = filepath.Join(t.TempDir(), "STOP")
	if cfg.IsEmergencyStopped() {
		t.Fatal("expected IsEmergencyStopped=false before the file exists")
	}
}
