package main

import (
	"fmt"
	"os"
	"path/filepath"

	"sentryd/internal/analyzer"
	"sentryd/internal/embedding"
	"sentryd/internal/errs"
	"sentryd/internal/safety"
	"sentryd/internal/store"
	"sentryd/internal/walker"
)

// openStores opens the Memory Store registry rooted at cfg's data
// directory. An empty EmbeddingModelPath leaves the registry without a
// vector-embedding engine, which internal/store's search path treats as a
// signal to fall back to keyword-only matching (spec §6's "embedding-model
// path" env var is optional for exactly this reason).
func openStores() (*store.Registry, error) {
	var engine embedding.EmbeddingEngine
	if cfg.EmbeddingModelPath != "" {
		eng, err := embedding.NewEngine(embedding.Config{
			Provider:       "ollama",
			OllamaEndpoint: cfg.EmbeddingModelPath,
			OllamaModel:    "embeddinggemma",
		})
		if err != nil {
			return nil, fmt.Errorf("initializing embedding engine: %w", err)
		}
		engine = eng
	}
	return store.NewRegistry(filepath.Join(cfg.DataDir, "stores"), engine)
}

// newAnalyzerRegistry registers every built-in language-specific
// LanguageAnalyzer (the generic fallback is installed separately, by
// newOrchestrator), mirroring how codenerd/cmd/nerd wires its shard
// registry once at startup rather than per-command.
func newAnalyzerRegistry() *analyzer.Registry {
	reg := analyzer.NewRegistry()
	reg.Register(analyzer.NewGoAnalyzer())
	reg.Register(analyzer.NewPythonAnalyzer())
	reg.Register(analyzer.NewJavaScriptAnalyzer())
	return reg
}

// newOrchestrator wires the analyzer registry, Memory Store, config, and a
// Walker rooted at projectRoot into a single Orchestrator, with the generic
// analyzer installed as the fallback for unclaimed extensions.
func newOrchestrator(stores *store.Registry, projectRoot string) *analyzer.Orchestrator {
	reg := newAnalyzerRegistry()
	w := walker.New(projectRoot)
	orch := analyzer.NewOrchestrator(reg, stores, cfg, w)
	orch.SetGenericAnalyzer(analyzer.NewGenericAnalyzer())
	return orch
}

// resolveProjectRootArg turns a CLI target argument into an absolute
// project root and the Safety Envelope that will govern every subsequent
// operation against it. Unlike ResolvePath (which checks a path against an
// already-established root), this establishes the root itself, so it
// enforces that the target exists and is a directory rather than a
// boundary.
func resolveProjectRootArg(path string) (string, *safety.Envelope, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", nil, errs.Wrap(errs.KindIOError, err, "resolving %s", path)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", nil, errs.Wrap(errs.KindIOError, err, "resolving %s", path)
	}
	if !info.IsDir() {
		return "", nil, errs.New(errs.KindInvalidInput, "%s is not a directory", abs)
	}
	return abs, safety.New(abs, cfg), nil
}
