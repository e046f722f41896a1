package patternpack

import (
	"context"
	"os"

	"gopkg.in/yaml.v3"

	"sentryd/internal/errs"
	"sentryd/internal/logging"
	"sentryd/internal/store"
)

// LoadManifest reads and parses a pattern pack YAML file without installing
// it, so callers (e.g. a `--dry-run` CLI flag) can validate without
// touching the store.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, errs.Wrap(errs.KindIOError, err, "reading pattern pack %s", path)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, errs.Wrap(errs.KindInvalidMetadata, err, "parsing pattern pack %s", path)
	}
	return m, nil
}

// Install loads the manifest at path, validates it in full before touching
// the store (the "load-validate-atomically-swap" idiom: nothing is written
// until the whole pack is known-good), then opens the pack's language store
// and writes every pattern. It returns the count of patterns installed.
func Install(ctx context.Context, path string, registry *store.Registry) (int, error) {
	m, err := LoadManifest(path)
	if err != nil {
		return 0, err
	}
	if err := Validate(m); err != nil {
		return 0, describeError(m.Language, err)
	}

	handle, err := registry.Open(m.Language)
	if err != nil {
		return 0, errs.Wrap(errs.KindStorageError, err, "opening store for pattern pack %s", m.Language)
	}

	installed := 0
	for _, p := range m.Patterns {
		rec := p.ToPatternRecord(m.Language)
		if _, err := handle.Store(ctx, rec, p.Suggestion, nil); err != nil {
			logging.StoreWarn("pattern pack %s: skipping %s: %v", m.Language, p.PatternID, err)
			continue
		}
		installed++
	}

	logging.Store("pattern pack %s: installed %d/%d patterns", m.Language, installed, len(m.Patterns))
	return installed, nil
}
