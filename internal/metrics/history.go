// Package metrics persists and aggregates the directly-measurable run
// statistics sentryd's `stats`, `cycle`, and `metrics` CLI surfaces report:
// patterns stored, reuse rate, approval rate, and regression rate. It
// deliberately does not compute a narrative "intelligence score" — only
// ratios derived from counters other components already maintain.
package metrics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sentryd/internal/errs"
)

// RunSummary is one append-only record in the history ledger, written once
// per completed `analyze`/`fix`/`auto-update` invocation.
type RunSummary struct {
	Timestamp time.Time `json:"timestamp"`
	Command   string    `json:"command"`
	Target    string    `json:"target"`

	FilesScanned int `json:"files_scanned"`
	IssuesFound  int `json:"issues_found"`

	// PatternsStoredTotal is a cumulative gauge read from the Memory Store
	// at the end of the run, not a per-run delta.
	PatternsStoredTotal int `json:"patterns_stored_total"`

	// PatternsMatchedExisting/PatternsCreatedNew feed the reuse-rate ratio:
	// how often an issue matched a pattern already in the store versus
	// needing a brand-new record.
	PatternsMatchedExisting int `json:"patterns_matched_existing"`
	PatternsCreatedNew      int `json:"patterns_created_new"`

	// FixesAccepted/FixesRejected feed the approval-rate ratio.
	FixesAccepted int `json:"fixes_accepted"`
	FixesRejected int `json:"fixes_rejected"`

	// FixesApplied/RegressionFailures feed the regression-rate ratio: of the
	// fixes the Patcher wrote to disk, how many triggered a validation-step
	// or regression-battery failure.
	FixesApplied       int `json:"fixes_applied"`
	RegressionFailures int `json:"regression_failures"`

	DurationMs int64 `json:"duration_ms"`
}

var appendMu sync.Mutex

// AppendRun appends summary to the JSON-array ledger at path, creating the
// file and its parent directory if necessary. The ledger is small enough
// (one record per CLI invocation) that a full read-modify-atomic-rewrite is
// preferable to JSON Lines: `metrics` and `cycle` both need the whole array
// back, and a single well-formed JSON document is easier for external
// tooling to consume than a line-delimited one.
func AppendRun(path string, summary RunSummary) error {
	appendMu.Lock()
	defer appendMu.Unlock()

	runs, err := LoadRuns(path)
	if err != nil {
		return err
	}
	runs = append(runs, summary)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errs.Wrap(errs.KindIOError, err, "creating metrics directory for %s", path)
	}

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return errs.Wrap(errs.KindIOError, err, "marshaling run history")
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.Wrap(errs.KindIOError, err, "writing run history temp file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.Wrap(errs.KindIOError, err, "renaming run history into place")
	}
	return nil
}

// LoadRuns reads the full run history from path. A missing file is not an
// error — it means no runs have completed yet — and returns an empty slice.
func LoadRuns(path string) ([]RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Wrap(errs.KindIOError, err, "reading run history %s", path)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var runs []RunSummary
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, errs.Wrap(errs.KindIOError, err, "parsing run history %s", path)
	}
	return runs, nil
}
