package metrics

// Snapshot holds the four metrics spec §9(c) explicitly allows — nothing
// derived beyond a ratio of counters that already exist elsewhere
// (Memory Store pattern counts, approval decisions, regression-battery
// results). There is deliberately no composite or weighted score here.
type Snapshot struct {
	PatternsStored int     `json:"patterns_stored"`
	ReuseRate      float64 `json:"reuse_rate"`
	ApprovalRate   float64 `json:"approval_rate"`
	RegressionRate float64 `json:"regression_rate"`
	RunCount       int     `json:"run_count"`
}

// Aggregate folds a run history into one Snapshot. Rates are computed as
// sum-of-numerators / sum-of-denominators across every run, not an average
// of per-run rates, so a handful of very small runs can't skew the result
// disproportionately. PatternsStored reports the most recent run's
// cumulative gauge, since pattern counts accumulate across runs rather than
// resetting each time.
func Aggregate(runs []RunSummary) Snapshot {
	var snap Snapshot
	snap.RunCount = len(runs)
	if len(runs) == 0 {
		return snap
	}
	snap.PatternsStored = runs[len(runs)-1].PatternsStoredTotal

	var matched, created, accepted, rejected, applied, regressions int
	for _, r := range runs {
		matched += r.PatternsMatchedExisting
		created += r.PatternsCreatedNew
		accepted += r.FixesAccepted
		rejected += r.FixesRejected
		applied += r.FixesApplied
		regressions += r.RegressionFailures
	}

	if total := matched + created; total > 0 {
		snap.ReuseRate = float64(matched) / float64(total)
	}
	if total := accepted + rejected; total > 0 {
		snap.ApprovalRate = float64(accepted) / float64(total)
	}
	if applied > 0 {
		snap.RegressionRate = float64(regressions) / float64(applied)
	}
	return snap
}
