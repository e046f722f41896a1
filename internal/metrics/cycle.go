package metrics

// CycleReportKind names one of the four `cycle` subcommand reports (§6).
type CycleReportKind string

const (
	CycleManualFixes    CycleReportKind = "manual_fixes"
	CycleScanComparison CycleReportKind = "scan_comparison"
	CyclePatterns       CycleReportKind = "patterns"
	CycleMetrics        CycleReportKind = "cycle_metrics"
)

// ManualFixesSummary totals accepted and rejected fix decisions across
// runs. Accepted counts include auto_safe acceptances, so it does not
// separate human decisions from automatic ones.
type ManualFixesSummary struct {
	TotalAccepted    int     `json:"total_accepted"`
	TotalRejected    int     `json:"total_rejected"`
	ManualDecisions  int     `json:"manual_decisions"`
	ApprovalRate     float64 `json:"approval_rate"`
}

// ManualFixesReport summarizes approval workload across every recorded run.
func ManualFixesReport(runs []RunSummary) ManualFixesSummary {
	var s ManualFixesSummary
	for _, r := range runs {
		s.TotalAccepted += r.FixesAccepted
		s.TotalRejected += r.FixesRejected
	}
	s.ManualDecisions = s.TotalAccepted + s.TotalRejected
	if s.ManualDecisions > 0 {
		s.ApprovalRate = float64(s.TotalAccepted) / float64(s.ManualDecisions)
	}
	return s
}

// ScanComparison reports the delta between two runs against the same or a
// related target, surfacing whether a codebase is trending cleaner.
type ScanComparison struct {
	Baseline     RunSummary `json:"baseline"`
	Current      RunSummary `json:"current"`
	IssueDelta   int        `json:"issue_delta"`
	FixDelta     int        `json:"fix_delta"`
	Improved     bool       `json:"improved"`
}

// ScanComparisonReport diffs two runs, typically the oldest and most recent
// recorded for a target. A negative IssueDelta means issues decreased.
func ScanComparisonReport(baseline, current RunSummary) ScanComparison {
	return ScanComparison{
		Baseline:   baseline,
		Current:    current,
		IssueDelta: current.IssuesFound - baseline.IssuesFound,
		FixDelta:   current.FixesApplied - baseline.FixesApplied,
		Improved:   current.IssuesFound < baseline.IssuesFound,
	}
}

// PatternsSummary reports learning-loop activity: how many pattern records
// exist and how much of the issue-matching workload they're absorbing.
type PatternsSummary struct {
	PatternsStored int     `json:"patterns_stored"`
	ReuseRate      float64 `json:"reuse_rate"`
}

// PatternsReport extracts the pattern-facing half of a Snapshot — split out
// from CycleMetricsReport because the `cycle patterns` subcommand reports
// only these two fields, not the full approval/regression picture.
func PatternsReport(snap Snapshot) PatternsSummary {
	return PatternsSummary{PatternsStored: snap.PatternsStored, ReuseRate: snap.ReuseRate}
}

// CycleMetricsReport is the full Snapshot, reported verbatim under the
// `cycle cycle_metrics` subcommand.
func CycleMetricsReport(runs []RunSummary) Snapshot {
	return Aggregate(runs)
}
