package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"sentryd/internal/errs"
	"sentryd/internal/metrics"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle {manual_fixes|scan_comparison|patterns|cycle_metrics}",
	Short: "Print an improvement-cycle report",
	Args:  cobra.ExactArgs(1),
	RunE:  runCycle,
}

func runCycle(cmd *cobra.Command, args []string) error {
	runs, err := metrics.LoadRuns(cfg.MetricsHistoryPath())
	if err != nil {
		return cliError(err)
	}

	var report interface{}
	switch metrics.CycleReportKind(args[0]) {
	case metrics.CycleManualFixes:
		report = metrics.ManualFixesReport(runs)
	case metrics.CycleScanComparison:
		if len(runs) < 2 {
			return cliError(errs.New(errs.KindInvalidInput, "scan_comparison needs at least two recorded runs, have %d", len(runs)))
		}
		report = metrics.ScanComparisonReport(runs[0], runs[len(runs)-1])
	case metrics.CyclePatterns:
		report = metrics.PatternsReport(metrics.Aggregate(runs))
	case metrics.CycleMetrics:
		report = metrics.CycleMetricsReport(runs)
	default:
		return cliError(errs.New(errs.KindInvalidInput, "unknown cycle report %q, expected one of manual_fixes|scan_comparison|patterns|cycle_metrics", args[0]))
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return cliError(err)
	}
	fmt.Println(string(data))
	return nil
}
