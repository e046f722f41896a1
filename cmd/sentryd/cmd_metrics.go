package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"sentryd/internal/metrics"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print historical run statistics",
	Long: `Dumps the full metrics/history.json run ledger: one record per prior
analyze/fix/auto-update invocation, in the order they were recorded.`,
	Args: cobra.NoArgs,
	RunE: runMetrics,
}

func runMetrics(cmd *cobra.Command, args []string) error {
	runs, err := metrics.LoadRuns(cfg.MetricsHistoryPath())
	if err != nil {
		return cliError(err)
	}
	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return cliError(err)
	}
	fmt.Println(string(data))
	return nil
}
