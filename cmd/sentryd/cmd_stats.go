package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"sentryd/internal/metrics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print memory and intelligence metrics",
	Long: `Reports the Memory Store's learning-loop metrics: patterns stored, reuse
rate, approval rate, and regression rate, aggregated across every recorded
run. There is no composite "intelligence score" — only the directly
measurable counters.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	runs, err := metrics.LoadRuns(cfg.MetricsHistoryPath())
	if err != nil {
		return cliError(err)
	}
	snap := metrics.Aggregate(runs)

	stores, err := openStores()
	if err != nil {
		return cliError(err)
	}
	defer stores.CloseAll()

	out := struct {
		metrics.Snapshot
		Languages []string `json:"languages"`
	}{Snapshot: snap, Languages: stores.Languages()}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return cliError(err)
	}
	fmt.Println(string(data))
	return nil
}
