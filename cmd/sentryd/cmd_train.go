package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sentryd/internal/falsepositive"
	"sentryd/internal/model"
)

var trainCmd = &cobra.Command{
	Use:   "train <feedback-file>",
	Short: "Ingest a batch of (issue, verdict) records into the Memory Store",
	Long: `Reads a JSON array of feedback records from feedback-file and folds each
one back into the Memory Store: a confirmed false positive is recorded in
the False-Positive Filter's namespace, everything else records a success
outcome against the matching Pattern Record's quality score.`,
	Args: cobra.ExactArgs(1),
	RunE: runTrain,
}

// feedbackRecord is one line of the training batch: a verdict on an issue
// the user has already reviewed outside sentryd.
type feedbackRecord struct {
	Issue        model.Issue `json:"issue"`
	Language     string      `json:"language"`
	LineContent  string      `json:"line_content"`
	FalsePositive bool       `json:"false_positive"`
	Reason       string      `json:"reason"`
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return cliError(err)
	}
	var records []feedbackRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return cliError(fmt.Errorf("parsing feedback file: %w", err))
	}

	stores, err := openStores()
	if err != nil {
		return cliError(err)
	}
	defer stores.CloseAll()

	filter := falsepositive.New()
	confirmed, updated, failed := 0, 0, 0
	for _, rec := range records {
		language := rec.Language
		if language == "" {
			language = "generic"
		}
		h, err := stores.Open(language)
		if err != nil {
			failed++
			continue
		}

		if rec.FalsePositive {
			sig := falsepositive.Signature(rec.Issue.Type, rec.Issue.FilePath, rec.LineContent)
			if err := filter.Confirm(ctx, h, sig, rec.Issue.Type, rec.Reason); err != nil {
				failed++
				continue
			}
			confirmed++
			continue
		}

		patternID := fmt.Sprintf("%s:%s", language, rec.Issue.Type)
		if err := h.UpdateQuality(ctx, patternID, model.OutcomeSuccess); err != nil {
			failed++
			continue
		}
		updated++
	}

	fmt.Printf("trained on %d record(s): %d false positive(s) confirmed, %d pattern(s) updated, %d failed\n",
		len(records), confirmed, updated, failed)
	if failed > 0 {
		os.Exit(1)
	}
	return nil
}
