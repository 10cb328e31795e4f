package main

import (
	"context"
	"fmt"

	"clipharvest/internal/pipeline"
	"clipharvest/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	labelInput   string
	labelOutput  string
	labelCookies string
)

// labelCmd represents the label command
var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Record AI-content labels for a result table",
	Long: `Visit every unlabeled YouTube Shorts row of a table and record whether the
page shows the "Altered or synthetic content" disclosure.

The table is saved after every labeled URL, so an interrupted pass resumes
where it stopped. URLs whose page cannot be inspected are added to the
invalid-url ledger and skipped on later passes. TikTok rows are labeled
during harvest and left untouched.`,
	Example: `  clipharvest label --input data/youtube_merged.csv --cookies cookies.json`,
	Args:    cobra.NoArgs,
	RunE:    runLabel,
}

func init() {
	rootCmd.AddCommand(labelCmd)

	labelCmd.Flags().StringVarP(&labelInput, "input", "i", "", "result table to label")
	labelCmd.Flags().StringVarP(&labelOutput, "output", "o", "", "write the labeled table here instead of in place")
	labelCmd.Flags().StringVar(&labelCookies, "cookies", "", "cookies file installed in the browser session")
	_ = labelCmd.MarkFlagRequired("input")
}

func runLabel(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(map[string]interface{}{
		"cookies": labelCookies,
	})
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	return runLocked(ctx, cfg, log, func(ctx context.Context, pl *pipeline.Pipeline) error {
		summary, err := pl.Label(ctx, pipeline.LabelRequest{Input: labelInput, Output: labelOutput})
		if summary != nil {
			ui.PrintInfo("Checked", fmt.Sprintf("%d of %d pending", summary.Checked, summary.Pending))
			ui.PrintOutcomes("Label pass", summary.Results)
		}
		if err != nil {
			log.WithError(err).Error("Label pass failed")
			return err
		}
		ui.PrintSuccess("Label pass complete")
		return nil
	})
}
