package main

import (
	"context"
	"fmt"
	"strings"

	"clipharvest/internal/pipeline"
	"clipharvest/pkg/models"
	"clipharvest/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	finalPlatform     string
	finalMerged       []string
	finalAllowMissing bool
)

// finalCheckCmd represents the finalcheck command
var finalCheckCmd = &cobra.Command{
	Use:   "finalcheck",
	Short: "Fetch URLs that were harvested but never finalized",
	Long: `Compare every (hashtag, country) harvest snapshot of the registry against
the finalized result tables and fetch metadata for whatever is missing.

Rows are written to {platform}_extra_urls.csv under the data root with the
country set to "extra". Without --merged every partition table of the
platform counts as finalized.`,
	Example: `  clipharvest finalcheck --platform youtube --merged data/youtube_merged.csv
  clipharvest finalcheck --platform tiktok --allow-missing`,
	Args: cobra.NoArgs,
	RunE: runFinalCheck,
}

func init() {
	rootCmd.AddCommand(finalCheckCmd)

	finalCheckCmd.Flags().StringVarP(&finalPlatform, "platform", "p", "", "platform to check (tiktok, youtube)")
	finalCheckCmd.Flags().StringSliceVar(&finalMerged, "merged", nil, "finalized result tables (repeatable)")
	finalCheckCmd.Flags().BoolVar(&finalAllowMissing, "allow-missing", false, "skip partitions that were never harvested")
	_ = finalCheckCmd.MarkFlagRequired("platform")
}

func runFinalCheck(cmd *cobra.Command, args []string) error {
	p, err := models.ParsePlatform(finalPlatform)
	if err != nil {
		return err
	}
	cfg, log, err := loadConfig(nil)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext()
	defer cancel()

	return runLocked(ctx, cfg, log, func(ctx context.Context, pl *pipeline.Pipeline) error {
		summary, err := pl.FinalCheck(ctx, pipeline.FinalCheckRequest{
			Platform:     p,
			Merged:       finalMerged,
			AllowMissing: finalAllowMissing,
		})
		if err != nil {
			log.WithError(err).Error("Final check failed")
			return err
		}

		if len(summary.Backlog.Missing) > 0 {
			ui.PrintWarning("Partitions never harvested", strings.Join(summary.Backlog.Missing, ", "))
		}
		ui.PrintInfo("Backlog", fmt.Sprintf("%d of %d harvested urls", len(summary.Backlog.URLs), summary.Backlog.Harvested))
		ui.PrintOutcomes("Detail fetch", summary.Report.Results)
		ui.PrintSuccess("Extras written: " + summary.OutputPath)
		return nil
	})
}
