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
	// Harvest command flags
	harvestPlatform string
	harvestHashtag  string
	harvestCountry  string
	harvestTarget   int
	harvestScrolls  int
	harvestHeadless bool
	harvestCookies  string
)

// harvestCmd represents the harvest command
var harvestCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Harvest one hashtag search page for one country",
	Long: `Scroll a hashtag search page, collect canonical video URLs, fetch their
metadata and write the (platform, hashtag, country) result table.

The hashtag is added to the registry first. The harvested URL set is saved as
a snapshot so a later 'finalcheck' can pick up anything that never made it
into a finalized table.

Country is not a search parameter: run the command from a session that exits
in the country you name.`,
	Example: `  # Harvest TikTok #ai from a Dutch session
  clipharvest harvest --platform tiktok --hashtag ai --country NL

  # Smaller YouTube run, headless
  clipharvest harvest --platform youtube --hashtag '#aiart' --country US --target 50 --headless`,
	Args: cobra.NoArgs,
	RunE: runHarvest,
}

func init() {
	rootCmd.AddCommand(harvestCmd)

	harvestCmd.Flags().StringVarP(&harvestPlatform, "platform", "p", "", "platform to harvest (tiktok, youtube)")
	harvestCmd.Flags().StringVarP(&harvestHashtag, "hashtag", "t", "", "hashtag to search, with or without '#'")
	harvestCmd.Flags().StringVar(&harvestCountry, "country", "", "country code recorded on every row")
	harvestCmd.Flags().IntVar(&harvestTarget, "target", 0, "stop after this many unique URLs (default from config)")
	harvestCmd.Flags().IntVar(&harvestScrolls, "max-scrolls", 0, "maximum scroll rounds (default from config)")
	harvestCmd.Flags().BoolVar(&harvestHeadless, "headless", false, "run the browser headless")
	harvestCmd.Flags().StringVar(&harvestCookies, "cookies", "", "cookies file installed in the browser session")
	_ = harvestCmd.MarkFlagRequired("platform")
	_ = harvestCmd.MarkFlagRequired("hashtag")
	_ = harvestCmd.MarkFlagRequired("country")
}

func runHarvest(cmd *cobra.Command, args []string) error {
	p, err := models.ParsePlatform(harvestPlatform)
	if err != nil {
		return err
	}

	cfg, log, err := loadConfig(map[string]interface{}{
		"target":      harvestTarget,
		"max-scrolls": harvestScrolls,
		"headless":    harvestHeadless,
		"cookies":     harvestCookies,
	})
	if err != nil {
		return err
	}

	req := pipeline.HarvestRequest{
		Platform: p,
		Hashtag:  harvestHashtag,
		Country:  strings.ToUpper(strings.TrimSpace(harvestCountry)),
	}
	ui.PrintInfo("Platform", p.String())
	ui.PrintInfo("Hashtag", harvestHashtag)
	ui.PrintInfo("Country", req.Country)

	ctx, cancel := commandContext()
	defer cancel()

	return runLocked(ctx, cfg, log, func(ctx context.Context, pl *pipeline.Pipeline) error {
		summary, err := pl.Harvest(ctx, req)
		if err != nil {
			log.WithError(err).Error("Harvest failed")
			return err
		}

		ui.PrintInfo("Harvested", fmt.Sprintf("%d urls (%s)", len(summary.Harvest.URLs), summary.Harvest.Stop))
		ui.PrintOutcomes("Detail fetch", summary.Report.Results)
		ui.PrintSuccess("Table written: " + summary.TablePath)
		return nil
	})
}
