package pipeline

import (
	"context"
	"fmt"
	"time"

	"clipharvest/pkg/errors"
	"clipharvest/pkg/fetcher"
	"clipharvest/pkg/harvester"
	"clipharvest/pkg/models"
	"clipharvest/pkg/platform"
	"clipharvest/pkg/ratelimit"
	"clipharvest/pkg/registry"
)

const (
	consentSelector = "button"
	consentText     = "Reject all"
	consentTimeout  = 10 * time.Second
)

// HarvestRequest names one (platform, hashtag, country) partition.
type HarvestRequest struct {
	Platform models.Platform
	Hashtag  string
	Country  string
}

// HarvestSummary is the outcome of one campaign.
type HarvestSummary struct {
	Request   HarvestRequest
	Harvest   *harvester.Result
	Report    *fetcher.Report
	TablePath string
}

// Harvest runs a campaign: register the hashtag, scroll the tag page,
// snapshot the harvested URLs, fetch details and write the partition table.
func (p *Pipeline) Harvest(ctx context.Context, req HarvestRequest) (*HarvestSummary, error) {
	adapter, err := platform.ForPlatform(req.Platform)
	if err != nil {
		return nil, err
	}
	if req.Country == "" {
		return nil, errors.New(errors.ErrorTypeConfig, "country is required")
	}

	hashtags, err := p.registry.Ensure(req.Hashtag)
	if err != nil {
		return nil, err
	}
	hashtag := registry.Normalize(req.Hashtag)

	log := p.logger.WithFields(map[string]interface{}{
		"platform": req.Platform.String(),
		"hashtag":  hashtag,
		"country":  req.Country,
	})
	log.Info("Starting harvest campaign")

	page, cleanup, err := p.openPage(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	searchURL := adapter.BuildSearchURL(hashtag)
	if err := page.Navigate(ctx, searchURL); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, "failed to open search page", err)
	}
	if err := page.ApplyZoom(ctx); err != nil {
		log.WithError(err).Warn("Failed to zoom search page")
	}
	if err := p.prepareListing(ctx, page, req.Platform); err != nil {
		return nil, err
	}

	h, err := harvester.New(adapter, p.pacer, p.harvestOptions(req.Platform), p.rand, log)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeConfig, "invalid harvest options", err)
	}
	result, err := h.Harvest(ctx, page)
	if err != nil {
		return nil, fmt.Errorf("harvest interrupted after %d urls: %w", len(result.URLs), err)
	}

	if err := p.store.SaveSnapshot(req.Platform, hashtag, req.Country, result.URLs); err != nil {
		return nil, fmt.Errorf("failed to save harvest snapshot: %w", err)
	}

	f, err := p.detailFetcher(req.Platform, page)
	if err != nil {
		return nil, err
	}
	report, err := f.Fetch(ctx, result.URLs, hashtags)
	if err != nil {
		return nil, fmt.Errorf("detail fetch aborted: %w", err)
	}
	report.Attach(req.Platform, req.Country)

	tablePath := p.store.TablePath(req.Platform, hashtag, req.Country)
	if err := p.store.WriteTable(tablePath, report.Records); err != nil {
		return nil, fmt.Errorf("failed to write result table: %w", err)
	}

	log.InfoWithFields("Harvest campaign finished", map[string]interface{}{
		"harvested": len(result.URLs),
		"records":   len(report.Records),
		"stop":      string(result.Stop),
		"table":     tablePath,
	})

	return &HarvestSummary{
		Request:   req,
		Harvest:   result,
		Report:    report,
		TablePath: tablePath,
	}, nil
}

// prepareListing gets the tag page into a scrollable state: TikTok leaves
// the operator a grace window for a challenge, YouTube dismisses the
// cookie consent dialog when one is shown.
func (p *Pipeline) prepareListing(ctx context.Context, page Page, pl models.Platform) error {
	switch pl {
	case models.PlatformTikTok:
		p.logger.InfoWithFields("Waiting for manual captcha", map[string]interface{}{
			"grace": p.cfg.Pacing.CaptchaFor.String(),
		})
		if err := p.pacer.Pause(ctx, ratelimit.PauseCaptcha); err != nil {
			return err
		}
	case models.PlatformYouTube:
		if err := page.ClickText(ctx, consentSelector, consentText, consentTimeout); err != nil {
			p.logger.WithError(err).Debug("No consent dialog dismissed")
		}
	}
	return nil
}
