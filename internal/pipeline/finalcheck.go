package pipeline

import (
	"context"
	"fmt"

	"clipharvest/pkg/differential"
	"clipharvest/pkg/fetcher"
	"clipharvest/pkg/models"
	"clipharvest/pkg/platform"
)

// FinalCheckRequest configures a final check.
type FinalCheckRequest struct {
	Platform models.Platform
	// Merged lists the finalized tables. When empty every partition table of
	// the platform is used.
	Merged       []string
	AllowMissing bool
}

// FinalCheckSummary is the outcome of a final check.
type FinalCheckSummary struct {
	Backlog    *differential.Backlog
	Report     *fetcher.Report
	OutputPath string
}

// FinalCheck fetches details for every URL harvested in any registered
// (hashtag, country) partition that is missing from the finalized tables,
// and writes them to the platform's extras table.
func (p *Pipeline) FinalCheck(ctx context.Context, req FinalCheckRequest) (*FinalCheckSummary, error) {
	adapter, err := platform.ForPlatform(req.Platform)
	if err != nil {
		return nil, err
	}
	hashtags, err := p.registry.Load()
	if err != nil {
		return nil, err
	}

	paths := req.Merged
	if len(paths) == 0 {
		if paths, err = p.store.Tables(req.Platform); err != nil {
			return nil, err
		}
	}
	finalized, err := p.store.ReadTables(paths...)
	if err != nil {
		return nil, err
	}

	backlog, err := differential.Compute(differential.Input{
		Adapter:      adapter,
		Registry:     hashtags,
		Countries:    p.cfg.Data.Countries,
		Snapshots:    p.store,
		Finalized:    finalized,
		AllowMissing: req.AllowMissing,
	}, p.logger)
	if err != nil {
		return nil, err
	}

	var page Page
	if req.Platform == models.PlatformTikTok && len(backlog.URLs) > 0 {
		var cleanup func()
		if page, cleanup, err = p.openPage(ctx); err != nil {
			return nil, err
		}
		defer cleanup()
	}

	report := &fetcher.Report{}
	if len(backlog.URLs) > 0 {
		f, err := p.detailFetcher(req.Platform, page)
		if err != nil {
			return nil, err
		}
		if report, err = f.Fetch(ctx, backlog.URLs, hashtags); err != nil {
			return nil, fmt.Errorf("final check fetch aborted: %w", err)
		}
		report.Attach(req.Platform, models.CountryExtra)
	}

	out := p.store.ExtrasPath(req.Platform)
	if err := p.store.WriteTable(out, report.Records); err != nil {
		return nil, fmt.Errorf("failed to write extras table: %w", err)
	}

	p.logger.InfoWithFields("Final check finished", map[string]interface{}{
		"platform": req.Platform.String(),
		"tables":   len(paths),
		"backlog":  len(backlog.URLs),
		"records":  len(report.Records),
		"output":   out,
		"missing":  len(backlog.Missing),
	})

	return &FinalCheckSummary{Backlog: backlog, Report: report, OutputPath: out}, nil
}
