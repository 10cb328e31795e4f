// Package pipeline wires the harvest campaign, the final check and the label
// pass out of the domain packages. Every run owns at most one browser session
// and processes items strictly one after another.
package pipeline

import (
	"context"
	"fmt"
	"math/rand/v2"

	"clipharvest/pkg/config"
	"clipharvest/pkg/fetcher"
	"clipharvest/pkg/harvester"
	"clipharvest/pkg/logger"
	"clipharvest/pkg/models"
	"clipharvest/pkg/ratelimit"
	"clipharvest/pkg/registry"
	"clipharvest/pkg/storage"
	"clipharvest/pkg/tiktok"
	"clipharvest/pkg/youtube"
)

// Pipeline holds the stores and collaborators shared by every command.
type Pipeline struct {
	cfg      *config.Config
	store    *storage.Store
	registry *registry.Registry
	pacer    ratelimit.Pacer
	launch   Launcher
	batch    fetcher.BatchSource
	rand     *rand.Rand
	logger   logger.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLauncher replaces the go-rod session launcher.
func WithLauncher(l Launcher) Option {
	return func(p *Pipeline) {
		p.launch = l
	}
}

// WithPacer replaces the pacer built from the pacing config.
func WithPacer(pacer ratelimit.Pacer) Option {
	return func(p *Pipeline) {
		p.pacer = pacer
	}
}

// WithBatchSource replaces the YouTube Data API client.
func WithBatchSource(src fetcher.BatchSource) Option {
	return func(p *Pipeline) {
		p.batch = src
	}
}

// WithRand fixes the randomness used for scroll step sizes.
func WithRand(r *rand.Rand) Option {
	return func(p *Pipeline) {
		p.rand = r
	}
}

// New creates a Pipeline for cfg.
func New(cfg *config.Config, log logger.Logger, opts ...Option) *Pipeline {
	if log == nil {
		log = logger.GetLogger()
	}

	p := &Pipeline{
		cfg:      cfg,
		store:    storage.NewStore(cfg.Data.Root, log),
		registry: registry.Open(cfg.RegistryPath(), log),
		logger:   log,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.pacer == nil {
		p.pacer = ratelimit.FromConfig(cfg.Pacing)
	}
	if p.launch == nil {
		p.launch = SessionLauncher(cfg, log)
	}
	if p.batch == nil {
		p.batch = youtube.NewClient(cfg.YouTube, log)
	}
	return p
}

// Store returns the result store.
func (p *Pipeline) Store() *storage.Store {
	return p.store
}

// Registry returns the hashtag registry.
func (p *Pipeline) Registry() *registry.Registry {
	return p.registry
}

func (p *Pipeline) harvestOptions(pl models.Platform) harvester.Options {
	opts := harvester.Options{
		TargetCount:       p.cfg.Harvest.TargetCount,
		MaxScrollAttempts: p.cfg.Harvest.MaxScrollAttempts,
		StepSpeed:         p.cfg.Pacing.StepSpeed,
		RestEvery:         p.cfg.Pacing.RestEvery,
	}
	switch pl {
	case models.PlatformTikTok:
		opts.StagnationThreshold = p.cfg.Harvest.TikTokStagnation
	case models.PlatformYouTube:
		opts.StagnationThreshold = p.cfg.Harvest.YouTubeStagnation
	}
	return opts
}

// detailFetcher returns the fetcher for platform pl. TikTok details are
// read through page, so the caller must keep it open for the whole fetch.
func (p *Pipeline) detailFetcher(pl models.Platform, page Page) (*fetcher.Fetcher, error) {
	switch pl {
	case models.PlatformTikTok:
		if page == nil {
			return nil, fmt.Errorf("tiktok detail fetch needs an open page")
		}
		src := tiktok.NewSource(page, p.cfg.TikTok.DetailTimeout, p.logger)
		return fetcher.NewItemFetcher(src, p.logger, fetcher.WithPacer(p.pacer)), nil
	case models.PlatformYouTube:
		return fetcher.NewBatchFetcher(p.batch, p.logger), nil
	default:
		return nil, fmt.Errorf("no metadata source for platform %q", pl)
	}
}

// openPage launches a session and opens its single page. The returned
// cleanup closes both.
func (p *Pipeline) openPage(ctx context.Context) (Page, func(), error) {
	b, err := p.launch(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	page, err := b.OpenPage()
	if err != nil {
		b.Close()
		return nil, nil, fmt.Errorf("failed to open page: %w", err)
	}

	cleanup := func() {
		if err := page.Close(); err != nil {
			p.logger.WithError(err).Debug("Failed to close page")
		}
		if err := b.Close(); err != nil {
			p.logger.WithError(err).Warn("Failed to close browser")
		}
	}
	return page, cleanup, nil
}
