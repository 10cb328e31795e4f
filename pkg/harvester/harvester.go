// Package harvester drives an infinite-scroll listing page until enough
// canonical video URLs are collected or the feed is judged exhausted.
package harvester

import (
	"context"
	"fmt"
	"math/rand/v2"

	"clipharvest/pkg/logger"
	"clipharvest/pkg/models"
	"clipharvest/pkg/platform"
	"clipharvest/pkg/ratelimit"
)

// Page is the slice of a browser page the harvester needs.
type Page interface {
	// ScrollMetrics returns the current vertical offset and the scrollable height.
	ScrollMetrics(ctx context.Context) (top, height int, err error)
	ScrollTo(ctx context.Context, y int) error
	// Hrefs returns the href attribute of every element matching selector.
	Hrefs(ctx context.Context, selector string) ([]string, error)
}

// StopReason says why the scroll loop ended.
type StopReason string

const (
	StopTargetReached StopReason = "target_reached"
	StopMaxAttempts   StopReason = "max_attempts"
	StopStagnated     StopReason = "stagnated"
)

// Options bound a harvest.
type Options struct {
	TargetCount       int
	MaxScrollAttempts int
	// StagnationThreshold of 0 uses the adapter default.
	StagnationThreshold int
	// StepSpeed is the mean sub-step size in pixels. Step sizes are drawn from [1, 2*StepSpeed].
	StepSpeed int
	// RestEvery inserts a rest pause after every N rounds. 0 disables rests.
	RestEvery int
}

// DefaultOptions mirror the configuration defaults.
func DefaultOptions() Options {
	return Options{
		TargetCount:       250,
		MaxScrollAttempts: 100,
		StepSpeed:         10,
		RestEvery:         5,
	}
}

// Result is the outcome of one harvest.
type Result struct {
	// URLs in insertion order, no duplicates.
	URLs   []models.CanonicalURL
	Rounds int
	Stop   StopReason
}

// Harvester collects canonical URLs from a listing page through an Adapter.
type Harvester struct {
	adapter platform.Adapter
	pacer   ratelimit.Pacer
	rand    *rand.Rand
	opts    Options
	logger  logger.Logger
}

// New creates a Harvester. A nil pacer disables pacing and a nil src seeds from the runtime.
func New(adapter platform.Adapter, pacer ratelimit.Pacer, opts Options, src *rand.Rand, log logger.Logger) (*Harvester, error) {
	if adapter == nil {
		return nil, fmt.Errorf("adapter is required")
	}
	if opts.TargetCount < 1 {
		return nil, fmt.Errorf("target count must be at least 1, got %d", opts.TargetCount)
	}
	if opts.MaxScrollAttempts < 1 {
		return nil, fmt.Errorf("max scroll attempts must be at least 1, got %d", opts.MaxScrollAttempts)
	}
	if opts.StagnationThreshold <= 0 {
		opts.StagnationThreshold = adapter.StagnationThreshold()
	}
	if opts.StepSpeed < 1 {
		opts.StepSpeed = 1
	}
	if pacer == nil {
		pacer = ratelimit.NopPacer{}
	}
	if src == nil {
		src = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Harvester{
		adapter: adapter,
		pacer:   pacer,
		rand:    src,
		opts:    opts,
		logger:  log.WithField("platform", adapter.Platform().String()),
	}, nil
}

// Harvest runs scroll rounds against page. It returns the partial result
// together with the context error if ctx is cancelled.
func (h *Harvester) Harvest(ctx context.Context, page Page) (*Result, error) {
	c := newCollector()
	res := &Result{}
	stagnation := 0

	h.logger.InfoWithFields("Starting harvest", map[string]interface{}{
		"target":               h.opts.TargetCount,
		"max_scroll_attempts":  h.opts.MaxScrollAttempts,
		"stagnation_threshold": h.opts.StagnationThreshold,
	})

	for {
		before := c.len()

		if err := h.scrollStep(ctx, page); err != nil {
			if ctx.Err() != nil {
				return c.result(res), ctx.Err()
			}
			h.logger.WithError(err).Warn("Scroll step failed")
		}
		res.Rounds++

		if err := h.extract(ctx, page, c); err != nil {
			if ctx.Err() != nil {
				return c.result(res), ctx.Err()
			}
			h.logger.WithError(err).Warn("Candidate extraction failed")
		}

		if c.len() == before {
			stagnation++
		} else {
			stagnation = 0
		}

		h.logger.DebugWithFields("Scroll round finished", map[string]interface{}{
			"round":      res.Rounds,
			"collected":  c.len(),
			"new":        c.len() - before,
			"stagnation": stagnation,
		})

		if stop, done := h.shouldStop(c.len(), res.Rounds, stagnation); done {
			res.Stop = stop
			break
		}

		if h.opts.RestEvery > 0 && res.Rounds%h.opts.RestEvery == 0 {
			if err := h.pacer.Pause(ctx, ratelimit.PauseRest); err != nil {
				return c.result(res), err
			}
		}
	}

	// Content may finish loading after the last scroll, so one more pass
	// always runs, even after an early target-count exit.
	if err := h.extract(ctx, page, c); err != nil {
		if ctx.Err() != nil {
			return c.result(res), ctx.Err()
		}
		h.logger.WithError(err).Warn("Final extraction failed")
	}

	h.logger.InfoWithFields("Harvest finished", map[string]interface{}{
		"collected": c.len(),
		"rounds":    res.Rounds,
		"stop":      string(res.Stop),
	})
	return c.result(res), nil
}

func (h *Harvester) shouldStop(collected, rounds, stagnation int) (StopReason, bool) {
	switch {
	case collected >= h.opts.TargetCount:
		return StopTargetReached, true
	case rounds >= h.opts.MaxScrollAttempts:
		return StopMaxAttempts, true
	case stagnation >= h.opts.StagnationThreshold:
		return StopStagnated, true
	default:
		return "", false
	}
}

// scrollStep advances by a random fraction of the page height in jittered
// sub-steps, then waits for lazy content.
func (h *Harvester) scrollStep(ctx context.Context, page Page) error {
	top, height, err := page.ScrollMetrics(ctx)
	if err != nil {
		return fmt.Errorf("failed to read scroll metrics: %w", err)
	}

	lo, hi := h.adapter.ScrollFraction()
	distance := int(float64(height) * (lo + h.rand.Float64()*(hi-lo)))
	target := top + distance

	for pos := top; pos < target; {
		pos += h.stepSize()
		if pos > target {
			pos = target
		}
		if err := page.ScrollTo(ctx, pos); err != nil {
			return fmt.Errorf("failed to scroll to %d: %w", pos, err)
		}
		if err := h.pacer.Pause(ctx, ratelimit.PauseStep); err != nil {
			return err
		}
	}

	return h.pacer.Pause(ctx, ratelimit.PauseSettle)
}

// stepSize draws from speed ± speed, floored at one pixel so the loop always advances.
func (h *Harvester) stepSize() int {
	speed := h.opts.StepSpeed
	step := speed + h.rand.IntN(2*speed+1) - speed
	if step < 1 {
		step = 1
	}
	return step
}

func (h *Harvester) extract(ctx context.Context, page Page, c *collector) error {
	hrefs, err := page.Hrefs(ctx, h.adapter.CandidateSelector())
	if err != nil {
		return err
	}
	for _, href := range hrefs {
		// unparseable links are expected noise
		if u, ok := platform.CanonicalizeHref(h.adapter, href); ok {
			c.add(u)
		}
	}
	return nil
}

type collector struct {
	seen  map[models.CanonicalURL]struct{}
	order []models.CanonicalURL
}

func newCollector() *collector {
	return &collector{seen: make(map[models.CanonicalURL]struct{})}
}

func (c *collector) add(u models.CanonicalURL) {
	if _, ok := c.seen[u]; ok {
		return
	}
	c.seen[u] = struct{}{}
	c.order = append(c.order, u)
}

func (c *collector) len() int {
	return len(c.order)
}

func (c *collector) result(res *Result) *Result {
	res.URLs = append([]models.CanonicalURL(nil), c.order...)
	return res
}
