package ratelimit

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"clipharvest/pkg/config"
)

// Pause names one kind of artificial delay.
type Pause string

const (
	// PauseStep separates scroll sub-steps.
	PauseStep Pause = "step"
	// PauseSettle follows a completed scroll so lazy content can load.
	PauseSettle Pause = "settle"
	// PauseRest is the longer break taken every few rounds.
	PauseRest Pause = "rest"
	// PauseVisit separates detail page visits.
	PauseVisit Pause = "visit"
	// PauseCaptcha leaves the operator time to solve a challenge by hand.
	PauseCaptcha Pause = "captcha"
)

// Range is a uniform delay distribution. Min == Max gives a fixed delay.
type Range struct {
	Min time.Duration
	Max time.Duration
}

// Pacer decides how long every artificial delay lasts.
type Pacer interface {
	Pause(ctx context.Context, kind Pause) error
}

// JitterPacer draws each delay uniformly from the range configured for its kind.
// Kinds without a range do not wait.
type JitterPacer struct {
	ranges map[Pause]Range
	mu     sync.Mutex
	rand   *rand.Rand
	sleep  func(context.Context, time.Duration) error
}

// NewJitterPacer creates a pacer. A nil src seeds from the runtime.
func NewJitterPacer(ranges map[Pause]Range, src *rand.Rand) *JitterPacer {
	if src == nil {
		src = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	copied := make(map[Pause]Range, len(ranges))
	for k, v := range ranges {
		copied[k] = v
	}
	return &JitterPacer{ranges: copied, rand: src, sleep: Sleep}
}

// FromConfig builds the pacer the CLI uses. Disabled pacing yields NopPacer.
func FromConfig(cfg config.PacingConfig) Pacer {
	if !cfg.Enabled {
		return NopPacer{}
	}
	return NewJitterPacer(map[Pause]Range{
		PauseStep:    {cfg.StepMin, cfg.StepMax},
		PauseSettle:  {cfg.SettleMin, cfg.SettleMax},
		PauseRest:    {cfg.RestMin, cfg.RestMax},
		PauseVisit:   {cfg.VisitMin, cfg.VisitMax},
		PauseCaptcha: {cfg.CaptchaFor, cfg.CaptchaFor},
	}, nil)
}

// Draw returns the next delay for kind without sleeping.
func (p *JitterPacer) Draw(kind Pause) time.Duration {
	r, ok := p.ranges[kind]
	if !ok || r.Max <= 0 {
		return 0
	}
	if r.Max <= r.Min {
		return r.Min
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return r.Min + time.Duration(p.rand.Int64N(int64(r.Max-r.Min)+1))
}

// Pause sleeps for a freshly drawn delay.
func (p *JitterPacer) Pause(ctx context.Context, kind Pause) error {
	return p.sleep(ctx, p.Draw(kind))
}

// NopPacer never waits. It still honours cancellation.
type NopPacer struct{}

func (NopPacer) Pause(ctx context.Context, _ Pause) error {
	return ctx.Err()
}

// RecordingPacer counts pauses without waiting. Intended for tests.
type RecordingPacer struct {
	mu     sync.Mutex
	counts map[Pause]int
	order  []Pause
}

// NewRecordingPacer creates an empty recorder.
func NewRecordingPacer() *RecordingPacer {
	return &RecordingPacer{counts: make(map[Pause]int)}
}

func (r *RecordingPacer) Pause(ctx context.Context, kind Pause) error {
	r.mu.Lock()
	r.counts[kind]++
	r.order = append(r.order, kind)
	r.mu.Unlock()
	return ctx.Err()
}

// Count returns how many pauses of kind were requested.
func (r *RecordingPacer) Count(kind Pause) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[kind]
}

// Sequence returns every requested pause in order, skipping PauseStep.
func (r *RecordingPacer) Sequence() []Pause {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Pause
	for _, k := range r.order {
		if k != PauseStep {
			out = append(out, k)
		}
	}
	return out
}
