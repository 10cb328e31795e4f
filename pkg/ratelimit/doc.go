// Package ratelimit holds the pacing policies that keep browser sessions and
// API calls from bursting.
//
// Pacer covers artificial human-like delays (scroll sub-steps, settle time
// after a scroll, periodic rests, gaps between detail page visits, the manual
// captcha window). JitterPacer draws each delay uniformly from a configured
// range; NopPacer disables pacing entirely and RecordingPacer lets tests
// assert which delays were requested.
//
// Limiter covers request quotas. SlidingWindow caps requests per window and
// is used to keep the YouTube Data API client under its per-minute budget.
//
//	pacer := ratelimit.FromConfig(cfg.Pacing)
//	if err := pacer.Pause(ctx, ratelimit.PauseSettle); err != nil {
//	    return err // context cancelled
//	}
//
//	limiter := ratelimit.PerMinute(cfg.YouTube.RequestsPerMinute)
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
package ratelimit
