// Package classifier runs the resumable AI-label pass over a result table.
//
// Each unlabeled record of the prober's platform is visited once. A
// successful probe labels every row sharing the URL and the whole table is
// saved before the next visit, so an interrupted pass resumes where it
// stopped. A failed probe adds the URL to the invalid-url ledger, which is
// persisted immediately and consulted before every visit.
package classifier

import (
	"context"
	"fmt"

	"clipharvest/pkg/errors"
	"clipharvest/pkg/logger"
	"clipharvest/pkg/models"
	"clipharvest/pkg/ratelimit"
)

// Markers are the label indicators found on a detail page.
type Markers struct {
	// Disclosure is the player-level "Altered or synthetic content" notice.
	Disclosure bool
	// Provenance is the "How this was made" section.
	Provenance bool
}

// AILabel is true when either marker is present.
func (m Markers) AILabel() bool {
	return m.Disclosure || m.Provenance
}

// SensitiveTopic is true only for the player-level disclosure.
func (m Markers) SensitiveTopic() bool {
	return m.Disclosure
}

// Prober inspects a detail page.
type Prober interface {
	Platform() models.Platform
	Probe(ctx context.Context, url models.CanonicalURL) (Markers, error)
}

// Ledger is the invalid-url ledger.
type Ledger interface {
	Contains(url models.CanonicalURL) bool
	Add(url models.CanonicalURL) error
}

// SaveFunc durably persists the full table.
type SaveFunc func(records []models.VideoRecord) error

const defaultProgressEvery = 50

// Classifier labels one table.
type Classifier struct {
	prober        Prober
	ledger        Ledger
	save          SaveFunc
	pacer         ratelimit.Pacer
	progressEvery int
	logger        logger.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithPacer sets the pause taken between page visits.
func WithPacer(p ratelimit.Pacer) Option {
	return func(c *Classifier) { c.pacer = p }
}

// WithProgressEvery sets the progress log cadence.
func WithProgressEvery(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.progressEvery = n
		}
	}
}

// New creates a classifier.
func New(prober Prober, ledger Ledger, save SaveFunc, log logger.Logger, opts ...Option) *Classifier {
	if log == nil {
		log = logger.NewNopLogger()
	}
	c := &Classifier{
		prober:        prober,
		ledger:        ledger,
		save:          save,
		pacer:         ratelimit.NopPacer{},
		progressEvery: defaultProgressEvery,
		logger:        log.WithField("platform", string(prober.Platform())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Summary describes one Run.
type Summary struct {
	Pending int
	Checked int
	Labeled int
	Invalid int
	Skipped int
	Results []models.ItemResult
}

// Run labels the pending records of table in place. It returns early with
// the summary so far when ctx is cancelled or a fatal error occurs.
func (c *Classifier) Run(ctx context.Context, table []models.VideoRecord) (*Summary, error) {
	pending := c.pending(table)
	summary := &Summary{Pending: len(pending)}

	c.logger.InfoWithFields("Starting label pass", map[string]interface{}{
		"rows":    len(table),
		"pending": len(pending),
	})

	for _, u := range pending {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		if c.ledger.Contains(u) {
			summary.Skipped++
			summary.Results = append(summary.Results, models.Skipped(u, models.ReasonLedger, nil))
			continue
		}

		if summary.Checked > 0 {
			if err := c.pacer.Pause(ctx, ratelimit.PauseVisit); err != nil {
				return summary, err
			}
		}
		summary.Checked++

		markers, err := c.prober.Probe(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return summary, ctx.Err()
			}
			if errors.IsFatal(err) {
				return summary, fmt.Errorf("failed to probe %s: %w", u, err)
			}
			if err := c.invalidate(u, err, summary); err != nil {
				return summary, err
			}
		} else {
			apply(table, u, markers)
			if err := c.save(table); err != nil {
				return summary, fmt.Errorf("failed to save labeled table: %w", err)
			}
			summary.Labeled++
			summary.Results = append(summary.Results, models.Success(u))
			c.logger.DebugWithFields("Record labeled", map[string]interface{}{
				"url":             string(u),
				"ai_label":        markers.AILabel(),
				"sensitive_topic": markers.SensitiveTopic(),
			})
		}

		if summary.Checked%c.progressEvery == 0 {
			logger.LogProgress(c.logger, "labels", summary.Checked, len(pending))
		}
	}

	c.logger.InfoWithFields("Label pass finished", map[string]interface{}{
		"checked": summary.Checked,
		"labeled": summary.Labeled,
		"invalid": summary.Invalid,
		"skipped": summary.Skipped,
	})
	return summary, nil
}

func (c *Classifier) invalidate(u models.CanonicalURL, cause error, summary *Summary) error {
	c.logger.WithError(cause).WarnWithFields("Label probe failed", map[string]interface{}{"url": string(u)})
	if err := c.ledger.Add(u); err != nil {
		return fmt.Errorf("failed to persist invalid-url ledger: %w", err)
	}
	summary.Invalid++
	summary.Results = append(summary.Results, models.PermanentFailure(u, models.ReasonProbeFailed, cause))
	return nil
}

// pending returns the distinct unlabeled URLs of the prober's platform in table order.
func (c *Classifier) pending(table []models.VideoRecord) []models.CanonicalURL {
	var urls []models.CanonicalURL
	seen := make(map[models.CanonicalURL]struct{})
	for i := range table {
		rec := &table[i]
		if rec.Platform != c.prober.Platform() || rec.Labeled() {
			continue
		}
		if _, ok := seen[rec.URL]; ok {
			continue
		}
		seen[rec.URL] = struct{}{}
		urls = append(urls, rec.URL)
	}
	return urls
}

func apply(table []models.VideoRecord, u models.CanonicalURL, m Markers) {
	for i := range table {
		if table[i].URL == u {
			table[i].AILabel = models.Bool(m.AILabel())
			table[i].SensitiveTopic = models.Bool(m.SensitiveTopic())
		}
	}
}
