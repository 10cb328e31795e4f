// Package fetcher resolves canonical URLs into VideoRecords through a
// metadata source, keeping only items tagged with a registered hashtag.
//
// Failures are isolated: a failed item (or batch) is recorded as skipped and
// the rest of the run continues. Only configuration and credential failures
// abort.
package fetcher

import (
	"context"
	"fmt"

	"clipharvest/pkg/errors"
	"clipharvest/pkg/logger"
	"clipharvest/pkg/models"
	"clipharvest/pkg/ratelimit"
	"clipharvest/pkg/registry"
)

// ItemSource fetches metadata one URL at a time.
type ItemSource interface {
	FetchItem(ctx context.Context, url models.CanonicalURL) (*models.Metadata, error)
}

// BatchSource fetches metadata for up to BatchSize URLs per call. URLs the
// source has no data for are simply absent from the result.
type BatchSource interface {
	BatchSize() int
	FetchBatch(ctx context.Context, urls []models.CanonicalURL) ([]models.Metadata, error)
}

const defaultProgressEvery = 25

// Fetcher runs one metadata source. Exactly one of item and batch is set.
type Fetcher struct {
	item          ItemSource
	batch         BatchSource
	pacer         ratelimit.Pacer
	progressEvery int
	logger        logger.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithPacer inserts a visit pause between per-item fetches.
func WithPacer(p ratelimit.Pacer) Option {
	return func(f *Fetcher) { f.pacer = p }
}

// WithProgressEvery sets the progress log cadence.
func WithProgressEvery(n int) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.progressEvery = n
		}
	}
}

// NewItemFetcher creates a fetcher over a per-item source.
func NewItemFetcher(src ItemSource, log logger.Logger, opts ...Option) *Fetcher {
	return newFetcher(&Fetcher{item: src}, log, opts)
}

// NewBatchFetcher creates a fetcher over a batch source.
func NewBatchFetcher(src BatchSource, log logger.Logger, opts ...Option) *Fetcher {
	return newFetcher(&Fetcher{batch: src}, log, opts)
}

func newFetcher(f *Fetcher, log logger.Logger, opts []Option) *Fetcher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	f.logger = log
	f.pacer = ratelimit.NopPacer{}
	f.progressEvery = defaultProgressEvery
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Report is the outcome of one Fetch call. Every input URL has exactly one Result.
type Report struct {
	Records []models.VideoRecord
	Results []models.ItemResult
}

// Count returns the number of results with outcome o.
func (r *Report) Count(o models.Outcome) int {
	return models.CountOutcomes(r.Results)[o]
}

// Attach stamps platform and country onto every record.
func (r *Report) Attach(p models.Platform, country string) {
	for i := range r.Records {
		r.Records[i].Platform = p
		r.Records[i].Country = country
	}
}

// run carries the state of a single Fetch call.
type run struct {
	registry  map[string]struct{}
	accepted  map[models.CanonicalURL]struct{}
	report    *Report
	processed int
	total     int
}

// Fetch resolves urls. registry is the hashtag registry content; matching is
// case-insensitive and any registered hashtag on the item qualifies it.
func (f *Fetcher) Fetch(ctx context.Context, urls []models.CanonicalURL, hashtags []string) (*Report, error) {
	unique, dups := dedupe(urls)
	r := &run{
		registry: registry.Lowered(hashtags),
		accepted: make(map[models.CanonicalURL]struct{}, len(unique)),
		report:   &Report{},
		total:    len(urls),
	}
	for _, u := range dups {
		r.report.Results = append(r.report.Results, models.Skipped(u, models.ReasonDuplicate, nil))
		r.processed++
	}

	f.logger.InfoWithFields("Fetching details", map[string]interface{}{
		"urls":     len(unique),
		"hashtags": len(r.registry),
		"mode":     f.mode(),
	})

	var err error
	switch {
	case f.batch != nil:
		err = f.fetchBatches(ctx, unique, r)
	case f.item != nil:
		err = f.fetchItems(ctx, unique, r)
	default:
		err = errors.New(errors.ErrorTypeConfig, "fetcher has no metadata source")
	}

	f.logger.InfoWithFields("Detail fetch finished", map[string]interface{}{
		"records": len(r.report.Records),
		"skipped": r.report.Count(models.OutcomeSkipped),
	})
	return r.report, err
}

func (f *Fetcher) mode() string {
	if f.batch != nil {
		return "batch"
	}
	return "item"
}

func (f *Fetcher) fetchItems(ctx context.Context, urls []models.CanonicalURL, r *run) error {
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return err
		}
		if i > 0 {
			if err := f.pacer.Pause(ctx, ratelimit.PauseVisit); err != nil {
				return err
			}
		}

		meta, err := f.item.FetchItem(ctx, u)
		switch {
		case err != nil && errors.IsFatal(err):
			return fmt.Errorf("failed to fetch %s: %w", u, err)
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.WithError(err).WarnWithFields("Item fetch failed, skipping", map[string]interface{}{"url": string(u)})
			r.report.Results = append(r.report.Results, models.Skipped(u, failureReason(err), err))
		case meta == nil:
			r.report.Results = append(r.report.Results, models.Skipped(u, models.ReasonNotReturned, nil))
		default:
			if meta.URL == "" {
				meta.URL = u
			}
			f.accept(*meta, r)
		}
		f.tick(r, 1)
	}
	return nil
}

func (f *Fetcher) fetchBatches(ctx context.Context, urls []models.CanonicalURL, r *run) error {
	size := f.batch.BatchSize()
	if size < 1 {
		size = 1
	}

	for start := 0; start < len(urls); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + size
		if end > len(urls) {
			end = len(urls)
		}
		chunk := urls[start:end]

		metas, err := f.batch.FetchBatch(ctx, chunk)
		if err != nil {
			if errors.IsFatal(err) {
				return fmt.Errorf("failed to fetch batch: %w", err)
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.logger.WithError(err).WarnWithFields("Batch fetch failed, skipping chunk", map[string]interface{}{
				"offset": start,
				"size":   len(chunk),
			})
			reason := failureReason(err)
			for _, u := range chunk {
				r.report.Results = append(r.report.Results, models.Skipped(u, reason, err))
			}
			f.tick(r, len(chunk))
			continue
		}

		byURL := make(map[models.CanonicalURL]models.Metadata, len(metas))
		for _, m := range metas {
			byURL[m.URL] = m
		}
		for _, u := range chunk {
			m, ok := byURL[u]
			if !ok {
				r.report.Results = append(r.report.Results, models.Skipped(u, models.ReasonNotReturned, nil))
				continue
			}
			f.accept(m, r)
		}
		f.tick(r, len(chunk))
	}
	return nil
}

// accept applies the hashtag filter and the in-call dedup.
func (f *Fetcher) accept(m models.Metadata, r *run) {
	hashtags := ExtractHashtags(m.Texts...)
	if !intersects(hashtags, r.registry) {
		f.logger.DebugWithFields("No registered hashtag", map[string]interface{}{
			"url":      string(m.URL),
			"hashtags": hashtags,
		})
		r.report.Results = append(r.report.Results, models.Skipped(m.URL, models.ReasonNoHashtag, nil))
		return
	}
	if _, ok := r.accepted[m.URL]; ok {
		r.report.Results = append(r.report.Results, models.Skipped(m.URL, models.ReasonDuplicate, nil))
		return
	}
	r.accepted[m.URL] = struct{}{}

	r.report.Records = append(r.report.Records, models.VideoRecord{
		URL:         m.URL,
		AILabel:     m.AILabel,
		Views:       m.Views,
		Likes:       m.Likes,
		Comments:    m.Comments,
		Shares:      m.Shares,
		Hashtags:    hashtags,
		PublishedAt: m.PublishedAt,
	})
	r.report.Results = append(r.report.Results, models.Success(m.URL))
}

// failureReason separates failures a later run may not hit (quota, network,
// server) from failures of the item itself.
func failureReason(err error) string {
	if errors.IsTransient(errors.TypeOf(err)) {
		return models.ReasonTransient
	}
	return models.ReasonFetchFailed
}

func (f *Fetcher) tick(r *run, n int) {
	before := r.processed / f.progressEvery
	r.processed += n
	if r.processed/f.progressEvery > before {
		logger.LogProgress(f.logger, "details", r.processed, r.total)
	}
}

func dedupe(urls []models.CanonicalURL) (unique, dups []models.CanonicalURL) {
	seen := make(map[models.CanonicalURL]struct{}, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			dups = append(dups, u)
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}
	return unique, dups
}
