package pipeline

import (
	"context"
	"fmt"

	"clipharvest/pkg/checkpoint"
	"clipharvest/pkg/classifier"
	"clipharvest/pkg/ledger"
	"clipharvest/pkg/models"
	"clipharvest/pkg/youtube"
)

// LabelRequest configures a label pass.
type LabelRequest struct {
	Input string
	// Output defaults to Input. When a separate Output already exists the
	// pass resumes from it instead of the unlabeled input.
	Output string
}

// Label probes every unlabeled YouTube row of the input table and saves the
// table after each labeled URL.
func (p *Pipeline) Label(ctx context.Context, req LabelRequest) (*classifier.Summary, error) {
	output := req.Output
	if output == "" {
		output = req.Input
	}

	source := req.Input
	if output != req.Input && checkpoint.Exists(output) {
		source = output
		p.logger.InfoWithFields("Resuming from output table", map[string]interface{}{
			"input":  req.Input,
			"output": output,
		})
	}

	table, err := p.store.ReadTable(source)
	if err != nil {
		return nil, err
	}
	invalid, err := ledger.Open(p.cfg.LedgerPath(), p.logger)
	if err != nil {
		return nil, err
	}

	pending, ledgered := countUnlabeled(table, models.PlatformYouTube, invalid)
	if pending == 0 {
		p.logger.InfoWithFields("Nothing to label", map[string]interface{}{
			"input":    source,
			"rows":     len(table),
			"ledgered": ledgered,
		})
		return &classifier.Summary{Pending: ledgered, Skipped: ledgered}, nil
	}

	page, cleanup, err := p.openPage(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	prober := youtube.NewLabelProber(page, p.cfg.Classifier.WaitTimeout, p.logger)
	save := func(records []models.VideoRecord) error {
		return p.store.WriteTable(output, records)
	}
	c := classifier.New(prober, invalid, save, p.logger,
		classifier.WithPacer(p.pacer),
		classifier.WithProgressEvery(p.cfg.Classifier.ProgressEvery),
	)

	summary, err := c.Run(ctx, table)
	if err != nil {
		return summary, fmt.Errorf("label pass stopped: %w", err)
	}
	return summary, nil
}

// countUnlabeled counts the distinct unlabeled URLs of pl, split into those
// still to probe and those already in the invalid-url ledger.
func countUnlabeled(table []models.VideoRecord, pl models.Platform, invalid *ledger.Ledger) (pending, ledgered int) {
	seen := make(map[models.CanonicalURL]struct{})
	for i := range table {
		rec := &table[i]
		if rec.Platform != pl || rec.Labeled() {
			continue
		}
		if _, ok := seen[rec.URL]; ok {
			continue
		}
		seen[rec.URL] = struct{}{}
		if invalid.Contains(rec.URL) {
			ledgered++
		} else {
			pending++
		}
	}
	return pending, ledgered
}
