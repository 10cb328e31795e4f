package youtube

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"clipharvest/pkg/classifier"
	"clipharvest/pkg/errors"
	"clipharvest/pkg/logger"
	"clipharvest/pkg/models"
)

// Selectors and markers of the Shorts detail page.
const (
	MetapanelSelector = ".ytReelMetapanelViewModelHost"
	ProvenanceClass   = "ytwHowThisWasMadeSectionViewModelHost"
	DisclosureText    = "Altered or synthetic content"
)

// disclosurePattern matches the disclosure text inside the player disclosure element.
var disclosurePattern = regexp.MustCompile(
	`class="[^"]*\bytwPlayerDisclosureViewModelText\b[^"]*"[^>]*>\s*` + regexp.QuoteMeta(DisclosureText),
)

// Page is the part of a browser page the prober drives.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	HTML(ctx context.Context) (string, error)
}

// LabelProber implements classifier.Prober for Shorts pages.
type LabelProber struct {
	page    Page
	timeout time.Duration
	logger  logger.Logger
}

// NewLabelProber creates a prober that waits up to timeout for the metadata
// panel of each visited page.
func NewLabelProber(page Page, timeout time.Duration, log logger.Logger) *LabelProber {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &LabelProber{page: page, timeout: timeout, logger: log}
}

func (p *LabelProber) Platform() models.Platform { return models.PlatformYouTube }

// Probe opens url and inspects the rendered page.
func (p *LabelProber) Probe(ctx context.Context, url models.CanonicalURL) (classifier.Markers, error) {
	if err := p.page.Navigate(ctx, string(url)); err != nil {
		return classifier.Markers{}, errors.Wrap(errors.ErrorTypeNetwork, "failed to open shorts page", err)
	}
	if err := p.page.WaitVisible(ctx, MetapanelSelector, p.timeout); err != nil {
		return classifier.Markers{}, errors.Wrap(errors.ErrorTypeTimeout, fmt.Sprintf("metadata panel not visible after %s", p.timeout), err)
	}

	html, err := p.page.HTML(ctx)
	if err != nil {
		return classifier.Markers{}, errors.Wrap(errors.ErrorTypeParsing, "failed to read page html", err)
	}
	return DetectMarkers(html), nil
}

// DetectMarkers scans a rendered Shorts page.
func DetectMarkers(html string) classifier.Markers {
	return classifier.Markers{
		Disclosure: disclosurePattern.MatchString(html),
		Provenance: strings.Contains(html, ProvenanceClass),
	}
}
