package youtube

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"clipharvest/pkg/classifier"
	"clipharvest/pkg/errors"
	"clipharvest/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePage struct {
	html       string
	navErr     error
	waitErr    error
	navigated  []string
	waitedFor  string
	waitedTime time.Duration
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.navigated = append(p.navigated, url)
	return p.navErr
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	p.waitedFor = selector
	p.waitedTime = timeout
	return p.waitErr
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	return p.html, nil
}

const (
	disclosureHTML = `<div class="ytReelMetapanelViewModelHost"><span class="ytwPlayerDisclosureViewModelText">Altered or synthetic content</span></div>`
	provenanceHTML = `<div class="ytReelMetapanelViewModelHost"><div class="ytwHowThisWasMadeSectionViewModelHost">How this content was made</div></div>`
)

func TestDetectMarkers(t *testing.T) {
	tests := []struct {
		name string
		html string
		want classifier.Markers
	}{
		{"none", `<div class="ytReelMetapanelViewModelHost">plain</div>`, classifier.Markers{}},
		{"disclosure", disclosureHTML, classifier.Markers{Disclosure: true}},
		{"provenance", provenanceHTML, classifier.Markers{Provenance: true}},
		{"both", disclosureHTML + provenanceHTML, classifier.Markers{Disclosure: true, Provenance: true}},
		{"extra classes", `<span class="x ytwPlayerDisclosureViewModelText y" role="text"> Altered or synthetic content</span>`, classifier.Markers{Disclosure: true}},
		{"text elsewhere", `<p>Altered or synthetic content</p>`, classifier.Markers{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMarkers(tt.html))
		})
	}
}

func TestProbe(t *testing.T) {
	page := &fakePage{html: disclosureHTML}
	prober := NewLabelProber(page, 20*time.Second, nil)

	m, err := prober.Probe(context.Background(), "https://www.youtube.com/shorts/abc")
	require.NoError(t, err)

	assert.True(t, m.AILabel())
	assert.True(t, m.SensitiveTopic())
	assert.Equal(t, []string{"https://www.youtube.com/shorts/abc"}, page.navigated)
	assert.Equal(t, MetapanelSelector, page.waitedFor)
	assert.Equal(t, 20*time.Second, page.waitedTime)
	assert.Equal(t, models.PlatformYouTube, prober.Platform())
}

func TestProbeFailuresAreNotFatal(t *testing.T) {
	prober := NewLabelProber(&fakePage{waitErr: stderrors.New("context deadline exceeded")}, time.Second, nil)
	_, err := prober.Probe(context.Background(), "https://www.youtube.com/shorts/abc")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
	assert.False(t, errors.IsFatal(err))

	prober = NewLabelProber(&fakePage{navErr: stderrors.New("net::ERR_NAME_NOT_RESOLVED")}, time.Second, nil)
	_, err = prober.Probe(context.Background(), "https://www.youtube.com/shorts/abc")
	require.Error(t, err)
	assert.False(t, errors.IsFatal(err))
}
