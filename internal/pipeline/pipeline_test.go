package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipharvest/pkg/config"
	cherrors "clipharvest/pkg/errors"
	"clipharvest/pkg/ledger"
	"clipharvest/pkg/logger"
	"clipharvest/pkg/models"
	"clipharvest/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePage struct {
	hrefs   []string
	details map[string]string
	html    map[string]string

	current   string
	navigated []string
	clicked   []string
	zoomed    bool
	closed    bool
}

func (p *fakePage) ScrollMetrics(ctx context.Context) (int, int, error) { return 0, 400, nil }
func (p *fakePage) ScrollTo(ctx context.Context, y int) error           { return nil }

func (p *fakePage) Hrefs(ctx context.Context, selector string) ([]string, error) {
	return p.hrefs, nil
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.current = url
	p.navigated = append(p.navigated, url)
	return nil
}

func (p *fakePage) EvalString(ctx context.Context, js string, args ...interface{}) (string, error) {
	return p.details[p.current], nil
}

func (p *fakePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if _, ok := p.html[p.current]; !ok {
		return errors.New("metapanel never rendered")
	}
	return nil
}

func (p *fakePage) HTML(ctx context.Context) (string, error) {
	return p.html[p.current], nil
}

func (p *fakePage) ApplyZoom(ctx context.Context) error {
	p.zoomed = true
	return nil
}

func (p *fakePage) ClickText(ctx context.Context, selector, textRegex string, timeout time.Duration) error {
	p.clicked = append(p.clicked, textRegex)
	return errors.New("no consent dialog")
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

type fakeBrowser struct {
	page     *fakePage
	launches int
	closed   bool
}

func (b *fakeBrowser) launcher() Launcher {
	return func(ctx context.Context) (Browser, error) {
		b.launches++
		return b, nil
	}
}

func (b *fakeBrowser) OpenPage() (Page, error) { return b.page, nil }

func (b *fakeBrowser) Close() error {
	b.closed = true
	return nil
}

type fakeBatch struct {
	items map[models.CanonicalURL]models.Metadata
	calls int
	// fail maps a 1-based call number to the error it returns.
	fail map[int]error
}

func (f *fakeBatch) BatchSize() int { return 50 }

func (f *fakeBatch) FetchBatch(ctx context.Context, urls []models.CanonicalURL) ([]models.Metadata, error) {
	f.calls++
	if err, ok := f.fail[f.calls]; ok {
		return nil, err
	}
	var out []models.Metadata
	for _, u := range urls {
		if m, ok := f.items[u]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func detailJSON(id, desc string) string {
	return fmt.Sprintf(`{"__DEFAULT_SCOPE__":{"webapp.video-detail":{"statusCode":0,"itemInfo":{"itemStruct":{`+
		`"id":%q,"desc":%q,"createTime":"1714566600","aigcLabelType":0,`+
		`"stats":{"playCount":10,"diggCount":2,"commentCount":1,"shareCount":3}}}}}}`, id, desc)
}

func testConfig(t *testing.T, hashtags ...string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Data.Root = t.TempDir()
	if len(hashtags) > 0 {
		data := `[`
		for i, h := range hashtags {
			if i > 0 {
				data += `,`
			}
			data += fmt.Sprintf("%q", h)
		}
		data += `]`
		require.NoError(t, os.WriteFile(cfg.RegistryPath(), []byte(data), 0644))
	}
	return cfg
}

func newTestPipeline(cfg *config.Config, b *fakeBrowser, pacer ratelimit.Pacer, opts ...Option) *Pipeline {
	opts = append([]Option{
		WithLauncher(b.launcher()),
		WithPacer(pacer),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	}, opts...)
	return New(cfg, logger.NewTestLogger(), opts...)
}

func TestHarvestTikTokEndToEnd(t *testing.T) {
	cfg := testConfig(t, "#ai")
	page := &fakePage{
		hrefs: []string{"/u1/video/100", "/u1/VIDEO/100", "/u2/video/200"},
		details: map[string]string{
			"https://www.tiktok.com/@u1/video/100": detailJSON("100", "made this with #AI"),
			"https://www.tiktok.com/@u2/video/200": detailJSON("200", "just #other stuff"),
		},
	}
	b := &fakeBrowser{page: page}
	pacer := ratelimit.NewRecordingPacer()
	p := newTestPipeline(cfg, b, pacer)

	summary, err := p.Harvest(context.Background(), HarvestRequest{
		Platform: models.PlatformTikTok,
		Hashtag:  "#ai",
		Country:  "NL",
	})
	require.NoError(t, err)

	assert.Equal(t, []models.CanonicalURL{
		"https://www.tiktok.com/@u1/video/100",
		"https://www.tiktok.com/@u2/video/200",
	}, summary.Harvest.URLs)
	assert.Equal(t, "https://www.tiktok.com/tag/ai", page.navigated[0])
	assert.True(t, page.zoomed)
	assert.Equal(t, 1, pacer.Count(ratelimit.PauseCaptcha))
	assert.Equal(t, 1, summary.Report.Count(models.OutcomeSkipped))

	table, err := p.Store().ReadTable(summary.TablePath)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Equal(t, models.CanonicalURL("https://www.tiktok.com/@u1/video/100"), table[0].URL)
	assert.Equal(t, "NL", table[0].Country)
	assert.Equal(t, models.PlatformTikTok, table[0].Platform)
	assert.Equal(t, []string{"#ai"}, table[0].Hashtags)
	require.NotNil(t, table[0].Shares)
	assert.Equal(t, int64(3), *table[0].Shares)

	snapshot, found, err := p.Store().LoadSnapshot(models.PlatformTikTok, "#ai", "NL")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, snapshot, 2)

	assert.Equal(t, 1, b.launches)
	assert.True(t, b.closed)
	assert.True(t, page.closed)
}

func TestHarvestRegistersNewHashtag(t *testing.T) {
	cfg := testConfig(t, "#ai")
	b := &fakeBrowser{page: &fakePage{}}
	p := newTestPipeline(cfg, b, ratelimit.NopPacer{})

	summary, err := p.Harvest(context.Background(), HarvestRequest{
		Platform: models.PlatformTikTok,
		Hashtag:  "AIArt",
		Country:  "US",
	})
	require.NoError(t, err)
	assert.Empty(t, summary.Harvest.URLs)

	hashtags, err := p.Registry().Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"#ai", "#AIArt"}, hashtags)
	assert.FileExists(t, filepath.Join(cfg.Data.Root, "tiktok", "aiart", "aiart_US.csv"))
}

func TestHarvestYouTubeKeepsChunksBeforeQuotaExhaustion(t *testing.T) {
	cfg := testConfig(t, "#ai")
	cfg.Harvest.TargetCount = 100

	page := &fakePage{}
	items := make(map[models.CanonicalURL]models.Metadata)
	for i := 0; i < 60; i++ {
		u := models.CanonicalURL(fmt.Sprintf("https://www.youtube.com/shorts/short%06d", i))
		page.hrefs = append(page.hrefs, string(u))
		items[u] = models.Metadata{URL: u, Texts: []string{"#ai clip"}, Views: int64(i)}
	}
	src := &fakeBatch{
		items: items,
		fail:  map[int]error{2: &cherrors.Error{Type: cherrors.ErrorTypeRateLimit, Message: "quotaExceeded", Code: 403}},
	}
	b := &fakeBrowser{page: page}
	p := newTestPipeline(cfg, b, ratelimit.NopPacer{}, WithBatchSource(src))

	summary, err := p.Harvest(context.Background(), HarvestRequest{
		Platform: models.PlatformYouTube,
		Hashtag:  "#ai",
		Country:  "NL",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, src.calls)
	assert.Equal(t, 50, summary.Report.Count(models.OutcomeSuccess))
	assert.Equal(t, 10, summary.Report.Count(models.OutcomeSkipped))
	for _, res := range summary.Report.Results {
		if res.Outcome == models.OutcomeSkipped {
			assert.Equal(t, models.ReasonTransient, res.Reason)
		}
	}

	table, err := p.Store().ReadTable(summary.TablePath)
	require.NoError(t, err)
	assert.Len(t, table, 50)
}

func TestHarvestYouTubeUsesBatchSource(t *testing.T) {
	cfg := testConfig(t, "#ai")
	page := &fakePage{hrefs: []string{"/shorts/abcDEF12345", "https://www.youtube.com/shorts/zzzzzzzzzzz?feature=share"}}
	b := &fakeBrowser{page: page}
	src := &fakeBatch{items: map[models.CanonicalURL]models.Metadata{
		"https://www.youtube.com/shorts/abcDEF12345": {
			URL:   "https://www.youtube.com/shorts/abcDEF12345",
			Texts: []string{"Generated #AI short", ""},
			Views: 100,
		},
	}}
	p := newTestPipeline(cfg, b, ratelimit.NopPacer{}, WithBatchSource(src))

	summary, err := p.Harvest(context.Background(), HarvestRequest{
		Platform: models.PlatformYouTube,
		Hashtag:  "#ai",
		Country:  "UK",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, []string{"Reject all"}, page.clicked)
	assert.Equal(t, 1, summary.Report.Count(models.OutcomeSuccess))
	assert.Equal(t, 1, summary.Report.Count(models.OutcomeSkipped))

	table, err := p.Store().ReadTable(summary.TablePath)
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.Nil(t, table[0].Shares)
	assert.Nil(t, table[0].AILabel)
}

func TestHarvestRequiresCountry(t *testing.T) {
	cfg := testConfig(t)
	b := &fakeBrowser{page: &fakePage{}}
	p := newTestPipeline(cfg, b, ratelimit.NopPacer{})

	_, err := p.Harvest(context.Background(), HarvestRequest{Platform: models.PlatformTikTok, Hashtag: "#ai"})
	require.Error(t, err)
	assert.True(t, cherrors.IsType(err, cherrors.ErrorTypeConfig))
	assert.Zero(t, b.launches)
}

func TestHarvestCancelledDuringCaptchaGrace(t *testing.T) {
	cfg := testConfig(t, "#ai")
	b := &fakeBrowser{page: &fakePage{}}
	p := newTestPipeline(cfg, b, ratelimit.NopPacer{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Harvest(ctx, HarvestRequest{Platform: models.PlatformTikTok, Hashtag: "#ai", Country: "NL"})
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, b.closed)
	assert.NoFileExists(t, p.Store().SnapshotPath(models.PlatformTikTok, "#ai", "NL"))
}

func TestFinalCheck(t *testing.T) {
	cfg := testConfig(t, "#ai")
	cfg.Data.Countries = []string{"NL", "US"}
	b := &fakeBrowser{page: &fakePage{}}
	src := &fakeBatch{items: map[models.CanonicalURL]models.Metadata{
		"https://www.youtube.com/shorts/bbbbbbbbbbb": {
			URL:   "https://www.youtube.com/shorts/bbbbbbbbbbb",
			Texts: []string{"#ai late arrival"},
		},
	}}
	p := newTestPipeline(cfg, b, ratelimit.NopPacer{}, WithBatchSource(src))
	store := p.Store()

	require.NoError(t, store.SaveSnapshot(models.PlatformYouTube, "#ai", "NL", []models.CanonicalURL{
		"https://www.youtube.com/shorts/aaaaaaaaaaa",
		"https://www.youtube.com/shorts/bbbbbbbbbbb",
	}))
	require.NoError(t, store.SaveSnapshot(models.PlatformYouTube, "#ai", "US", []models.CanonicalURL{
		"https://www.youtube.com/shorts/bbbbbbbbbbb",
	}))
	merged := filepath.Join(cfg.Data.Root, "merged.csv")
	require.NoError(t, store.WriteTable(merged, []models.VideoRecord{
		{URL: "https://www.youtube.com/shorts/aaaaaaaaaaa", Platform: models.PlatformYouTube, Country: "NL"},
	}))

	summary, err := p.FinalCheck(context.Background(), FinalCheckRequest{
		Platform: models.PlatformYouTube,
		Merged:   []string{merged},
	})
	require.NoError(t, err)

	assert.Equal(t, []models.CanonicalURL{"https://www.youtube.com/shorts/bbbbbbbbbbb"}, summary.Backlog.URLs)
	assert.Zero(t, b.launches)

	extras, err := store.ReadTable(summary.OutputPath)
	require.NoError(t, err)
	require.Len(t, extras, 1)
	assert.Equal(t, models.CountryExtra, extras[0].Country)
	assert.Equal(t, store.ExtrasPath(models.PlatformYouTube), summary.OutputPath)
}

func TestFinalCheckMissingSnapshot(t *testing.T) {
	cfg := testConfig(t, "#ai")
	cfg.Data.Countries = []string{"NL"}
	b := &fakeBrowser{page: &fakePage{}}
	p := newTestPipeline(cfg, b, ratelimit.NopPacer{}, WithBatchSource(&fakeBatch{}))

	_, err := p.FinalCheck(context.Background(), FinalCheckRequest{Platform: models.PlatformYouTube})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ai_NL")

	summary, err := p.FinalCheck(context.Background(), FinalCheckRequest{Platform: models.PlatformYouTube, AllowMissing: true})
	require.NoError(t, err)
	assert.Empty(t, summary.Backlog.URLs)
	assert.FileExists(t, summary.OutputPath)
}

func TestFinalCheckRequiresRegistry(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(cfg, &fakeBrowser{page: &fakePage{}}, ratelimit.NopPacer{})

	_, err := p.FinalCheck(context.Background(), FinalCheckRequest{Platform: models.PlatformTikTok})
	require.Error(t, err)
	assert.True(t, cherrors.IsFatal(err))
}

const labeledHTML = `<div id="metapanel"><span class="ytwPlayerDisclosureViewModelText">Altered or synthetic content</span></div>`

func TestLabelResumesAndRecordsInvalid(t *testing.T) {
	cfg := testConfig(t)
	good := "https://www.youtube.com/shorts/ggggggggggg"
	gone := "https://www.youtube.com/shorts/xxxxxxxxxxx"
	page := &fakePage{html: map[string]string{good: labeledHTML}}
	b := &fakeBrowser{page: page}
	p := newTestPipeline(cfg, b, ratelimit.NopPacer{})

	input := filepath.Join(cfg.Data.Root, "merged.csv")
	require.NoError(t, p.Store().WriteTable(input, []models.VideoRecord{
		{URL: models.CanonicalURL(good), Platform: models.PlatformYouTube},
		{URL: models.CanonicalURL(gone), Platform: models.PlatformYouTube},
		{URL: models.CanonicalURL(good), Platform: models.PlatformYouTube, Country: "US"},
		{URL: "https://www.tiktok.com/@u/video/1", Platform: models.PlatformTikTok, AILabel: models.Bool(false)},
	}))

	summary, err := p.Label(context.Background(), LabelRequest{Input: input})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Pending)
	assert.Equal(t, 1, summary.Labeled)
	assert.Equal(t, 1, summary.Invalid)

	table, err := p.Store().ReadTable(input)
	require.NoError(t, err)
	require.Len(t, table, 4)
	for _, i := range []int{0, 2} {
		require.NotNil(t, table[i].AILabel)
		assert.True(t, *table[i].AILabel)
		assert.True(t, *table[i].SensitiveTopic)
	}
	assert.Nil(t, table[1].AILabel)

	// second pass skips the ledgered url without starting a browser
	page.navigated = nil
	summary, err = p.Label(context.Background(), LabelRequest{Input: input})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Empty(t, page.navigated)
	assert.Equal(t, 1, b.launches)
}

func TestLabelResumesFromSeparateOutput(t *testing.T) {
	cfg := testConfig(t)
	first := "https://www.youtube.com/shorts/ggggggggggg"
	second := "https://www.youtube.com/shorts/hhhhhhhhhhh"
	page := &fakePage{html: map[string]string{first: labeledHTML, second: labeledHTML}}
	b := &fakeBrowser{page: page}
	p := newTestPipeline(cfg, b, ratelimit.NopPacer{})

	input := filepath.Join(cfg.Data.Root, "merged.csv")
	output := filepath.Join(cfg.Data.Root, "labeled.csv")
	require.NoError(t, p.Store().WriteTable(input, []models.VideoRecord{
		{URL: models.CanonicalURL(first), Platform: models.PlatformYouTube},
		{URL: models.CanonicalURL(second), Platform: models.PlatformYouTube},
	}))
	// an earlier pass stopped after labeling the first url
	require.NoError(t, p.Store().WriteTable(output, []models.VideoRecord{
		{URL: models.CanonicalURL(first), Platform: models.PlatformYouTube, AILabel: models.Bool(true), SensitiveTopic: models.Bool(true)},
		{URL: models.CanonicalURL(second), Platform: models.PlatformYouTube},
	}))

	summary, err := p.Label(context.Background(), LabelRequest{Input: input, Output: output})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, []string{second}, page.navigated)

	table, err := p.Store().ReadTable(output)
	require.NoError(t, err)
	for _, rec := range table {
		assert.True(t, rec.Labeled(), rec.URL)
	}

	unchanged, err := p.Store().ReadTable(input)
	require.NoError(t, err)
	assert.False(t, unchanged[0].Labeled())

	page.navigated = nil
	summary, err = p.Label(context.Background(), LabelRequest{Input: input, Output: output})
	require.NoError(t, err)
	assert.Zero(t, summary.Pending)
	assert.Empty(t, page.navigated)
}

func TestLabelAllLedgeredSkipsBrowser(t *testing.T) {
	cfg := testConfig(t)
	gone := models.CanonicalURL("https://www.youtube.com/shorts/xxxxxxxxxxx")
	invalid, err := ledger.Open(cfg.LedgerPath(), nil)
	require.NoError(t, err)
	require.NoError(t, invalid.Add(gone))

	b := &fakeBrowser{page: &fakePage{}}
	p := newTestPipeline(cfg, b, ratelimit.NopPacer{})
	input := filepath.Join(cfg.Data.Root, "merged.csv")
	require.NoError(t, p.Store().WriteTable(input, []models.VideoRecord{{URL: gone, Platform: models.PlatformYouTube}}))

	summary, err := p.Label(context.Background(), LabelRequest{Input: input})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	assert.Zero(t, b.launches)
}

func TestLabelNothingPending(t *testing.T) {
	cfg := testConfig(t)
	b := &fakeBrowser{page: &fakePage{}}
	p := newTestPipeline(cfg, b, ratelimit.NopPacer{})

	input := filepath.Join(cfg.Data.Root, "done.csv")
	require.NoError(t, p.Store().WriteTable(input, []models.VideoRecord{
		{URL: "https://www.youtube.com/shorts/ggggggggggg", Platform: models.PlatformYouTube, AILabel: models.Bool(true)},
	}))

	summary, err := p.Label(context.Background(), LabelRequest{Input: input})
	require.NoError(t, err)
	assert.Zero(t, summary.Pending)
	assert.Zero(t, b.launches)
}

func TestExport(t *testing.T) {
	cfg := testConfig(t)
	p := newTestPipeline(cfg, &fakeBrowser{page: &fakePage{}}, ratelimit.NopPacer{})

	a := filepath.Join(cfg.Data.Root, "a.csv")
	c := filepath.Join(cfg.Data.Root, "c.csv")
	require.NoError(t, p.Store().WriteTable(a, []models.VideoRecord{{URL: "https://www.youtube.com/shorts/aaaaaaaaaaa"}}))
	require.NoError(t, p.Store().WriteTable(c, []models.VideoRecord{{URL: "https://www.youtube.com/shorts/ccccccccccc"}}))

	out := filepath.Join(cfg.Data.Root, "export", "all.xlsx")
	n, err := p.Export([]string{a, c}, out)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.FileExists(t, out)

	_, err = p.Export(nil, out)
	assert.Error(t, err)
}
