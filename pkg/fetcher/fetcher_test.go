package fetcher

import (
	"context"
	"fmt"
	"testing"

	"clipharvest/pkg/errors"
	"clipharvest/pkg/logger"
	"clipharvest/pkg/models"
	"clipharvest/pkg/ratelimit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type itemSource struct {
	items map[models.CanonicalURL]*models.Metadata
	errs  map[models.CanonicalURL]error
	calls []models.CanonicalURL
}

func (s *itemSource) FetchItem(ctx context.Context, u models.CanonicalURL) (*models.Metadata, error) {
	s.calls = append(s.calls, u)
	if err := s.errs[u]; err != nil {
		return nil, err
	}
	return s.items[u], nil
}

type batchSource struct {
	size  int
	items map[models.CanonicalURL]models.Metadata
	fail  map[int]error
	calls [][]models.CanonicalURL
}

func (s *batchSource) BatchSize() int { return s.size }

func (s *batchSource) FetchBatch(ctx context.Context, urls []models.CanonicalURL) ([]models.Metadata, error) {
	call := len(s.calls)
	s.calls = append(s.calls, append([]models.CanonicalURL(nil), urls...))
	if err := s.fail[call]; err != nil {
		return nil, err
	}
	var out []models.Metadata
	for _, u := range urls {
		if m, ok := s.items[u]; ok {
			out = append(out, m)
		}
	}
	return out, nil
}

func meta(u models.CanonicalURL, text string) models.Metadata {
	return models.Metadata{URL: u, Texts: []string{text}, Views: 10, Likes: 2, Comments: 1}
}

func resultFor(t *testing.T, r *Report, u models.CanonicalURL) models.ItemResult {
	t.Helper()
	for _, res := range r.Results {
		if res.URL == u {
			return res
		}
	}
	t.Fatalf("no result for %s", u)
	return models.ItemResult{}
}

func TestExtractHashtags(t *testing.T) {
	got := ExtractHashtags("Made with #AI and #ai_art!", "#Über #日本 #ai", "no tags", "#42 #")
	assert.Equal(t, []string{"#ai", "#ai_art", "#über", "#日本", "#42"}, got)
	assert.Empty(t, ExtractHashtags("plain text"))
}

func TestFetchItemsFiltersByRegistry(t *testing.T) {
	a := models.CanonicalURL("https://www.tiktok.com/@a/video/1")
	b := models.CanonicalURL("https://www.tiktok.com/@b/video/2")
	src := &itemSource{items: map[models.CanonicalURL]*models.Metadata{
		a: ptr(meta(a, "look #AI")),
		b: ptr(meta(b, "#cats only")),
	}}

	report, err := NewItemFetcher(src, logger.NewTestLogger()).Fetch(context.Background(), []models.CanonicalURL{a, b}, []string{"#ai"})
	require.NoError(t, err)

	require.Len(t, report.Records, 1)
	assert.Equal(t, a, report.Records[0].URL)
	assert.Equal(t, []string{"#ai"}, report.Records[0].Hashtags)
	assert.Equal(t, int64(10), report.Records[0].Views)
	assert.Len(t, report.Results, 2)
	assert.Equal(t, models.OutcomeSuccess, resultFor(t, report, a).Outcome)
	assert.Equal(t, models.ReasonNoHashtag, resultFor(t, report, b).Reason)
}

func TestFetchItemsIsolatesFailures(t *testing.T) {
	a := models.CanonicalURL("https://www.tiktok.com/@a/video/1")
	b := models.CanonicalURL("https://www.tiktok.com/@b/video/2")
	c := models.CanonicalURL("https://www.tiktok.com/@c/video/3")
	src := &itemSource{
		items: map[models.CanonicalURL]*models.Metadata{
			a: ptr(meta(a, "#ai")),
			c: ptr(meta(c, "#ai")),
		},
		errs: map[models.CanonicalURL]error{
			b: errors.New(errors.ErrorTypeParsing, "no rehydration data"),
		},
	}
	log := logger.NewTestLogger()
	pacer := ratelimit.NewRecordingPacer()

	report, err := NewItemFetcher(src, log, WithPacer(pacer)).Fetch(context.Background(), []models.CanonicalURL{a, b, c}, []string{"#ai"})
	require.NoError(t, err)

	assert.Len(t, report.Records, 2)
	res := resultFor(t, report, b)
	assert.Equal(t, models.OutcomeSkipped, res.Outcome)
	assert.Equal(t, models.ReasonFetchFailed, res.Reason)
	assert.True(t, errors.IsType(res.Err, errors.ErrorTypeParsing))
	assert.True(t, log.HasMessage("Item fetch failed, skipping"))
	assert.Equal(t, 2, pacer.Count(ratelimit.PauseVisit))
}

func TestFetchItemsAbortsOnFatal(t *testing.T) {
	a := models.CanonicalURL("https://www.tiktok.com/@a/video/1")
	b := models.CanonicalURL("https://www.tiktok.com/@b/video/2")
	src := &itemSource{
		items: map[models.CanonicalURL]*models.Metadata{b: ptr(meta(b, "#ai"))},
		errs:  map[models.CanonicalURL]error{a: errors.New(errors.ErrorTypeAuth, "session rejected")},
	}

	_, err := NewItemFetcher(src, nil).Fetch(context.Background(), []models.CanonicalURL{a, b}, []string{"#ai"})
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.Equal(t, []models.CanonicalURL{a}, src.calls)
}

func TestFetchDeduplicatesInput(t *testing.T) {
	a := models.CanonicalURL("https://www.youtube.com/shorts/abc")
	src := &itemSource{items: map[models.CanonicalURL]*models.Metadata{a: ptr(meta(a, "#ai"))}}

	report, err := NewItemFetcher(src, nil).Fetch(context.Background(), []models.CanonicalURL{a, a}, []string{"#AI"})
	require.NoError(t, err)

	assert.Len(t, report.Records, 1)
	assert.Len(t, report.Results, 2)
	assert.Equal(t, 1, report.Count(models.OutcomeSkipped))
	assert.Equal(t, []models.CanonicalURL{a}, src.calls)
}

func TestFetchBatchesChunksAndReportsMissing(t *testing.T) {
	var urls []models.CanonicalURL
	items := make(map[models.CanonicalURL]models.Metadata)
	for i := 0; i < 5; i++ {
		u := models.CanonicalURL(fmt.Sprintf("https://www.youtube.com/shorts/v%d", i))
		urls = append(urls, u)
		if i != 3 {
			items[u] = meta(u, "#ai")
		}
	}
	src := &batchSource{size: 2, items: items}

	report, err := NewBatchFetcher(src, nil).Fetch(context.Background(), urls, []string{"#ai"})
	require.NoError(t, err)

	require.Len(t, src.calls, 3)
	assert.Len(t, src.calls[0], 2)
	assert.Len(t, src.calls[2], 1)
	assert.Len(t, report.Records, 4)
	assert.Len(t, report.Results, 5)
	assert.Equal(t, models.ReasonNotReturned, resultFor(t, report, urls[3]).Reason)
}

func TestFetchBatchesIsolatesChunkFailure(t *testing.T) {
	var urls []models.CanonicalURL
	items := make(map[models.CanonicalURL]models.Metadata)
	for i := 0; i < 4; i++ {
		u := models.CanonicalURL(fmt.Sprintf("https://www.youtube.com/shorts/v%d", i))
		urls = append(urls, u)
		items[u] = meta(u, "#ai")
	}
	src := &batchSource{
		size:  2,
		items: items,
		fail:  map[int]error{0: errors.New(errors.ErrorTypeServerError, "backend error")},
	}

	report, err := NewBatchFetcher(src, nil).Fetch(context.Background(), urls, []string{"#ai"})
	require.NoError(t, err)

	assert.Len(t, report.Records, 2)
	assert.Equal(t, models.ReasonTransient, resultFor(t, report, urls[0]).Reason)
	assert.Equal(t, models.ReasonTransient, resultFor(t, report, urls[1]).Reason)
	assert.Equal(t, models.OutcomeSuccess, resultFor(t, report, urls[2]).Outcome)
}

func TestFetchBatchesAbortsOnAuth(t *testing.T) {
	u := models.CanonicalURL("https://www.youtube.com/shorts/v1")
	src := &batchSource{size: 50, fail: map[int]error{0: errors.New(errors.ErrorTypeAuth, "API key not valid")}}

	_, err := NewBatchFetcher(src, nil).Fetch(context.Background(), []models.CanonicalURL{u}, []string{"#ai"})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeAuth))
}

func TestFetchHonoursCancellation(t *testing.T) {
	u := models.CanonicalURL("https://www.tiktok.com/@a/video/1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewItemFetcher(&itemSource{}, nil).Fetch(ctx, []models.CanonicalURL{u}, []string{"#ai"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReportAttach(t *testing.T) {
	r := &Report{Records: []models.VideoRecord{{URL: "a"}, {URL: "b"}}}
	r.Attach(models.PlatformYouTube, "NL")
	for _, rec := range r.Records {
		assert.Equal(t, models.PlatformYouTube, rec.Platform)
		assert.Equal(t, "NL", rec.Country)
	}
}

func TestFetchLogsProgress(t *testing.T) {
	var urls []models.CanonicalURL
	items := make(map[models.CanonicalURL]*models.Metadata)
	for i := 0; i < 6; i++ {
		u := models.CanonicalURL(fmt.Sprintf("https://www.tiktok.com/@a/video/%d", i))
		urls = append(urls, u)
		items[u] = ptr(meta(u, "#ai"))
	}
	log := logger.NewTestLogger()

	_, err := NewItemFetcher(&itemSource{items: items}, log, WithProgressEvery(2)).Fetch(context.Background(), urls, []string{"#ai"})
	require.NoError(t, err)
	assert.Equal(t, 3, log.CountMessages("Progress"))
}

func ptr(m models.Metadata) *models.Metadata {
	return &m
}
