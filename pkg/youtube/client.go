package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clipharvest/pkg/config"
	"clipharvest/pkg/errors"
	"clipharvest/pkg/logger"
	"clipharvest/pkg/models"
	"clipharvest/pkg/platform"
	"clipharvest/pkg/ratelimit"
)

// MaxBatchSize is the most ids the videos endpoint accepts per call.
const MaxBatchSize = 50

// Client is a YouTube Data API v3 client. It implements fetcher.BatchSource.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	batchSize  int
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLimiter replaces the request limiter.
func WithLimiter(l ratelimit.Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// NewClient creates a client from cfg. A missing API key is not an error
// here; it is reported when the first batch is fetched.
func NewClient(cfg config.YouTubeConfig, log logger.Logger, opts ...Option) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.RequestsPerMinute > 0 {
		limiter = ratelimit.PerMinute(cfg.RequestsPerMinute)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		batchSize:  batchSize,
		limiter:    limiter,
		logger:     log.WithField("component", "youtube_api"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BatchSize returns the number of ids sent per request.
func (c *Client) BatchSize() int {
	return c.batchSize
}

// FetchBatch loads metadata for urls. URLs that are not Shorts URLs, and
// videos the API does not return, are absent from the result.
func (c *Client) FetchBatch(ctx context.Context, urls []models.CanonicalURL) ([]models.Metadata, error) {
	if c.apiKey == "" {
		return nil, errors.New(errors.ErrorTypeAuth, "youtube api key is not configured")
	}

	var yt platform.YouTube
	ids := make([]string, 0, len(urls))
	for _, u := range urls {
		if id, ok := yt.VideoID(u); ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > c.batchSize {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("batch of %d ids exceeds limit %d", len(ids), c.batchSize))
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp videoListResponse
	if err := c.getJSON(ctx, c.videosURL(ids), &resp); err != nil {
		return nil, err
	}

	out := make([]models.Metadata, 0, len(resp.Items))
	for _, item := range resp.Items {
		out = append(out, models.Metadata{
			URL:         yt.Canonicalize(platform.Identifier{VideoID: item.ID}),
			Texts:       []string{item.Snippet.Title, item.Snippet.Description},
			Views:       int64(item.Statistics.ViewCount),
			Likes:       int64(item.Statistics.LikeCount),
			Comments:    int64(item.Statistics.CommentCount),
			PublishedAt: item.Snippet.PublishedAt.UTC(),
		})
	}

	c.logger.DebugWithFields("Fetched video batch", map[string]interface{}{
		"requested": len(ids),
		"returned":  len(out),
	})
	return out, nil
}

func (c *Client) videosURL(ids []string) string {
	q := url.Values{}
	q.Set("part", "snippet,statistics,contentDetails")
	q.Set("id", strings.Join(ids, ","))
	q.Set("key", c.apiKey)
	return c.baseURL + "/videos?" + q.Encode()
}

// getJSON performs a GET request and decodes the JSON response
func (c *Client) getJSON(ctx context.Context, rawURL string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeUnknown, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.WithError(err).ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url": redact(rawURL),
		})
		return errors.Wrap(errors.ErrorTypeNetwork, "network error", err)
	}
	defer resp.Body.Close()

	logger.LogRequest(c.logger, req.Method, redact(rawURL), resp.StatusCode, time.Since(start))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeNetwork, "failed to read response body", err)
	}

	if err := c.checkResponseStatus(resp.StatusCode, body); err != nil {
		return err
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("Failed to parse JSON response", map[string]interface{}{
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errors.Wrap(errors.ErrorTypeParsing, "failed to parse JSON", err)
	}
	return nil
}

// quotaReasons are 403 reasons that exhaust the quota without invalidating the key.
var quotaReasons = map[string]bool{
	"quotaExceeded":         true,
	"dailyLimitExceeded":    true,
	"rateLimitExceeded":     true,
	"userRateLimitExceeded": true,
}

// checkResponseStatus maps an API status to a typed error
func (c *Client) checkResponseStatus(status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}

	var envelope apiError
	_ = json.Unmarshal(body, &envelope)
	message := envelope.Error.Message
	if message == "" {
		message = http.StatusText(status)
	}

	errType := errors.FromStatusCode(status)
	switch reason := envelope.reason(); {
	case status == http.StatusBadRequest && reason == "keyInvalid":
		errType = errors.ErrorTypeAuth
	case quotaReasons[reason]:
		errType = errors.ErrorTypeRateLimit
	}

	return &errors.Error{
		Type:    errType,
		Message: message,
		Code:    status,
	}
}

// redact hides the API key in logged URLs.
func redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
