// Package tiktok implements the per-item TikTok metadata source.
//
// Each URL is opened in the browser session and the video detail is read
// from the page's rehydration payload, the JSON document TikTok embeds in
// the #__UNIVERSAL_DATA_FOR_REHYDRATION__ script tag.
package tiktok

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"clipharvest/pkg/errors"
	"clipharvest/pkg/logger"
	"clipharvest/pkg/models"
)

// rehydrationScript returns the raw payload, or an empty string when the tag is absent.
const rehydrationScript = `() => {
	const el = document.getElementById("__UNIVERSAL_DATA_FOR_REHYDRATION__");
	return el ? el.textContent : "";
}`

// Page is the part of a browser page the source drives.
type Page interface {
	Navigate(ctx context.Context, url string) error
	EvalString(ctx context.Context, js string, args ...interface{}) (string, error)
}

// Source implements fetcher.ItemSource.
type Source struct {
	page    Page
	timeout time.Duration
	logger  logger.Logger
}

// NewSource creates a source bounded by timeout per item.
func NewSource(page Page, timeout time.Duration, log logger.Logger) *Source {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Source{page: page, timeout: timeout, logger: log.WithField("component", "tiktok_detail")}
}

// FetchItem opens url and parses its video detail.
func (s *Source) FetchItem(ctx context.Context, url models.CanonicalURL) (*models.Metadata, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if err := s.page.Navigate(ctx, string(url)); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, "failed to open video page", err)
	}
	raw, err := s.page.EvalString(ctx, rehydrationScript)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeParsing, "failed to read rehydration data", err)
	}

	meta, err := ParseDetail([]byte(raw), url)
	if err != nil {
		return nil, err
	}
	s.logger.DebugWithFields("Video detail parsed", map[string]interface{}{
		"url":   string(url),
		"views": meta.Views,
	})
	return meta, nil
}

// ParseDetail extracts metadata for url from a rehydration payload.
func ParseDetail(data []byte, url models.CanonicalURL) (*models.Metadata, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errors.New(errors.ErrorTypeParsing, "page has no rehydration data")
	}

	var doc rehydration
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrorTypeParsing, "failed to parse rehydration data", err)
	}

	detail := doc.Scope.VideoDetail
	if detail == nil {
		return nil, errors.New(errors.ErrorTypeParsing, "rehydration data has no video detail")
	}
	if detail.StatusCode != 0 {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNotFound,
			Message: fmt.Sprintf("video unavailable: %s", detail.StatusMsg),
			Code:    int(detail.StatusCode),
		}
	}

	item := detail.ItemInfo.ItemStruct
	if item.ID == "" {
		return nil, errors.New(errors.ErrorTypeParsing, "video detail has no item")
	}

	stats := item.Stats
	if item.StatsV2 != nil {
		stats = *item.StatsV2
	}

	meta := &models.Metadata{
		URL:      url,
		Texts:    item.texts(),
		Views:    int64(stats.PlayCount),
		Likes:    int64(stats.DiggCount),
		Comments: int64(stats.CommentCount),
		Shares:   models.Int64(int64(stats.ShareCount)),
		AILabel:  models.Bool(item.AIGCLabelType > 0),
	}
	if item.CreateTime > 0 {
		meta.PublishedAt = time.Unix(int64(item.CreateTime), 0).UTC()
	}
	return meta, nil
}

type rehydration struct {
	Scope struct {
		VideoDetail *videoDetail `json:"webapp.video-detail"`
	} `json:"__DEFAULT_SCOPE__"`
}

type videoDetail struct {
	StatusCode flexInt `json:"statusCode"`
	StatusMsg  string  `json:"statusMsg"`
	ItemInfo   struct {
		ItemStruct itemStruct `json:"itemStruct"`
	} `json:"itemInfo"`
}

type itemStruct struct {
	ID            string     `json:"id"`
	Desc          string     `json:"desc"`
	CreateTime    flexInt    `json:"createTime"`
	AIGCLabelType flexInt    `json:"aigcLabelType"`
	Stats         itemStats  `json:"stats"`
	StatsV2       *itemStats `json:"statsV2"`
	Contents      []struct {
		Desc string `json:"desc"`
	} `json:"contents"`
	TextExtra []struct {
		HashtagName string `json:"hashtagName"`
	} `json:"textExtra"`
}

// texts returns every field scanned for hashtags. Hashtag entries are
// rendered with a leading '#' so the shared extractor picks them up.
func (i *itemStruct) texts() []string {
	texts := []string{i.Desc}
	for _, c := range i.Contents {
		texts = append(texts, c.Desc)
	}
	for _, t := range i.TextExtra {
		if t.HashtagName != "" {
			texts = append(texts, "#"+t.HashtagName)
		}
	}
	return texts
}

type itemStats struct {
	PlayCount    flexInt `json:"playCount"`
	DiggCount    flexInt `json:"diggCount"`
	CommentCount flexInt `json:"commentCount"`
	ShareCount   flexInt `json:"shareCount"`
}

// flexInt decodes a JSON number or numeric string. statsV2 uses strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		v, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return fmt.Errorf("invalid integer %s", data)
		}
		n = int64(v)
	}
	*f = flexInt(n)
	return nil
}
