package models

import (
	"fmt"
	"strings"
	"time"
)

// Platform identifies the short-form video platform a record came from.
type Platform string

const (
	PlatformTikTok  Platform = "tiktok"
	PlatformYouTube Platform = "youtube"
)

// CountryExtra tags records produced by the final-check differential pass.
const CountryExtra = "extra"

// ParsePlatform parses a platform name case-insensitively.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(strings.ToLower(strings.TrimSpace(s))) {
	case PlatformTikTok:
		return PlatformTikTok, nil
	case PlatformYouTube:
		return PlatformYouTube, nil
	default:
		return "", fmt.Errorf("unknown platform %q (expected tiktok or youtube)", s)
	}
}

func (p Platform) String() string {
	return string(p)
}

// CanonicalURL is the normalized URL identifying one video. It is the dedup
// and join key across harvests, countries and hashtags.
type CanonicalURL string

func (u CanonicalURL) String() string {
	return string(u)
}

// VideoRecord is one row of a result table.
type VideoRecord struct {
	URL            CanonicalURL
	AILabel        *bool
	SensitiveTopic *bool
	Views          int64
	Likes          int64
	Comments       int64
	Shares         *int64
	Hashtags       []string
	PublishedAt    time.Time
	Country        string
	Platform       Platform
}

// Labeled reports whether the classifier has already assigned ai_label.
func (r *VideoRecord) Labeled() bool {
	return r.AILabel != nil
}

// Metadata is what a metadata source returns for a single video, before the
// hashtag filter runs.
type Metadata struct {
	URL CanonicalURL
	// Texts are the free-text fields scanned for hashtags (title, description, captions).
	Texts       []string
	Views       int64
	Likes       int64
	Comments    int64
	Shares      *int64
	PublishedAt time.Time
	AILabel     *bool
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

// Int64 returns a pointer to n.
func Int64(n int64) *int64 {
	return &n
}
