package platform

import (
	"strings"

	"clipharvest/pkg/models"
)

// TikTok handles tiktok.com tag pages and /@author/video/{id} links.
type TikTok struct{}

func (TikTok) Platform() models.Platform { return models.PlatformTikTok }

func (TikTok) BuildSearchURL(hashtag string) string {
	return "https://www.tiktok.com/tag/" + searchTerm(hashtag)
}

func (TikTok) CandidateSelector() string { return "a[href*='/video/']" }

func (TikTok) ScrollFraction() (float64, float64) { return 0.2, 0.8 }

func (TikTok) StagnationThreshold() int { return 2 }

// ExtractIdentifier finds the "video" segment (any case) and takes the
// segment before it as the author and the one after as the id.
func (TikTok) ExtractIdentifier(href string) (Identifier, bool) {
	host, segments, _, ok := parseHref(href)
	if !ok || !hostMatches(host, "tiktok.com") {
		return Identifier{}, false
	}

	for i := 1; i+1 < len(segments); i++ {
		if !strings.EqualFold(segments[i], "video") {
			continue
		}
		author := strings.ToLower(strings.TrimPrefix(segments[i-1], "@"))
		id := segments[i+1]
		if author == "" || !isDigits(id) {
			return Identifier{}, false
		}
		return Identifier{Author: author, VideoID: id}, true
	}
	return Identifier{}, false
}

func (TikTok) Canonicalize(id Identifier) models.CanonicalURL {
	author := strings.ToLower(strings.TrimPrefix(id.Author, "@"))
	return models.CanonicalURL("https://www.tiktok.com/@" + author + "/video/" + id.VideoID)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
