package platform

import (
	"strings"

	"clipharvest/pkg/models"
)

// YouTube handles hashtag Shorts pages. Video ids are case-sensitive, so only
// the path shape is matched case-insensitively.
type YouTube struct{}

func (YouTube) Platform() models.Platform { return models.PlatformYouTube }

func (YouTube) BuildSearchURL(hashtag string) string {
	return "https://www.youtube.com/hashtag/" + searchTerm(hashtag) + "/shorts"
}

func (YouTube) CandidateSelector() string { return "a[href*='/shorts/']" }

func (YouTube) ScrollFraction() (float64, float64) { return 0.3, 0.5 }

func (YouTube) StagnationThreshold() int { return 5 }

// ExtractIdentifier accepts /shorts/{id}, /watch?v={id} and youtu.be/{id}.
func (YouTube) ExtractIdentifier(href string) (Identifier, bool) {
	host, segments, query, ok := parseHref(href)
	if !ok || !hostMatches(host, "youtube.com", "youtu.be") {
		return Identifier{}, false
	}

	var id string
	switch {
	case strings.HasSuffix(host, "youtu.be") && len(segments) >= 1:
		id = segments[0]
	case len(segments) >= 2 && strings.EqualFold(segments[0], "shorts"):
		id = segments[1]
	case len(segments) >= 1 && strings.EqualFold(segments[0], "watch"):
		id = query.Get("v")
	}

	if !isVideoID(id) {
		return Identifier{}, false
	}
	return Identifier{VideoID: id}, true
}

func (YouTube) Canonicalize(id Identifier) models.CanonicalURL {
	return models.CanonicalURL("https://www.youtube.com/shorts/" + id.VideoID)
}

// VideoID returns the id of a canonical YouTube URL.
func (y YouTube) VideoID(u models.CanonicalURL) (string, bool) {
	id, ok := y.ExtractIdentifier(string(u))
	return id.VideoID, ok
}

func isVideoID(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
