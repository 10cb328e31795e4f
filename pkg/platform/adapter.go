// Package platform holds the per-platform rules for turning scraped markup
// into canonical video URLs.
//
// Everything here is pure: no I/O, no browser. The harvester, fetcher and
// differential are written once against Adapter.
package platform

import (
	"fmt"
	"net/url"
	"strings"

	"clipharvest/pkg/models"
)

// Identifier is a platform-specific token parsed from an href. It only lives
// for one scroll round.
type Identifier struct {
	Author  string
	VideoID string
}

// Adapter is implemented once per platform.
type Adapter interface {
	Platform() models.Platform
	// BuildSearchURL returns the listing page for hashtag.
	BuildSearchURL(hashtag string) string
	// CandidateSelector is the CSS selector matching candidate links on the listing page.
	CandidateSelector() string
	// ExtractIdentifier parses an href. Malformed input returns false.
	ExtractIdentifier(href string) (Identifier, bool)
	// Canonicalize must be deterministic for every identifier ExtractIdentifier returns.
	Canonicalize(id Identifier) models.CanonicalURL
	// ScrollFraction is the range of page height covered by one scroll step.
	ScrollFraction() (min, max float64)
	// StagnationThreshold is the default number of no-progress rounds before giving up.
	StagnationThreshold() int
}

// ForPlatform returns the adapter for p.
func ForPlatform(p models.Platform) (Adapter, error) {
	switch p {
	case models.PlatformTikTok:
		return TikTok{}, nil
	case models.PlatformYouTube:
		return YouTube{}, nil
	default:
		return nil, fmt.Errorf("no adapter for platform %q", p)
	}
}

// CanonicalizeHref runs ExtractIdentifier then Canonicalize.
func CanonicalizeHref(a Adapter, href string) (models.CanonicalURL, bool) {
	id, ok := a.ExtractIdentifier(href)
	if !ok {
		return "", false
	}
	return a.Canonicalize(id), true
}

// searchTerm strips '#', lowercases and path-escapes a hashtag.
func searchTerm(hashtag string) string {
	tag := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(hashtag), "#"))
	return url.PathEscape(tag)
}

// parseHref accepts absolute URLs, protocol-relative URLs and bare paths.
// It returns the lowercased host (empty for paths), the non-empty path
// segments, and the query.
func parseHref(href string) (host string, segments []string, query url.Values, ok bool) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", nil, nil, false
	}

	u, err := url.Parse(href)
	if err != nil {
		return "", nil, nil, false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return "", nil, nil, false
	}

	path := u.Path
	// "www.tiktok.com/@u/video/1" parses as a relative path
	if u.Host == "" && u.Scheme == "" && !strings.HasPrefix(path, "/") {
		if first, rest, found := strings.Cut(path, "/"); found && strings.Contains(first, ".") {
			host = strings.ToLower(first)
			path = "/" + rest
		}
	} else {
		host = strings.ToLower(u.Hostname())
	}

	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			segments = append(segments, seg)
		}
	}
	return host, segments, u.Query(), true
}

func hostMatches(host string, domains ...string) bool {
	if host == "" {
		return true
	}
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}
