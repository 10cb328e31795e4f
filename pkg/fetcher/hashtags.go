package fetcher

import (
	"regexp"
	"strings"
)

// hashtagPattern matches '#' followed by Unicode word characters.
var hashtagPattern = regexp.MustCompile(`#[\p{L}\p{M}\p{N}_]+`)

// ExtractHashtags returns the lowercased hashtags found in texts, in
// first-seen order and without duplicates.
func ExtractHashtags(texts ...string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, text := range texts {
		for _, tag := range hashtagPattern.FindAllString(text, -1) {
			tag = strings.ToLower(tag)
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}

// intersects reports whether any of hashtags is in registry. registry keys
// must already be lowercased.
func intersects(hashtags []string, registry map[string]struct{}) bool {
	for _, h := range hashtags {
		if _, ok := registry[h]; ok {
			return true
		}
	}
	return false
}
