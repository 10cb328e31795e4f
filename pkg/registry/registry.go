// Package registry persists the set of hashtags ever searched.
//
// The registry is append-only. It drives two things: the hashtag-membership
// filter of the detail fetcher, and the final-check differential which walks
// every (hashtag, country) snapshot ever saved.
package registry

import (
	"fmt"
	"io/fs"
	"strings"

	"clipharvest/pkg/checkpoint"
	"clipharvest/pkg/errors"
	"clipharvest/pkg/logger"
)

// Registry is the hashtag registry file.
type Registry struct {
	path   string
	logger logger.Logger
}

// Open returns a Registry backed by path. Nothing is read until Load or Ensure.
func Open(path string, log logger.Logger) *Registry {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Registry{path: path, logger: log}
}

// Path returns the registry file.
func (r *Registry) Path() string {
	return r.path
}

// Load returns the registered hashtags. A missing registry file is a
// precondition failure.
func (r *Registry) Load() ([]string, error) {
	list, found, err := r.open()
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errors.Wrap(errors.ErrorTypeConfig, fmt.Sprintf("hashtag registry %s is required", r.path), fs.ErrNotExist)
	}
	return list.Items(), nil
}

// Ensure adds hashtag when no match is registered, ignoring case and the
// leading '#', and
// rewrites the registry file before returning the full set.
func (r *Registry) Ensure(hashtag string) ([]string, error) {
	hashtag = Normalize(hashtag)
	if hashtag == "" || hashtag == "#" {
		return nil, errors.New(errors.ErrorTypeConfig, "hashtag must not be empty")
	}

	list, _, err := r.open()
	if err != nil {
		return nil, err
	}

	if !list.Contains(hashtag) {
		if _, err := list.Add(hashtag); err != nil {
			return nil, fmt.Errorf("failed to persist hashtag registry: %w", err)
		}
		r.logger.InfoWithFields("Hashtag registered", map[string]interface{}{
			"hashtag": hashtag,
			"total":   list.Len(),
		})
	} else if err := list.Persist(); err != nil {
		return nil, fmt.Errorf("failed to persist hashtag registry: %w", err)
	}

	return list.Items(), nil
}

func (r *Registry) open() (*checkpoint.List, bool, error) {
	list, found, err := checkpoint.OpenList(r.path, checkpoint.WithKey(key), checkpoint.WithLogger(r.logger))
	if err != nil {
		return nil, found, errors.Wrap(errors.ErrorTypeConfig, "failed to load hashtag registry", err)
	}
	return list, found, nil
}

// Normalize trims whitespace and guarantees a leading '#'.
func Normalize(hashtag string) string {
	hashtag = strings.TrimSpace(hashtag)
	if hashtag == "" {
		return ""
	}
	if !strings.HasPrefix(hashtag, "#") {
		hashtag = "#" + hashtag
	}
	return hashtag
}

// Tag returns the lowercased hashtag without the leading '#', as used in
// search URLs and storage keys.
func Tag(hashtag string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(hashtag), "#"))
}

// Lowered returns the set of lowercased registry entries.
func Lowered(hashtags []string) map[string]struct{} {
	set := make(map[string]struct{}, len(hashtags))
	for _, h := range hashtags {
		set[key(h)] = struct{}{}
	}
	return set
}

// key is the registry membership key: normalized and lowercased.
func key(hashtag string) string {
	return strings.ToLower(Normalize(hashtag))
}
