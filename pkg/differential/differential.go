// Package differential computes the final-check backlog: every URL any
// harvest ever saved for a platform that is not yet in the finalized table.
package differential

import (
	"fmt"

	"clipharvest/pkg/errors"
	"clipharvest/pkg/logger"
	"clipharvest/pkg/models"
	"clipharvest/pkg/platform"
	"clipharvest/pkg/registry"
)

// Snapshots loads per-partition harvested URLs. storage.Store implements it.
type Snapshots interface {
	LoadSnapshot(p models.Platform, hashtag, country string) ([]models.CanonicalURL, bool, error)
}

// Input is everything Compute needs. It must be fully loaded before the call.
type Input struct {
	Adapter   platform.Adapter
	Registry  []string
	Countries []string
	Snapshots Snapshots
	// Finalized is the merged result table. Rows of other platforms are ignored.
	Finalized []models.VideoRecord
	// AllowMissing logs and skips partitions that were never harvested
	// instead of failing.
	AllowMissing bool
}

// Backlog is the set difference harvested − finalized for one platform.
type Backlog struct {
	Platform  models.Platform
	URLs      []models.CanonicalURL
	Harvested int
	Finalized int
	Missing   []string
}

// Compute returns the URLs to check, in first-seen order over registry
// order then country order.
func Compute(in Input, log logger.Logger) (*Backlog, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	if in.Adapter == nil || in.Snapshots == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "differential needs an adapter and a snapshot store")
	}
	p := in.Adapter.Platform()

	finalized := make(map[models.CanonicalURL]struct{})
	for i := range in.Finalized {
		rec := &in.Finalized[i]
		if rec.Platform != "" && rec.Platform != p {
			continue
		}
		finalized[canonical(in.Adapter, rec.URL)] = struct{}{}
	}

	backlog := &Backlog{Platform: p, Finalized: len(finalized)}
	harvested := make(map[models.CanonicalURL]struct{})

	for _, hashtag := range in.Registry {
		for _, country := range in.Countries {
			urls, found, err := in.Snapshots.LoadSnapshot(p, hashtag, country)
			if err != nil {
				return nil, errors.Wrap(errors.ErrorTypeConfig, fmt.Sprintf("failed to load snapshot %s/%s", registry.Tag(hashtag), country), err)
			}
			if !found {
				partition := fmt.Sprintf("%s_%s", registry.Tag(hashtag), country)
				if !in.AllowMissing {
					return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("no harvest snapshot for %s on %s", partition, p))
				}
				log.WarnWithFields("Harvest snapshot missing, skipping", map[string]interface{}{
					"platform":  string(p),
					"partition": partition,
				})
				backlog.Missing = append(backlog.Missing, partition)
				continue
			}

			for _, u := range urls {
				cu := canonical(in.Adapter, u)
				if _, seen := harvested[cu]; seen {
					continue
				}
				harvested[cu] = struct{}{}
				if _, done := finalized[cu]; !done {
					backlog.URLs = append(backlog.URLs, cu)
				}
			}
		}
	}
	backlog.Harvested = len(harvested)

	log.InfoWithFields("Differential computed", map[string]interface{}{
		"platform":  string(p),
		"harvested": backlog.Harvested,
		"finalized": backlog.Finalized,
		"backlog":   len(backlog.URLs),
		"missing":   len(backlog.Missing),
	})
	return backlog, nil
}

// canonical re-canonicalizes u; values the adapter cannot parse are compared verbatim.
func canonical(a platform.Adapter, u models.CanonicalURL) models.CanonicalURL {
	if cu, ok := platform.CanonicalizeHref(a, string(u)); ok {
		return cu
	}
	return u
}
