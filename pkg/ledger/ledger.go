package ledger

import (
	"fmt"

	"clipharvest/pkg/checkpoint"
	"clipharvest/pkg/errors"
	"clipharvest/pkg/logger"
	"clipharvest/pkg/models"
)

// Ledger is the persistent set of URLs that can never be classified.
// Once a URL is added it is skipped by every later run.
type Ledger struct {
	list   *checkpoint.List
	logger logger.Logger
}

// Open loads the ledger at path. A missing file starts an empty ledger.
func Open(path string, log logger.Logger) (*Ledger, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}
	list, found, err := checkpoint.OpenList(path, checkpoint.WithLogger(log))
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeConfig, "failed to load invalid-url ledger", err)
	}
	log.DebugWithFields("Invalid-url ledger loaded", map[string]interface{}{
		"path":    path,
		"existed": found,
		"entries": list.Len(),
	})
	return &Ledger{list: list, logger: log}, nil
}

// Contains reports whether url is known to be unclassifiable.
func (l *Ledger) Contains(url models.CanonicalURL) bool {
	return l.list.Contains(string(url))
}

// Add records url and persists the ledger before returning.
func (l *Ledger) Add(url models.CanonicalURL) error {
	added, err := l.list.Add(string(url))
	if err != nil {
		return errors.Wrap(errors.ErrorTypeConfig, fmt.Sprintf("failed to persist invalid-url ledger %s", l.list.Path()), err)
	}
	if added {
		l.logger.WarnWithFields("URL added to invalid-url ledger", map[string]interface{}{
			"url":     string(url),
			"entries": l.list.Len(),
		})
	}
	return nil
}

// Len returns the number of ledger entries.
func (l *Ledger) Len() int {
	return l.list.Len()
}
