package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"clipharvest/pkg/checkpoint"
	cherrors "clipharvest/pkg/errors"
	"clipharvest/pkg/logger"
	"clipharvest/pkg/models"
	"clipharvest/pkg/registry"
)

// Store owns the data root.
type Store struct {
	root   string
	logger logger.Logger
}

// NewStore creates a store rooted at root. Directories are created lazily on write.
func NewStore(root string, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Store{root: root, logger: log}
}

// Root returns the data root.
func (s *Store) Root() string {
	return s.root
}

// PartitionDir returns the directory holding every country of one hashtag.
func (s *Store) PartitionDir(p models.Platform, hashtag string) string {
	return filepath.Join(s.root, string(p), registry.Tag(hashtag))
}

// TablePath returns the result table of a (platform, hashtag, country) partition.
func (s *Store) TablePath(p models.Platform, hashtag, country string) string {
	tag := registry.Tag(hashtag)
	return filepath.Join(s.PartitionDir(p, hashtag), fmt.Sprintf("%s_%s.csv", tag, country))
}

// SnapshotPath returns the harvested-URL snapshot of a partition.
func (s *Store) SnapshotPath(p models.Platform, hashtag, country string) string {
	tag := registry.Tag(hashtag)
	return filepath.Join(s.PartitionDir(p, hashtag), fmt.Sprintf("%s_%s.json", tag, country))
}

// ExtrasPath returns the final-check backlog table of a platform.
func (s *Store) ExtrasPath(p models.Platform) string {
	return filepath.Join(s.root, string(p), fmt.Sprintf("%s_extra_urls.csv", p))
}

// Tables lists every partition table saved for platform, sorted by path.
func (s *Store) Tables(p models.Platform) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.root, string(p), "*", "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	sort.Strings(paths)
	return paths, nil
}

// WriteTable atomically replaces the table at path with records.
func (s *Store) WriteTable(path string, records []models.VideoRecord) error {
	err := checkpoint.WriteFile(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(Columns); err != nil {
			return err
		}
		for i := range records {
			if err := cw.Write(encodeRecord(&records[i])); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	})
	if err != nil {
		return fmt.Errorf("failed to save table: %w", err)
	}

	s.logger.DebugWithFields("Table saved", map[string]interface{}{
		"path": path,
		"rows": len(records),
	})
	return nil
}

// ReadTable loads the table at path. A missing file is a not-found error.
func (s *Store) ReadTable(path string) ([]models.VideoRecord, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, cherrors.Wrap(cherrors.ErrorTypeNotFound, fmt.Sprintf("result table %s not found", path), err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer file.Close()

	records, err := decodeTable(file)
	if err != nil {
		return nil, cherrors.Wrap(cherrors.ErrorTypeParsing, fmt.Sprintf("failed to parse table %s", path), err)
	}
	return records, nil
}

// ReadTables concatenates the tables at paths in order.
func (s *Store) ReadTables(paths ...string) ([]models.VideoRecord, error) {
	var all []models.VideoRecord
	for _, path := range paths {
		records, err := s.ReadTable(path)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

// SaveSnapshot records the canonical URLs a harvest produced for a partition.
func (s *Store) SaveSnapshot(p models.Platform, hashtag, country string, urls []models.CanonicalURL) error {
	items := make([]string, len(urls))
	for i, u := range urls {
		items[i] = string(u)
	}
	path := s.SnapshotPath(p, hashtag, country)
	if err := checkpoint.SaveJSON(path, items); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	s.logger.DebugWithFields("Snapshot saved", map[string]interface{}{
		"path": path,
		"urls": len(urls),
	})
	return nil
}

// LoadSnapshot returns a partition's harvested URLs; found is false when no
// harvest was ever saved for it.
func (s *Store) LoadSnapshot(p models.Platform, hashtag, country string) (urls []models.CanonicalURL, found bool, err error) {
	var items []string
	found, err = checkpoint.LoadJSON(s.SnapshotPath(p, hashtag, country), &items)
	if err != nil || !found {
		return nil, found, err
	}

	urls = make([]models.CanonicalURL, len(items))
	for i, item := range items {
		urls[i] = models.CanonicalURL(item)
	}
	return urls, true, nil
}
