// Package secrets stores the credentials clipharvest needs: the YouTube Data
// API key and the optional TikTok ms_token.
//
// Secrets are looked up in order from the system keyring, an AES-GCM
// encrypted file, and finally the environment. Writes go to the first store
// that accepts them.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"clipharvest/pkg/config"
)

// Well-known secret names.
const (
	YouTubeAPIKey = "youtube-api-key"
	TikTokMSToken = "tiktok-ms-token"
)

// KnownNames lists every secret clipharvest reads.
var KnownNames = []string{YouTubeAPIKey, TikTokMSToken}

// Errors
var (
	ErrNotFound         = errors.New("secret not found")
	ErrInvalidSecret    = errors.New("invalid secret")
	ErrStoreUnavailable = errors.New("secret store unavailable")
)

// Secret is one named credential.
type Secret struct {
	Name         string    `json:"name"`
	Value        string    `json:"value"`
	LastModified time.Time `json:"last_modified"`
}

// Store is a secret backend.
type Store interface {
	Store(secret *Secret) error
	Retrieve(name string) (*Secret, error)
	List() ([]*Secret, error)
	Delete(name string) error
	Exists(name string) bool
}

// Manager chains stores with fallback.
type Manager struct {
	stores []Store
}

// NewManager builds the default chain with the encrypted file under dir.
func NewManager(dir string) (*Manager, error) {
	var stores []Store

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(dir, "secrets.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over stores, in lookup order.
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Store saves a secret in the first store that accepts it.
func (m *Manager) Store(name, value string) error {
	if name == "" {
		return errors.New("secret name is required")
	}
	if value == "" {
		return errors.New("secret value is required")
	}

	secret := &Secret{Name: name, Value: value, LastModified: time.Now()}
	var lastErr error
	for _, store := range m.stores {
		err := store.Store(secret)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store secret: %w", lastErr)
	}
	return errors.New("no available secret stores")
}

// Retrieve returns the value from the first store that has it.
func (m *Manager) Retrieve(name string) (string, error) {
	for _, store := range m.stores {
		if secret, err := store.Retrieve(name); err == nil && secret != nil {
			return secret.Value, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// List returns the most recent version of every secret, sorted by name.
func (m *Manager) List() ([]*Secret, error) {
	byName := make(map[string]*Secret)
	for _, store := range m.stores {
		secrets, err := store.List()
		if err != nil {
			continue
		}
		for _, s := range secrets {
			if existing, ok := byName[s.Name]; !ok || s.LastModified.After(existing.LastModified) {
				byName[s.Name] = s
			}
		}
	}

	result := make([]*Secret, 0, len(byName))
	for _, s := range byName {
		result = append(result, s)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Delete removes a secret from every store holding it.
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error
	for _, store := range m.stores {
		err := store.Delete(name)
		switch {
		case err == nil:
			deleted = true
		case !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrStoreUnavailable):
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete secret: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return nil
}

// Resolve fills credentials the configuration leaves empty.
func (m *Manager) Resolve(cfg *config.Config) {
	if cfg.YouTube.APIKey == "" {
		if v, err := m.Retrieve(YouTubeAPIKey); err == nil {
			cfg.YouTube.APIKey = v
		}
	}
	if cfg.TikTok.MSToken == "" {
		if v, err := m.Retrieve(TikTokMSToken); err == nil {
			cfg.TikTok.MSToken = v
		}
	}
}

// Mask hides all but the first and last 4 characters of value.
func Mask(value string) string {
	if len(value) <= 8 {
		return "********"
	}
	return value[:4] + "..." + value[len(value)-4:]
}

// ConfigDir returns the per-user clipharvest directory, creating it.
func ConfigDir() (string, error) {
	var dir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, "Library", "Application Support", "clipharvest")
	case "windows":
		dir = filepath.Join(os.Getenv("APPDATA"), "clipharvest")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			dir = filepath.Join(xdg, "clipharvest")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config", "clipharvest")
		}
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}
