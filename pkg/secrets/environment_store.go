package secrets

import (
	"os"
	"time"
)

// envVars maps secret names to the variables that may carry them, in priority order.
var envVars = map[string][]string{
	YouTubeAPIKey: {"CLIPHARVEST_YOUTUBE_API_KEY", "YOUTUBE_API_KEY", "API_KEY"},
	TikTokMSToken: {"CLIPHARVEST_TIKTOK_MS_TOKEN", "ms_token"},
}

// EnvironmentStore reads secrets from environment variables. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based secret store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(secret *Secret) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(name string) (*Secret, error) {
	for _, key := range envVars[name] {
		if v := os.Getenv(key); v != "" {
			return &Secret{Name: name, Value: v, LastModified: time.Time{}}, nil
		}
	}
	return nil, ErrNotFound
}

func (e *EnvironmentStore) List() ([]*Secret, error) {
	secrets := []*Secret{}
	for _, name := range KnownNames {
		if secret, err := e.Retrieve(name); err == nil {
			secrets = append(secrets, secret)
		}
	}
	return secrets, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(name string) bool {
	_, err := e.Retrieve(name)
	return err == nil
}
