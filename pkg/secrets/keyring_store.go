package secrets

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "clipharvest"

// KeyringStore keeps secrets in the system keychain
type KeyringStore struct{}

// NewKeyringStore returns a keyring store if the keychain is usable
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

func (k *KeyringStore) Store(secret *Secret) error {
	if secret == nil || secret.Name == "" {
		return ErrInvalidSecret
	}

	data, err := json.Marshal(secret)
	if err != nil {
		return fmt.Errorf("failed to marshal secret: %w", err)
	}
	if err := keyring.Set(keyringService, secret.Name, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Retrieve(name string) (*Secret, error) {
	if name == "" {
		return nil, ErrInvalidSecret
	}

	data, err := keyring.Get(keyringService, name)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var secret Secret
	if err := json.Unmarshal([]byte(data), &secret); err != nil {
		return nil, fmt.Errorf("failed to unmarshal secret: %w", err)
	}
	return &secret, nil
}

// List checks the known names only; go-keyring cannot enumerate entries.
func (k *KeyringStore) List() ([]*Secret, error) {
	secrets := []*Secret{}
	for _, name := range KnownNames {
		if secret, err := k.Retrieve(name); err == nil {
			secrets = append(secrets, secret)
		}
	}
	return secrets, nil
}

func (k *KeyringStore) Delete(name string) error {
	if name == "" {
		return ErrInvalidSecret
	}

	if err := keyring.Delete(keyringService, name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

func (k *KeyringStore) Exists(name string) bool {
	if name == "" {
		return false
	}
	_, err := keyring.Get(keyringService, name)
	return err == nil
}
