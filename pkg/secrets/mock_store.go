package secrets

import "sync"

// MockStore is an in-memory Store for tests.
type MockStore struct {
	secrets map[string]*Secret
	mu      sync.RWMutex

	// Error injection
	StoreError    error
	RetrieveError error
	DeleteError   error
}

// NewMockStore creates an empty mock store
func NewMockStore() *MockStore {
	return &MockStore{secrets: make(map[string]*Secret)}
}

func (m *MockStore) Store(secret *Secret) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if secret == nil || secret.Name == "" {
		return ErrInvalidSecret
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	c := *secret
	m.secrets[secret.Name] = &c
	return nil
}

func (m *MockStore) Retrieve(name string) (*Secret, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.secrets[name]
	if !ok {
		return nil, ErrNotFound
	}
	c := *s
	return &c, nil
}

func (m *MockStore) List() ([]*Secret, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Secret, 0, len(m.secrets))
	for _, s := range m.secrets {
		c := *s
		out = append(out, &c)
	}
	return out, nil
}

func (m *MockStore) Delete(name string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.secrets[name]; !ok {
		return ErrNotFound
	}
	delete(m.secrets, name)
	return nil
}

func (m *MockStore) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.secrets[name]
	return ok
}

// Count returns the number of stored secrets
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.secrets)
}
