package secrets

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"clipharvest/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestManagerFallback(t *testing.T) {
	failing := NewMockStore()
	failing.StoreError = stderrors.New("locked")
	backup := NewMockStore()
	manager := NewManagerWithStores(failing, backup)

	require.NoError(t, manager.Store(YouTubeAPIKey, "AIzaSyExampleKey0000"))
	assert.Equal(t, 0, failing.Count())
	assert.Equal(t, 1, backup.Count())

	v, err := manager.Retrieve(YouTubeAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "AIzaSyExampleKey0000", v)

	_, err = manager.Retrieve(TikTokMSToken)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, manager.Delete(YouTubeAPIKey))
	assert.ErrorIs(t, manager.Delete(YouTubeAPIKey), ErrNotFound)
}

func TestManagerValidation(t *testing.T) {
	manager := NewManagerWithStores(NewMockStore())
	assert.Error(t, manager.Store("", "v"))
	assert.Error(t, manager.Store(YouTubeAPIKey, ""))
}

func TestManagerListPrefersNewest(t *testing.T) {
	older := NewMockStore()
	newer := NewMockStore()
	require.NoError(t, older.Store(&Secret{Name: TikTokMSToken, Value: "old", LastModified: time.Now().Add(-time.Hour)}))
	require.NoError(t, newer.Store(&Secret{Name: TikTokMSToken, Value: "new", LastModified: time.Now()}))
	require.NoError(t, newer.Store(&Secret{Name: YouTubeAPIKey, Value: "key", LastModified: time.Now()}))

	list, err := NewManagerWithStores(older, newer).List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, TikTokMSToken, list[0].Name)
	assert.Equal(t, "new", list[0].Value)
	assert.Equal(t, YouTubeAPIKey, list[1].Name)
}

func TestResolve(t *testing.T) {
	store := NewMockStore()
	require.NoError(t, store.Store(&Secret{Name: YouTubeAPIKey, Value: "from-store"}))
	require.NoError(t, store.Store(&Secret{Name: TikTokMSToken, Value: "token"}))
	manager := NewManagerWithStores(store)

	cfg := config.DefaultConfig()
	cfg.YouTube.APIKey = "from-config"
	manager.Resolve(cfg)

	assert.Equal(t, "from-config", cfg.YouTube.APIKey)
	assert.Equal(t, "token", cfg.TikTok.MSToken)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "secrets.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = store.Retrieve(YouTubeAPIKey)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Store(&Secret{Name: YouTubeAPIKey, Value: "plaintext-api-key"}))
	require.NoError(t, store.Store(&Secret{Name: TikTokMSToken, Value: "plaintext-ms-token"}))

	got, err := store.Retrieve(YouTubeAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "plaintext-api-key", got.Value)
	assert.True(t, store.Exists(TikTokMSToken))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(content, []byte("plaintext-api-key")))
	assert.False(t, bytes.Contains(content, []byte("plaintext-ms-token")))

	// a second store with the same passphrase reads the same file
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	list, err := reopened.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, reopened.Delete(YouTubeAPIKey))
	require.NoError(t, reopened.Delete(TikTokMSToken))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.enc")

	t.Setenv(PassphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Secret{Name: YouTubeAPIKey, Value: "v"}))

	t.Setenv(PassphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve(YouTubeAPIKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	store, err := NewEncryptedFileStore(filepath.Join(dir, "secrets.enc"))
	require.NoError(t, err)
	require.NoError(t, store.Store(&Secret{Name: TikTokMSToken, Value: "tok"}))

	info, err := os.Stat(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	reopened, err := NewEncryptedFileStore(filepath.Join(dir, "secrets.enc"))
	require.NoError(t, err)
	got, err := reopened.Retrieve(TikTokMSToken)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Value)
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("CLIPHARVEST_YOUTUBE_API_KEY", "")
	t.Setenv("YOUTUBE_API_KEY", "")
	t.Setenv("API_KEY", "legacy")
	t.Setenv("CLIPHARVEST_TIKTOK_MS_TOKEN", "")
	t.Setenv("ms_token", "")

	store := NewEnvironmentStore()
	got, err := store.Retrieve(YouTubeAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "legacy", got.Value)
	assert.False(t, store.Exists(TikTokMSToken))

	list, err := store.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.ErrorIs(t, store.Store(&Secret{Name: YouTubeAPIKey, Value: "x"}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete(YouTubeAPIKey), ErrStoreUnavailable)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(&Secret{Name: YouTubeAPIKey, Value: "kr"}))
	got, err := store.Retrieve(YouTubeAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "kr", got.Value)

	list, err := store.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Delete(YouTubeAPIKey))
	assert.ErrorIs(t, store.Delete(YouTubeAPIKey), ErrNotFound)
	assert.False(t, store.Exists(YouTubeAPIKey))
}

func TestMask(t *testing.T) {
	assert.Equal(t, "********", Mask("short"))
	assert.Equal(t, "AIza...0000", Mask("AIzaSyExampleKey0000"))
}
