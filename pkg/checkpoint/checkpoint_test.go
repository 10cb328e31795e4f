package checkpoint

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out.txt")

	t.Run("CreatesParentsAndWrites", func(t *testing.T) {
		err := WriteFile(path, func(w io.Writer) error {
			_, err := io.WriteString(w, "first")
			return err
		})
		require.NoError(t, err)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "first", string(data))
	})

	t.Run("FailedWriteKeepsPreviousContent", func(t *testing.T) {
		err := WriteFile(path, func(w io.Writer) error {
			_, _ = io.WriteString(w, "partial")
			return errors.New("encoder exploded")
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "encoder exploded")

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "first", string(data))

		entries, err := os.ReadDir(filepath.Dir(path))
		require.NoError(t, err)
		assert.Len(t, entries, 1, "temporary file must be cleaned up")
	})
}

func TestSaveAndLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")

	var missing []string
	found, err := LoadJSON(path, &missing)
	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, Exists(path))

	require.NoError(t, SaveJSON(path, []string{"https://www.youtube.com/shorts/a&b"}))
	assert.True(t, Exists(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "a&b", "html escaping must be disabled")
	assert.Contains(t, string(raw), "\n  \"", "output must be indented")

	var loaded []string
	found, err = LoadJSON(path, &loaded)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"https://www.youtube.com/shorts/a&b"}, loaded)

	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))
	found, err = LoadJSON(path, &loaded)
	assert.True(t, found)
	assert.Error(t, err)
}

func TestList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "set.json")

	t.Run("MissingFileIsEmpty", func(t *testing.T) {
		l, found, err := OpenList(path)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, 0, l.Len())
	})

	t.Run("AddPersistsImmediately", func(t *testing.T) {
		l, _, err := OpenList(path)
		require.NoError(t, err)

		added, err := l.Add("b")
		require.NoError(t, err)
		assert.True(t, added)
		added, err = l.Add("a")
		require.NoError(t, err)
		assert.True(t, added)
		added, err = l.Add("b")
		require.NoError(t, err)
		assert.False(t, added)

		reopened, found, err := OpenList(path)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, []string{"b", "a"}, reopened.Items())
		assert.True(t, reopened.Contains("a"))
		assert.False(t, reopened.Contains("A"))
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		l, _, err := OpenList(filepath.Join(t.TempDir(), "tags.json"), WithKey(strings.ToLower))
		require.NoError(t, err)

		added, err := l.Add("#AI")
		require.NoError(t, err)
		assert.True(t, added)
		added, err = l.Add("#ai")
		require.NoError(t, err)
		assert.False(t, added)

		assert.True(t, l.Contains("#Ai"))
		assert.Equal(t, []string{"#AI"}, l.Items())
	})

	t.Run("WithKey", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tags.json")
		require.NoError(t, os.WriteFile(path, []byte(`["ai", "#AI", "art"]`), 0644))

		l, _, err := OpenList(path, WithKey(func(s string) string {
			return strings.ToLower(strings.TrimPrefix(s, "#"))
		}))
		require.NoError(t, err)
		assert.Equal(t, []string{"ai", "art"}, l.Items(), "duplicates by key collapse on load")

		added, err := l.Add("#Art")
		require.NoError(t, err)
		assert.False(t, added)
	})

	t.Run("PersistEmptyWritesArray", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "empty.json")
		l, _, err := OpenList(p)
		require.NoError(t, err)
		require.NoError(t, l.Persist())

		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "[]\n", string(data))
	})
}
