package registry

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"clipharvest/pkg/errors"
	"clipharvest/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingIsPreconditionFailure(t *testing.T) {
	r := Open(filepath.Join(t.TempDir(), "hashtag_set.json"), nil)
	_, err := r.Load()
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestEnsure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "hashtag_set.json")
	log := logger.NewTestLogger()
	r := Open(path, log)

	set, err := r.Ensure("#AI")
	require.NoError(t, err)
	assert.Equal(t, []string{"#AI"}, set)

	// persisted synchronously
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk []string
	require.NoError(t, json.Unmarshal(raw, &onDisk))
	assert.Equal(t, []string{"#AI"}, onDisk)

	set, err = r.Ensure("#ai")
	require.NoError(t, err)
	assert.Equal(t, []string{"#AI"}, set, "membership is case-insensitive")

	set, err = r.Ensure("deepfake")
	require.NoError(t, err)
	assert.Equal(t, []string{"#AI", "#deepfake"}, set)

	loaded, err := r.Load()
	require.NoError(t, err)
	assert.Equal(t, set, loaded)
	assert.Equal(t, 2, log.CountMessages("Hashtag registered"))
}

func TestEnsureIgnoresHashPrefix(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashtag_set.json")
	require.NoError(t, os.WriteFile(path, []byte(`["ai"]`), 0644))
	r := Open(path, nil)

	set, err := r.Ensure("#ai")
	require.NoError(t, err)
	assert.Equal(t, []string{"ai"}, set)

	set, err = r.Ensure("AI")
	require.NoError(t, err)
	assert.Equal(t, []string{"ai"}, set)
}

func TestEnsureRejectsEmpty(t *testing.T) {
	r := Open(filepath.Join(t.TempDir(), "hashtag_set.json"), nil)
	_, err := r.Ensure("  ")
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestEnsureCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hashtag_set.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0644))

	_, err := Open(path, nil).Ensure("#ai")
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "#ai", Normalize(" ai "))
	assert.Equal(t, "#ai", Normalize("#ai"))
	assert.Equal(t, "ai", Tag("#AI"))
	lowered := Lowered([]string{"#AI", "Foo"})
	_, ok := lowered["#foo"]
	assert.True(t, ok)
	assert.Len(t, lowered, 2)
}
