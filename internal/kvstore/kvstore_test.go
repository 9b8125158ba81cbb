package kvstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreMissingKey(t *testing.T) {
	store := NewFileStore(t.TempDir())

	value, found, err := store.GetItem("upload.queue.v1")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir())

	err := store.SetItem("upload.queue.v1", []byte(`[{"kind":"wardrobe"}]`))
	require.NoError(t, err)

	value, found, err := store.GetItem("upload.queue.v1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `[{"kind":"wardrobe"}]`, string(value))
}

func TestFileStoreOverwrite(t *testing.T) {
	store := NewFileStore(t.TempDir())

	require.NoError(t, store.SetItem("key", []byte("first")))
	require.NoError(t, store.SetItem("key", []byte("second")))

	value, found, err := store.GetItem("key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "second", string(value))
}

func TestFileStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "state", "queue")
	store := NewFileStore(dir)

	require.NoError(t, store.SetItem("key", []byte("value")))

	_, err := os.Stat(dir)
	require.NoError(t, err)
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir)

	require.NoError(t, store.SetItem("closet/upload/queue", []byte("value")))

	value, found, err := store.GetItem("closet/upload/queue")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", string(value))

	// No nested directories should have been created
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, entry.IsDir())
	}
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()

	_, found, err := store.GetItem("key")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SetItem("key", []byte("value")))

	value, found, err := store.GetItem("key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", string(value))
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	store := NewMemoryStore()

	original := []byte("value")
	require.NoError(t, store.SetItem("key", original))
	original[0] = 'x'

	value, _, err := store.GetItem("key")
	require.NoError(t, err)
	assert.Equal(t, "value", string(value))
}
