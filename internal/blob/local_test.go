package blob_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askthws/harvester/internal/blob"
)

func TestNewLocalStore(t *testing.T) {
	t.Run("ValidBaseDir", func(t *testing.T) {
		store, err := blob.NewLocalStore(t.TempDir())
		require.NoError(t, err)
		assert.NotNil(t, store)
	})

	t.Run("MissingBaseDir", func(t *testing.T) {
		_, err := blob.NewLocalStore("")
		assert.Error(t, err)
	})

	t.Run("BaseDirIsNotADirectory", func(t *testing.T) {
		tempFile, err := os.CreateTemp("", "blobfile")
		require.NoError(t, err)
		t.Cleanup(func() {
			if removeErr := os.Remove(tempFile.Name()); removeErr != nil && !os.IsNotExist(removeErr) {
				t.Fatalf("failed to remove temp file: %v", removeErr)
			}
		})

		_, err = blob.NewLocalStore(tempFile.Name())
		assert.Error(t, err)
	})

	t.Run("CreatesMissingDirectory", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "nested", "payloads")
		store, err := blob.NewLocalStore(base)
		require.NoError(t, err)
		assert.NotNil(t, store)

		info, err := os.Stat(base)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})
}

func TestLocalStorePut(t *testing.T) {
	tempDir := t.TempDir()
	store, err := blob.NewLocalStore(tempDir)
	require.NoError(t, err)

	t.Run("ValidPut", func(t *testing.T) {
		key := "fiw.thws.de/fileadmin_handbuch.pdf"
		data := []byte("%PDF-1.7 payload")
		uri, err := store.Put(context.Background(), key, "application/pdf", data)
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(tempDir, key), uri)

		// #nosec G304 -- test reads from the controlled temp directory.
		readData, err := os.ReadFile(filepath.Join(tempDir, key))
		require.NoError(t, err)
		assert.Equal(t, data, readData)
	})

	t.Run("EmptyKey", func(t *testing.T) {
		_, err := store.Put(context.Background(), "", "application/pdf", []byte("data"))
		assert.Error(t, err)
	})

	t.Run("PathTraversalRejected", func(t *testing.T) {
		_, err := store.Put(context.Background(), "../escape.pdf", "application/pdf", []byte("data"))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "path traversal")
	})
}

func TestMemoryStorePut(t *testing.T) {
	store := blob.NewMemoryStore()

	uri, err := store.Put(context.Background(), "www.thws.de/termine.ics", "text/calendar", []byte("BEGIN:VCALENDAR"))
	require.NoError(t, err)
	assert.Equal(t, "memory://www.thws.de/termine.ics", uri)

	data, ok := store.Get("www.thws.de/termine.ics")
	require.True(t, ok)
	assert.Equal(t, []byte("BEGIN:VCALENDAR"), data)
	assert.Equal(t, 1, store.Len())

	// The store keeps its own copy of the payload.
	original := []byte("mutable")
	_, err = store.Put(context.Background(), "copy", "text/plain", original)
	require.NoError(t, err)
	original[0] = 'X'
	data, _ = store.Get("copy")
	assert.Equal(t, []byte("mutable"), data)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := blob.Open(context.Background(), blob.Config{Backend: "s3"})
	assert.Error(t, err)
}
