package blob

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewStore(t *testing.T) {
	t.Run("create store creates attachments directory", func(t *testing.T) {
		root := t.TempDir()
		store, err := NewStore(root)
		require.NoError(t, err)

		info, err := os.Stat(filepath.Join(root, "attachments"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, filepath.Join(root, "attachments"), store.Dir())
	})
}

func TestPut(t *testing.T) {
	store := setupTestStore(t)

	t.Run("put returns sha256 digest of content", func(t *testing.T) {
		content := []byte("attachment body")
		digest, err := store.Put(strings.NewReader(string(content)))
		require.NoError(t, err)

		sum := sha256.Sum256(content)
		assert.Equal(t, hex.EncodeToString(sum[:]), digest)

		got, err := store.Get(digest)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("put same content twice stores single file", func(t *testing.T) {
		content := []byte("duplicate content")
		d1, err := store.Put(strings.NewReader(string(content)))
		require.NoError(t, err)
		d2, err := store.Put(strings.NewReader(string(content)))
		require.NoError(t, err)
		assert.Equal(t, d1, d2)

		entries, err := os.ReadDir(store.Dir())
		require.NoError(t, err)
		count := 0
		for _, e := range entries {
			if e.Name() == d1 {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	t.Run("put leaves no temp files behind", func(t *testing.T) {
		_, err := store.PutBytes([]byte("cleanup check"))
		require.NoError(t, err)

		entries, err := os.ReadDir(store.Dir())
		require.NoError(t, err)
		for _, e := range entries {
			assert.False(t, strings.HasPrefix(e.Name(), ".upload-"), "leftover temp file: %s", e.Name())
		}
	})

	t.Run("put empty content", func(t *testing.T) {
		digest, err := store.PutBytes(nil)
		require.NoError(t, err)

		sum := sha256.Sum256(nil)
		assert.Equal(t, hex.EncodeToString(sum[:]), digest)
		assert.True(t, store.Exists(digest))
	})
}

func TestOpen(t *testing.T) {
	store := setupTestStore(t)

	t.Run("open existing attachment", func(t *testing.T) {
		digest, err := store.PutBytes([]byte("stream me"))
		require.NoError(t, err)

		reader, err := store.Open(digest)
		require.NoError(t, err)
		defer reader.Close()

		content, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, []byte("stream me"), content)
	})

	t.Run("open missing attachment returns ErrNotFound", func(t *testing.T) {
		missing := strings.Repeat("ab", 32)
		_, err := store.Open(missing)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("open with malformed digest returns ErrInvalidDigest", func(t *testing.T) {
		_, err := store.Open("../../../etc/passwd")
		assert.ErrorIs(t, err, ErrInvalidDigest)

		_, err = store.Open("ABCDEF")
		assert.ErrorIs(t, err, ErrInvalidDigest)

		_, err = store.Open("")
		assert.ErrorIs(t, err, ErrInvalidDigest)
	})
}

func TestSize(t *testing.T) {
	store := setupTestStore(t)

	t.Run("size of stored attachment", func(t *testing.T) {
		content := []byte("twelve bytes")
		digest, err := store.PutBytes(content)
		require.NoError(t, err)

		size, err := store.Size(digest)
		require.NoError(t, err)
		assert.Equal(t, int64(len(content)), size)
	})

	t.Run("size of missing attachment returns ErrNotFound", func(t *testing.T) {
		missing := strings.Repeat("cd", 32)
		_, err := store.Size(missing)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestExists(t *testing.T) {
	store := setupTestStore(t)

	digest, err := store.PutBytes([]byte("present"))
	require.NoError(t, err)

	assert.True(t, store.Exists(digest))
	assert.False(t, store.Exists(strings.Repeat("ef", 32)))
	assert.False(t, store.Exists("not-a-digest"))
}
