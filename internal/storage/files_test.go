package storage

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/JustJay7/court-data-service/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(filepath.Join(t.TempDir(), "downloads"), logger.NewNop())
	require.NoError(t, err)
	fs.now = func() time.Time { return time.Date(2024, time.October, 2, 10, 0, 0, 0, time.UTC) }
	return fs
}

func TestSaveAndOpen(t *testing.T) {
	fs := newTestStore(t)

	stored, err := fs.Save(42, []byte("%PDF-1.4 body"))
	require.NoError(t, err)

	assert.Equal(t, int64(len("%PDF-1.4 body")), stored.Size)
	assert.Regexp(t, `^judgment_42_[0-9A-Z]{26}\.pdf$`, stored.Filename)
	assert.Equal(t, filepath.Join(fs.Root(), "2024", "10", stored.Filename), stored.Path)

	f, err := fs.Open(stored.Path)
	require.NoError(t, err)
	defer f.Close()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4 body", string(data))
}

func TestSaveGeneratesDistinctNames(t *testing.T) {
	fs := newTestStore(t)

	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		stored, err := fs.Save(1, []byte("x"))
		require.NoError(t, err)
		assert.False(t, seen[stored.Filename], "duplicate filename %s", stored.Filename)
		seen[stored.Filename] = true
	}
}

func TestRemove(t *testing.T) {
	fs := newTestStore(t)

	stored, err := fs.Save(7, []byte("data"))
	require.NoError(t, err)

	require.NoError(t, fs.Remove(stored.Path))
	_, err = os.Stat(stored.Path)
	assert.True(t, os.IsNotExist(err))

	assert.NoError(t, fs.Remove(stored.Path), "removing twice is not an error")
}

func TestPathsOutsideRootAreRefused(t *testing.T) {
	fs := newTestStore(t)

	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0600))

	_, err := fs.Open(outside)
	assert.Error(t, err)
	assert.Error(t, fs.Remove(outside))
	_, err = fs.Open(filepath.Join(fs.Root(), "..", "secret.txt"))
	assert.Error(t, err)

	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestNewFileStoreRequiresRoot(t *testing.T) {
	_, err := NewFileStore("", logger.NewNop())
	assert.Error(t, err)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"judgment_1.pdf":        "judgment_1.pdf",
		"../../etc/passwd":      "passwd",
		"order dated 1/2.pdf":   "2.pdf",
		"weird name (copy).pdf": "weird_name_copy_.pdf",
		"...":                   "document",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}
