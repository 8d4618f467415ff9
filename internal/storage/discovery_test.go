package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverDatabase(t *testing.T) {
	t.Run("env override wins", func(t *testing.T) {
		t.Setenv("CURATOR_DB_PATH", ":memory:")
		path, err := DiscoverDatabase()
		require.NoError(t, err)
		assert.Equal(t, ":memory:", path)
	})

	t.Run("finds db in current directory", func(t *testing.T) {
		t.Setenv("CURATOR_DB_PATH", "")
		dir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(dir, ".curator"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".curator", "curator.db"), nil, 0o644))
		t.Chdir(dir)

		path, err := DiscoverDatabase()
		require.NoError(t, err)
		assert.Equal(t, "curator.db", filepath.Base(path))
		assert.True(t, filepath.IsAbs(path))
	})

	t.Run("does not search parent directories", func(t *testing.T) {
		t.Setenv("CURATOR_DB_PATH", "")
		parent := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(parent, ".curator"), 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(parent, ".curator", "curator.db"), nil, 0o644))

		nested := filepath.Join(parent, "sub")
		require.NoError(t, os.MkdirAll(nested, 0o755))
		t.Chdir(nested)

		_, err := DiscoverDatabase()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "curator init")
	})
}

func TestInitCorpus(t *testing.T) {
	t.Run("creates the curator directory", func(t *testing.T) {
		dir := t.TempDir()
		path, err := InitCorpus(dir, "")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, ".curator", "curator.db"), path)
		assert.DirExists(t, filepath.Join(dir, ".curator"))
	})

	t.Run("custom name gets the db suffix", func(t *testing.T) {
		dir := t.TempDir()
		path, err := InitCorpus(dir, "backend-questions")
		require.NoError(t, err)
		assert.Equal(t, "backend-questions.db", filepath.Base(path))
	})

	t.Run("refuses to clobber an existing corpus", func(t *testing.T) {
		dir := t.TempDir()
		path, err := InitCorpus(dir, "")
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, nil, 0o644))

		_, err = InitCorpus(dir, "")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
	})

	t.Run("missing project directory", func(t *testing.T) {
		_, err := InitCorpus(filepath.Join(t.TempDir(), "gone"), "")
		assert.Error(t, err)
	})
}
