package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportStoreSanitizesPaths(t *testing.T) {
	dir := t.TempDir()
	store, err := NewExportStore(dir)
	require.NoError(t, err)

	full, err := store.Path("../../etc/passwd")
	require.NoError(t, err)
	assert.Contains(t, full, dir)

	rel, err := store.Save("requests/a.csv", []byte("data"))
	require.NoError(t, err)

	file, err := store.Open(rel)
	require.NoError(t, err)
	require.NoError(t, file.Close())
}

func TestExportStoreCleanupOlderThan(t *testing.T) {
	store, err := NewExportStore(t.TempDir())
	require.NoError(t, err)

	rel, err := store.Save("requests/old.csv", []byte("data"))
	require.NoError(t, err)

	removed, err := store.CleanupOlderThan(-time.Minute)
	require.NoError(t, err)
	assert.Contains(t, removed, rel)

	_, err = store.Open(rel)
	assert.Error(t, err)
}
