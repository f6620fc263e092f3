package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dux/internal/domain"
)

func newTestStore(t *testing.T) *CacheStore {
	t.Helper()
	store, err := NewCacheStoreAt(t.TempDir(), nil)
	require.NoError(t, err)
	return store
}

// scanAndSave scans a real directory and persists the snapshot, so the
// staleness stamps in the metadata match the filesystem.
func scanAndSave(t *testing.T, store *CacheStore, dir string, config CachedScanConfig) ScanResult {
	t.Helper()
	scanner := NewFSScanner(nil)
	tree, result, err := scanner.Scan(context.Background(), ScanRequest{RootPath: dir})
	require.NoError(t, err)
	require.NoError(t, store.Save(tree, config))
	return result
}

func TestCacheStore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "b"), 32*1024)
	writeFile(t, filepath.Join(dir, "c"), 8*1024)

	store := newTestStore(t)
	config := CachedScanConfig{}
	result := scanAndSave(t, store, dir, config)

	tree, ok := store.Load(dir, config)
	require.True(t, ok)
	assert.Equal(t, result.Bytes, tree.TotalSize())
	assert.Equal(t, result.Files, tree.TotalFiles())

	_, found := tree.FindByPath(filepath.Join(dir, "a", "b"))
	assert.True(t, found)
}

func TestCacheStore_MissingFile(t *testing.T) {
	store := newTestStore(t)
	_, ok := store.Load(t.TempDir(), CachedScanConfig{})
	assert.False(t, ok)
}

func TestCacheStore_ConfigMismatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "f"), 1024)

	store := newTestStore(t)
	scanAndSave(t, store, dir, CachedScanConfig{})

	_, ok := store.Load(dir, CachedScanConfig{FollowSymlinks: true})
	assert.False(t, ok)
	_, ok = store.Load(dir, CachedScanConfig{MaxDepth: 3})
	assert.False(t, ok)
	_, ok = store.Load(dir, CachedScanConfig{})
	assert.True(t, ok)
}

func TestCacheStore_CorruptionRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "f"), 1024)

	store := newTestStore(t)
	scanAndSave(t, store, dir, CachedScanConfig{})
	path := store.PathFor(dir)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// Flip a byte in the middle: the checksum must catch it.
	corrupted := append([]byte(nil), data...)
	corrupted[len(corrupted)/2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, corrupted, 0o600))
	_, ok := store.Load(dir, CachedScanConfig{})
	assert.False(t, ok)

	// Truncation.
	require.NoError(t, os.WriteFile(path, data[:len(data)/2], 0o600))
	_, ok = store.Load(dir, CachedScanConfig{})
	assert.False(t, ok)

	// Too short to even hold the envelope.
	require.NoError(t, os.WriteFile(path, []byte("DUXC"), 0o600))
	_, ok = store.Load(dir, CachedScanConfig{})
	assert.False(t, ok)

	// The intact original still loads.
	require.NoError(t, os.WriteFile(path, data, 0o600))
	_, ok = store.Load(dir, CachedScanConfig{})
	assert.True(t, ok)
}

func TestCacheStore_WrongMagicRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "f"), 1024)

	store := newTestStore(t)
	scanAndSave(t, store, dir, CachedScanConfig{})
	path := store.PathFor(dir)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	copy(data, "NOPE")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, ok := store.Load(dir, CachedScanConfig{})
	assert.False(t, ok)
}

func TestCacheStore_RootMtimeChangeInvalidates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "f"), 1024)

	store := newTestStore(t)
	scanAndSave(t, store, dir, CachedScanConfig{})

	stamp := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(dir, stamp, stamp))

	_, ok := store.Load(dir, CachedScanConfig{})
	assert.False(t, ok)
}

func TestCacheStore_TouchedSubdirInvalidates(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "sub", "f"), 32*1024)

	store := newTestStore(t)
	scanAndSave(t, store, dir, CachedScanConfig{})

	// Touch the subdirectory only; the root mtime stays as recorded.
	rootInfo, err := os.Stat(dir)
	require.NoError(t, err)
	stamp := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "sub"), stamp, stamp))
	require.NoError(t, os.Chtimes(dir, rootInfo.ModTime(), rootInfo.ModTime()))

	_, ok := store.Load(dir, CachedScanConfig{})
	assert.False(t, ok)
}

func TestCacheStore_SaveAfterDeletionStaysFresh(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "junk", "f"), 32*1024)
	writeFile(t, filepath.Join(dir, "keep"), 1024)

	scanner := NewFSScanner(nil)
	tree, _, err := scanner.Scan(context.Background(), ScanRequest{RootPath: dir})
	require.NoError(t, err)

	// Deleting a direct child of the root moves the root's mtime past
	// the scan-time value the tree carries.
	junk, ok := tree.FindByPath(filepath.Join(dir, "junk"))
	require.True(t, ok)
	handle := NewFSDeleter(nil).Delete(tree, []domain.NodeID{junk})
	handle.Wait()
	require.Equal(t, 0, handle.Result().Failures)

	store := newTestStore(t)
	require.NoError(t, store.Save(tree, CachedScanConfig{}))

	// The very next session must reuse the snapshot, deleted entry absent.
	loaded, ok := store.Load(dir, CachedScanConfig{})
	require.True(t, ok)
	_, found := loaded.FindByPath(filepath.Join(dir, "junk"))
	assert.False(t, found)
	_, found = loaded.FindByPath(filepath.Join(dir, "keep"))
	assert.True(t, found)
}

func TestCacheStore_Invalidate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "f"), 1024)

	store := newTestStore(t)
	scanAndSave(t, store, dir, CachedScanConfig{})

	_, ok := store.Load(dir, CachedScanConfig{})
	require.True(t, ok)

	store.Invalidate(dir)
	_, ok = store.Load(dir, CachedScanConfig{})
	assert.False(t, ok)
}

func TestCacheStore_PathForDistinctRoots(t *testing.T) {
	store := newTestStore(t)
	first := store.PathFor("/data/one")
	second := store.PathFor("/data/two")
	assert.NotEqual(t, first, second)
	assert.Equal(t, first, store.PathFor("/data/one"))
}
