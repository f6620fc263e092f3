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

// writeFile creates a file with n bytes of content. Reported sizes come
// from allocated blocks, so tests compare structure and relative sizes,
// never exact byte counts.
func writeFile(t *testing.T, path string, n int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, make([]byte, n), 0o644))
}

func scanTempTree(t *testing.T, req ScanRequest) (*domain.Tree, ScanResult) {
	t.Helper()
	scanner := NewFSScanner(nil)
	tree, result, err := scanner.Scan(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, tree)
	return tree, result
}

func TestFSScanner_BuildsTree(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "b"), 64*1024)
	writeFile(t, filepath.Join(dir, "a", "c"), 16*1024)
	writeFile(t, filepath.Join(dir, "d"), 4*1024)

	tree, result := scanTempTree(t, ScanRequest{RootPath: dir})

	assert.Equal(t, int64(3), result.Files)
	assert.Equal(t, int64(1), result.Dirs)
	assert.Equal(t, int64(0), result.Errors)
	assert.GreaterOrEqual(t, result.Bytes, int64(84*1024))

	a, ok := tree.FindByPath(filepath.Join(dir, "a"))
	require.True(t, ok)
	b, ok := tree.FindByPath(filepath.Join(dir, "a", "b"))
	require.True(t, ok)

	nodeA, _ := tree.Get(a)
	nodeB, _ := tree.Get(b)
	assert.True(t, nodeA.Kind.IsDirectory())
	assert.Equal(t, domain.KindFile, nodeB.Kind)
	assert.False(t, nodeA.ModTime.IsZero())

	// Directory sizes aggregate their children.
	sizeA, _ := tree.SizeOf(a)
	sizeB, _ := tree.SizeOf(b)
	assert.GreaterOrEqual(t, sizeA, sizeB)
	assert.Equal(t, result.Bytes, tree.TotalSize())
	assert.Equal(t, int64(3), tree.TotalFiles())

	// Children are sorted largest-first after the scan.
	children := tree.Children(a)
	require.Len(t, children, 2)
	assert.Equal(t, b, children[0])
}

func TestFSScanner_MissingRootFails(t *testing.T) {
	scanner := NewFSScanner(nil)
	_, _, err := scanner.Scan(context.Background(), ScanRequest{
		RootPath: filepath.Join(t.TempDir(), "nope"),
	})
	assert.ErrorIs(t, err, ErrRootUnavailable)
}

func TestFSScanner_FileRootFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "plain"), 10)

	scanner := NewFSScanner(nil)
	_, _, err := scanner.Scan(context.Background(), ScanRequest{
		RootPath: filepath.Join(dir, "plain"),
	})
	assert.ErrorIs(t, err, ErrRootUnavailable)
}

func TestFSScanner_SkipOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "keep", "f"), 1024)
	writeFile(t, filepath.Join(dir, "ignored", "g"), 1024)

	tree, result := scanTempTree(t, ScanRequest{
		RootPath:      dir,
		SkipOverrides: []string{"ignored"},
	})

	assert.Equal(t, int64(1), result.Skipped)
	assert.Equal(t, int64(1), result.Files)

	// The skipped directory is present and flagged, but never descended.
	id, ok := tree.FindByPath(filepath.Join(dir, "ignored"))
	require.True(t, ok)
	node, _ := tree.Get(id)
	assert.True(t, node.Skipped)
	assert.Empty(t, tree.Children(id))
}

func TestFSScanner_MaxDepth(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "one", "two", "deep"), 1024)

	tree, _ := scanTempTree(t, ScanRequest{RootPath: dir, MaxDepth: 1})

	_, ok := tree.FindByPath(filepath.Join(dir, "one"))
	assert.True(t, ok)
	_, ok = tree.FindByPath(filepath.Join(dir, "one", "two"))
	assert.False(t, ok)
}

func TestFSScanner_SymlinksNotFollowedByDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "real", "f"), 4096)
	require.NoError(t, os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "link")))

	tree, result := scanTempTree(t, ScanRequest{RootPath: dir})

	id, ok := tree.FindByPath(filepath.Join(dir, "link"))
	require.True(t, ok)
	node, _ := tree.Get(id)
	assert.Equal(t, domain.KindSymlink, node.Kind)
	assert.Empty(t, tree.Children(id))
	assert.Equal(t, int64(1), result.Dirs)
}

func TestFSScanner_FollowSymlinksGuardsCycles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "real", "f"), 4096)
	// Self-referential loop back to the root.
	require.NoError(t, os.Symlink(dir, filepath.Join(dir, "loop")))

	tree, _ := scanTempTree(t, ScanRequest{RootPath: dir, FollowSymlinks: true})

	// The loop entry is dropped, the rest of the tree intact.
	_, ok := tree.FindByPath(filepath.Join(dir, "loop"))
	assert.False(t, ok)
	_, ok = tree.FindByPath(filepath.Join(dir, "real", "f"))
	assert.True(t, ok)
}

func TestFSScanner_ProgressEndsWithCompleted(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "f"), 1024)

	scanner := NewFSScanner(nil)
	_, result, err := scanner.Scan(context.Background(), ScanRequest{RootPath: dir})
	require.NoError(t, err)

	var last ScanProgress
	seen := false
	for progress := range scanner.Progress() {
		last = progress
		seen = true
	}
	require.True(t, seen)
	assert.True(t, last.Completed)
	assert.Equal(t, result.Files, last.Files)
	assert.Equal(t, result.Bytes, last.Bytes)
}

func TestFSScanner_RepeatedScansCloseProgressCleanly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "f"), 1024)

	// The heartbeat goroutine is joined before the progress channel
	// closes; repeated scans on one scanner must never panic on a send
	// racing the close.
	scanner := NewFSScanner(nil)
	for i := 0; i < 25; i++ {
		_, _, err := scanner.Scan(context.Background(), ScanRequest{RootPath: dir})
		require.NoError(t, err)
		for range scanner.Progress() {
		}
	}
}

func TestFSScanner_CancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "f"), 1024)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	scanner := NewFSScanner(nil)
	_, _, err := scanner.Scan(ctx, ScanRequest{RootPath: dir})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFSScanner_DeleteAfterScanKeepsTotalsConsistent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a", "b"), 64*1024)
	writeFile(t, filepath.Join(dir, "a", "c"), 16*1024)

	tree, _ := scanTempTree(t, ScanRequest{RootPath: dir})

	before := tree.TotalSize()
	b, ok := tree.FindByPath(filepath.Join(dir, "a", "b"))
	require.True(t, ok)
	sizeB, _ := tree.SizeOf(b)

	freed := tree.RemoveNode(b)
	assert.Equal(t, sizeB, freed)
	assert.Equal(t, before-sizeB, tree.TotalSize())
}

func TestSkipList_RootGuard(t *testing.T) {
	list := newSkipList("/home/user/Dropbox/work", nil)

	// Scanning inside a Dropbox folder must not skip everything.
	assert.False(t, list.Match("/home/user/Dropbox/work/project"))
	list = newSkipList("/home/user", nil)
	assert.True(t, list.Match("/home/user/Dropbox"))
	assert.False(t, list.Match("/home/user/documents"))
}

func TestSkipList_SiblingOfRootNotExempt(t *testing.T) {
	list := newSkipList("/data/ab", []string{"cache"})

	// /data/a shares a name prefix with the root but is a sibling, not
	// an ancestor. Patterns still apply beneath it.
	assert.True(t, list.Match("/data/a/cache"))
	assert.False(t, list.Match("/data"))
}

func TestSkipList_MatchesWholeSegmentsOnly(t *testing.T) {
	list := newSkipList("/home", nil)

	assert.True(t, list.Match("/home/docs/OneDrive"))
	assert.True(t, list.Match("/home/OneDrive - Personal"))
	assert.False(t, list.Match("/home/MyOneDriveNotes"))
}

func TestSkipList_TrailingSeparatorAnchorsSegment(t *testing.T) {
	list := newSkipList("/", nil)

	assert.True(t, list.Match("/proc/1"))
	assert.False(t, list.Match("/procfs/x"))
}

func TestSkipList_AncestorOfRootNeverMatches(t *testing.T) {
	list := newSkipList("/home/user/data", []string{"user"})
	assert.False(t, list.Match("/home/user"))
	assert.False(t, list.Match("/home"))
}

func TestProbeDir(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, probeDir(dir, time.Second))
	assert.False(t, probeDir(filepath.Join(dir, "missing"), time.Second))
}
