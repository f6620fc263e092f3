package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildProjectTree builds:
//
//	root (/proj)
//	├── src/
//	│   └── main (1 MB file)
//	├── target/            <- Rust artifact, 40 days old
//	│   ├── build/         <- nested matching dir, must be suppressed
//	│   │   └── bin (60 MB file)
//	│   └── blob (40 MB file)
//	└── node_modules/      <- Node artifact, touched yesterday
//	    └── pkg (19 MB file)
func buildProjectTree(t *testing.T) (*Tree, NodeID, NodeID, NodeID) {
	t.Helper()
	tree := NewTree("/proj")

	src, err := tree.AddNode("src", KindDirectory, RootID)
	require.NoError(t, err)
	main, err := tree.AddNode("main", KindFile, src)
	require.NoError(t, err)
	target, err := tree.AddNode("target", KindDirectory, RootID)
	require.NoError(t, err)
	build, err := tree.AddNode("build", KindDirectory, target)
	require.NoError(t, err)
	bin, err := tree.AddNode("bin", KindFile, build)
	require.NoError(t, err)
	blob, err := tree.AddNode("blob", KindFile, target)
	require.NoError(t, err)
	modules, err := tree.AddNode("node_modules", KindDirectory, RootID)
	require.NoError(t, err)
	pkg, err := tree.AddNode("pkg", KindFile, modules)
	require.NoError(t, err)

	tree.SetSize(main, 1*mb)
	tree.SetSize(bin, 60*mb)
	tree.SetSize(blob, 40*mb)
	tree.SetSize(pkg, 19*mb)
	tree.AggregateSizes()

	old := time.Now().Add(-40 * 24 * time.Hour)
	fresh := time.Now().Add(-12 * time.Hour)
	tree.SetModTime(target, old)
	tree.SetModTime(build, old)
	tree.SetModTime(modules, fresh)

	return tree, target, build, modules
}

func TestViews_LargeFilesSortedWithPercentages(t *testing.T) {
	tree, _, _, _ := buildProjectTree(t)
	views := NewViews()
	views.Rebuild(tree)

	entries := views.LargeFiles
	require.Len(t, entries, 4)
	assert.Equal(t, "target/build/bin", entries[0].RelativePath)
	assert.Equal(t, 60*mb, entries[0].Size)
	assert.Equal(t, "target/blob", entries[1].RelativePath)
	assert.Equal(t, "node_modules/pkg", entries[2].RelativePath)
	assert.Equal(t, "src/main", entries[3].RelativePath)

	// 60 of 120 MB total.
	assert.InDelta(t, 50.0, entries[0].Percentage, 0.01)
}

func TestViews_ArtifactsOutermostWins(t *testing.T) {
	tree, target, _, modules := buildProjectTree(t)
	views := NewViews()
	views.Rebuild(tree)

	entries := views.Artifacts
	require.Len(t, entries, 2)

	// Sorted by size: target (100 MB) before node_modules (19 MB).
	// build/ matches a pattern of its own but sits inside target/.
	assert.Equal(t, target, entries[0].ID)
	assert.Equal(t, "Rust", entries[0].Category)
	assert.Equal(t, 100*mb, entries[0].Size)
	assert.Equal(t, modules, entries[1].ID)
	assert.Equal(t, "Node", entries[1].Category)
}

func TestViews_StaleFlagFollowsThreshold(t *testing.T) {
	tree, _, _, _ := buildProjectTree(t)
	views := NewViews()
	views.Rebuild(tree)

	// Default threshold is 7 days: 40-day-old target is stale, the
	// freshly touched node_modules is not.
	require.Equal(t, StaleSevenDays, views.Threshold)
	assert.True(t, views.Artifacts[0].Stale)
	assert.False(t, views.Artifacts[1].Stale)

	views.CycleThreshold() // 30d
	assert.True(t, views.Artifacts[0].Stale)

	views.CycleThreshold() // 90d
	assert.Equal(t, StaleNinetyDays, views.Threshold)
	assert.False(t, views.Artifacts[0].Stale)

	views.CycleThreshold() // All
	assert.True(t, views.Artifacts[0].Stale)
	assert.True(t, views.Artifacts[1].Stale)

	views.CycleThreshold() // wraps to 1d
	assert.Equal(t, StaleOneDay, views.Threshold)
}

func TestViews_DeepTouchKeepsArtifactFresh(t *testing.T) {
	tree, target, _, _ := buildProjectTree(t)

	// A file touched deep inside target/ must keep it fresh even though
	// the top-level dir mtime is 40 days old.
	deep, ok := tree.FindByPath("/proj/target/build/bin")
	require.True(t, ok)
	tree.SetModTime(deep, time.Now())

	views := NewViews()
	views.Rebuild(tree)
	require.Equal(t, target, views.Artifacts[0].ID)
	assert.False(t, views.Artifacts[0].Stale)
}

func TestViews_CustomPatterns(t *testing.T) {
	tree, _, _, _ := buildProjectTree(t)
	views := NewViews()
	views.SetPatterns(map[string]string{"src": "Source"})
	views.Rebuild(tree)

	require.Len(t, views.Artifacts, 1)
	assert.Equal(t, "src", views.Artifacts[0].RelativePath)
	assert.Equal(t, "Source", views.Artifacts[0].Category)
}

func TestStaleThreshold_Labels(t *testing.T) {
	assert.Equal(t, "1d", StaleOneDay.Label())
	assert.Equal(t, "All", StaleAll.Label())

	_, ok := StaleAll.Duration()
	assert.False(t, ok)
	duration, ok := StaleThirtyDays.Duration()
	assert.True(t, ok)
	assert.Equal(t, 30*24*time.Hour, duration)
}
