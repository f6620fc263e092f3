package domain

import (
	"sort"
	"time"
)

type StaleThreshold int

const (
	StaleOneDay StaleThreshold = iota
	StaleSevenDays
	StaleThirtyDays
	StaleNinetyDays
	StaleAll
)

func (threshold StaleThreshold) Label() string {
	switch threshold {
	case StaleOneDay:
		return "1d"
	case StaleSevenDays:
		return "7d"
	case StaleThirtyDays:
		return "30d"
	case StaleNinetyDays:
		return "90d"
	default:
		return "All"
	}
}

// Duration returns the age past which an artifact counts as stale;
// ok is false for StaleAll, which treats everything as stale.
func (threshold StaleThreshold) Duration() (time.Duration, bool) {
	const day = 24 * time.Hour
	switch threshold {
	case StaleOneDay:
		return day, true
	case StaleSevenDays:
		return 7 * day, true
	case StaleThirtyDays:
		return 30 * day, true
	case StaleNinetyDays:
		return 90 * day, true
	default:
		return 0, false
	}
}

func (threshold StaleThreshold) Next() StaleThreshold {
	if threshold == StaleAll {
		return StaleOneDay
	}
	return threshold + 1
}

// ArtifactPatterns maps directory names to build-system categories.
// Overridable via configuration.
var ArtifactPatterns = map[string]string{
	"target":           "Rust",
	"node_modules":     "Node",
	".pnpm-store":      "Node",
	"bower_components": "Node",
	".next":            "Next/Nuxt",
	".nuxt":            "Next/Nuxt",
	".turbo":           "Node",
	"DerivedData":      "Xcode",
	"Pods":             "CocoaPods",
	".gradle":          "Gradle",
	".m2":              "Java",
	"__pycache__":      "Python",
	".tox":             "Python",
	".venv":            "Python",
	"venv":             "Python",
	".mypy_cache":      "Python",
	".pytest_cache":    "Python",
	"vendor":           "Vendor",
	"dist":             "Build",
	"build":            "Build",
	"out":              "Build",
	".cache":           "Cache",
}

type LargeFileEntry struct {
	ID           NodeID
	RelativePath string
	Size         int64
	Percentage   float64
}

type ArtifactEntry struct {
	ID           NodeID
	RelativePath string
	Size         int64
	Percentage   float64
	Category     string
	Stale        bool
	NewestMtime  time.Time
}

// Views holds the derived projections over a tree. They are rebuilt
// lazily when marked dirty; cycling the stale threshold only recomputes
// flags in place.
type Views struct {
	LargeFiles []LargeFileEntry
	Artifacts  []ArtifactEntry
	Threshold  StaleThreshold
	Dirty      bool
	patterns   map[string]string
}

func NewViews() *Views {
	return &Views{Threshold: StaleSevenDays, Dirty: true, patterns: ArtifactPatterns}
}

func (views *Views) SetPatterns(patterns map[string]string) {
	if len(patterns) > 0 {
		views.patterns = patterns
		views.Dirty = true
	}
}

func (views *Views) Rebuild(tree *Tree) {
	views.LargeFiles = collectLargeFiles(tree)
	views.Artifacts = collectArtifacts(tree, views.patterns, views.Threshold)
	views.Dirty = false
}

// CycleThreshold advances the staleness threshold and reflags entries
// without rescanning or re-collecting from the tree.
func (views *Views) CycleThreshold() {
	views.Threshold = views.Threshold.Next()
	now := time.Now()
	for i := range views.Artifacts {
		views.Artifacts[i].Stale = isStale(views.Artifacts[i].NewestMtime, views.Threshold, now)
	}
}

func isStale(newest time.Time, threshold StaleThreshold, now time.Time) bool {
	maxAge, ok := threshold.Duration()
	if !ok {
		return true
	}
	if newest.IsZero() {
		return false
	}
	return now.Sub(newest) > maxAge
}

func collectLargeFiles(tree *Tree) []LargeFileEntry {
	tree.mu.RLock()
	defer tree.mu.RUnlock()

	total := int64(0)
	if root := tree.get(RootID); root != nil {
		total = root.Size
	}

	var entries []LargeFileEntry
	for id, node := range tree.nodes {
		if node == nil || node.Kind != KindFile {
			continue
		}
		relative, ok := tree.relativePath(NodeID(id))
		if !ok {
			continue
		}
		entries = append(entries, LargeFileEntry{
			ID:           NodeID(id),
			RelativePath: relative,
			Size:         node.Size,
			Percentage:   percentage(node.Size, total),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Size > entries[j].Size })
	return entries
}

func collectArtifacts(tree *Tree, patterns map[string]string, threshold StaleThreshold) []ArtifactEntry {
	tree.mu.RLock()
	defer tree.mu.RUnlock()

	total := int64(0)
	if root := tree.get(RootID); root != nil {
		total = root.Size
	}
	now := time.Now()

	var entries []ArtifactEntry
	for id, node := range tree.nodes {
		if node == nil || !node.Kind.IsDirectory() {
			continue
		}
		category, ok := patterns[node.Name]
		if !ok {
			continue
		}
		// The outermost matching ancestor is authoritative: anything
		// matching inside it (target/debug/build) is suppressed.
		if hasMatchingAncestor(tree, node, patterns) {
			continue
		}
		relative, relOK := tree.relativePath(NodeID(id))
		if !relOK {
			continue
		}
		newest := newestDescendantMtime(tree, NodeID(id))
		entries = append(entries, ArtifactEntry{
			ID:           NodeID(id),
			RelativePath: relative,
			Size:         node.Size,
			Percentage:   percentage(node.Size, total),
			Category:     category,
			Stale:        isStale(newest, threshold, now),
			NewestMtime:  newest,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Size > entries[j].Size })
	return entries
}

func hasMatchingAncestor(tree *Tree, node *Node, patterns map[string]string) bool {
	for current := node.Parent; current != InvalidID; {
		ancestor := tree.get(current)
		if ancestor == nil {
			return false
		}
		if _, ok := patterns[ancestor.Name]; ok {
			return true
		}
		current = ancestor.Parent
	}
	return false
}

// newestDescendantMtime walks the whole subtree: a target/ touched deep
// inside must keep the artifact fresh even when the top dir is old.
func newestDescendantMtime(tree *Tree, id NodeID) time.Time {
	var newest time.Time
	stack := []NodeID{id}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		node := tree.get(current)
		if node == nil {
			continue
		}
		if !node.ModTime.IsZero() && node.ModTime.After(newest) {
			newest = node.ModTime
		}
		stack = append(stack, node.Children...)
	}
	return newest
}

func percentage(size, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(size) / float64(total) * 100
}
