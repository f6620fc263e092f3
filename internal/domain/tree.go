package domain

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var ErrInvalidParent = errors.New("parent index is dead or out of range")

// Tree is an arena of nodes indexed by NodeID. Deleted nodes are
// tombstoned (nil slot) so indices held by the presentation layer stay
// valid for the whole session; slots are only compacted by Snapshot.
type Tree struct {
	mu           sync.RWMutex
	nodes        []*Node
	rootPath     string
	bytesFreed   int64
	itemsDeleted int
}

func NewTree(rootPath string) *Tree {
	name := filepath.Base(rootPath)
	if name == "." || name == string(filepath.Separator) {
		name = rootPath
	}
	return &Tree{
		nodes:    []*Node{newNode(RootID, name, KindDirectory, InvalidID, 0)},
		rootPath: rootPath,
	}
}

func (tree *Tree) RootPath() string {
	tree.mu.RLock()
	defer tree.mu.RUnlock()
	return tree.rootPath
}

func (tree *Tree) AddNode(name string, kind NodeKind, parent NodeID) (NodeID, error) {
	tree.mu.Lock()
	defer tree.mu.Unlock()

	parentNode := tree.get(parent)
	if parentNode == nil {
		return InvalidID, ErrInvalidParent
	}

	id := NodeID(len(tree.nodes))
	node := newNode(id, name, kind, parent, parentNode.Depth+1)
	tree.nodes = append(tree.nodes, node)
	parentNode.Children = append(parentNode.Children, id)
	return id, nil
}

// get returns the live node for id, or nil for tombstones and
// out-of-range indices. Callers must hold the lock.
func (tree *Tree) get(id NodeID) *Node {
	if id < 0 || int(id) >= len(tree.nodes) {
		return nil
	}
	return tree.nodes[id]
}

// Get returns a copy of the node so readers never race with mutations.
func (tree *Tree) Get(id NodeID) (Node, bool) {
	tree.mu.RLock()
	defer tree.mu.RUnlock()

	node := tree.get(id)
	if node == nil {
		return Node{}, false
	}
	clone := *node
	clone.Children = append([]NodeID(nil), node.Children...)
	return clone, true
}

func (tree *Tree) IsLive(id NodeID) bool {
	tree.mu.RLock()
	defer tree.mu.RUnlock()
	return tree.get(id) != nil
}

func (tree *Tree) SizeOf(id NodeID) (int64, bool) {
	tree.mu.RLock()
	defer tree.mu.RUnlock()
	node := tree.get(id)
	if node == nil {
		return 0, false
	}
	return node.Size, true
}

func (tree *Tree) Children(id NodeID) []NodeID {
	tree.mu.RLock()
	defer tree.mu.RUnlock()
	node := tree.get(id)
	if node == nil {
		return nil
	}
	return append([]NodeID(nil), node.Children...)
}

func (tree *Tree) SetSize(id NodeID, size int64) {
	tree.mu.Lock()
	defer tree.mu.Unlock()
	if node := tree.get(id); node != nil {
		node.Size = size
	}
}

func (tree *Tree) SetModTime(id NodeID, modTime time.Time) {
	tree.mu.Lock()
	defer tree.mu.Unlock()
	if node := tree.get(id); node != nil {
		node.ModTime = modTime
	}
}

func (tree *Tree) MarkSkipped(id NodeID) {
	tree.mu.Lock()
	defer tree.mu.Unlock()
	if node := tree.get(id); node != nil {
		node.Skipped = true
	}
}

// RemoveNode tombstones id and every live descendant, detaches it from
// its parent and subtracts the subtree size from every ancestor up to
// the root. Returns bytes freed; removing the root or an already
// tombstoned id is a no-op returning 0.
func (tree *Tree) RemoveNode(id NodeID) int64 {
	tree.mu.Lock()
	defer tree.mu.Unlock()

	if id == RootID {
		return 0
	}
	node := tree.get(id)
	if node == nil {
		return 0
	}

	size := node.Size
	fileCount := node.FileCount
	parentID := node.Parent

	if parent := tree.get(parentID); parent != nil {
		children := parent.Children[:0]
		for _, child := range parent.Children {
			if child != id {
				children = append(children, child)
			}
		}
		parent.Children = children
	}

	toRemove := []NodeID{id}
	tree.collectDescendants(id, &toRemove)
	for _, victim := range toRemove {
		tree.nodes[victim] = nil
	}

	// O(depth) propagation: walk the ancestor chain, not the whole tree.
	for current := parentID; current != InvalidID; {
		ancestor := tree.get(current)
		if ancestor == nil {
			break
		}
		ancestor.Size -= size
		if ancestor.Size < 0 {
			ancestor.Size = 0
		}
		ancestor.FileCount -= fileCount
		if ancestor.FileCount < 0 {
			ancestor.FileCount = 0
		}
		current = ancestor.Parent
	}

	tree.bytesFreed += size
	tree.itemsDeleted++
	return size
}

func (tree *Tree) collectDescendants(id NodeID, out *[]NodeID) {
	node := tree.get(id)
	if node == nil {
		return
	}
	for _, child := range node.Children {
		*out = append(*out, child)
		tree.collectDescendants(child, out)
	}
}

// AggregateSizes folds file sizes and counts into directories bottom-up.
// Children always have higher indices than parents in a fresh scan, so a
// single reverse pass suffices.
func (tree *Tree) AggregateSizes() {
	tree.mu.Lock()
	defer tree.mu.Unlock()

	for i := len(tree.nodes) - 1; i >= 0; i-- {
		node := tree.nodes[i]
		if node == nil || !node.Kind.IsDirectory() {
			continue
		}
		var size, files int64
		for _, child := range node.Children {
			if childNode := tree.get(child); childNode != nil {
				size += childNode.Size
				files += childNode.FileCount
			}
		}
		node.Size = size
		node.FileCount = files
	}
}

func (tree *Tree) SortBySize() {
	tree.mu.Lock()
	defer tree.mu.Unlock()

	for _, node := range tree.nodes {
		if node == nil {
			continue
		}
		children := node.Children
		sort.SliceStable(children, func(i, j int) bool {
			var left, right int64
			if childNode := tree.get(children[i]); childNode != nil {
				left = childNode.Size
			}
			if childNode := tree.get(children[j]); childNode != nil {
				right = childNode.Size
			}
			return left > right
		})
	}
}

func (tree *Tree) ToggleExpanded(id NodeID) {
	tree.mu.Lock()
	defer tree.mu.Unlock()
	if node := tree.get(id); node != nil && node.Kind.IsDirectory() {
		node.Expanded = !node.Expanded
	}
}

func (tree *Tree) SetExpanded(id NodeID, expanded bool) {
	tree.mu.Lock()
	defer tree.mu.Unlock()
	if node := tree.get(id); node != nil && node.Kind.IsDirectory() {
		node.Expanded = expanded
	}
}

// ExpandTo expands every ancestor of id so it becomes visible.
func (tree *Tree) ExpandTo(id NodeID) {
	tree.mu.Lock()
	defer tree.mu.Unlock()
	for current := id; current != InvalidID; {
		node := tree.get(current)
		if node == nil {
			break
		}
		if node.Kind.IsDirectory() {
			node.Expanded = true
		}
		current = node.Parent
	}
}

// VisibleNodes lists nodes in tree order from the given root, descending
// only into expanded directories.
func (tree *Tree) VisibleNodes(from NodeID) []NodeID {
	tree.mu.RLock()
	defer tree.mu.RUnlock()

	var result []NodeID
	tree.collectVisible(from, &result)
	return result
}

func (tree *Tree) collectVisible(id NodeID, out *[]NodeID) {
	node := tree.get(id)
	if node == nil {
		return
	}
	*out = append(*out, id)
	if node.Expanded {
		for _, child := range node.Children {
			tree.collectVisible(child, out)
		}
	}
}

// PathOf reconstructs the full filesystem path by joining ancestor names
// onto the root path. Paths are never stored per node.
func (tree *Tree) PathOf(id NodeID) (string, bool) {
	tree.mu.RLock()
	defer tree.mu.RUnlock()
	return tree.pathOf(id)
}

func (tree *Tree) pathOf(id NodeID) (string, bool) {
	node := tree.get(id)
	if node == nil {
		return "", false
	}
	var segments []string
	for node.Parent != InvalidID {
		segments = append(segments, node.Name)
		node = tree.get(node.Parent)
		if node == nil {
			return "", false
		}
	}
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return filepath.Join(append([]string{tree.rootPath}, segments...)...), true
}

// RelativePathOf is PathOf without the root prefix, for display.
func (tree *Tree) RelativePathOf(id NodeID) (string, bool) {
	tree.mu.RLock()
	defer tree.mu.RUnlock()
	return tree.relativePath(id)
}

func (tree *Tree) relativePath(id NodeID) (string, bool) {
	full, ok := tree.pathOf(id)
	if !ok {
		return "", false
	}
	if full == tree.rootPath {
		return ".", true
	}
	return strings.TrimPrefix(full, tree.rootPath+string(filepath.Separator)), true
}

func (tree *Tree) FindByPath(path string) (NodeID, bool) {
	tree.mu.RLock()
	defer tree.mu.RUnlock()

	for id := range tree.nodes {
		if tree.nodes[id] == nil {
			continue
		}
		if nodePath, ok := tree.pathOf(NodeID(id)); ok && nodePath == path {
			return NodeID(id), true
		}
	}
	return InvalidID, false
}

func (tree *Tree) Len() int {
	tree.mu.RLock()
	defer tree.mu.RUnlock()
	return len(tree.nodes)
}

func (tree *Tree) LiveCount() int {
	tree.mu.RLock()
	defer tree.mu.RUnlock()
	count := 0
	for _, node := range tree.nodes {
		if node != nil {
			count++
		}
	}
	return count
}

func (tree *Tree) TotalSize() int64 {
	tree.mu.RLock()
	defer tree.mu.RUnlock()
	if root := tree.get(RootID); root != nil {
		return root.Size
	}
	return 0
}

func (tree *Tree) TotalFiles() int64 {
	tree.mu.RLock()
	defer tree.mu.RUnlock()
	if root := tree.get(RootID); root != nil {
		return root.FileCount
	}
	return 0
}

// Stats reports session totals: bytes freed and items deleted.
func (tree *Tree) Stats() (int64, int) {
	tree.mu.RLock()
	defer tree.mu.RUnlock()
	return tree.bytesFreed, tree.itemsDeleted
}
