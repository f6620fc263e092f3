package domain

import (
	"fmt"
	"sort"
	"time"
)

// SnapshotNode is the persisted shape of a node. Depth, expansion and
// paths are presentation or derived state and are rebuilt after load.
type SnapshotNode struct {
	Name      string   `json:"n"`
	Kind      NodeKind `json:"k"`
	Size      int64    `json:"s"`
	FileCount int64    `json:"f"`
	Parent    NodeID   `json:"p"`
	ModTime   int64    `json:"m,omitempty"`
	Skipped   bool     `json:"x,omitempty"`
}

type Snapshot struct {
	RootPath string         `json:"root"`
	Nodes    []SnapshotNode `json:"nodes"`
}

// Snapshot compacts the live tree into contiguous indices, parents
// before children. Tombstoned slots are dropped here and only here;
// in-session indices are never reused.
func (tree *Tree) Snapshot() Snapshot {
	tree.mu.RLock()
	defer tree.mu.RUnlock()

	remap := make(map[NodeID]NodeID, len(tree.nodes))
	var nodes []SnapshotNode

	var visit func(id NodeID)
	visit = func(id NodeID) {
		node := tree.get(id)
		if node == nil {
			return
		}
		newID := NodeID(len(nodes))
		remap[id] = newID
		parent := InvalidID
		if node.Parent != InvalidID {
			parent = remap[node.Parent]
		}
		snap := SnapshotNode{
			Name:      node.Name,
			Kind:      node.Kind,
			Size:      node.Size,
			FileCount: node.FileCount,
			Parent:    parent,
			Skipped:   node.Skipped,
		}
		if !node.ModTime.IsZero() {
			snap.ModTime = node.ModTime.UnixNano()
		}
		nodes = append(nodes, snap)
		for _, child := range node.Children {
			visit(child)
		}
	}
	visit(RootID)

	return Snapshot{RootPath: tree.rootPath, Nodes: nodes}
}

// FromSnapshot rebuilds a tree from a compacted snapshot. Children were
// written in preorder, so parents always precede children and sibling
// order survives the round trip. Expansion resets to root-only.
func FromSnapshot(snapshot Snapshot) (*Tree, error) {
	if len(snapshot.Nodes) == 0 {
		return nil, fmt.Errorf("snapshot has no nodes")
	}
	if snapshot.Nodes[0].Parent != InvalidID {
		return nil, fmt.Errorf("snapshot root has a parent")
	}

	tree := NewTree(snapshot.RootPath)
	root := tree.nodes[RootID]
	root.Name = snapshot.Nodes[0].Name
	root.Size = snapshot.Nodes[0].Size
	root.FileCount = snapshot.Nodes[0].FileCount
	if snapshot.Nodes[0].ModTime != 0 {
		root.ModTime = time.Unix(0, snapshot.Nodes[0].ModTime)
	}

	for i := 1; i < len(snapshot.Nodes); i++ {
		snap := snapshot.Nodes[i]
		if snap.Parent < 0 || int(snap.Parent) >= i {
			return nil, fmt.Errorf("snapshot node %d references parent %d out of order", i, snap.Parent)
		}
		id, err := tree.AddNode(snap.Name, snap.Kind, snap.Parent)
		if err != nil {
			return nil, err
		}
		node := tree.nodes[id]
		node.Size = snap.Size
		node.FileCount = snap.FileCount
		node.Skipped = snap.Skipped
		if snap.ModTime != 0 {
			node.ModTime = time.Unix(0, snap.ModTime)
		}
	}
	return tree, nil
}

// DirStamp records a directory's identity for cache staleness checks.
type DirStamp struct {
	Path    string    `json:"path"`
	ModTime time.Time `json:"modTime"`
}

// LargestDirs returns stamps for the limit largest directories that
// carry an mtime. The biggest subtrees are the ones most likely to have
// changed in a way the root mtime cannot reveal.
func (tree *Tree) LargestDirs(limit int) []DirStamp {
	tree.mu.RLock()
	defer tree.mu.RUnlock()

	type candidate struct {
		id   NodeID
		size int64
	}
	var candidates []candidate
	for id, node := range tree.nodes {
		if node == nil || !node.Kind.IsDirectory() || node.ModTime.IsZero() {
			continue
		}
		candidates = append(candidates, candidate{NodeID(id), node.Size})
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].size > candidates[j].size
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	stamps := make([]DirStamp, 0, len(candidates))
	for _, entry := range candidates {
		path, ok := tree.pathOf(entry.id)
		if !ok {
			continue
		}
		stamps = append(stamps, DirStamp{Path: path, ModTime: tree.nodes[entry.id].ModTime})
	}
	return stamps
}
