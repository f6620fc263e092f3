package domain

import "time"

type NodeID int

const (
	RootID    NodeID = 0
	InvalidID NodeID = -1
)

type NodeKind int

const (
	KindDirectory NodeKind = iota
	KindFile
	KindSymlink
)

func (kind NodeKind) IsDirectory() bool {
	return kind == KindDirectory
}

// Node is one filesystem entry in the arena. Names are path segments;
// full paths are reconstructed by walking parent links.
type Node struct {
	ID        NodeID
	Name      string
	Kind      NodeKind
	Size      int64
	FileCount int64
	Parent    NodeID
	Children  []NodeID
	Depth     int
	ModTime   time.Time
	Expanded  bool
	Skipped   bool
}

func newNode(id NodeID, name string, kind NodeKind, parent NodeID, depth int) *Node {
	node := &Node{
		ID:       id,
		Name:     name,
		Kind:     kind,
		Parent:   parent,
		Depth:    depth,
		Expanded: depth == 0,
	}
	if kind == KindFile {
		node.FileCount = 1
	}
	return node
}

func (node *Node) HasChildren() bool {
	return len(node.Children) > 0
}

func (node *Node) IsExpandable() bool {
	return node.Kind.IsDirectory() && len(node.Children) > 0
}
