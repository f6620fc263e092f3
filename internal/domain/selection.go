package domain

import "sort"

// Selection is the multi-select state machine: idle until the first
// toggle, selecting while the set is non-empty. It is a pure index set;
// deletion and preview read it but never mutate it.
type Selection struct {
	ids       map[NodeID]struct{}
	anchor    NodeID
	selecting bool
}

func NewSelection() *Selection {
	return &Selection{ids: make(map[NodeID]struct{}), anchor: InvalidID}
}

func (selection *Selection) Selecting() bool {
	return selection.selecting
}

func (selection *Selection) Count() int {
	return len(selection.ids)
}

func (selection *Selection) Contains(id NodeID) bool {
	_, ok := selection.ids[id]
	return ok
}

// Add inserts id into the set. The root is never selectable.
func (selection *Selection) Add(id NodeID) {
	if id == RootID || id == InvalidID {
		return
	}
	selection.ids[id] = struct{}{}
	selection.anchor = id
	selection.selecting = true
}

// Toggle flips membership. Removing the last member returns to idle.
func (selection *Selection) Toggle(id NodeID) {
	if id == RootID || id == InvalidID {
		return
	}
	if _, ok := selection.ids[id]; ok {
		delete(selection.ids, id)
		if len(selection.ids) == 0 {
			selection.selecting = false
			selection.anchor = InvalidID
		}
		return
	}
	selection.Add(id)
}

// Clear empties the set and returns to idle without touching the tree.
func (selection *Selection) Clear() {
	for id := range selection.ids {
		delete(selection.ids, id)
	}
	selection.anchor = InvalidID
	selection.selecting = false
}

// Remove drops an id, e.g. after it has been deleted elsewhere.
func (selection *Selection) Remove(id NodeID) {
	delete(selection.ids, id)
	if len(selection.ids) == 0 {
		selection.selecting = false
		selection.anchor = InvalidID
	}
}

// IDs returns the members in ascending order for deterministic batches.
func (selection *Selection) IDs() []NodeID {
	ids := make([]NodeID, 0, len(selection.ids))
	for id := range selection.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Deduped drops members that have a selected ancestor: deleting the
// ancestor already covers them, and double-removal would double-count
// freed bytes.
func (selection *Selection) Deduped(tree *Tree) []NodeID {
	var result []NodeID
	for _, id := range selection.IDs() {
		covered := false
		node, ok := tree.Get(id)
		for ok && node.Parent != InvalidID {
			if selection.Contains(node.Parent) {
				covered = true
				break
			}
			node, ok = tree.Get(node.Parent)
		}
		if !covered {
			result = append(result, id)
		}
	}
	return result
}
