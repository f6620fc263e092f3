package state

import (
	"dux/internal/domain"
	"dux/internal/services"
)

type Mode int

const (
	ModeScanning Mode = iota
	ModeBrowsing
	ModeHelp
	ModeConfirmDelete
	ModeDeleting
)

type ViewMode int

const (
	ViewTree ViewMode = iota
	ViewLargeFiles
	ViewBuildArtifacts
)

func (view ViewMode) Title() string {
	switch view {
	case ViewLargeFiles:
		return "Large Files"
	case ViewBuildArtifacts:
		return "Build Artifacts"
	default:
		return "Tree"
	}
}

// ViewState is the per-view cursor. Cursor positions are list indices,
// resolved to arena ids on demand; arena ids themselves stay valid
// across deletions, which is what keeps this simple.
type ViewState struct {
	Cursor int
	Scroll int
}

type State struct {
	Mode     Mode
	View     ViewMode
	RootPath string

	Tree      *domain.Tree
	Views     *domain.Views
	Selection *domain.Selection

	ViewRoot domain.NodeID
	History  []domain.NodeID

	TreeState      ViewState
	LargeState     ViewState
	ArtifactsState ViewState

	VisibleHeight   int
	LoadedFromCache bool
	TreeModified    bool
	ErrorMessage    string

	PendingDelete  []domain.NodeID
	PendingPreview services.DeletePreview
	DeleteHandle   *services.DeleteHandle
	FailedDeletes  int

	deleter services.Deleter
}

func NewState(rootPath string, deleter services.Deleter) *State {
	return &State{
		Mode:          ModeScanning,
		RootPath:      rootPath,
		Views:         domain.NewViews(),
		Selection:     domain.NewSelection(),
		ViewRoot:      domain.RootID,
		VisibleHeight: 20,
		deleter:       deleter,
	}
}

// SetTree installs a scanned or cache-loaded tree and resets
// presentation state.
func (state *State) SetTree(tree *domain.Tree, fromCache bool) {
	state.Tree = tree
	state.LoadedFromCache = fromCache
	state.TreeModified = false
	state.ViewRoot = domain.RootID
	state.History = nil
	state.TreeState = ViewState{}
	state.Selection.Clear()
	state.Views.Dirty = true
	state.Mode = ModeBrowsing
}

func (state *State) EnsureViews() {
	if state.Tree == nil || !state.Views.Dirty {
		return
	}
	state.Views.Rebuild(state.Tree)
	state.clampCursors()
}

func (state *State) activeView() *ViewState {
	switch state.View {
	case ViewLargeFiles:
		return &state.LargeState
	case ViewBuildArtifacts:
		return &state.ArtifactsState
	default:
		return &state.TreeState
	}
}

func (state *State) VisibleCount() int {
	if state.Tree == nil {
		return 0
	}
	switch state.View {
	case ViewLargeFiles:
		return len(state.Views.LargeFiles)
	case ViewBuildArtifacts:
		return len(state.Views.Artifacts)
	default:
		return len(state.Tree.VisibleNodes(state.ViewRoot))
	}
}

// NodeAt resolves a list index in the active view to an arena id.
func (state *State) NodeAt(index int) (domain.NodeID, bool) {
	if state.Tree == nil || index < 0 {
		return domain.InvalidID, false
	}
	switch state.View {
	case ViewLargeFiles:
		if index < len(state.Views.LargeFiles) {
			return state.Views.LargeFiles[index].ID, true
		}
	case ViewBuildArtifacts:
		if index < len(state.Views.Artifacts) {
			return state.Views.Artifacts[index].ID, true
		}
	default:
		nodes := state.Tree.VisibleNodes(state.ViewRoot)
		if index < len(nodes) {
			return nodes[index], true
		}
	}
	return domain.InvalidID, false
}

func (state *State) CursorNode() (domain.NodeID, bool) {
	return state.NodeAt(state.activeView().Cursor)
}

// --- navigation ---

func (state *State) MoveUp() {
	view := state.activeView()
	if view.Cursor > 0 {
		view.Cursor--
	}
	state.scrollIntoView(view)
}

func (state *State) MoveDown() {
	view := state.activeView()
	if view.Cursor+1 < state.VisibleCount() {
		view.Cursor++
	}
	state.scrollIntoView(view)
}

func (state *State) PageUp() {
	view := state.activeView()
	view.Cursor -= state.VisibleHeight
	if view.Cursor < 0 {
		view.Cursor = 0
	}
	state.scrollIntoView(view)
}

func (state *State) PageDown() {
	view := state.activeView()
	view.Cursor += state.VisibleHeight
	if count := state.VisibleCount(); view.Cursor >= count {
		view.Cursor = count - 1
	}
	if view.Cursor < 0 {
		view.Cursor = 0
	}
	state.scrollIntoView(view)
}

func (state *State) GoToFirst() {
	view := state.activeView()
	view.Cursor = 0
	state.scrollIntoView(view)
}

func (state *State) GoToLast() {
	view := state.activeView()
	view.Cursor = state.VisibleCount() - 1
	if view.Cursor < 0 {
		view.Cursor = 0
	}
	state.scrollIntoView(view)
}

func (state *State) scrollIntoView(view *ViewState) {
	if view.Cursor < view.Scroll {
		view.Scroll = view.Cursor
	}
	if view.Cursor >= view.Scroll+state.VisibleHeight {
		view.Scroll = view.Cursor - state.VisibleHeight + 1
	}
	if view.Scroll < 0 {
		view.Scroll = 0
	}
}

func (state *State) clampCursors() {
	for _, view := range []*ViewState{&state.TreeState, &state.LargeState, &state.ArtifactsState} {
		if view.Cursor < 0 {
			view.Cursor = 0
		}
	}
	if count := state.VisibleCount(); state.activeView().Cursor >= count && count > 0 {
		state.activeView().Cursor = count - 1
	}
}

// --- tree view commands ---

func (state *State) ToggleExpand() {
	if state.View != ViewTree {
		return
	}
	if id, ok := state.CursorNode(); ok {
		state.Tree.ToggleExpanded(id)
	}
}

func (state *State) Expand() {
	if state.View != ViewTree {
		return
	}
	if id, ok := state.CursorNode(); ok {
		state.Tree.SetExpanded(id, true)
	}
}

func (state *State) Collapse() {
	if state.View != ViewTree {
		return
	}
	if id, ok := state.CursorNode(); ok {
		state.Tree.SetExpanded(id, false)
	}
}

func (state *State) DrillDown() {
	if state.View != ViewTree {
		return
	}
	id, ok := state.CursorNode()
	if !ok {
		return
	}
	node, ok := state.Tree.Get(id)
	if !ok || !node.Kind.IsDirectory() {
		return
	}
	state.History = append(state.History, state.ViewRoot)
	state.ViewRoot = id
	state.Tree.SetExpanded(id, true)
	state.TreeState = ViewState{}
}

func (state *State) GoBack() {
	if state.View != ViewTree || len(state.History) == 0 {
		return
	}
	state.ViewRoot = state.History[len(state.History)-1]
	state.History = state.History[:len(state.History)-1]
	state.TreeState = ViewState{}
}

func (state *State) NextView() {
	state.View = (state.View + 1) % 3
	state.EnsureViews()
	state.clampCursors()
}

func (state *State) PrevView() {
	state.View = (state.View + 2) % 3
	state.EnsureViews()
	state.clampCursors()
}

// CycleStaleThreshold reflags artifacts in place; no rescan, no rebuild.
func (state *State) CycleStaleThreshold() {
	state.Views.CycleThreshold()
}

// --- selection ---

func (state *State) ToggleSelect() {
	if id, ok := state.CursorNode(); ok {
		state.Selection.Toggle(id)
	}
}

func (state *State) SelectMoveUp() {
	if id, ok := state.CursorNode(); ok {
		state.Selection.Add(id)
	}
	state.MoveUp()
	if id, ok := state.CursorNode(); ok {
		state.Selection.Add(id)
	}
}

func (state *State) SelectMoveDown() {
	if id, ok := state.CursorNode(); ok {
		state.Selection.Add(id)
	}
	state.MoveDown()
	if id, ok := state.CursorNode(); ok {
		state.Selection.Add(id)
	}
}

func (state *State) ClearSelection() {
	state.Selection.Clear()
}

// --- deletion ---

// RequestDelete stages the selection (or the cursor item) and computes
// the preview for the confirmation dialog. Rejected while a batch is in
// flight: one deletion batch per tree at a time.
func (state *State) RequestDelete() {
	if state.Tree == nil || state.DeleteHandle != nil {
		return
	}

	var ids []domain.NodeID
	if state.Selection.Count() > 0 {
		ids = state.Selection.Deduped(state.Tree)
	} else if id, ok := state.CursorNode(); ok && id != domain.RootID {
		ids = []domain.NodeID{id}
	}
	if len(ids) == 0 {
		return
	}

	state.PendingDelete = ids
	state.PendingPreview = state.deleter.Preview(state.Tree, ids)
	state.Mode = ModeConfirmDelete
}

// ConfirmDelete starts the background batch. The tree is tombstoned
// before this returns; the handle reports filesystem completion.
func (state *State) ConfirmDelete() *services.DeleteHandle {
	if state.Mode != ModeConfirmDelete || len(state.PendingDelete) == 0 {
		return nil
	}
	ids := state.PendingDelete
	state.PendingDelete = nil

	handle := state.deleter.Delete(state.Tree, ids)
	state.DeleteHandle = handle
	state.TreeModified = true
	state.Views.Dirty = true
	for _, id := range ids {
		state.Selection.Remove(id)
	}
	state.Selection.Clear()
	state.clampCursors()
	state.Mode = ModeDeleting
	return handle
}

func (state *State) CancelDelete() {
	state.PendingDelete = nil
	state.PendingPreview = services.DeletePreview{}
	state.Mode = ModeBrowsing
}

// FinishDelete records the batch outcome and returns to browsing.
func (state *State) FinishDelete(result services.DeleteProgress) {
	state.FailedDeletes += result.Failures
	if result.Failures > 0 {
		state.ErrorMessage = "some deletions failed; entries remain hidden for this session"
	}
	state.DeleteHandle = nil
	state.Mode = ModeBrowsing
}

// SessionStats mirrors the tree's freed-bytes accounting.
func (state *State) SessionStats() (int64, int) {
	if state.Tree == nil {
		return 0, 0
	}
	return state.Tree.Stats()
}
