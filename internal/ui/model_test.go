package ui

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dux/internal/domain"
	"dux/internal/services"
	"dux/internal/state"
)

type spyInvalidator struct {
	calls []string
}

func (spy *spyInvalidator) Invalidate(root string) {
	spy.calls = append(spy.calls, root)
}

func newTestTree(t *testing.T) *domain.Tree {
	t.Helper()
	tree := domain.NewTree("/data")
	big, err := tree.AddNode("big", domain.KindDirectory, domain.RootID)
	require.NoError(t, err)
	blob, err := tree.AddNode("blob", domain.KindFile, big)
	require.NoError(t, err)
	small, err := tree.AddNode("small", domain.KindFile, domain.RootID)
	require.NoError(t, err)
	tree.SetSize(blob, 2048)
	tree.SetSize(small, 1024)
	tree.AggregateSizes()
	return tree
}

func newTestModel(t *testing.T) (Model, *state.State, *spyInvalidator) {
	t.Helper()
	tree := newTestTree(t)
	appState := state.NewState("/data", services.NewFSDeleter(nil))
	appState.SetTree(tree, false)

	invalidator := &spyInvalidator{}
	model := NewModel(appState, services.NewMockScanner(tree), invalidator,
		services.ScanRequest{RootPath: "/data"}, false)
	return model, appState, invalidator
}

func update(t *testing.T, model Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := model.Update(msg)
	next, ok := updated.(Model)
	require.True(t, ok)
	return next, cmd
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func TestUpdate_ScanDoneInstallsTree(t *testing.T) {
	model, appState, _ := newTestModel(t)
	appState.Mode = state.ModeScanning

	fresh := newTestTree(t)
	model, _ = update(t, model, scanDoneMsg{tree: fresh, result: services.ScanResult{}})

	assert.Equal(t, state.ModeBrowsing, appState.Mode)
	assert.Same(t, fresh, appState.Tree)
}

func TestUpdate_ScanErrorSurfaces(t *testing.T) {
	model, appState, _ := newTestModel(t)
	appState.Mode = state.ModeScanning

	model, _ = update(t, model, scanDoneMsg{err: errors.New("root unavailable")})

	assert.Equal(t, state.ModeBrowsing, appState.Mode)
	assert.Contains(t, appState.ErrorMessage, "root unavailable")
}

func TestUpdate_WindowSizeSetsVisibleHeight(t *testing.T) {
	model, appState, _ := newTestModel(t)

	model, _ = update(t, model, tea.WindowSizeMsg{Width: 120, Height: 40})
	assert.Equal(t, 34, appState.VisibleHeight)

	// Tiny terminals still leave room for a few rows.
	model, _ = update(t, model, tea.WindowSizeMsg{Width: 20, Height: 4})
	assert.Equal(t, 5, appState.VisibleHeight)
}

func TestHandleKey_Navigation(t *testing.T) {
	model, appState, _ := newTestModel(t)

	model, _ = update(t, model, keyMsg("down"))
	assert.Equal(t, 1, appState.TreeState.Cursor)
	model, _ = update(t, model, keyMsg("up"))
	assert.Equal(t, 0, appState.TreeState.Cursor)

	model, _ = update(t, model, keyMsg("tab"))
	assert.Equal(t, state.ViewLargeFiles, appState.View)
}

func TestHandleKey_HelpToggle(t *testing.T) {
	model, appState, _ := newTestModel(t)

	model, _ = update(t, model, keyMsg("?"))
	assert.Equal(t, state.ModeHelp, appState.Mode)
	model, _ = update(t, model, keyMsg("?"))
	assert.Equal(t, state.ModeBrowsing, appState.Mode)
}

func TestHandleKey_RescanInvalidatesCache(t *testing.T) {
	model, appState, invalidator := newTestModel(t)

	model, cmd := update(t, model, keyMsg("r"))
	assert.Equal(t, []string{"/data"}, invalidator.calls)
	assert.Equal(t, state.ModeScanning, appState.Mode)
	assert.NotNil(t, cmd)
}

func TestHandleKey_DeleteConfirmAndCancel(t *testing.T) {
	model, appState, _ := newTestModel(t)

	model, _ = update(t, model, keyMsg("down"))
	model, _ = update(t, model, keyMsg("d"))
	require.Equal(t, state.ModeConfirmDelete, appState.Mode)
	assert.Equal(t, 1, appState.PendingPreview.Count)

	model, _ = update(t, model, keyMsg("n"))
	assert.Equal(t, state.ModeBrowsing, appState.Mode)
	assert.Equal(t, 3, appState.VisibleCount())
}

func TestHandleKey_ScanningIgnoresNavigation(t *testing.T) {
	model, appState, _ := newTestModel(t)
	appState.Mode = state.ModeScanning

	model, _ = update(t, model, keyMsg("down"))
	assert.Equal(t, 0, appState.TreeState.Cursor)
}

func TestView_RendersEachMode(t *testing.T) {
	model, appState, _ := newTestModel(t)
	model.width = 100
	model.height = 30

	output := model.View()
	assert.Contains(t, output, "dux")
	assert.Contains(t, output, "/data")
	assert.Contains(t, output, "big")

	appState.Mode = state.ModeScanning
	assert.Contains(t, model.View(), "Scanning")

	appState.Mode = state.ModeHelp
	assert.Contains(t, model.View(), "help")

	appState.Mode = state.ModeConfirmDelete
	assert.Contains(t, model.View(), "Delete?")
}
