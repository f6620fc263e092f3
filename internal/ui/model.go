package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"dux/internal/services"
	"dux/internal/state"
)

type Model struct {
	appState    *state.State
	scanner     services.Scanner
	invalidator services.Invalidator
	scanReq     services.ScanRequest
	keys        KeyMap
	spin        spinner.Model

	width    int
	height   int
	scanning bool
	progress services.ScanProgress
	needScan bool
}

func NewModel(appState *state.State, scanner services.Scanner, invalidator services.Invalidator, scanReq services.ScanRequest, needScan bool) Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	return Model{
		appState:    appState,
		scanner:     scanner,
		invalidator: invalidator,
		scanReq:     scanReq,
		keys:        DefaultKeyMap(),
		spin:        spin,
		width:       100,
		height:      30,
		needScan:    needScan,
	}
}

func (model Model) Init() tea.Cmd {
	if model.needScan {
		return tea.Batch(model.spin.Tick, model.startScan())
	}
	return model.spin.Tick
}

func (model Model) startScan() tea.Cmd {
	scan := func() tea.Msg {
		tree, result, err := model.scanner.Scan(context.Background(), model.scanReq)
		return scanDoneMsg{tree: tree, result: result, err: err}
	}
	return tea.Batch(scan, listenScanProgress(model.scanner))
}

// listenScanProgress pulls one snapshot off the scanner's channel. The
// channel is created inside Scan, so the first read may race it and
// come back empty; the command just re-arms.
func listenScanProgress(scanner services.Scanner) tea.Cmd {
	return func() tea.Msg {
		provider, ok := scanner.(services.ProgressProvider)
		if !ok {
			return scanProgressMsg{}
		}
		ch := provider.Progress()
		if ch == nil {
			time.Sleep(50 * time.Millisecond)
			return scanProgressMsg{}
		}
		progress, open := <-ch
		return scanProgressMsg{progress: progress, ok: open}
	}
}

func listenDeleteProgress(handle *services.DeleteHandle) tea.Cmd {
	return func() tea.Msg {
		progress, open := <-handle.Progress()
		return deleteProgressMsg{progress: progress, ok: open}
	}
}

func (model Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		return model.handleKey(typed)

	case tea.WindowSizeMsg:
		model.width = typed.Width
		model.height = typed.Height
		model.appState.VisibleHeight = maxInt(typed.Height-6, 5)
		return model, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		model.spin, cmd = model.spin.Update(typed)
		return model, cmd

	case scanProgressMsg:
		if typed.ok {
			model.progress = typed.progress
		}
		if model.scanning || model.appState.Mode == state.ModeScanning {
			return model, listenScanProgress(model.scanner)
		}
		return model, nil

	case scanDoneMsg:
		model.scanning = false
		if typed.err != nil {
			model.appState.ErrorMessage = typed.err.Error()
			model.appState.Mode = state.ModeBrowsing
			return model, nil
		}
		model.appState.SetTree(typed.tree, false)
		model.appState.EnsureViews()
		return model, nil

	case deleteProgressMsg:
		if !typed.ok || typed.progress.Done {
			if handle := model.appState.DeleteHandle; handle != nil {
				model.appState.FinishDelete(handle.Result())
			}
			return model, nil
		}
		return model, listenDeleteProgress(model.appState.DeleteHandle)
	}
	return model, nil
}

func (model Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	appState := model.appState

	if key.Matches(msg, model.keys.Quit) {
		// A deletion batch in flight keeps running; the app layer
		// waits for it and persists the tree afterwards.
		return model, tea.Quit
	}

	switch appState.Mode {
	case state.ModeScanning:
		return model, nil

	case state.ModeHelp:
		if key.Matches(msg, model.keys.Help) || key.Matches(msg, model.keys.Cancel) {
			appState.Mode = state.ModeBrowsing
		}
		return model, nil

	case state.ModeConfirmDelete:
		switch {
		case key.Matches(msg, model.keys.Confirm):
			handle := appState.ConfirmDelete()
			if handle == nil {
				return model, nil
			}
			return model, listenDeleteProgress(handle)
		case key.Matches(msg, model.keys.Cancel):
			appState.CancelDelete()
		}
		return model, nil
	}

	// Browsing and Deleting share navigation; Deleting only blocks a
	// second batch, which RequestDelete already guards.
	appState.EnsureViews()

	switch {
	case key.Matches(msg, model.keys.Help):
		appState.Mode = state.ModeHelp
	case key.Matches(msg, model.keys.Up):
		appState.MoveUp()
	case key.Matches(msg, model.keys.Down):
		appState.MoveDown()
	case key.Matches(msg, model.keys.PageUp):
		appState.PageUp()
	case key.Matches(msg, model.keys.PageDown):
		appState.PageDown()
	case key.Matches(msg, model.keys.First):
		appState.GoToFirst()
	case key.Matches(msg, model.keys.Last):
		appState.GoToLast()
	case key.Matches(msg, model.keys.Toggle):
		appState.ToggleExpand()
	case key.Matches(msg, model.keys.DrillDown):
		appState.DrillDown()
	case key.Matches(msg, model.keys.Back):
		appState.GoBack()
	case key.Matches(msg, model.keys.NextView):
		appState.NextView()
	case key.Matches(msg, model.keys.PrevView):
		appState.PrevView()
	case key.Matches(msg, model.keys.Select):
		appState.ToggleSelect()
	case key.Matches(msg, model.keys.SelectUp):
		appState.SelectMoveUp()
	case key.Matches(msg, model.keys.SelectDown):
		appState.SelectMoveDown()
	case key.Matches(msg, model.keys.ClearSel):
		appState.ClearSelection()
	case key.Matches(msg, model.keys.Threshold):
		if appState.View == state.ViewBuildArtifacts {
			appState.CycleStaleThreshold()
		}
	case key.Matches(msg, model.keys.Delete):
		appState.RequestDelete()
	case key.Matches(msg, model.keys.Rescan):
		if appState.Mode == state.ModeBrowsing {
			model.invalidator.Invalidate(appState.RootPath)
			appState.Mode = state.ModeScanning
			model.scanning = true
			return model, model.startScan()
		}
	}
	return model, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
