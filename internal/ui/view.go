package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"dux/internal/domain"
	"dux/internal/sizeutil"
	"dux/internal/state"
)

type uiStyles struct {
	headerStyle   lipgloss.Style
	tabStyle      lipgloss.Style
	activeTab     lipgloss.Style
	mutedStyle    lipgloss.Style
	warnStyle     lipgloss.Style
	cursorStyle   lipgloss.Style
	selectedStyle lipgloss.Style
	staleStyle    lipgloss.Style
	panelBorder   lipgloss.Style
}

func defaultStyles() uiStyles {
	return uiStyles{
		headerStyle:   lipgloss.NewStyle().Bold(true),
		tabStyle:      lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		activeTab:     lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		mutedStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		warnStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("204")).Bold(true),
		cursorStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true),
		selectedStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		staleStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("178")),
		panelBorder:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
}

func (model Model) View() string {
	styles := defaultStyles()
	appState := model.appState

	switch appState.Mode {
	case state.ModeScanning:
		return renderScanning(model, styles)
	case state.ModeHelp:
		return renderHelpView(model, styles)
	case state.ModeConfirmDelete:
		return renderConfirm(model, styles)
	}

	header := renderHeader(model, styles)
	body := renderBody(model, styles)
	footer := renderFooter(model, styles)
	return strings.Join([]string{header, body, footer}, "\n")
}

func renderScanning(model Model, styles uiStyles) string {
	progress := model.progress
	lines := []string{
		styles.headerStyle.Render("dux"),
		"",
		fmt.Sprintf("%s Scanning %s", model.spin.View(), model.appState.RootPath),
		"",
		fmt.Sprintf("Files: %s   Dirs: %s   Size: %s",
			humanize.Comma(progress.Files),
			humanize.Comma(progress.Dirs),
			sizeutil.FormatSize(progress.Bytes)),
	}
	if progress.Errors > 0 || progress.Skipped > 0 {
		lines = append(lines, styles.mutedStyle.Render(
			fmt.Sprintf("Errors: %d   Skipped: %d", progress.Errors, progress.Skipped)))
	}
	if progress.CurrentPath != "" {
		lines = append(lines, "", styles.mutedStyle.Render(trimPath(progress.CurrentPath, model.width-6)))
	}
	return styles.panelBorder.Width(maxInt(model.width-2, 40)).Render(strings.Join(lines, "\n"))
}

func renderHeader(model Model, styles uiStyles) string {
	appState := model.appState

	tabs := make([]string, 0, 3)
	for _, view := range []state.ViewMode{state.ViewTree, state.ViewLargeFiles, state.ViewBuildArtifacts} {
		label := view.Title()
		if view == state.ViewBuildArtifacts {
			label = fmt.Sprintf("%s (%s)", label, appState.Views.Threshold.Label())
		}
		if view == appState.View {
			tabs = append(tabs, styles.activeTab.Render("["+label+"]"))
		} else {
			tabs = append(tabs, styles.tabStyle.Render(" "+label+" "))
		}
	}

	title := styles.headerStyle.Render("dux") + "  " + appState.RootPath
	summary := ""
	if appState.Tree != nil {
		summary = fmt.Sprintf("%s in %s files",
			sizeutil.FormatSize(appState.Tree.TotalSize()),
			humanize.Comma(appState.Tree.TotalFiles()))
	}
	top := padLine(title, summary, model.width)
	return top + "\n" + strings.Join(tabs, " ")
}

func renderBody(model Model, styles uiStyles) string {
	appState := model.appState
	if appState.Tree == nil {
		return styles.mutedStyle.Render("No data")
	}
	appState.EnsureViews()

	switch appState.View {
	case state.ViewLargeFiles:
		return renderLargeFiles(model, styles)
	case state.ViewBuildArtifacts:
		return renderArtifacts(model, styles)
	default:
		return renderTree(model, styles)
	}
}

func renderTree(model Model, styles uiStyles) string {
	appState := model.appState
	visible := appState.Tree.VisibleNodes(appState.ViewRoot)
	view := appState.TreeState

	baseDepth := 0
	if root, ok := appState.Tree.Get(appState.ViewRoot); ok {
		baseDepth = root.Depth
	}

	start, end := window(view.Scroll, appState.VisibleHeight, len(visible))
	lines := make([]string, 0, appState.VisibleHeight)
	for index := start; index < end; index++ {
		id := visible[index]
		node, ok := appState.Tree.Get(id)
		if !ok {
			continue
		}
		indent := strings.Repeat("  ", maxInt(node.Depth-baseDepth, 0))
		marker := "  "
		if node.Kind.IsDirectory() {
			marker = "▸ "
			if node.Expanded {
				marker = "▾ "
			}
		}
		name := node.Name
		if node.Kind.IsDirectory() {
			name += "/"
		}
		if node.Kind == domain.KindSymlink {
			name += " →"
		}
		if node.Skipped {
			name += styles.mutedStyle.Render(" (skipped)")
		}

		sel := "  "
		if appState.Selection.Contains(id) {
			sel = styles.selectedStyle.Render("● ")
		}
		line := fmt.Sprintf("%10s  %s%s%s%s", sizeutil.FormatSize(node.Size), sel, indent, marker, name)
		if index == view.Cursor {
			line = styles.cursorStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, styles.mutedStyle.Render("  (empty)"))
	}
	return strings.Join(lines, "\n")
}

func renderLargeFiles(model Model, styles uiStyles) string {
	appState := model.appState
	entries := appState.Views.LargeFiles
	view := appState.LargeState

	start, end := window(view.Scroll, appState.VisibleHeight, len(entries))
	lines := make([]string, 0, appState.VisibleHeight)
	for index := start; index < end; index++ {
		entry := entries[index]
		sel := "  "
		if appState.Selection.Contains(entry.ID) {
			sel = styles.selectedStyle.Render("● ")
		}
		line := fmt.Sprintf("%7s %5.1f%%  %s%s",
			sizeutil.FormatSizeShort(entry.Size), entry.Percentage, sel,
			trimPath(entry.RelativePath, model.width-20))
		if index == view.Cursor {
			line = styles.cursorStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, styles.mutedStyle.Render("  No files"))
	}
	return strings.Join(lines, "\n")
}

func renderArtifacts(model Model, styles uiStyles) string {
	appState := model.appState
	entries := appState.Views.Artifacts
	view := appState.ArtifactsState

	start, end := window(view.Scroll, appState.VisibleHeight, len(entries))
	lines := make([]string, 0, appState.VisibleHeight)
	for index := start; index < end; index++ {
		entry := entries[index]
		sel := "  "
		if appState.Selection.Contains(entry.ID) {
			sel = styles.selectedStyle.Render("● ")
		}
		age := "never"
		if !entry.NewestMtime.IsZero() {
			age = humanize.Time(entry.NewestMtime)
		}
		stale := "     "
		if entry.Stale {
			stale = styles.staleStyle.Render("stale")
		}
		line := fmt.Sprintf("%7s  %s%-10s %s  %s  %s",
			sizeutil.FormatSizeShort(entry.Size), sel, entry.Category, stale,
			trimPath(entry.RelativePath, model.width-48),
			styles.mutedStyle.Render(age))
		if index == view.Cursor {
			line = styles.cursorStyle.Render(line)
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		lines = append(lines, styles.mutedStyle.Render("  No build artifacts found"))
	}
	return strings.Join(lines, "\n")
}

func renderConfirm(model Model, styles uiStyles) string {
	preview := model.appState.PendingPreview
	lines := []string{
		styles.warnStyle.Render("Delete?"),
		"",
		fmt.Sprintf("Items: %d", preview.Count),
		fmt.Sprintf("Size : %s", sizeutil.FormatSize(preview.TotalBytes)),
	}
	if len(preview.Samples) > 0 {
		lines = append(lines, "")
		for _, sample := range preview.Samples {
			lines = append(lines, fmt.Sprintf("  %s  %s",
				fmt.Sprintf("%10s", sizeutil.FormatSize(sample.Size)),
				trimPath(sample.Path, model.width-20)))
		}
		if preview.Count > len(preview.Samples) {
			lines = append(lines, styles.mutedStyle.Render(
				fmt.Sprintf("  ... and %d more", preview.Count-len(preview.Samples))))
		}
	}
	lines = append(lines, "", "y confirm   n/esc cancel")
	return styles.panelBorder.Width(maxInt(model.width-2, 40)).Render(strings.Join(lines, "\n"))
}

func renderFooter(model Model, styles uiStyles) string {
	appState := model.appState

	left := ""
	if count := appState.Selection.Count(); count > 0 {
		left = fmt.Sprintf("Selected: %d  ", count)
	}
	freed, deleted := appState.SessionStats()
	if deleted > 0 {
		left += fmt.Sprintf("Freed: %s (%d items)  ", sizeutil.FormatSize(freed), deleted)
	}
	if appState.LoadedFromCache {
		left += styles.mutedStyle.Render("[cached, r to rescan]  ")
	}
	if appState.Mode == state.ModeDeleting {
		left += styles.warnStyle.Render("deleting...  ")
	}
	if appState.FailedDeletes > 0 {
		left += styles.warnStyle.Render(fmt.Sprintf("%d failed  ", appState.FailedDeletes))
	}

	keys := "↑/↓ move  enter expand  →/← drill  tab view  space select  d delete  r rescan  ? help  q quit"
	if appState.View == state.ViewBuildArtifacts {
		keys = "t threshold  " + keys
	}
	footer := padLine(left, styles.mutedStyle.Render(keys), model.width)

	if appState.ErrorMessage != "" {
		return styles.warnStyle.Render(appState.ErrorMessage) + "\n" + footer
	}
	return footer
}

func renderHelpView(model Model, styles uiStyles) string {
	bindings := []key.Binding{
		model.keys.Up,
		model.keys.Down,
		model.keys.PageUp,
		model.keys.PageDown,
		model.keys.First,
		model.keys.Last,
		model.keys.Toggle,
		model.keys.DrillDown,
		model.keys.Back,
		model.keys.NextView,
		model.keys.PrevView,
		model.keys.Select,
		model.keys.SelectUp,
		model.keys.SelectDown,
		model.keys.ClearSel,
		model.keys.Delete,
		model.keys.Rescan,
		model.keys.Threshold,
		model.keys.Help,
		model.keys.Quit,
	}

	lines := []string{styles.headerStyle.Render("dux help"), ""}
	for _, binding := range bindings {
		keysLabel := strings.Join(binding.Keys(), ", ")
		lines = append(lines, fmt.Sprintf("  %-18s %s", keysLabel, binding.Help().Desc))
	}
	lines = append(lines, "", "Press ? to close")
	return styles.panelBorder.Width(maxInt(model.width-2, 40)).Render(strings.Join(lines, "\n"))
}

// window clamps a scroll offset to the entry count and returns the
// half-open range of rows to draw.
func window(scroll, height, count int) (int, int) {
	start := scroll
	if start > count {
		start = count
	}
	if start < 0 {
		start = 0
	}
	end := start + height
	if end > count {
		end = count
	}
	return start, end
}

func padLine(left, right string, width int) string {
	if width <= 0 {
		return left
	}
	space := width - lipgloss.Width(left) - lipgloss.Width(right)
	if space < 1 {
		return left + " " + right
	}
	return left + strings.Repeat(" ", space) + right
}

func trimPath(path string, max int) string {
	if max < 8 {
		max = 8
	}
	if len(path) <= max {
		return path
	}
	return "..." + path[len(path)-max+3:]
}
