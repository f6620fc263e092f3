package app

import (
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"dux/internal/config"
	"dux/internal/logging"
	"dux/internal/services"
	"dux/internal/state"
	"dux/internal/ui"
)

// Run wires the services together and drives the program. It returns
// after the UI exits, any in-flight deletions have finished, and the
// tree has been persisted.
func Run(cfg config.Config) error {
	logger, closeLog, err := logging.New(logging.Config{Path: cfg.LogFile})
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer closeLog()

	root, err := filepath.Abs(cfg.Path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	req := services.ScanRequest{
		RootPath:        root,
		MaxDepth:        cfg.MaxDepth,
		FollowSymlinks:  cfg.FollowSymlinks,
		CrossFilesystem: cfg.CrossFilesystem,
		Workers:         cfg.Workers,
		SkipOverrides:   cfg.SkipOverrides,
	}

	scanner := services.NewFSScanner(logger)
	deleter := services.NewFSDeleter(logger)
	cacheStore, err := services.NewCacheStore(logger)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}

	appState := state.NewState(root, deleter)
	appState.Views.SetPatterns(cfg.ArtifactPatterns)

	needScan := true
	if cfg.ForceRescan {
		cacheStore.Invalidate(root)
	} else if tree, ok := cacheStore.Load(root, req.CacheConfig()); ok {
		appState.SetTree(tree, true)
		needScan = false
	}

	model := ui.NewModel(appState, scanner, cacheStore, req, needScan)
	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}

	// The tree is tombstoned up front, but quitting must not orphan the
	// filesystem work behind it.
	if handle := appState.DeleteHandle; handle != nil {
		logger.Info("waiting for deletion batch")
		handle.Wait()
		appState.FinishDelete(handle.Result())
	}

	if appState.Tree != nil && (appState.TreeModified || !appState.LoadedFromCache) {
		if err := cacheStore.Save(appState.Tree, req.CacheConfig()); err != nil {
			logger.Warn("cache save failed", "error", err)
		}
	}
	if err := config.SaveConfig(cfg); err != nil {
		logger.Warn("config save failed", "error", err)
	}
	return nil
}
