package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"dux/internal/domain"
)

var ErrRootUnavailable = errors.New("scan root unavailable")

// FSScanner walks a subtree in parallel and populates a fresh arena
// tree. Per-entry failures are absorbed into counters; only a missing
// or unreadable root fails the scan as a whole.
type FSScanner struct {
	mu           sync.RWMutex
	progress     chan ScanProgress
	probeTimeout time.Duration
	logger       *slog.Logger
}

func NewFSScanner(logger *slog.Logger) *FSScanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSScanner{
		probeTimeout: defaultProbeTimeout,
		logger:       logger,
	}
}

func (scanner *FSScanner) Progress() <-chan ScanProgress {
	scanner.mu.RLock()
	defer scanner.mu.RUnlock()
	return scanner.progress
}

func (scanner *FSScanner) setProgress(progress chan ScanProgress) {
	scanner.mu.Lock()
	defer scanner.mu.Unlock()
	scanner.progress = progress
}

type scanState struct {
	tree    *domain.Tree
	skip    *skipList
	group   *errgroup.Group
	req     ScanRequest
	rootDev uint64

	files   atomic.Int64
	dirs    atomic.Int64
	bytes   atomic.Int64
	errs    atomic.Int64
	skipped atomic.Int64
	current atomic.Value

	visitedMu sync.Mutex
	visited   map[devInode]struct{}
}

func (state *scanState) snapshot(completed bool) ScanProgress {
	current, _ := state.current.Load().(string)
	return ScanProgress{
		Files:       state.files.Load(),
		Dirs:        state.dirs.Load(),
		Bytes:       state.bytes.Load(),
		Errors:      state.errs.Load(),
		Skipped:     state.skipped.Load(),
		CurrentPath: current,
		Completed:   completed,
	}
}

func (scanner *FSScanner) Scan(ctx context.Context, req ScanRequest) (*domain.Tree, ScanResult, error) {
	start := time.Now()
	root := cleanPath(req.RootPath)

	info, err := os.Stat(root)
	if err != nil {
		return nil, ScanResult{}, fmt.Errorf("%w: %s: %v", ErrRootUnavailable, root, err)
	}
	if !info.IsDir() {
		return nil, ScanResult{}, fmt.Errorf("%w: %s is not a directory", ErrRootUnavailable, root)
	}

	tree := domain.NewTree(root)
	tree.SetModTime(domain.RootID, info.ModTime())

	workers := req.Workers
	if workers <= 0 {
		workers = maxInt(2, runtime.NumCPU())
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	state := &scanState{
		tree:    tree,
		skip:    newSkipList(root, req.SkipOverrides),
		group:   group,
		req:     req,
		rootDev: deviceID(info),
		visited: make(map[devInode]struct{}),
	}
	if stamp, ok := devInodeOf(info); ok {
		state.visited[stamp] = struct{}{}
	}

	progress := make(chan ScanProgress, 64)
	scanner.setProgress(progress)
	defer close(progress)

	// The heartbeat must be fully stopped before the deferred close of
	// progress runs: a send racing the close panics. Stop is signalled
	// and then joined.
	heartbeatStop := make(chan struct{})
	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatStop:
				return
			case <-ticker.C:
				progressNonBlocking(progress, state.snapshot(false))
			}
		}
	}()

	scanner.scanDir(groupCtx, state, domain.RootID, root, 0)
	err = group.Wait()
	close(heartbeatStop)
	<-heartbeatDone

	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, ScanResult{RootPath: root, Duration: time.Since(start)}, err
	}

	tree.AggregateSizes()
	tree.SortBySize()

	result := ScanResult{
		RootPath: root,
		Files:    state.files.Load(),
		Dirs:     state.dirs.Load(),
		Bytes:    state.bytes.Load(),
		Errors:   state.errs.Load(),
		Skipped:  state.skipped.Load(),
		Duration: time.Since(start),
	}
	// Drop stale heartbeats so the completed snapshot always fits.
	for {
		select {
		case <-progress:
			continue
		default:
		}
		break
	}
	progressNonBlocking(progress, state.snapshot(true))

	scanner.logger.Info("scan complete",
		"root", root,
		"files", result.Files,
		"dirs", result.Dirs,
		"bytes", result.Bytes,
		"errors", result.Errors,
		"skipped", result.Skipped,
		"duration", result.Duration,
	)
	return tree, result, nil
}

// scanDir reads the children of the directory node id. Subdirectories
// are handed to the worker group when a slot is free and walked inline
// otherwise, so recursion never deadlocks on the limit.
func (scanner *FSScanner) scanDir(ctx context.Context, state *scanState, id domain.NodeID, path string, depth int) {
	if ctx.Err() != nil {
		return
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		state.errs.Add(1)
		scanner.logger.Debug("read dir failed", "path", path, "error", err)
		return
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return
		}

		childPath := filepath.Join(path, entry.Name())

		if state.skip.Match(childPath) {
			kind := domain.KindFile
			if entry.IsDir() {
				kind = domain.KindDirectory
			}
			if skipID, addErr := state.tree.AddNode(entry.Name(), kind, id); addErr == nil {
				state.tree.MarkSkipped(skipID)
			}
			state.skipped.Add(1)
			scanner.logger.Debug("skip list match", "path", childPath)
			continue
		}

		if entry.IsDir() {
			// Probe before any metadata access: a hung mount must not
			// stall traversal of sibling branches.
			if !probeDir(childPath, scanner.probeTimeout) {
				if skipID, addErr := state.tree.AddNode(entry.Name(), domain.KindDirectory, id); addErr == nil {
					state.tree.MarkSkipped(skipID)
				}
				state.skipped.Add(1)
				scanner.logger.Warn("probe timeout", "path", childPath)
				continue
			}
		}

		info, err := entry.Info()
		if err != nil {
			state.errs.Add(1)
			continue
		}

		kind := domain.KindFile
		switch {
		case entry.IsDir():
			kind = domain.KindDirectory
		case info.Mode()&os.ModeSymlink != 0:
			kind = domain.KindSymlink
		}

		if kind == domain.KindSymlink && state.req.FollowSymlinks {
			target, statErr := os.Stat(childPath)
			if statErr != nil {
				// Broken link: recorded, entry kept as a zero-size symlink.
				state.errs.Add(1)
			} else if target.IsDir() {
				if state.markVisited(target) {
					kind = domain.KindDirectory
					info = target
				} else {
					continue // cycle
				}
			}
		}

		if kind != domain.KindDirectory {
			childID, addErr := state.tree.AddNode(entry.Name(), kind, id)
			if addErr != nil {
				state.errs.Add(1)
				continue
			}
			size := diskUsage(info)
			state.tree.SetSize(childID, size)
			state.files.Add(1)
			state.bytes.Add(size)
			continue
		}

		childID, addErr := state.tree.AddNode(entry.Name(), domain.KindDirectory, id)
		if addErr != nil {
			state.errs.Add(1)
			continue
		}
		state.tree.SetModTime(childID, info.ModTime())
		state.dirs.Add(1)
		state.current.Store(childPath)

		if !state.req.CrossFilesystem {
			if dev := deviceID(info); dev != 0 && dev != state.rootDev {
				state.tree.MarkSkipped(childID)
				state.skipped.Add(1)
				continue
			}
		}

		childDepth := depth + 1
		if state.req.MaxDepth > 0 && childDepth >= state.req.MaxDepth {
			continue
		}

		run := func() error {
			scanner.scanDir(ctx, state, childID, childPath, childDepth)
			return nil
		}
		if !state.group.TryGo(run) {
			_ = run()
		}
	}
}

// markVisited records a followed directory's (device, inode) pair and
// reports whether it was new. Guards against symlink loops.
func (state *scanState) markVisited(info os.FileInfo) bool {
	stamp, ok := devInodeOf(info)
	if !ok {
		return true
	}
	state.visitedMu.Lock()
	defer state.visitedMu.Unlock()
	if _, seen := state.visited[stamp]; seen {
		return false
	}
	state.visited[stamp] = struct{}{}
	return true
}

func cleanPath(path string) string {
	if path == "" {
		return path
	}
	clean := filepath.Clean(path)
	abs, err := filepath.Abs(clean)
	if err != nil {
		return clean
	}
	return abs
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
