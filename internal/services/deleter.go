package services

import (
	"log/slog"
	"os"
	"sync"

	"dux/internal/domain"
)

const previewSamples = 5

// FSDeleter removes entries from the filesystem and the tree. The tree
// update is optimistic: tombstoning and size propagation happen
// synchronously before any filesystem work, so the display reflects the
// user's intent immediately. A filesystem failure never un-tombstones;
// it is counted and surfaced for the session.
type FSDeleter struct {
	logger *slog.Logger
}

func NewFSDeleter(logger *slog.Logger) *FSDeleter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSDeleter{logger: logger}
}

// DeleteHandle tracks one background deletion batch. Deletion has no
// timeout and no cancellation: a batch in flight when the session ends
// still runs to completion, and Wait lets the shutdown path hold the
// cache write until it has.
type DeleteHandle struct {
	progress chan DeleteProgress
	done     chan struct{}

	mu       sync.Mutex
	state    DeleteProgress
	failures []DeleteFailure
}

func (handle *DeleteHandle) Progress() <-chan DeleteProgress {
	return handle.progress
}

func (handle *DeleteHandle) Wait() {
	<-handle.done
}

func (handle *DeleteHandle) Result() DeleteProgress {
	handle.mu.Lock()
	defer handle.mu.Unlock()
	return handle.state
}

func (handle *DeleteHandle) Failures() []DeleteFailure {
	handle.mu.Lock()
	defer handle.mu.Unlock()
	return append([]DeleteFailure(nil), handle.failures...)
}

// Preview summarizes what deleting ids would remove, with up to five
// representative paths. Pure tree reads; the confirmation prompt is the
// caller's job.
func (deleter *FSDeleter) Preview(tree *domain.Tree, ids []domain.NodeID) DeletePreview {
	preview := DeletePreview{}
	for _, id := range dedupNested(tree, ids) {
		node, ok := tree.Get(id)
		if !ok {
			continue
		}
		preview.Count++
		preview.TotalBytes += node.Size
		if len(preview.Samples) < previewSamples {
			if path, pathOK := tree.PathOf(id); pathOK {
				preview.Samples = append(preview.Samples, DeleteSample{Path: path, Size: node.Size})
			}
		}
	}
	return preview
}

// Delete tombstones each top-level id (descendants included, sizes
// propagated) and then removes the paths concurrently in the
// background, one goroutine per item, all reporting into the handle's
// progress channel.
func (deleter *FSDeleter) Delete(tree *domain.Tree, ids []domain.NodeID) *DeleteHandle {
	type job struct {
		path  string
		size  int64
		isDir bool
	}

	var jobs []job
	for _, id := range dedupNested(tree, ids) {
		node, ok := tree.Get(id)
		if !ok {
			continue // already tombstoned: idempotent no-op
		}
		path, pathOK := tree.PathOf(id)
		if !pathOK {
			continue
		}
		// Tombstone before the filesystem side effect. RemoveNode
		// returns only after the ancestor chain is updated, so no
		// progress event can precede its propagation.
		size := tree.RemoveNode(id)
		jobs = append(jobs, job{path: path, size: size, isDir: node.Kind.IsDirectory()})
	}

	handle := &DeleteHandle{
		progress: make(chan DeleteProgress, 64),
		done:     make(chan struct{}),
		state:    DeleteProgress{Total: len(jobs)},
	}

	if len(jobs) == 0 {
		handle.state.Done = true
		close(handle.progress)
		close(handle.done)
		return handle
	}

	type outcome struct {
		size    int64
		path    string
		failure string
	}
	results := make(chan outcome, len(jobs))

	for _, item := range jobs {
		item := item
		go func() {
			var err error
			if item.isDir {
				err = os.RemoveAll(item.path)
			} else {
				err = os.Remove(item.path)
			}
			if err != nil {
				results <- outcome{path: item.path, failure: err.Error()}
				return
			}
			results <- outcome{size: item.size, path: item.path}
		}()
	}

	go func() {
		defer close(handle.done)
		defer close(handle.progress)
		for completed := 0; completed < len(jobs); completed++ {
			result := <-results
			handle.mu.Lock()
			handle.state.Completed++
			if result.failure != "" {
				handle.state.Failures++
				handle.failures = append(handle.failures, DeleteFailure{Path: result.path, Error: result.failure})
				deleter.logger.Warn("delete failed", "path", result.path, "error", result.failure)
			} else {
				handle.state.FreedBytes += result.size
			}
			handle.state.Done = handle.state.Completed == len(jobs)
			snapshot := handle.state
			handle.mu.Unlock()
			deleteProgressNonBlocking(handle.progress, snapshot)
		}
	}()

	return handle
}

// dedupNested drops ids whose ancestor is also being deleted; removing
// the ancestor covers them, and tombstoning both would double-count.
func dedupNested(tree *domain.Tree, ids []domain.NodeID) []domain.NodeID {
	selected := make(map[domain.NodeID]struct{}, len(ids))
	for _, id := range ids {
		if id != domain.RootID {
			selected[id] = struct{}{}
		}
	}

	var result []domain.NodeID
	for _, id := range ids {
		if id == domain.RootID {
			continue
		}
		covered := false
		node, ok := tree.Get(id)
		for ok && node.Parent != domain.InvalidID {
			if _, sel := selected[node.Parent]; sel {
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
