package services

import (
	"context"
	"time"

	"dux/internal/domain"
)

// MockScanner returns a prebuilt tree without touching the filesystem.
// Used by state and ui tests.
type MockScanner struct {
	Tree     *domain.Tree
	Result   ScanResult
	Err      error
	progress chan ScanProgress
}

func NewMockScanner(tree *domain.Tree) *MockScanner {
	return &MockScanner{Tree: tree, progress: make(chan ScanProgress, 1)}
}

func (scanner *MockScanner) Progress() <-chan ScanProgress {
	return scanner.progress
}

func (scanner *MockScanner) Scan(ctx context.Context, req ScanRequest) (*domain.Tree, ScanResult, error) {
	if scanner.Err != nil {
		return nil, ScanResult{}, scanner.Err
	}
	result := scanner.Result
	result.RootPath = req.RootPath
	result.Duration = time.Millisecond
	progressNonBlocking(scanner.progress, ScanProgress{Completed: true})
	return scanner.Tree, result, nil
}
