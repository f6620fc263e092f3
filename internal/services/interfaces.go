package services

import (
	"context"

	"dux/internal/domain"
)

type Scanner interface {
	Scan(ctx context.Context, req ScanRequest) (*domain.Tree, ScanResult, error)
}

type Deleter interface {
	Preview(tree *domain.Tree, ids []domain.NodeID) DeletePreview
	Delete(tree *domain.Tree, ids []domain.NodeID) *DeleteHandle
}

type ProgressProvider interface {
	Progress() <-chan ScanProgress
}

type Invalidator interface {
	Invalidate(root string)
}
