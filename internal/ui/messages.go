package ui

import (
	"dux/internal/domain"
	"dux/internal/services"
)

type scanDoneMsg struct {
	tree   *domain.Tree
	result services.ScanResult
	err    error
}

type scanProgressMsg struct {
	progress services.ScanProgress
	ok       bool
}

type deleteProgressMsg struct {
	progress services.DeleteProgress
	ok       bool
}
