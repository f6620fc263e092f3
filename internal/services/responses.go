package services

import "time"

type ScanResult struct {
	RootPath string
	Files    int64
	Dirs     int64
	Bytes    int64
	Errors   int64
	Skipped  int64
	Duration time.Duration
}

type DeleteSample struct {
	Path string
	Size int64
}

// DeletePreview summarizes a pending batch for the confirmation prompt.
// It is computed from tree data alone, no filesystem walk.
type DeletePreview struct {
	Count      int
	TotalBytes int64
	Samples    []DeleteSample
}

type DeleteFailure struct {
	Path  string
	Error string
}
