package services

// ScanRequest configures a single scan attempt.
type ScanRequest struct {
	RootPath        string
	MaxDepth        int
	FollowSymlinks  bool
	CrossFilesystem bool
	Workers         int
	SkipOverrides   []string
}

// CachedScanConfig is the subset of scan configuration that affects
// cache validity: a snapshot taken with different settings is not
// reusable.
type CachedScanConfig struct {
	FollowSymlinks  bool `json:"followSymlinks"`
	CrossFilesystem bool `json:"crossFilesystem"`
	MaxDepth        int  `json:"maxDepth"`
}

func (req ScanRequest) CacheConfig() CachedScanConfig {
	return CachedScanConfig{
		FollowSymlinks:  req.FollowSymlinks,
		CrossFilesystem: req.CrossFilesystem,
		MaxDepth:        req.MaxDepth,
	}
}
