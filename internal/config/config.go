package config

type Config struct {
	Path             string            `json:"path"`
	MaxDepth         int               `json:"maxDepth"`
	FollowSymlinks   bool              `json:"followSymlinks"`
	CrossFilesystem  bool              `json:"crossFilesystem"`
	ForceRescan      bool              `json:"-"`
	Workers          int               `json:"workers"`
	SkipOverrides    []string          `json:"skipOverrides"`
	ArtifactPatterns map[string]string `json:"artifactPatterns"`
	LogFile          string            `json:"logFile"`
}

type fileConfig struct {
	Path             *string           `json:"path"`
	MaxDepth         *int              `json:"maxDepth"`
	FollowSymlinks   *bool             `json:"followSymlinks"`
	CrossFilesystem  *bool             `json:"crossFilesystem"`
	Workers          *int              `json:"workers"`
	SkipOverrides    []string          `json:"skipOverrides"`
	ArtifactPatterns map[string]string `json:"artifactPatterns"`
	LogFile          *string           `json:"logFile"`
}
