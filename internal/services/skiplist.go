package services

import (
	"path/filepath"
	"strings"
)

// defaultSkipPatterns marks mounts that hang or lie about their
// contents: cloud-sync FUSE filesystems that fault files in on stat,
// virtual filesystems, and indexer droppings. Matched directories are
// flagged skipped and never descended.
var defaultSkipPatterns = []string{
	"Library/CloudStorage",
	"OneDrive",
	"Dropbox",
	"Google Drive",
	"GoogleDrive",
	"pCloud Drive",
	"iCloud Drive",
	"/proc/",
	"/sys/",
	"/dev/",
	".Spotlight-V100",
	".fseventsd",
	".DocumentRevisions-V100",
	".MobileBackups",
	".timemachine",
	"CoreSimulator/Volumes",
	"/private/var/folders",
	"/private/var/db/dyld",
}

type skipList struct {
	patterns []string
	rootPath string
}

func newSkipList(rootPath string, overrides []string) *skipList {
	patterns := append([]string(nil), defaultSkipPatterns...)
	patterns = append(patterns, overrides...)
	return &skipList{patterns: patterns, rootPath: rootPath}
}

const sep = string(filepath.Separator)

// Match reports whether path should be skipped. Patterns are matched on
// path segment boundaries. A pattern never applies to ancestors of the
// scan root, nor when the root itself sits inside it, otherwise
// scanning within e.g. a Dropbox folder would be impossible.
func (list *skipList) Match(path string) bool {
	if path == list.rootPath || strings.HasPrefix(list.rootPath, path+sep) {
		return false
	}
	for _, pattern := range list.patterns {
		if segmentMatch(path, pattern) && !segmentMatch(list.rootPath, pattern) {
			return true
		}
	}
	return false
}

// segmentMatch reports whether pattern occurs in path starting at a
// segment boundary. The pattern may be a prefix of its last segment, so
// "OneDrive" matches "OneDrive - Personal" but never "MyOneDriveNotes".
// A trailing separator anchors the last segment too: "/proc/" matches
// "/proc/1" but not "/procfs/x".
func segmentMatch(path, pattern string) bool {
	haystack := sep + path + sep
	if strings.HasSuffix(pattern, sep) {
		return strings.Contains(haystack, sep+strings.Trim(pattern, sep)+sep)
	}
	return strings.Contains(haystack, sep+strings.TrimLeft(pattern, sep))
}
