//go:build unix

package services

import (
	"os"
	"syscall"
)

// diskUsage returns allocated bytes (st_blocks is in 512-byte units),
// which differs from the logical length for sparse files.
func diskUsage(info os.FileInfo) int64 {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return stat.Blocks * 512
	}
	return info.Size()
}

func deviceID(info os.FileInfo) uint64 {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(stat.Dev)
	}
	return 0
}

type devInode struct {
	dev uint64
	ino uint64
}

func devInodeOf(info os.FileInfo) (devInode, bool) {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return devInode{dev: uint64(stat.Dev), ino: stat.Ino}, true
	}
	return devInode{}, false
}
