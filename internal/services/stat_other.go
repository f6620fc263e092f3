//go:build !unix

package services

import "os"

func diskUsage(info os.FileInfo) int64 {
	return info.Size()
}

func deviceID(info os.FileInfo) uint64 {
	return 0
}

type devInode struct {
	dev uint64
	ino uint64
}

func devInodeOf(info os.FileInfo) (devInode, bool) {
	return devInode{}, false
}
