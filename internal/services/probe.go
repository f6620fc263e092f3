package services

import (
	"os"
	"time"
)

const defaultProbeTimeout = 5 * time.Second

// probeDir stats a directory with a bounded wait. A hung network or
// FUSE mount blocks Lstat indefinitely; racing it against a timer keeps
// one dead mount from stalling the traversal of unrelated branches. On
// timeout the stat goroutine is abandoned; it holds no locks and dies
// with the process.
func probeDir(path string, timeout time.Duration) bool {
	done := make(chan error, 1)
	go func() {
		_, err := os.Lstat(path)
		done <- err
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err == nil
	case <-timer.C:
		return false
	}
}
