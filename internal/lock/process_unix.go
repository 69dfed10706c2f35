//go:build !windows

package lock

import "syscall"

// processAlive reports whether pid is a live process, via the signal-0
// convention: sending signal 0 performs error checking without actually
// signaling.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err != syscall.ESRCH
}
