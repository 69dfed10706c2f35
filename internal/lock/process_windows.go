//go:build windows

package lock

import "os"

// processAlive reports whether pid is a live process. Windows has no
// signal-0 convention; FindProcess succeeding is the closest analogue.
func processAlive(pid int) bool {
	_, err := os.FindProcess(pid)
	return err == nil
}
