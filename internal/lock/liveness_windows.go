//go:build windows

package lock

import "os"

// pidAlive is a best-effort probe on Windows, where signal 0 is unavailable.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	_, err := os.FindProcess(pid)
	return err == nil
}
