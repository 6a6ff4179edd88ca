//go:build unix

package lock

import (
	"errors"

	"golang.org/x/sys/unix"
)

// pidAlive probes a PID with a null signal. Permission denied still means the
// process exists; only no-such-process means it is gone.
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	if err == nil {
		return true
	}
	if errors.Is(err, unix.EPERM) {
		return true
	}
	return !errors.Is(err, unix.ESRCH)
}
