//go:build !windows

package session

import (
	"errors"
	"fmt"
	"syscall"
)

// signalStop delivers the graceful signal to the child's entire process
// group and reports whether it reached a live group. A group that has
// already exited (ESRCH) is the expected race with natural exit and is
// swallowed; anything else is surfaced through Terminate.
func (r *Running) signalStop() bool {
	err := syscall.Kill(-r.pid, syscall.SIGTERM)
	if err == nil {
		return true
	}
	if !errors.Is(err, syscall.ESRCH) {
		r.recordSignalErr(fmt.Errorf("signal process group %d: %w", r.pid, err))
	}
	return false
}

// signalKill delivers the forced kill to the process group, best effort,
// reporting whether a live group received it.
func (r *Running) signalKill() bool {
	err := syscall.Kill(-r.pid, syscall.SIGKILL)
	if err == nil {
		return true
	}
	if !errors.Is(err, syscall.ESRCH) {
		r.recordSignalErr(fmt.Errorf("kill process group %d: %w", r.pid, err))
	}
	return false
}
