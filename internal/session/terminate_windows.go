//go:build windows

package session

import (
	"errors"
	"fmt"
	"os"
)

// signalStop delivers a close request to the child. Interrupt delivery is
// not implemented on windows, so a failed attempt is the normal case and
// never an error; the forced kill that follows is the effective stop.
func (r *Running) signalStop() bool {
	if r.cmd.Process == nil {
		return false
	}
	return r.cmd.Process.Signal(os.Interrupt) == nil
}

// signalKill terminates the child outright, best effort, reporting whether
// a live process received it.
func (r *Running) signalKill() bool {
	if r.cmd.Process == nil {
		return false
	}
	err := r.cmd.Process.Kill()
	if err == nil {
		return true
	}
	if !errors.Is(err, os.ErrProcessDone) {
		r.recordSignalErr(fmt.Errorf("kill process %d: %w", r.pid, err))
	}
	return false
}
