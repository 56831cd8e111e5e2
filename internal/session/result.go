package session

import (
	"errors"
	"os/exec"
	"sync"
)

const (
	// ExitSignaled is published when the child was terminated by a signal
	// or when the wait call itself failed.
	ExitSignaled = -1
	// ExitUnavailable is published when the child stopped without leaving
	// a recoverable exit status.
	ExitUnavailable = -2
)

// resultSlot is the write-once cell holding the child's exit result. The
// exit watcher publishes into it exactly once; everyone else only reads.
// Once set, the value never changes.
type resultSlot struct {
	mu   sync.Mutex
	set  bool
	code int
	err  error

	done chan struct{}
}

func newResultSlot() *resultSlot {
	return &resultSlot{done: make(chan struct{})}
}

// publish stores the exit result and wakes every blocked observer. Later
// calls are ignored so the first published value always wins.
func (s *resultSlot) publish(code int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set {
		return
	}
	s.set = true
	s.code = code
	s.err = err
	close(s.done)
}

// wait blocks until a result has been published and returns it.
func (s *resultSlot) wait() (int, error) {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code, s.err
}

// peek reports the published result without blocking.
func (s *resultSlot) peek() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.code, s.set
}

func (s *resultSlot) resolved() bool {
	_, ok := s.peek()
	return ok
}

// exitResult normalizes the outcome of the single wait call. A normal exit
// maps to the child's exit code, a signaled child to ExitSignaled, and a
// stop without a usable status to ExitUnavailable. A failure of the wait
// call itself is terminal: the error is published alongside ExitSignaled
// and never retried, since a second wait on a reaped pid is unsafe.
func exitResult(waitErr error) (int, error) {
	if waitErr == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		if exitErr.Exited() {
			return ExitUnavailable, nil
		}
		return ExitSignaled, nil
	}
	return ExitSignaled, waitErr
}
