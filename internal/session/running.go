package session

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/xobs/runny/internal/metrics"
	"github.com/xobs/runny/internal/pty"
)

// ErrStreamTaken is returned when a session stream is requested after its
// ownership has already been moved out, or when the handle is used for I/O
// after the corresponding take.
var ErrStreamTaken = errors.New("session: stream already taken")

// Running supervises a spawned child. It owns the terminal pair, the
// stderr side channel, and the two background goroutines; the caller reads
// and writes through it (or through taken streams) and learns the exit
// result via Wait, Result or a Waiter.
type Running struct {
	cmd *exec.Cmd
	pid int
	tty *pty.Pair

	result *resultSlot

	grace     time.Duration
	termMu    sync.Mutex
	termDelay *time.Duration
	sigErr    error
	wake      chan struct{}

	streamMu    sync.Mutex
	input       *os.File
	output      *os.File
	errOut      *os.File
	inputTaken  bool
	outputTaken bool
	errTaken    bool

	started   time.Time
	closeOnce sync.Once
	closeErr  error
}

// Pid returns the child's process id. It stays valid for signaling checks
// even after the child exits.
func (r *Running) Pid() int {
	return r.pid
}

// StartedAt reports when the child was spawned.
func (r *Running) StartedAt() time.Time {
	return r.started
}

// ExitCode reports the published exit result without blocking. The second
// return is false while the child is still running.
func (r *Running) ExitCode() (int, bool) {
	return r.result.peek()
}

// Read reads from the child's merged terminal output. Once the child has
// exited and released its side of the terminal, reads report a clean EOF
// even though the device itself may surface an I/O error.
func (r *Running) Read(p []byte) (int, error) {
	r.streamMu.Lock()
	taken, f := r.outputTaken, r.output
	r.streamMu.Unlock()
	if taken {
		return 0, ErrStreamTaken
	}
	if f == nil {
		return 0, io.EOF
	}
	return readTerminal(f, p)
}

// Write writes to the child's terminal input.
func (r *Running) Write(p []byte) (int, error) {
	r.streamMu.Lock()
	taken, f := r.inputTaken, r.input
	r.streamMu.Unlock()
	if taken || f == nil {
		return 0, ErrStreamTaken
	}
	return f.Write(p)
}

// TakeInput moves the exclusive input stream out of the handle. The second
// take, and any Write on the handle afterwards, fails with ErrStreamTaken.
// The returned stream owns its descriptor and should be closed by the
// caller.
func (r *Running) TakeInput() (io.WriteCloser, error) {
	r.streamMu.Lock()
	defer r.streamMu.Unlock()
	if r.inputTaken || r.input == nil {
		return nil, ErrStreamTaken
	}
	r.inputTaken = true
	return r.input, nil
}

// TakeOutput moves the exclusive output stream out of the handle. The
// session retains ownership of the underlying terminal device, which stays
// open until the handle itself is closed.
func (r *Running) TakeOutput() (io.ReadCloser, error) {
	r.streamMu.Lock()
	defer r.streamMu.Unlock()
	if r.outputTaken || r.output == nil {
		return nil, ErrStreamTaken
	}
	r.outputTaken = true
	return &terminalReader{f: r.output}, nil
}

// TakeError moves the stderr side channel out of the handle. Unlike the
// terminal stream, stderr arrives over a plain pipe and reaches EOF the
// usual way.
func (r *Running) TakeError() (io.ReadCloser, error) {
	r.streamMu.Lock()
	defer r.streamMu.Unlock()
	if r.errTaken || r.errOut == nil {
		return nil, ErrStreamTaken
	}
	r.errTaken = true
	return r.errOut, nil
}

// Wait blocks until the exit result has been published and returns it. Any
// number of callers may wait concurrently; the single wait on the child is
// performed by the exit watcher, never here.
func (r *Running) Wait() (int, error) {
	return r.result.wait()
}

// Result is Wait with the wait-call failure collapsed into the ExitSignaled
// sentinel. A child that merely failed is a normal result, not an error.
func (r *Running) Result() int {
	code, _ := r.result.wait()
	return code
}

// Waiter returns an independent observer for the session. Waiters can be
// handed to unrelated code; each may block for the result or request
// termination without exposing the rest of the handle.
func (r *Running) Waiter() *Waiter {
	return &Waiter{r: r}
}

// Terminate requests that the child exit and blocks until the exit result
// is published. If the child has already exited the stored result is
// returned immediately and no signal is sent. The delay, when non-nil,
// overrides the session grace period between the graceful signal and the
// forced kill; concurrent calls join the single in-flight escalation.
func (r *Running) Terminate(delay *time.Duration) (int, error) {
	if code, ok := r.result.peek(); ok {
		return code, nil
	}
	r.requestStop(delay)
	code, err := r.result.wait()
	if err == nil {
		err = r.takeSignalErr()
	}
	return code, err
}

// Close tears the session down. A still-running child takes the forced
// path with no grace delay, and Close returns only once the exit has been
// reaped, so no child outlives its handle. The terminal pair and any
// untaken streams are released.
func (r *Running) Close() error {
	r.closeOnce.Do(func() {
		if !r.result.resolved() {
			immediate := time.Duration(0)
			if _, err := r.Terminate(&immediate); err != nil {
				r.closeErr = err
			}
		}

		r.streamMu.Lock()
		if !r.inputTaken && r.input != nil && r.input != r.output {
			r.input.Close()
		}
		r.input = nil
		if !r.errTaken && r.errOut != nil {
			r.errOut.Close()
		}
		r.errOut = nil
		r.output = nil
		r.streamMu.Unlock()

		if r.tty != nil {
			if err := r.tty.Close(); err != nil && r.closeErr == nil {
				r.closeErr = err
			}
		}
	})
	return r.closeErr
}

// requestStop records the delay override and wakes the termination
// scheduler. The wake channel is buffered so the first request wins and
// later ones fall through to waiting on the result.
func (r *Running) requestStop(delay *time.Duration) {
	r.termMu.Lock()
	if delay != nil {
		d := *delay
		r.termDelay = &d
	}
	r.termMu.Unlock()
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// stopDelay resolves the grace period for the current escalation: an
// explicit override from Terminate wins over the session default.
func (r *Running) stopDelay() time.Duration {
	r.termMu.Lock()
	defer r.termMu.Unlock()
	if r.termDelay != nil {
		return *r.termDelay
	}
	return r.grace
}

func (r *Running) recordSignalErr(err error) {
	r.termMu.Lock()
	if r.sigErr == nil {
		r.sigErr = err
	}
	r.termMu.Unlock()
}

func (r *Running) takeSignalErr() error {
	r.termMu.Lock()
	defer r.termMu.Unlock()
	return r.sigErr
}

// watchExit performs the only wait on the child for the session's entire
// lifetime and publishes the normalized result. Calling wait twice on the
// same pid is undefined, so a wait failure is terminal and never retried.
func (r *Running) watchExit() {
	code, err := exitResult(r.cmd.Wait())
	r.result.publish(code, err)
	metrics.SessionExited(code, time.Since(r.started))
}

// supervise is the termination scheduler. It parks until the session
// timeout elapses or a stop request arrives, then runs the two-phase
// escalation: graceful signal to the process group, interruptible grace
// delay, unconditional forced kill. A child that exits first cancels the
// whole thing; a forced kill against an already-reaped group is a no-op.
func (r *Running) supervise(timeout time.Duration) {
	if !r.awaitStopRequest(timeout) {
		return
	}
	if r.result.resolved() {
		// Exited naturally while we were waking up. Never signal a
		// group that has already been reaped.
		return
	}

	if r.signalStop() {
		metrics.TerminationSignaled(metrics.PhaseGraceful)
	}

	if delay := r.stopDelay(); delay > 0 {
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-r.result.done:
			t.Stop()
		}
	}

	// Best effort: if the child exited during the grace delay this hits a
	// dead group, which is swallowed and not counted as a delivery.
	if r.signalKill() {
		metrics.TerminationSignaled(metrics.PhaseForceful)
	}
}

// awaitStopRequest parks until the deadline fires or an explicit wake
// arrives. It reports false when the result resolved first, in which case
// the scheduler has nothing to do.
func (r *Running) awaitStopRequest(timeout time.Duration) bool {
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		select {
		case <-t.C:
			return true
		case <-r.wake:
			return true
		case <-r.result.done:
			return false
		}
	}
	select {
	case <-r.wake:
		return true
	case <-r.result.done:
		return false
	}
}

// Waiter observes a session without holding the full handle. It shares the
// session's result slot and termination machinery, so every waiter sees
// the identical exit result.
type Waiter struct {
	r *Running
}

// Wait blocks until the session's exit result is published.
func (w *Waiter) Wait() (int, error) {
	return w.r.Wait()
}

// Result blocks like Wait and collapses the wait-call error.
func (w *Waiter) Result() int {
	return w.r.Result()
}

// Terminate forwards to the session's termination machinery.
func (w *Waiter) Terminate(delay *time.Duration) (int, error) {
	return w.r.Terminate(delay)
}

// terminalReader is the taken output stream. Close detaches the reader
// without closing the terminal device, which the session owns for its
// whole lifetime.
type terminalReader struct {
	f *os.File
}

func (t *terminalReader) Read(p []byte) (int, error) {
	return readTerminal(t.f, p)
}

func (t *terminalReader) Close() error {
	return nil
}

func readTerminal(f *os.File, p []byte) (int, error) {
	n, err := f.Read(p)
	if err != nil && isHangup(err) {
		return n, io.EOF
	}
	return n, err
}

// isHangup reports read errors a terminal master produces once the child
// side has gone away. The pty driver reports EIO rather than a clean EOF,
// and a master released by Close reports a closed-file error; both simply
// mean the stream is finished.
func isHangup(err error) bool {
	return errors.Is(err, syscall.EIO) || errors.Is(err, fs.ErrClosed)
}
