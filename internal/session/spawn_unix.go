//go:build !windows

package session

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/xobs/runny/internal/pty"
)

// proc carries the per-platform spawn products back to Start.
type proc struct {
	cmd    *exec.Cmd
	tty    *pty.Pair
	input  *os.File
	output *os.File
	errOut *os.File
}

// spawn launches the command with the terminal slave duplicated onto its
// stdin and stdout and a dedicated pipe as its stderr. Keeping stderr off
// the terminal lets the caller capture error output independently of the
// merged stream, and keeps the EOF-vs-EIO handling of the master read path
// from swallowing real errors.
func spawn(cfg *Config) (*proc, error) {
	tty, err := pty.Open()
	if err != nil {
		return nil, err
	}
	if err := tty.Resize(cfg.Rows, cfg.Cols); err != nil {
		tty.Close()
		return nil, err
	}

	errR, errW, err := os.Pipe()
	if err != nil {
		tty.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	// A separate descriptor for the input side so input and output
	// ownership can be moved out independently.
	inFd, err := unix.Dup(int(tty.Master.Fd()))
	if err != nil {
		errR.Close()
		errW.Close()
		tty.Close()
		return nil, fmt.Errorf("dup master: %w", err)
	}
	input := os.NewFile(uintptr(inFd), tty.Master.Name())

	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = childEnv(cfg)
	cmd.Stdin = tty.Slave
	cmd.Stdout = tty.Slave
	cmd.Stderr = errW
	// The child starts a new session with the slave as its controlling
	// terminal, making it the leader of its own process group so
	// termination signals reach every descendant.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true, Ctty: 0}

	if err := cmd.Start(); err != nil {
		input.Close()
		errR.Close()
		errW.Close()
		tty.Close()
		return nil, fmt.Errorf("start %s: %w", cfg.Command[0], err)
	}

	// The child holds its own copies now.
	errW.Close()
	tty.CloseSlave()

	return &proc{
		cmd:    cmd,
		tty:    tty,
		input:  input,
		output: tty.Master,
		errOut: errR,
	}, nil
}
