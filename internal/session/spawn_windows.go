//go:build windows

package session

import (
	"fmt"
	"os"
	"os/exec"

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

// spawn launches the command over plain pipes. Windows has no terminal
// device pair, so the merged-terminal semantics degrade to an ordinary
// stdout pipe; the supervision contract is unchanged.
func spawn(cfg *Config) (*proc, error) {
	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		outR.Close()
		outW.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = childEnv(cfg)
	cmd.Stdin = inR
	cmd.Stdout = outW
	cmd.Stderr = errW

	if err := cmd.Start(); err != nil {
		inR.Close()
		inW.Close()
		outR.Close()
		outW.Close()
		errR.Close()
		errW.Close()
		return nil, fmt.Errorf("start %s: %w", cfg.Command[0], err)
	}

	inR.Close()
	outW.Close()
	errW.Close()

	return &proc{
		cmd:    cmd,
		input:  inW,
		output: outR,
		errOut: errR,
	}, nil
}
