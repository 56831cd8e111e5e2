//go:build windows

package pty

import (
	"errors"
	"os"
)

// Pair exists on Windows only so shared code compiles; sessions on this
// platform run over plain pipes instead of a terminal device.
type Pair struct {
	Master *os.File
	Slave  *os.File
}

// Open always fails on Windows. The session spawner selects the pipe
// backend instead of calling it.
func Open() (*Pair, error) {
	return nil, errors.New("pseudo-terminals are not supported on windows")
}

func (p *Pair) Resize(rows, cols uint16) error { return nil }

func (p *Pair) CloseSlave() error { return nil }

func (p *Pair) Close() error { return nil }
