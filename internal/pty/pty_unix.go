//go:build !windows

package pty

import (
	"fmt"
	"os"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Pair owns the two ends of a pseudo-terminal. The master side stays with
// the supervisor; the slave side becomes the child's controlling terminal
// and is closed in the parent once the child has been spawned.
type Pair struct {
	Master *os.File
	Slave  *os.File
}

// Open allocates a fresh pseudo-terminal pair and configures the master
// side for raw operation: no input translation, no output post-processing,
// no echo or line editing, 8-bit characters, and reads that return as soon
// as a single byte is available. Allocation failures are fatal to session
// construction and are not retried.
func Open() (*Pair, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("allocate pty pair: %w", err)
	}

	if _, err := term.MakeRaw(int(master.Fd())); err != nil {
		master.Close()
		slave.Close()
		return nil, fmt.Errorf("configure raw mode on %s: %w", slave.Name(), err)
	}

	return &Pair{Master: master, Slave: slave}, nil
}

// Resize sets the terminal dimensions reported to the child. A zero row or
// column count leaves the kernel default in place.
func (p *Pair) Resize(rows, cols uint16) error {
	if rows == 0 || cols == 0 {
		return nil
	}
	ws := &unix.Winsize{Row: rows, Col: cols}
	if err := unix.IoctlSetWinsize(int(p.Master.Fd()), unix.TIOCSWINSZ, ws); err != nil {
		return fmt.Errorf("set window size: %w", err)
	}
	return nil
}

// CloseSlave releases the parent's copy of the slave descriptor. The child
// keeps its own duplicates across exec.
func (p *Pair) CloseSlave() error {
	if p.Slave == nil {
		return nil
	}
	err := p.Slave.Close()
	p.Slave = nil
	return err
}

// Close releases both descriptors. Closing the master while a child is
// still attached turns the child's terminal reads into errors, so callers
// keep the pair alive for the whole session.
func (p *Pair) Close() error {
	var first error
	if p.Master != nil {
		if err := p.Master.Close(); err != nil {
			first = err
		}
		p.Master = nil
	}
	if err := p.CloseSlave(); err != nil && first == nil {
		first = err
	}
	return first
}
