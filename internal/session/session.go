package session

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/xobs/runny/internal/metrics"
)

// DefaultGrace is the delay between the graceful signal and the forced kill
// when neither the session config nor the terminate call provides one.
const DefaultGrace = 5 * time.Second

const defaultTerm = "xterm-256color"

// ErrNoCommand is returned when a session is started without an argument
// vector.
var ErrNoCommand = errors.New("session: no command specified")

// Config describes a command to run under a supervised pseudo-terminal.
type Config struct {
	// Command is the argument vector to execute. It must not be empty.
	Command []string

	// Dir is the working directory for the child. Empty means inherit.
	Dir string

	// Env holds environment overrides merged over the parent environment.
	Env map[string]string

	// Path holds extra directories prepended to the child's PATH. An
	// explicit PATH in Env still wins.
	Path []string

	// Term is the TERM value exported to the child. Empty selects a
	// sensible interactive default.
	Term string

	// Timeout arms the termination scheduler with a deadline. Zero means
	// the session runs until it exits or is terminated explicitly.
	Timeout time.Duration

	// Grace is the session default delay between the graceful signal and
	// the forced kill. Zero selects DefaultGrace.
	Grace time.Duration

	// Rows and Cols set the initial terminal dimensions. Zero keeps the
	// platform default.
	Rows uint16
	Cols uint16
}

// Start launches the configured command attached to a fresh
// pseudo-terminal and returns the handle supervising it. Construction
// failures happen before any process exists; the only state to unwind is
// the descriptors, which are closed on the way out.
func Start(cfg Config) (*Running, error) {
	if len(cfg.Command) == 0 {
		return nil, ErrNoCommand
	}

	p, err := spawn(&cfg)
	if err != nil {
		return nil, err
	}

	grace := cfg.Grace
	if grace <= 0 {
		grace = DefaultGrace
	}

	r := &Running{
		cmd:     p.cmd,
		pid:     p.cmd.Process.Pid,
		tty:     p.tty,
		input:   p.input,
		output:  p.output,
		errOut:  p.errOut,
		grace:   grace,
		wake:    make(chan struct{}, 1),
		result:  newResultSlot(),
		started: time.Now(),
	}

	go r.watchExit()
	go r.supervise(cfg.Timeout)

	metrics.SessionStarted()
	return r, nil
}

// childEnv builds the child environment: the parent environment, a TERM
// value, any extra PATH entries, then the configured overrides in a stable
// order.
func childEnv(cfg *Config) []string {
	term := cfg.Term
	if term == "" {
		term = defaultTerm
	}
	env := append(os.Environ(), "TERM="+term)

	if len(cfg.Path) > 0 {
		entries := append([]string(nil), cfg.Path...)
		if current := os.Getenv("PATH"); current != "" {
			entries = append(entries, current)
		}
		env = append(env, "PATH="+strings.Join(entries, string(os.PathListSeparator)))
	}

	if len(cfg.Env) == 0 {
		return env
	}
	keys := make([]string, 0, len(cfg.Env))
	for k := range cfg.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, cfg.Env[k]))
	}
	return env
}
