package api

import (
	stdcontext "context"
	"errors"
	"time"
)

var (
	// ErrNoSession is returned when no supervised session is attached to
	// the control surface.
	ErrNoSession = errors.New("no active session")
)

// SessionReport describes the runtime state of the supervised session.
type SessionReport struct {
	Job         string    `json:"job"`
	Pid         int       `json:"pid"`
	Running     bool      `json:"running"`
	ExitCode    *int      `json:"exit_code,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	GeneratedAt time.Time `json:"generated_at"`
}

// TerminateResult captures the outcome of a terminate request.
type TerminateResult struct {
	Job         string    `json:"job"`
	ExitCode    int       `json:"exit_code"`
	CompletedAt time.Time `json:"completed_at"`
}

// Controller exposes session operations required by control servers.
type Controller interface {
	Status(stdcontext.Context) (*SessionReport, error)
	Terminate(stdcontext.Context, *time.Duration) (*TerminateResult, error)
}
