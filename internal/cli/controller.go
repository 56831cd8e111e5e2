package cli

import (
	stdcontext "context"
	"time"

	"github.com/xobs/runny/internal/api"
	"github.com/xobs/runny/internal/session"
)

// sessionController adapts a running session to the control-server
// interface.
type sessionController struct {
	job string
	run *session.Running
}

func newController(job string, run *session.Running) api.Controller {
	return &sessionController{job: job, run: run}
}

func (c *sessionController) Status(ctx stdcontext.Context) (*api.SessionReport, error) {
	if c.run == nil {
		return nil, api.ErrNoSession
	}
	report := &api.SessionReport{
		Job:         c.job,
		Pid:         c.run.Pid(),
		Running:     true,
		StartedAt:   c.run.StartedAt(),
		GeneratedAt: time.Now(),
	}
	if code, ok := c.run.ExitCode(); ok {
		report.Running = false
		report.ExitCode = &code
	}
	return report, nil
}

func (c *sessionController) Terminate(ctx stdcontext.Context, delay *time.Duration) (*api.TerminateResult, error) {
	if c.run == nil {
		return nil, api.ErrNoSession
	}
	code, err := c.run.Terminate(delay)
	if err != nil {
		return nil, err
	}
	return &api.TerminateResult{
		Job:         c.job,
		ExitCode:    code,
		CompletedAt: time.Now(),
	}, nil
}
