package cli

import (
	stdcontext "context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	httpapi "github.com/xobs/runny/internal/api/http"
	"github.com/xobs/runny/internal/cliutil"
	"github.com/xobs/runny/internal/config"
	"github.com/xobs/runny/internal/relay"
	"github.com/xobs/runny/internal/session"
)

func newRunCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the job described by the job file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.Load(opts.jobFile)
			if err != nil {
				return err
			}
			return runJob(cmd.Context(), doc, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	return cmd
}

// sessionConfig maps a loaded job spec onto the session configuration.
func sessionConfig(job *config.JobSpec) session.Config {
	cfg := session.Config{
		Command: append([]string(nil), job.Command...),
		Dir:     job.ResolvedWorkdir,
		Env:     job.Env,
		Path:    append([]string(nil), job.Path...),
		Term:    job.Term,
		Timeout: job.Timeout.Duration,
		Grace:   job.Grace.Duration,
	}
	if job.TTY != nil {
		cfg.Rows = job.TTY.Rows
		cfg.Cols = job.TTY.Cols
	}
	return cfg
}

func runJob(ctx stdcontext.Context, doc *config.File, opts *options, stdout, stderr io.Writer) error {
	name := doc.Job.DisplayName()

	run, err := session.Start(sessionConfig(doc.Job))
	if err != nil {
		return err
	}
	defer run.Close()

	srvCtx, srvCancel := stdcontext.WithCancel(ctx)
	defer srvCancel()
	var srvDone chan error
	if doc.Metrics != nil && doc.Metrics.Listen != "" {
		srv, err := httpapi.NewServer(httpapi.Config{
			Addr:       doc.Metrics.Listen,
			Controller: newController(name, run),
		})
		if err != nil {
			return err
		}
		srvDone = make(chan error, 1)
		go func() { srvDone <- srv.Run(srvCtx) }()
	}

	output, err := run.TakeOutput()
	if err != nil {
		return err
	}
	errStream, err := run.TakeError()
	if err != nil {
		return err
	}

	mux := relay.New(256)
	mux.Stream(output, name, relay.SourceTerminal)
	mux.Stream(errStream, name, relay.SourceStderr)

	lifecycle := make(chan relay.Event, 2)
	mux.Add(lifecycle)
	lifecycle <- relay.Event{
		Timestamp: time.Now(),
		Job:       name,
		Type:      relay.EventTypeStarting,
		Message:   fmt.Sprintf("starting pid=%d", run.Pid()),
		Source:    relay.SourceSystem,
	}

	rendered := make(chan struct{})
	go func() {
		defer close(rendered)
		enc := json.NewEncoder(stdout)
		for evt := range mux.Output() {
			emitEvent(enc, opts, stdout, stderr, evt)
		}
	}()

	// An interrupt funnels into the same termination machinery as the
	// scheduler's own deadline.
	waited := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		select {
		case <-ctx.Done():
			lifecycle <- relay.Event{
				Timestamp: time.Now(),
				Job:       name,
				Type:      relay.EventTypeSignaling,
				Message:   "terminating",
				Source:    relay.SourceSystem,
			}
			_, _ = run.Terminate(nil)
		case <-waited:
		}
	}()

	code, waitErr := run.Wait()
	close(waited)
	<-stopped
	close(lifecycle)

	mux.Close()
	<-rendered

	srvCancel()
	if srvDone != nil {
		if err := <-srvDone; err != nil {
			fmt.Fprintf(stderr, "error: control server: %v\n", err)
		}
	}

	final := relay.Event{
		Timestamp: time.Now(),
		Job:       name,
		Type:      relay.EventTypeExited,
		Message:   fmt.Sprintf("exit code %d", code),
		Source:    relay.SourceSystem,
		ExitCode:  code,
	}
	emitEvent(json.NewEncoder(stdout), opts, stdout, stderr, final)

	if waitErr != nil {
		return fmt.Errorf("wait for %s: %w", name, waitErr)
	}
	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}

func emitEvent(enc *json.Encoder, opts *options, stdout, stderr io.Writer, evt relay.Event) {
	if opts.jsonLogs {
		cliutil.EncodeLogEvent(enc, stderr, evt)
		return
	}
	fmt.Fprintln(stdout, cliutil.FormatEvent(evt))
}
