package cli

import (
	stdcontext "context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/xobs/runny/internal/session"
)

func newExecCmd(opts *options) *cobra.Command {
	var (
		workdir string
		term    string
		path    []string
		timeout time.Duration
		grace   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "exec [flags] -- command [args...]",
		Short: "Run an argument vector under supervision, relaying raw bytes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := session.Config{
				Command: args,
				Dir:     workdir,
				Term:    term,
				Path:    path,
				Timeout: timeout,
				Grace:   grace,
			}
			return execCommand(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVarP(&workdir, "workdir", "w", "", "Working directory for the command")
	cmd.Flags().StringVar(&term, "term", "", "TERM value exported to the command")
	cmd.Flags().StringArrayVar(&path, "path", nil, "Extra directory prepended to the command's PATH (repeatable)")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Terminate the command after this duration")
	cmd.Flags().DurationVar(&grace, "grace", 0, "Delay between the graceful signal and the forced kill")

	return cmd
}

func execCommand(ctx stdcontext.Context, cfg session.Config, stdin io.Reader, stdout, stderr io.Writer) error {
	run, err := session.Start(cfg)
	if err != nil {
		return err
	}
	defer run.Close()

	output, err := run.TakeOutput()
	if err != nil {
		return err
	}
	errStream, err := run.TakeError()
	if err != nil {
		return err
	}
	input, err := run.TakeInput()
	if err != nil {
		return err
	}

	outDone := make(chan struct{})
	go func() {
		defer close(outDone)
		_, _ = io.Copy(stdout, output)
	}()
	errDone := make(chan struct{})
	go func() {
		defer close(errDone)
		_, _ = io.Copy(stderr, errStream)
	}()
	// The stdin pump has no clean shutdown: it parks on the caller's
	// stdin read until the process exits.
	go func() {
		_, _ = io.Copy(input, stdin)
		input.Close()
	}()

	waited := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_, _ = run.Terminate(nil)
		case <-waited:
		}
	}()

	code, waitErr := run.Wait()
	close(waited)

	<-outDone
	<-errDone

	if waitErr != nil {
		return fmt.Errorf("wait for %s: %w", cfg.Command[0], waitErr)
	}
	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}
