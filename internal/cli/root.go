package cli

import (
	stdcontext "context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type options struct {
	jobFile  string
	jsonLogs bool
}

// NewRootCmd builds the runny command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "runny",
		Short: "Run commands under a supervised pseudo-terminal",
	}

	root.PersistentFlags().
		StringVarP(&opts.jobFile, "file", "f", "job.yaml", "Path to job definition")
	root.PersistentFlags().
		BoolVar(&opts.jsonLogs, "json", false, "Emit session events as JSON")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newExecCmd(opts))
	root.AddCommand(newConfigCmd(opts))

	root.SilenceUsage = true
	root.SilenceErrors = true

	return root
}

// Execute runs the CLI entrypoint.
func Execute() {
	ctx, stop := signal.NotifyContext(stdcontext.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	root.SetContext(ctx)

	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.status())
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitError carries the child's exit result out to the process exit
// status.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// status maps the published exit result onto a valid process exit status:
// the sentinels for signaled and unavailable results collapse to 1.
func (e *exitError) status() int {
	if e.code < 0 || e.code > 255 {
		return 1
	}
	return e.code
}
