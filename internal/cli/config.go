package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xobs/runny/internal/cliutil"
	"github.com/xobs/runny/internal/config"
)

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect job configuration",
	}
	cmd.AddCommand(newConfigShowCmd(opts))
	return cmd
}

func newConfigShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Render the effective job configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := config.Load(opts.jobFile)
			if err != nil {
				return err
			}
			rendered, err := yaml.Marshal(doc)
			if err != nil {
				return fmt.Errorf("render job config: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), cliutil.RedactSecrets(string(rendered)))
			return nil
		},
	}
}
