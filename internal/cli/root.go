package cli

import (
	"github.com/spf13/cobra"
)

// Execute runs the oas2client CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd constructs the root command so tests can exercise the CLI easily.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "oas2client",
		Short:         "Generate typed Go API clients from OpenAPI/Swagger documents",
		Long:          "oas2client turns an OpenAPI or Swagger document into a typed Go client package: one documented function per operation, grouped into one file per tag.",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	// Convert cobra flag errors (like unknown flags) into friendly usage
	// errors that also show the command's help text.
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageError("%v\n\n%s", err, c.UsageString())
	})

	cmd.PersistentFlags().StringP("config", "c", "", "Config file path (YAML or JSON)")
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging output")

	g := newGenerateCmd()
	g.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return newUsageError("%v\n\n%s", err, c.UsageString())
	})
	cmd.AddCommand(g)

	return cmd
}
