package cli

import (
	"github.com/spf13/cobra"

	"github.com/sandrolain/goxq"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the goxq version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.formatter(cmd).Success(goxq.Version(), "")
		},
	}
}
