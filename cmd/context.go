package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// commandContext returns the command's context, or a background context when
// the command is run directly
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
