// Package cli holds the goattend command tree.
package cli

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCmd builds a fresh command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "goattend",
		Short: "Session-gated portal for the attendance and leave backend",
		Long: `goattend serves the attendance portal. It keeps one authenticated session
per browser, recovers it from Redis after restarts, and gates every page by role
before calling the attendance REST API on the user's behalf.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newConfigCmd(), newLoadtestCmd(), newVersionCmd())
	return root
}

// ExecuteContext runs the command tree with ctx.
func ExecuteContext(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
