package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version   = "1.0.0"
	commit    = "unknown"
	buildTime = "unknown"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "portscan v%s (commit: %s, built: %s)\n", version, commit, buildTime)
		},
	}
}
