package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aspnmy/port_scanner/internal/probe"
)

func newProbesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probes",
		Short: "List available protocol probes",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			registry := probe.NewDefaultRegistry(probe.DefaultOptions())

			fmt.Fprintln(cmd.OutOrStdout(), "Available protocol probes:")
			for _, name := range registry.Names() {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", name)
			}
		},
	}
}
