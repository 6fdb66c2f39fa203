// cmd/portscan/main.go
// Port scanner - Main entry point

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aspnmy/port_scanner/pkg/logger"
)

// exit status used when a second interrupt aborts the process
const forcedExitCode = 130

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "portscan",
		Short: "Concurrent TCP/UDP port scanner",
		Long: `portscan probes a range of ports on a single host over one or more
protocols using a pool of concurrent workers.

Configuration priority: defaults < config file < PORTSCAN_* env < flags.
Press Ctrl+C once to stop and print partial results, twice to abort.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newScanCmd())
	rootCmd.AddCommand(newProbesCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
