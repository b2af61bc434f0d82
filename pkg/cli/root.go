// Package cli implements the csecbridge command-line interface: an HTTP
// client for submitting requests and polling status, plus operator
// commands that work directly against the state store and queue.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var host string

	rootCmd := &cobra.Command{
		Use:           "csecbridge",
		Short:         "Access-request lifecycle CLI",
		Long:          "Command-line interface for submitting access requests, polling their status, and recovering lost work.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// Flag > env > default.
			if !cmd.Flags().Changed("host") {
				if v := os.Getenv("CSECBRIDGE_HOST"); v != "" {
					host = v
				}
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "API server base URL")

	rootCmd.AddCommand(newSubmitCmd(&host))
	rootCmd.AddCommand(newStatusCmd(&host))
	rootCmd.AddCommand(newHistoryCmd(&host))
	rootCmd.AddCommand(newRequeueStaleCmd())
	rootCmd.AddCommand(newReapCmd())

	return rootCmd
}
