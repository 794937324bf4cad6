// Command b2c-hub serves Azure AD B2C sign-in to an application shell over
// a method channel and an operation event stream.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := newServeCmd()

	root := &cobra.Command{
		Use:   "b2c-hub",
		Short: "Azure AD B2C sign-in hub",
		Long: `b2c-hub drives Azure AD B2C user flows for an application shell.

Example usage:
  b2c-hub                             # Same as "b2c-hub serve"
  b2c-hub serve                       # Start the HTTP server
  b2c-hub healthcheck                 # Probe a running server
  b2c-hub config validate b2c.json    # Check a B2C configuration file`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}

	root.AddCommand(serve, newHealthcheckCmd(), newConfigCmd())
	return root
}
