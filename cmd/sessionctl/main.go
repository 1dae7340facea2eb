// Package main implements sessionctl, a CLI for the sessiond management endpoints.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"sessiond/internal/httpclient"
	"sessiond/internal/version"
)

type options struct {
	serverURL string
	username  string
	password  string
}

func (o *options) client() *httpclient.ManagementClient {
	return httpclient.NewManagementClient(o.serverURL, o.username, o.password, nil)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "sessionctl",
		Short: "Inspect and manage sessions of a sessiond server",
		Long: `sessionctl talks to the management endpoints of a sessiond server.

Credentials default to the SESSIOND_USERNAME and SESSIOND_PASSWORD
environment variables.

Examples:
  # List the sessions of a user
  sessionctl sessions list --username user

  # Create a session and print its uid
  sessionctl touch`,
		Version:      version.Info(),
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.serverURL, "server", envOr("SESSIOND_URL", "http://localhost:8080"), "sessiond server URL")
	root.PersistentFlags().StringVarP(&opts.username, "user", "u", envOr("SESSIOND_USERNAME", "user"), "basic auth username")
	root.PersistentFlags().StringVarP(&opts.password, "password", "p", os.Getenv("SESSIOND_PASSWORD"), "basic auth password")

	root.AddCommand(newSessionsCmd(opts))
	root.AddCommand(newTouchCmd(opts))
	return root
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
