package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTouchCmd(opts *options) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "touch",
		Short: "Create (or reuse) a session with an authenticated GET /",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client := opts.client()
			for i := 0; i < count; i++ {
				uid, err := client.Touch(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), uid)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of requests to send on the same session")
	return cmd
}
