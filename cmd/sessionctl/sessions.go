package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"sessiond/internal/httpclient"
)

func newSessionsCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session"},
		Short:   "List, inspect and delete sessions",
	}
	cmd.AddCommand(newSessionsListCmd(opts))
	cmd.AddCommand(newSessionsGetCmd(opts))
	cmd.AddCommand(newSessionsDeleteCmd(opts))
	return cmd
}

func newSessionsListCmd(opts *options) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the sessions owned by a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" {
				username = opts.username
			}
			sessions, err := opts.client().ListSessions(cmd.Context(), username)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(sessions))
			for _, s := range sessions {
				rows = append(rows, sessionRow(s))
			}
			printTable(cmd.OutOrStdout(), sessionHeader, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "principal name (defaults to --user)")
	return cmd
}

func newSessionsGetCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := opts.client().GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printTable(cmd.OutOrStdout(), sessionHeader, [][]string{sessionRow(*s)})
			return nil
		},
	}
}

func newSessionsDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete one session",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.client().DeleteSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s deleted\n", args[0])
			return nil
		},
	}
}

var sessionHeader = []string{"ID", "Created", "Last Accessed", "Max Inactive", "Expired", "Attributes"}

func sessionRow(s httpclient.Session) []string {
	return []string{
		s.ID,
		s.CreationTime.Format(time.RFC3339),
		s.LastAccessedTime.Format(time.RFC3339),
		(time.Duration(s.MaxInactiveInterval) * time.Second).String(),
		strconv.FormatBool(s.Expired),
		strings.Join(s.AttributeNames, ","),
	}
}

func printTable(writer io.Writer, header []string, rows [][]string) {
	table := tablewriter.NewWriter(writer)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	table.SetNoWhiteSpace(true)
	table.AppendBulk(rows)
	table.Render()
}
