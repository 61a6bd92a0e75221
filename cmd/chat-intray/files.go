/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"io"

	"github.com/cristianoliveira/chat-intray/cmd"
	"github.com/cristianoliveira/chat-intray/internal/app"
	"github.com/spf13/cobra"
)

type filesClient interface {
	Files(channelID, format string, w io.Writer) error
}

// NewFilesCmd creates the files command with explicit dependencies.
func NewFilesCmd(client filesClient) *cobra.Command {
	if client == nil {
		panic("NewFilesCmd: client dependency cannot be nil")
	}

	var formatFlag string

	filesCmd := &cobra.Command{
		Use:   "files <channel>",
		Short: "List a channel's pending attachments",
		Long: `List a channel's pending attachments in the order they were attached.

USAGE:
    chat-intray files <channel> [OPTIONS]

OPTIONS:
    --format=<format>    table, simple or json (default: table)
    -h, --help           Show this help`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Files(args[0], formatFlag, cmd.OutOrStdout())
		},
	}

	filesCmd.Flags().StringVar(&formatFlag, "format", "table", "Output format: table, simple, json")

	return filesCmd
}

func (r *runtime) Files(channelID, format string, w io.Writer) error {
	q, err := r.uploads()
	if err != nil {
		return err
	}
	return app.NewFilesUseCase(q).Execute(channelID, format, w)
}

// filesCmd represents the files command
var filesCmd = NewFilesCmd(appRuntime)

func init() {
	cmd.RootCmd.AddCommand(filesCmd)
}
