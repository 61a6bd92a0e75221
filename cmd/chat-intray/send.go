/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"

	"github.com/cristianoliveira/chat-intray/cmd"
	"github.com/cristianoliveira/chat-intray/internal/app"
	"github.com/spf13/cobra"
)

type sendClient interface {
	Send(ctx context.Context, channelID string) error
}

// NewSendCmd creates the send command with explicit dependencies.
func NewSendCmd(client sendClient) *cobra.Command {
	if client == nil {
		panic("NewSendCmd: client dependency cannot be nil")
	}

	sendCmd := &cobra.Command{
		Use:   "send <channel>",
		Short: "Post one message per uploaded attachment",
		Long: `Post one message per uploaded attachment of a channel.

USAGE:
    chat-intray send <channel>

If any message fails, no attachment is cleared and the command fails.

OPTIONS:
    -h, --help           Show this help`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Send(cmd.Context(), args[0])
		},
	}

	return sendCmd
}

func (r *runtime) Send(ctx context.Context, channelID string) error {
	q, err := r.uploads()
	if err != nil {
		return err
	}
	return app.NewSendUseCase(q).Execute(ctx, channelID)
}

// sendCmd represents the send command
var sendCmd = NewSendCmd(appRuntime)

func init() {
	cmd.RootCmd.AddCommand(sendCmd)
}
