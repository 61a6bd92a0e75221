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

type removeClient interface {
	Remove(ctx context.Context, channelID, id string) error
}

// NewRemoveCmd creates the remove command with explicit dependencies.
func NewRemoveCmd(client removeClient) *cobra.Command {
	if client == nil {
		panic("NewRemoveCmd: client dependency cannot be nil")
	}

	removeCmd := &cobra.Command{
		Use:   "remove <channel> <id>",
		Short: "Remove a pending attachment",
		Long: `Remove a pending attachment and delete its uploaded copy.

USAGE:
    chat-intray remove <channel> <id>

The attachment is dropped locally even when the server delete fails.

OPTIONS:
    -h, --help           Show this help`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return client.Remove(cmd.Context(), args[0], args[1])
		},
	}

	return removeCmd
}

func (r *runtime) Remove(ctx context.Context, channelID, id string) error {
	q, err := r.uploads()
	if err != nil {
		return err
	}
	return app.NewRemoveUseCase(q).Execute(ctx, channelID, id)
}

// removeCmd represents the remove command
var removeCmd = NewRemoveCmd(appRuntime)

func init() {
	cmd.RootCmd.AddCommand(removeCmd)
}
