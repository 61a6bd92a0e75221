/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"
	"fmt"

	"github.com/cristianoliveira/chat-intray/cmd"
	"github.com/cristianoliveira/chat-intray/internal/app"
	"github.com/cristianoliveira/chat-intray/internal/colors"
	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/spf13/cobra"
)

type attachClient interface {
	Attach(ctx context.Context, channelID string, paths []string) ([]domain.QueuedFile, error)
}

// NewAttachCmd creates the attach command with explicit dependencies.
func NewAttachCmd(client attachClient) *cobra.Command {
	if client == nil {
		panic("NewAttachCmd: client dependency cannot be nil")
	}

	attachCmd := &cobra.Command{
		Use:   "attach <channel> <file>...",
		Short: "Upload files into a channel's pending message",
		Long: `Upload files into a channel's pending message.

USAGE:
    chat-intray attach <channel> <file>...

Files are uploaded concurrently (upload_max_concurrent at a time) into
upload_folder. Uploaded files are kept until they are sent or removed.

OPTIONS:
    -h, --help           Show this help`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := client.Attach(cmd.Context(), args[0], args[1:])
			for _, f := range files {
				if f.Status == domain.StatusError {
					colors.Error(fmt.Sprintf("%s: %s", f.FileName, f.Error))
					continue
				}
				colors.Success(fmt.Sprintf("%s uploaded as %s", f.FileName, f.ID))
			}
			return err
		},
	}

	return attachCmd
}

func (r *runtime) Attach(ctx context.Context, channelID string, paths []string) ([]domain.QueuedFile, error) {
	q, err := r.uploads()
	if err != nil {
		return nil, err
	}
	return app.NewAttachUseCase(q).Execute(ctx, channelID, paths)
}

// attachCmd represents the attach command
var attachCmd = NewAttachCmd(appRuntime)

func init() {
	cmd.RootCmd.AddCommand(attachCmd)
}
