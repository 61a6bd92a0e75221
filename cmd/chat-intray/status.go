/*
Copyright © 2026 Cristian Oliveira <license@cristianoliveira.dev>
*/
package main

import (
	"context"
	"io"

	"github.com/cristianoliveira/chat-intray/cmd"
	"github.com/cristianoliveira/chat-intray/internal/app"
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/spf13/cobra"
)

type statusClient interface {
	Status(ctx context.Context, format string, w io.Writer) error
}

// NewStatusCmd creates the status command with explicit dependencies.
func NewStatusCmd(client statusClient) *cobra.Command {
	if client == nil {
		panic("NewStatusCmd: client dependency cannot be nil")
	}

	var formatFlag string

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Print the unread summary",
		Long: `Print the unread summary reported by the server.

USAGE:
    chat-intray status [OPTIONS]

OPTIONS:
    --format=<format>    compact, detailed, count-only, json or a template
                         such as "{{unread-count}} unread" (default: status_format)
    -h, --help           Show this help

EXAMPLES:
    chat-intray status                       # [3] general:2,random:1
    chat-intray status --format=count-only   # 3
    chat-intray status --format='#[fg=red]{{unread-count}}'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := app.DetermineStatusFormat(formatFlag, config.Get("status_format", ""), cmd.Flags().Changed("format"))
			return client.Status(cmd.Context(), format, cmd.OutOrStdout())
		},
	}

	statusCmd.Flags().StringVar(&formatFlag, "format", "compact", "Output format or template")

	return statusCmd
}

func (r *runtime) Status(ctx context.Context, format string, w io.Writer) error {
	return app.NewStatusUseCase(r.backend()).Execute(ctx, format, w)
}

// statusCmd represents the status command
var statusCmd = NewStatusCmd(appRuntime)

func init() {
	cmd.RootCmd.AddCommand(statusCmd)
}
