// Package app holds the use-cases behind the CLI commands.
package app

import (
	"context"
	"fmt"
	"io"

	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/cristianoliveira/chat-intray/internal/status"
)

// StatusClient defines dependencies for the status command.
type StatusClient interface {
	GetUnreadCounts(ctx context.Context) ([]domain.ChannelUnread, error)
}

// StatusUseCase coordinates status behavior.
type StatusUseCase struct {
	client StatusClient
}

// NewStatusUseCase creates a status use-case.
func NewStatusUseCase(client StatusClient) *StatusUseCase {
	if client == nil {
		panic("NewStatusUseCase: client dependency cannot be nil")
	}

	return &StatusUseCase{client: client}
}

// DetermineStatusFormat resolves effective format preserving CLI precedence.
func DetermineStatusFormat(formatFlag, configFormat string, flagChanged bool) string {
	result := formatFlag
	if !flagChanged && configFormat != "" {
		result = configFormat
	}
	if result == "" {
		result = status.DefaultFormat
	}
	return result
}

// Execute fetches the server unread counts and prints them in format.
func (u *StatusUseCase) Execute(ctx context.Context, format string, w io.Writer) error {
	entries, err := u.client.GetUnreadCounts(ctx)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	out, err := status.Render(format, status.Summary{Entries: entries})
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
