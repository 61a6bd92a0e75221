package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/cristianoliveira/chat-intray/internal/status"
)

// WatchClient is the live session driven by watch line commands.
type WatchClient interface {
	SetVisible(ctx context.Context, visible bool)
	MarkChannelRead(channelID string)
	MarkChannelManuallyUnread(channelID string)
	Summary() status.Summary
}

// WatchUseCase interprets the line commands of the watch command.
type WatchUseCase struct {
	client WatchClient
	format string
}

// NewWatchUseCase creates a watch use-case printing status lines in format.
func NewWatchUseCase(client WatchClient, format string) *WatchUseCase {
	if client == nil {
		panic("NewWatchUseCase: client dependency cannot be nil")
	}
	return &WatchUseCase{client: client, format: format}
}

const watchHelp = `commands:
  focus          window became visible
  blur           window became hidden
  read <ch>      mark a channel read
  unread <ch>    mark a channel unread
  status         print the unread status line`

// Handle applies one command line. Unknown commands are reported to w and
// are not errors.
func (u *WatchUseCase) Handle(ctx context.Context, line string, w io.Writer) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]
	switch cmd {
	case "focus":
		u.client.SetVisible(ctx, true)
	case "blur":
		u.client.SetVisible(ctx, false)
	case "read", "unread":
		if len(args) != 1 {
			_, err := fmt.Fprintf(w, "%s requires a channel id\n", cmd)
			return err
		}
		if cmd == "read" {
			u.client.MarkChannelRead(args[0])
		} else {
			u.client.MarkChannelManuallyUnread(args[0])
		}
	case "status":
		out, err := status.Render(u.format, u.client.Summary())
		if err != nil {
			return fmt.Errorf("status: %w", err)
		}
		_, err = fmt.Fprintln(w, out)
		return err
	case "help":
		_, err := fmt.Fprintln(w, watchHelp)
		return err
	default:
		_, err := fmt.Fprintf(w, "unknown command: %s\n", cmd)
		return err
	}
	return nil
}

// Serve handles lines from r until r is exhausted or ctx is done.
func (u *WatchUseCase) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if err := u.Handle(ctx, line, w); err != nil {
				return err
			}
		}
	}
}
