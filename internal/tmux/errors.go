package tmux

import (
	"errors"
	"strings"
)

var (
	// ErrTmuxNotRunning means the title option could not be published
	// because no tmux server answered on the socket.
	ErrTmuxNotRunning = errors.New("no tmux server on socket")

	// ErrTmuxCommandFailed wraps every other non-zero tmux exit.
	ErrTmuxCommandFailed = errors.New("tmux command failed")
)

func serverMissing(stderr string) bool {
	return strings.Contains(stderr, "no server running") || strings.Contains(stderr, "error connecting")
}
