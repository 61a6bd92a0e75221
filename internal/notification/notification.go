// Package notification plays the audible and scripted cue for a new
// unread message.
package notification

import (
	"context"
	"io"
	"strconv"
	"sync"

	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/cristianoliveira/chat-intray/internal/logging"
)

// HookPoint is the hook point run for every cue.
const HookPoint = "notify"

const (
	bell          = "\a"
	previewLength = 120
)

// Player plays the cue for one event.
type Player interface {
	Cue(ctx context.Context, evt domain.UnreadEvent)
}

// PlayerFunc adapts a function to Player.
type PlayerFunc func(ctx context.Context, evt domain.UnreadEvent)

// Cue calls f.
func (f PlayerFunc) Cue(ctx context.Context, evt domain.UnreadEvent) { f(ctx, evt) }

// hookRunner is the subset of hooks.Runner the cue needs.
type hookRunner interface {
	Run(ctx context.Context, hookPoint string, env map[string]string) error
}

// Cue rings the terminal bell and runs the notify hooks.
type Cue struct {
	hooks hookRunner
	bell  bool
	log   logging.Logger

	mu  sync.Mutex
	out io.Writer
}

// NewCue creates a cue. hooks may be nil; out receives the bell when
// ringBell is set.
func NewCue(hooks hookRunner, out io.Writer, ringBell bool, log logging.Logger) *Cue {
	if log == nil {
		log = logging.GetGlobal()
	}
	return &Cue{hooks: hooks, out: out, bell: ringBell && out != nil, log: log.With("component", "notification")}
}

// Cue implements Player. Hook failures are logged, never returned.
func (c *Cue) Cue(ctx context.Context, evt domain.UnreadEvent) {
	if c.bell {
		c.mu.Lock()
		io.WriteString(c.out, bell)
		c.mu.Unlock()
	}
	if c.hooks == nil {
		return
	}
	if err := c.hooks.Run(ctx, HookPoint, Env(evt)); err != nil {
		c.log.Warn("notify hook failed", "channel_id", evt.ChannelID, "error", err)
	}
}

// Env returns the variables passed to notify hooks.
func Env(evt domain.UnreadEvent) map[string]string {
	sender := domain.ActivityFromEvent(evt).SenderName
	return map[string]string{
		"CHANNEL_ID":        evt.ChannelID,
		"CHANNEL_NAME":      evt.ChannelName,
		"SENDER":            sender,
		"IS_DIRECT_MESSAGE": strconv.FormatBool(evt.IsDirectMessage),
		"MESSAGE_TIMESTAMP": evt.LastMessageTimestamp,
		"MESSAGE_PREVIEW":   evt.Preview(previewLength),
	}
}
