package title

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/cristianoliveira/chat-intray/internal/tmux"
)

// Sink displays a title.
type Sink interface {
	SetTitle(title string) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(title string) error

// SetTitle calls f.
func (f SinkFunc) SetTitle(title string) error { return f(title) }

// TerminalSink writes the OSC 0 sequence that sets the terminal window title.
type TerminalSink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTerminalSink writes titles to w.
func NewTerminalSink(w io.Writer) *TerminalSink {
	return &TerminalSink{w: w}
}

// SetTitle implements Sink.
func (s *TerminalSink) SetTitle(title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "\033]0;%s\007", sanitize(title))
	return err
}

// TmuxSink publishes the title as a tmux user option so a status line can
// show it with #{@chat_intray_title}.
type TmuxSink struct {
	client tmux.Client
	option string
}

// NewTmuxSink sets option through client.
func NewTmuxSink(client tmux.Client, option string) *TmuxSink {
	return &TmuxSink{client: client, option: option}
}

// SetTitle implements Sink.
func (s *TmuxSink) SetTitle(title string) error {
	return s.client.SetOption(s.option, sanitize(title))
}

// Discard drops every title.
var Discard Sink = SinkFunc(func(string) error { return nil })

// sanitize strips control characters that would end the escape sequence early.
func sanitize(title string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, title)
}
