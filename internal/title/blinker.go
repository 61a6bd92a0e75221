// Package title alternates the window title while unread messages arrive
// in the background.
package title

import (
	"fmt"
	"sync"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/cristianoliveira/chat-intray/internal/logging"
	"github.com/cristianoliveira/chat-intray/internal/unread"
)

// State of a Blinker.
type State int

const (
	Idle State = iota
	Blinking
)

func (s State) String() string {
	if s == Blinking {
		return "blinking"
	}
	return "idle"
}

const (
	DefaultBase     = "Chat"
	DefaultMarker   = "New message"
	DefaultInterval = time.Second
)

// TickFunc starts a ticker and returns its channel and stop function.
type TickFunc func(d time.Duration) (<-chan time.Time, func())

func defaultTick(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Options configure a Blinker.
type Options struct {
	Base     string
	Marker   string
	Interval time.Duration
	Tick     TickFunc
	Logger   logging.Logger
}

// Blinker drives the title from tracker snapshots and visibility changes.
type Blinker struct {
	sink Sink
	opts Options
	log  logging.Logger

	mu      sync.Mutex
	hidden  bool
	alerted bool
	total   int
	last    domain.Activity
	state   State
	marker  bool
	current string
	stop    chan struct{}
	done    chan struct{}
	closed  bool
}

// NewBlinker creates an idle blinker and shows the base title.
func NewBlinker(sink Sink, opts Options) *Blinker {
	if opts.Base == "" {
		opts.Base = DefaultBase
	}
	if opts.Marker == "" {
		opts.Marker = DefaultMarker
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Tick == nil {
		opts.Tick = defaultTick
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetGlobal()
	}
	b := &Blinker{sink: sink, opts: opts, log: opts.Logger.With("component", "title")}
	b.mu.Lock()
	b.setLocked(opts.Base)
	b.mu.Unlock()
	return b
}

// SetHidden records whether the window is hidden. Hiding clears the alert
// raised since the previous hide; showing stops any blinking.
func (b *Blinker) SetHidden(hidden bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if hidden {
		if !b.hidden {
			b.alerted = false
		}
		b.hidden = true
		return
	}
	b.hidden = false
	b.stopLocked()
}

// Update applies a tracker snapshot.
func (b *Blinker) Update(snap unread.Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.total = snap.Total
	b.last = snap.LastActivity
	if snap.Notified && b.hidden {
		b.alerted = true
	}
	if b.total <= 0 {
		b.stopLocked()
		return
	}
	if b.state == Idle && b.hidden && b.alerted {
		b.startLocked()
	}
}

// State returns the current state.
func (b *Blinker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Title returns the title shown last.
func (b *Blinker) Title() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Descriptive returns the title describing the current unread state.
func (b *Blinker) Descriptive() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.descriptiveLocked()
}

func (b *Blinker) descriptiveLocked() string {
	return Describe(b.total, b.last, b.opts.Base)
}

// Describe builds "(N) Sender in #channel | Base" or, for direct messages,
// "(N) Sender sent you a message | Base".
func Describe(total int, last domain.Activity, base string) string {
	switch {
	case last.SenderName == "":
		return fmt.Sprintf("(%d) %s", total, base)
	case last.IsDirectMessage:
		return fmt.Sprintf("(%d) %s sent you a message | %s", total, last.SenderName, base)
	case last.ChannelName != "":
		return fmt.Sprintf("(%d) %s in #%s | %s", total, last.SenderName, last.ChannelName, base)
	default:
		return fmt.Sprintf("(%d) %s | %s", total, last.SenderName, base)
	}
}

func (b *Blinker) startLocked() {
	b.state = Blinking
	b.marker = true
	b.setLocked(b.opts.Marker)

	stop := make(chan struct{})
	done := make(chan struct{})
	b.stop, b.done = stop, done
	ticks, stopTicker := b.opts.Tick(b.opts.Interval)
	b.log.Debug("blinking started", "total", b.total)

	go func() {
		defer close(done)
		defer stopTicker()
		for {
			select {
			case <-stop:
				return
			case <-ticks:
			}
			b.mu.Lock()
			select {
			case <-stop:
				b.mu.Unlock()
				return
			default:
			}
			b.marker = !b.marker
			if b.marker {
				b.setLocked(b.opts.Marker)
			} else {
				b.setLocked(b.descriptiveLocked())
			}
			b.mu.Unlock()
		}
	}()
}

// stopLocked ends blinking and restores the base title.
func (b *Blinker) stopLocked() {
	if b.state != Blinking {
		return
	}
	close(b.stop)
	b.stop = nil
	b.state = Idle
	b.marker = false
	b.setLocked(b.opts.Base)
	b.log.Debug("blinking stopped")
}

func (b *Blinker) setLocked(title string) {
	b.current = title
	if err := b.sink.SetTitle(title); err != nil {
		b.log.Debug("unable to set title", "error", err)
	}
}

// Close stops blinking, waits for the ticker goroutine and resets the title.
func (b *Blinker) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.stopLocked()
	done := b.done
	b.setLocked(b.opts.Base)
	b.mu.Unlock()

	if done != nil {
		<-done
	}
}
