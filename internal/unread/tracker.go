// Package unread merges server unread counts with the user's manual
// unread marks and reacts to push events.
package unread

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/backend"
	"github.com/cristianoliveira/chat-intray/internal/dedup"
	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/cristianoliveira/chat-intray/internal/logging"
	"github.com/cristianoliveira/chat-intray/internal/metrics"
	"github.com/cristianoliveira/chat-intray/internal/notification"
)

// Snapshot is the observable unread state after a change.
type Snapshot struct {
	Total        int
	PerChannel   map[string]int
	LastActivity domain.Activity
	// Notified is set when the change came from an event that should alert
	// the user.
	Notified bool
}

// Options configure a Tracker.
type Options struct {
	// CurrentUserID identifies the user's own messages echoed back by the server.
	CurrentUserID string
	// FocusThrottle is the minimum time between two focus refreshes.
	FocusThrottle time.Duration
	Dedup         *dedup.Seen
	Player        notification.Player
	Metrics       metrics.Recorder
	Logger        logging.Logger
	Now           func() time.Time
}

type invalidator interface {
	Invalidate()
}

// Tracker owns the unread state of one session.
type Tracker struct {
	src    backend.UnreadSource
	opts   Options
	log    logging.Logger
	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	entries   map[string]domain.ChannelUnread
	manual    map[string]struct{}
	last      domain.Activity
	lastFocus time.Time
	observers map[int]func(Snapshot)
	nextObs   int
	closed    bool

	// notifyMu keeps observers seeing snapshots in mutation order.
	notifyMu sync.Mutex
	inflight sync.WaitGroup
}

// NewTracker creates a tracker reading counts from src.
func NewTracker(src backend.UnreadSource, opts Options) *Tracker {
	if opts.Dedup == nil {
		opts.Dedup = dedup.NewSeen(dedup.Options{})
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetGlobal()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Tracker{
		src:       src,
		opts:      opts,
		log:       opts.Logger.With("component", "unread"),
		ctx:       ctx,
		cancel:    cancel,
		entries:   make(map[string]domain.ChannelUnread),
		manual:    make(map[string]struct{}),
		observers: make(map[int]func(Snapshot)),
	}
}

// Refresh replaces the server entries with a bulk fetch. Unless force is
// set, the source may answer from its cache. On error the previous state
// is kept.
func (t *Tracker) Refresh(ctx context.Context, force bool) error {
	if force {
		t.invalidate()
	}
	entries, err := t.src.GetUnreadCounts(ctx)
	if err != nil {
		t.log.Warn("unread refresh failed", "force", force, "error", err)
		return fmt.Errorf("refresh unread counts: %w", err)
	}

	t.mu.Lock()
	next := make(map[string]domain.ChannelUnread, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			t.log.Debug("skipping unread entry", "error", err)
			continue
		}
		t.decayLocked(e)
		next[e.ChannelID] = e
	}
	t.entries = next
	t.mu.Unlock()

	t.emit(false)
	return nil
}

// Focus forces a refresh unless the previous focus refresh happened within
// the throttle window.
func (t *Tracker) Focus(ctx context.Context) error {
	now := t.opts.Now()
	t.mu.Lock()
	if !t.lastFocus.IsZero() && now.Sub(t.lastFocus) < t.opts.FocusThrottle {
		t.mu.Unlock()
		t.log.Debug("focus refresh throttled")
		return nil
	}
	t.lastFocus = now
	t.mu.Unlock()
	return t.Refresh(ctx, true)
}

// HandleEvent applies a push event.
func (t *Tracker) HandleEvent(ctx context.Context, evt domain.UnreadEvent) {
	if evt.ChannelID == "" {
		t.log.Debug("ignoring event without channel")
		return
	}

	if t.opts.CurrentUserID != "" && evt.SentBy == t.opts.CurrentUserID {
		t.mu.Lock()
		if e, ok := t.entries[evt.ChannelID]; ok {
			e.UnreadCount = 0
			t.entries[evt.ChannelID] = e
		}
		t.mu.Unlock()
		t.invalidate()
		t.emit(false)
		return
	}

	t.mu.Lock()
	_, manual := t.manual[evt.ChannelID]
	current := t.entries[evt.ChannelID].UnreadCount
	shouldNotify := !manual || current > 1
	t.last = domain.ActivityFromEvent(evt)
	t.mu.Unlock()

	if shouldNotify && t.opts.Dedup.FirstCue(evt) && t.opts.Player != nil {
		t.opts.Player.Cue(ctx, evt)
		t.opts.Metrics.IncCues()
	}
	t.emit(shouldNotify)
	t.refetch(evt.ChannelID)
}

func (t *Tracker) refetch(channelID string) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.inflight.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.inflight.Done()
		entry, err := t.src.GetUnreadCountForChannel(t.ctx, channelID)
		if err != nil {
			t.log.Debug("channel refetch failed", "channel_id", channelID, "error", err)
			return
		}
		if entry.ChannelID == "" {
			entry.ChannelID = channelID
		}
		if err := entry.Validate(); err != nil {
			t.log.Debug("channel refetch returned invalid entry", "channel_id", channelID, "error", err)
			return
		}
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return
		}
		t.decayLocked(entry)
		t.entries[entry.ChannelID] = entry
		t.mu.Unlock()
		t.invalidate()
		t.emit(false)
	}()
}

// decayLocked drops the manual mark of a channel whose server count goes
// from zero or absent to positive.
func (t *Tracker) decayLocked(e domain.ChannelUnread) {
	if e.UnreadCount <= 0 {
		return
	}
	if t.entries[e.ChannelID].UnreadCount > 0 {
		return
	}
	delete(t.manual, e.ChannelID)
}

// MarkChannelRead zeroes the channel locally and drops its manual mark.
func (t *Tracker) MarkChannelRead(channelID string) {
	t.mu.Lock()
	if e, ok := t.entries[channelID]; ok {
		e.UnreadCount = 0
		t.entries[channelID] = e
	}
	delete(t.manual, channelID)
	t.mu.Unlock()
	t.invalidate()
	t.emit(false)
}

// MarkChannelManuallyUnread flags the channel unread on the client.
func (t *Tracker) MarkChannelManuallyUnread(channelID string) {
	if channelID == "" {
		return
	}
	t.mu.Lock()
	t.manual[channelID] = struct{}{}
	t.mu.Unlock()
	t.emit(false)
}

// TotalUnreadCount is the sum of server counts plus the manual marks the
// server list does not contain.
func (t *Tracker) TotalUnreadCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totalLocked()
}

func (t *Tracker) totalLocked() int {
	total := 0
	for _, e := range t.entries {
		total += e.UnreadCount
	}
	for id := range t.manual {
		if _, ok := t.entries[id]; !ok {
			total++
		}
	}
	return total
}

// PerChannel returns the server count of every known channel.
func (t *Tracker) PerChannel() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.perChannelLocked()
}

func (t *Tracker) perChannelLocked() map[string]int {
	out := make(map[string]int, len(t.entries))
	for id, e := range t.entries {
		out[id] = e.UnreadCount
	}
	return out
}

// Entries returns the server entries sorted by channel id.
func (t *Tracker) Entries() []domain.ChannelUnread {
	t.mu.Lock()
	out := make([]domain.ChannelUnread, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	t.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out
}

// ManuallyMarked returns the manually marked channel ids, sorted.
func (t *Tracker) ManuallyMarked() []string {
	t.mu.Lock()
	out := make([]string, 0, len(t.manual))
	for id := range t.manual {
		out = append(out, id)
	}
	t.mu.Unlock()
	sort.Strings(out)
	return out
}

// Snapshot returns the current state.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		Total:        t.totalLocked(),
		PerChannel:   t.perChannelLocked(),
		LastActivity: t.last,
	}
}

// Subscribe registers fn to receive a snapshot after every change. fn must
// not call back into methods that mutate the tracker.
func (t *Tracker) Subscribe(fn func(Snapshot)) func() {
	t.mu.Lock()
	id := t.nextObs
	t.nextObs++
	t.observers[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.observers, id)
			t.mu.Unlock()
		})
	}
}

func (t *Tracker) emit(notified bool) {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	snap := Snapshot{
		Total:        t.totalLocked(),
		PerChannel:   t.perChannelLocked(),
		LastActivity: t.last,
		Notified:     notified,
	}
	ids := make([]int, 0, len(t.observers))
	for id := range t.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, t.observers[id])
	}
	t.mu.Unlock()

	t.opts.Metrics.SetUnreadTotal(snap.Total)
	for _, fn := range fns {
		fn(snap)
	}
}

func (t *Tracker) invalidate() {
	if inv, ok := t.src.(invalidator); ok {
		inv.Invalidate()
	}
}

// Wait blocks until every in-flight channel refetch has finished.
func (t *Tracker) Wait() {
	t.inflight.Wait()
}

// Close drops all observers and waits for in-flight refetches.
func (t *Tracker) Close() {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	t.observers = make(map[int]func(Snapshot))
	t.mu.Unlock()

	t.cancel()
	t.inflight.Wait()
}
