// Package session wires the unread tracker, title blinker, upload queue and
// push event stream of one chat session.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/backend"
	"github.com/cristianoliveira/chat-intray/internal/cache"
	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/dedup"
	"github.com/cristianoliveira/chat-intray/internal/dedupconfig"
	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/cristianoliveira/chat-intray/internal/events"
	"github.com/cristianoliveira/chat-intray/internal/logging"
	"github.com/cristianoliveira/chat-intray/internal/metrics"
	"github.com/cristianoliveira/chat-intray/internal/notification"
	"github.com/cristianoliveira/chat-intray/internal/status"
	"github.com/cristianoliveira/chat-intray/internal/title"
	"github.com/cristianoliveira/chat-intray/internal/unread"
	"github.com/cristianoliveira/chat-intray/internal/upload"
)

// Settings are the tunables of a session.
type Settings struct {
	CurrentUserID string
	CacheTTL      int // seconds
	FocusThrottle time.Duration
	PollInterval  time.Duration

	TitleBase     string
	TitleMarker   string
	BlinkInterval time.Duration

	MaxConcurrent int
	UploadFolder  string

	EventsURL   string
	EventsToken string
	Heartbeat   time.Duration

	Dedup dedup.Options
}

// SettingsFromConfig reads the session settings from the loaded configuration.
func SettingsFromConfig() Settings {
	return Settings{
		CurrentUserID: config.Get("current_user_id", ""),
		CacheTTL:      config.GetInt("unread_cache_ttl", 30),
		FocusThrottle: config.GetDuration("unread_focus_throttle", 10*time.Second),
		PollInterval:  config.GetDuration("unread_poll_interval", time.Minute),
		TitleBase:     config.Get("title_base", title.DefaultBase),
		TitleMarker:   config.Get("title_new_message_marker", title.DefaultMarker),
		BlinkInterval: time.Duration(config.GetInt("title_blink_interval_ms", 1000)) * time.Millisecond,
		MaxConcurrent: config.GetInt("upload_max_concurrent", upload.DefaultMaxConcurrent),
		UploadFolder:  config.Get("upload_folder", ""),
		EventsURL:     config.Get("events_url", ""),
		EventsToken:   events.TokenFromConfig(),
		Heartbeat:     config.GetDuration("events_heartbeat_interval", 30*time.Second),
		Dedup:         dedupconfig.Load(),
	}
}

// Options are the collaborators of a session.
type Options struct {
	Settings Settings
	Backend  backend.Client
	Store    upload.Store
	// Sink receives window titles. Nil discards them.
	Sink title.Sink
	// Player is the new-message cue. Nil disables cues.
	Player  notification.Player
	Metrics metrics.Recorder
	Logger  logging.Logger
	// Tick replaces the blink ticker in tests.
	Tick title.TickFunc
}

// Session owns the per-session components. Nothing is shared between
// sessions.
type Session struct {
	settings Settings
	base     logging.Logger
	log      logging.Logger

	bus     *events.Bus
	cache   *cache.UnreadCache
	tracker *unread.Tracker
	blinker *title.Blinker
	queue   *upload.Queue

	unsubscribe []func()
	closeOnce   sync.Once
}

// New builds a session. Observers are attached immediately, so synthetic
// events dispatched on Bus are handled before Run is called.
func New(opts Options) *Session {
	if opts.Backend == nil {
		panic("session.New: backend dependency cannot be nil")
	}
	if opts.Store == nil {
		panic("session.New: store dependency cannot be nil")
	}
	if opts.Sink == nil {
		opts.Sink = title.Discard
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop{}
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetGlobal()
	}
	st := opts.Settings

	s := &Session{
		settings: st,
		base:     opts.Logger,
		log:      opts.Logger.With("component", "session"),
		bus:      events.NewBus(),
	}
	s.cache = cache.NewUnreadCache(opts.Backend, st.CacheTTL, cache.WithLogger(opts.Logger))
	s.tracker = unread.NewTracker(s.cache, unread.Options{
		CurrentUserID: st.CurrentUserID,
		FocusThrottle: st.FocusThrottle,
		Dedup:         dedup.NewSeen(st.Dedup),
		Player:        opts.Player,
		Metrics:       opts.Metrics,
		Logger:        opts.Logger,
	})
	s.blinker = title.NewBlinker(opts.Sink, title.Options{
		Base:     st.TitleBase,
		Marker:   st.TitleMarker,
		Interval: st.BlinkInterval,
		Tick:     opts.Tick,
		Logger:   opts.Logger,
	})
	s.queue = upload.NewQueue(opts.Backend, opts.Backend, opts.Store, upload.Options{
		MaxConcurrent: st.MaxConcurrent,
		Folder:        st.UploadFolder,
		Metrics:       opts.Metrics,
		Logger:        opts.Logger,
	})

	s.unsubscribe = append(s.unsubscribe,
		s.tracker.Subscribe(s.blinker.Update),
		s.bus.Subscribe(func(evt domain.UnreadEvent) {
			s.tracker.HandleEvent(context.Background(), evt)
		}),
	)
	return s
}

// Bus is the event bus the push stream dispatches on.
func (s *Session) Bus() *events.Bus { return s.bus }

// Tracker returns the unread tracker.
func (s *Session) Tracker() *unread.Tracker { return s.tracker }

// Blinker returns the title blinker.
func (s *Session) Blinker() *title.Blinker { return s.blinker }

// Queue returns the upload queue.
func (s *Session) Queue() *upload.Queue { return s.queue }

// CacheHitRate reports how often bulk unread lookups were served from cache.
func (s *Session) CacheHitRate() float64 { return s.cache.HitRate() }

// Summary returns the current unread state for status rendering.
func (s *Session) Summary() status.Summary {
	return status.Summary{Entries: s.tracker.Entries(), Manual: s.tracker.ManuallyMarked()}
}

// SetVisible records window visibility. Becoming visible also triggers a
// throttled refresh.
func (s *Session) SetVisible(ctx context.Context, visible bool) {
	s.blinker.SetHidden(!visible)
	if !visible {
		return
	}
	if err := s.tracker.Focus(ctx); err != nil {
		s.log.Warn("focus refresh failed", "error", err)
	}
}

// Run performs the initial refresh, then keeps the state fresh through the
// push stream and the periodic refresh until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	s.refresh(ctx, true)

	var wg sync.WaitGroup
	if s.settings.EventsURL != "" {
		sub := events.NewSubscriber(s.settings.EventsURL, s.bus,
			events.WithToken(s.settings.EventsToken),
			events.WithHeartbeat(s.settings.Heartbeat),
			events.WithSubscriberLogger(s.base),
			events.WithResync(func() { s.refresh(ctx, true) }),
		)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sub.Run(ctx); err != nil {
				s.log.Error("event stream stopped", "error", err)
			}
		}()
	} else {
		s.log.Info("no events_url configured, relying on periodic refresh")
	}

	s.poll(ctx)
	wg.Wait()
	return nil
}

func (s *Session) poll(ctx context.Context) {
	if s.settings.PollInterval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(s.settings.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx, false)
		}
	}
}

func (s *Session) refresh(ctx context.Context, force bool) {
	if err := s.tracker.Refresh(ctx, force); err != nil && ctx.Err() == nil {
		s.log.Warn("unread refresh failed", "force", force, "error", err)
	}
}

// Close tears the session down in reverse construction order and resets
// the window title. It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		for i := len(s.unsubscribe) - 1; i >= 0; i-- {
			s.unsubscribe[i]()
		}
		s.queue.Close()
		s.blinker.Close()
		s.tracker.Close()
		s.log.Info("session closed")
	})
}

// MarkChannelRead clears a channel's unread count and manual mark.
func (s *Session) MarkChannelRead(channelID string) { s.tracker.MarkChannelRead(channelID) }

// MarkChannelManuallyUnread flags a channel as unread.
func (s *Session) MarkChannelManuallyUnread(channelID string) {
	s.tracker.MarkChannelManuallyUnread(channelID)
}
