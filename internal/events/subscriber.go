package events

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/cristianoliveira/chat-intray/internal/logging"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024

	defaultHeartbeat  = 30 * time.Second
	defaultMinBackoff = time.Second
	defaultMaxBackoff = 30 * time.Second
)

// Subscriber reads unread events from a WebSocket stream and dispatches
// them on a Bus. It reconnects until its context is cancelled.
type Subscriber struct {
	url        string
	header     http.Header
	bus        *Bus
	dialer     *websocket.Dialer
	heartbeat  time.Duration
	minBackoff time.Duration
	maxBackoff time.Duration
	onResync   func()
	log        logging.Logger
}

// SubscriberOption configures a Subscriber.
type SubscriberOption func(*Subscriber)

// WithHeartbeat sets the interval between heartbeat frames.
func WithHeartbeat(d time.Duration) SubscriberOption {
	return func(s *Subscriber) {
		if d > 0 {
			s.heartbeat = d
		}
	}
}

// WithBackoff sets the reconnect delay bounds.
func WithBackoff(lo, hi time.Duration) SubscriberOption {
	return func(s *Subscriber) {
		if lo > 0 && hi >= lo {
			s.minBackoff = lo
			s.maxBackoff = hi
		}
	}
}

// WithToken sends a bearer token on the upgrade request.
func WithToken(token string) SubscriberOption {
	return func(s *Subscriber) {
		if token != "" {
			s.header.Set("Authorization", "Bearer "+token)
		}
	}
}

// WithResync registers a callback run after every reconnect, when events
// may have been missed.
func WithResync(fn func()) SubscriberOption {
	return func(s *Subscriber) { s.onResync = fn }
}

// WithSubscriberLogger sets the logger.
func WithSubscriberLogger(l logging.Logger) SubscriberOption {
	return func(s *Subscriber) { s.log = l }
}

// NewSubscriber creates a subscriber for the stream at url.
func NewSubscriber(url string, bus *Bus, opts ...SubscriberOption) *Subscriber {
	s := &Subscriber{
		url:        url,
		header:     http.Header{},
		bus:        bus,
		dialer:     &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		heartbeat:  defaultHeartbeat,
		minBackoff: defaultMinBackoff,
		maxBackoff: defaultMaxBackoff,
		log:        logging.GetGlobal(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("component", "events")
	return s
}

// TokenFromConfig returns events_token, or api_token when the stream
// shares the backend credentials.
func TokenFromConfig() string {
	if token := config.Get("events_token", ""); token != "" {
		return token
	}
	return config.Get("api_token", "")
}

// NewSubscriberFromConfig reads events_url, the stream token and
// events_heartbeat_interval.
func NewSubscriberFromConfig(bus *Bus, opts ...SubscriberOption) *Subscriber {
	base := []SubscriberOption{
		WithToken(TokenFromConfig()),
		WithHeartbeat(config.GetDuration("events_heartbeat_interval", defaultHeartbeat)),
	}
	return NewSubscriber(config.Get("events_url", ""), bus, append(base, opts...)...)
}

// Run connects and serves the stream until ctx is done. It returns nil on
// cancellation.
func (s *Subscriber) Run(ctx context.Context) error {
	if s.url == "" {
		return fmt.Errorf("events: no stream url configured")
	}
	backoff := s.minBackoff
	connected := false
	for {
		conn, _, err := s.dialer.DialContext(ctx, s.url, s.header)
		if err == nil {
			s.log.Info("event stream connected", "url", s.url)
			if connected && s.onResync != nil {
				s.onResync()
			}
			connected = true
			backoff = s.minBackoff
			err = s.serve(ctx, conn)
		}
		if ctx.Err() != nil {
			return nil
		}
		s.log.Warn("event stream unavailable", "error", err, "retry_in", backoff.String())

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		backoff *= 2
		if backoff > s.maxBackoff {
			backoff = s.maxBackoff
		}
	}
}

// serve owns conn until it fails or ctx is done. Reads happen on a
// dedicated goroutine; this goroutine is the only writer.
func (s *Subscriber) serve(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	errc := make(chan error, 1)
	go func() { errc <- s.readLoop(conn) }()

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case err := <-errc:
			return err
		case <-ticker.C:
			if err := s.write(conn, Envelope{Op: OpHeartbeat}); err != nil {
				return fmt.Errorf("send heartbeat: %w", err)
			}
		}
	}
}

func (s *Subscriber) write(conn *websocket.Conn, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (s *Subscriber) readLoop(conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return fmt.Errorf("stream closed: %w", err)
			}
			return err
		}
		s.handle(raw)
	}
}

func (s *Subscriber) handle(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.log.Debug("invalid frame", "error", err)
		return
	}
	switch env.Op {
	case OpUnreadChannelCountUpdated:
		var evt domain.UnreadEvent
		if err := json.Unmarshal(env.Data, &evt); err != nil || evt.ChannelID == "" {
			s.log.Debug("invalid unread event", "error", err, "seq", env.Seq)
			return
		}
		s.bus.Dispatch(evt)
	case OpHeartbeatAck:
	default:
		s.log.Debug("ignored op", "op", env.Op, "seq", env.Seq)
	}
}
