package events

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/config"
	"github.com/cristianoliveira/chat-intray/internal/domain"
	json "github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStream struct {
	upgrader   websocket.Upgrader
	conns      atomic.Int32
	heartbeats atomic.Int32
	auth       atomic.Value
	// serveConn runs for each accepted connection; returning closes it.
	serveConn func(n int32, conn *websocket.Conn)
}

func (f *fakeStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.auth.Store(r.Header.Get("Authorization"))
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()
	n := f.conns.Add(1)

	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var env Envelope
			if json.Unmarshal(raw, &env) == nil && env.Op == OpHeartbeat {
				f.heartbeats.Add(1)
			}
		}
	}()
	f.serveConn(n, conn)
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func sendUnread(t *testing.T, conn *websocket.Conn, evt domain.UnreadEvent) {
	t.Helper()
	data, err := json.Marshal(evt)
	require.NoError(t, err)
	frame, err := json.Marshal(Envelope{Op: OpUnreadChannelCountUpdated, Data: data, Seq: 1})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func TestSubscriberDispatchesUnreadEvents(t *testing.T) {
	stream := &fakeStream{}
	stream.serveConn = func(_ int32, conn *websocket.Conn) {
		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"presence_update","d":{}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"op":"unread_channel_count_updated","d":{"sent_by":"x"}}`))
		sendUnread(t, conn, domain.UnreadEvent{ChannelID: "general", SentBy: "bob", LastMessageTimestamp: "t1"})
		time.Sleep(200 * time.Millisecond)
	}
	srv := httptest.NewServer(stream)
	defer srv.Close()

	bus := NewBus()
	received := make(chan domain.UnreadEvent, 4)
	bus.Subscribe(func(e domain.UnreadEvent) { received <- e })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := NewSubscriber(wsURL(srv), bus, WithToken("tok"), WithHeartbeat(20*time.Millisecond))
	go sub.Run(ctx)

	select {
	case evt := <-received:
		assert.Equal(t, "general", evt.ChannelID)
		assert.Equal(t, "bob", evt.SentBy)
		assert.Equal(t, "t1", evt.LastMessageTimestamp)
	case <-time.After(2 * time.Second):
		t.Fatal("event not dispatched")
	}
	assert.Empty(t, received, "frames without a channel id are dropped")
	assert.Equal(t, "Bearer tok", stream.auth.Load())

	require.Eventually(t, func() bool { return stream.heartbeats.Load() > 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestSubscriberReconnectsAndResyncs(t *testing.T) {
	stream := &fakeStream{}
	stream.serveConn = func(n int32, conn *websocket.Conn) {
		if n == 1 {
			return
		}
		sendUnread(t, conn, domain.UnreadEvent{ChannelID: "random", SentBy: "carol"})
		time.Sleep(500 * time.Millisecond)
	}
	srv := httptest.NewServer(stream)
	defer srv.Close()

	bus := NewBus()
	received := make(chan domain.UnreadEvent, 1)
	bus.Subscribe(func(e domain.UnreadEvent) { received <- e })

	var resyncs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := NewSubscriber(wsURL(srv), bus,
		WithBackoff(10*time.Millisecond, 20*time.Millisecond),
		WithResync(func() { resyncs.Add(1) }))
	go sub.Run(ctx)

	select {
	case evt := <-received:
		assert.Equal(t, "random", evt.ChannelID)
	case <-time.After(3 * time.Second):
		t.Fatal("event not dispatched after reconnect")
	}
	assert.GreaterOrEqual(t, stream.conns.Load(), int32(2))
	assert.GreaterOrEqual(t, resyncs.Load(), int32(1))
}

func TestSubscriberStopsOnCancel(t *testing.T) {
	stream := &fakeStream{}
	stream.serveConn = func(_ int32, conn *websocket.Conn) {
		time.Sleep(2 * time.Second)
	}
	srv := httptest.NewServer(stream)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	var runErr error
	go func() {
		defer wg.Done()
		runErr = NewSubscriber(wsURL(srv), NewBus()).Run(ctx)
	}()

	require.Eventually(t, func() bool { return stream.conns.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	wg.Wait()
	assert.NoError(t, runErr)
}

func TestSubscriberRequiresURL(t *testing.T) {
	err := NewSubscriber("", NewBus()).Run(context.Background())
	require.Error(t, err)
}

func TestTokenFromConfig(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(tmp, "config"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmp, "state"))
	t.Setenv("HOME", tmp)
	t.Setenv("CHAT_INTRAY_API_TOKEN", "api")
	config.Load()
	assert.Equal(t, "api", TokenFromConfig())

	t.Setenv("CHAT_INTRAY_EVENTS_TOKEN", "stream")
	config.Load()
	assert.Equal(t, "stream", TokenFromConfig())
}
