package unread

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cristianoliveira/chat-intray/internal/backend"
	"github.com/cristianoliveira/chat-intray/internal/cache"
	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/cristianoliveira/chat-intray/internal/events"
	"github.com/cristianoliveira/chat-intray/internal/metrics"
	"github.com/cristianoliveira/chat-intray/internal/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const me = "me@example.com"

type cueRecorder struct {
	mu     sync.Mutex
	events []domain.UnreadEvent
}

func (c *cueRecorder) Cue(_ context.Context, evt domain.UnreadEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *cueRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.events)
}

var _ notification.Player = (*cueRecorder)(nil)

func newTracker(t *testing.T, src backend.UnreadSource) (*Tracker, *cueRecorder) {
	t.Helper()
	cues := &cueRecorder{}
	tr := NewTracker(src, Options{CurrentUserID: me, Player: cues, FocusThrottle: 10 * time.Second})
	t.Cleanup(tr.Close)
	return tr, cues
}

func event(channel, sender, ts string) domain.UnreadEvent {
	return domain.UnreadEvent{
		ChannelID:             channel,
		ChannelName:           channel,
		SentBy:                sender,
		LastMessageSenderName: "Alice",
		LastMessageTimestamp:  ts,
	}
}

func TestTotalMatchesExampleScenario(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{
		{ChannelID: "general", UnreadCount: 2},
		{ChannelID: "random", UnreadCount: 0},
	}, nil)
	tr, _ := newTracker(t, src)

	require.NoError(t, tr.Refresh(context.Background(), false))
	tr.MarkChannelManuallyUnread("random")
	tr.MarkChannelManuallyUnread("design")

	assert.Equal(t, 3, tr.TotalUnreadCount())
	assert.Equal(t, map[string]int{"general": 2, "random": 0}, tr.PerChannel())
	assert.Equal(t, []string{"design", "random"}, tr.ManuallyMarked())
}

func TestManualMarkOnReportedChannelIsNotDoubleCounted(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{
		{ChannelID: "general", UnreadCount: 2},
		{ChannelID: "random", UnreadCount: 1},
	}, nil)
	tr, _ := newTracker(t, src)
	require.NoError(t, tr.Refresh(context.Background(), false))

	before := tr.TotalUnreadCount()
	tr.MarkChannelManuallyUnread("general")
	tr.MarkChannelManuallyUnread("general")
	assert.Equal(t, before, tr.TotalUnreadCount())
	assert.Equal(t, 3, tr.TotalUnreadCount())
}

func TestSelfEchoZeroesChannelWithoutCue(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{{ChannelID: "general", UnreadCount: 3}}, nil)
	tr, cues := newTracker(t, src)
	require.NoError(t, tr.Refresh(context.Background(), false))

	tr.HandleEvent(context.Background(), event("general", me, "t1"))
	tr.Wait()

	assert.Equal(t, 0, tr.TotalUnreadCount())
	assert.Equal(t, 0, cues.count())
	src.AssertNotCalled(t, "GetUnreadCountForChannel", mock.Anything, mock.Anything)
}

func TestSelfEchoDoesNotTouchManualMarks(t *testing.T) {
	tr, cues := newTracker(t, new(backend.MockClient))
	tr.MarkChannelManuallyUnread("design")

	tr.HandleEvent(context.Background(), event("design", me, "t1"))
	assert.Equal(t, 1, tr.TotalUnreadCount())
	assert.Equal(t, []string{"design"}, tr.ManuallyMarked())
	assert.Equal(t, 0, cues.count())
}

func TestCueIsIdempotentPerTimestamp(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCountForChannel", mock.Anything, "general").
		Return(domain.ChannelUnread{ChannelID: "general", UnreadCount: 1}, nil)
	tr, cues := newTracker(t, src)

	tr.HandleEvent(context.Background(), event("general", "alice", "2024-01-01T00:00:00Z"))
	tr.HandleEvent(context.Background(), event("general", "alice", "2024-01-01T00:00:00Z"))
	tr.Wait()

	assert.Equal(t, 1, cues.count())
	src.AssertNumberOfCalls(t, "GetUnreadCountForChannel", 2)
	assert.Equal(t, 1, tr.TotalUnreadCount())
}

func TestManualMarkSuppressesCueUntilCountExceedsOne(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{{ChannelID: "design", UnreadCount: 1}}, nil)
	src.On("GetUnreadCountForChannel", mock.Anything, "design").
		Return(domain.ChannelUnread{ChannelID: "design", UnreadCount: 1}, nil).Once()
	src.On("GetUnreadCountForChannel", mock.Anything, "design").
		Return(domain.ChannelUnread{ChannelID: "design", UnreadCount: 2}, nil)
	tr, cues := newTracker(t, src)
	require.NoError(t, tr.Refresh(context.Background(), false))
	tr.MarkChannelManuallyUnread("design")

	tr.HandleEvent(context.Background(), event("design", "alice", "t1"))
	tr.Wait()
	assert.Equal(t, 0, cues.count(), "single-message state of a manual channel must not alert")

	tr.HandleEvent(context.Background(), event("design", "alice", "t2"))
	tr.Wait()
	assert.Equal(t, 0, cues.count(), "repeat of the same single-message state must not alert")

	tr.HandleEvent(context.Background(), event("design", "alice", "t3"))
	tr.Wait()
	assert.Equal(t, 1, cues.count())
}

func TestManualMarkDecaysWhenServerCountTurnsPositive(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{{ChannelID: "random", UnreadCount: 0}}, nil).Once()
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{{ChannelID: "random", UnreadCount: 4}}, nil)
	tr, _ := newTracker(t, src)

	require.NoError(t, tr.Refresh(context.Background(), false))
	tr.MarkChannelManuallyUnread("random")
	assert.Equal(t, []string{"random"}, tr.ManuallyMarked())

	require.NoError(t, tr.Refresh(context.Background(), true))
	assert.Empty(t, tr.ManuallyMarked())
	assert.Equal(t, 4, tr.TotalUnreadCount())
}

func TestEventAlwaysRefetchesAndRecordsActivity(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCountForChannel", mock.Anything, "design").
		Return(domain.ChannelUnread{ChannelID: "design", UnreadCount: 1}, nil)
	tr, cues := newTracker(t, src)
	tr.MarkChannelManuallyUnread("design")

	tr.HandleEvent(context.Background(), event("design", "alice", "t1"))
	tr.Wait()

	assert.Equal(t, 0, cues.count())
	src.AssertCalled(t, "GetUnreadCountForChannel", mock.Anything, "design")
	snap := tr.Snapshot()
	assert.Equal(t, "Alice", snap.LastActivity.SenderName)
	assert.Equal(t, "design", snap.LastActivity.ChannelID)
}

func TestRefetchFailureIsTolerated(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{{ChannelID: "general", UnreadCount: 2}}, nil)
	src.On("GetUnreadCountForChannel", mock.Anything, "general").
		Return(domain.ChannelUnread{}, errors.New("boom"))
	tr, cues := newTracker(t, src)
	require.NoError(t, tr.Refresh(context.Background(), false))

	tr.HandleEvent(context.Background(), event("general", "alice", "t1"))
	tr.Wait()

	assert.Equal(t, 1, cues.count())
	assert.Equal(t, 2, tr.TotalUnreadCount())
}

func TestRefreshErrorKeepsLastKnownState(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{{ChannelID: "general", UnreadCount: 2}}, nil).Once()
	src.On("GetUnreadCounts", mock.Anything).Return(nil, errors.New("offline"))
	tr, _ := newTracker(t, src)

	require.NoError(t, tr.Refresh(context.Background(), false))
	err := tr.Refresh(context.Background(), true)
	require.Error(t, err)
	assert.Equal(t, 2, tr.TotalUnreadCount())
}

func TestMarkChannelReadClearsCountAndManualMark(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{{ChannelID: "general", UnreadCount: 5}}, nil)
	tr, _ := newTracker(t, src)
	require.NoError(t, tr.Refresh(context.Background(), false))
	tr.MarkChannelManuallyUnread("design")

	tr.MarkChannelRead("general")
	tr.MarkChannelRead("design")
	assert.Equal(t, 0, tr.TotalUnreadCount())
	assert.Empty(t, tr.ManuallyMarked())
}

func TestUnforcedRefreshWithinTTLUsesCache(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{{ChannelID: "general", UnreadCount: 2}}, nil)
	tr, _ := newTracker(t, cache.NewUnreadCache(src, 30))

	require.NoError(t, tr.Refresh(context.Background(), false))
	require.NoError(t, tr.Refresh(context.Background(), false))
	src.AssertNumberOfCalls(t, "GetUnreadCounts", 1)

	require.NoError(t, tr.Refresh(context.Background(), true))
	src.AssertNumberOfCalls(t, "GetUnreadCounts", 2)
}

func TestLocalMutationInvalidatesCache(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{{ChannelID: "general", UnreadCount: 2}}, nil)
	tr, _ := newTracker(t, cache.NewUnreadCache(src, 30))

	require.NoError(t, tr.Refresh(context.Background(), false))
	tr.MarkChannelRead("general")
	require.NoError(t, tr.Refresh(context.Background(), false))
	src.AssertNumberOfCalls(t, "GetUnreadCounts", 2)
}

func TestFocusIsThrottled(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{}, nil)
	now := time.Unix(1_700_000_000, 0)
	tr := NewTracker(cache.NewUnreadCache(src, 30), Options{
		FocusThrottle: 10 * time.Second,
		Now:           func() time.Time { return now },
	})
	defer tr.Close()

	require.NoError(t, tr.Focus(context.Background()))
	now = now.Add(5 * time.Second)
	require.NoError(t, tr.Focus(context.Background()))
	src.AssertNumberOfCalls(t, "GetUnreadCounts", 1)

	now = now.Add(6 * time.Second)
	require.NoError(t, tr.Focus(context.Background()))
	src.AssertNumberOfCalls(t, "GetUnreadCounts", 2)
}

func TestObserversReceiveSnapshots(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCountForChannel", mock.Anything, "general").
		Return(domain.ChannelUnread{ChannelID: "general", UnreadCount: 1}, nil)
	tr, _ := newTracker(t, src)

	var mu sync.Mutex
	var snaps []Snapshot
	unsubscribe := tr.Subscribe(func(s Snapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})

	tr.HandleEvent(context.Background(), event("general", "alice", "t1"))
	tr.Wait()

	mu.Lock()
	require.Len(t, snaps, 2)
	assert.True(t, snaps[0].Notified)
	assert.False(t, snaps[1].Notified)
	assert.Equal(t, 1, snaps[1].Total)
	mu.Unlock()

	unsubscribe()
	unsubscribe()
	tr.MarkChannelRead("general")
	mu.Lock()
	assert.Len(t, snaps, 2)
	mu.Unlock()
}

type countingRecorder struct {
	metrics.Noop
	cues  atomic.Int32
	total atomic.Int32
}

func (c *countingRecorder) IncCues()              { c.cues.Add(1) }
func (c *countingRecorder) SetUnreadTotal(n int) { c.total.Store(int32(n)) }

func TestSyntheticEventsThroughBus(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCountForChannel", mock.Anything, mock.Anything).
		Return(domain.ChannelUnread{ChannelID: "general", UnreadCount: 1}, nil)
	rec := &countingRecorder{}
	cues := &cueRecorder{}
	tr := NewTracker(src, Options{CurrentUserID: me, Player: cues, Metrics: rec})
	defer tr.Close()

	bus := events.NewBus()
	unsubscribe := bus.Subscribe(func(evt domain.UnreadEvent) {
		tr.HandleEvent(context.Background(), evt)
	})
	defer unsubscribe()

	bus.Dispatch(event("general", "alice", "t1"))
	tr.Wait()
	bus.Dispatch(event("general", me, "t2"))
	tr.Wait()

	assert.Equal(t, 1, cues.count())
	assert.Equal(t, int32(1), rec.cues.Load())
	assert.Equal(t, int32(0), rec.total.Load())
}

func TestCloseWaitsForRefetches(t *testing.T) {
	release := make(chan struct{})
	var finished atomic.Bool
	src := new(backend.MockClient)
	src.On("GetUnreadCountForChannel", mock.Anything, "general").
		Run(func(mock.Arguments) {
			<-release
			finished.Store(true)
		}).
		Return(domain.ChannelUnread{ChannelID: "general", UnreadCount: 1}, nil)
	tr := NewTracker(src, Options{})

	tr.HandleEvent(context.Background(), event("general", "alice", "t1"))
	done := make(chan struct{})
	go func() {
		tr.Close()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("Close returned before the refetch finished")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	<-done
	assert.True(t, finished.Load())

	tr.HandleEvent(context.Background(), event("general", "alice", "t2"))
	src.AssertNumberOfCalls(t, "GetUnreadCountForChannel", 1)
}
