package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/cristianoliveira/chat-intray/internal/backend"
	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	now atomic.Uint32
}

func (f *fakeTimer) Now() uint32 { return f.now.Load() }

func newClock() *fakeTimer {
	t := &fakeTimer{}
	t.now.Store(1_000_000)
	return t
}

func TestUnreadCacheReusesBulkListWithinTTL(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).
		Return([]domain.ChannelUnread{{ChannelID: "general", UnreadCount: 2}}, nil).Once()

	clock := newClock()
	c := NewUnreadCache(src, 30, WithTimer(clock))

	first, err := c.GetUnreadCounts(context.Background())
	require.NoError(t, err)
	second, err := c.GetUnreadCounts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	src.AssertNumberOfCalls(t, "GetUnreadCounts", 1)
	assert.Greater(t, c.HitRate(), 0.0)
}

func TestUnreadCacheExpires(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{{ChannelID: "a", UnreadCount: 1}}, nil)

	clock := newClock()
	c := NewUnreadCache(src, 30, WithTimer(clock))

	_, err := c.GetUnreadCounts(context.Background())
	require.NoError(t, err)
	clock.now.Add(31)
	_, err = c.GetUnreadCounts(context.Background())
	require.NoError(t, err)

	src.AssertNumberOfCalls(t, "GetUnreadCounts", 2)
}

func TestUnreadCacheInvalidate(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{}, nil)

	c := NewUnreadCache(src, 30, WithTimer(newClock()))
	_, _ = c.GetUnreadCounts(context.Background())
	c.Invalidate()
	_, _ = c.GetUnreadCounts(context.Background())

	src.AssertNumberOfCalls(t, "GetUnreadCounts", 2)
}

func TestUnreadCacheDoesNotStoreErrors(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).Return(nil, errors.New("offline")).Once()
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{{ChannelID: "a"}}, nil).Once()

	c := NewUnreadCache(src, 30, WithTimer(newClock()))
	_, err := c.GetUnreadCounts(context.Background())
	require.Error(t, err)

	entries, err := c.GetUnreadCounts(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestUnreadCacheDisabledPassesThrough(t *testing.T) {
	src := new(backend.MockClient)
	src.On("GetUnreadCounts", mock.Anything).Return([]domain.ChannelUnread{}, nil)
	src.On("GetUnreadCountForChannel", mock.Anything, "general").Return(domain.ChannelUnread{ChannelID: "general", UnreadCount: 5}, nil)

	c := NewUnreadCache(src, 0)
	_, _ = c.GetUnreadCounts(context.Background())
	_, _ = c.GetUnreadCounts(context.Background())
	c.Invalidate()
	entry, err := c.GetUnreadCountForChannel(context.Background(), "general")

	require.NoError(t, err)
	assert.Equal(t, 5, entry.UnreadCount)
	assert.Equal(t, 0.0, c.HitRate())
	src.AssertNumberOfCalls(t, "GetUnreadCounts", 2)
}
