// Package cache keeps short-lived copies of backend responses.
package cache

import (
	"context"

	"github.com/coocood/freecache"
	"github.com/cristianoliveira/chat-intray/internal/backend"
	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/cristianoliveira/chat-intray/internal/logging"
	json "github.com/goccy/go-json"
)

const (
	// freecache rounds anything smaller up to 512KB.
	cacheSizeBytes = 1024 * 1024
	bulkKey        = "unread:all"
)

// UnreadCache is a backend.UnreadSource that reuses the bulk unread list
// for ttl seconds. Per-channel lookups always reach the backend.
type UnreadCache struct {
	src   backend.UnreadSource
	cache *freecache.Cache
	ttl   int
	log   logging.Logger
}

var _ backend.UnreadSource = (*UnreadCache)(nil)

// Timer is the clock freecache expires entries against, in unix seconds.
type Timer = freecache.Timer

// Option configures an UnreadCache.
type Option func(*options)

type options struct {
	timer Timer
	log   logging.Logger
}

// WithTimer replaces the expiry clock.
func WithTimer(t Timer) Option {
	return func(o *options) { o.timer = t }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(o *options) { o.log = l }
}

// NewUnreadCache wraps src. A ttl of zero or less disables caching.
func NewUnreadCache(src backend.UnreadSource, ttlSeconds int, opts ...Option) *UnreadCache {
	o := options{log: logging.GetGlobal()}
	for _, opt := range opts {
		opt(&o)
	}
	c := &UnreadCache{src: src, ttl: ttlSeconds, log: o.log.With("component", "cache")}
	if ttlSeconds <= 0 {
		return c
	}
	if o.timer != nil {
		c.cache = freecache.NewCacheCustomTimer(cacheSizeBytes, o.timer)
	} else {
		c.cache = freecache.NewCache(cacheSizeBytes)
	}
	return c
}

// GetUnreadCounts returns the cached list when present, otherwise fetches
// and stores it.
func (c *UnreadCache) GetUnreadCounts(ctx context.Context) ([]domain.ChannelUnread, error) {
	if c.cache != nil {
		if raw, err := c.cache.Get([]byte(bulkKey)); err == nil {
			var entries []domain.ChannelUnread
			if err := json.Unmarshal(raw, &entries); err == nil {
				return entries, nil
			}
			c.cache.Del([]byte(bulkKey))
		}
	}

	entries, err := c.src.GetUnreadCounts(ctx)
	if err != nil {
		return nil, err
	}
	if c.cache != nil {
		raw, err := json.Marshal(entries)
		if err == nil {
			err = c.cache.Set([]byte(bulkKey), raw, c.ttl)
		}
		if err != nil {
			c.log.Debug("unable to cache unread counts", "error", err)
		}
	}
	return entries, nil
}

// GetUnreadCountForChannel passes through to the backend.
func (c *UnreadCache) GetUnreadCountForChannel(ctx context.Context, channelID string) (domain.ChannelUnread, error) {
	return c.src.GetUnreadCountForChannel(ctx, channelID)
}

// Invalidate drops the cached bulk list.
func (c *UnreadCache) Invalidate() {
	if c.cache != nil {
		c.cache.Del([]byte(bulkKey))
	}
}

// HitRate reports the fraction of bulk lookups answered from the cache.
func (c *UnreadCache) HitRate() float64 {
	if c.cache == nil {
		return 0
	}
	return c.cache.HitRate()
}
