// Package dedup builds notification cue keys and remembers which keys
// have already been cued.
package dedup

import (
	"strings"
	"sync"

	"github.com/cristianoliveira/chat-intray/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Criteria defines which event fields identify a duplicate cue.
type Criteria string

const (
	// CriteriaTimestamp keys a cue by the message timestamp alone.
	CriteriaTimestamp Criteria = "timestamp"
	// CriteriaTimestampChannel keys a cue by channel and timestamp.
	CriteriaTimestampChannel Criteria = "timestamp_channel"

	// DefaultSize is the number of keys remembered when no size is given.
	DefaultSize = 256
)

// Options configure cue deduplication.
type Options struct {
	Criteria Criteria
	Size     int
}

// ParseCriteria converts user-provided strings into a Criteria value.
func ParseCriteria(value string) Criteria {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(CriteriaTimestampChannel):
		return CriteriaTimestampChannel
	default:
		return CriteriaTimestamp
	}
}

// String returns the string value for Criteria.
func (c Criteria) String() string {
	return string(c)
}

// BuildKey returns the cue key for evt. An event without a timestamp has
// no key.
func BuildKey(evt domain.UnreadEvent, criteria Criteria) string {
	if evt.LastMessageTimestamp == "" {
		return ""
	}
	switch criteria {
	case CriteriaTimestampChannel:
		return joinParts(evt.ChannelID, evt.LastMessageTimestamp)
	default:
		return evt.LastMessageTimestamp
	}
}

func joinParts(parts ...string) string {
	return strings.Join(parts, "\x00")
}

// Seen remembers the most recent cue keys.
type Seen struct {
	mu       sync.Mutex
	keys     *lru.Cache[string, struct{}]
	criteria Criteria
}

// NewSeen creates a memory of opts.Size keys.
func NewSeen(opts Options) *Seen {
	size := opts.Size
	if size <= 0 {
		size = DefaultSize
	}
	keys, err := lru.New[string, struct{}](size)
	if err != nil {
		// Only reachable with a non-positive size, excluded above.
		panic(err)
	}
	criteria := opts.Criteria
	if criteria == "" {
		criteria = CriteriaTimestamp
	}
	return &Seen{keys: keys, criteria: criteria}
}

// FirstTime records key and reports whether it was new. Empty keys are
// never recorded and always count as new.
func (s *Seen) FirstTime(key string) bool {
	if key == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys.Contains(key) {
		s.keys.Get(key)
		return false
	}
	s.keys.Add(key, struct{}{})
	return true
}

// FirstCue is FirstTime for the key of evt.
func (s *Seen) FirstCue(evt domain.UnreadEvent) bool {
	return s.FirstTime(BuildKey(evt, s.criteria))
}

// Len returns the number of remembered keys.
func (s *Seen) Len() int {
	return s.keys.Len()
}
