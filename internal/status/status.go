// Package status renders the unread summary printed by the status command
// and embedded in tmux status lines.
package status

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cristianoliveira/chat-intray/internal/domain"
	"github.com/cristianoliveira/chat-intray/internal/formatter"
)

// DefaultFormat is used when no format is configured.
const DefaultFormat = "compact"

// Summary is the unread state a status line is built from.
type Summary struct {
	Entries []domain.ChannelUnread
	Manual  []string
}

// Total applies the unread total rule: server counts plus manual marks
// absent from the server list.
func (s Summary) Total() int {
	known := make(map[string]struct{}, len(s.Entries))
	total := 0
	for _, e := range s.Entries {
		known[e.ChannelID] = struct{}{}
		total += e.UnreadCount
	}
	for _, id := range s.Manual {
		if _, ok := known[id]; !ok {
			total++
		}
	}
	return total
}

// Context builds the template variables for s.
func Context(s Summary) formatter.VariableContext {
	ctx := formatter.VariableContext{UnreadCount: s.Total(), ManualCount: len(s.Manual)}

	var unread []domain.ChannelUnread
	for _, e := range s.Entries {
		if e.UnreadCount <= 0 {
			continue
		}
		unread = append(unread, e)
		if e.IsDirectMessage {
			ctx.DirectCount++
		}
	}
	ctx.ChannelCount = len(unread)
	ctx.HasUnread = ctx.UnreadCount > 0

	sort.SliceStable(unread, func(i, j int) bool {
		if unread[i].UnreadCount != unread[j].UnreadCount {
			return unread[i].UnreadCount > unread[j].UnreadCount
		}
		return label(unread[i]) < label(unread[j])
	})
	pairs := make([]string, 0, len(unread))
	for _, e := range unread {
		pairs = append(pairs, fmt.Sprintf("%s:%d", label(e), e.UnreadCount))
	}
	ctx.ChannelList = strings.Join(pairs, ",")

	if latest, ok := latestEntry(unread); ok {
		details := latest.Details()
		ctx.LatestSender = details.Owner
		ctx.LatestChannel = label(latest)
		ctx.LatestPreview = strings.Join(strings.Fields(details.Content), " ")
	}
	return ctx
}

// Render formats s with a preset name or a custom template.
func Render(format string, s Summary) (string, error) {
	if format == "" {
		format = DefaultFormat
	}
	tmpl, err := formatter.NewPresets().Resolve(format)
	if err != nil {
		return "", fmt.Errorf("invalid template: %w", err)
	}
	return tmpl.Execute(Context(s)), nil
}

func label(e domain.ChannelUnread) string {
	if e.ChannelName != "" {
		return e.ChannelName
	}
	return e.ChannelID
}

// latestEntry picks the entry with the greatest timestamp. Timestamps are
// compared as strings, which orders RFC 3339 values correctly.
func latestEntry(entries []domain.ChannelUnread) (domain.ChannelUnread, bool) {
	var best domain.ChannelUnread
	found := false
	for _, e := range entries {
		if e.LastMessageTimestamp == "" {
			continue
		}
		if !found || e.LastMessageTimestamp > best.LastMessageTimestamp {
			best = e
			found = true
		}
	}
	return best, found
}
