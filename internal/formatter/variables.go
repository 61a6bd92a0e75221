package formatter

import "strconv"

// VariableContext contains all data needed for template variable resolution.
type VariableContext struct {
	UnreadCount  int
	ChannelCount int
	DirectCount  int
	ManualCount  int

	LatestSender  string
	LatestChannel string
	LatestPreview string

	HasUnread bool

	// ChannelList is "name:count" pairs of channels with unread messages.
	ChannelList string
}

// Variables lists every variable a template may use.
var Variables = []string{
	"unread-count", "total-count", "channel-count", "direct-count", "manual-count",
	"latest-sender", "latest-channel", "latest-message", "has-unread", "channel-list",
}

// IsVariable reports whether name is a known variable.
func IsVariable(name string) bool {
	for _, v := range Variables {
		if v == name {
			return true
		}
	}
	return false
}

// resolve returns the value of a known variable.
func resolve(name string, ctx VariableContext) string {
	switch name {
	case "unread-count", "total-count":
		return strconv.Itoa(ctx.UnreadCount)
	case "channel-count":
		return strconv.Itoa(ctx.ChannelCount)
	case "direct-count":
		return strconv.Itoa(ctx.DirectCount)
	case "manual-count":
		return strconv.Itoa(ctx.ManualCount)
	case "latest-sender":
		return ctx.LatestSender
	case "latest-channel":
		return ctx.LatestChannel
	case "latest-message":
		return ctx.LatestPreview
	case "has-unread":
		return strconv.FormatBool(ctx.HasUnread)
	case "channel-list":
		return ctx.ChannelList
	default:
		return ""
	}
}
