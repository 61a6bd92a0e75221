// Package domain provides the value types shared by the unread tracker,
// the upload queue and the backend client.
package domain

import (
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
)

// ChannelUnread is the server's unread report for one channel.
type ChannelUnread struct {
	ChannelID            string `json:"channel_id"`
	UnreadCount          int    `json:"unread_count"`
	ChannelName          string `json:"channel_name,omitempty"`
	IsDirectMessage      bool   `json:"is_direct_message,omitempty"`
	PeerUserID           string `json:"peer_user_id,omitempty"`
	LastMessageTimestamp string `json:"last_message_timestamp,omitempty"`
	// LastMessageDetails is a JSON encoded MessageDetails as sent by the server.
	LastMessageDetails string `json:"last_message_details,omitempty"`
}

// MessageDetails is the decoded form of LastMessageDetails.
type MessageDetails struct {
	Owner       string `json:"owner,omitempty"`
	Content     string `json:"content,omitempty"`
	MessageType string `json:"message_type,omitempty"`
}

// Details decodes LastMessageDetails. An empty or malformed value yields
// zero details.
func (c ChannelUnread) Details() MessageDetails {
	return decodeDetails(c.LastMessageDetails)
}

// Validate checks that the entry is usable as a tracker record.
func (c ChannelUnread) Validate() error {
	if c.ChannelID == "" {
		return fmt.Errorf("channel id cannot be empty")
	}
	if c.UnreadCount < 0 {
		return fmt.Errorf("invalid unread count for %s: %d", c.ChannelID, c.UnreadCount)
	}
	return nil
}

// UnreadEvent is the push event sent when a channel's unread count changes.
type UnreadEvent struct {
	ChannelID             string `json:"channel_id"`
	SentBy                string `json:"sent_by"`
	LastMessageSenderName string `json:"last_message_sender_name,omitempty"`
	IsDirectMessage       bool   `json:"is_direct_message,omitempty"`
	ChannelName           string `json:"channel_name,omitempty"`
	LastMessageTimestamp  string `json:"last_message_timestamp,omitempty"`
	LastMessageDetails    string `json:"last_message_details,omitempty"`
}

// Details decodes LastMessageDetails.
func (e UnreadEvent) Details() MessageDetails {
	return decodeDetails(e.LastMessageDetails)
}

// Preview returns a single-line excerpt of the message content, at most
// max runes long.
func (e UnreadEvent) Preview(max int) string {
	content := strings.Join(strings.Fields(e.Details().Content), " ")
	runes := []rune(content)
	if max <= 0 || len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}

// Activity describes the most recent message that touched the unread state.
// It feeds the descriptive window title.
type Activity struct {
	ChannelID       string
	ChannelName     string
	SenderName      string
	IsDirectMessage bool
	Timestamp       string
}

// ActivityFromEvent builds the activity record for a push event.
func ActivityFromEvent(e UnreadEvent) Activity {
	sender := e.LastMessageSenderName
	if sender == "" {
		sender = e.Details().Owner
	}
	return Activity{
		ChannelID:       e.ChannelID,
		ChannelName:     e.ChannelName,
		SenderName:      sender,
		IsDirectMessage: e.IsDirectMessage,
		Timestamp:       e.LastMessageTimestamp,
	}
}

func decodeDetails(raw string) MessageDetails {
	var d MessageDetails
	if raw == "" {
		return d
	}
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return MessageDetails{}
	}
	return d
}
